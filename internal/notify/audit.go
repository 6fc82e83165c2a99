package notify

import (
	"context"

	"hqbot/internal/models"
)

// AuditLog writes one log line per event.
type AuditLog struct {
	logger Logger
}

func NewAuditLog(logger Logger) *AuditLog {
	return &AuditLog{logger: logger}
}

func (a *AuditLog) Name() string { return "audit" }

func (a *AuditLog) Handle(_ context.Context, events []models.Event) error {
	for _, e := range events {
		switch e.Type {
		case models.EventMatchSettled:
			a.logger.Info("audit %s game=%s winner=%s loser=%s amount=%d", e.Type, e.MatchID, e.WinnerID, e.LoserID, e.Amount)
		case models.EventRoundResolved:
			a.logger.Info("audit %s game=%s round=%d %s/%s winner=%q score=%d-%d",
				e.Type, e.MatchID, e.RoundNumber, e.ChallengerChoice, e.OpponentChoice, e.WinnerID, e.ChallengerWins, e.OpponentWins)
		case models.EventChoiceRecorded:
			// choices stay hidden until the round resolves
			a.logger.Debug("audit %s game=%s round=%d actor=%s", e.Type, e.MatchID, e.RoundNumber, e.ActorID)
		default:
			a.logger.Info("audit %s game=%s round=%d actor=%s", e.Type, e.MatchID, e.RoundNumber, e.ActorID)
		}
	}
	return nil
}
