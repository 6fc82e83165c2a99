package application

import (
	"context"
	"time"

	"hqbot/internal/models"
	"hqbot/internal/repository"
)

type Logger interface {
	Error(format string, v ...interface{})
	Warn(format string, v ...interface{})
	Info(format string, v ...interface{})
	Debug(format string, v ...interface{})
}

// Notifier receives events after the write that produced them has committed.
type Notifier interface {
	Notify(ctx context.Context, events []models.Event)
}

type Config struct {
	MaxAttempts   int           `env:"MAX_ATTEMPTS" envDefault:"5"`
	RetryDelay    time.Duration `env:"RETRY_DELAY" envDefault:"25ms"`
	DefaultRounds int           `env:"DEFAULT_ROUNDS" envDefault:"3"`
	HistoryLimit  int           `env:"HISTORY_LIMIT" envDefault:"10"`
	SweepBatch    int           `env:"SWEEP_BATCH" envDefault:"100"`
}

// Result is what a mutation produced: the saved match, the round it touched
// (if any), the committed events and the settlement when one was applied.
type Result struct {
	Match      *models.Match
	Round      *models.Round
	Events     []models.Event
	Settlement *models.Settlement
}

type ChifumiService interface {
	CreateChallenge(ctx context.Context, challengerID, opponentID string, betAmount int64, totalRounds int) (*models.Match, error)
	Accept(ctx context.Context, matchID, actorID string) (*models.Match, error)
	Decline(ctx context.Context, matchID, actorID string) (*models.Match, error)
	SubmitChoice(ctx context.Context, matchID, actorID string, choice models.Choice) (*Result, error)
	SubmitChoiceInRound(ctx context.Context, matchID, actorID string, choice models.Choice, roundNumber int) (*Result, error)
	GetMatch(ctx context.Context, matchID string) (*models.Match, error)
	GetSettlement(ctx context.Context, matchID string) (*models.Settlement, error)
	ListPending(ctx context.Context, playerID string) ([]models.Match, error)
	History(ctx context.Context, playerID string, limit int) ([]models.Match, error)
	RetrySettlement(ctx context.Context, matchID string) (*models.Settlement, error)
	ExpireStale(ctx context.Context) (int, error)
	SettleOutstanding(ctx context.Context) (int, error)
}

type ExportService interface {
	ExportHistory(ctx context.Context, playerID string) ([]byte, error)
}

type Service struct {
	Chifumi ChifumiService
	Export  ExportService
}

func NewService(repos *repository.Repository, notifier Notifier, cfg Config, logger Logger) *Service {
	chifumi := NewChifumiServiceImpl(repos.Matches, repos.Ledger, notifier, cfg, logger)
	return &Service{
		Chifumi: chifumi,
		Export:  NewExportServiceImpl(repos.Matches, logger),
	}
}
