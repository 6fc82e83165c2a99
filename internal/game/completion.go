package game

import (
	"time"

	"hqbot/internal/models"
)

// detectCompletion runs after a decisive round. A side reaching RequiredWins
// finishes the match and produces the payout order; otherwise the next round
// is opened so play can continue.
func detectCompletion(t *Transition, now time.Time) {
	m := t.Match
	cw, ow := m.Score()

	var winner string
	switch {
	case cw >= m.RequiredWins:
		winner = m.ChallengerID
	case ow >= m.RequiredWins:
		winner = m.OpponentID
	}

	if winner == "" {
		next := openNextRound(t, now)
		e := newEvent(m, models.EventRoundOpened, now)
		e.RoundNumber = next.Number
		t.emit(e)
		return
	}

	finishedAt := now
	m.Status = models.StatusFinished
	m.WinnerID = winner
	m.FinishedAt = &finishedAt

	t.Payout = &models.Payout{
		MatchID:   m.ID,
		WinnerID:  m.WinnerID,
		LoserID:   m.LoserID(),
		BetAmount: m.BetAmount,
	}

	e := newEvent(m, models.EventMatchFinished, now)
	e.WinnerID = m.WinnerID
	e.LoserID = m.LoserID()
	e.Amount = m.BetAmount
	t.emit(e)
}

// PayoutFor rebuilds the payout order of a finished match from its record,
// which is what makes a settlement retry safe.
func PayoutFor(m *models.Match) (*models.Payout, error) {
	if m.Status != models.StatusFinished || m.WinnerID == "" {
		return nil, ErrNotFinished
	}
	return &models.Payout{
		MatchID:   m.ID,
		WinnerID:  m.WinnerID,
		LoserID:   m.LoserID(),
		BetAmount: m.BetAmount,
	}, nil
}
