package game

import (
	"time"

	"hqbot/internal/models"
)

// Transition is the outcome of one pure state change. The caller persists the
// mutated match together with Events and, when set, executes Payout in the
// same atomic unit.
type Transition struct {
	Match  *models.Match
	Round  *models.Round
	Events []models.Event
	Payout *models.Payout
}

func (t *Transition) emit(e models.Event) {
	t.Events = append(t.Events, e)
}

// NewChallenge validates the request and builds a PENDING match with an empty
// first round. Balances are checked by the caller.
func NewChallenge(id, challengerID, opponentID string, betAmount int64, totalRounds int, now time.Time) (*Transition, error) {
	if challengerID == "" || opponentID == "" {
		return nil, ErrMissingParticipant
	}
	if challengerID == opponentID {
		return nil, ErrSelfChallenge
	}
	if betAmount <= 0 {
		return nil, ErrInvalidBet
	}
	if !ValidRoundCount(totalRounds) {
		return nil, ErrInvalidRoundCount
	}

	m := &models.Match{
		ID:           id,
		ChallengerID: challengerID,
		OpponentID:   opponentID,
		BetAmount:    betAmount,
		TotalRounds:  totalRounds,
		RequiredWins: RequiredWins(totalRounds),
		Status:       models.StatusPending,
		Version:      1,
		CreatedAt:    now,
		ExpiresAt:    now.Add(AcceptWindow),
		UpdatedAt:    now,
		Rounds:       []models.Round{{MatchID: id, Number: 1, CreatedAt: now}},
	}

	t := &Transition{Match: m, Round: &m.Rounds[0]}
	e := newEvent(m, models.EventMatchCreated, now)
	e.ActorID = challengerID
	e.Amount = betAmount
	t.emit(e)
	return t, nil
}

// Accept moves a PENDING match to ACTIVE. An expired challenge is cancelled
// instead and ErrExpired is returned alongside the transition so the caller
// can persist the cancellation.
func Accept(m *models.Match, actorID string, now time.Time) (*Transition, error) {
	if err := checkAnswer(m, actorID); err != nil {
		return nil, err
	}
	if now.After(m.ExpiresAt) {
		return expire(m, now), ErrExpired
	}

	m.Status = models.StatusActive
	m.UpdatedAt = now

	t := &Transition{Match: m}
	e := newEvent(m, models.EventMatchAccepted, now)
	e.ActorID = actorID
	t.emit(e)
	return t, nil
}

// Decline cancels a PENDING match. Declining after the window closes reports
// the expiry, since the challenge was already logically cancelled.
func Decline(m *models.Match, actorID string, now time.Time) (*Transition, error) {
	if err := checkAnswer(m, actorID); err != nil {
		return nil, err
	}
	if now.After(m.ExpiresAt) {
		return expire(m, now), ErrExpired
	}

	m.Status = models.StatusCancelled
	m.UpdatedAt = now

	t := &Transition{Match: m}
	e := newEvent(m, models.EventMatchDeclined, now)
	e.ActorID = actorID
	t.emit(e)
	return t, nil
}

// Expire cancels a PENDING match whose acceptance window has passed. It is
// used by the background sweep; the lazy path goes through Accept/Decline.
func Expire(m *models.Match, now time.Time) (*Transition, error) {
	if m.Status != models.StatusPending {
		return nil, ErrNotPending
	}
	if !now.After(m.ExpiresAt) {
		return nil, ErrNotExpired
	}
	return expire(m, now), nil
}

func expire(m *models.Match, now time.Time) *Transition {
	m.Status = models.StatusCancelled
	m.UpdatedAt = now

	t := &Transition{Match: m}
	t.emit(newEvent(m, models.EventMatchExpired, now))
	return t
}

func checkAnswer(m *models.Match, actorID string) error {
	if actorID != m.OpponentID {
		return ErrNotOpponent
	}
	if m.Status != models.StatusPending {
		return ErrNotPending
	}
	return nil
}

func newEvent(m *models.Match, typ models.EventType, now time.Time) models.Event {
	cw, ow := m.Score()
	return models.Event{
		MatchID:        m.ID,
		Type:           typ,
		ChallengerID:   m.ChallengerID,
		OpponentID:     m.OpponentID,
		ChallengerWins: cw,
		OpponentWins:   ow,
		RequiredWins:   m.RequiredWins,
		OccurredAt:     now,
	}
}
