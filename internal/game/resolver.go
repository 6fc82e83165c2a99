package game

import (
	"time"

	"hqbot/internal/models"
)

// Submit records actorID's choice in the open round. roundNumber 0 targets
// whichever round is open; any other value must name it exactly, so a stale
// button press cannot land in a later round.
//
// When the write fills the second slot the round is resolved here, once, and
// handed to the tie-break extender or the completion detector.
func Submit(m *models.Match, actorID string, choice models.Choice, roundNumber int, now time.Time) (*Transition, error) {
	if !choice.Valid() {
		return nil, ErrInvalidChoice
	}
	if m.Status != models.StatusActive {
		return nil, ErrNotActive
	}
	if !m.IsParticipant(actorID) {
		return nil, ErrNotParticipant
	}

	round := m.OpenRound()
	if round == nil {
		return nil, ErrNoOpenRound
	}
	if roundNumber != 0 && roundNumber != round.Number {
		return nil, ErrRoundNotOpen
	}

	slot := &round.ChallengerChoice
	if actorID == m.OpponentID {
		slot = &round.OpponentChoice
	}
	if *slot != models.ChoiceNone {
		return nil, ErrAlreadyChosen
	}
	*slot = choice
	m.UpdatedAt = now

	t := &Transition{Match: m}
	e := newEvent(m, models.EventChoiceRecorded, now)
	e.RoundNumber = round.Number
	e.ActorID = actorID
	t.emit(e)

	if round.ChallengerChoice == models.ChoiceNone || round.OpponentChoice == models.ChoiceNone {
		t.Round = round
		return t, nil
	}

	number := round.Number
	resolveRound(t, round, now)
	if round.Tie {
		extendTieBreak(t, now)
	} else {
		detectCompletion(t, now)
	}

	// appending a round may have moved the backing array
	t.Round = roundByNumber(m, number)
	return t, nil
}

func resolveRound(t *Transition, round *models.Round, now time.Time) {
	m := t.Match
	switch Resolve(round.ChallengerChoice, round.OpponentChoice) {
	case OutcomeChallenger:
		round.WinnerID = m.ChallengerID
	case OutcomeOpponent:
		round.WinnerID = m.OpponentID
	default:
		round.Tie = true
	}
	resolvedAt := now
	round.ResolvedAt = &resolvedAt

	e := newEvent(m, models.EventRoundResolved, now)
	e.RoundNumber = round.Number
	e.WinnerID = round.WinnerID
	e.ChallengerChoice = round.ChallengerChoice
	e.OpponentChoice = round.OpponentChoice
	t.emit(e)
}

func roundByNumber(m *models.Match, number int) *models.Round {
	for i := range m.Rounds {
		if m.Rounds[i].Number == number {
			return &m.Rounds[i]
		}
	}
	return nil
}

// openNextRound appends an empty round numbered after the highest existing one.
func openNextRound(t *Transition, now time.Time) *models.Round {
	m := t.Match
	m.Rounds = append(m.Rounds, models.Round{
		MatchID:   m.ID,
		Number:    m.LastRoundNumber() + 1,
		CreatedAt: now,
	})
	return &m.Rounds[len(m.Rounds)-1]
}
