package game

import (
	"strings"
	"time"

	"hqbot/internal/models"
)

const (
	MinRounds     = 3
	MaxRounds     = 11
	DefaultRounds = 3
	AcceptWindow  = 24 * time.Hour
)

// Outcome of a single round, seen from the challenger's side.
type Outcome int

const (
	OutcomeTie Outcome = iota
	OutcomeChallenger
	OutcomeOpponent
)

var beats = map[models.Choice]models.Choice{
	models.ChoiceRock:     models.ChoiceScissors,
	models.ChoiceScissors: models.ChoicePaper,
	models.ChoicePaper:    models.ChoiceRock,
}

// Beats reports whether a defeats b.
func Beats(a, b models.Choice) bool {
	return beats[a] == b && a.Valid() && b.Valid()
}

func Resolve(challenger, opponent models.Choice) Outcome {
	switch {
	case Beats(challenger, opponent):
		return OutcomeChallenger
	case Beats(opponent, challenger):
		return OutcomeOpponent
	default:
		return OutcomeTie
	}
}

// RequiredWins is ceil(total/2) of the round count chosen at creation.
func RequiredWins(totalRounds int) int {
	return (totalRounds + 1) / 2
}

func ValidRoundCount(totalRounds int) bool {
	return totalRounds >= MinRounds && totalRounds <= MaxRounds && totalRounds%2 == 1
}

// ParseChoice accepts both the stored form (ROCK) and button suffixes (rock).
func ParseChoice(s string) (models.Choice, error) {
	c := models.Choice(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return models.ChoiceNone, ErrInvalidChoice
	}
	return c, nil
}

// SettlementFor collects each stake into the pot, never taking a balance
// below zero, and pays the pot to the winner. The pair's total is unchanged.
func SettlementFor(p models.Payout, winnerBalance, loserBalance int64, now time.Time) models.Settlement {
	winnerStake := min(p.BetAmount, max(winnerBalance, 0))
	loserStake := min(p.BetAmount, max(loserBalance, 0))
	pot := winnerStake + loserStake
	return models.Settlement{
		MatchID:     p.MatchID,
		WinnerID:    p.WinnerID,
		LoserID:     p.LoserID,
		BetAmount:   p.BetAmount,
		WinnerStake: winnerStake,
		LoserStake:  loserStake,
		Pot:         pot,
		Shortfall:   2*p.BetAmount - pot,
		SettledAt:   now,
	}
}
