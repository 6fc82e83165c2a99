package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hqbot/internal/models"
)

const (
	alice = "100000000000000001"
	bob   = "100000000000000002"
	carol = "100000000000000003"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func activeMatch(t *testing.T, rounds int) *models.Match {
	t.Helper()
	tr, err := NewChallenge("ABC123", alice, bob, 100, rounds, t0)
	require.NoError(t, err)
	_, err = Accept(tr.Match, bob, t0.Add(time.Minute))
	require.NoError(t, err)
	return tr.Match
}

func play(t *testing.T, m *models.Match, c, o models.Choice) *Transition {
	t.Helper()
	_, err := Submit(m, alice, c, 0, t0)
	require.NoError(t, err)
	tr, err := Submit(m, bob, o, 0, t0)
	require.NoError(t, err)
	return tr
}

func eventTypes(tr *Transition) []models.EventType {
	out := make([]models.EventType, 0, len(tr.Events))
	for _, e := range tr.Events {
		out = append(out, e.Type)
	}
	return out
}

func TestResolve(t *testing.T) {
	tests := []struct {
		c, o models.Choice
		want Outcome
	}{
		{models.ChoiceRock, models.ChoiceScissors, OutcomeChallenger},
		{models.ChoiceScissors, models.ChoicePaper, OutcomeChallenger},
		{models.ChoicePaper, models.ChoiceRock, OutcomeChallenger},
		{models.ChoiceScissors, models.ChoiceRock, OutcomeOpponent},
		{models.ChoicePaper, models.ChoiceScissors, OutcomeOpponent},
		{models.ChoiceRock, models.ChoicePaper, OutcomeOpponent},
		{models.ChoiceRock, models.ChoiceRock, OutcomeTie},
		{models.ChoicePaper, models.ChoicePaper, OutcomeTie},
		{models.ChoiceScissors, models.ChoiceScissors, OutcomeTie},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Resolve(tt.c, tt.o), "%s vs %s", tt.c, tt.o)
	}
}

func TestRequiredWins(t *testing.T) {
	assert.Equal(t, 2, RequiredWins(3))
	assert.Equal(t, 3, RequiredWins(5))
	assert.Equal(t, 4, RequiredWins(7))
	assert.Equal(t, 6, RequiredWins(11))
}

func TestParseChoice(t *testing.T) {
	c, err := ParseChoice("rock")
	require.NoError(t, err)
	assert.Equal(t, models.ChoiceRock, c)

	c, err = ParseChoice(" SCISSORS ")
	require.NoError(t, err)
	assert.Equal(t, models.ChoiceScissors, c)

	_, err = ParseChoice("lizard")
	assert.ErrorIs(t, err, ErrInvalidChoice)
}

func TestNewChallengeValidation(t *testing.T) {
	tests := []struct {
		name     string
		opponent string
		bet      int64
		rounds   int
		want     error
	}{
		{"self challenge", alice, 100, 3, ErrSelfChallenge},
		{"missing opponent", "", 100, 3, ErrMissingParticipant},
		{"zero bet", bob, 0, 3, ErrInvalidBet},
		{"negative bet", bob, -5, 3, ErrInvalidBet},
		{"even rounds", bob, 100, 4, ErrInvalidRoundCount},
		{"too few rounds", bob, 100, 1, ErrInvalidRoundCount},
		{"too many rounds", bob, 100, 13, ErrInvalidRoundCount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr, err := NewChallenge("ABC123", alice, tt.opponent, tt.bet, tt.rounds, t0)
			assert.Nil(t, tr)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, KindValidation, KindOf(err))
		})
	}
}

func TestNewChallenge(t *testing.T) {
	tr, err := NewChallenge("ABC123", alice, bob, 100, 5, t0)
	require.NoError(t, err)

	m := tr.Match
	assert.Equal(t, models.StatusPending, m.Status)
	assert.Equal(t, 3, m.RequiredWins)
	assert.Equal(t, 1, m.Version)
	assert.Equal(t, t0.Add(24*time.Hour), m.ExpiresAt)
	require.Len(t, m.Rounds, 1)
	assert.Equal(t, 1, m.Rounds[0].Number)
	assert.False(t, m.Rounds[0].Resolved())
	assert.Equal(t, []models.EventType{models.EventMatchCreated}, eventTypes(tr))
}

func TestAcceptAndDecline(t *testing.T) {
	t.Run("only the opponent may answer", func(t *testing.T) {
		tr, _ := NewChallenge("ABC123", alice, bob, 100, 3, t0)
		_, err := Accept(tr.Match, alice, t0)
		assert.ErrorIs(t, err, ErrNotOpponent)
		_, err = Decline(tr.Match, carol, t0)
		assert.ErrorIs(t, err, ErrNotOpponent)
		assert.Equal(t, models.StatusPending, tr.Match.Status)
	})

	t.Run("accept activates without touching rounds", func(t *testing.T) {
		tr, _ := NewChallenge("ABC123", alice, bob, 100, 3, t0)
		acc, err := Accept(tr.Match, bob, t0.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, models.StatusActive, acc.Match.Status)
		assert.Nil(t, acc.Payout)
		assert.Len(t, acc.Match.Rounds, 1)
	})

	t.Run("declined match is absorbing", func(t *testing.T) {
		tr, _ := NewChallenge("ABC123", alice, bob, 100, 3, t0)
		dec, err := Decline(tr.Match, bob, t0.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, models.StatusCancelled, dec.Match.Status)

		_, err = Accept(tr.Match, bob, t0.Add(2*time.Hour))
		assert.ErrorIs(t, err, ErrNotPending)
		assert.Equal(t, KindStateConflict, KindOf(err))
		_, err = Submit(tr.Match, alice, models.ChoiceRock, 0, t0)
		assert.ErrorIs(t, err, ErrNotActive)
	})

	t.Run("accept after expiry cancels", func(t *testing.T) {
		tr, _ := NewChallenge("ABC123", alice, bob, 100, 3, t0)
		late := t0.Add(AcceptWindow + time.Second)
		assert.Equal(t, models.StatusCancelled, tr.Match.EffectiveStatus(late))

		exp, err := Accept(tr.Match, bob, late)
		assert.ErrorIs(t, err, ErrExpired)
		require.NotNil(t, exp)
		assert.Equal(t, models.StatusCancelled, tr.Match.Status)
		assert.Equal(t, []models.EventType{models.EventMatchExpired}, eventTypes(exp))

		_, err = Accept(tr.Match, bob, late)
		assert.ErrorIs(t, err, ErrNotPending)
	})

	t.Run("accept exactly at expiry succeeds", func(t *testing.T) {
		tr, _ := NewChallenge("ABC123", alice, bob, 100, 3, t0)
		_, err := Accept(tr.Match, bob, tr.Match.ExpiresAt)
		assert.NoError(t, err)
	})
}

func TestExpire(t *testing.T) {
	tr, _ := NewChallenge("ABC123", alice, bob, 100, 3, t0)

	_, err := Expire(tr.Match, t0.Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotExpired)

	exp, err := Expire(tr.Match, t0.Add(25*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, exp.Match.Status)

	_, err = Expire(tr.Match, t0.Add(26*time.Hour))
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestSubmitPreconditions(t *testing.T) {
	m := activeMatch(t, 3)

	_, err := Submit(m, carol, models.ChoiceRock, 0, t0)
	assert.ErrorIs(t, err, ErrNotParticipant)
	assert.Equal(t, KindAuthorization, KindOf(err))

	_, err = Submit(m, alice, models.Choice("LIZARD"), 0, t0)
	assert.ErrorIs(t, err, ErrInvalidChoice)

	_, err = Submit(m, alice, models.ChoiceRock, 2, t0)
	assert.ErrorIs(t, err, ErrRoundNotOpen)

	tr, err := Submit(m, alice, models.ChoiceRock, 1, t0)
	require.NoError(t, err)
	assert.Equal(t, []models.EventType{models.EventChoiceRecorded}, eventTypes(tr))
	assert.False(t, tr.Round.Resolved())
}

func TestNoDoubleChoice(t *testing.T) {
	m := activeMatch(t, 3)

	_, err := Submit(m, alice, models.ChoiceRock, 0, t0)
	require.NoError(t, err)

	_, err = Submit(m, alice, models.ChoicePaper, 0, t0)
	assert.ErrorIs(t, err, ErrAlreadyChosen)
	assert.Equal(t, models.ChoiceRock, m.Rounds[0].ChallengerChoice)
	assert.Equal(t, models.ChoiceNone, m.Rounds[0].OpponentChoice)
}

func TestTieExtendsMatch(t *testing.T) {
	m := activeMatch(t, 3)

	tr := play(t, m, models.ChoicePaper, models.ChoicePaper)
	assert.Equal(t, []models.EventType{
		models.EventChoiceRecorded,
		models.EventRoundResolved,
		models.EventTieBreakAdded,
	}, eventTypes(tr))

	assert.True(t, tr.Round.Tie)
	assert.Equal(t, 1, tr.Round.Number)
	assert.Equal(t, 4, m.TotalRounds)
	assert.Equal(t, 2, m.RequiredWins)
	require.Len(t, m.Rounds, 2)
	assert.Equal(t, 2, m.OpenRound().Number)

	cw, ow := m.Score()
	assert.Zero(t, cw)
	assert.Zero(t, ow)
}

func TestScenarioChallengerWinsThroughTie(t *testing.T) {
	m := activeMatch(t, 3)

	tr := play(t, m, models.ChoiceRock, models.ChoiceScissors)
	assert.Equal(t, alice, tr.Round.WinnerID)
	assert.Nil(t, tr.Payout)
	assert.Contains(t, eventTypes(tr), models.EventRoundOpened)

	tr = play(t, m, models.ChoicePaper, models.ChoicePaper)
	assert.True(t, tr.Round.Tie)
	assert.Equal(t, 3, m.OpenRound().Number)

	tr = play(t, m, models.ChoiceScissors, models.ChoiceRock)
	assert.Equal(t, bob, tr.Round.WinnerID)
	assert.Equal(t, models.StatusActive, m.Status)

	tr = play(t, m, models.ChoiceScissors, models.ChoicePaper)
	assert.Equal(t, models.StatusFinished, m.Status)
	assert.Equal(t, alice, m.WinnerID)
	assert.Nil(t, m.OpenRound())
	require.NotNil(t, tr.Payout)
	assert.Equal(t, models.Payout{MatchID: "ABC123", WinnerID: alice, LoserID: bob, BetAmount: 100}, *tr.Payout)
	assert.Equal(t, models.EventMatchFinished, tr.Events[len(tr.Events)-1].Type)

	_, err := Submit(m, alice, models.ChoiceRock, 0, t0)
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestFinishesAtThreshold(t *testing.T) {
	m := activeMatch(t, 5)

	play(t, m, models.ChoiceRock, models.ChoiceScissors)
	play(t, m, models.ChoiceRock, models.ChoiceScissors)
	assert.Equal(t, models.StatusActive, m.Status)

	tr := play(t, m, models.ChoiceRock, models.ChoiceScissors)
	assert.Equal(t, models.StatusFinished, m.Status)
	assert.Len(t, m.Rounds, 3)
	assert.NotNil(t, tr.Payout)
}

func TestAtMostOneOpenRound(t *testing.T) {
	m := activeMatch(t, 3)
	moves := [][2]models.Choice{
		{models.ChoiceRock, models.ChoiceRock},
		{models.ChoiceRock, models.ChoicePaper},
		{models.ChoiceScissors, models.ChoiceScissors},
		{models.ChoicePaper, models.ChoiceRock},
	}
	for _, mv := range moves {
		play(t, m, mv[0], mv[1])
		open := 0
		for _, r := range m.Rounds {
			if !r.Resolved() {
				open++
			}
		}
		assert.Equal(t, 1, open)
	}
	assert.Equal(t, 5, m.TotalRounds)
}

func TestPayoutFor(t *testing.T) {
	m := activeMatch(t, 3)
	_, err := PayoutFor(m)
	assert.ErrorIs(t, err, ErrNotFinished)

	play(t, m, models.ChoicePaper, models.ChoiceRock)
	play(t, m, models.ChoicePaper, models.ChoiceRock)

	p, err := PayoutFor(m)
	require.NoError(t, err)
	assert.Equal(t, alice, p.WinnerID)
	assert.Equal(t, bob, p.LoserID)
}

func TestSettlementFor(t *testing.T) {
	p := models.Payout{MatchID: "ABC123", WinnerID: alice, LoserID: bob, BetAmount: 100}

	full := SettlementFor(p, 500, 300, t0)
	assert.Equal(t, int64(200), full.Pot)
	assert.Zero(t, full.Shortfall)
	assert.Equal(t, int64(100), full.NetGain())

	short := SettlementFor(p, 500, 40, t0)
	assert.Equal(t, int64(40), short.LoserStake)
	assert.Equal(t, int64(140), short.Pot)
	assert.Equal(t, int64(60), short.Shortfall)
	assert.Equal(t, int64(40), short.NetGain())

	broke := SettlementFor(p, 500, -10, t0)
	assert.Zero(t, broke.LoserStake)
	assert.Zero(t, broke.NetGain())
}

func TestErrorMatching(t *testing.T) {
	wrapped := Wrap(ErrInsufficientFunds, assert.AnError)
	assert.ErrorIs(t, wrapped, ErrInsufficientFunds)
	assert.ErrorIs(t, wrapped, assert.AnError)
	assert.NotErrorIs(t, wrapped, ErrExpired)
	assert.Equal(t, KindFunds, KindOf(wrapped))
	assert.Equal(t, "insufficient_funds", CodeOf(wrapped))
	assert.Equal(t, KindUnknown, KindOf(assert.AnError))

	tagged := ErrInsufficientFunds.WithMeta("account_id", bob)
	assert.ErrorIs(t, tagged, ErrInsufficientFunds)
	assert.Equal(t, bob, MetaOf(tagged, "account_id"))
	assert.Empty(t, ErrInsufficientFunds.Metadata)
}
