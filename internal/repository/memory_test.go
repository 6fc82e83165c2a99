package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hqbot/internal/game"
	"hqbot/internal/models"
)

const (
	alice = "100000000000000001"
	bob   = "100000000000000002"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newChallenge(t *testing.T, id string, bet int64) *game.Transition {
	t.Helper()
	tr, err := game.NewChallenge(id, alice, bob, bet, 3, t0)
	require.NoError(t, err)
	return tr
}

// finishMatch plays a created match to a challenger win and returns the last
// transition, whose payout has not been saved yet.
func finishMatch(t *testing.T, ctx context.Context, store Matches, id string) (*models.Match, int, *game.Transition) {
	t.Helper()
	m, err := store.Get(ctx, id)
	require.NoError(t, err)

	steps := []func(*models.Match) (*game.Transition, error){
		func(m *models.Match) (*game.Transition, error) { return game.Accept(m, bob, t0) },
		func(m *models.Match) (*game.Transition, error) {
			return game.Submit(m, alice, models.ChoiceRock, 0, t0)
		},
		func(m *models.Match) (*game.Transition, error) {
			return game.Submit(m, bob, models.ChoiceScissors, 0, t0)
		},
		func(m *models.Match) (*game.Transition, error) {
			return game.Submit(m, alice, models.ChoiceRock, 0, t0)
		},
	}
	for _, step := range steps {
		version := m.Version
		tr, err := step(m)
		require.NoError(t, err)
		_, err = store.Save(ctx, m, version, tr.Events, tr.Payout)
		require.NoError(t, err)
	}

	version := m.Version
	tr, err := game.Submit(m, bob, models.ChoiceScissors, 0, t0)
	require.NoError(t, err)
	require.NotNil(t, tr.Payout)
	return m, version, tr
}

func TestMemoryCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tr := newChallenge(t, "ABC123", 100)

	commit, err := store.Create(ctx, tr.Match, tr.Events)
	require.NoError(t, err)
	require.Len(t, commit.Events, 1)
	assert.NotEmpty(t, commit.Events[0].ID)

	_, err = store.Create(ctx, tr.Match, tr.Events)
	assert.ErrorIs(t, err, ErrDuplicateID)

	m, err := store.Get(ctx, "ABC123")
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, m.Status)
	require.Len(t, m.Rounds, 1)

	m.Rounds[0].ChallengerChoice = models.ChoiceRock
	again, _ := store.Get(ctx, "ABC123")
	assert.Equal(t, models.ChoiceNone, again.Rounds[0].ChallengerChoice)

	_, err = store.Get(ctx, "NOPE00")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemorySaveVersionConflict(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tr := newChallenge(t, "ABC123", 100)
	_, err := store.Create(ctx, tr.Match, tr.Events)
	require.NoError(t, err)

	first, _ := store.Get(ctx, "ABC123")
	second, _ := store.Get(ctx, "ABC123")

	acc, err := game.Accept(first, bob, t0)
	require.NoError(t, err)
	_, err = store.Save(ctx, first, 1, acc.Events, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Version)

	dec, err := game.Decline(second, bob, t0)
	require.NoError(t, err)
	_, err = store.Save(ctx, second, 1, dec.Events, nil)
	assert.ErrorIs(t, err, ErrVersionConflict)

	stored, _ := store.Get(ctx, "ABC123")
	assert.Equal(t, models.StatusActive, stored.Status)
}

func TestMemorySettlementRunsOnce(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.Deposit(alice, 500)
	store.Deposit(bob, 300)

	tr := newChallenge(t, "ABC123", 100)
	_, err := store.Create(ctx, tr.Match, tr.Events)
	require.NoError(t, err)

	m, version, final := finishMatch(t, ctx, store, "ABC123")
	commit, err := store.Save(ctx, m, version, final.Events, final.Payout)
	require.NoError(t, err)
	require.True(t, commit.Applied)
	assert.Equal(t, models.EventMatchSettled, commit.Events[len(commit.Events)-1].Type)

	again, err := store.Settle(ctx, *final.Payout)
	require.NoError(t, err)
	assert.False(t, again.Applied)
	assert.Equal(t, commit.Settlement.SettledAt, again.Settlement.SettledAt)

	a, _ := store.GetBalance(ctx, alice)
	b, _ := store.GetBalance(ctx, bob)
	assert.Equal(t, int64(600), a)
	assert.Equal(t, int64(200), b)

	unsettled, err := store.ListUnsettled(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, unsettled)
}

func TestMemoryLedger(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.GetBalance(ctx, alice)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	store.Deposit(alice, 50)
	_, err = store.Debit(ctx, alice, 60)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = store.Credit(ctx, alice, -1)
	assert.ErrorIs(t, err, ErrNegativeAmount)

	balance, err := store.Credit(ctx, alice, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(75), balance)

	auto := NewMemoryStore(WithStartingBalance(1000))
	balance, err = auto.GetBalance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), balance)
}

func TestMemoryListings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	for i, id := range []string{"AAAAAA", "BBBBBB", "CCCCCC"} {
		tr, err := game.NewChallenge(id, alice, bob, 10, 3, t0.Add(time.Duration(i)*time.Hour))
		require.NoError(t, err)
		_, err = store.Create(ctx, tr.Match, tr.Events)
		require.NoError(t, err)
	}

	now := t0.Add(24*time.Hour + 30*time.Minute)
	pending, err := store.ListPending(ctx, bob, now)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "CCCCCC", pending[0].ID)

	expired, err := store.ListExpiredPending(ctx, now, 10)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "AAAAAA", expired[0].ID)

	history, err := store.ListByPlayer(ctx, alice, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "CCCCCC", history[0].ID)
	assert.Equal(t, "BBBBBB", history[1].ID)

	events, err := store.ListEvents(ctx, "AAAAAA")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, models.EventMatchCreated, events[0].Type)
}

func TestMatchCacheKeepsOnlyTerminal(t *testing.T) {
	cache := NewMatchCache(0)
	tr := newChallenge(t, "ABC123", 100)

	cache.Set(tr.Match)
	assert.Zero(t, cache.Size())

	_, err := game.Decline(tr.Match, bob, t0)
	require.NoError(t, err)
	cache.Set(tr.Match)
	assert.Equal(t, 1, cache.Size())

	cached, ok := cache.Get("ABC123")
	require.True(t, ok)
	cached.Rounds[0].ChallengerChoice = models.ChoicePaper
	again, _ := cache.Get("ABC123")
	assert.Equal(t, models.ChoiceNone, again.Rounds[0].ChallengerChoice)

	cache.Clear()
	assert.Zero(t, cache.Size())
}

func TestMatchCacheEvictsLeastRecentlyRead(t *testing.T) {
	cache := NewMatchCache(2)
	for _, id := range []string{"AAAAAA", "BBBBBB", "CCCCCC"} {
		tr := newChallenge(t, id, 10)
		_, err := game.Decline(tr.Match, bob, t0)
		require.NoError(t, err)
		cache.Set(tr.Match)

		if id == "BBBBBB" {
			_, ok := cache.Get("AAAAAA")
			require.True(t, ok)
		}
	}

	assert.Equal(t, 2, cache.Size())
	_, ok := cache.Get("AAAAAA")
	assert.True(t, ok)
	_, ok = cache.Get("BBBBBB")
	assert.False(t, ok)
	_, ok = cache.Get("CCCCCC")
	assert.True(t, ok)
}

func TestGenerateCode(t *testing.T) {
	seen := make(map[string]bool)
	for range 200 {
		code, err := GenerateCode(MatchCodeLength)
		require.NoError(t, err)
		assert.Regexp(t, `^[A-Z0-9]{6}$`, code)
		seen[code] = true
	}
	assert.Greater(t, len(seen), 190)
}
