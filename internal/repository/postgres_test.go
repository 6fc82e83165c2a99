package repository

import (
	"context"
	"database/sql"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/sync/errgroup"

	"hqbot/internal/game"
	"hqbot/internal/models"
)

var (
	pgOnce sync.Once
	pgDB   *sql.DB
	pgErr  error
)

func isDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	provider, err := testcontainers.NewDockerProvider()
	if err != nil {
		return false
	}
	defer provider.Close()

	_, err = provider.DaemonHost(ctx)
	return err == nil
}

// postgresDB starts one container for the package and applies migrations.
// Tests are skipped when Docker is not reachable.
func postgresDB(t *testing.T) *sql.DB {
	t.Helper()
	if os.Getenv("SKIP_INTEGRATION") != "" || testing.Short() {
		t.Skip("integration tests disabled")
	}
	if !isDockerAvailable() {
		t.Skip("docker is not available")
	}

	pgOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		container, err := postgres.Run(
			ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("chifumi"),
			postgres.WithUsername("user"),
			postgres.WithPassword("password"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		if err != nil {
			pgErr = err
			return
		}

		dsn, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			pgErr = err
			return
		}
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			pgErr = err
			return
		}
		if err := RunMigrations(db); err != nil {
			pgErr = err
			return
		}
		pgDB = db
	})
	if pgErr != nil {
		t.Skipf("postgres container unavailable: %v", pgErr)
	}
	return pgDB
}

func seedAccounts(t *testing.T, db *sql.DB, balances map[string]int64) {
	t.Helper()
	for id, balance := range balances {
		_, err := db.Exec(`
			INSERT INTO users (discord_id, username, token) VALUES ($1, $1, $2)
			ON CONFLICT (discord_id) DO UPDATE SET token = EXCLUDED.token`, id, balance)
		require.NoError(t, err)
	}
}

func uniqueCode(t *testing.T) string {
	t.Helper()
	code, err := GenerateCode(MatchCodeLength)
	require.NoError(t, err)
	return code
}

func TestPostgresMatchRoundTrip(t *testing.T) {
	db := postgresDB(t)
	ctx := context.Background()
	seedAccounts(t, db, map[string]int64{alice: 500, bob: 300})
	store := NewMatchPostgres(db)

	id := uniqueCode(t)
	tr := newChallenge(t, id, 100)
	_, err := store.Create(ctx, tr.Match, tr.Events)
	require.NoError(t, err)

	_, err = store.Create(ctx, tr.Match, tr.Events)
	assert.ErrorIs(t, err, ErrDuplicateID)

	m, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, m.ID)
	assert.Equal(t, models.StatusPending, m.Status)
	require.Len(t, m.Rounds, 1)
	assert.Equal(t, 1, m.Version)

	stale, _ := store.Get(ctx, id)
	acc, err := game.Accept(m, bob, t0)
	require.NoError(t, err)
	_, err = store.Save(ctx, m, 1, acc.Events, nil)
	require.NoError(t, err)

	dec, err := game.Decline(stale, bob, t0)
	require.NoError(t, err)
	_, err = store.Save(ctx, stale, 1, dec.Events, nil)
	assert.ErrorIs(t, err, ErrVersionConflict)

	reloaded, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, reloaded.Status)
	assert.Equal(t, 2, reloaded.Version)
}

func TestPostgresChoiceIsWriteOnce(t *testing.T) {
	db := postgresDB(t)
	ctx := context.Background()
	seedAccounts(t, db, map[string]int64{alice: 500, bob: 300})
	store := NewMatchPostgres(db)

	id := uniqueCode(t)
	tr := newChallenge(t, id, 100)
	tr.Match.Status = models.StatusActive
	tr.Match.Rounds[0].ChallengerChoice = models.ChoiceRock
	_, err := store.Create(ctx, tr.Match, tr.Events)
	require.NoError(t, err)

	m, err := store.Get(ctx, id)
	require.NoError(t, err)
	m.Rounds[0].ChallengerChoice = models.ChoicePaper
	_, err = store.Save(ctx, m, m.Version, nil, nil)
	require.NoError(t, err)

	reloaded, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.ChoiceRock, reloaded.Rounds[0].ChallengerChoice)
}

func TestPostgresSettlementIsAtomicAndOnce(t *testing.T) {
	db := postgresDB(t)
	ctx := context.Background()
	seedAccounts(t, db, map[string]int64{alice: 500, bob: 300})
	store := NewMatchPostgres(db)
	ledger := NewLedgerPostgres(db)

	id := uniqueCode(t)
	tr := newChallenge(t, id, 100)
	_, err := store.Create(ctx, tr.Match, tr.Events)
	require.NoError(t, err)

	m, version, final := finishMatch(t, ctx, store, id)
	commit, err := store.Save(ctx, m, version, final.Events, final.Payout)
	require.NoError(t, err)
	require.True(t, commit.Applied)
	assert.Equal(t, int64(200), commit.Settlement.Pot)

	var g errgroup.Group
	for range 4 {
		g.Go(func() error {
			c, err := store.Settle(ctx, *final.Payout)
			if err != nil {
				return err
			}
			assert.False(t, c.Applied)
			return nil
		})
	}
	require.NoError(t, g.Wait())

	a, err := ledger.GetBalance(ctx, alice)
	require.NoError(t, err)
	b, err := ledger.GetBalance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(600), a)
	assert.Equal(t, int64(200), b)

	events, err := store.ListEvents(ctx, id)
	require.NoError(t, err)
	settled := 0
	for _, e := range events {
		if e.Type == models.EventMatchSettled {
			settled++
		}
	}
	assert.Equal(t, 1, settled)

	cached, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFinished, cached.Status)
	assert.Equal(t, 1, store.cache.Size())
}

func TestPostgresLedger(t *testing.T) {
	db := postgresDB(t)
	ctx := context.Background()
	seedAccounts(t, db, map[string]int64{alice: 50})
	ledger := NewLedgerPostgres(db)

	_, err := ledger.Debit(ctx, alice, 60)
	assert.ErrorIs(t, err, ErrInsufficientFunds)
	_, err = ledger.Debit(ctx, "999999999999999999", 1)
	assert.ErrorIs(t, err, ErrAccountNotFound)

	balance, err := ledger.Credit(ctx, alice, 25)
	require.NoError(t, err)
	assert.Equal(t, int64(75), balance)
}
