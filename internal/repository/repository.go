package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"hqbot/internal/models"
)

var (
	ErrNotFound          = errors.New("record not found")
	ErrVersionConflict   = errors.New("version conflict")
	ErrDuplicateID       = errors.New("duplicate id")
	ErrAccountNotFound   = errors.New("account not found")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNegativeAmount    = errors.New("amount must not be negative")
)

// Commit describes what a write persisted. Events carry their assigned IDs and
// include MATCH_SETTLED when a payout was applied in the same transaction.
type Commit struct {
	Events     []models.Event
	Settlement *models.Settlement
	// Applied is false when the payout had already been executed earlier.
	Applied bool
}

type Matches interface {
	// Create inserts a new match with its rounds. ErrDuplicateID reports an
	// id collision so the caller can draw another code.
	Create(ctx context.Context, m *models.Match, events []models.Event) (*Commit, error)
	Get(ctx context.Context, id string) (*models.Match, error)
	// Save writes m if its stored version still equals expectedVersion and
	// bumps the version. A non-nil payout is settled in the same transaction.
	Save(ctx context.Context, m *models.Match, expectedVersion int, events []models.Event, payout *models.Payout) (*Commit, error)
	// Settle executes the payout of an already finished match at most once.
	Settle(ctx context.Context, payout models.Payout) (*Commit, error)
	GetSettlement(ctx context.Context, matchID string) (*models.Settlement, error)

	ListPending(ctx context.Context, playerID string, now time.Time) ([]models.Match, error)
	ListByPlayer(ctx context.Context, playerID string, limit int) ([]models.Match, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Match, error)
	ListUnsettled(ctx context.Context, limit int) ([]models.Match, error)
	ListEvents(ctx context.Context, matchID string) ([]models.Event, error)
}

// Ledger is the account balance store shared with the rest of the bot.
type Ledger interface {
	GetBalance(ctx context.Context, accountID string) (int64, error)
	Credit(ctx context.Context, accountID string, amount int64) (int64, error)
	Debit(ctx context.Context, accountID string, amount int64) (int64, error)
}

type Repository struct {
	Matches
	Ledger
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Matches: NewMatchPostgres(db),
		Ledger:  NewLedgerPostgres(db),
		db:      db,
	}
}

func NewMemoryRepository(store *MemoryStore) *Repository {
	return &Repository{
		Matches: store,
		Ledger:  store,
	}
}

// Ping reports whether the backing database is reachable.
func (r *Repository) Ping(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	return r.db.PingContext(ctx)
}
