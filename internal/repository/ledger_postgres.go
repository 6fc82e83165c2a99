package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
)

type LedgerPostgres struct {
	db *sql.DB
}

func NewLedgerPostgres(db *sql.DB) *LedgerPostgres {
	return &LedgerPostgres{db: db}
}

func (r *LedgerPostgres) GetBalance(ctx context.Context, accountID string) (int64, error) {
	return ledgerOps{q: r.db}.balance(ctx, accountID, false)
}

func (r *LedgerPostgres) Credit(ctx context.Context, accountID string, amount int64) (int64, error) {
	return ledgerOps{q: r.db}.credit(ctx, accountID, amount)
}

func (r *LedgerPostgres) Debit(ctx context.Context, accountID string, amount int64) (int64, error) {
	return ledgerOps{q: r.db}.debit(ctx, accountID, amount)
}

// ledgerOps runs balance statements against a connection or an open
// transaction, which lets settlement share the match write's transaction.
type ledgerOps struct {
	q querier
}

func (l ledgerOps) balance(ctx context.Context, accountID string, forUpdate bool) (int64, error) {
	query := `SELECT token FROM users WHERE discord_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var balance int64
	err := l.q.QueryRowContext(ctx, query, accountID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// lockBalances locks the accounts in a stable order so two settlements
// touching the same pair cannot deadlock.
func (l ledgerOps) lockBalances(ctx context.Context, accountIDs ...string) (map[string]int64, error) {
	ids := append([]string(nil), accountIDs...)
	sort.Strings(ids)

	balances := make(map[string]int64, len(ids))
	for _, id := range ids {
		b, err := l.balance(ctx, id, true)
		if err != nil {
			return nil, err
		}
		balances[id] = b
	}
	return balances, nil
}

func (l ledgerOps) credit(ctx context.Context, accountID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}

	var balance int64
	err := l.q.QueryRowContext(ctx,
		`UPDATE users SET token = token + $1 WHERE discord_id = $2 RETURNING token`,
		amount, accountID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to credit account: %w", err)
	}
	return balance, nil
}

func (l ledgerOps) debit(ctx context.Context, accountID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}

	var balance int64
	err := l.q.QueryRowContext(ctx,
		`UPDATE users SET token = token - $1 WHERE discord_id = $2 AND token >= $1 RETURNING token`,
		amount, accountID,
	).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		if _, lookupErr := l.balance(ctx, accountID, false); errors.Is(lookupErr, ErrAccountNotFound) {
			return 0, ErrAccountNotFound
		}
		return 0, ErrInsufficientFunds
	}
	if err != nil {
		return 0, fmt.Errorf("failed to debit account: %w", err)
	}
	return balance, nil
}
