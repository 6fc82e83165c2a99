package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"hqbot/internal/game"
	"hqbot/internal/models"
)

const matchColumns = `game_id, challenger_id, opponent_id, bet_amount, total_rounds, required_wins,
	status, COALESCE(winner_id, ''), version, created_at, expires_at, updated_at, finished_at`

type MatchPostgres struct {
	db    *sql.DB
	cache *MatchCache
	now   func() time.Time
}

func NewMatchPostgres(db *sql.DB) *MatchPostgres {
	return &MatchPostgres{db: db, cache: NewMatchCache(DefaultMatchCacheSize), now: time.Now}
}

func (r *MatchPostgres) Create(ctx context.Context, m *models.Match, events []models.Event) (*Commit, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chifumi_games (game_id, challenger_id, opponent_id, bet_amount, total_rounds, required_wins,
			status, version, created_at, expires_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.ChallengerID, m.OpponentID, m.BetAmount, m.TotalRounds, m.RequiredWins,
		m.Status, m.Version, m.CreatedAt, m.ExpiresAt, m.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return nil, ErrDuplicateID
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert match: %w", err)
	}

	if err := upsertRounds(ctx, tx, m); err != nil {
		return nil, err
	}

	commit := &Commit{Events: assignEventIDs(events)}
	if err := insertEvents(ctx, tx, commit.Events); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return commit, nil
}

func (r *MatchPostgres) Get(ctx context.Context, id string) (*models.Match, error) {
	if m, ok := r.cache.Get(id); ok {
		return m, nil
	}

	m, err := getMatch(ctx, r.db, id, false)
	if err != nil {
		return nil, err
	}
	if m.Status.Terminal() {
		r.cache.Set(m)
	}
	return m, nil
}

func (r *MatchPostgres) Save(ctx context.Context, m *models.Match, expectedVersion int, events []models.Event, payout *models.Payout) (*Commit, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	res, err := tx.ExecContext(ctx, `
		UPDATE chifumi_games
		SET status = $1, winner_id = NULLIF($2, ''), total_rounds = $3, version = version + 1,
			updated_at = $4, finished_at = $5
		WHERE game_id = $6 AND version = $7`,
		m.Status, m.WinnerID, m.TotalRounds, m.UpdatedAt, m.FinishedAt, m.ID, expectedVersion,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update match: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM chifumi_games WHERE game_id = $1)`, m.ID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("failed to check match existence: %w", err)
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, ErrVersionConflict
	}

	if err := upsertRounds(ctx, tx, m); err != nil {
		return nil, err
	}

	commit := &Commit{Events: assignEventIDs(events)}
	if payout != nil {
		s, applied, err := settleTx(ctx, tx, *payout, r.now())
		if err != nil {
			return nil, err
		}
		commit.Settlement, commit.Applied = s, applied
		if applied {
			commit.Events = append(commit.Events, settledEvent(m, s))
		}
	}
	if err := insertEvents(ctx, tx, commit.Events); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	m.Version = expectedVersion + 1
	return commit, nil
}

func (r *MatchPostgres) Settle(ctx context.Context, payout models.Payout) (*Commit, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer rollback(tx)

	m, err := getMatch(ctx, tx, payout.MatchID, true)
	if err != nil {
		return nil, err
	}
	if m.Status != models.StatusFinished || m.WinnerID != payout.WinnerID {
		return nil, game.ErrNotFinished
	}

	s, applied, err := settleTx(ctx, tx, payout, r.now())
	if err != nil {
		return nil, err
	}
	commit := &Commit{Settlement: s, Applied: applied}
	if applied {
		commit.Events = []models.Event{settledEvent(m, s)}
		if err := insertEvents(ctx, tx, commit.Events); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return commit, nil
}

func (r *MatchPostgres) GetSettlement(ctx context.Context, matchID string) (*models.Settlement, error) {
	return getSettlement(ctx, r.db, matchID)
}

func (r *MatchPostgres) ListPending(ctx context.Context, playerID string, now time.Time) ([]models.Match, error) {
	return r.listMatches(ctx, `
		SELECT `+matchColumns+` FROM chifumi_games
		WHERE status = 'PENDING' AND expires_at >= $1 AND (challenger_id = $2 OR opponent_id = $2)
		ORDER BY created_at DESC`, now, playerID)
}

func (r *MatchPostgres) ListByPlayer(ctx context.Context, playerID string, limit int) ([]models.Match, error) {
	return r.listMatches(ctx, `
		SELECT `+matchColumns+` FROM chifumi_games
		WHERE challenger_id = $1 OR opponent_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, playerID, limit)
}

func (r *MatchPostgres) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]models.Match, error) {
	return r.listMatches(ctx, `
		SELECT `+matchColumns+` FROM chifumi_games
		WHERE status = 'PENDING' AND expires_at < $1
		ORDER BY expires_at
		LIMIT $2`, now, limit)
}

func (r *MatchPostgres) ListUnsettled(ctx context.Context, limit int) ([]models.Match, error) {
	return r.listMatches(ctx, `
		SELECT `+matchColumns+` FROM chifumi_games g
		WHERE g.status = 'FINISHED'
			AND NOT EXISTS (SELECT 1 FROM chifumi_settlements s WHERE s.game_id = g.game_id)
		ORDER BY g.finished_at
		LIMIT $1`, limit)
}

func (r *MatchPostgres) ListEvents(ctx context.Context, matchID string) ([]models.Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT payload FROM chifumi_events WHERE game_id = $1 ORDER BY occurred_at, id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		var e models.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, fmt.Errorf("failed to decode event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *MatchPostgres) listMatches(ctx context.Context, query string, args ...any) ([]models.Match, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer rows.Close()

	var result []models.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate matches: %w", err)
	}

	if err := loadRounds(ctx, r.db, result); err != nil {
		return nil, err
	}
	return result, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (*models.Match, error) {
	var (
		m          models.Match
		finishedAt sql.NullTime
	)
	err := row.Scan(&m.ID, &m.ChallengerID, &m.OpponentID, &m.BetAmount, &m.TotalRounds, &m.RequiredWins,
		&m.Status, &m.WinnerID, &m.Version, &m.CreatedAt, &m.ExpiresAt, &m.UpdatedAt, &finishedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan match: %w", err)
	}
	m.ID = strings.TrimSpace(m.ID)
	if finishedAt.Valid {
		t := finishedAt.Time
		m.FinishedAt = &t
	}
	m.Rounds = []models.Round{}
	return &m, nil
}

func getMatch(ctx context.Context, q querier, id string, forUpdate bool) (*models.Match, error) {
	query := `SELECT ` + matchColumns + ` FROM chifumi_games WHERE game_id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	m, err := scanMatch(q.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	matches := []models.Match{*m}
	if err := loadRounds(ctx, q, matches); err != nil {
		return nil, err
	}
	return &matches[0], nil
}

func loadRounds(ctx context.Context, q querier, matches []models.Match) error {
	if len(matches) == 0 {
		return nil
	}
	index := make(map[string]int, len(matches))
	ids := make([]string, 0, len(matches))
	for i := range matches {
		index[matches[i].ID] = i
		ids = append(ids, matches[i].ID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT game_id, round_number, COALESCE(challenger_choice, ''), COALESCE(opponent_choice, ''),
			COALESCE(winner_id, ''), is_tie, created_at, resolved_at
		FROM chifumi_rounds
		WHERE game_id = ANY($1)
		ORDER BY game_id, round_number`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rd         models.Round
			resolvedAt sql.NullTime
		)
		if err := rows.Scan(&rd.MatchID, &rd.Number, &rd.ChallengerChoice, &rd.OpponentChoice,
			&rd.WinnerID, &rd.Tie, &rd.CreatedAt, &resolvedAt); err != nil {
			return fmt.Errorf("failed to scan round: %w", err)
		}
		rd.MatchID = strings.TrimSpace(rd.MatchID)
		if resolvedAt.Valid {
			t := resolvedAt.Time
			rd.ResolvedAt = &t
		}
		if i, ok := index[rd.MatchID]; ok {
			matches[i].Rounds = append(matches[i].Rounds, rd)
		}
	}
	return rows.Err()
}

// upsertRounds writes every round of m. Stored choices and outcomes win over
// incoming ones, so a slot that is already set can never be overwritten.
func upsertRounds(ctx context.Context, tx *sql.Tx, m *models.Match) error {
	for _, rd := range m.Rounds {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO chifumi_rounds (game_id, round_number, challenger_choice, opponent_choice, winner_id,
				is_tie, created_at, resolved_at)
			VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
			ON CONFLICT (game_id, round_number) DO UPDATE SET
				challenger_choice = COALESCE(chifumi_rounds.challenger_choice, EXCLUDED.challenger_choice),
				opponent_choice = COALESCE(chifumi_rounds.opponent_choice, EXCLUDED.opponent_choice),
				winner_id = COALESCE(chifumi_rounds.winner_id, EXCLUDED.winner_id),
				is_tie = chifumi_rounds.is_tie OR EXCLUDED.is_tie,
				resolved_at = COALESCE(chifumi_rounds.resolved_at, EXCLUDED.resolved_at)`,
			m.ID, rd.Number, rd.ChallengerChoice, rd.OpponentChoice, rd.WinnerID, rd.Tie, rd.CreatedAt, rd.ResolvedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to upsert round %d: %w", rd.Number, err)
		}
	}
	return nil
}

func insertEvents(ctx context.Context, tx *sql.Tx, events []models.Event) error {
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO chifumi_events (id, game_id, type, round_number, actor_id, payload, occurred_at)
			VALUES ($1, $2, $3, NULLIF($4, 0), NULLIF($5, ''), $6, $7)`,
			e.ID, e.MatchID, e.Type, e.RoundNumber, e.ActorID, payload, e.OccurredAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert event: %w", err)
		}
	}
	return nil
}

// settleTx moves the stakes inside tx. The settlements row is the idempotency
// key: when it already exists nothing moves and the stored row is returned.
func settleTx(ctx context.Context, tx *sql.Tx, p models.Payout, now time.Time) (*models.Settlement, bool, error) {
	ops := ledgerOps{q: tx}
	balances, err := ops.lockBalances(ctx, p.WinnerID, p.LoserID)
	if err != nil {
		return nil, false, err
	}

	s := game.SettlementFor(p, balances[p.WinnerID], balances[p.LoserID], now)
	res, err := tx.ExecContext(ctx, `
		INSERT INTO chifumi_settlements (game_id, winner_id, loser_id, bet_amount, winner_stake, loser_stake,
			pot, shortfall, settled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (game_id) DO NOTHING`,
		s.MatchID, s.WinnerID, s.LoserID, s.BetAmount, s.WinnerStake, s.LoserStake, s.Pot, s.Shortfall, s.SettledAt,
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert settlement: %w", err)
	}
	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		existing, err := getSettlement(ctx, tx, p.MatchID)
		return existing, false, err
	}

	if _, err := ops.debit(ctx, s.WinnerID, s.WinnerStake); err != nil {
		return nil, false, fmt.Errorf("failed to collect winner stake: %w", err)
	}
	if _, err := ops.debit(ctx, s.LoserID, s.LoserStake); err != nil {
		return nil, false, fmt.Errorf("failed to collect loser stake: %w", err)
	}
	if _, err := ops.credit(ctx, s.WinnerID, s.Pot); err != nil {
		return nil, false, fmt.Errorf("failed to pay pot: %w", err)
	}
	return &s, true, nil
}

func getSettlement(ctx context.Context, q querier, matchID string) (*models.Settlement, error) {
	var s models.Settlement
	err := q.QueryRowContext(ctx, `
		SELECT game_id, winner_id, loser_id, bet_amount, winner_stake, loser_stake, pot, shortfall, settled_at
		FROM chifumi_settlements WHERE game_id = $1`, matchID,
	).Scan(&s.MatchID, &s.WinnerID, &s.LoserID, &s.BetAmount, &s.WinnerStake, &s.LoserStake, &s.Pot, &s.Shortfall, &s.SettledAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get settlement: %w", err)
	}
	s.MatchID = strings.TrimSpace(s.MatchID)
	return &s, nil
}

func assignEventIDs(events []models.Event) []models.Event {
	out := make([]models.Event, len(events))
	for i, e := range events {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		out[i] = e
	}
	return out
}

func settledEvent(m *models.Match, s *models.Settlement) models.Event {
	cw, ow := m.Score()
	return models.Event{
		ID:             uuid.NewString(),
		MatchID:        m.ID,
		Type:           models.EventMatchSettled,
		ChallengerID:   m.ChallengerID,
		OpponentID:     m.OpponentID,
		WinnerID:       s.WinnerID,
		LoserID:        s.LoserID,
		ChallengerWins: cw,
		OpponentWins:   ow,
		RequiredWins:   m.RequiredWins,
		Amount:         s.NetGain(),
		OccurredAt:     s.SettledAt,
	}
}
