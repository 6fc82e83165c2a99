package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"hqbot/internal/game"
	"hqbot/internal/models"
)

// MemoryStore keeps matches and balances in process memory. Each call is one
// atomic unit, which mirrors what a single database transaction gives the
// Postgres implementation. Used for local runs and tests.
type MemoryStore struct {
	mu              sync.Mutex
	matches         map[string]*models.Match
	settlements     map[string]models.Settlement
	events          map[string][]models.Event
	balances        map[string]int64
	startingBalance int64
	now             func() time.Time
}

type MemoryOption func(*MemoryStore)

// WithStartingBalance opens unknown accounts on first use with the given
// balance instead of failing with ErrAccountNotFound.
func WithStartingBalance(amount int64) MemoryOption {
	return func(s *MemoryStore) {
		s.startingBalance = amount
	}
}

func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		s.now = now
	}
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		matches:     make(map[string]*models.Match),
		settlements: make(map[string]models.Settlement),
		events:      make(map[string][]models.Event),
		balances:    make(map[string]int64),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Deposit opens the account if needed and adds amount to it.
func (s *MemoryStore) Deposit(accountID string, amount int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[accountID] += amount
}

func (s *MemoryStore) Create(_ context.Context, m *models.Match, events []models.Event) (*Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.matches[m.ID]; exists {
		return nil, ErrDuplicateID
	}
	s.matches[m.ID] = m.Clone()

	commit := &Commit{Events: assignEventIDs(events)}
	s.events[m.ID] = append(s.events[m.ID], commit.Events...)
	return commit, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*models.Match, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[id]
	if !ok {
		return nil, ErrNotFound
	}
	return m.Clone(), nil
}

func (s *MemoryStore) Save(_ context.Context, m *models.Match, expectedVersion int, events []models.Event, payout *models.Payout) (*Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.matches[m.ID]
	if !ok {
		return nil, ErrNotFound
	}
	if stored.Version != expectedVersion {
		return nil, ErrVersionConflict
	}

	next := m.Clone()
	next.Version = expectedVersion + 1

	commit := &Commit{Events: assignEventIDs(events)}
	if payout != nil {
		settlement, applied, err := s.settleLocked(*payout)
		if err != nil {
			return nil, err
		}
		commit.Settlement, commit.Applied = settlement, applied
		if applied {
			commit.Events = append(commit.Events, settledEvent(next, settlement))
		}
	}

	s.matches[m.ID] = next
	s.events[m.ID] = append(s.events[m.ID], commit.Events...)
	m.Version = next.Version
	return commit, nil
}

func (s *MemoryStore) Settle(_ context.Context, payout models.Payout) (*Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.matches[payout.MatchID]
	if !ok {
		return nil, ErrNotFound
	}
	if m.Status != models.StatusFinished || m.WinnerID != payout.WinnerID {
		return nil, game.ErrNotFinished
	}

	settlement, applied, err := s.settleLocked(payout)
	if err != nil {
		return nil, err
	}
	commit := &Commit{Settlement: settlement, Applied: applied}
	if applied {
		commit.Events = []models.Event{settledEvent(m, settlement)}
		s.events[m.ID] = append(s.events[m.ID], commit.Events...)
	}
	return commit, nil
}

func (s *MemoryStore) settleLocked(p models.Payout) (*models.Settlement, bool, error) {
	if existing, ok := s.settlements[p.MatchID]; ok {
		return &existing, false, nil
	}

	winnerBalance, err := s.balanceLocked(p.WinnerID)
	if err != nil {
		return nil, false, err
	}
	loserBalance, err := s.balanceLocked(p.LoserID)
	if err != nil {
		return nil, false, err
	}

	settlement := game.SettlementFor(p, winnerBalance, loserBalance, s.now())
	s.balances[p.WinnerID] = winnerBalance - settlement.WinnerStake + settlement.Pot
	s.balances[p.LoserID] = loserBalance - settlement.LoserStake
	s.settlements[p.MatchID] = settlement
	return &settlement, true, nil
}

func (s *MemoryStore) GetSettlement(_ context.Context, matchID string) (*models.Settlement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	settlement, ok := s.settlements[matchID]
	if !ok {
		return nil, ErrNotFound
	}
	return &settlement, nil
}

func (s *MemoryStore) ListPending(_ context.Context, playerID string, now time.Time) ([]models.Match, error) {
	return s.filter(0, byCreatedDesc, func(m *models.Match) bool {
		return m.IsParticipant(playerID) && m.EffectiveStatus(now) == models.StatusPending
	}), nil
}

func (s *MemoryStore) ListByPlayer(_ context.Context, playerID string, limit int) ([]models.Match, error) {
	return s.filter(limit, byCreatedDesc, func(m *models.Match) bool {
		return m.IsParticipant(playerID)
	}), nil
}

func (s *MemoryStore) ListExpiredPending(_ context.Context, now time.Time, limit int) ([]models.Match, error) {
	return s.filter(limit, byExpiresAsc, func(m *models.Match) bool {
		return m.Status == models.StatusPending && now.After(m.ExpiresAt)
	}), nil
}

func (s *MemoryStore) ListUnsettled(_ context.Context, limit int) ([]models.Match, error) {
	s.mu.Lock()
	settled := make(map[string]bool, len(s.settlements))
	for id := range s.settlements {
		settled[id] = true
	}
	s.mu.Unlock()

	return s.filter(limit, byCreatedDesc, func(m *models.Match) bool {
		return m.Status == models.StatusFinished && !settled[m.ID]
	}), nil
}

func (s *MemoryStore) ListEvents(_ context.Context, matchID string) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Event(nil), s.events[matchID]...), nil
}

func (s *MemoryStore) GetBalance(_ context.Context, accountID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balanceLocked(accountID)
}

func (s *MemoryStore) Credit(_ context.Context, accountID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.balanceLocked(accountID)
	if err != nil {
		return 0, err
	}
	s.balances[accountID] = balance + amount
	return balance + amount, nil
}

func (s *MemoryStore) Debit(_ context.Context, accountID string, amount int64) (int64, error) {
	if amount < 0 {
		return 0, ErrNegativeAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	balance, err := s.balanceLocked(accountID)
	if err != nil {
		return 0, err
	}
	if balance < amount {
		return 0, ErrInsufficientFunds
	}
	s.balances[accountID] = balance - amount
	return balance - amount, nil
}

func (s *MemoryStore) balanceLocked(accountID string) (int64, error) {
	balance, ok := s.balances[accountID]
	if ok {
		return balance, nil
	}
	if s.startingBalance > 0 {
		s.balances[accountID] = s.startingBalance
		return s.startingBalance, nil
	}
	return 0, ErrAccountNotFound
}

func byCreatedDesc(a, b *models.Match) bool { return a.CreatedAt.After(b.CreatedAt) }
func byExpiresAsc(a, b *models.Match) bool  { return a.ExpiresAt.Before(b.ExpiresAt) }

func (s *MemoryStore) filter(limit int, less func(a, b *models.Match) bool, keep func(*models.Match) bool) []models.Match {
	s.mu.Lock()
	defer s.mu.Unlock()

	var picked []*models.Match
	for _, m := range s.matches {
		if keep(m) {
			picked = append(picked, m)
		}
	}
	sort.Slice(picked, func(i, j int) bool {
		if less(picked[i], picked[j]) {
			return true
		}
		if less(picked[j], picked[i]) {
			return false
		}
		return picked[i].ID < picked[j].ID
	})
	if limit > 0 && len(picked) > limit {
		picked = picked[:limit]
	}

	out := make([]models.Match, 0, len(picked))
	for _, m := range picked {
		out = append(out, *m.Clone())
	}
	return out
}
