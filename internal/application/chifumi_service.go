package application

import (
	"context"
	"errors"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"hqbot/internal/game"
	"hqbot/internal/models"
	"hqbot/internal/repository"
)

type ChifumiServiceImpl struct {
	matches  repository.Matches
	ledger   repository.Ledger
	notifier Notifier
	cfg      Config
	logger   Logger
	tracer   trace.Tracer
	now      func() time.Time
	newCode  func() (string, error)
}

func NewChifumiServiceImpl(matches repository.Matches, ledger repository.Ledger, notifier Notifier, cfg Config, logger Logger) *ChifumiServiceImpl {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.DefaultRounds == 0 {
		cfg.DefaultRounds = game.DefaultRounds
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 10
	}
	if cfg.SweepBatch <= 0 {
		cfg.SweepBatch = 100
	}
	return &ChifumiServiceImpl{
		matches:  matches,
		ledger:   ledger,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		tracer:   otel.Tracer("hqbot/chifumi"),
		now:      time.Now,
		newCode: func() (string, error) {
			return repository.GenerateCode(repository.MatchCodeLength)
		},
	}
}

func (s *ChifumiServiceImpl) CreateChallenge(ctx context.Context, challengerID, opponentID string, betAmount int64, totalRounds int) (m *models.Match, err error) {
	ctx, span := s.tracer.Start(ctx, "chifumi.CreateChallenge", trace.WithAttributes(
		attribute.String("chifumi.challenger", challengerID),
		attribute.String("chifumi.opponent", opponentID),
		attribute.Int64("chifumi.bet", betAmount),
	))
	defer func() { endSpan(span, err) }()

	if totalRounds == 0 {
		totalRounds = s.cfg.DefaultRounds
	}

	// validate before touching balances
	if _, err := game.NewChallenge("", challengerID, opponentID, betAmount, totalRounds, s.now()); err != nil {
		return nil, err
	}
	if err := s.checkFunds(ctx, challengerID, betAmount); err != nil {
		return nil, err
	}
	if err := s.checkFunds(ctx, opponentID, betAmount); err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= codeAttempts; attempt++ {
		code, err := s.newCode()
		if err != nil {
			return nil, storeError("generate match code", err)
		}

		tr, err := game.NewChallenge(code, challengerID, opponentID, betAmount, totalRounds, s.now())
		if err != nil {
			return nil, err
		}

		commit, err := s.matches.Create(ctx, tr.Match, tr.Events)
		if errors.Is(err, repository.ErrDuplicateID) {
			s.logger.Debug("match code %s already taken, drawing another", code)
			continue
		}
		if err != nil {
			return nil, storeError("create match", err)
		}

		s.logger.Info("chifumi %s created: %s vs %s, bet %d, %d rounds", code, challengerID, opponentID, betAmount, totalRounds)
		s.publish(ctx, commit.Events)
		return tr.Match, nil
	}
	return nil, game.ErrConcurrentUpdate
}

func (s *ChifumiServiceImpl) checkFunds(ctx context.Context, accountID string, betAmount int64) error {
	balance, err := s.ledger.GetBalance(ctx, accountID)
	if err != nil {
		err = storeError("get balance", err)
		var de *game.Error
		if errors.As(err, &de) {
			return de.WithMeta("account_id", accountID)
		}
		return err
	}
	if balance < betAmount {
		return game.ErrInsufficientFunds.
			WithMeta("account_id", accountID).
			WithMeta("balance", strconv.FormatInt(balance, 10))
	}
	return nil
}

func (s *ChifumiServiceImpl) Accept(ctx context.Context, matchID, actorID string) (m *models.Match, err error) {
	ctx, span := s.startMatchSpan(ctx, "chifumi.Accept", matchID, actorID)
	defer func() { endSpan(span, err) }()

	res, err := s.mutate(ctx, matchID, func(m *models.Match, now time.Time) (*game.Transition, error) {
		return game.Accept(m, actorID, now)
	})
	if res == nil {
		return nil, err
	}
	if err == nil {
		s.logger.Info("chifumi %s accepted by %s", matchID, actorID)
	}
	return res.Match, err
}

func (s *ChifumiServiceImpl) Decline(ctx context.Context, matchID, actorID string) (m *models.Match, err error) {
	ctx, span := s.startMatchSpan(ctx, "chifumi.Decline", matchID, actorID)
	defer func() { endSpan(span, err) }()

	res, err := s.mutate(ctx, matchID, func(m *models.Match, now time.Time) (*game.Transition, error) {
		return game.Decline(m, actorID, now)
	})
	if res == nil {
		return nil, err
	}
	if err == nil {
		s.logger.Info("chifumi %s declined by %s", matchID, actorID)
	}
	return res.Match, err
}

func (s *ChifumiServiceImpl) SubmitChoice(ctx context.Context, matchID, actorID string, choice models.Choice) (*Result, error) {
	return s.SubmitChoiceInRound(ctx, matchID, actorID, choice, 0)
}

// SubmitChoiceInRound is SubmitChoice with an explicit round number; 0 means
// whichever round is open.
func (s *ChifumiServiceImpl) SubmitChoiceInRound(ctx context.Context, matchID, actorID string, choice models.Choice, roundNumber int) (res *Result, err error) {
	ctx, span := s.startMatchSpan(ctx, "chifumi.SubmitChoice", matchID, actorID)
	span.SetAttributes(attribute.Int("chifumi.round", roundNumber))
	defer func() { endSpan(span, err) }()

	res, err = s.mutate(ctx, matchID, func(m *models.Match, now time.Time) (*game.Transition, error) {
		return game.Submit(m, actorID, choice, roundNumber, now)
	})
	if err != nil {
		return nil, err
	}

	if res.Match.Status == models.StatusFinished {
		s.logger.Info("chifumi %s finished, winner %s", matchID, res.Match.WinnerID)
	}
	return res, nil
}

func (s *ChifumiServiceImpl) GetMatch(ctx context.Context, matchID string) (m *models.Match, err error) {
	ctx, span := s.startMatchSpan(ctx, "chifumi.GetMatch", matchID, "")
	defer func() { endSpan(span, err) }()

	m, err = s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, storeError("get match", err)
	}
	return withEffectiveStatus(m, s.now()), nil
}

func (s *ChifumiServiceImpl) GetSettlement(ctx context.Context, matchID string) (*models.Settlement, error) {
	settlement, err := s.matches.GetSettlement(ctx, matchID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("get settlement", err)
	}
	return settlement, nil
}

func (s *ChifumiServiceImpl) ListPending(ctx context.Context, playerID string) ([]models.Match, error) {
	matches, err := s.matches.ListPending(ctx, playerID, s.now())
	if err != nil {
		return nil, storeError("list pending matches", err)
	}
	return matches, nil
}

func (s *ChifumiServiceImpl) History(ctx context.Context, playerID string, limit int) ([]models.Match, error) {
	if limit <= 0 {
		limit = s.cfg.HistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	matches, err := s.matches.ListByPlayer(ctx, playerID, limit)
	if err != nil {
		return nil, storeError("list match history", err)
	}
	now := s.now()
	for i := range matches {
		withEffectiveStatus(&matches[i], now)
	}
	return matches, nil
}

// RetrySettlement re-executes the payout of a finished match. The store keys
// settlements by match id, so calling it again never pays twice.
func (s *ChifumiServiceImpl) RetrySettlement(ctx context.Context, matchID string) (settlement *models.Settlement, err error) {
	ctx, span := s.startMatchSpan(ctx, "chifumi.RetrySettlement", matchID, "")
	defer func() { endSpan(span, err) }()

	m, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, storeError("get match", err)
	}
	payout, err := game.PayoutFor(m)
	if err != nil {
		return nil, err
	}

	commit, err := s.matches.Settle(ctx, *payout)
	if err != nil {
		return nil, storeError("settle match", err)
	}
	if commit.Applied {
		s.logSettlement(commit.Settlement)
	}
	s.publish(ctx, commit.Events)
	return commit.Settlement, nil
}

// ExpireStale cancels PENDING matches past their acceptance window. Accept
// and Decline enforce expiry on their own; this only tidies up.
func (s *ChifumiServiceImpl) ExpireStale(ctx context.Context) (int, error) {
	stale, err := s.matches.ListExpiredPending(ctx, s.now(), s.cfg.SweepBatch)
	if err != nil {
		return 0, storeError("list expired matches", err)
	}

	expired := 0
	for _, m := range stale {
		_, err := s.mutate(ctx, m.ID, func(m *models.Match, now time.Time) (*game.Transition, error) {
			return game.Expire(m, now)
		})
		switch {
		case err == nil:
			expired++
		case errors.Is(err, game.ErrNotPending), errors.Is(err, game.ErrNotExpired):
		default:
			s.logger.Warn("failed to expire chifumi %s: %v", m.ID, err)
		}
	}
	return expired, nil
}

// SettleOutstanding re-runs settlement for finished matches that have none.
func (s *ChifumiServiceImpl) SettleOutstanding(ctx context.Context) (int, error) {
	unsettled, err := s.matches.ListUnsettled(ctx, s.cfg.SweepBatch)
	if err != nil {
		return 0, storeError("list unsettled matches", err)
	}

	settled := 0
	for _, m := range unsettled {
		if _, err := s.RetrySettlement(ctx, m.ID); err != nil {
			s.logger.Error("failed to settle chifumi %s: %v", m.ID, err)
			continue
		}
		settled++
	}
	return settled, nil
}

type transitionFunc func(m *models.Match, now time.Time) (*game.Transition, error)

// mutate runs load, pure transition and compare-and-set save for one match.
// A version conflict means another request won the race: reload and apply
// again on the fresh state, up to MaxAttempts times.
//
// A transition may come back together with an error (a lazily expired
// challenge); it is persisted and the error is returned with the result.
func (s *ChifumiServiceImpl) mutate(ctx context.Context, matchID string, apply transitionFunc) (*Result, error) {
	for attempt := 1; ; attempt++ {
		m, err := s.matches.Get(ctx, matchID)
		if err != nil {
			return nil, storeError("get match", err)
		}
		version := m.Version

		tr, applyErr := apply(m, s.now())
		if tr == nil {
			return nil, applyErr
		}

		commit, err := s.matches.Save(ctx, tr.Match, version, tr.Events, tr.Payout)
		if errors.Is(err, repository.ErrVersionConflict) {
			if attempt >= s.cfg.MaxAttempts {
				s.logger.Warn("chifumi %s: giving up after %d conflicting writes", matchID, attempt)
				return nil, game.ErrConcurrentUpdate
			}
			s.logger.Debug("chifumi %s: version %d is stale, retrying (%d/%d)", matchID, version, attempt, s.cfg.MaxAttempts)
			if err := backoff(ctx, s.cfg.RetryDelay, attempt); err != nil {
				return nil, err
			}
			continue
		}
		if err != nil {
			return nil, storeError("save match", err)
		}

		if commit.Applied {
			s.logSettlement(commit.Settlement)
		}
		if hasEvent(commit.Events, models.EventMatchExpired) {
			s.logger.Info("chifumi %s expired without answer", matchID)
		}
		s.publish(ctx, commit.Events)

		return &Result{
			Match:      tr.Match,
			Round:      tr.Round,
			Events:     commit.Events,
			Settlement: commit.Settlement,
		}, applyErr
	}
}

func (s *ChifumiServiceImpl) logSettlement(st *models.Settlement) {
	if st == nil {
		return
	}
	if st.Shortfall > 0 {
		s.logger.Warn("chifumi %s settled with shortfall %d: winner %s staked %d, loser %s staked %d",
			st.MatchID, st.Shortfall, st.WinnerID, st.WinnerStake, st.LoserID, st.LoserStake)
		return
	}
	s.logger.Info("chifumi %s settled: %s +%d, %s -%d", st.MatchID, st.WinnerID, st.NetGain(), st.LoserID, st.LoserStake)
}

func (s *ChifumiServiceImpl) publish(ctx context.Context, events []models.Event) {
	if s.notifier == nil || len(events) == 0 {
		return
	}
	s.notifier.Notify(ctx, events)
}

func (s *ChifumiServiceImpl) startMatchSpan(ctx context.Context, name, matchID, actorID string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String("chifumi.match_id", matchID)}
	if actorID != "" {
		attrs = append(attrs, attribute.String("chifumi.actor", actorID))
	}
	return s.tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
