package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"hqbot/internal/game"
	"hqbot/internal/models"
	"hqbot/internal/repository"
)

// storeError turns repository sentinels into domain errors and wraps
// everything else as an infrastructure failure.
func storeError(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return game.ErrMatchNotFound
	case errors.Is(err, repository.ErrAccountNotFound):
		return game.Wrap(game.ErrAccountNotFound, err)
	case errors.Is(err, repository.ErrInsufficientFunds):
		return game.Wrap(game.ErrInsufficientFunds, err)
	case game.KindOf(err) != game.KindUnknown:
		return err
	default:
		return fmt.Errorf("failed to %s: %w", op, err)
	}
}

// backoff sleeps attempt*base or until ctx is done.
func backoff(ctx context.Context, base time.Duration, attempt int) error {
	if base <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(time.Duration(attempt) * base)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, game.CodeOf(err))
	}
	span.End()
}

// withEffectiveStatus reports expired challenges as cancelled without writing.
func withEffectiveStatus(m *models.Match, now time.Time) *models.Match {
	m.Status = m.EffectiveStatus(now)
	return m
}

func hasEvent(events []models.Event, typ models.EventType) bool {
	for _, e := range events {
		if e.Type == typ {
			return true
		}
	}
	return false
}

func opponentOf(m *models.Match, playerID string) string {
	if playerID == m.ChallengerID {
		return m.OpponentID
	}
	return m.ChallengerID
}

func resultFor(m *models.Match, playerID string) string {
	switch {
	case m.Status == models.StatusFinished && m.WinnerID == playerID:
		return "Victoire"
	case m.Status == models.StatusFinished:
		return "Défaite"
	case m.Status == models.StatusCancelled:
		return "Annulée"
	default:
		return "En cours"
	}
}
