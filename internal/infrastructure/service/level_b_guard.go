// Package service contains adapters that wrap infrastructure clients
// into the contracts consumed by the application layer.
package service

import (
	"context"
	"errors"

	"github.com/behavior-hub/behavior-hub/internal/domain/levelb"
	"github.com/behavior-hub/behavior-hub/internal/domain/shared"
	"github.com/behavior-hub/behavior-hub/pkg/circuitbreaker"
	"github.com/behavior-hub/behavior-hub/pkg/logger"
)

var _ levelb.Store = (*GuardedLevelBStore)(nil)

// GuardedLevelBStore wraps a levelb.Store with a circuit breaker.
// An open breaker surfaces as an upstream error, so callers never mistake
// an unreachable store for "no prior attempts".
type GuardedLevelBStore struct {
	next    levelb.Store
	breaker *circuitbreaker.CircuitBreaker
	logger  *logger.Logger
}

// NewGuardedLevelBStore creates the guard. onStateChange may be nil.
func NewGuardedLevelBStore(next levelb.Store, log *logger.Logger, onStateChange func(name string, from, to circuitbreaker.State), opts ...circuitbreaker.Option) *GuardedLevelBStore {
	if log == nil {
		log = logger.Default()
	}
	g := &GuardedLevelBStore{next: next, logger: log.With(logger.Component("level_b_guard"))}
	g.breaker = circuitbreaker.LevelBStoreBreaker(func(name string, from, to circuitbreaker.State) {
		g.logger.Warn("level B store breaker state changed",
			logger.String("breaker", name),
			logger.String("from", from.String()),
			logger.String("to", to.String()),
		)
		if onStateChange != nil {
			onStateChange(name, from, to)
		}
	}, isStoreFailure, opts...)
	return g
}

// Breaker exposes the underlying breaker for health reporting.
func (g *GuardedLevelBStore) Breaker() *circuitbreaker.CircuitBreaker {
	return g.breaker
}

// CountCompleted implements levelb.Store.
func (g *GuardedLevelBStore) CountCompleted(ctx context.Context, studentID shared.StudentID, domainID shared.DomainID) (int, error) {
	var n int
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		n, err = g.next.CountCompleted(ctx, studentID, domainID)
		return err
	})
	if err != nil {
		return 0, guardError("CountCompleted", err)
	}
	return n, nil
}

// MarkEscalated implements levelb.Store.
func (g *GuardedLevelBStore) MarkEscalated(ctx context.Context, ids []string) error {
	err := g.breaker.Execute(ctx, func(ctx context.Context) error {
		return g.next.MarkEscalated(ctx, ids)
	})
	if err != nil {
		return guardError("MarkEscalated", err)
	}
	return nil
}

// isStoreFailure counts only infrastructure failures against the breaker.
func isStoreFailure(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	switch shared.Category(err) {
	case shared.CategoryNotFound, shared.CategoryValidation, shared.CategoryConflict:
		return false
	default:
		return true
	}
}

func guardError(op string, err error) error {
	if errors.Is(err, circuitbreaker.ErrCircuitOpen) || errors.Is(err, circuitbreaker.ErrTooManyRequests) {
		return shared.WrapError("levelb", op, shared.ErrServiceUnavailable, "level B store unavailable", err)
	}
	var de *shared.DomainError
	if errors.As(err, &de) {
		return err
	}
	return shared.Upstream("levelb", op, err)
}
