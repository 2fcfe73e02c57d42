package usage

import (
	"context"
	"time"
)

type store interface {
	Get(ctx context.Context, userID string) (Usage, error)
	EnsurePeriod(ctx context.Context, userID string) (Usage, error)
	Consume(ctx context.Context, userID string, n int) (Usage, error)
	Refund(ctx context.Context, userID string, n int) (Usage, error)
	Reset(ctx context.Context, userID string) (Usage, error)
}

// Service manages the daily generation allowance via an underlying store.
// A plan limit of zero disables enforcement.
type Service struct {
	store store
	plan  Plan
}

// NewService constructs a Service with in-memory store.
func NewService(plan Plan) *Service {
	return &Service{store: newMemoryStore(plan, nil), plan: plan}
}

// NewPostgresService constructs a Service backed by Postgres.
func NewPostgresService(pgStore *PGStore) *Service {
	return &Service{store: pgStore, plan: pgStore.plan}
}

// Enabled reports whether the allowance is enforced.
func (s *Service) Enabled() bool {
	return s != nil && s.plan.Limit > 0
}

// Get returns the current usage for a user, initializing defaults if absent.
func (s *Service) Get(ctx context.Context, userID string) (Usage, error) {
	if !s.Enabled() {
		return s.unlimited(), nil
	}
	return s.store.Get(ctx, userID)
}

// EnsurePeriod resets usage if the period has expired.
func (s *Service) EnsurePeriod(ctx context.Context, userID string) (Usage, error) {
	if !s.Enabled() {
		return s.unlimited(), nil
	}
	return s.store.EnsurePeriod(ctx, userID)
}

// Consume increments usage by n if within limit.
func (s *Service) Consume(ctx context.Context, userID string, n int) (Usage, error) {
	if !s.Enabled() {
		return s.unlimited(), nil
	}
	return s.store.Consume(ctx, userID, n)
}

// Refund returns n previously consumed units, never going below zero.
func (s *Service) Refund(ctx context.Context, userID string, n int) (Usage, error) {
	if !s.Enabled() {
		return s.unlimited(), nil
	}
	return s.store.Refund(ctx, userID, n)
}

// Reset sets usage to zero and resets the window.
func (s *Service) Reset(ctx context.Context, userID string) (Usage, error) {
	if !s.Enabled() {
		return s.unlimited(), nil
	}
	return s.store.Reset(ctx, userID)
}

func (s *Service) unlimited() Usage {
	name := "Unlimited"
	if s != nil && s.plan.Name != "" {
		name = s.plan.Name
	}
	return Usage{Plan: name, Limit: 0, ResetsAt: nextReset(time.Now())}
}
