package usage

import (
	"context"
	"sync"
	"time"
)

type memoryStore struct {
	mu   sync.Mutex
	plan Plan
	now  func() time.Time
	data map[string]Usage
}

func newMemoryStore(plan Plan, now func() time.Time) *memoryStore {
	if now == nil {
		now = time.Now
	}
	return &memoryStore{
		plan: plan,
		now:  now,
		data: make(map[string]Usage),
	}
}

func (s *memoryStore) Get(ctx context.Context, userID string) (Usage, error) {
	return s.EnsurePeriod(ctx, userID)
}

func (s *memoryStore) EnsurePeriod(ctx context.Context, userID string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ensureLocked(userID), nil
}

func (s *memoryStore) ensureLocked(userID string) Usage {
	now := s.now().UTC()
	u, ok := s.data[userID]
	if !ok || expired(u, now) {
		u = s.plan.fresh(now)
	}
	s.data[userID] = u
	return u
}

func (s *memoryStore) Consume(ctx context.Context, userID string, n int) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureLocked(userID)
	if n <= 0 {
		return u, nil
	}
	if u.Used+n > u.Limit {
		return Usage{}, ErrLimitReached
	}
	u.Used += n
	s.data[userID] = u
	return u, nil
}

func (s *memoryStore) Refund(ctx context.Context, userID string, n int) (Usage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.ensureLocked(userID)
	if n <= 0 {
		return u, nil
	}
	u.Used -= n
	if u.Used < 0 {
		u.Used = 0
	}
	s.data[userID] = u
	return u, nil
}

func (s *memoryStore) Reset(ctx context.Context, userID string) (Usage, error) {
	if err := ctx.Err(); err != nil {
		return Usage{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.plan.fresh(s.now().UTC())
	s.data[userID] = u
	return u, nil
}
