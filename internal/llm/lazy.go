package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Builder constructs the upstream client. It is called at most once per
// successful initialization.
type Builder func(ctx context.Context) (Client, error)

// Lazy is a process-wide upstream client built on first use. Concurrent first
// callers share a single build; a failed build is retried by the next caller.
type Lazy struct {
	build  Builder
	group  singleflight.Group
	mu     sync.RWMutex
	client Client
}

// NewLazy wraps build in a Lazy client.
func NewLazy(build Builder) *Lazy {
	return &Lazy{build: build}
}

// Get returns the shared client, building it if needed.
func (l *Lazy) Get(ctx context.Context) (Client, error) {
	l.mu.RLock()
	c := l.client
	l.mu.RUnlock()
	if c != nil {
		return c, nil
	}

	v, err, _ := l.group.Do("client", func() (any, error) {
		l.mu.RLock()
		existing := l.client
		l.mu.RUnlock()
		if existing != nil {
			return existing, nil
		}
		built, err := l.build(ctx)
		if err != nil {
			if errors.Is(err, ErrMissingAPIKey) || errors.Is(err, ErrClientInit) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrClientInit, err)
		}
		if built == nil {
			return nil, fmt.Errorf("%w: builder returned nil client", ErrClientInit)
		}
		l.mu.Lock()
		l.client = built
		l.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(Client), nil
}

// Generate builds the client on first use and forwards the request.
func (l *Lazy) Generate(ctx context.Context, req Request) (string, error) {
	c, err := l.Get(ctx)
	if err != nil {
		return "", err
	}
	return c.Generate(ctx, req)
}

// Ready reports whether the client has been built.
func (l *Lazy) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.client != nil
}

var _ Client = (*Lazy)(nil)
