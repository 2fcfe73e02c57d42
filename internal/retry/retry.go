package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"reflection-backend/internal/llm"
	"reflection-backend/internal/shared/telemetry"
)

// Policy bounds how an operation is retried.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	Jitter      time.Duration
}

// DefaultPolicy is used for every upstream generation call.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   2000 * time.Millisecond,
		Multiplier:  1.5,
		Jitter:      1000 * time.Millisecond,
	}
}

// Validate reports whether p is usable.
func (p Policy) Validate() error {
	switch {
	case p.MaxAttempts < 1:
		return fmt.Errorf("retry policy: max attempts must be >= 1, got %d", p.MaxAttempts)
	case p.BaseDelay < 0:
		return fmt.Errorf("retry policy: base delay must be >= 0, got %s", p.BaseDelay)
	case p.Multiplier <= 1:
		return fmt.Errorf("retry policy: multiplier must be > 1, got %g", p.Multiplier)
	case p.Jitter < 0:
		return fmt.Errorf("retry policy: jitter must be >= 0, got %s", p.Jitter)
	}
	return nil
}

// Backoff returns the jitter-free delay that follows failed attempt n (n >= 1).
func (p Policy) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1)))
}

// Attempt records the outcome of one call.
type Attempt struct {
	Number    int
	Succeeded bool
	Class     llm.ErrorClass
	Err       error
	// Delay slept after this attempt, zero when no retry followed.
	Delay time.Duration
}

// Trace is the ordered list of attempts for one call.
type Trace []Attempt

// Attempts returns the number of calls made.
func (t Trace) Attempts() int { return len(t) }

// ErrExhausted marks an error returned after every allowed attempt failed.
var ErrExhausted = errors.New("retry attempts exhausted")

// ExhaustedError wraps the last error observed when attempts run out.
type ExhaustedError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s after %d attempts: %v", ErrExhausted, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() []error { return []error{ErrExhausted, e.Last} }

// Executor runs operations under a Policy.
type Executor struct {
	Policy Policy
	// Sleep waits for d or until ctx is done. Defaults to a timer.
	Sleep func(ctx context.Context, d time.Duration) error
	// Jitter returns a duration in [0, max]. Defaults to a shared math/rand source.
	Jitter func(max time.Duration) time.Duration
	// Label is attached to retry log lines.
	Label string
}

// New returns an Executor for p with real sleeping and jitter.
func New(p Policy) *Executor {
	return &Executor{Policy: p}
}

// Do runs op until it succeeds, fails fatally, or the policy is exhausted.
// Only errors whose llm.ErrorClass is retryable are retried.
func Do[T any](ctx context.Context, ex *Executor, op func(ctx context.Context) (T, error)) (T, Trace, error) {
	var zero T
	policy := ex.Policy
	if err := policy.Validate(); err != nil {
		policy = DefaultPolicy()
	}

	trace := make(Trace, 0, policy.MaxAttempts)
	for attempt := 1; ; attempt++ {
		val, err := op(ctx)
		if err == nil {
			trace = append(trace, Attempt{Number: attempt, Succeeded: true})
			return val, trace, nil
		}

		class := llm.ClassOf(err)
		trace = append(trace, Attempt{Number: attempt, Class: class, Err: err})
		if !class.Retryable() {
			return zero, trace, err
		}
		if attempt >= policy.MaxAttempts {
			return zero, trace, &ExhaustedError{Attempts: attempt, Last: err}
		}

		delay := policy.Backoff(attempt) + ex.jitter(policy.Jitter)
		trace[len(trace)-1].Delay = delay
		telemetry.Warn("llm.retry", map[string]any{
			"label":    ex.Label,
			"attempt":  attempt,
			"class":    class.String(),
			"delay_ms": delay.Milliseconds(),
			"error":    err,
		})
		if err := ex.sleep(ctx, delay); err != nil {
			return zero, trace, err
		}
	}
}

func (ex *Executor) sleep(ctx context.Context, d time.Duration) error {
	if ex.Sleep != nil {
		return ex.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

var (
	jitterMu  sync.Mutex
	jitterRnd = rand.New(rand.NewSource(time.Now().UnixNano()))
)

func (ex *Executor) jitter(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	if ex.Jitter != nil {
		return ex.Jitter(max)
	}
	jitterMu.Lock()
	defer jitterMu.Unlock()
	return time.Duration(jitterRnd.Int63n(int64(max) + 1))
}
