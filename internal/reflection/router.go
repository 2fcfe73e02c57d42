package reflection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"reflection-backend/internal/llm"
	"reflection-backend/internal/retry"
	"reflection-backend/internal/shared/telemetry"
)

// Options configures a Router.
type Options struct {
	Policy retry.Policy
	// Sleep and Jitter override the executor's timer and random jitter.
	Sleep  func(ctx context.Context, d time.Duration) error
	Jitter func(max time.Duration) time.Duration
	// Rand drives randomized fallback content. Defaults to a time-seeded source.
	Rand *rand.Rand
	Now  func() time.Time
	// StructuredReflectionFallback gives structured-reflection a local fallback.
	// Off by default: invalid structured output is reported as an error.
	StructuredReflectionFallback bool
}

// Result is the outcome of one dispatched request.
type Result struct {
	Kind     Kind
	Response Response
	Fallback bool
	// FallbackReason is set when Fallback is true.
	FallbackReason string
	Attempts       int
	// Rejected holds upstream output that failed validation.
	Rejected string
}

// Router validates requests and dispatches each to the handler for its kind.
type Router struct {
	client   llm.Client
	exec     retry.Executor
	handlers map[Kind]handler
	rnd      *lockedRand
	now      func() time.Time
}

// NewRouter builds a Router with one handler per Kind.
func NewRouter(client llm.Client, opts Options) *Router {
	policy := opts.Policy
	if policy == (retry.Policy{}) {
		policy = retry.DefaultPolicy()
	}
	src := opts.Rand
	if src == nil {
		src = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	r := &Router{
		client: client,
		exec: retry.Executor{
			Policy: policy,
			Sleep:  opts.Sleep,
			Jitter: opts.Jitter,
		},
		handlers: make(map[Kind]handler, len(kindTags)),
		rnd:      &lockedRand{r: src},
		now:      now,
	}
	for _, k := range Kinds() {
		h := newHandler(k)
		if k == KindStructuredReflection && !opts.StructuredReflectionFallback {
			h.local = nil
		}
		r.handlers[k] = h
	}
	return r
}

// HasFallback reports whether kind k substitutes a local response on failure.
func (r *Router) HasFallback(k Kind) bool {
	h, ok := r.handlers[k]
	return ok && h.local != nil
}

// Route parses and dispatches a raw request. Errors are always *Error.
func (r *Router) Route(ctx context.Context, kindTag string, data json.RawMessage) (*Result, error) {
	p, err := r.Prepare(kindTag, data)
	if err != nil {
		return nil, err
	}
	return r.Dispatch(ctx, p)
}

// Prepare validates the kind tag and decodes data into the kind's payload.
// No handler runs.
func (r *Router) Prepare(kindTag string, data json.RawMessage) (Payload, error) {
	if strings.TrimSpace(kindTag) == "" {
		return nil, MapError(fmt.Errorf("%w: type", ErrMissingFields))
	}
	k, ok := ParseKind(kindTag)
	if !ok {
		return nil, MapError(fmt.Errorf("%w: %q", ErrInvalidType, kindTag))
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, MapError(fmt.Errorf("%w: data", ErrMissingFields))
	}
	if trimmed[0] != '{' {
		return nil, MapError(fmt.Errorf("%w: data must be an object", ErrMissingFields))
	}
	p, err := r.handlers[k].decode(trimmed)
	if err != nil {
		return nil, MapError(err)
	}
	if missing := p.missing(); len(missing) > 0 {
		return nil, MapError(fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", ")))
	}
	return p, nil
}

// Dispatch runs the handler for p. The returned Result is non-nil even on
// error so callers can record attempts.
func (r *Router) Dispatch(ctx context.Context, p Payload) (res *Result, err error) {
	k := p.Kind()
	res = &Result{Kind: k}
	h, ok := r.handlers[k]
	if !ok {
		return res, MapError(fmt.Errorf("%w: %d", ErrInvalidType, k))
	}

	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("generation.panic", map[string]any{
				"kind":  k.String(),
				"panic": fmt.Sprint(rec),
			})
			res.Response = nil
			err = &Error{
				Code:    CodeUnknown,
				Status:  500,
				Message: "Unable to generate guidance right now",
				Err:     fmt.Errorf("handler panic: %v", rec),
			}
		}
	}()

	c := &call{rt: r, res: res, kind: k, now: r.now()}
	resp, genErr := h.generate(ctx, c, p)
	if genErr == nil {
		res.Response = resp
		return res, nil
	}

	if h.local == nil || !fallbackEligible(genErr) {
		mapped := MapError(genErr)
		telemetry.Error("generation.error", map[string]any{
			"kind":     k.String(),
			"code":     mapped.Code,
			"attempts": res.Attempts,
			"error":    genErr,
		})
		return res, mapped
	}

	res.Fallback = true
	res.FallbackReason = fallbackReason(genErr)
	telemetry.Warn("generation.fallback", map[string]any{
		"kind":     k.String(),
		"reason":   res.FallbackReason,
		"attempts": res.Attempts,
		"error":    genErr,
	})
	res.Response = h.local(c, p)
	return res, nil
}

// fallbackEligible reports whether err may be answered with a local response:
// invalid or empty upstream output, or retryable failures that outlasted the policy.
func fallbackEligible(err error) bool {
	var invalid *ValidationError
	return errors.As(err, &invalid) ||
		errors.Is(err, llm.ErrEmptyResponse) ||
		errors.Is(err, retry.ErrExhausted)
}

func fallbackReason(err error) string {
	var invalid *ValidationError
	switch {
	case errors.As(err, &invalid):
		return "validation"
	case errors.Is(err, llm.ErrEmptyResponse):
		return "empty"
	default:
		return "exhausted"
	}
}

// handler is the per-kind unit: payload decoding, one upstream generation,
// and an optional local fallback.
type handler struct {
	decode   func(data json.RawMessage) (Payload, error)
	generate func(ctx context.Context, c *call, p Payload) (Response, error)
	local    func(c *call, p Payload) Response
}

func newHandler(k Kind) handler {
	switch k {
	case KindCardInterpretation:
		return cardInterpretationHandler()
	case KindReflectionPrompts:
		return reflectionPromptsHandler()
	case KindPersonalizedGuidance:
		return personalizedGuidanceHandler()
	case KindNorthNodeInsight:
		return northNodeInsightHandler()
	case KindCompatibilityReport:
		return compatibilityReportHandler()
	case KindStructuredReflection:
		return structuredReflectionHandler()
	}
	panic(fmt.Sprintf("reflection: no handler for kind %d", int(k)))
}

func decodeAs[T Payload](data json.RawMessage) (Payload, error) {
	var p T
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidData, err)
	}
	return p, nil
}

// call carries per-request state into a handler.
type call struct {
	rt   *Router
	res  *Result
	kind Kind
	now  time.Time
}

func (c *call) timestamp() string {
	return c.now.UTC().Format(time.RFC3339)
}

// ask sends req upstream under the retry policy and parses the reply.
func ask[T any](ctx context.Context, c *call, req llm.Request, parse func(string) (T, error)) (T, error) {
	var zero T
	ex := c.rt.exec
	ex.Label = c.kind.String()
	text, trace, err := retry.Do(ctx, &ex, func(ctx context.Context) (string, error) {
		return c.rt.client.Generate(ctx, req)
	})
	c.res.Attempts = trace.Attempts()
	if err != nil {
		return zero, err
	}
	v, err := parse(text)
	if err != nil {
		c.res.Rejected = text
		return zero, err
	}
	return v, nil
}

// lockedRand serializes access to a *rand.Rand shared by concurrent requests.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Intn(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Intn(n)
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Perm(n int) []int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Perm(n)
}
