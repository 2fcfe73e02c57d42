package reflection

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"reflection-backend/internal/llm"
	"reflection-backend/internal/retry"
)

var testNow = time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)

type reply struct {
	text string
	err  error
}

// stubClient answers from a script; the last entry repeats.
type stubClient struct {
	mu       sync.Mutex
	script   []reply
	requests []llm.Request
}

func newStub(script ...reply) *stubClient {
	return &stubClient{script: script}
}

func (s *stubClient) Generate(ctx context.Context, req llm.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := len(s.requests)
	s.requests = append(s.requests, req)
	if i >= len(s.script) {
		i = len(s.script) - 1
	}
	r := s.script[i]
	return r.text, r.err
}

func (s *stubClient) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// sleeper records requested delays without waiting.
type sleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func (s *sleeper) recorded() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.delays...)
}

func noJitter(time.Duration) time.Duration { return 0 }

func newTestRouter(t *testing.T, client llm.Client, sl *sleeper, mutate ...func(*Options)) *Router {
	t.Helper()
	opts := Options{
		Policy: retry.DefaultPolicy(),
		Sleep:  sl.Sleep,
		Jitter: noJitter,
		Rand:   rand.New(rand.NewSource(7)),
		Now:    func() time.Time { return testNow },
	}
	for _, m := range mutate {
		m(&opts)
	}
	return NewRouter(client, opts)
}

const (
	validPromptsJSON    = `{"prompts": ["What is asking for your attention?", "Where do you feel resistance?", "What would ease look like?"]}`
	validStructuredJSON = `{"iChingReflection": "Stillness first.", "tarotReflection": "The Star offers hope.", "synthesis": "Rest, then begin.", "reflectionPrompt": "Where can you pause today?"}`
	validCompatJSON     = `{"score": 78, "title": "Steady Hearts", "summary": "You balance each other.",
		"stats": [
			{"label": "Emotional Connection", "score": 80, "description": "Warm."},
			{"label": "Communication", "score": 74, "description": "Open."},
			{"label": "Shared Values", "score": 70, "description": "Aligned."},
			{"label": "Karmic Bond", "score": 88, "description": "Old ties."}
		]}`
)

var samplePayloads = map[Kind]string{
	KindCardInterpretation:   `{"cardName": "The Star", "cardKeywords": ["Hope"], "hexagramName": "Stillness", "hexagramNumber": 52}`,
	KindReflectionPrompts:    `{"cardName": "The Fool", "cardKeywords": ["New Beginnings", "Trust"]}`,
	KindPersonalizedGuidance: `{"intention": "rest more", "mood": "tired"}`,
	KindNorthNodeInsight:     `{"name": "Alex", "birthDate": "2000-01-01"}`,
	KindCompatibilityReport:  `{"personA": {"name": "Alex", "birthDate": "1990-06-15"}, "personB": {"name": "Sam"}}`,
	KindStructuredReflection: `{"cardName": "The Star", "hexagramName": "Stillness", "changingLines": [2, 5]}`,
}

var validReplies = map[Kind]string{
	KindCardInterpretation:   "The Star and Stillness ask you to trust a quiet renewal.",
	KindReflectionPrompts:    validPromptsJSON,
	KindPersonalizedGuidance: "Let today be gentle.",
	KindNorthNodeInsight:     "Your North Node invites you to share your light.",
	KindCompatibilityReport:  validCompatJSON,
	KindStructuredReflection: validStructuredJSON,
}

func codeOf(t *testing.T, err error) string {
	t.Helper()
	e, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T (%v)", err, err)
	}
	return e.Code
}

func newSeeded(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}
