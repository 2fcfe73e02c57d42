package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"reflection-backend/internal/generations"
	"reflection-backend/internal/llm"
	"reflection-backend/internal/reflection"
	"reflection-backend/internal/services/health"
	"reflection-backend/internal/shared/auth"
	"reflection-backend/internal/shared/config"
	"reflection-backend/internal/usage"
)

func newTestServer(t *testing.T, perMinute int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	verifier, err := auth.NewVerifier("test-secret", false)
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}
	client := llm.ClientFunc(func(ctx context.Context, req llm.Request) (string, error) {
		return "Let today be gentle.", nil
	})
	repo := generations.NewMemoryRepo()
	usageSvc := usage.NewService(usage.Plan{Name: "Daily", Limit: 0})
	svc := &reflection.Service{
		Router: reflection.NewRouter(client, reflection.Options{}),
		Usage:  usageSvc,
		Log:    repo,
	}
	cfg := config.Config{Env: "dev", RateLimitPerMinute: perMinute, CORSAllowOrigin: []string{"*"}}
	return NewRouter(RouterDeps{
		Config:            cfg,
		Verifier:          verifier,
		HealthHandler:     health.NewHandler(&health.Service{Provider: "openai"}),
		GenerationHandler: reflection.NewHandler(svc),
		HistoryHandler:    generations.NewHandler(repo),
		UsageHandler:      usage.NewHandler(usageSvc),
	})
}

func TestPublicRoutes(t *testing.T) {
	r := newTestServer(t, 10)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok":true`) {
		t.Fatalf("health: %d %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "generation_started_total") {
		t.Fatalf("metrics: %d %s", w.Code, w.Body.String())
	}
}

func TestProtectedRoutesNeedIdentity(t *testing.T) {
	r := newTestServer(t, 10)
	for _, path := range []string{"/api/v1/me", "/api/v1/usage", "/api/v1/generations"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, w.Code)
		}
	}
}

func TestGenerationRouteIsRateLimited(t *testing.T) {
	r := newTestServer(t, 1)
	send := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/ai", bytes.NewBufferString(`{"type": "personalized-guidance", "data": {}}`))
		req.Header.Set("X-Guest-Id", "guest-1")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	if w := send(); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Let today be gentle.") {
		t.Fatalf("first request: %d %s", w.Code, w.Body.String())
	}
	w := send()
	if w.Code != http.StatusTooManyRequests || !strings.Contains(w.Body.String(), "RATE_LIMITED") {
		t.Fatalf("second request: %d %s", w.Code, w.Body.String())
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
}

func TestGuestMe(t *testing.T) {
	r := newTestServer(t, 10)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/me", nil)
	req.Header.Set("X-Guest-Id", "guest-9")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"userId":"guest:guest-9"`) {
		t.Fatalf("me: %d %s", w.Code, w.Body.String())
	}
	var body struct {
		Guest bool           `json:"guest"`
		Usage map[string]any `json:"usage"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !body.Guest || body.Usage["unlimited"] != true || body.Usage["remaining"] != float64(-1) {
		t.Fatalf("unexpected me body %s", w.Body.String())
	}
}

func TestAddr(t *testing.T) {
	cases := map[string]string{"": ":8080", "9000": ":9000", ":7000": ":7000"}
	for in, want := range cases {
		if got := Addr(in); got != want {
			t.Fatalf("Addr(%q) = %q, want %q", in, got, want)
		}
	}
}
