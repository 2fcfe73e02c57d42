package gemini

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/genai"

	"reflection-backend/internal/llm"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(context.Background(), Options{})
	if !errors.Is(err, llm.ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestClassifyAPIError(t *testing.T) {
	tests := []struct {
		code int
		want llm.ErrorClass
	}{
		{code: 429, want: llm.ClassRateLimit},
		{code: 503, want: llm.ClassServerError},
		{code: 401, want: llm.ClassFatal},
	}
	for _, tt := range tests {
		err := classify(genai.APIError{Code: tt.code, Message: "x"})
		if got := llm.ClassOf(err); got != tt.want {
			t.Fatalf("code %d: class = %s, want %s", tt.code, got, tt.want)
		}
		if got := llm.StatusOf(err); got != tt.code {
			t.Fatalf("code %d: status = %d", tt.code, got)
		}
	}
}

func TestClassifyTransportFailure(t *testing.T) {
	err := classify(context.DeadlineExceeded)
	if got := llm.ClassOf(err); got != llm.ClassTransientNetwork {
		t.Fatalf("class = %s, want transient-network", got)
	}
}
