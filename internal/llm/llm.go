package llm

import (
	"context"
	"errors"
)

// Client abstracts the upstream text-generation provider.
type Client interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// Request is a single system/user prompt pair sent upstream.
type Request struct {
	System      string
	User        string
	MaxTokens   int
	Temperature float32
	// JSON asks the provider for a JSON object response.
	JSON bool
}

// Named is implemented by clients that report a provider and model name.
type Named interface {
	Provider() string
	Model() string
}

var (
	// ErrMissingAPIKey is returned when no usable upstream credential is configured.
	ErrMissingAPIKey = errors.New("llm api key not configured")
	// ErrClientInit wraps failures constructing the upstream client.
	ErrClientInit = errors.New("llm client init failed")
	// ErrEmptyResponse is returned when the provider answers with no content.
	ErrEmptyResponse = errors.New("llm response empty content")
)

// ClientFunc adapts a function to the Client interface.
type ClientFunc func(ctx context.Context, req Request) (string, error)

// Generate calls f.
func (f ClientFunc) Generate(ctx context.Context, req Request) (string, error) {
	return f(ctx, req)
}
