package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"reflection-backend/internal/llm"
	"reflection-backend/internal/shared/telemetry"
)

const (
	defaultModel   = "gemini-2.5-flash"
	defaultTimeout = 120 * time.Second
)

// Options configures a Client.
type Options struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client implements llm.Client on the Gemini API.
type Client struct {
	client *genai.Client
	model  string
}

// NewClient constructs a Gemini client using the API-key backend.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, llm.ErrMissingAPIKey
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     strings.TrimSpace(opts.APIKey),
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: &http.Client{Timeout: timeout},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", llm.ErrClientInit, err)
	}
	return &Client{client: c, model: model}, nil
}

// Provider implements llm.Named.
func (c *Client) Provider() string { return "gemini" }

// Model implements llm.Named.
func (c *Client) Model() string { return c.model }

// Generate sends a single GenerateContent call.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	temp := req.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature: &temp,
	}
	if req.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(req.MaxTokens)
	}
	if strings.TrimSpace(req.System) != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	started := time.Now()
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(req.User), cfg)
	if err != nil {
		return "", classify(err)
	}
	content := strings.TrimSpace(resp.Text())
	if content == "" {
		return "", llm.ErrEmptyResponse
	}
	fields := map[string]any{
		"provider":    "gemini",
		"model":       c.model,
		"duration_ms": time.Since(started).Milliseconds(),
	}
	if resp.UsageMetadata != nil {
		fields["total_tokens"] = resp.UsageMetadata.TotalTokenCount
	}
	telemetry.Info("llm.response", fields)
	return content, nil
}

func classify(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return &llm.UpstreamError{
			Class:      llm.ClassifyStatus(apiErr.Code),
			StatusCode: apiErr.Code,
			Message:    apiErr.Message,
			Err:        err,
		}
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return &llm.UpstreamError{
			Class:      llm.ClassifyStatus(apiErrPtr.Code),
			StatusCode: apiErrPtr.Code,
			Message:    apiErrPtr.Message,
			Err:        err,
		}
	}
	return llm.TransportError(err)
}

var (
	_ llm.Client = (*Client)(nil)
	_ llm.Named  = (*Client)(nil)
)
