package openai

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"reflection-backend/internal/llm"
	"reflection-backend/internal/shared/telemetry"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 120 * time.Second
)

// Options configures a Client.
type Options struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client implements llm.Client using OpenAI Chat Completions.
// The HTTP client never retries on its own; retries belong to the caller.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

// NewClient constructs a new OpenAI client.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, llm.ErrMissingAPIKey
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:   strings.TrimSpace(opts.APIKey),
		model:    model,
		endpoint: base + "/chat/completions",
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Provider implements llm.Named.
func (c *Client) Provider() string { return "openai" }

// Model implements llm.Named.
func (c *Client) Model() string { return c.model }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Usage *struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage,omitempty"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate sends one chat completion request and returns the trimmed content.
// A model that rejects the requested temperature is retried once without it.
func (c *Client) Generate(ctx context.Context, req llm.Request) (string, error) {
	withTemp := !omitTemperature(c.model)
	content, err := c.complete(ctx, req, withTemp)
	if err != nil && withTemp && isTemperatureUnsupported(err) {
		telemetry.Warn("llm.temperature_unsupported", map[string]any{"model": c.model})
		return c.complete(ctx, req, false)
	}
	return content, err
}

func (c *Client) complete(ctx context.Context, req llm.Request, withTemp bool) (string, error) {
	messages := make([]chatMessage, 0, 2)
	if strings.TrimSpace(req.System) != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.User})

	body := chatRequest{
		Model:     c.model,
		Messages:  messages,
		MaxTokens: req.MaxTokens,
	}
	if withTemp {
		temp := req.Temperature
		body.Temperature = &temp
	}
	if req.JSON {
		body.ResponseFormat = &responseFormat{Type: "json_object"}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return "", &llm.UpstreamError{Class: llm.ClassFatal, Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", &llm.UpstreamError{Class: llm.ClassFatal, Err: err}
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", llm.TransportError(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", llm.TransportError(err)
	}

	var parsed chatResponse
	parseErr := json.Unmarshal(raw, &parsed)
	if resp.StatusCode >= 400 {
		msg := strings.TrimSpace(string(raw))
		if parseErr == nil && parsed.Error != nil {
			msg = fmt.Sprintf("%s (%s)", parsed.Error.Message, parsed.Error.Type)
		}
		return "", llm.StatusError(resp.StatusCode, msg)
	}
	if parseErr != nil {
		return "", &llm.UpstreamError{Class: llm.ClassFatal, Message: "response parse", Err: parseErr}
	}
	if parsed.Error != nil {
		return "", &llm.UpstreamError{Class: llm.ClassFatal, Message: fmt.Sprintf("%s (%s)", parsed.Error.Message, parsed.Error.Type)}
	}
	if len(parsed.Choices) == 0 {
		return "", &llm.UpstreamError{Class: llm.ClassFatal, Message: "response missing choices"}
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", llm.ErrEmptyResponse
	}
	logUsage(c.model, req, parsed, time.Since(started))
	return content, nil
}

func logUsage(model string, req llm.Request, parsed chatResponse, took time.Duration) {
	fields := map[string]any{
		"provider":    "openai",
		"model":       model,
		"prompt_hash": hashPrompt(req),
		"duration_ms": took.Milliseconds(),
	}
	if parsed.Usage != nil {
		fields["prompt_tokens"] = parsed.Usage.PromptTokens
		fields["completion_tokens"] = parsed.Usage.CompletionTokens
		fields["total_tokens"] = parsed.Usage.TotalTokens
	}
	telemetry.Info("llm.response", fields)
}

func isGPT5(model string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(model)), "gpt-5")
}

// omitTemperature reports models that only accept the default temperature,
// either gpt-5 family or listed in LLM_NO_TEMP_MODELS.
func omitTemperature(model string) bool {
	if isGPT5(model) {
		return true
	}
	name := strings.ToLower(strings.TrimSpace(model))
	for _, m := range strings.Split(os.Getenv("LLM_NO_TEMP_MODELS"), ",") {
		if strings.ToLower(strings.TrimSpace(m)) == name && name != "" {
			return true
		}
	}
	return false
}

func isTemperatureUnsupported(err error) bool {
	if llm.StatusOf(err) != http.StatusBadRequest {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "temperature") && strings.Contains(msg, "unsupported")
}

func hashPrompt(req llm.Request) string {
	sum := sha256.Sum256([]byte(req.System + "\n\n" + req.User))
	return hex.EncodeToString(sum[:8])
}

var (
	_ llm.Client = (*Client)(nil)
	_ llm.Named  = (*Client)(nil)
)
