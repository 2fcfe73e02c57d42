package reflection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"reflection-backend/internal/llm"
)

const (
	CodeMissingAPIKey = "MISSING_API_KEY"
	CodeClientInit    = "CLIENT_INIT_ERROR"
	CodeInvalidJSON   = "INVALID_JSON"
	CodeMissingFields = "MISSING_FIELDS"
	CodeInvalidType   = "INVALID_TYPE"
	CodeNetwork       = "NETWORK_ERROR"
	CodeRateLimit     = "RATE_LIMIT"
	CodeInvalidAPIKey = "INVALID_API_KEY"
	CodeUnknown       = "UNKNOWN_ERROR"
	CodeLimitReached  = "LIMIT_REACHED"
)

var (
	ErrInvalidType   = errors.New("invalid request type")
	ErrMissingFields = errors.New("missing required fields")
	ErrInvalidData   = errors.New("invalid request data")
)

// ValidationError reports upstream output that failed the kind's schema.
type ValidationError struct {
	Kind   Kind
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid upstream output: %s", e.Kind, e.Reason)
}

// Error is a failure mapped to the client-facing taxonomy.
type Error struct {
	Code    string
	Status  int
	Message string
	Details string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code + ": " + e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// MapError converts any error raised while serving a request to an *Error.
// Request-shape errors are 400; everything raised past dispatch is 500.
func MapError(err error) *Error {
	if err == nil {
		return nil
	}
	var mapped *Error
	if errors.As(err, &mapped) {
		return mapped
	}

	out := &Error{Status: http.StatusInternalServerError, Err: err}
	var upstream *llm.UpstreamError
	var invalid *ValidationError
	switch {
	case errors.Is(err, ErrInvalidType):
		out.Status, out.Code, out.Message = http.StatusBadRequest, CodeInvalidType, "Invalid request type"
	case errors.Is(err, ErrMissingFields):
		out.Status, out.Code, out.Message = http.StatusBadRequest, CodeMissingFields, "Missing required fields"
		out.Details = detailAfter(err, ErrMissingFields)
	case errors.Is(err, ErrInvalidData):
		out.Status, out.Code, out.Message = http.StatusBadRequest, CodeInvalidJSON, "Invalid request data"
		out.Details = detailAfter(err, ErrInvalidData)
	case errors.Is(err, llm.ErrMissingAPIKey):
		out.Code, out.Message = CodeMissingAPIKey, "AI service is not configured"
	case errors.Is(err, llm.ErrClientInit):
		out.Code, out.Message = CodeClientInit, "AI service failed to initialize"
	case errors.As(err, &upstream) && upstream.StatusCode == http.StatusUnauthorized:
		out.Code, out.Message = CodeInvalidAPIKey, "AI service credentials were rejected"
	case llm.ClassOf(err) == llm.ClassTransientNetwork, errors.Is(err, context.DeadlineExceeded):
		out.Code, out.Message = CodeNetwork, "Unable to reach the AI service"
	case llm.ClassOf(err) == llm.ClassRateLimit:
		out.Code, out.Message = CodeRateLimit, "AI service is busy, please try again shortly"
	case errors.As(err, &invalid):
		out.Code, out.Message, out.Details = CodeUnknown, "Unable to generate a valid response", invalid.Reason
	default:
		out.Code, out.Message = CodeUnknown, "Unable to generate guidance right now"
	}
	return out
}

func detailAfter(err, sentinel error) string {
	msg := err.Error()
	prefix := sentinel.Error() + ": "
	if strings.HasPrefix(msg, prefix) {
		return strings.TrimPrefix(msg, prefix)
	}
	return ""
}
