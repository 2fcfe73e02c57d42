package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
)

// ErrorClass is the closed set of upstream failure categories.
type ErrorClass int

const (
	ClassFatal ErrorClass = iota
	ClassTransientNetwork
	ClassRateLimit
	ClassServerError
)

// String returns the wire name of the class.
func (c ErrorClass) String() string {
	switch c {
	case ClassTransientNetwork:
		return "transient-network"
	case ClassRateLimit:
		return "rate-limit"
	case ClassServerError:
		return "server-error"
	default:
		return "fatal"
	}
}

// Retryable reports whether a failure of this class may be retried.
func (c ErrorClass) Retryable() bool {
	return c != ClassFatal
}

// UpstreamError is the only error shape provider clients return for failed calls.
type UpstreamError struct {
	Class      ErrorClass
	StatusCode int
	Message    string
	Err        error
}

func (e *UpstreamError) Error() string {
	switch {
	case e.StatusCode > 0 && e.Message != "":
		return fmt.Sprintf("upstream http status %d (%s): %s", e.StatusCode, e.Class, e.Message)
	case e.StatusCode > 0:
		return fmt.Sprintf("upstream http status %d (%s)", e.StatusCode, e.Class)
	case e.Err != nil:
		return fmt.Sprintf("upstream %s: %v", e.Class, e.Err)
	default:
		return fmt.Sprintf("upstream %s: %s", e.Class, e.Message)
	}
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// StatusError builds an UpstreamError for a non-2xx HTTP response.
func StatusError(status int, message string) *UpstreamError {
	return &UpstreamError{Class: ClassifyStatus(status), StatusCode: status, Message: message}
}

// TransportError builds an UpstreamError for a failed round trip.
func TransportError(err error) *UpstreamError {
	return &UpstreamError{Class: ClassifyTransport(err), Err: err}
}

// ClassifyStatus maps an upstream HTTP status to an ErrorClass.
func ClassifyStatus(status int) ErrorClass {
	switch status {
	case http.StatusTooManyRequests:
		return ClassRateLimit
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return ClassServerError
	default:
		return ClassFatal
	}
}

// ClassifyTransport maps a transport failure to an ErrorClass.
// Timeouts, DNS failures and reset/refused/aborted connections are transient.
func ClassifyTransport(err error) ErrorClass {
	if err == nil {
		return ClassFatal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransientNetwork
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return ClassTransientNetwork
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ClassTransientNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassTransientNetwork
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return ClassTransientNetwork
	}
	return ClassFatal
}

// ClassOf returns the class carried by err. Errors that did not come from an
// upstream call are fatal.
func ClassOf(err error) ErrorClass {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.Class
	}
	return ClassFatal
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.StatusCode
	}
	return 0
}
