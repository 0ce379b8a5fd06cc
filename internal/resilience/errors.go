package resilience

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ProviderError is a failed call to an AI provider. StatusCode is zero for
// failures that never produced an HTTP response.
type ProviderError struct {
	Platform   string
	StatusCode int
	Retryable  bool
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: status %d: %v", e.Platform, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Platform, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError classifies a provider failure by its HTTP status. A zero
// status is classified by the underlying error.
func NewProviderError(platform string, statusCode int, err error) *ProviderError {
	retryable := IsTransientHTTPStatus(statusCode)
	if statusCode == 0 {
		retryable = IsTransient(err)
	}
	return &ProviderError{
		Platform:   platform,
		StatusCode: statusCode,
		Retryable:  retryable,
		Err:        err,
	}
}

// StatusError builds a ProviderError from a non-2xx response body.
func StatusError(platform string, statusCode int, body []byte) *ProviderError {
	msg := strings.TrimSpace(string(body))
	if len(msg) > 300 {
		msg = msg[:300]
	}
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return NewProviderError(platform, statusCode, errors.New(msg))
}

// IsTransient reports whether err is worth another attempt: retryable
// provider statuses, per-attempt deadlines, and network-level failures.
// Cancellation of the caller's context is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, ErrCircuitOpen) {
		return false
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

var transientPatterns = []string{
	"connection reset by peer",
	"broken pipe",
	"temporary failure in name resolution",
	"tls handshake timeout",
	"i/o timeout",
	"server closed idle connection",
	"unexpected eof",
	"overloaded",
}

// IsTransientHTTPStatus reports whether a provider status code is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout,
		529: // Anthropic "overloaded"
		return true
	default:
		return false
	}
}
