package provider

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors classify call failures. The limiter and the
// orchestrator branch on them with errors.Is.
var (
	// ErrTransient marks failures worth retrying with backoff,
	// such as timeouts and 5xx responses.
	ErrTransient = errors.New("transient provider failure")

	// ErrRateLimited marks 429 responses. Retried like transient
	// failures but also slows the shared rate gate.
	ErrRateLimited = errors.New("provider rate limit")

	// ErrSchema marks responses that parsed as JSON but did not
	// match the category's expected shape. Retried once with a
	// corrective prompt, then fatal for the task.
	ErrSchema = errors.New("response schema mismatch")

	// ErrFatal marks failures that retrying cannot fix, such as
	// auth errors and malformed requests.
	ErrFatal = errors.New("fatal provider failure")
)

// CallError wraps a classified failure with enough context to log
// and, for rate limits, to honor the server's retry hint.
type CallError struct {
	Kind       error
	StatusCode int
	RetryAfter time.Duration
	Msg        string
}

func (e *CallError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Kind, e.StatusCode, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *CallError) Unwrap() error { return e.Kind }

// Transient creates a retryable call error.
func Transient(status int, format string, args ...any) *CallError {
	return &CallError{
		Kind:       ErrTransient,
		StatusCode: status,
		Msg:        fmt.Sprintf(format, args...),
	}
}

// RateLimited creates a rate limit error carrying the server's
// suggested wait.
func RateLimited(retryAfter time.Duration) *CallError {
	return &CallError{
		Kind:       ErrRateLimited,
		StatusCode: 429,
		RetryAfter: retryAfter,
		Msg:        "too many requests",
	}
}

// SchemaViolation creates a schema mismatch error.
func SchemaViolation(format string, args ...any) *CallError {
	return &CallError{Kind: ErrSchema, Msg: fmt.Sprintf(format, args...)}
}

// Fatal creates a non-retryable call error.
func Fatal(status int, format string, args ...any) *CallError {
	return &CallError{
		Kind:       ErrFatal,
		StatusCode: status,
		Msg:        fmt.Sprintf(format, args...),
	}
}

// Retryable reports whether an error should be retried with backoff.
func Retryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrRateLimited)
}
