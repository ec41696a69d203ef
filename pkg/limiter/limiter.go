// Package limiter paces provider calls. One limiter is shared by
// every worker of a run, so retries and rate limit penalties slow
// the whole pipeline and not just the call that hit them.
package limiter

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Policy describes pacing and retry behavior.
type Policy struct {
	// CallsPerSecond is the steady request rate.
	CallsPerSecond float64

	// BackoffBase is the wait after the first failed attempt.
	// Each further attempt doubles it up to BackoffMax.
	BackoffBase time.Duration
	BackoffMax  time.Duration

	// MaxAttempts caps attempts per call, the first try included.
	MaxAttempts int
}

// Limiter gates calls at a steady rate and holds a shared penalty
// window after rate limit responses. Safe for concurrent use.
type Limiter struct {
	gate   *rate.Limiter
	policy Policy

	mu           sync.Mutex
	penaltyUntil time.Time
}

// New creates a limiter with the given policy. Zero or negative
// policy fields fall back to safe defaults.
func New(p Policy) *Limiter {
	if p.CallsPerSecond <= 0 {
		p.CallsPerSecond = 1
	}
	if p.BackoffBase <= 0 {
		p.BackoffBase = 2 * time.Second
	}
	if p.BackoffMax <= 0 {
		p.BackoffMax = 60 * time.Second
	}
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 5
	}
	return &Limiter{
		gate:   rate.NewLimiter(rate.Limit(p.CallsPerSecond), 1),
		policy: p,
	}
}

// Policy returns the limiter's effective policy.
func (l *Limiter) Policy() Policy { return l.policy }

// Acquire blocks until the caller may issue a request. It honors the
// steady rate and any active penalty window, and returns early when
// the context is canceled.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := l.waitPenalty(ctx); err != nil {
		return err
	}
	return l.gate.Wait(ctx)
}

// Throttled registers a rate limit response. Calls acquired before
// the penalty expires will wait it out. A zero hint falls back to
// the policy's base backoff.
func (l *Limiter) Throttled(retryAfter time.Duration) {
	if retryAfter <= 0 {
		retryAfter = l.policy.BackoffBase
	}
	if retryAfter > l.policy.BackoffMax {
		retryAfter = l.policy.BackoffMax
	}
	until := time.Now().Add(retryAfter)

	l.mu.Lock()
	defer l.mu.Unlock()
	if until.After(l.penaltyUntil) {
		l.penaltyUntil = until
	}
}

// Settle clears any penalty window after a successful call.
func (l *Limiter) Settle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.penaltyUntil = time.Time{}
}

// Backoff returns the wait before retry number attempt, where the
// first retry is attempt 1.
func (l *Limiter) Backoff(attempt int) time.Duration {
	d := l.policy.BackoffBase
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= l.policy.BackoffMax {
			return l.policy.BackoffMax
		}
	}
	if d > l.policy.BackoffMax {
		return l.policy.BackoffMax
	}
	return d
}

// Retry runs fn under the limiter until it succeeds, fails with a
// non-retryable error, exhausts the attempt budget, or the context
// is canceled. The retryable predicate decides which errors earn
// another attempt.
func (l *Limiter) Retry(
	ctx context.Context,
	fn func(ctx context.Context) error,
	retryable func(error) bool,
) error {
	var lastErr error
	for attempt := 1; attempt <= l.policy.MaxAttempts; attempt++ {
		if err := l.Acquire(ctx); err != nil {
			return err
		}
		lastErr = fn(ctx)
		if lastErr == nil {
			l.Settle()
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == l.policy.MaxAttempts {
			break
		}
		if err := sleep(ctx, l.Backoff(attempt)); err != nil {
			return err
		}
	}
	return errors.Join(
		errors.New("attempt budget exhausted"), lastErr,
	)
}

func (l *Limiter) waitPenalty(ctx context.Context) error {
	l.mu.Lock()
	wait := time.Until(l.penaltyUntil)
	l.mu.Unlock()
	if wait <= 0 {
		return nil
	}
	return sleep(ctx, wait)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
