// Package resilience wraps calls to remote model servers with a circuit
// breaker and bounded retries.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"

	"github.com/custodia-labs/ragsample/internal/logger"
)

// DefaultBackoff is the delay before the first retry. It doubles per attempt.
const DefaultBackoff = 250 * time.Millisecond

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = errors.New("circuit open")

// permanentError marks a failure that retrying cannot fix.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not retryable. Permanent errors do not trip the breaker.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// Guard runs calls through a circuit breaker, retrying transient failures.
type Guard struct {
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	backoff    time.Duration
}

// NewGuard creates a guard named after the remote service.
// maxRetries is the number of attempts after the first one.
func NewGuard(name string, maxRetries int) *Guard {
	if maxRetries < 0 {
		maxRetries = 0
	}
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || IsPermanent(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker %s: %s -> %s", name, from, to)
		},
	})
	return &Guard{breaker: breaker, maxRetries: maxRetries, backoff: DefaultBackoff}
}

// WithBackoff sets the initial retry delay.
func (g *Guard) WithBackoff(d time.Duration) *Guard {
	g.backoff = d
	return g
}

// Do calls fn until it succeeds, fails permanently or retries run out.
// The returned error is never wrapped in the permanent marker.
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	delay := g.backoff
	var err error
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("retrying %s (attempt %d/%d): %v", g.breaker.Name(), attempt, g.maxRetries, err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		_, err = g.breaker.Execute(func() (interface{}, error) {
			return nil, fn(ctx)
		})
		if err == nil {
			return nil
		}

		var p *permanentError
		if errors.As(err, &p) {
			return p.err
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %s: %v", ErrCircuitOpen, g.breaker.Name(), err)
		}
		if ctx.Err() != nil {
			return err
		}
	}
	return err
}

// State returns the breaker state name.
func (g *Guard) State() string {
	return g.breaker.State().String()
}
