package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

const (
	// DefaultMaxAttempts is how many times the primary endpoint is tried
	// when the failure is rate-limiting.
	DefaultMaxAttempts = 3
	// DefaultBaseDelay is the initial backoff delay, doubled per attempt.
	DefaultBaseDelay = 2 * time.Second
	// DefaultMaxBackoff caps cumulative backoff wait per call. Sustained
	// throttling fails over instead of accumulating unbounded delay.
	DefaultMaxBackoff = 30 * time.Second
)

// ProviderExhaustedError means both endpoints failed. It carries both
// underlying errors so the caller can distinguish rate limiting from outage.
type ProviderExhaustedError struct {
	PrimaryErr  error
	FallbackErr error
}

func (e *ProviderExhaustedError) Error() string {
	return fmt.Sprintf("all providers exhausted: primary: %v; fallback: %v", e.PrimaryErr, e.FallbackErr)
}

// Generator is the generation contract stages depend on. Coordinator is the
// production implementation; tests substitute fakes.
type Generator interface {
	Generate(ctx context.Context, req Request) (Outcome, error)
}

// Coordinator wraps a Client with primary/fallback failover. Rate limits are
// the dominant transient failure mode for shared LLM capacity, so only HTTP
// 429 on the primary is retried with backoff; any other primary error fails
// over immediately to preserve latency.
type Coordinator struct {
	client      *Client
	primary     Endpoint
	fallback    Endpoint
	maxAttempts int
	baseDelay   time.Duration
	maxBackoff  time.Duration
}

// CoordinatorOption adjusts retry behavior.
type CoordinatorOption func(*Coordinator)

// WithMaxAttempts sets the primary attempt limit.
func WithMaxAttempts(n int) CoordinatorOption {
	return func(c *Coordinator) { c.maxAttempts = n }
}

// WithBackoff sets the initial delay and the cumulative backoff cap.
func WithBackoff(base, max time.Duration) CoordinatorOption {
	return func(c *Coordinator) {
		c.baseDelay = base
		c.maxBackoff = max
	}
}

// NewCoordinator builds a failover coordinator over the two endpoints,
// ordered by preference.
func NewCoordinator(client *Client, primary, fallback Endpoint, opts ...CoordinatorOption) *Coordinator {
	c := &Coordinator{
		client:      client,
		primary:     primary,
		fallback:    fallback,
		maxAttempts: DefaultMaxAttempts,
		baseDelay:   DefaultBaseDelay,
		maxBackoff:  DefaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate runs the failover algorithm:
//  1. Try the primary up to maxAttempts times, backing off exponentially
//     only when the failure is a rate limit.
//  2. On primary exhaustion or any non-retryable primary failure, try the
//     fallback once.
//  3. If both fail, return ProviderExhaustedError with both causes.
func (c *Coordinator) Generate(ctx context.Context, req Request) (Outcome, error) {
	attempts := 0
	var primaryErr error
	var waited time.Duration

	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		attempts++
		text, err := c.client.Send(ctx, c.primary, req)
		if err == nil {
			return Outcome{ProviderUsed: c.primary.Name, RawText: text, Attempts: attempts}, nil
		}
		primaryErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRateLimit() {
			break // non-retryable: fail over without burning retry budget
		}

		delay := c.baseDelay * time.Duration(1<<attempt)
		if waited+delay > c.maxBackoff {
			break
		}
		select {
		case <-ctx.Done():
			return Outcome{}, ctx.Err()
		case <-time.After(delay):
			waited += delay
		}
	}

	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	attempts++
	text, fallbackErr := c.client.Send(ctx, c.fallback, req)
	if fallbackErr == nil {
		return Outcome{ProviderUsed: c.fallback.Name, RawText: text, Attempts: attempts}, nil
	}

	return Outcome{Attempts: attempts}, &ProviderExhaustedError{
		PrimaryErr:  primaryErr,
		FallbackErr: fallbackErr,
	}
}
