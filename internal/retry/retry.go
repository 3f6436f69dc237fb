// Package retry provides the single retry policy applied to every external
// fetch and every store write: capped exponential backoff with jitter.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Policy holds retry parameters. The zero value is unusable; construct with
// New.
type Policy struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// New creates a retry policy. Attempts below 1 are treated as 1.
func New(maxAttempts int, baseDelay, maxDelay time.Duration) *Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}
	if maxDelay < baseDelay {
		maxDelay = baseDelay
	}
	return &Policy{maxAttempts: maxAttempts, baseDelay: baseDelay, maxDelay: maxDelay}
}

// Do runs fn until it succeeds, attempts are exhausted, or the context is
// canceled. The delay before attempt n is base*2^(n-1) capped at maxDelay,
// with up to 25% random jitter added to desynchronize concurrent runs.
func (p *Policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	delay := p.baseDelay

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if err := fn(ctx); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if attempt == p.maxAttempts {
			break
		}

		jittered := delay + time.Duration(rand.Int63n(int64(delay)/4+1))
		select {
		case <-time.After(jittered):
		case <-ctx.Done():
			return ctx.Err()
		}

		delay *= 2
		if delay > p.maxDelay {
			delay = p.maxDelay
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", p.maxAttempts, lastErr)
}
