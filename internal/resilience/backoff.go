package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// BackoffConfig controls exponential backoff between retry attempts.
type BackoffConfig struct {
	// Base is the delay before the first retry. Default: 200ms.
	Base time.Duration

	// Multiplier scales the delay after each attempt. Default: 2.0.
	Multiplier float64

	// Cap bounds the computed delay. Default: 5s.
	Cap time.Duration

	// JitterFraction adds random jitter as a fraction of the computed delay
	// (0.0 = none, 0.5 = ±50%). Default: 0.
	JitterFraction float64
}

// DefaultBackoffConfig returns the retry pacing used by the orchestrator.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		Base:       200 * time.Millisecond,
		Multiplier: 2.0,
		Cap:        5 * time.Second,
	}
}

func (c BackoffConfig) withDefaults() BackoffConfig {
	if c.Base <= 0 {
		c.Base = 200 * time.Millisecond
	}
	if c.Multiplier <= 0 {
		c.Multiplier = 2.0
	}
	if c.Cap <= 0 {
		c.Cap = 5 * time.Second
	}
	if c.JitterFraction < 0 {
		c.JitterFraction = 0
	}
	return c
}

// Backoff computes the delay before retry number attempt (0-based: the
// delay after the first failure is Backoff(0)).
func (c BackoffConfig) Backoff(attempt int) time.Duration {
	c = c.withDefaults()

	delay := float64(c.Base) * math.Pow(c.Multiplier, float64(attempt))
	if delay > float64(c.Cap) {
		delay = float64(c.Cap)
	}

	if c.JitterFraction > 0 {
		jitterRange := delay * c.JitterFraction
		delay += (rand.Float64()*2 - 1) * jitterRange
	}

	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Sleep waits for the backoff delay of the given attempt, returning early
// with ctx.Err() if the context is cancelled. The wait is a timer select,
// never a blocking sleep, so concurrent jobs are not stalled.
func (c BackoffConfig) Sleep(ctx context.Context, attempt int) error {
	delay := c.Backoff(attempt)
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
