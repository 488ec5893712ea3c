package ilp

import (
	"context"
	"math/rand"
	"time"
)

// backoff implements exponential backoff with jitter for flush retries.
type backoff struct {
	initial time.Duration
	max     time.Duration
	current time.Duration
}

func newBackoff(initial, max time.Duration) *backoff {
	return &backoff{
		initial: initial,
		max:     max,
		current: initial,
	}
}

// sleep waits for the current backoff duration, then doubles it up to the
// cap. Returns early with the context error if cancelled.
func (b *backoff) sleep(ctx context.Context) error {
	// Jitter: ±20%
	jitter := float64(b.current) * 0.2 * (rand.Float64()*2 - 1)
	wait := time.Duration(float64(b.current) + jitter)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
	case <-ctx.Done():
		return ctx.Err()
	}

	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return nil
}

// reset returns the backoff to its initial duration.
func (b *backoff) reset() {
	b.current = b.initial
}
