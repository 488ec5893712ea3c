package ilp

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreaker guards flushes against a persistently failing endpoint.
// While open, flushes fail fast without touching the network and the buffer
// stays intact.
type CircuitBreaker interface {
	Execute(fn func() (bool, error)) (bool, error)
}

// NewCircuitBreakerConfig returns a factory for Config.NewCircuitBreaker.
// This is a helper for common use cases; any gobreaker settings work.
func NewCircuitBreakerConfig(maxRequests uint32, interval, timeout time.Duration) func(string) *gobreaker.CircuitBreaker[bool] {
	return func(addr string) *gobreaker.CircuitBreaker[bool] {
		settings := gobreaker.Settings{
			Name:        addr,
			MaxRequests: maxRequests,
			Interval:    interval,
			Timeout:     timeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
				return counts.Requests >= 3 && failureRatio >= 0.6
			},
		}
		return gobreaker.NewCircuitBreaker[bool](settings)
	}
}
