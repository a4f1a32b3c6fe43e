package client

import (
	"math"
	"time"
)

// Backoff is a capped exponential retry policy.
type Backoff struct {
	Initial time.Duration
	Max     time.Duration
	Factor  float64
}

func DefaultBackoff() Backoff {
	return Backoff{Initial: 500 * time.Millisecond, Max: 30 * time.Second, Factor: 2}
}

// Delay returns the wait before retry number attempt (0 based).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := float64(b.Initial) * math.Pow(b.Factor, float64(attempt))
	if delay > float64(b.Max) || math.IsInf(delay, 0) || math.IsNaN(delay) {
		return b.Max
	}
	return time.Duration(delay)
}
