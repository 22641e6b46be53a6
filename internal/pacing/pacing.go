// Package pacing spaces out upstream calls made by a single task.
package pacing

import (
	"time"

	"golang.org/x/time/rate"
)

// DefaultDelay is the gap between consecutive upstream calls of one task.
const DefaultDelay = 500 * time.Millisecond

// Policy creates per-task limiters. Each task gets its own limiter so
// concurrent tasks never wait on each other.
type Policy struct {
	Delay time.Duration
}

// Default returns a 0.5s pacing policy.
func Default() Policy {
	return Policy{Delay: DefaultDelay}
}

// None returns a policy that never waits.
func None() Policy {
	return Policy{}
}

// NewLimiter returns a limiter that lets the first call through at once
// and spaces later ones by Delay.
func (p Policy) NewLimiter() *rate.Limiter {
	if p.Delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(p.Delay), 1)
}
