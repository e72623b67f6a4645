package engine

import (
	"sync"
	"time"
)

// BreakerState is the circuit breaker's operating mode.
type BreakerState int

const (
	// BreakerClosed allows all attempts.
	BreakerClosed BreakerState = iota
	// BreakerOpen rejects attempts until the cooldown elapses.
	BreakerOpen
	// BreakerHalfOpen has one trial attempt in flight.
	BreakerHalfOpen
)

// String returns the state name as used in health output.
func (s BreakerState) String() string {
	switch s {
	case BreakerClosed:
		return "closed"
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// breaker isolates repeated generation failures. After threshold consecutive
// failures it opens; after cooldown it admits exactly one trial attempt,
// closing on success and reopening on failure. A disabled breaker admits
// everything and records nothing.
type breaker struct {
	enabled   bool
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu          sync.Mutex
	state       BreakerState
	failures    int
	lastFailure time.Time
}

func newBreaker(enabled bool, threshold int, cooldown time.Duration) *breaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &breaker{
		enabled:   enabled,
		threshold: threshold,
		cooldown:  cooldown,
		now:       time.Now,
	}
}

// allow reports whether an attempt may proceed, transitioning open to
// half-open when the cooldown has elapsed. Only one half-open trial is
// admitted; further calls are rejected until the trial reports its outcome.
func (b *breaker) allow() bool {
	if !b.enabled {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return true
	case BreakerOpen:
		if b.now().Sub(b.lastFailure) >= b.cooldown {
			b.state = BreakerHalfOpen
			return true
		}
		return false
	default: // BreakerHalfOpen, trial in flight
		return false
	}
}

func (b *breaker) recordSuccess() {
	if !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = BreakerClosed
	b.failures = 0
}

func (b *breaker) recordFailure() {
	if !b.enabled {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailure = b.now()
	if b.state == BreakerHalfOpen || b.failures >= b.threshold {
		b.state = BreakerOpen
	}
}

// currentState returns the state for health reporting.
func (b *breaker) currentState() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
