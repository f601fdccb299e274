package middleware

import "sync"

// breaker trips after a run of consecutive primary store errors and resets
// after a run of consecutive successful probes while tripped.
type breaker struct {
	mu      sync.Mutex
	tripped bool
	streak  int // consecutive failures while closed, consecutive successes while tripped

	tripAfter  int
	resetAfter int
}

func newCircuitBreaker(tripAfter, resetAfter int) *breaker {
	if tripAfter < 1 {
		tripAfter = 1
	}
	if resetAfter < 1 {
		resetAfter = 1
	}
	return &breaker{tripAfter: tripAfter, resetAfter: resetAfter}
}

func (b *breaker) IsOpen() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tripped
}

// RecordFailure reports whether the breaker is tripped after the failure.
func (b *breaker) RecordFailure() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.tripped {
		b.streak = 0
		return true
	}
	b.streak++
	if b.streak >= b.tripAfter {
		b.tripped, b.streak = true, 0
	}
	return b.tripped
}

// RecordSuccess reports whether the breaker is closed after the success.
func (b *breaker) RecordSuccess() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.tripped {
		b.streak = 0
		return true
	}
	b.streak++
	if b.streak >= b.resetAfter {
		b.tripped, b.streak = false, 0
	}
	return !b.tripped
}
