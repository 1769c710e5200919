package recorder

import (
	"sync"
	"time"
)

// circuitBreaker keeps a flapping event store from being hammered by every
// recording. While open, appends go straight to the retry buffer without
// touching the store.
type circuitBreaker struct {
	mu sync.RWMutex

	threshold int           // consecutive failures to open
	cooldown  time.Duration // how long to stay open

	failures  int
	openUntil time.Time
	open      bool
}

func newCircuitBreaker(threshold int, cooldown time.Duration) *circuitBreaker {
	if threshold <= 0 {
		threshold = 5
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &circuitBreaker{threshold: threshold, cooldown: cooldown}
}

// Allow reports whether a store append may be attempted. After the cooldown
// the breaker half-opens and lets one attempt probe the store.
func (cb *circuitBreaker) Allow() bool {
	cb.mu.RLock()
	if !cb.open {
		cb.mu.RUnlock()
		return true
	}
	expired := time.Now().After(cb.openUntil)
	cb.mu.RUnlock()

	if !expired {
		return false
	}

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.open && time.Now().After(cb.openUntil) {
		cb.open = false
		cb.failures = 0
	}
	return !cb.open
}

func (cb *circuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures = 0
	cb.open = false
}

func (cb *circuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.failures++
	if cb.failures >= cb.threshold {
		cb.open = true
		cb.openUntil = time.Now().Add(cb.cooldown)
	}
}

func (cb *circuitBreaker) IsOpen() bool {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.open
}
