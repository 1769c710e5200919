package stream

import (
	"math/rand"
	"sync"

	"muster/internal/event"
)

// Sampler thins high-volume, low-severity events before they reach the
// stream. INFO and above always pass; DEBUG is sampled at the configured
// rate.
type Sampler struct {
	mu        sync.RWMutex
	debugRate float64
	byAction  map[string]float64
}

// NewSampler creates a sampler with the given DEBUG pass rate in [0, 1].
func NewSampler(debugRate float64) *Sampler {
	return &Sampler{
		debugRate: clampRate(debugRate),
		byAction:  make(map[string]float64),
	}
}

// ShouldPublish reports whether the event survives sampling.
func (s *Sampler) ShouldPublish(e *event.Event) bool {
	s.mu.RLock()
	rate, overridden := s.byAction[e.Action]
	debugRate := s.debugRate
	s.mu.RUnlock()

	if overridden {
		return rand.Float64() < rate //nolint:gosec // sampling doesn't need crypto rand
	}
	if e.Level >= event.LevelInfo {
		return true
	}
	return rand.Float64() < debugRate //nolint:gosec // sampling doesn't need crypto rand
}

// SetRate overrides the pass rate for one action regardless of level.
func (s *Sampler) SetRate(action string, rate float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byAction[action] = clampRate(rate)
}

func clampRate(rate float64) float64 {
	if rate < 0 {
		return 0
	}
	if rate > 1 {
		return 1
	}
	return rate
}
