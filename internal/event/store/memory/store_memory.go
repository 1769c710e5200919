// Package memory provides an in-memory event store for tests and dev mode.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"muster/internal/event"
	id "muster/pkg/domain"
	"muster/pkg/platform/sentinel"
)

// InMemory keeps events in process memory. Appends and scans are safe for
// concurrent use; scans operate on copies so a page handed to a caller never
// observes later appends.
type InMemory struct {
	mu     sync.RWMutex
	byID   map[id.EventID]*event.Event
	events []*event.Event
	lastTS int64 // unix nanos of the newest append, for monotonic timestamps
}

func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[id.EventID]*event.Event)}
}

// Append stores a copy of e. Timestamps are clamped to be non-decreasing
// across appends so the default scan order is stable.
func (s *InMemory) Append(_ context.Context, e *event.Event) error {
	if e == nil || e.ID.IsNil() {
		return fmt.Errorf("append event: id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[e.ID]; exists {
		return sentinel.ErrConflict
	}

	stored := *e
	if stored.Timestamp.UnixNano() < s.lastTS {
		stored.Timestamp = time.Unix(0, s.lastTS)
	}
	s.lastTS = stored.Timestamp.UnixNano()

	s.byID[stored.ID] = &stored
	s.events = append(s.events, &stored)
	return nil
}

// Get returns a copy of the stored event, or sentinel.ErrNotFound.
func (s *InMemory) Get(_ context.Context, eventID id.EventID) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, ok := s.byID[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *stored
	return &cp, nil
}

// Scan returns at most limit matching events ordered per sortSpec with id
// tie-break, starting strictly after the marker event's sort position.
func (s *InMemory) Scan(_ context.Context, filter event.Filter, sortSpec event.Sort, marker *id.EventID, limit int) ([]*event.Event, *id.EventID, error) {
	s.mu.RLock()

	var after *event.Event
	if marker != nil {
		stored, ok := s.byID[*marker]
		// A marker outside the filter (notably another project's event) must
		// read exactly like an unknown one, or the error becomes an existence
		// oracle across projects.
		if !ok || !filter.Matches(stored) {
			s.mu.RUnlock()
			return nil, nil, sentinel.ErrInvalidMarker
		}
		after = stored
	}

	matched := make([]*event.Event, 0, len(s.events))
	for _, e := range s.events {
		if !filter.Matches(e) {
			continue
		}
		// Keyset pagination: only events strictly after the marker's
		// position survive, so concurrent appends past the marker never
		// shift earlier pages.
		if after != nil && !sortSpec.Less(after, e) {
			continue
		}
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return sortSpec.Less(matched[i], matched[j]) })

	truncated := limit > 0 && len(matched) > limit
	if truncated {
		matched = matched[:limit]
	}

	page := make([]*event.Event, len(matched))
	for i, e := range matched {
		cp := *e
		page[i] = &cp
	}

	// A next marker only exists when events past this page were seen.
	var next *id.EventID
	if truncated {
		last := page[len(page)-1].ID
		next = &last
	}
	return page, next, nil
}

// Len reports how many events are stored. Test helper.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
