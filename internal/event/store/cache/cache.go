// Package cache wraps an event store with a Redis read-through cache for
// get-by-id. Events are immutable once persisted, so cached copies can never
// go stale; the TTL only bounds memory usage.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"muster/internal/event"
	platformredis "muster/internal/platform/redis"
	id "muster/pkg/domain"
)

// Store decorates an event.Store. Scans and appends pass straight through;
// Get consults Redis first. Cache failures degrade to the backing store and
// are logged, never surfaced.
type Store struct {
	next   event.Store
	redis  *platformredis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func New(next event.Store, redis *platformredis.Client, ttl time.Duration, logger *slog.Logger) *Store {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{next: next, redis: redis, ttl: ttl, logger: logger}
}

func cacheKey(eventID id.EventID) string {
	return "event:" + eventID.String()
}

// cachedEvent is the Redis JSON shape. Kept separate from the wire format so
// cache contents can evolve independently of API responses.
type cachedEvent struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ObjID        string    `json:"obj_id"`
	ObjType      string    `json:"obj_type"`
	ObjName      string    `json:"obj_name"`
	Action       string    `json:"action"`
	Status       string    `json:"status"`
	StatusReason string    `json:"status_reason"`
	Level        int       `json:"level"`
	ClusterID    string    `json:"cluster_id,omitempty"`
	Project      string    `json:"project"`
	User         string    `json:"user"`
}

func toCached(e *event.Event) cachedEvent {
	c := cachedEvent{
		ID:           e.ID.String(),
		Timestamp:    e.Timestamp,
		ObjID:        e.ObjID,
		ObjType:      e.ObjType,
		ObjName:      e.ObjName,
		Action:       e.Action,
		Status:       e.Status,
		StatusReason: e.StatusReason,
		Level:        int(e.Level),
		Project:      e.Project,
		User:         e.User,
	}
	if !e.ClusterID.IsNil() {
		c.ClusterID = e.ClusterID.String()
	}
	return c
}

func fromCached(c cachedEvent) (*event.Event, error) {
	eventID, err := id.ParseEventID(c.ID)
	if err != nil {
		return nil, err
	}
	e := &event.Event{
		ID:           eventID,
		Timestamp:    c.Timestamp,
		ObjID:        c.ObjID,
		ObjType:      c.ObjType,
		ObjName:      c.ObjName,
		Action:       c.Action,
		Status:       c.Status,
		StatusReason: c.StatusReason,
		Level:        event.Level(c.Level),
		Project:      c.Project,
		User:         c.User,
	}
	if c.ClusterID != "" {
		clusterID, err := id.ParseClusterID(c.ClusterID)
		if err != nil {
			return nil, err
		}
		e.ClusterID = clusterID
	}
	return e, nil
}

func (s *Store) Append(ctx context.Context, e *event.Event) error {
	return s.next.Append(ctx, e)
}

func (s *Store) Get(ctx context.Context, eventID id.EventID) (*event.Event, error) {
	if s.redis != nil {
		raw, err := s.redis.Get(ctx, cacheKey(eventID)).Bytes()
		if err == nil {
			var c cachedEvent
			if jsonErr := json.Unmarshal(raw, &c); jsonErr == nil {
				if e, convErr := fromCached(c); convErr == nil {
					return e, nil
				}
			}
			// Unreadable entries fall through to the store and get rewritten.
		}
	}

	e, err := s.next.Get(ctx, eventID)
	if err != nil {
		return nil, err
	}
	s.put(ctx, e)
	return e, nil
}

func (s *Store) put(ctx context.Context, e *event.Event) {
	if s.redis == nil {
		return
	}
	raw, err := json.Marshal(toCached(e))
	if err != nil {
		return
	}
	if err := s.redis.Set(ctx, cacheKey(e.ID), raw, s.ttl).Err(); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "event cache write failed",
			"event_id", e.ID.String(),
			"error", err,
		)
	}
}

func (s *Store) Scan(ctx context.Context, filter event.Filter, sort event.Sort, marker *id.EventID, limit int) ([]*event.Event, *id.EventID, error) {
	return s.next.Scan(ctx, filter, sort, marker, limit)
}
