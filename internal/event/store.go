package event

import (
	"context"

	id "muster/pkg/domain"
)

// Store is append-only persistence for event records. Implementations must
// make a single Append atomic and visible to scans that start after Append
// returns; they never update or delete records.
//
// Stores are pure I/O. Scoping, limit capping, and filter validation belong
// to the query engine (internal/event/service).
type Store interface {
	// Append persists the event. The caller assigns the id; a duplicate id
	// yields sentinel.ErrConflict. An unreachable backing medium yields
	// sentinel.ErrUnavailable (possibly wrapped).
	Append(ctx context.Context, e *Event) error

	// Get returns the event with the given id, or sentinel.ErrNotFound.
	Get(ctx context.Context, eventID id.EventID) (*Event, error)

	// Scan returns at most limit events matching filter, ordered per sort
	// with id tie-break, starting strictly after the event identified by
	// marker. A nil marker starts from the beginning. A marker that does not
	// name a stored event yields sentinel.ErrInvalidMarker. The returned
	// marker points at the last event of the page, or is nil when the page
	// is not full.
	Scan(ctx context.Context, filter Filter, sort Sort, marker *id.EventID, limit int) ([]*Event, *id.EventID, error)
}
