package domain

import (
	"github.com/google/uuid"

	dErrors "muster/pkg/domain-errors"
)

// Typed identifiers for the objects the control plane manages. Using distinct
// types keeps an EventID from ever being passed where a ClusterID is expected;
// the compiler enforces what would otherwise be a naming convention.
type (
	// EventID identifies one immutable event record.
	EventID uuid.UUID

	// ClusterID identifies the cluster an event belongs to. Events recorded
	// outside any cluster context carry a nil ClusterID.
	ClusterID uuid.UUID
)

// ParseEventID validates and returns an EventID.
// Rejects empty strings, malformed UUIDs, and the nil UUID.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return EventID{}, err
	}
	return EventID(u), nil
}

// ParseClusterID validates and returns a ClusterID.
func ParseClusterID(s string) (ClusterID, error) {
	u, err := parseUUID(s)
	if err != nil {
		return ClusterID{}, err
	}
	return ClusterID(u), nil
}

func parseUUID(s string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "identifier is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "identifier is not a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeBadRequest, "identifier must not be the nil UUID")
	}
	return u, nil
}

// NewEventID returns a fresh random EventID.
func NewEventID() EventID { return EventID(uuid.New()) }

func (id EventID) String() string { return uuid.UUID(id).String() }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id ClusterID) String() string { return uuid.UUID(id).String() }
func (id ClusterID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
