package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and infrastructure layers
// return these (optionally wrapped) so services can translate them into domain
// errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity does not exist in store
// - ErrConflict: an entity with the same identity already exists
// - ErrInvalidMarker: pagination marker does not resolve to a known position
// - ErrUnavailable: backing store temporarily unreachable or overloaded
//
// For validation errors (bad input, missing fields), use pkg/domain-errors
// directly.
var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrInvalidMarker = errors.New("invalid marker")
	ErrUnavailable   = errors.New("unavailable")
)
