// Package requestcontext provides HTTP-independent context accessors for request-scoped values.
//
// This package defines context keys and getter/setter functions for values that are
// typically set by middleware but consumed by services. By keeping this package free
// of net/http dependencies, services can import only what they need without pulling
// in HTTP-related code.
//
// Usage in services (read values):
//
//	project := requestcontext.Project(ctx)
//	requestID := requestcontext.RequestID(ctx)
//	now := requestcontext.Now(ctx)
//
// Usage in middleware (set values):
//
//	ctx = requestcontext.WithProject(ctx, project)
//	ctx = requestcontext.WithRequestID(ctx, requestID)
//
// Usage in tests (inject values):
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithAdmin(ctx, true)
package requestcontext

import (
	"context"
	"time"

	id "muster/pkg/domain"
)

// Context key types (unexported for encapsulation).
type (
	projectKey     struct{}
	userIDKey      struct{}
	adminKey       struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
	apiVersionKey  struct{}
)

// Exported context keys for direct use in tests that need context.WithValue.
var (
	ContextKeyProject     = projectKey{}
	ContextKeyUserID      = userIDKey{}
	ContextKeyAdmin       = adminKey{}
	ContextKeyRequestID   = requestIDKey{}
	ContextKeyRequestTime = requestTimeKey{}
	ContextKeyAPIVersion  = apiVersionKey{}
)

// -----------------------------------------------------------------------------
// Auth context (project, user, admin role)
// -----------------------------------------------------------------------------

// Project retrieves the caller's project (tenant) from the context.
// Returns the empty string if not set.
func Project(ctx context.Context) string {
	if project, ok := ctx.Value(ContextKeyProject).(string); ok {
		return project
	}
	return ""
}

// WithProject injects the caller's project into the context.
func WithProject(ctx context.Context, project string) context.Context {
	return context.WithValue(ctx, ContextKeyProject, project)
}

// UserID retrieves the authenticated user identifier from the context.
func UserID(ctx context.Context) string {
	if userID, ok := ctx.Value(ContextKeyUserID).(string); ok {
		return userID
	}
	return ""
}

// WithUserID injects a user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextKeyUserID, userID)
}

// IsAdmin reports whether the caller holds the admin role. Cross-project
// queries (global_project) are gated on this.
func IsAdmin(ctx context.Context) bool {
	if admin, ok := ctx.Value(ContextKeyAdmin).(bool); ok {
		return admin
	}
	return false
}

// WithAdmin marks the context as carrying (or not carrying) the admin role.
func WithAdmin(ctx context.Context, admin bool) context.Context {
	return context.WithValue(ctx, ContextKeyAdmin, admin)
}

// -----------------------------------------------------------------------------
// Request metadata
// -----------------------------------------------------------------------------

// RequestID retrieves the request ID from the context.
func RequestID(ctx context.Context) string {
	if reqID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return reqID
	}
	return ""
}

// WithRequestID injects a request ID into the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// APIVersion retrieves the negotiated microversion from the context.
// Returns the zero value if no version middleware ran.
func APIVersion(ctx context.Context) id.APIVersion {
	if v, ok := ctx.Value(ContextKeyAPIVersion).(id.APIVersion); ok {
		return v
	}
	return ""
}

// WithAPIVersion injects the negotiated microversion into the context.
func WithAPIVersion(ctx context.Context, v id.APIVersion) context.Context {
	return context.WithValue(ctx, ContextKeyAPIVersion, v)
}

// -----------------------------------------------------------------------------
// Request time
// -----------------------------------------------------------------------------

// Now retrieves the request-scoped time from context.
// Falls back to time.Now() if not set (for non-HTTP contexts like workers, CLI, tests).
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(ContextKeyRequestTime).(time.Time); ok {
		return t
	}
	return time.Now()
}

// WithTime injects a specific time into a context.
// Useful for:
//   - Service unit tests that don't run the full HTTP middleware chain
//   - Workers that need consistent time within a batch operation
func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, ContextKeyRequestTime, t)
}
