// Package service implements the event query engine: it turns client-facing
// filter requests into store scans, enforcing project scoping, page limits
// and microversion gates on the way.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"muster/internal/event"
	eventmetrics "muster/internal/event/metrics"
	id "muster/pkg/domain"
	dErrors "muster/pkg/domain-errors"
	"muster/pkg/platform/sentinel"
	"muster/pkg/requestcontext"
)

var tracer = otel.Tracer("muster/internal/event/service")

// Service is the query engine over an event store.
type Service struct {
	store     event.Store
	metrics   *eventmetrics.Metrics
	logger    *slog.Logger
	pageLimit int
}

func New(store event.Store, pageLimit int, logger *slog.Logger, metrics *eventmetrics.Metrics) *Service {
	if pageLimit <= 0 {
		pageLimit = 100
	}
	return &Service{store: store, metrics: metrics, logger: logger, pageLimit: pageLimit}
}

// ListRequest carries raw client input. The service owns validation so the
// handler stays a thin wire adapter.
type ListRequest struct {
	ObjID   string
	ObjType string
	ObjName string
	Action  string

	// ClusterID is gated on microversion 1.14.
	ClusterID string

	// GlobalProject requests cross-project visibility; admin only.
	GlobalProject bool

	Sort   string
	Marker string

	// Limit nil means "server default". Values above the cap are clamped.
	Limit *int
}

// ListResult is one page of events plus the marker for the next page.
type ListResult struct {
	Events     []*event.Event
	NextMarker *id.EventID
}

// List validates the request, injects the caller's project scope, and scans
// the store.
func (s *Service) List(ctx context.Context, req ListRequest) (*ListResult, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "event.List")
	defer span.End()

	filter, err := s.buildFilter(ctx, req)
	if err != nil {
		return nil, err
	}

	sortSpec, err := event.ParseSort(req.Sort)
	if err != nil {
		return nil, err
	}

	var marker *id.EventID
	if req.Marker != "" {
		m, err := id.ParseEventID(req.Marker)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeBadRequest, "marker is not a valid event id")
		}
		marker = &m
	}

	limit := s.pageLimit
	if req.Limit != nil {
		if *req.Limit <= 0 {
			return nil, dErrors.New(dErrors.CodeBadRequest, "limit must be a positive integer")
		}
		if *req.Limit < limit {
			limit = *req.Limit
		}
	}

	events, next, err := s.store.Scan(ctx, filter, sortSpec, marker, limit)
	if err != nil {
		return nil, s.wrapStoreErr(ctx, "scan events", err)
	}

	span.SetAttributes(attribute.Int("events.count", len(events)))
	if s.metrics != nil {
		s.metrics.ObserveList(start)
		s.metrics.EventsReturned.Add(float64(len(events)))
	}
	return &ListResult{Events: events, NextMarker: next}, nil
}

// Get returns one event by id, enforcing the same project scoping as List.
// A scoped-out event yields NotFound, never Forbidden, so existence does not
// leak across projects.
func (s *Service) Get(ctx context.Context, rawID string) (*event.Event, error) {
	start := time.Now()
	ctx, span := tracer.Start(ctx, "event.Get")
	defer span.End()

	eventID, err := id.ParseEventID(rawID)
	if err != nil {
		return nil, err
	}

	project, err := callerProject(ctx)
	if err != nil {
		return nil, err
	}

	e, err := s.store.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, s.wrapStoreErr(ctx, "get event", err)
	}

	if e.Project != project && !requestcontext.IsAdmin(ctx) {
		if s.metrics != nil {
			s.metrics.ScopeViolations.Inc()
		}
		return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
	}

	if s.metrics != nil {
		s.metrics.ObserveGet(start)
	}
	return e, nil
}

// buildFilter translates client filters and ANDs in the mandatory project
// scope. The scope comes from the authenticated context, never from request
// input, so no filter combination can widen it.
func (s *Service) buildFilter(ctx context.Context, req ListRequest) (event.Filter, error) {
	filter := event.Filter{
		ObjID:   req.ObjID,
		ObjType: req.ObjType,
		ObjName: req.ObjName,
		Action:  req.Action,
	}

	if req.ClusterID != "" {
		if !negotiatedVersion(ctx).SupportsFilter("cluster_id") {
			return event.Filter{}, dErrors.New(dErrors.CodeBadRequest,
				"parameter cluster_id requires API version "+id.APIVersion1_14.String()+" or later")
		}
		clusterID, err := id.ParseClusterID(req.ClusterID)
		if err != nil {
			return event.Filter{}, dErrors.New(dErrors.CodeBadRequest, "cluster_id is not a valid UUID")
		}
		filter.ClusterID = clusterID
	}

	if req.GlobalProject {
		if !requestcontext.IsAdmin(ctx) {
			if s.metrics != nil {
				s.metrics.ScopeViolations.Inc()
			}
			return event.Filter{}, dErrors.New(dErrors.CodeForbidden,
				"global_project requires the admin role")
		}
		// Admin asked for cross-project visibility: no project predicate.
		return filter, nil
	}

	project, err := callerProject(ctx)
	if err != nil {
		return event.Filter{}, err
	}
	filter.Project = project
	return filter, nil
}

func callerProject(ctx context.Context) (string, error) {
	project := requestcontext.Project(ctx)
	if project == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "caller project is required")
	}
	return project, nil
}

// negotiatedVersion returns the request's microversion. Contexts without one
// (internal callers, workers) get full capability.
func negotiatedVersion(ctx context.Context) id.APIVersion {
	if v := requestcontext.APIVersion(ctx); !v.IsNil() {
		return v
	}
	return id.MaxVersion()
}

func (s *Service) wrapStoreErr(ctx context.Context, op string, err error) error {
	if errors.Is(err, sentinel.ErrInvalidMarker) {
		return dErrors.New(dErrors.CodeBadRequest, "marker does not match any known event")
	}
	if errors.Is(err, sentinel.ErrUnavailable) {
		s.logger.ErrorContext(ctx, "event store unavailable",
			"op", op,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "event store unavailable")
	}
	s.logger.ErrorContext(ctx, "event store failure",
		"op", op,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to "+op)
}
