// Package handler exposes the event query API over HTTP.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"muster/internal/event"
	eventservice "muster/internal/event/service"
	"muster/internal/platform/metrics"
	platformmw "muster/internal/platform/middleware"
	id "muster/pkg/domain"
	"muster/pkg/platform/httputil"
	authmw "muster/pkg/platform/middleware/auth"
	versionmw "muster/pkg/platform/middleware/version"
	"muster/pkg/requestcontext"
)

// Service defines the interface for event queries.
type Service interface {
	List(ctx context.Context, req eventservice.ListRequest) (*eventservice.ListResult, error)
	Get(ctx context.Context, rawID string) (*event.Event, error)
}

// Handler handles the /v1/events endpoints.
type Handler struct {
	logger    *slog.Logger
	events    Service
	metrics   *metrics.Metrics
	validator authmw.TokenValidator
}

// New creates a new event Handler.
func New(events Service, logger *slog.Logger, m *metrics.Metrics, validator authmw.TokenValidator) *Handler {
	return &Handler{
		logger:    logger,
		events:    events,
		metrics:   m,
		validator: validator,
	}
}

// Register registers the event routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	eventRouter := chi.NewRouter()
	eventRouter.Use(platformmw.Recovery(h.logger))
	eventRouter.Use(platformmw.RequestID)
	eventRouter.Use(platformmw.RequestTime)
	eventRouter.Use(platformmw.Logger(h.logger))
	eventRouter.Use(platformmw.Timeout(30 * time.Second))
	if h.metrics != nil {
		eventRouter.Use(metrics.Latency(h.metrics))
	}
	eventRouter.Use(versionmw.Negotiate())
	eventRouter.Use(authmw.RequireAuth(h.validator, h.logger))
	eventRouter.Get("/", h.handleList)
	eventRouter.Get("/{event_id}", h.handleShow)

	r.Mount("/v1/events", eventRouter)
}

// handleList serves GET /v1/events.
func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := parseListRequest(r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid event list request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	result, err := h.events.List(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	version := h.negotiated(ctx)
	resp := listResponse{Events: make([]eventView, 0, len(result.Events))}
	for _, e := range result.Events {
		resp.Events = append(resp.Events, toView(e, version))
	}
	if result.NextMarker != nil {
		resp.NextMarker = result.NextMarker.String()
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// handleShow serves GET /v1/events/{event_id}.
func (h *Handler) handleShow(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	e, err := h.events.Get(ctx, chi.URLParam(r, "event_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, showResponse{Event: toView(e, h.negotiated(ctx))})
}

func (h *Handler) negotiated(ctx context.Context) id.APIVersion {
	if v := requestcontext.APIVersion(ctx); !v.IsNil() {
		return v
	}
	return id.MinVersion()
}
