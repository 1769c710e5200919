// Package recorder writes lifecycle events on behalf of the orchestration
// engine. Recording must never block or fail an orchestration action, so the
// store append is bounded by a timeout, failures divert into a retry buffer
// drained by a background worker, and a circuit breaker keeps a sick store
// from being hammered on every action.
//
// Durability is at-most-once: events sitting in the retry buffer are lost if
// the process dies before the worker drains them.
package recorder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"muster/internal/event"
	id "muster/pkg/domain"
	"muster/pkg/requestcontext"
)

var tracer = otel.Tracer("muster/internal/recorder")

// ErrRecordingFailed is returned when an event could neither be appended nor
// buffered. Callers log it and continue; the action itself is not rolled back.
var ErrRecordingFailed = errors.New("event recording failed: retry buffer full")

// Sink receives successfully recorded events, fire-and-forget. The stream
// publisher implements it.
type Sink interface {
	Publish(ctx context.Context, e *event.Event)
}

// Spec describes one event to record. Project and User default to the
// caller's identity from the request context when left empty.
type Spec struct {
	ObjID        string
	ObjType      string
	ObjName      string
	Action       string
	Status       string
	StatusReason string
	Level        event.Level
	ClusterID    id.ClusterID
	Project      string
	User         string
}

// Recorder is the write half of the event log.
type Recorder struct {
	store         event.Store
	buffer        *ringBuffer
	breaker       *circuitBreaker
	sink          Sink
	metrics       *Metrics
	logger        *slog.Logger
	minLevel      event.Level
	appendTimeout time.Duration
}

// Options tunes the recorder. Zero values fall back to safe defaults.
type Options struct {
	BufferSize       int
	AppendTimeout    time.Duration
	MinLevel         event.Level
	BreakerThreshold int
	BreakerCooldown  time.Duration
	Sink             Sink
	Metrics          *Metrics
}

func New(store event.Store, logger *slog.Logger, opts Options) *Recorder {
	if opts.AppendTimeout <= 0 {
		opts.AppendTimeout = 2 * time.Second
	}
	return &Recorder{
		store:         store,
		buffer:        newRingBuffer(opts.BufferSize),
		breaker:       newCircuitBreaker(opts.BreakerThreshold, opts.BreakerCooldown),
		sink:          opts.Sink,
		metrics:       opts.Metrics,
		logger:        logger,
		minLevel:      opts.MinLevel,
		appendTimeout: opts.AppendTimeout,
	}
}

// Record persists one event. Events below the severity threshold are dropped
// and report a zero id with no error. When the store is unavailable the event
// is buffered for the retry worker; only a full buffer makes Record fail.
func (r *Recorder) Record(ctx context.Context, spec Spec) (id.EventID, error) {
	ctx, span := tracer.Start(ctx, "event.Record")
	defer span.End()
	span.SetAttributes(attribute.String("event.action", spec.Action))

	if spec.Level < r.minLevel {
		if r.metrics != nil {
			r.metrics.LevelDropped.Inc()
		}
		return id.EventID{}, nil
	}

	e := r.build(ctx, spec)

	if r.breaker.Allow() {
		appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.appendTimeout)
		err := r.store.Append(appendCtx, e)
		cancel()
		if err == nil {
			r.breaker.RecordSuccess()
			if r.metrics != nil {
				r.metrics.Recorded.Inc()
				r.metrics.setCircuit(false)
			}
			r.publish(ctx, e)
			return e.ID, nil
		}

		r.breaker.RecordFailure()
		if r.metrics != nil {
			r.metrics.AppendFailures.Inc()
			r.metrics.setCircuit(r.breaker.IsOpen())
		}
		r.logger.WarnContext(ctx, "event append failed, buffering",
			"event_id", e.ID.String(),
			"action", e.Action,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	if !r.buffer.TryEnqueue(e) {
		if r.metrics != nil {
			r.metrics.BufferOverflow.Inc()
		}
		r.logger.ErrorContext(ctx, "event lost, retry buffer full",
			"event_id", e.ID.String(),
			"action", e.Action,
			"request_id", requestcontext.RequestID(ctx),
		)
		return id.EventID{}, ErrRecordingFailed
	}

	if r.metrics != nil {
		r.metrics.Buffered.Inc()
		r.metrics.BufferDepth.Set(float64(r.buffer.Len()))
	}
	return e.ID, nil
}

// Buffered reports how many events are waiting for the retry worker.
func (r *Recorder) Buffered() int {
	return r.buffer.Len()
}

func (r *Recorder) build(ctx context.Context, spec Spec) *event.Event {
	project := spec.Project
	if project == "" {
		project = requestcontext.Project(ctx)
	}
	user := spec.User
	if user == "" {
		user = requestcontext.UserID(ctx)
	}
	return &event.Event{
		ID:           id.NewEventID(),
		Timestamp:    requestcontext.Now(ctx),
		ObjID:        spec.ObjID,
		ObjType:      spec.ObjType,
		ObjName:      spec.ObjName,
		Action:       spec.Action,
		Status:       spec.Status,
		StatusReason: spec.StatusReason,
		Level:        spec.Level,
		ClusterID:    spec.ClusterID,
		Project:      project,
		User:         user,
	}
}

func (r *Recorder) publish(ctx context.Context, e *event.Event) {
	if r.sink == nil {
		return
	}
	r.sink.Publish(ctx, e)
}
