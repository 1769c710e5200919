package recorder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"muster/pkg/platform/sentinel"
)

// Worker drains the recorder's retry buffer in the background. Failed drains
// are requeued and retried after the breaker's cooldown, so a store outage
// costs one probe per interval rather than one per event.
type Worker struct {
	recorder  *Recorder
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
}

func NewWorker(r *Recorder, logger *slog.Logger, interval time.Duration, batchSize int) *Worker {
	if interval <= 0 {
		interval = time.Second
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Worker{recorder: r, logger: logger, interval: interval, batchSize: batchSize}
}

// Run drains until the context is cancelled. A final best-effort drain runs
// on shutdown so a clean stop does not strand buffered events.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.drain(context.WithoutCancel(ctx))
			return ctx.Err()
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain persists buffered events until the buffer empties or an append fails.
func (w *Worker) drain(ctx context.Context) {
	r := w.recorder
	for {
		if !r.breaker.Allow() {
			return
		}
		batch := r.buffer.DequeueBatch(w.batchSize)
		if len(batch) == 0 {
			return
		}

		for i, e := range batch {
			err := r.store.Append(ctx, e)
			if errors.Is(err, sentinel.ErrConflict) {
				// A timed-out append that actually landed. Already durable.
				err = nil
			}
			if err != nil {
				r.breaker.RecordFailure()
				if r.metrics != nil {
					r.metrics.AppendFailures.Inc()
					r.metrics.setCircuit(r.breaker.IsOpen())
				}
				w.logger.WarnContext(ctx, "retry drain failed, requeueing",
					"remaining", len(batch)-i,
					"error", err,
				)
				r.buffer.Requeue(batch[i:])
				if r.metrics != nil {
					r.metrics.BufferDepth.Set(float64(r.buffer.Len()))
				}
				return
			}
			r.breaker.RecordSuccess()
			if r.metrics != nil {
				r.metrics.RetryFlushed.Inc()
			}
			r.publish(ctx, e)
		}

		if r.metrics != nil {
			r.metrics.setCircuit(false)
			r.metrics.BufferDepth.Set(float64(r.buffer.Len()))
		}
	}
}
