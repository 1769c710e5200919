// Package stream publishes recorded events to a Kafka topic for downstream
// consumers (notifications, CW-style telemetry). Publishing is fire-and-forget
// and must never slow down or fail the record path.
package stream

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"muster/internal/event"
)

// Producer is the publishing surface of the Kafka client.
type Producer interface {
	Produce(ctx context.Context, topic string, key, value []byte) error
}

// Publisher fans recorded events out to the stream topic. DEBUG events are
// sampled, a circuit breaker sheds load during broker outages, and failures
// are counted but never surfaced to the recorder.
type Publisher struct {
	producer Producer
	topic    string
	sampler  *Sampler
	metrics  *Metrics
	logger   *slog.Logger
	timeout  time.Duration

	mu        sync.Mutex
	failures  int
	openUntil time.Time
}

const (
	breakerThreshold = 5
	breakerCooldown  = 30 * time.Second
)

func NewPublisher(producer Producer, topic string, sampler *Sampler, metrics *Metrics, logger *slog.Logger) *Publisher {
	if sampler == nil {
		sampler = NewSampler(0.1)
	}
	return &Publisher{
		producer: producer,
		topic:    topic,
		sampler:  sampler,
		metrics:  metrics,
		logger:   logger,
		timeout:  5 * time.Second,
	}
}

// streamEvent is the topic's wire shape.
type streamEvent struct {
	ID           string    `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	ObjID        string    `json:"obj_id"`
	ObjType      string    `json:"obj_type"`
	ObjName      string    `json:"obj_name"`
	Action       string    `json:"action"`
	Status       string    `json:"status"`
	StatusReason string    `json:"status_reason,omitempty"`
	Level        string    `json:"level"`
	ClusterID    string    `json:"cluster_id,omitempty"`
	Project      string    `json:"project"`
	User         string    `json:"user"`
}

// Publish sends one event to the topic. It returns immediately; the produce
// runs detached from the request context.
func (p *Publisher) Publish(ctx context.Context, e *event.Event) {
	if !p.allow() {
		if p.metrics != nil {
			p.metrics.CircuitDropped.Inc()
		}
		return
	}
	if !p.sampler.ShouldPublish(e) {
		if p.metrics != nil {
			p.metrics.SampledOut.Inc()
		}
		return
	}

	detached := context.WithoutCancel(ctx)
	go p.produce(detached, e)
}

func (p *Publisher) produce(ctx context.Context, e *event.Event) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg := streamEvent{
		ID:           e.ID.String(),
		Timestamp:    e.Timestamp.UTC(),
		ObjID:        e.ObjID,
		ObjType:      e.ObjType,
		ObjName:      e.ObjName,
		Action:       e.Action,
		Status:       e.Status,
		StatusReason: e.StatusReason,
		Level:        e.Level.String(),
		Project:      e.Project,
		User:         e.User,
	}
	if !e.ClusterID.IsNil() {
		msg.ClusterID = e.ClusterID.String()
	}

	value, err := json.Marshal(msg)
	if err != nil {
		p.logger.ErrorContext(ctx, "stream event marshal failed", "event_id", msg.ID, "error", err)
		return
	}

	// Key by the owning object so per-object ordering survives partitioning.
	if err := p.producer.Produce(ctx, p.topic, []byte(e.ObjID), value); err != nil {
		p.recordFailure()
		if p.metrics != nil {
			p.metrics.PublishFailures.Inc()
			p.metrics.setCircuit(p.isOpen())
		}
		p.logger.WarnContext(ctx, "stream publish failed",
			"event_id", msg.ID,
			"topic", p.topic,
			"error", err,
		)
		return
	}

	p.recordSuccess()
	if p.metrics != nil {
		p.metrics.Published.Inc()
		p.metrics.setCircuit(false)
	}
}

func (p *Publisher) allow() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures < breakerThreshold {
		return true
	}
	if time.Now().After(p.openUntil) {
		p.failures = breakerThreshold - 1
		return true
	}
	return false
}

func (p *Publisher) recordFailure() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures++
	if p.failures >= breakerThreshold {
		p.openUntil = time.Now().Add(breakerCooldown)
	}
}

func (p *Publisher) recordSuccess() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = 0
}

func (p *Publisher) isOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures >= breakerThreshold && time.Now().Before(p.openUntil)
}
