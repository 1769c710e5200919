package stream

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the event stream publisher.
type Metrics struct {
	Published       prometheus.Counter
	SampledOut      prometheus.Counter
	CircuitDropped  prometheus.Counter
	PublishFailures prometheus.Counter
	CircuitState    prometheus.Gauge
}

// NewMetrics registers and returns the stream publisher metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Published: promauto.NewCounter(prometheus.CounterOpts{
			Name: "muster_stream_published_total",
			Help: "Total number of events published to the stream topic",
		}),
		SampledOut: promauto.NewCounter(prometheus.CounterOpts{
			Name: "muster_stream_sampled_out_total",
			Help: "Total number of events dropped by sampling",
		}),
		CircuitDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "muster_stream_circuit_dropped_total",
			Help: "Total number of events dropped while the stream circuit was open",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "muster_stream_publish_failures_total",
			Help: "Total number of failed publishes to the stream topic",
		}),
		CircuitState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "muster_stream_circuit_state",
			Help: "Stream circuit breaker state (0=closed, 1=open)",
		}),
	}
}

func (m *Metrics) setCircuit(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitState.Set(1)
	} else {
		m.CircuitState.Set(0)
	}
}
