package recorder

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the event recorder.
type Metrics struct {
	Recorded       prometheus.Counter
	LevelDropped   prometheus.Counter
	Buffered       prometheus.Counter
	BufferOverflow prometheus.Counter
	AppendFailures prometheus.Counter
	RetryFlushed   prometheus.Counter
	CircuitState   prometheus.Gauge
	BufferDepth    prometheus.Gauge
}

// NewMetrics registers and returns the recorder metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Recorded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "muster_recorder_recorded_total",
			Help: "Total number of events appended to the store on the record path",
		}),
		LevelDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "muster_recorder_level_dropped_total",
			Help: "Total number of events dropped below the severity threshold",
		}),
		Buffered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "muster_recorder_buffered_total",
			Help: "Total number of events diverted to the retry buffer",
		}),
		BufferOverflow: promauto.NewCounter(prometheus.CounterOpts{
			Name: "muster_recorder_buffer_overflow_total",
			Help: "Total number of recordings refused because the retry buffer was full",
		}),
		AppendFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "muster_recorder_append_failures_total",
			Help: "Total number of failed store appends",
		}),
		RetryFlushed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "muster_recorder_retry_flushed_total",
			Help: "Total number of buffered events persisted by the retry worker",
		}),
		CircuitState: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "muster_recorder_circuit_state",
			Help: "Store circuit breaker state (0=closed, 1=open)",
		}),
		BufferDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "muster_recorder_buffer_depth",
			Help: "Current number of events waiting in the retry buffer",
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
