package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the event query path.
type Metrics struct {
	ListDuration    prometheus.Histogram
	GetDuration     prometheus.Histogram
	EventsReturned  prometheus.Counter
	ScopeViolations prometheus.Counter
}

// New creates a new Metrics instance with all event query metrics registered.
func New() *Metrics {
	return &Metrics{
		ListDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "muster_events_list_duration_seconds",
			Help:    "Duration of event list queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		GetDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "muster_events_get_duration_seconds",
			Help:    "Duration of event show queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		EventsReturned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "muster_events_returned_total",
			Help: "Total number of events returned to API clients",
		}),
		ScopeViolations: promauto.NewCounter(prometheus.CounterOpts{
			Name: "muster_events_scope_violations_total",
			Help: "Requests rejected for unauthorized cross-project access",
		}),
	}
}

// ObserveList records the duration of a list query.
func (m *Metrics) ObserveList(start time.Time) {
	m.ListDuration.Observe(time.Since(start).Seconds())
}

// ObserveGet records the duration of a show query.
func (m *Metrics) ObserveGet(start time.Time) {
	m.GetDuration.Observe(time.Since(start).Seconds())
}
