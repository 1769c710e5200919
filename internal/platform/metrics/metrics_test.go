package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestLatencyRouteLabels verifies requests are labeled with the matched route
// pattern, so per-resource URLs cannot mint a metric series per resource id.
func TestLatencyRouteLabels(t *testing.T) {
	m := New()

	r := chi.NewRouter()
	r.Use(Latency(m))
	r.Get("/v1/events/{event_id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{
		"/v1/events/5b0ee6ad-602d-4bbe-bc6d-4ba11ad0cd3a",
		"/v1/events/a2c3ccc9-7b08-4d5a-b103-71d0f45a9b8b",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues(http.MethodGet, "/v1/events/{event_id}", "200"))
	assert.Equal(t, 2.0, got, "both requests collapse onto one route label")
}
