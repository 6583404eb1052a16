package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestWrapHandlerRecordsRouteAndStatus(t *testing.T) {
	m := New()
	h := m.WrapHandler("/api/room/{id}/status", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/room/999/status", nil))

	out := scrape(t, m)
	assert.Contains(t, out, `bems_http_requests_total{route="/api/room/{id}/status",status="404"} 1`)
	assert.Contains(t, out, `bems_http_request_duration_seconds_count{route="/api/room/{id}/status"} 1`)
}

func TestRecorderCollectors(t *testing.T) {
	m := New()
	m.Tick(TickRecorded)
	m.Tick(TickPaused)
	m.RowsRecorded(34, 41234.5)
	m.SinkError("kafka")
	m.OccupancyRefreshed([]string{"101", "102"})

	out := scrape(t, m)
	assert.Contains(t, out, `bems_recorder_ticks_total{result="recorded"} 1`)
	assert.Contains(t, out, `bems_recorder_ticks_total{result="paused"} 1`)
	assert.Contains(t, out, "bems_recorder_rows_total 34")
	assert.Contains(t, out, "bems_building_power_watts 41234.5")
	assert.Contains(t, out, `bems_recorder_sink_errors_total{sink="kafka"} 1`)
	assert.Contains(t, out, "bems_occupancy_refreshes_total 1")
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Tick(TickFailed)
	m.RowsRecorded(1, 1)
	m.SinkError("sql")
	m.OccupancyRefreshed(nil)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	rec := httptest.NewRecorder()
	m.WrapHandler("/health", next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
