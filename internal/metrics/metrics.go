// Package metrics exposes the Prometheus collectors of the monitor.
//
// Every method is safe on a nil *Metrics so components can run without
// instrumentation in tests.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Tick results
const (
	TickRecorded = "recorded"
	TickPaused   = "paused"
	TickFailed   = "failed"
)

// Metrics holds the collectors registered on a dedicated registry
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal  *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
	recorderTicks      *prometheus.CounterVec
	recorderRows       prometheus.Counter
	sinkErrors         *prometheus.CounterVec
	occupancyRefreshes prometheus.Counter
	buildingPower      prometheus.Gauge
}

// New creates and registers the collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bems_http_requests_total",
			Help: "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bems_http_request_duration_seconds",
			Help:    "Histogram of HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		recorderTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bems_recorder_ticks_total",
			Help: "Recorder ticks by result.",
		}, []string{"result"}),
		recorderRows: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bems_recorder_rows_total",
			Help: "Room readings handed to the sinks.",
		}),
		sinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bems_recorder_sink_errors_total",
			Help: "Failed sink writes by sink.",
		}, []string{"sink"}),
		occupancyRefreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bems_occupancy_refreshes_total",
			Help: "Offline room set rotations.",
		}),
		buildingPower: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bems_building_power_watts",
			Help: "Total building power of the last recorded snapshot.",
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.recorderTicks,
		m.recorderRows,
		m.sinkErrors,
		m.occupancyRefreshes,
		m.buildingPower,
	)

	return m
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// WrapHandler counts and times requests for route
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Tick counts one recorder tick
func (m *Metrics) Tick(result string) {
	if m == nil {
		return
	}
	m.recorderTicks.WithLabelValues(result).Inc()
}

// RowsRecorded adds n recorded readings and stores the building power
func (m *Metrics) RowsRecorded(n int, buildingPower float64) {
	if m == nil {
		return
	}
	m.recorderRows.Add(float64(n))
	m.buildingPower.Set(buildingPower)
}

// SinkError counts a failed sink write
func (m *Metrics) SinkError(sink string) {
	if m == nil {
		return
	}
	m.sinkErrors.WithLabelValues(sink).Inc()
}

// OccupancyRefreshed counts an offline set rotation. Its signature matches
// the occupancy refresh hook.
func (m *Metrics) OccupancyRefreshed([]string) {
	if m == nil {
		return
	}
	m.occupancyRefreshes.Inc()
}
