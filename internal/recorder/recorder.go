// Package recorder periodically snapshots the building and hands the readings
// of monitored rooms to every configured sink.
package recorder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/metrics"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/monitoring"
)

// Batch is the data of one recorder tick
type Batch struct {
	TickID   string
	At       time.Time
	Interval time.Duration
	Snapshot models.BuildingSnapshot
	// Readings holds only the rooms whose monitoring flag is on.
	Readings []models.RoomReading
}

// TotalPower sums the power of the recorded readings
func (b Batch) TotalPower() float64 {
	total := 0.0
	for _, r := range b.Readings {
		total += r.Power
	}
	return total
}

// Sink receives every recorded batch
type Sink interface {
	Name() string
	Record(ctx context.Context, batch Batch) error
}

// Snapshotter produces building snapshots
type Snapshotter interface {
	Snapshot(now time.Time) models.BuildingSnapshot
}

// Recorder drives the periodic recording
type Recorder struct {
	building Snapshotter
	flags    monitoring.Store
	sinks    []Sink
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Option configures a Recorder
type Option func(*Recorder)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithMetrics attaches the Prometheus collectors
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) { r.metrics = m }
}

// New creates a recorder ticking every interval
func New(building Snapshotter, flags monitoring.Store, interval time.Duration, logger *slog.Logger, sinks []Sink, opts ...Option) *Recorder {
	r := &Recorder{
		building: building,
		flags:    flags,
		sinks:    sinks,
		interval: interval,
		now:      time.Now,
		logger:   logger.With("component", "recorder"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run records on every tick until ctx is cancelled
func (r *Recorder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("recorder started", "interval", r.interval, "sinks", len(r.sinks))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("recorder stopped")
			return
		case <-ticker.C:
			if _, err := r.RecordOnce(ctx); err != nil {
				r.logger.Error("error recording data", "error", err)
			}
		}
	}
}

// RecordOnce runs a single tick and returns the number of readings handed
// to the sinks. Nothing is recorded while global monitoring is paused. A
// failing sink is logged and skipped; the remaining sinks still run.
func (r *Recorder) RecordOnce(ctx context.Context) (int, error) {
	enabled, err := r.flags.Enabled(ctx)
	if err != nil {
		r.metrics.Tick(metrics.TickFailed)
		return 0, fmt.Errorf("read monitoring flag: %w", err)
	}
	if !enabled {
		r.metrics.Tick(metrics.TickPaused)
		r.logger.Debug("monitoring paused, skipping tick")
		return 0, nil
	}

	now := r.now()
	snapshot := r.building.Snapshot(now)

	ids := make([]string, len(snapshot.Rooms))
	for i, room := range snapshot.Rooms {
		ids[i] = room.RoomID
	}
	states, err := r.flags.RoomStates(ctx, ids)
	if err != nil {
		r.metrics.Tick(metrics.TickFailed)
		return 0, fmt.Errorf("read room flags: %w", err)
	}

	batch := Batch{
		TickID:   uuid.NewString(),
		At:       now,
		Interval: r.interval,
		Snapshot: snapshot,
		Readings: make([]models.RoomReading, 0, len(snapshot.Rooms)),
	}
	for _, room := range snapshot.Rooms {
		if states[room.RoomID] {
			batch.Readings = append(batch.Readings, room)
		}
	}

	for _, sink := range r.sinks {
		if err := sink.Record(ctx, batch); err != nil {
			r.metrics.SinkError(sink.Name())
			r.logger.Error("sink failed", "sink", sink.Name(), "tick_id", batch.TickID, "error", err)
		}
	}

	total := batch.TotalPower()
	r.metrics.Tick(metrics.TickRecorded)
	r.metrics.RowsRecorded(len(batch.Readings), total)
	r.logger.Info(fmt.Sprintf("Recorded %d rooms | Building: %dW", len(batch.Readings), int(total)),
		"tick_id", batch.TickID)

	return len(batch.Readings), nil
}
