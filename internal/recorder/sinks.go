package recorder

import (
	"context"
	"time"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
)

// ReadingStore persists rows in the energy_readings table
type ReadingStore interface {
	InsertReadings(ctx context.Context, tickID string, at time.Time, interval time.Duration, readings []models.RoomReading) (int, error)
}

// SnapshotWriter writes readings with their building total
type SnapshotWriter interface {
	WriteSnapshot(ctx context.Context, snapshot models.BuildingSnapshot, readings []models.RoomReading) error
}

// ReadingPublisher publishes readings to a message transport
type ReadingPublisher interface {
	PublishReadings(readings []models.RoomReading) error
}

type sqlSink struct{ store ReadingStore }

// SQLSink stores every tick in one transaction
func SQLSink(store ReadingStore) Sink { return sqlSink{store: store} }

func (s sqlSink) Name() string { return "sql" }

func (s sqlSink) Record(ctx context.Context, b Batch) error {
	_, err := s.store.InsertReadings(ctx, b.TickID, b.At, b.Interval, b.Readings)
	return err
}

type influxSink struct{ writer SnapshotWriter }

// InfluxSink writes room_power and building_power points
func InfluxSink(writer SnapshotWriter) Sink { return influxSink{writer: writer} }

func (s influxSink) Name() string { return "influx" }

func (s influxSink) Record(ctx context.Context, b Batch) error {
	return s.writer.WriteSnapshot(ctx, b.Snapshot, b.Readings)
}

type publisherSink struct {
	name      string
	publisher ReadingPublisher
}

// PublisherSink publishes each reading through a message transport
func PublisherSink(name string, publisher ReadingPublisher) Sink {
	return publisherSink{name: name, publisher: publisher}
}

func (s publisherSink) Name() string { return s.name }

func (s publisherSink) Record(_ context.Context, b Batch) error {
	if len(b.Readings) == 0 {
		return nil
	}
	return s.publisher.PublishReadings(b.Readings)
}
