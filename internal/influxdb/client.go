package influxdb

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/config"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
)

// Measurement names
const (
	MeasurementRoomPower        = "room_power"
	MeasurementBuildingPower    = "building_power"
	MeasurementStatusCounts     = "room_status_counts"
	MeasurementFloorConsumption = "floor_consumption"
	MeasurementPowerTimeSeries  = "power_timeseries"
)

// Client represents an InfluxDB v2 client. Stream aggregates go through the
// batching writeAPI; recorder ticks go through blocking so failures surface.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	blocking api.WriteAPIBlocking
	config   config.InfluxDBConfig
	logger   *slog.Logger
	done     chan struct{}
}

// NewClient initializes the InfluxDB v2 client and verifies connectivity
func NewClient(ctx context.Context, cfg config.InfluxDBConfig, logger *slog.Logger) (*Client, error) {
	opts := influxdb2.DefaultOptions()
	if cfg.BatchSize > 0 {
		opts.SetBatchSize(uint(cfg.BatchSize))
	}
	if cfg.FlushInterval > 0 {
		opts.SetFlushInterval(uint(cfg.FlushInterval.Milliseconds()))
	}

	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	// Add a health check to verify credentials
	if _, err := client.Health(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}

	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		blocking: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		config:   cfg,
		logger:   logger.With("component", "influxdb"),
		done:     make(chan struct{}),
	}
	go c.logErrors()

	c.logger.Info("connected to InfluxDB", "url", cfg.URL, "bucket", cfg.Bucket)
	return c, nil
}

// logErrors drains the asynchronous write errors until the client closes
func (c *Client) logErrors() {
	errs := c.writeAPI.Errors()
	for {
		select {
		case err, ok := <-errs:
			if !ok {
				return
			}
			c.logger.Error("InfluxDB write failed", "error", err)
		case <-c.done:
			return
		}
	}
}

// RoomPowerPoint builds the room_power point of one reading
func RoomPowerPoint(r models.RoomReading) *write.Point {
	return write.NewPoint(
		MeasurementRoomPower,
		map[string]string{
			"room_id": r.RoomID,
			"floor":   strconv.Itoa(r.Floor),
			"status":  r.Status,
		},
		map[string]interface{}{
			"power":   r.Power,
			"current": r.Current,
			"voltage": r.Voltage,
			"active":  r.IsActive,
		},
		r.Timestamp,
	)
}

// BuildingPowerPoint builds the building_power point of a snapshot.
// monitored is the number of rooms whose flag is on.
func BuildingPowerPoint(s models.BuildingSnapshot, monitored int) *write.Point {
	return write.NewPoint(
		MeasurementBuildingPower,
		map[string]string{},
		map[string]interface{}{
			"total_power":     s.TotalPower,
			"active_rooms":    s.ActiveRooms,
			"total_rooms":     s.TotalRooms,
			"monitored_rooms": monitored,
		},
		s.Timestamp,
	)
}

// StatusCountPoint builds a room_status_counts point
func StatusCountPoint(count models.StatusCount, timestamp time.Time) *write.Point {
	return write.NewPoint(
		MeasurementStatusCounts,
		map[string]string{
			"status": count.Status,
		},
		map[string]interface{}{
			"count": count.Count,
		},
		timestamp,
	)
}

// FloorConsumptionPoint builds a floor_consumption point
func FloorConsumptionPoint(fc models.FloorConsumption, timestamp time.Time) *write.Point {
	return write.NewPoint(
		MeasurementFloorConsumption,
		map[string]string{
			"floor": strconv.Itoa(fc.Floor),
		},
		map[string]interface{}{
			"total_power":   fc.TotalPower,
			"room_count":    fc.RoomCount,
			"reading_count": fc.ReadingCount,
			"average_power": fc.AveragePower,
			"max_power":     fc.MaxPower,
		},
		timestamp,
	)
}

// TimeSeriesPoint builds a power_timeseries point
func TimeSeriesPoint(p models.TimeSeriesPoint) *write.Point {
	return write.NewPoint(
		MeasurementPowerTimeSeries,
		map[string]string{}, // No tags for this measurement
		map[string]interface{}{
			"total_power":   p.TotalPower,
			"reading_count": p.ReadingCount,
			"max_power":     p.MaxPower,
			"min_power":     p.MinPower,
			"avg_power":     p.AvgPower,
		},
		p.Timestamp,
	)
}

// WriteReadings writes raw room readings
func (c *Client) WriteReadings(readings []models.RoomReading) error {
	for _, r := range readings {
		c.writeAPI.WritePoint(RoomPowerPoint(r))
	}
	return nil
}

// SnapshotPoints returns the room_power points of readings followed by the
// building_power point of the tick
func SnapshotPoints(snapshot models.BuildingSnapshot, readings []models.RoomReading) []*write.Point {
	points := make([]*write.Point, 0, len(readings)+1)
	for _, r := range readings {
		points = append(points, RoomPowerPoint(r))
	}
	return append(points, BuildingPowerPoint(snapshot, len(readings)))
}

// WriteSnapshot writes the recorded readings and the building total of one
// tick and waits for the server to accept them
func (c *Client) WriteSnapshot(ctx context.Context, snapshot models.BuildingSnapshot, readings []models.RoomReading) error {
	if err := c.blocking.WritePoint(ctx, SnapshotPoints(snapshot, readings)...); err != nil {
		return fmt.Errorf("write snapshot to InfluxDB: %w", err)
	}
	return nil
}

// WriteStatusCounts writes aggregated status counts to InfluxDB
func (c *Client) WriteStatusCounts(counts []models.StatusCount, timestamp time.Time) error {
	for _, count := range counts {
		c.writeAPI.WritePoint(StatusCountPoint(count, timestamp))
	}
	return nil
}

// WriteFloorConsumption writes aggregated floor consumption to InfluxDB
func (c *Client) WriteFloorConsumption(consumption []models.FloorConsumption, timestamp time.Time) error {
	for _, fc := range consumption {
		c.writeAPI.WritePoint(FloorConsumptionPoint(fc, timestamp))
	}
	return nil
}

// WriteTimeSeriesPoints writes time series data points to InfluxDB
func (c *Client) WriteTimeSeriesPoints(points []models.TimeSeriesPoint) error {
	for _, p := range points {
		c.writeAPI.WritePoint(TimeSeriesPoint(p))
	}
	return nil
}

// Close flushes pending points and closes the InfluxDB client
func (c *Client) Close() {
	c.writeAPI.Flush()
	close(c.done)
	c.client.Close()
}
