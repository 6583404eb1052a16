package influxdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/logging"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
)

var at = time.Date(2024, 11, 21, 3, 0, 0, 0, time.UTC)

func tags(p *write.Point) map[string]string {
	out := map[string]string{}
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func fields(p *write.Point) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func TestRoomPowerPoint(t *testing.T) {
	p := RoomPowerPoint(models.RoomReading{
		RoomID: "101", Floor: 1, Power: 1250.5, Current: 5.68, Voltage: 220.1,
		IsActive: true, Status: models.StatusOnline, Timestamp: at,
	})

	assert.Equal(t, MeasurementRoomPower, p.Name())
	assert.Equal(t, map[string]string{"room_id": "101", "floor": "1", "status": "ONLINE"}, tags(p))
	f := fields(p)
	assert.Equal(t, 1250.5, f["power"])
	assert.Equal(t, 5.68, f["current"])
	assert.Equal(t, true, f["active"])
	assert.Equal(t, at, p.Time())
}

func TestBuildingPowerPoint(t *testing.T) {
	p := BuildingPowerPoint(models.BuildingSnapshot{
		TotalPower: 41234.5, ActiveRooms: 34, TotalRooms: 40, Timestamp: at,
	}, 38)

	assert.Equal(t, MeasurementBuildingPower, p.Name())
	assert.Empty(t, p.TagList())
	assert.Equal(t, map[string]interface{}{
		"total_power":     41234.5,
		"active_rooms":    int64(34),
		"total_rooms":     int64(40),
		"monitored_rooms": int64(38),
	}, fields(p))
}

func TestAggregatePoints(t *testing.T) {
	status := StatusCountPoint(models.StatusCount{Status: models.StatusOffline, Count: 6}, at)
	assert.Equal(t, MeasurementStatusCounts, status.Name())
	assert.Equal(t, map[string]string{"status": "OFFLINE"}, tags(status))
	assert.Equal(t, map[string]interface{}{"count": int64(6)}, fields(status))

	floor := FloorConsumptionPoint(models.FloorConsumption{
		Floor: 2, TotalPower: 9000, RoomCount: 10, ReadingCount: 10, AveragePower: 900, MaxPower: 2100,
	}, at)
	assert.Equal(t, MeasurementFloorConsumption, floor.Name())
	assert.Equal(t, map[string]string{"floor": "2"}, tags(floor))
	assert.Equal(t, int64(10), fields(floor)["room_count"])
	assert.Equal(t, 2100.0, fields(floor)["max_power"])

	ts := TimeSeriesPoint(models.TimeSeriesPoint{
		Timestamp: at, TotalPower: 3000, ReadingCount: 3, MaxPower: 1500, MinPower: 500, AvgPower: 1000,
	})
	assert.Equal(t, MeasurementPowerTimeSeries, ts.Name())
	assert.Empty(t, ts.TagList())
	assert.Equal(t, int64(3), fields(ts)["reading_count"])
	assert.Equal(t, 1000.0, fields(ts)["avg_power"])
}

func TestSnapshotPoints(t *testing.T) {
	readings := []models.RoomReading{
		{RoomID: "101", Floor: 1, Power: 1000, Status: models.StatusOnline, Timestamp: at},
		{RoomID: "102", Floor: 1, Power: 500, Status: models.StatusOnline, Timestamp: at},
	}
	points := SnapshotPoints(models.BuildingSnapshot{TotalPower: 1550, ActiveRooms: 2, TotalRooms: 3, Timestamp: at}, readings)

	require.Len(t, points, 3)
	assert.Equal(t, "101", tags(points[0])["room_id"])
	assert.Equal(t, "102", tags(points[1])["room_id"])
	assert.Equal(t, MeasurementBuildingPower, points[2].Name())
	assert.Equal(t, int64(2), fields(points[2])["monitored_rooms"])
}

type stubBlocking struct {
	api.WriteAPIBlocking
	err    error
	points []*write.Point
}

func (s *stubBlocking) WritePoint(_ context.Context, points ...*write.Point) error {
	s.points = append(s.points, points...)
	return s.err
}

func TestWriteSnapshotReportsServerErrors(t *testing.T) {
	stub := &stubBlocking{}
	c := &Client{blocking: stub, logger: logging.Discard()}
	snapshot := models.BuildingSnapshot{TotalPower: 1000, ActiveRooms: 1, TotalRooms: 1, Timestamp: at}
	readings := []models.RoomReading{{RoomID: "101", Floor: 1, Power: 1000, Timestamp: at}}

	require.NoError(t, c.WriteSnapshot(context.Background(), snapshot, readings))
	assert.Len(t, stub.points, 2)

	stub.err = errors.New("401 unauthorized")
	err := c.WriteSnapshot(context.Background(), snapshot, readings)
	require.Error(t, err)
	assert.ErrorIs(t, err, stub.err)
}
