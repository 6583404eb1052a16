package processor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/config"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/logging"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
)

type recordingWriter struct {
	mu         sync.Mutex
	block      chan struct{}
	readings   []models.RoomReading
	counts     []models.StatusCount
	floors     []models.FloorConsumption
	timeSeries []models.TimeSeriesPoint
}

func (w *recordingWriter) WriteReadings(rs []models.RoomReading) error {
	if w.block != nil {
		<-w.block
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.readings = append(w.readings, rs...)
	return nil
}

func (w *recordingWriter) WriteStatusCounts(cs []models.StatusCount, _ time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.counts = append(w.counts, cs...)
	return nil
}

func (w *recordingWriter) WriteFloorConsumption(fs []models.FloorConsumption, _ time.Time) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.floors = append(w.floors, fs...)
	return nil
}

func (w *recordingWriter) WriteTimeSeriesPoints(ps []models.TimeSeriesPoint) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timeSeries = append(w.timeSeries, ps...)
	return nil
}

var base = time.Date(2024, 11, 21, 9, 0, 0, 0, time.UTC)

func reading(id string, floor int, power float64, status string, at time.Time) models.RoomReading {
	return models.RoomReading{RoomID: id, Floor: floor, Power: power, Status: status, Timestamp: at}
}

func sampleBatch() []models.RoomReading {
	return []models.RoomReading{
		reading("101", 1, 1000, models.StatusOnline, base),
		reading("102", 1, 500, models.StatusOnline, base.Add(10*time.Second)),
		reading("201", 2, 50, models.StatusOffline, base.Add(20*time.Second)),
		reading("101", 1, 1500, models.StatusOnline, base.Add(70*time.Second)),
	}
}

func TestProcessorWritesReadingsAndAggregates(t *testing.T) {
	w := &recordingWriter{}
	p := NewProcessor(w, config.ProcessorConfig{WorkerCount: 2, QueueSize: 10, EnableAggregations: true}, logging.Discard())

	require.NoError(t, p.ProcessMessages(sampleBatch()))
	p.Stop()

	assert.Len(t, w.readings, 4)
	assert.Equal(t, []models.StatusCount{
		{Status: models.StatusOffline, Count: 1},
		{Status: models.StatusOnline, Count: 3},
	}, w.counts)

	require.Len(t, w.floors, 2)
	assert.Equal(t, models.FloorConsumption{
		Floor: 1, TotalPower: 3000, RoomCount: 2, ReadingCount: 3, AveragePower: 1000, MaxPower: 1500,
	}, w.floors[0])
	assert.Equal(t, 2, w.floors[1].Floor)

	require.Len(t, w.timeSeries, 2)
	assert.Equal(t, base, w.timeSeries[0].Timestamp)
	assert.Equal(t, 3, w.timeSeries[0].ReadingCount)
	assert.Equal(t, 50.0, w.timeSeries[0].MinPower)
	assert.Equal(t, 1000.0, w.timeSeries[0].MaxPower)
	assert.InDelta(t, 516.67, w.timeSeries[0].AvgPower, 0.01)
	assert.Equal(t, base.Add(time.Minute), w.timeSeries[1].Timestamp)
}

func TestProcessorWithoutAggregations(t *testing.T) {
	w := &recordingWriter{}
	p := NewProcessor(w, config.ProcessorConfig{WorkerCount: 1, QueueSize: 1}, logging.Discard())

	require.NoError(t, p.ProcessMessages(sampleBatch()))
	p.Stop()

	assert.Len(t, w.readings, 4)
	assert.Empty(t, w.counts)
	assert.Empty(t, w.timeSeries)
}

func TestProcessorDropsWhenQueueIsFull(t *testing.T) {
	w := &recordingWriter{block: make(chan struct{})}
	p := NewProcessor(w, config.ProcessorConfig{WorkerCount: 1, QueueSize: 1}, logging.Discard())

	for i := 0; i < 3; i++ {
		require.NoError(t, p.ProcessMessages(sampleBatch()[:1]))
	}
	assert.GreaterOrEqual(t, p.Dropped(), int64(1))

	close(w.block)
	p.Stop()
}

func TestProcessMessagesAfterStop(t *testing.T) {
	w := &recordingWriter{}
	p := NewProcessor(w, config.ProcessorConfig{WorkerCount: 1, QueueSize: 4, EnableAggregations: true}, logging.Discard())
	p.Stop()

	var err error
	require.NotPanics(t, func() {
		err = p.ProcessMessages([]models.RoomReading{{RoomID: "101"}})
	})
	assert.ErrorIs(t, err, ErrStopped)
	assert.Empty(t, w.readings)
	assert.NotPanics(t, p.Stop)
}

func TestStopRacesWithProducers(t *testing.T) {
	w := &recordingWriter{}
	p := NewProcessor(w, config.ProcessorConfig{WorkerCount: 2, QueueSize: 8}, logging.Discard())

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if err := p.ProcessMessages(sampleBatch()[:1]); err != nil {
					assert.ErrorIs(t, err, ErrStopped)
					return
				}
			}
		}()
	}
	p.Stop()
	wg.Wait()
}

func TestTimeSeriesFlushesOnlyOldBuckets(t *testing.T) {
	now := base.Add(3 * time.Minute)
	w := &recordingWriter{}
	a := newTimeSeriesAggregator(w, logging.Discard(), func() time.Time { return now })

	a.update([]models.RoomReading{
		reading("101", 1, 100, models.StatusOnline, base),
		reading("101", 1, 200, models.StatusOnline, base.Add(150*time.Second)),
	})
	a.flushOldBuckets()

	require.Len(t, w.timeSeries, 1)
	assert.Equal(t, base, w.timeSeries[0].Timestamp)
	assert.Len(t, a.buckets, 1)

	a.flush()
	assert.Len(t, w.timeSeries, 2)
	assert.Empty(t, a.buckets)
}

func TestStatusAggregatorFlushesWhenDue(t *testing.T) {
	now := base
	w := &recordingWriter{}
	a := newStatusAggregator(w, logging.Discard(), func() time.Time { return now })

	a.update([]models.RoomReading{reading("101", 1, 100, models.StatusOnline, base)})
	assert.Empty(t, w.counts)

	now = base.Add(StatusFlushInterval + time.Second)
	a.update([]models.RoomReading{reading("102", 1, 100, models.StatusOnline, now)})
	assert.Equal(t, []models.StatusCount{{Status: models.StatusOnline, Count: 2}}, w.counts)
}

func TestFlusherStops(t *testing.T) {
	calls := make(chan struct{}, 10)
	f := newFlusher(time.Millisecond, func() {
		select {
		case calls <- struct{}{}:
		default:
		}
	})
	f.start()

	select {
	case <-calls:
	case <-time.After(time.Second):
		t.Fatal("flusher never ran")
	}
	f.stop()
}
