package processor

import (
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
)

// Flush cadences of the aggregators
const (
	StatusFlushInterval     = 10 * time.Second
	FloorFlushInterval      = 15 * time.Second
	TimeSeriesFlushInterval = 5 * time.Second
	TimeSeriesBucket        = time.Minute
	TimeSeriesMaxAge        = 2 * time.Minute
)

// flusher runs fn on a ticker until stopped
type flusher struct {
	interval time.Duration
	fn       func()
	done     chan struct{}
	wg       sync.WaitGroup
}

func newFlusher(interval time.Duration, fn func()) *flusher {
	return &flusher{interval: interval, fn: fn, done: make(chan struct{})}
}

func (f *flusher) start() {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				f.fn()
			case <-f.done:
				return
			}
		}
	}()
}

func (f *flusher) stop() {
	close(f.done)
	f.wg.Wait()
}

// statusAggregator counts readings per room status
type statusAggregator struct {
	*flusher
	writer     Writer
	logger     *slog.Logger
	now        func() time.Time
	counts     map[string]int
	mutex      sync.Mutex
	lastUpdate time.Time
}

func newStatusAggregator(writer Writer, logger *slog.Logger, now func() time.Time) *statusAggregator {
	a := &statusAggregator{
		writer:     writer,
		logger:     logger,
		now:        now,
		counts:     make(map[string]int),
		lastUpdate: now(),
	}
	a.flusher = newFlusher(StatusFlushInterval, a.flush)
	return a
}

func (a *statusAggregator) update(readings []models.RoomReading) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	for _, r := range readings {
		a.counts[r.Status]++
	}

	// Flush if enough time has passed
	if a.now().Sub(a.lastUpdate) > StatusFlushInterval {
		a.flushLocked()
	}
}

func (a *statusAggregator) flush() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.flushLocked()
}

func (a *statusAggregator) flushLocked() {
	if len(a.counts) == 0 {
		return
	}

	counts := make([]models.StatusCount, 0, len(a.counts))
	for status, count := range a.counts {
		counts = append(counts, models.StatusCount{
			Status: status,
			Count:  count,
		})
	}
	slices.SortFunc(counts, func(x, y models.StatusCount) int {
		return strings.Compare(x.Status, y.Status)
	})

	if err := a.writer.WriteStatusCounts(counts, a.now()); err != nil {
		a.logger.Error("error writing status counts", "error", err)
		return
	}

	a.counts = make(map[string]int)
	a.lastUpdate = a.now()
}

// floorAggregator aggregates power draw by floor
type floorAggregator struct {
	*flusher
	writer     Writer
	logger     *slog.Logger
	now        func() time.Time
	floors     map[int]*floorStats
	mutex      sync.Mutex
	lastUpdate time.Time
}

type floorStats struct {
	totalPower   float64
	readingCount int
	maxPower     float64
	roomIDs      map[string]bool // Track unique rooms
}

func newFloorAggregator(writer Writer, logger *slog.Logger, now func() time.Time) *floorAggregator {
	a := &floorAggregator{
		writer:     writer,
		logger:     logger,
		now:        now,
		floors:     make(map[int]*floorStats),
		lastUpdate: now(),
	}
	a.flusher = newFlusher(FloorFlushInterval, a.flush)
	return a
}

func (a *floorAggregator) update(readings []models.RoomReading) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	for _, r := range readings {
		stats, exists := a.floors[r.Floor]
		if !exists {
			stats = &floorStats{roomIDs: make(map[string]bool)}
			a.floors[r.Floor] = stats
		}

		stats.totalPower += r.Power
		stats.readingCount++
		stats.roomIDs[r.RoomID] = true
		if r.Power > stats.maxPower {
			stats.maxPower = r.Power
		}
	}

	// Flush if enough time has passed
	if a.now().Sub(a.lastUpdate) > FloorFlushInterval {
		a.flushLocked()
	}
}

func (a *floorAggregator) flush() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.flushLocked()
}

func (a *floorAggregator) flushLocked() {
	if len(a.floors) == 0 {
		return
	}

	consumption := make([]models.FloorConsumption, 0, len(a.floors))
	for floor, stats := range a.floors {
		consumption = append(consumption, models.FloorConsumption{
			Floor:        floor,
			TotalPower:   stats.totalPower,
			RoomCount:    len(stats.roomIDs),
			ReadingCount: stats.readingCount,
			AveragePower: stats.totalPower / float64(stats.readingCount),
			MaxPower:     stats.maxPower,
		})
	}
	slices.SortFunc(consumption, func(x, y models.FloorConsumption) int {
		return x.Floor - y.Floor
	})

	if err := a.writer.WriteFloorConsumption(consumption, a.now()); err != nil {
		a.logger.Error("error writing floor consumption", "error", err)
		return
	}

	a.floors = make(map[int]*floorStats)
	a.lastUpdate = a.now()
}

// timeSeriesAggregator buckets total building power per minute
type timeSeriesAggregator struct {
	*flusher
	writer    Writer
	logger    *slog.Logger
	now       func() time.Time
	buckets   map[time.Time]*timeSeriesBucket
	mutex     sync.Mutex
	lastFlush time.Time
}

type timeSeriesBucket struct {
	totalPower   float64
	readingCount int
	maxPower     float64
	minPower     float64
	timestamp    time.Time
}

func (b *timeSeriesBucket) point() models.TimeSeriesPoint {
	return models.TimeSeriesPoint{
		Timestamp:    b.timestamp,
		TotalPower:   b.totalPower,
		ReadingCount: b.readingCount,
		MaxPower:     b.maxPower,
		MinPower:     b.minPower,
		AvgPower:     b.totalPower / float64(b.readingCount),
	}
}

func newTimeSeriesAggregator(writer Writer, logger *slog.Logger, now func() time.Time) *timeSeriesAggregator {
	a := &timeSeriesAggregator{
		writer:    writer,
		logger:    logger,
		now:       now,
		buckets:   make(map[time.Time]*timeSeriesBucket),
		lastFlush: now(),
	}
	a.flusher = newFlusher(TimeSeriesFlushInterval, a.flushOldBuckets)
	return a
}

func (a *timeSeriesAggregator) update(readings []models.RoomReading) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	for _, r := range readings {
		bucketTime := r.Timestamp.Truncate(TimeSeriesBucket)

		bucket, exists := a.buckets[bucketTime]
		if !exists {
			bucket = &timeSeriesBucket{
				timestamp: bucketTime,
				minPower:  r.Power, // Initialize min with first value
			}
			a.buckets[bucketTime] = bucket
		}

		bucket.totalPower += r.Power
		bucket.readingCount++

		if r.Power > bucket.maxPower {
			bucket.maxPower = r.Power
		}
		if r.Power < bucket.minPower {
			bucket.minPower = r.Power
		}
	}

	if a.now().Sub(a.lastFlush) > TimeSeriesFlushInterval {
		a.flushOldBucketsLocked()
	}
}

func (a *timeSeriesAggregator) flushOldBuckets() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.flushOldBucketsLocked()
}

func (a *timeSeriesAggregator) flushOldBucketsLocked() {
	a.writeLocked(a.now().Add(-TimeSeriesMaxAge))
	a.lastFlush = a.now()
}

// flush writes every bucket regardless of age
func (a *timeSeriesAggregator) flush() {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.writeLocked(time.Time{})
}

// writeLocked writes and drops the buckets older than threshold. A zero
// threshold selects all buckets.
func (a *timeSeriesAggregator) writeLocked(threshold time.Time) {
	points := make([]models.TimeSeriesPoint, 0)
	for timestamp, bucket := range a.buckets {
		if threshold.IsZero() || timestamp.Before(threshold) {
			points = append(points, bucket.point())
			delete(a.buckets, timestamp)
		}
	}
	if len(points) == 0 {
		return
	}

	slices.SortFunc(points, func(x, y models.TimeSeriesPoint) int {
		return x.Timestamp.Compare(y.Timestamp)
	})
	if err := a.writer.WriteTimeSeriesPoints(points); err != nil {
		a.logger.Error("error writing time series points", "error", err)
	}
}
