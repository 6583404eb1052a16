package processor

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/config"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
)

// ErrStopped is returned when readings arrive after Stop
var ErrStopped = errors.New("processor stopped")

// Writer stores raw readings and the aggregates derived from them
type Writer interface {
	WriteReadings(readings []models.RoomReading) error
	WriteStatusCounts(counts []models.StatusCount, timestamp time.Time) error
	WriteFloorConsumption(consumption []models.FloorConsumption, timestamp time.Time) error
	WriteTimeSeriesPoints(points []models.TimeSeriesPoint) error
}

// Processor processes incoming room readings
type Processor struct {
	writer               Writer
	config               config.ProcessorConfig
	logger               *slog.Logger
	queue                chan []models.RoomReading
	mu                   sync.RWMutex
	stopped              bool
	wg                   sync.WaitGroup
	dropped              atomic.Int64
	statusAggregator     *statusAggregator
	floorAggregator      *floorAggregator
	timeSeriesAggregator *timeSeriesAggregator
}

// NewProcessor creates a new processor and starts its workers
func NewProcessor(writer Writer, cfg config.ProcessorConfig, logger *slog.Logger) *Processor {
	p := &Processor{
		writer: writer,
		config: cfg,
		logger: logger.With("component", "processor"),
		queue:  make(chan []models.RoomReading, cfg.QueueSize),
	}

	// Initialize aggregators if enabled
	if cfg.EnableAggregations {
		p.statusAggregator = newStatusAggregator(writer, p.logger, time.Now)
		p.floorAggregator = newFloorAggregator(writer, p.logger, time.Now)
		p.timeSeriesAggregator = newTimeSeriesAggregator(writer, p.logger, time.Now)
		p.statusAggregator.start()
		p.floorAggregator.start()
		p.timeSeriesAggregator.start()
	}

	p.wg.Add(cfg.WorkerCount)
	for i := 0; i < cfg.WorkerCount; i++ {
		go p.worker(i)
	}

	return p
}

// ProcessMessages queues a batch of readings. When the queue is full the
// batch is dropped with a warning. After Stop it returns ErrStopped.
func (p *Processor) ProcessMessages(readings []models.RoomReading) error {
	// Create a copy of the readings to avoid concurrent modification
	batch := make([]models.RoomReading, len(readings))
	copy(batch, readings)

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return ErrStopped
	}

	select {
	case p.queue <- batch:
		return nil
	default:
		p.dropped.Add(int64(len(readings)))
		p.logger.Warn("processing queue is full, dropping readings", "count", len(readings))
		return nil
	}
}

// Dropped returns how many readings were discarded because the queue was full
func (p *Processor) Dropped() int64 {
	return p.dropped.Load()
}

// worker processes readings from the queue
func (p *Processor) worker(id int) {
	defer p.wg.Done()

	for batch := range p.queue {
		// Process raw data
		if err := p.writer.WriteReadings(batch); err != nil {
			p.logger.Error("error writing readings", "worker", id, "error", err)
			continue
		}

		if p.config.EnableAggregations {
			p.statusAggregator.update(batch)
			p.floorAggregator.update(batch)
			p.timeSeriesAggregator.update(batch)
		}
	}
}

// Stop drains the queue, stops the flushers and writes what is left.
// Calling it more than once is a no-op.
func (p *Processor) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	close(p.queue)
	p.mu.Unlock()

	p.wg.Wait()

	if p.config.EnableAggregations {
		p.statusAggregator.stop()
		p.floorAggregator.stop()
		p.timeSeriesAggregator.stop()

		// Final flush for aggregators
		p.statusAggregator.flush()
		p.floorAggregator.flush()
		p.timeSeriesAggregator.flush()
	}
}
