package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Shopify/sarama"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/config"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
)

// MessageProcessor receives each batch of decoded room readings
type MessageProcessor func([]models.RoomReading) error

// batcher collects readings and hands full or timed-out batches to a
// MessageProcessor on background goroutines that can be waited for.
type batcher struct {
	size     int
	deliver  MessageProcessor
	logger   *slog.Logger
	mu       sync.Mutex
	pending  []models.RoomReading
	inflight sync.WaitGroup
}

func newBatcher(size int, deliver MessageProcessor, logger *slog.Logger) *batcher {
	return &batcher{
		size:    size,
		deliver: deliver,
		logger:  logger,
		pending: make([]models.RoomReading, 0, size),
	}
}

func (b *batcher) add(reading models.RoomReading) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.pending = append(b.pending, reading)
	if len(b.pending) >= b.size {
		b.handOff()
	}
}

func (b *batcher) flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handOff()
}

// handOff must be called with mu held.
func (b *batcher) handOff() {
	if len(b.pending) == 0 {
		return
	}
	batch := make([]models.RoomReading, len(b.pending))
	copy(batch, b.pending)
	b.pending = b.pending[:0]

	b.inflight.Add(1)
	go func() {
		defer b.inflight.Done()
		if err := b.deliver(batch); err != nil {
			b.logger.Error("error processing readings", "count", len(batch), "error", err)
		}
	}()
}

func (b *batcher) wait() {
	b.inflight.Wait()
}

// Consumer reads room readings from a Kafka consumer group
type Consumer struct {
	id      string
	config  config.KafkaConfig
	group   sarama.ConsumerGroup
	batches *batcher
	logger  *slog.Logger
}

// NewConsumer joins the configured consumer group
func NewConsumer(id string, cfg config.KafkaConfig, processor MessageProcessor, logger *slog.Logger) (*Consumer, error) {
	sc := sarama.NewConfig()
	sc.Consumer.Return.Errors = true
	sc.Consumer.Offsets.Initial = sarama.OffsetOldest
	sc.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	sc.Consumer.Fetch.Min = 1
	sc.Consumer.Fetch.Default = 1 << 20
	sc.Consumer.MaxWaitTime = 250 * time.Millisecond

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, sc)
	if err != nil {
		return nil, fmt.Errorf("join consumer group %s: %w", cfg.GroupID, err)
	}
	return newConsumer(id, cfg, group, processor, logger), nil
}

func newConsumer(id string, cfg config.KafkaConfig, group sarama.ConsumerGroup, processor MessageProcessor, logger *slog.Logger) *Consumer {
	logger = logger.With("component", "kafka-consumer", "consumer", id)
	return &Consumer{
		id:      id,
		config:  cfg,
		group:   group,
		batches: newBatcher(cfg.BatchSize, processor, logger),
		logger:  logger,
	}
}

// Consume runs the group session loop until ctx is cancelled or the group
// reports an error. Buffered readings are handed off before it returns.
func (c *Consumer) Consume(ctx context.Context) error {
	groupErrs := make(chan error, 1)
	go c.watchErrors(groupErrs)
	go c.flushEvery(ctx, c.config.BatchTimeout)

	handler := &claimHandler{ctx: ctx, batches: c.batches, logger: c.logger}
	topics := []string{c.config.Topic}
	for {
		select {
		case <-ctx.Done():
			c.batches.flush()
			return nil
		case err := <-groupErrs:
			c.batches.flush()
			return err
		default:
		}

		err := c.group.Consume(ctx, topics, handler)
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled), errors.Is(err, sarama.ErrClosedConsumerGroup):
			c.batches.flush()
			return nil
		default:
			c.batches.flush()
			return err
		}
	}
}

func (c *Consumer) watchErrors(out chan<- error) {
	for err := range c.group.Errors() {
		c.logger.Error("consumer group error", "error", err)
		select {
		case out <- err:
		default:
		}
	}
}

func (c *Consumer) flushEvery(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			c.batches.flush()
		case <-ctx.Done():
			return
		}
	}
}

// Wait blocks until every batch handed to the processor has been delivered
func (c *Consumer) Wait() {
	c.batches.wait()
}

// Close leaves the consumer group
func (c *Consumer) Close() error {
	return c.group.Close()
}

// claimHandler feeds claimed messages into a batcher
type claimHandler struct {
	ctx     context.Context
	batches *batcher
	logger  *slog.Logger
}

func (h *claimHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *claimHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *claimHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	msgs := claim.Messages()
	for {
		select {
		case <-h.ctx.Done():
			return h.ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if reading, err := decodeReading(msg.Value); err != nil {
				h.logger.Warn("skipping undecodable reading", "offset", msg.Offset, "error", err)
			} else {
				h.batches.add(reading)
			}
			session.MarkMessage(msg, "")
		}
	}
}

var errMissingRoom = errors.New("reading has no room_id")

func decodeReading(value []byte) (models.RoomReading, error) {
	var r models.RoomReading
	if err := json.Unmarshal(value, &r); err != nil {
		return r, err
	}
	if r.RoomID == "" {
		return r, errMissingRoom
	}
	return r, nil
}
