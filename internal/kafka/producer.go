package kafka

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Shopify/sarama"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/config"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
)

// Producer publishes room readings keyed by room id
type Producer struct {
	topic    string
	producer sarama.SyncProducer
	logger   *slog.Logger
}

// ProducerConfig returns the sarama settings used by the reading producer
func ProducerConfig() *sarama.Config {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Return.Errors = true
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Retry.Max = 3
	// readings of one room stay ordered on one partition
	saramaConfig.Producer.Partitioner = sarama.NewHashPartitioner
	return saramaConfig
}

// NewProducer connects a synchronous producer to the brokers
func NewProducer(cfg config.KafkaConfig, logger *slog.Logger) (*Producer, error) {
	sp, err := sarama.NewSyncProducer(cfg.Brokers, ProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewProducerWith(cfg.Topic, sp, logger), nil
}

// NewProducerWith wraps an existing sarama producer
func NewProducerWith(topic string, sp sarama.SyncProducer, logger *slog.Logger) *Producer {
	return &Producer{
		topic:    topic,
		producer: sp,
		logger:   logger.With("component", "kafka-producer", "topic", topic),
	}
}

// Message encodes one reading as a producer message
func (p *Producer) Message(r models.RoomReading) (*sarama.ProducerMessage, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode reading for room %s: %w", r.RoomID, err)
	}
	return &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(r.RoomID),
		Value:     sarama.ByteEncoder(payload),
		Timestamp: r.Timestamp,
	}, nil
}

// PublishReadings sends one message per reading
func (p *Producer) PublishReadings(readings []models.RoomReading) error {
	if len(readings) == 0 {
		return nil
	}

	msgs := make([]*sarama.ProducerMessage, 0, len(readings))
	for _, r := range readings {
		msg, err := p.Message(r)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}

	if err := p.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("publish %d readings: %w", len(msgs), err)
	}
	p.logger.Debug("published readings", "count", len(msgs))
	return nil
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.producer.Close()
}
