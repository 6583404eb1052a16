package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/config"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
)

const (
	QoS            = 0
	publishTimeout = 5 * time.Second
)

// TopicForRoom builds "{prefix}/rooms/{id}/reading".
func TopicForRoom(prefix, roomID string) string {
	return strings.TrimSuffix(prefix, "/") + "/rooms/" + roomID + "/reading"
}

// Connect dials the broker with the configured credentials.
func Connect(cfg config.MQTTConfig) (pahomqtt.Client, error) {
	opts := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(publishTimeout)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}

	client := pahomqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timed out", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, err)
	}
	return client, nil
}

// Publisher sends one message per room reading.
type Publisher struct {
	client pahomqtt.Client
	prefix string
	logger *slog.Logger
}

func NewPublisher(client pahomqtt.Client, prefix string, logger *slog.Logger) *Publisher {
	return &Publisher{
		client: client,
		prefix: prefix,
		logger: logger.With("component", "mqtt"),
	}
}

// PublishReadings publishes every reading and stops at the first failure.
func (p *Publisher) PublishReadings(readings []models.RoomReading) error {
	for _, r := range readings {
		payload, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode reading for room %s: %w", r.RoomID, err)
		}
		topic := TopicForRoom(p.prefix, r.RoomID)
		token := p.client.Publish(topic, QoS, false, payload)
		if !token.WaitTimeout(publishTimeout) {
			return fmt.Errorf("publish %s: timed out", topic)
		}
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish %s: %w", topic, err)
		}
	}
	p.logger.Debug("published readings", "count", len(readings))
	return nil
}

// Close disconnects from the broker.
func (p *Publisher) Close() {
	p.client.Disconnect(250)
}
