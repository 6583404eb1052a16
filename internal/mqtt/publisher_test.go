package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kanna-karuppasamy/building-energy-monitor/internal/logging"
	"github.com/kanna-karuppasamy/building-energy-monitor/internal/models"
)

type doneToken struct{ err error }

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t doneToken) Error() error { return t.err }

type published struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	pahomqtt.Client
	sent         []published
	failOn       string
	disconnected bool
}

func (c *fakeClient) Publish(topic string, _ byte, _ bool, payload interface{}) pahomqtt.Token {
	if topic == c.failOn {
		return doneToken{err: errors.New("not connected")}
	}
	c.sent = append(c.sent, published{topic: topic, payload: payload.([]byte)})
	return doneToken{}
}

func (c *fakeClient) Disconnect(uint) { c.disconnected = true }

func TestTopicForRoom(t *testing.T) {
	assert.Equal(t, "bems/rooms/101/reading", TopicForRoom("bems", "101"))
	assert.Equal(t, "bems/rooms/101/reading", TopicForRoom("bems/", "101"))
}

func TestPublishReadings(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, "bems", logging.Discard())

	err := p.PublishReadings([]models.RoomReading{
		{RoomID: "101", Power: 1200, Status: models.StatusOnline},
		{RoomID: "102", Power: 40, Status: models.StatusOffline},
	})
	require.NoError(t, err)
	require.Len(t, client.sent, 2)
	assert.Equal(t, "bems/rooms/101/reading", client.sent[0].topic)

	var r models.RoomReading
	require.NoError(t, json.Unmarshal(client.sent[1].payload, &r))
	assert.Equal(t, "102", r.RoomID)
	assert.Equal(t, models.StatusOffline, r.Status)

	p.Close()
	assert.True(t, client.disconnected)
}

func TestPublishReadingsStopsOnError(t *testing.T) {
	client := &fakeClient{failOn: "bems/rooms/102/reading"}
	p := NewPublisher(client, "bems", logging.Discard())

	err := p.PublishReadings([]models.RoomReading{{RoomID: "101"}, {RoomID: "102"}, {RoomID: "103"}})
	assert.ErrorContains(t, err, "not connected")
	assert.Len(t, client.sent, 1)
}
