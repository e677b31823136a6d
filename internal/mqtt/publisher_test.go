package mqtt

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rm-hull/prix-carburant/internal/models"
	"github.com/rm-hull/prix-carburant/internal/sensors"
)

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Error() error                   { return t.err }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic    string
	retained bool
	payload  string
}

type fakeClient struct {
	mu           sync.Mutex
	connected    bool
	failTopic    string
	messages     []message
	disconnected bool
}

func (c *fakeClient) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *fakeClient) Publish(topic string, _ byte, retained bool, payload interface{}) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if topic == c.failTopic {
		return &fakeToken{err: errors.New("broker said no")}
	}
	var body string
	switch v := payload.(type) {
	case string:
		body = v
	case []byte:
		body = string(v)
	}
	c.messages = append(c.messages, message{topic: topic, retained: retained, payload: body})
	return &fakeToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connected = false
	c.disconnected = true
}

func (c *fakeClient) byTopic() map[string]message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]message, len(c.messages))
	for _, m := range c.messages {
		out[m.topic] = m
	}
	return out
}

var topics = Topics{Prefix: "prix_carburant", DiscoveryPrefix: "homeassistant"}

func testStations() models.Stations {
	return models.Stations{
		"75012001": {
			ID: 75012001, Name: "Leclerc Paris", Brand: "Leclerc", City: "Paris",
			Fuels: map[models.Fuel]models.FuelPrice{
				models.FuelE10: {UpdatedDate: "2024-03-01T08:00:00+01:00", Price: 1.699},
			},
		},
	}
}

func newTestPublisher(fc *fakeClient) *Publisher {
	return newPublisher(fc, topics, 1, sensors.Options{
		Fuels:                 []models.Fuel{models.FuelE10, models.FuelSP98},
		DisplayEntityPictures: true,
	}, zerolog.Nop())
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "prix_carburant/status", topics.Status())
	assert.Equal(t, "prix_carburant/42/e10/state", topics.State(42, models.FuelE10))
	assert.Equal(t, "prix_carburant/42/gplc/attributes", topics.Attributes(42, models.FuelGPLc))
	assert.Equal(t, "homeassistant/sensor/prix_carburant_42_e10/config", topics.Discovery("prix_carburant_42_e10"))
}

func TestPublishStations(t *testing.T) {
	fc := &fakeClient{connected: true}
	p := newTestPublisher(fc)

	require.NoError(t, p.PublishStations(context.Background(), testStations(), time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC)))

	msgs := fc.byTopic()
	assert.Len(t, msgs, 6, "discovery, attributes and state for two fuels")

	state := msgs["prix_carburant/75012001/e10/state"]
	assert.Equal(t, "1.699", state.payload)
	assert.True(t, state.retained)
	assert.Equal(t, payloadNone, msgs["prix_carburant/75012001/sp98/state"].payload)

	var attrs map[string]any
	require.NoError(t, json.Unmarshal([]byte(msgs["prix_carburant/75012001/e10/attributes"].payload), &attrs))
	assert.Equal(t, "Leclerc Paris", attrs["name"])
	assert.Equal(t, "E10", attrs["fuel_type"])
	assert.EqualValues(t, 2, attrs["days_since_last_update"])

	var discovery discoveryPayload
	require.NoError(t, json.Unmarshal([]byte(msgs["homeassistant/sensor/prix_carburant_75012001_e10/config"].payload), &discovery))
	assert.Equal(t, "Leclerc Paris E10", discovery.Name)
	assert.Equal(t, "prix_carburant_75012001_e10", discovery.UniqueID)
	assert.Equal(t, "prix_carburant/75012001/e10/state", discovery.StateTopic)
	assert.Equal(t, "prix_carburant/status", discovery.AvailabilityTopic)
	assert.Equal(t, "€/L", discovery.UnitOfMeasurement)
	assert.Equal(t, []string{"prix_carburant_75012001"}, discovery.Device.Identifiers)
	assert.Equal(t, "Leclerc", discovery.Device.Manufacturer)
	assert.NotEmpty(t, discovery.EntityPicture)
}

func TestPublishStations_ContinuesAfterFailure(t *testing.T) {
	fc := &fakeClient{connected: true, failTopic: "homeassistant/sensor/prix_carburant_75012001_e10/config"}
	p := newTestPublisher(fc)

	err := p.PublishStations(context.Background(), testStations(), time.Now())
	assert.ErrorIs(t, err, ErrPublishFailed)
	assert.Contains(t, fc.byTopic(), "prix_carburant/75012001/sp98/state")
}

func TestPublishStations_NotConnected(t *testing.T) {
	p := newTestPublisher(&fakeClient{})
	assert.ErrorIs(t, p.PublishStations(context.Background(), testStations(), time.Now()), ErrNotConnected)
}

func TestPublishStations_Cancelled(t *testing.T) {
	fc := &fakeClient{connected: true}
	p := newTestPublisher(fc)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, p.PublishStations(ctx, testStations(), time.Now()), context.Canceled)
	assert.Empty(t, fc.byTopic())
}

func TestClose(t *testing.T) {
	fc := &fakeClient{connected: true}
	newTestPublisher(fc).Close()

	assert.True(t, fc.disconnected)
	assert.Equal(t, payloadOffline, fc.byTopic()["prix_carburant/status"].payload)
}
