// Package mqtt publishes station sensors to an MQTT broker using Home Assistant
// discovery messages.
package mqtt

import (
	"context"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"

	"github.com/rm-hull/prix-carburant/internal/config"
	"github.com/rm-hull/prix-carburant/internal/models"
	"github.com/rm-hull/prix-carburant/internal/sensors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 1000 // milliseconds
	defaultKeepAlive         = 60 * time.Second

	payloadOnline  = "online"
	payloadOffline = "offline"
	payloadNone    = "None"
)

// client is the subset of pahomqtt.Client used for publishing.
type client interface {
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

type device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model"`
}

type discoveryPayload struct {
	Name                string `json:"name"`
	UniqueID            string `json:"unique_id"`
	ObjectID            string `json:"object_id"`
	StateTopic          string `json:"state_topic"`
	JSONAttributesTopic string `json:"json_attributes_topic"`
	AvailabilityTopic   string `json:"availability_topic"`
	UnitOfMeasurement   string `json:"unit_of_measurement"`
	StateClass          string `json:"state_class"`
	Icon                string `json:"icon"`
	EntityPicture       string `json:"entity_picture,omitempty"`
	Device              device `json:"device"`
}

type Publisher struct {
	client  client
	topics  Topics
	qos     byte
	options sensors.Options
	logger  zerolog.Logger
}

// Connect opens a connection to the configured broker. The status topic carries a
// retained online/offline flag, with offline also set as the last will.
func Connect(cfg config.MQTTConfig, opts sensors.Options, logger zerolog.Logger) (*Publisher, error) {
	topics := Topics{Prefix: cfg.TopicPrefix, DiscoveryPrefix: cfg.DiscoveryPrefix}
	logger = logger.With().Str("component", "mqtt").Logger()

	options := pahomqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectTimeout(defaultConnectTimeout).
		SetKeepAlive(defaultKeepAlive).
		SetWill(topics.Status(), payloadOffline, byte(cfg.QoS), true)
	if cfg.Username != "" {
		options.SetUsername(cfg.Username)
		options.SetPassword(cfg.Password)
	}
	options.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn().Err(err).Msg("connection lost")
	})

	c := pahomqtt.NewClient(options)
	token := c.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, errors.Wrapf(ErrConnectionFailed, "timeout after %v", defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, errors.WithSecondaryError(ErrConnectionFailed, err)
	}

	p := newPublisher(c, topics, byte(cfg.QoS), opts, logger)
	if err := p.publish(topics.Status(), true, payloadOnline); err != nil {
		p.Close()
		return nil, err
	}
	logger.Info().Str("broker", cfg.Broker).Msg("connected to MQTT broker")
	return p, nil
}

func newPublisher(c client, topics Topics, qos byte, opts sensors.Options, logger zerolog.Logger) *Publisher {
	return &Publisher{client: c, topics: topics, qos: qos, options: opts, logger: logger}
}

// PublishStations sends discovery, state and attribute messages for every sensor. It
// carries on past individual failures and returns them joined.
func (p *Publisher) PublishStations(ctx context.Context, stations models.Stations, updated time.Time) error {
	var errs error
	count := 0
	for _, s := range sensors.Build(stations, p.options, updated) {
		if err := ctx.Err(); err != nil {
			return errors.CombineErrors(errs, err)
		}
		if err := p.publishSensor(s); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "sensor %s", s.UniqueID))
			continue
		}
		count++
	}
	p.logger.Debug().Int("sensors", count).Msg("published sensors")
	return errs
}

// OnRefresh adapts PublishStations to a refresh listener, logging failures.
func (p *Publisher) OnRefresh(ctx context.Context, stations models.Stations, updated time.Time) {
	if err := p.PublishStations(ctx, stations, updated); err != nil {
		p.logger.Error().Err(err).Msg("failed to publish sensors")
	}
}

func (p *Publisher) publishSensor(s sensors.Sensor) error {
	discovery, err := json.Marshal(p.discovery(s))
	if err != nil {
		return errors.Wrap(err, "failed to encode discovery payload")
	}
	if err := p.publish(p.topics.Discovery(s.UniqueID), true, discovery); err != nil {
		return err
	}

	attributes, err := json.Marshal(s.Attributes)
	if err != nil {
		return errors.Wrap(err, "failed to encode attributes")
	}
	if err := p.publish(p.topics.Attributes(s.StationID, s.Fuel), true, attributes); err != nil {
		return err
	}

	state := payloadNone
	if s.State != nil {
		state = strconv.FormatFloat(*s.State, 'f', -1, 64)
	}
	return p.publish(p.topics.State(s.StationID, s.Fuel), true, state)
}

func (p *Publisher) discovery(s sensors.Sensor) discoveryPayload {
	name := s.Attributes.Name
	if name == "" || name == models.UndefinedName {
		name = "Station " + strconv.Itoa(s.StationID)
	}
	return discoveryPayload{
		Name:                s.Name,
		UniqueID:            s.UniqueID,
		ObjectID:            s.UniqueID,
		StateTopic:          p.topics.State(s.StationID, s.Fuel),
		JSONAttributesTopic: p.topics.Attributes(s.StationID, s.Fuel),
		AvailabilityTopic:   p.topics.Status(),
		UnitOfMeasurement:   sensors.UnitOfMeasurement,
		StateClass:          "measurement",
		Icon:                sensors.Icon,
		EntityPicture:       s.EntityPicture,
		Device: device{
			Identifiers:  []string{"prix_carburant_" + strconv.Itoa(s.StationID)},
			Name:         name,
			Manufacturer: s.Attributes.Brand,
			Model:        "Station",
		},
	}
}

func (p *Publisher) publish(topic string, retained bool, payload interface{}) error {
	if !p.client.IsConnected() {
		return ErrNotConnected
	}
	token := p.client.Publish(topic, p.qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return errors.Wrapf(ErrPublishFailed, "timeout after %v on %s", defaultPublishTimeout, topic)
	}
	if err := token.Error(); err != nil {
		return errors.WithSecondaryError(errors.Wrapf(ErrPublishFailed, "topic %s", topic), err)
	}
	return nil
}

// Close marks the service offline and disconnects.
func (p *Publisher) Close() {
	if p.client.IsConnected() {
		if err := p.publish(p.topics.Status(), true, payloadOffline); err != nil {
			p.logger.Warn().Err(err).Msg("failed to publish offline status")
		}
	}
	p.client.Disconnect(defaultDisconnectQuiesce)
}
