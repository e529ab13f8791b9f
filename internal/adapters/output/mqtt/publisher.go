// Package mqtt publishes device and sensor state to an MQTT broker as
// retained JSON messages.
package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"telldus-bridge/internal/domain/model"
	"telldus-bridge/internal/ports"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPublishTimeout = 5 * time.Second
	disconnectQuiesce     = 250 // milliseconds
	maxQoS                = 2
)

var (
	ErrConnectionFailed = errors.New("mqtt: connection failed")
	ErrPublishFailed    = errors.New("mqtt: publish failed")
)

// client is the part of pahomqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token
	Disconnect(quiesce uint)
}

// Publisher is a ports.StateListener that mirrors every refreshed or
// patched device, and every refreshed sensor, to the broker.
type Publisher struct {
	client   client
	topics   Topics
	qos      byte
	clientID string
	logger   ports.Logger
}

var _ ports.StateListener = (*Publisher)(nil)

// DeviceState is the payload published on a device's state topic.
type DeviceState struct {
	ID         model.ID     `json:"id"`
	Name       string       `json:"name"`
	State      string       `json:"state"`
	StateValue model.Number `json:"stateValue"`
	Online     model.Flag   `json:"online"`
}

// Connect dials the broker and announces the bridge as online.
func Connect(cfg model.MQTTConfig, logger ports.Logger) (*Publisher, error) {
	topics := Topics{Prefix: cfg.TopicPrefix}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port))
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetWill(topics.Status(), statusPayload("offline", cfg.ClientID), 1, true)

	c := pahomqtt.NewClient(opts)
	token := c.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	p := NewPublisher(c, cfg, logger)
	if err := p.publish(topics.Status(), []byte(statusPayload("online", cfg.ClientID))); err != nil {
		logger.Warn("mqtt online status not published", "error", err)
	}
	return p, nil
}

// NewPublisher wraps an already connected client.
func NewPublisher(c client, cfg model.MQTTConfig, logger ports.Logger) *Publisher {
	if logger == nil {
		logger = ports.NopLogger{}
	}
	qos := cfg.QoS
	if qos < 0 || qos > maxQoS {
		qos = 1
	}
	return &Publisher{
		client:   c,
		topics:   Topics{Prefix: cfg.TopicPrefix},
		qos:      byte(qos),
		clientID: cfg.ClientID,
		logger:   logger,
	}
}

func (p *Publisher) DevicesRefreshed(ctx context.Context, devices []model.Device) {
	for _, d := range devices {
		p.DeviceChanged(ctx, d)
	}
}

func (p *Publisher) DeviceChanged(_ context.Context, d model.Device) {
	payload, err := json.Marshal(DeviceState{
		ID:         d.ID,
		Name:       d.Name,
		State:      d.State.String(),
		StateValue: d.StateValue,
		Online:     d.Online,
	})
	if err != nil {
		p.logger.Error("encoding device state", "id", d.ID, "error", err)
		return
	}
	if err := p.publish(p.topics.DeviceState(d.ID.String()), payload); err != nil {
		p.logger.Warn("device state not published", "id", d.ID, "error", err)
	}
}

func (p *Publisher) SensorsRefreshed(_ context.Context, sensors []model.Sensor) {
	for _, s := range sensors {
		payload, err := json.Marshal(s)
		if err != nil {
			p.logger.Error("encoding sensor", "id", s.ID, "error", err)
			continue
		}
		if err := p.publish(p.topics.Sensor(s.ID.String()), payload); err != nil {
			p.logger.Warn("sensor not published", "id", s.ID, "error", err)
		}
	}
}

// Close announces a graceful shutdown and disconnects.
func (p *Publisher) Close() {
	_ = p.publish(p.topics.Status(), []byte(statusPayload("offline", p.clientID)))
	p.client.Disconnect(disconnectQuiesce)
}

func (p *Publisher) publish(topic string, payload []byte) error {
	token := p.client.Publish(topic, p.qos, true, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

func statusPayload(status, clientID string) string {
	return fmt.Sprintf(`{"status":"%s","client_id":"%s","timestamp":"%s"}`,
		status, clientID, time.Now().UTC().Format(time.RFC3339))
}
