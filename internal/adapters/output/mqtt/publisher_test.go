package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"telldus-bridge/internal/domain/model"
	"testing"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
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
	qos      byte
	retained bool
	payload  []byte
}

type fakeClient struct {
	mu           sync.Mutex
	messages     []message
	err          error
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) pahomqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message{topic, qos, retained, payload.([]byte)})
	return &fakeToken{err: c.err}
}

func (c *fakeClient) Disconnect(uint) {
	c.disconnected = true
}

var testCfg = model.MQTTConfig{TopicPrefix: "telldus", QoS: 1, ClientID: "bridge-test"}

func TestPublisher_DevicesRefreshed(t *testing.T) {
	c := &fakeClient{}
	p := NewPublisher(c, testCfg, nil)

	p.DevicesRefreshed(context.Background(), []model.Device{
		{ID: "7", Name: "Lamp", State: model.CommandDim, StateValue: model.NewNumber(128), Online: true},
		{ID: "8", Name: "Fan", State: model.CommandOff},
	})

	require.Len(t, c.messages, 2)
	msg := c.messages[0]
	assert.Equal(t, "telldus/device/7/state", msg.topic)
	assert.Equal(t, byte(1), msg.qos)
	assert.True(t, msg.retained)
	assert.JSONEq(t, `{"id":"7","name":"Lamp","state":"dim","stateValue":128,"online":1}`, string(msg.payload))

	assert.Equal(t, "telldus/device/8/state", c.messages[1].topic)
	assert.JSONEq(t, `{"id":"8","name":"Fan","state":"off","stateValue":null,"online":0}`, string(c.messages[1].payload))
}

func TestPublisher_SensorsRefreshed(t *testing.T) {
	c := &fakeClient{}
	p := NewPublisher(c, testCfg, nil)

	p.SensorsRefreshed(context.Background(), []model.Sensor{{
		ID:   "3",
		Name: "Garage",
		Data: []model.SensorValue{{Name: "temp", Value: model.NewNumber(4.5), Scale: model.NewNumber(0)}},
	}})

	require.Len(t, c.messages, 1)
	assert.Equal(t, "telldus/sensor/3", c.messages[0].topic)

	var got model.Sensor
	require.NoError(t, json.Unmarshal(c.messages[0].payload, &got))
	assert.Equal(t, "Garage", got.Name)
	assert.Equal(t, 4.5, got.Data[0].Value.Value)
}

func TestPublisher_ErrorsAreLoggedNotFatal(t *testing.T) {
	c := &fakeClient{err: errors.New("not connected")}
	p := NewPublisher(c, testCfg, nil)

	assert.NotPanics(t, func() {
		p.DeviceChanged(context.Background(), model.Device{ID: "1"})
	})
	err := p.publish("telldus/x", []byte("{}"))
	assert.ErrorIs(t, err, ErrPublishFailed)
}

func TestPublisher_CloseAnnouncesOffline(t *testing.T) {
	c := &fakeClient{}
	p := NewPublisher(c, testCfg, nil)
	p.Close()

	require.Len(t, c.messages, 1)
	assert.Equal(t, "telldus/status", c.messages[0].topic)
	assert.Contains(t, string(c.messages[0].payload), `"status":"offline"`)
	assert.True(t, c.disconnected)
}

func TestNewPublisher_ClampsQoS(t *testing.T) {
	p := NewPublisher(&fakeClient{}, model.MQTTConfig{QoS: 7}, nil)
	assert.Equal(t, byte(1), p.qos)
}

func TestTopics(t *testing.T) {
	topics := Topics{Prefix: "home/telldus"}
	assert.Equal(t, "home/telldus/device/12/state", topics.DeviceState("12"))
	assert.Equal(t, "home/telldus/sensor/4", topics.Sensor("4"))
	assert.Equal(t, "home/telldus/status", topics.Status())
}
