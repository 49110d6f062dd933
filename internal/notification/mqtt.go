package notification

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"clinic-call-backend/config"
	"clinic-call-backend/internal/model"
)

// mqttClient is the subset of mqtt.Client the emitter uses.
type mqttClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	IsConnected() bool
	Disconnect(quiesce uint)
}

// MQTTEmitter publishes the current call and video to a broker. Messages are
// retained by default so a board that connects late still sees the latest value.
type MQTTEmitter struct {
	client   mqttClient
	qos      byte
	retained bool

	callTopic  string
	videoTopic string

	mu        sync.Mutex
	published map[string]uint64
	errors    uint64
}

// NewMQTTEmitter connects to the configured broker.
func NewMQTTEmitter(cfg config.MQTTConfig) (*MQTTEmitter, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(fmt.Sprintf("%s-%s", cfg.ClientID, uuid.NewString()[:8]))
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Printf("MQTT connected to %s", cfg.Broker)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("MQTT connection lost (%v), reconnecting", err)
	}

	client := mqtt.NewClient(opts)
	if err := connect(client, 5*time.Second); err != nil {
		return nil, err
	}

	return newMQTTEmitter(client, cfg), nil
}

type mqttConnector interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
}

// connect waits up to timeout for the first connection. On failure the client
// is disconnected so connect-retry stops in the background.
func connect(client mqttConnector, timeout time.Duration) error {
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		client.Disconnect(0)
		return fmt.Errorf("mqtt connection timeout after %s", timeout)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return fmt.Errorf("mqtt connection failed: %w", err)
	}
	return nil
}

func newMQTTEmitter(client mqttClient, cfg config.MQTTConfig) *MQTTEmitter {
	return &MQTTEmitter{
		client:     client,
		qos:        cfg.QoS,
		retained:   cfg.Retained,
		callTopic:  cfg.TopicPrefix + "/call",
		videoTopic: cfg.TopicPrefix + "/video",
		published:  make(map[string]uint64),
	}
}

// PublishCall implements Publisher.
func (e *MQTTEmitter) PublishCall(call model.Call) {
	if err := e.publish(e.callTopic, call); err != nil {
		log.Printf("MQTT publish of call %d failed: %v", call.ID, err)
	}
}

// PublishVideo implements Publisher. A nil url publishes {"url":null}.
func (e *MQTTEmitter) PublishVideo(url *string) {
	if err := e.publish(e.videoTopic, struct {
		URL *string `json:"url"`
	}{URL: url}); err != nil {
		log.Printf("MQTT publish of video failed: %v", err)
	}
}

func (e *MQTTEmitter) publish(topic string, v any) error {
	if !e.client.IsConnected() {
		e.countError()
		return fmt.Errorf("mqtt not connected")
	}

	payload, err := json.Marshal(v)
	if err != nil {
		e.countError()
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	token := e.client.Publish(topic, e.qos, e.retained, payload)
	if !token.WaitTimeout(2 * time.Second) {
		e.countError()
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		e.countError()
		return fmt.Errorf("publish failed: %w", err)
	}

	e.mu.Lock()
	e.published[topic]++
	e.mu.Unlock()
	return nil
}

func (e *MQTTEmitter) countError() {
	e.mu.Lock()
	e.errors++
	e.mu.Unlock()
}

// Stats returns the number of messages published per topic and the error count.
func (e *MQTTEmitter) Stats() (map[string]uint64, uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]uint64, len(e.published))
	for k, v := range e.published {
		out[k] = v
	}
	return out, e.errors
}

// Close disconnects from the broker.
func (e *MQTTEmitter) Close() {
	e.client.Disconnect(250)
}
