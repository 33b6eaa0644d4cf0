package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const mqttConnectTimeout = 10 * time.Second

// MQTT publishes every notification as JSON so home automation can react
// to link state.
type MQTT struct {
	client paho.Client
	topic  string
}

// NewMQTT connects once. Later drops are handled by auto-reconnect; a
// failed first connect leaves no client running.
func NewMQTT(broker, clientID, topic string) (*MQTT, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetConnectTimeout(mqttConnectTimeout).
		SetAutoReconnect(true)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(mqttConnectTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return &MQTT{client: client, topic: topic}, nil
}

type mqttPayload struct {
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Priority Priority `json:"priority"`
	Tags     []string `json:"tags,omitempty"`
	SentAt   string   `json:"sent_at"`
}

// FormatPayload renders msg as the JSON body published on the topic.
func FormatPayload(msg Message, at time.Time) ([]byte, error) {
	p := msg.Priority
	if p == "" {
		p = PriorityDefault
	}
	return json.Marshal(mqttPayload{
		Title:    msg.Title,
		Text:     msg.Text,
		Priority: p,
		Tags:     msg.Tags,
		SentAt:   at.UTC().Format(time.RFC3339),
	})
}

func (m *MQTT) Send(ctx context.Context, msg Message) error {
	payload, err := FormatPayload(msg, time.Now())
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	// QoS 1: at least once
	token := m.client.Publish(m.topic, 1, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("mqtt publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish: %w", err)
	}
	return nil
}

func (m *MQTT) Close() error {
	m.client.Disconnect(1000) // 1 second timeout
	return nil
}
