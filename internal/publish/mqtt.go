// Package publish announces trigger events to an MQTT broker.
package publish

import (
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/banshee-data/range.trigger/internal/monitoring"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "range-trigger/events"

const publishTimeout = 2 * time.Second

// publisher is the part of mqtt.Client used here.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTTPublisher sends JSON messages to a single topic. Failures are logged
// and never returned to the caller.
type MQTTPublisher struct {
	client  publisher
	topic   string
	timeout time.Duration
}

// Connect dials broker (for example "tcp://localhost:1883") and returns a
// publisher for topic.
func Connect(broker, clientID, topic string) (*MQTTPublisher, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect to MQTT broker %s: %w", broker, token.Error())
	}
	return newMQTTPublisher(c, topic), nil
}

func newMQTTPublisher(c publisher, topic string) *MQTTPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &MQTTPublisher{client: c, topic: topic, timeout: publishTimeout}
}

// Topic returns the topic messages are published to.
func (p *MQTTPublisher) Topic() string {
	return p.topic
}

// Publish marshals v to JSON and publishes it at QoS 0. It reports whether
// the broker accepted the message.
func (p *MQTTPublisher) Publish(v any) bool {
	payload, err := json.Marshal(v)
	if err != nil {
		monitoring.Logf("[publish] Error marshalling event: %s", err)
		return false
	}

	token := p.client.Publish(p.topic, 0, false, payload)
	if !token.WaitTimeout(p.timeout) {
		monitoring.Logf("[publish] Timed out publishing to %s", p.topic)
		return false
	}
	if err := token.Error(); err != nil {
		monitoring.Logf("[publish] Failed to publish to %s: %s", p.topic, err)
		return false
	}
	return true
}

// Close disconnects from the broker.
func (p *MQTTPublisher) Close() {
	p.client.Disconnect(250)
}
