package publish

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/range.trigger/internal/monitoring"
)

type fakeToken struct {
	err     error
	pending bool
}

func (t *fakeToken) Wait() bool                     { return !t.pending }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return !t.pending }
func (t *fakeToken) Error() error                   { return t.err }

func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic   string
	payload []byte
}

type fakeClient struct {
	mu           sync.Mutex
	messages     []message
	next         *fakeToken
	disconnected bool
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message{topic, payload.([]byte)})
	if c.next != nil {
		tok := c.next
		c.next = nil
		return tok
	}
	return &fakeToken{}
}

func (c *fakeClient) Disconnect(uint) {
	c.disconnected = true
}

func muteLogs(t *testing.T) {
	prev := monitoring.Logf
	monitoring.SetLogger(nil)
	t.Cleanup(func() { monitoring.Logf = prev })
}

func TestPublish_JSON(t *testing.T) {
	c := &fakeClient{}
	p := newMQTTPublisher(c, "lab/turret")

	ok := p.Publish(map[string]any{"id": "e1", "delta_cm": 6.0})
	require.True(t, ok)

	require.Len(t, c.messages, 1)
	assert.Equal(t, "lab/turret", c.messages[0].topic)
	var got map[string]any
	require.NoError(t, json.Unmarshal(c.messages[0].payload, &got))
	assert.Equal(t, "e1", got["id"])
	assert.Equal(t, 6.0, got["delta_cm"])
}

func TestPublish_DefaultTopic(t *testing.T) {
	p := newMQTTPublisher(&fakeClient{}, "")
	assert.Equal(t, DefaultTopic, p.Topic())
}

func TestPublish_FailuresAreSwallowed(t *testing.T) {
	muteLogs(t)
	c := &fakeClient{}
	p := newMQTTPublisher(c, "t")

	c.next = &fakeToken{err: errors.New("not connected")}
	assert.False(t, p.Publish("x"))

	c.next = &fakeToken{pending: true}
	assert.False(t, p.Publish("x"))

	assert.False(t, p.Publish(make(chan int)), "unmarshallable value")
	assert.Len(t, c.messages, 2)

	assert.True(t, p.Publish("x"))
}

func TestClose(t *testing.T) {
	c := &fakeClient{}
	newMQTTPublisher(c, "t").Close()
	assert.True(t, c.disconnected)
}
