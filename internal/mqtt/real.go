package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/keypad-bridge/internal/output"
)

const (
	systemBufferSize = 32
	publishTimeout   = 5 * time.Second
)

// Options configures a RealPublisher.
type Options struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

// RealPublisher sends button events to an actual MQTT broker. It implements
// output.Sink and SystemPublisher.
type RealPublisher struct {
	client      paho.Client
	eventTopic  string
	systemTopic string

	mu        sync.Mutex
	buf       *ringBuffer
	connected bool // set on first successful connect
}

// NewRealPublisher creates a publisher for the given broker. The connection
// is made in the background and retried forever; button events sent while
// disconnected are dropped, system events are buffered.
func NewRealPublisher(opts Options) *RealPublisher {
	if opts.TopicPrefix == "" {
		opts.TopicPrefix = DefaultTopicPrefix
	}
	if opts.ClientID == "" {
		opts.ClientID = "keypad-bridge"
	}

	p := newPublisher(opts.TopicPrefix)

	co := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(p.systemTopic, string(willPayload()), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Warnf("mqtt: connection lost: %v", err)
		})

	p.client = paho.NewClient(co)
	p.client.Connect()
	return p
}

func newPublisher(prefix string) *RealPublisher {
	return &RealPublisher{
		eventTopic:  EventsTopic(prefix),
		systemTopic: SystemTopic(prefix),
		buf:         newRingBuffer(systemBufferSize),
	}
}

func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	pending := p.buf.drainAll()
	p.mu.Unlock()

	if reconnect {
		log.Info("mqtt: reconnected")
		ev := SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED", Retained: true}
		payload, _ := FormatSystemPayload(ev)
		pending = append(pending, bufferedMsg{topic: p.systemTopic, payload: payload, qos: 1, retained: true})
	} else {
		log.Info("mqtt: connected")
	}

	// Handlers run on paho's goroutine; do not block it waiting for acks.
	for _, m := range pending {
		c.Publish(m.topic, m.qos, m.retained, m.payload)
	}
}

// IsConnected reports whether the client currently has a live connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Send publishes the rendered button event, QoS 0, not retained.
func (p *RealPublisher) Send(text string) error {
	if !p.client.IsConnectionOpen() {
		return output.ErrNotConnected
	}
	token := p.client.Publish(p.eventTopic, 0, false, text)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event, QoS 1. While disconnected
// the message is buffered and replayed on connect.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// Held across the check and the push so onConnect drains after us.
	p.mu.Lock()
	if !p.client.IsConnectionOpen() {
		p.buf.push(bufferedMsg{topic: p.systemTopic, payload: payload, qos: 1, retained: event.Retained})
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	token := p.client.Publish(p.systemTopic, 1, event.Retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish system timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
