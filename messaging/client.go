package messaging

import (
	"fmt"
	"log"
	"sync"

	"tmscore/config"
)

type MessageHandler func(topic string, payload []byte)

// transport is one broker binding. Kafka, MQTT and AMQP each implement it.
type transport interface {
	connect() error
	publish(topic string, payload []byte) error
	subscribe(topic string, handler MessageHandler) error
	connected() bool
	close()
}

// Client is the unified messaging client. The backend is picked from
// config: kafka, mqtt or amqp.
type Client struct {
	mu       sync.RWMutex
	cfg      *config.MessagingConfig
	conn     transport
	handlers map[string]MessageHandler
}

func NewClient(cfg *config.MessagingConfig) *Client {
	return &Client{
		cfg:      cfg,
		handlers: make(map[string]MessageHandler),
	}
}

func newTransport(cfg *config.MessagingConfig) (transport, error) {
	switch cfg.Backend {
	case "kafka", "":
		return &kafkaTransport{cfg: cfg.Kafka, topics: []string{cfg.StatusTopic, cfg.EventsTopic}}, nil
	case "mqtt":
		return &mqttTransport{cfg: cfg.MQTT}, nil
	case "amqp":
		return &amqpTransport{cfg: cfg.AMQP}, nil
	default:
		return nil, fmt.Errorf("unknown messaging backend: %s", cfg.Backend)
	}
}

func (c *Client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, err := newTransport(c.cfg)
	if err != nil {
		return err
	}
	if err := t.connect(); err != nil {
		return err
	}
	c.conn = t
	return nil
}

// Backend returns the configured backend name.
func (c *Client) Backend() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cfg.Backend == "" {
		return "kafka"
	}
	return c.cfg.Backend
}

func (c *Client) Publish(topic string, payload []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.conn == nil {
		return fmt.Errorf("messaging not connected")
	}
	return c.conn.publish(topic, payload)
}

// PublishEnvelope encodes and publishes a protocol envelope to the given topic.
func (c *Client) PublishEnvelope(topic string, env interface{ Encode() ([]byte, error) }) error {
	data, err := env.Encode()
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	return c.Publish(topic, data)
}

// Subscribe registers handler for topic. The handler is remembered even
// when the client is not connected, so Reconfigure can restore it.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.handlers[topic] = handler
	if c.conn == nil {
		return fmt.Errorf("messaging not connected")
	}
	return c.conn.subscribe(topic, handler)
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.conn != nil && c.conn.connected()
}

// Reconfigure closes the existing connection and reconnects with new config.
// All previously registered subscriptions are automatically restored.
func (c *Client) Reconfigure(cfg *config.MessagingConfig) error {
	c.Close()
	c.mu.Lock()
	c.cfg = cfg
	handlers := make(map[string]MessageHandler, len(c.handlers))
	for k, v := range c.handlers {
		handlers[k] = v
	}
	c.mu.Unlock()

	if err := c.Connect(); err != nil {
		return err
	}

	for topic, handler := range handlers {
		if err := c.Subscribe(topic, handler); err != nil {
			log.Printf("messaging: re-subscribe %s after reconfigure: %v", topic, err)
		}
	}
	return nil
}

func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.close()
		c.conn = nil
	}
}
