package messaging

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"tmscore/config"
)

// amqpChannel is the part of *amqp.Channel the transport uses.
type amqpChannel interface {
	IsClosed() bool
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// amqpTransport maps topics to routing keys on one topic exchange. All
// subscriptions share a single durable queue; deliveries are routed back to
// their handler by routing key.
type amqpTransport struct {
	cfg     config.AMQPConfig
	conn    *amqp.Connection
	channel amqpChannel

	mu        sync.RWMutex
	handlers  map[string]MessageHandler
	consuming bool
}

func (a *amqpTransport) connect() error {
	conn, err := amqp.Dial(a.cfg.URL)
	if err != nil {
		return fmt.Errorf("amqp connect: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(a.cfg.Exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("amqp declare exchange %s: %w", a.cfg.Exchange, err)
	}
	a.conn = conn
	a.channel = ch
	a.handlers = make(map[string]MessageHandler)
	log.Printf("messaging: amqp connected, exchange %s", a.cfg.Exchange)
	return nil
}

func (a *amqpTransport) publish(topic string, payload []byte) error {
	if a.channel == nil || a.channel.IsClosed() {
		return fmt.Errorf("amqp not connected")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.channel.PublishWithContext(ctx,
		a.cfg.Exchange,
		topic,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("amqp publish %s: %w", topic, err)
	}
	return nil
}

func (a *amqpTransport) subscribe(topic string, handler MessageHandler) error {
	if a.channel == nil {
		return fmt.Errorf("amqp not connected")
	}
	q, err := a.channel.QueueDeclare(a.cfg.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("amqp declare queue %s: %w", a.cfg.Queue, err)
	}
	if err := a.channel.QueueBind(q.Name, topic, a.cfg.Exchange, false, nil); err != nil {
		return fmt.Errorf("amqp bind %s: %w", topic, err)
	}

	a.mu.Lock()
	a.handlers[topic] = handler
	start := !a.consuming
	a.consuming = true
	a.mu.Unlock()
	if !start {
		return nil
	}

	msgs, err := a.channel.Consume(q.Name, "", true, false, false, false, nil)
	if err != nil {
		// The handler stays registered; the next subscribe retries the consumer.
		a.mu.Lock()
		a.consuming = false
		a.mu.Unlock()
		return fmt.Errorf("amqp consume %s: %w", q.Name, err)
	}
	go func() {
		for msg := range msgs {
			a.mu.RLock()
			h := a.handlers[msg.RoutingKey]
			a.mu.RUnlock()
			if h == nil {
				log.Printf("messaging: amqp delivery with no handler (routing key %s)", msg.RoutingKey)
				continue
			}
			h(msg.RoutingKey, msg.Body)
		}
	}()
	return nil
}

func (a *amqpTransport) connected() bool {
	return a.conn != nil && !a.conn.IsClosed()
}

func (a *amqpTransport) close() {
	if a.channel != nil {
		a.channel.Close()
		a.channel = nil
	}
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
}
