package messaging

import (
	"context"
	"fmt"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"tmscore/config"
)

type kafkaTransport struct {
	cfg     config.KafkaConfig
	topics  []string
	readers map[string]*kafka.Reader
	writer  *kafka.Writer
}

func (k *kafkaTransport) connect() error {
	if len(k.cfg.Brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}

	// Verify at least one broker is reachable
	var conn *kafka.Conn
	var connErr error
	for _, broker := range k.cfg.Brokers {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		conn, connErr = kafka.DialContext(ctx, "tcp", broker)
		cancel()
		if connErr == nil {
			log.Printf("messaging: kafka connected to %s", broker)
			break
		}
	}
	if connErr != nil {
		return fmt.Errorf("kafka connect: %w", connErr)
	}

	k.ensureTopics(conn, k.topics...)
	conn.Close()

	k.readers = make(map[string]*kafka.Reader)
	k.writer = &kafka.Writer{
		Addr:         kafka.TCP(k.cfg.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
	}
	return nil
}

func (k *kafkaTransport) publish(topic string, payload []byte) error {
	if k.writer == nil {
		return fmt.Errorf("kafka writer not initialized")
	}
	return k.writer.WriteMessages(context.Background(), kafka.Message{
		Topic: topic,
		Value: payload,
	})
}

// ensureTopics creates topics the broker does not have yet. Failures are
// logged only; the broker may auto-create them.
func (k *kafkaTransport) ensureTopics(conn *kafka.Conn, topics ...string) {
	var configs []kafka.TopicConfig
	for _, t := range topics {
		if t == "" {
			continue
		}
		configs = append(configs, kafka.TopicConfig{Topic: t, NumPartitions: 1, ReplicationFactor: 1})
	}
	if len(configs) == 0 {
		return
	}

	controller, err := conn.Controller()
	if err != nil {
		log.Printf("messaging: cannot find controller for topic creation: %v", err)
		return
	}
	controllerConn, err := kafka.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		log.Printf("messaging: cannot connect to controller: %v", err)
		return
	}
	defer controllerConn.Close()

	if err := controllerConn.CreateTopics(configs...); err != nil {
		log.Printf("messaging: topic auto-create: %v", err)
	}
}

func (k *kafkaTransport) subscribe(topic string, handler MessageHandler) error {
	if old, ok := k.readers[topic]; ok {
		old.Close()
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: k.cfg.Brokers,
		Topic:   topic,
		GroupID: k.cfg.GroupID,
	})
	k.readers[topic] = reader
	go func() {
		for {
			msg, err := reader.ReadMessage(context.Background())
			if err != nil {
				return
			}
			handler(msg.Topic, msg.Value)
		}
	}()
	return nil
}

func (k *kafkaTransport) connected() bool {
	return k.writer != nil
}

func (k *kafkaTransport) close() {
	for _, r := range k.readers {
		r.Close()
	}
	if k.writer != nil {
		k.writer.Close()
		k.writer = nil
	}
}
