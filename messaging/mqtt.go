package messaging

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"tmscore/config"
)

type mqttTransport struct {
	cfg  config.MQTTConfig
	conn mqtt.Client
}

func (m *mqttTransport) connect() error {
	broker := fmt.Sprintf("tcp://%s:%d", m.cfg.Broker, m.cfg.Port)
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(m.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqtt connect: timeout reaching %s", broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	m.conn = client
	return nil
}

func (m *mqttTransport) publish(topic string, payload []byte) error {
	if m.conn == nil || !m.conn.IsConnected() {
		return fmt.Errorf("mqtt not connected")
	}
	token := m.conn.Publish(topic, 1, false, payload)
	token.Wait()
	return token.Error()
}

func (m *mqttTransport) subscribe(topic string, handler MessageHandler) error {
	if m.conn == nil {
		return fmt.Errorf("mqtt not connected")
	}
	token := m.conn.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	token.Wait()
	return token.Error()
}

func (m *mqttTransport) connected() bool {
	return m.conn != nil && m.conn.IsConnected()
}

func (m *mqttTransport) close() {
	if m.conn != nil {
		m.conn.Disconnect(1000)
		m.conn = nil
	}
}
