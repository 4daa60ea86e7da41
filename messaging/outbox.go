package messaging

import (
	"log"
	"time"

	"tmscore/store"
)

// Messages that failed this many times stay in the outbox for inspection
// but are no longer retried.
const maxOutboxRetries = 10

// Publisher is what the drainer needs from the messaging client.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

// OutboxDrainer periodically sends pending outbox messages.
type OutboxDrainer struct {
	db        *store.DB
	publisher Publisher
	interval  time.Duration
	stopChan  chan struct{}
}

func NewOutboxDrainer(db *store.DB, publisher Publisher, interval time.Duration) *OutboxDrainer {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &OutboxDrainer{
		db:        db,
		publisher: publisher,
		interval:  interval,
		stopChan:  make(chan struct{}),
	}
}

func (d *OutboxDrainer) Start() {
	go d.run()
}

func (d *OutboxDrainer) Stop() {
	select {
	case d.stopChan <- struct{}{}:
	default:
	}
}

func (d *OutboxDrainer) run() {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopChan:
			return
		case <-ticker.C:
			d.Drain()
		}
	}
}

// Drain publishes one batch of pending messages and returns how many went out.
func (d *OutboxDrainer) Drain() int {
	msgs, err := d.db.ListPendingOutbox(50, maxOutboxRetries)
	if err != nil {
		log.Printf("outbox: list pending: %v", err)
		return 0
	}
	sent := 0
	for _, msg := range msgs {
		if err := d.publisher.Publish(msg.Topic, msg.Payload); err != nil {
			log.Printf("outbox: publish %s to %s failed: %v", msg.MsgType, msg.Topic, err)
			if err := d.db.IncrementOutboxRetries(msg.ID); err != nil {
				log.Printf("outbox: bump retries %d: %v", msg.ID, err)
			}
			continue
		}
		if err := d.db.AckOutbox(msg.ID); err != nil {
			log.Printf("outbox: ack %d: %v", msg.ID, err)
			continue
		}
		sent++
	}
	return sent
}
