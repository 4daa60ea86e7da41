package store

import (
	"time"
)

// OutboxMessage is an envelope waiting to be published on the message bus.
type OutboxMessage struct {
	ID        int64
	Topic     string
	Payload   []byte
	MsgType   string
	StationID string
	Retries   int
	CreatedAt time.Time
	SentAt    *time.Time
}

func (db *DB) EnqueueOutbox(topic string, payload []byte, msgType, stationID string) error {
	_, err := db.Exec(db.Q(`INSERT INTO outbox (topic, payload, msg_type, station_id) VALUES (?, ?, ?, ?)`),
		topic, payload, msgType, stationID)
	return err
}

// ListPendingOutbox returns unsent messages oldest first, skipping those
// that already failed maxRetries times. maxRetries <= 0 means no cap.
func (db *DB) ListPendingOutbox(limit, maxRetries int) ([]*OutboxMessage, error) {
	query := `SELECT id, topic, payload, msg_type, station_id, retries, created_at, sent_at FROM outbox WHERE sent_at IS NULL`
	args := []any{}
	if maxRetries > 0 {
		query += ` AND retries < ?`
		args = append(args, maxRetries)
	}
	query += ` ORDER BY id LIMIT ?`
	args = append(args, limit)
	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var msgs []*OutboxMessage
	for rows.Next() {
		var m OutboxMessage
		var createdAt, sentAt any
		if err := rows.Scan(&m.ID, &m.Topic, &m.Payload, &m.MsgType, &m.StationID, &m.Retries, &createdAt, &sentAt); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		m.SentAt = parseTimePtr(sentAt)
		msgs = append(msgs, &m)
	}
	return msgs, rows.Err()
}

func (db *DB) AckOutbox(id int64) error {
	_, err := db.Exec(db.Q(`UPDATE outbox SET sent_at=datetime('now','localtime') WHERE id=?`), id)
	return err
}

func (db *DB) IncrementOutboxRetries(id int64) error {
	_, err := db.Exec(db.Q(`UPDATE outbox SET retries=retries+1 WHERE id=?`), id)
	return err
}
