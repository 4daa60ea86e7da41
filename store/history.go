package store

import (
	"fmt"
	"time"

	"tmscore/scheduler"
)

type MoveRecord struct {
	ID         int64                 `json:"id"`
	EntityType string                `json:"entity_type"`
	EntityID   int64                 `json:"entity_id"`
	From       scheduler.CellPayload `json:"from"`
	To         scheduler.CellPayload `json:"to"`
	Actor      string                `json:"actor"`
	CreatedAt  time.Time             `json:"created_at"`
}

type placementTable struct {
	table  string
	entity string
}

var (
	tripPlacement    = placementTable{table: "trips", entity: "trip"}
	segmentPlacement = placementTable{table: "chartering_segments", entity: "segment"}
)

// movePlacement moves one row of p.table to target inside a transaction.
// Rows behind the old slot close the gap, rows at or after the new slot
// shift down. The target index is clamped to the size of the target cell.
func (db *DB) movePlacement(p placementTable, id int64, target scheduler.CellPayload, actor string) (scheduler.CellPayload, error) {
	var from scheduler.CellPayload

	tx, err := db.Begin()
	if err != nil {
		return from, err
	}
	defer tx.Rollback()

	err = tx.QueryRow(db.Q(fmt.Sprintf(`SELECT resource_uid, day, position FROM %s WHERE id=?`, p.table)), id).
		Scan(&from.ResourceUID, &from.Day, &from.Index)
	if err != nil {
		return from, err
	}

	if target.ResourceUID == "" {
		target.ResourceUID = scheduler.UnplannedResourceUID
	}
	if target.IsUnplanned() {
		target.Day = ""
	}

	var count int
	err = tx.QueryRow(db.Q(fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE resource_uid=? AND day=? AND id<>?`, p.table)),
		target.ResourceUID, target.Day, id).Scan(&count)
	if err != nil {
		return from, err
	}
	if target.Index < 0 {
		target.Index = 0
	}
	if target.Index > count {
		target.Index = count
	}

	shift := func(query string, args ...any) error {
		_, err := tx.Exec(db.Q(fmt.Sprintf(query, p.table)), args...)
		return err
	}
	if from.SameCell(target) {
		switch {
		case target.Index > from.Index:
			err = shift(`UPDATE %s SET position=position-1 WHERE resource_uid=? AND day=? AND position>? AND position<=? AND id<>?`,
				from.ResourceUID, from.Day, from.Index, target.Index, id)
		case target.Index < from.Index:
			err = shift(`UPDATE %s SET position=position+1 WHERE resource_uid=? AND day=? AND position>=? AND position<? AND id<>?`,
				from.ResourceUID, from.Day, target.Index, from.Index, id)
		}
	} else {
		err = shift(`UPDATE %s SET position=position-1 WHERE resource_uid=? AND day=? AND position>? AND id<>?`,
			from.ResourceUID, from.Day, from.Index, id)
		if err == nil {
			err = shift(`UPDATE %s SET position=position+1 WHERE resource_uid=? AND day=? AND position>=? AND id<>?`,
				target.ResourceUID, target.Day, target.Index, id)
		}
	}
	if err != nil {
		return from, err
	}

	err = shift(`UPDATE %s SET resource_uid=?, day=?, position=?, updated_at=datetime('now','localtime') WHERE id=?`,
		target.ResourceUID, target.Day, target.Index, id)
	if err != nil {
		return from, err
	}

	if actor == "" {
		actor = "system"
	}
	_, err = db.insert(tx, `INSERT INTO move_history (entity_type, entity_id, from_resource, from_day, from_index, to_resource, to_day, to_index, actor) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.entity, id, from.ResourceUID, from.Day, from.Index, target.ResourceUID, target.Day, target.Index, actor)
	if err != nil {
		return from, err
	}
	return from, tx.Commit()
}

// ListMoveHistory returns the most recent moves of one trip or segment, newest first.
func (db *DB) ListMoveHistory(entityType string, entityID int64, limit int) ([]*MoveRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.Query(db.Q(`SELECT id, entity_type, entity_id, from_resource, from_day, from_index, to_resource, to_day, to_index, actor, created_at FROM move_history WHERE entity_type=? AND entity_id=? ORDER BY id DESC LIMIT ?`),
		entityType, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var records []*MoveRecord
	for rows.Next() {
		var m MoveRecord
		var createdAt any
		if err := rows.Scan(&m.ID, &m.EntityType, &m.EntityID,
			&m.From.ResourceUID, &m.From.Day, &m.From.Index,
			&m.To.ResourceUID, &m.To.Day, &m.To.Index,
			&m.Actor, &createdAt); err != nil {
			return nil, err
		}
		m.CreatedAt = parseTime(createdAt)
		records = append(records, &m)
	}
	return records, rows.Err()
}
