package store

import (
	"database/sql"
	"fmt"
	"time"

	"tmscore/scheduler"

	"github.com/google/uuid"
)

// Segment is a chartering segment: subcontracted work planned on a carrier row.
type Segment struct {
	ID            int64     `json:"id"`
	UID           string    `json:"uid"`
	TripID        int64     `json:"trip_id,omitempty"`
	CarrierName   string    `json:"carrier_name"`
	Status        string    `json:"status"`
	TruckerStatus string    `json:"trucker_status"`
	ResourceUID   string    `json:"resource_uid"`
	Day           string    `json:"day"`
	Position      int       `json:"position"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s *Segment) Payload() scheduler.CellPayload {
	return scheduler.CellPayload{ResourceUID: s.ResourceUID, Day: s.Day, Index: s.Position}
}

// State builds the resolver input. Segments carry no activities and no plate.
func (s *Segment) State() scheduler.TripState {
	return scheduler.NewTripState(s.Status, s.TruckerStatus, "", nil)
}

const segmentSelectCols = `id, uid, trip_id, carrier_name, status, trucker_status, resource_uid, day, position, created_at, updated_at`

func scanSegment(row interface{ Scan(...any) error }) (*Segment, error) {
	var s Segment
	var tripID sql.NullInt64
	var createdAt, updatedAt any
	err := row.Scan(&s.ID, &s.UID, &tripID, &s.CarrierName, &s.Status, &s.TruckerStatus, &s.ResourceUID, &s.Day, &s.Position, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	if tripID.Valid {
		s.TripID = tripID.Int64
	}
	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return &s, nil
}

func scanSegments(rows *sql.Rows) ([]*Segment, error) {
	var segments []*Segment
	for rows.Next() {
		s, err := scanSegment(rows)
		if err != nil {
			return nil, err
		}
		segments = append(segments, s)
	}
	return segments, rows.Err()
}

func (db *DB) CreateSegment(s *Segment) error {
	if s.UID == "" {
		s.UID = uuid.New().String()
	}
	status, _ := scheduler.ParseTripStatus(s.Status)
	trucker, _ := scheduler.ParseTruckerStatus(s.TruckerStatus)
	s.Status, s.TruckerStatus = string(status), string(trucker)
	if s.ResourceUID == "" {
		s.ResourceUID = scheduler.UnplannedResourceUID
	}
	var tripID any
	if s.TripID != 0 {
		tripID = s.TripID
	}
	id, err := db.insert(db.DB, `INSERT INTO chartering_segments (uid, trip_id, carrier_name, status, trucker_status, resource_uid, day, position) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.UID, tripID, s.CarrierName, s.Status, s.TruckerStatus, s.ResourceUID, s.Day, s.Position)
	if err != nil {
		return fmt.Errorf("create segment: %w", err)
	}
	s.ID = id
	return nil
}

func (db *DB) GetSegment(id int64) (*Segment, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM chartering_segments WHERE id=?`, segmentSelectCols)), id)
	s, err := scanSegment(row)
	if err != nil {
		return nil, fmt.Errorf("get segment %d: %w", id, err)
	}
	return s, nil
}

func (db *DB) GetSegmentByUID(uid string) (*Segment, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM chartering_segments WHERE uid=?`, segmentSelectCols)), uid)
	s, err := scanSegment(row)
	if err != nil {
		return nil, fmt.Errorf("get segment %s: %w", uid, err)
	}
	return s, nil
}

// ListSegments returns the segments planned on resourceUID, or all of them.
func (db *DB) ListSegments(resourceUID string) ([]*Segment, error) {
	query := fmt.Sprintf(`SELECT %s FROM chartering_segments`, segmentSelectCols)
	var args []any
	if resourceUID != "" {
		query += ` WHERE resource_uid=?`
		args = append(args, resourceUID)
	}
	query += ` ORDER BY resource_uid, day, position, id`
	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSegments(rows)
}

func (db *DB) MoveSegment(id int64, target scheduler.CellPayload, actor string) (scheduler.CellPayload, error) {
	from, err := db.movePlacement(segmentPlacement, id, target, actor)
	if err != nil {
		return from, fmt.Errorf("move segment %d: %w", id, err)
	}
	return from, nil
}

func (db *DB) UpdateSegmentStatus(id int64, status, truckerStatus string) error {
	_, err := db.Exec(db.Q(`UPDATE chartering_segments SET status=?, trucker_status=?, updated_at=datetime('now','localtime') WHERE id=?`),
		status, truckerStatus, id)
	if err != nil {
		return fmt.Errorf("update segment status: %w", err)
	}
	return nil
}

// UpdateSegment rewrites carrier, trip link and statuses. Placement is only
// changed through MoveSegment.
func (db *DB) UpdateSegment(s *Segment) error {
	status, _ := scheduler.ParseTripStatus(s.Status)
	trucker, _ := scheduler.ParseTruckerStatus(s.TruckerStatus)
	s.Status, s.TruckerStatus = string(status), string(trucker)
	var tripID any
	if s.TripID != 0 {
		tripID = s.TripID
	}
	_, err := db.Exec(db.Q(`UPDATE chartering_segments SET trip_id=?, carrier_name=?, status=?, trucker_status=?, updated_at=datetime('now','localtime') WHERE id=?`),
		tripID, s.CarrierName, s.Status, s.TruckerStatus, s.ID)
	if err != nil {
		return fmt.Errorf("update segment %d: %w", s.ID, err)
	}
	return nil
}
