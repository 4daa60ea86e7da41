package store

import (
	"fmt"
	"time"

	"tmscore/scheduler"

	"github.com/google/uuid"
)

type Transport struct {
	ID              int64     `json:"id"`
	UID             string    `json:"uid"`
	Reference       string    `json:"reference"`
	InvoicingStatus string    `json:"invoicing_status"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (t *Transport) Ref() scheduler.TransportRef {
	return scheduler.TransportRef{UID: t.UID, InvoicingStatus: scheduler.InvoicingStatus(t.InvoicingStatus)}
}

// Activity is a stop of a trip. Single activities hold one transport,
// grouped ones hold every transport of a similar-activities group.
type Activity struct {
	ID         int64        `json:"id"`
	TripID     int64        `json:"trip_id"`
	Kind       string       `json:"kind"`
	Position   int          `json:"position"`
	Label      string       `json:"label"`
	Transports []*Transport `json:"transports"`
}

// Scheduler converts the row into the resolver's tagged union.
func (a *Activity) Scheduler() scheduler.Activity {
	refs := make([]scheduler.TransportRef, 0, len(a.Transports))
	for _, t := range a.Transports {
		refs = append(refs, t.Ref())
	}
	if scheduler.ActivityKind(a.Kind) == scheduler.ActivityGrouped {
		return scheduler.GroupedActivity(refs...)
	}
	if len(refs) == 0 {
		return scheduler.Activity{Kind: scheduler.ActivitySingle}
	}
	return scheduler.SingleActivity(refs[0])
}

const transportSelectCols = `id, uid, reference, invoicing_status, created_at, updated_at`

func scanTransport(row interface{ Scan(...any) error }) (*Transport, error) {
	var t Transport
	var createdAt, updatedAt any
	if err := row.Scan(&t.ID, &t.UID, &t.Reference, &t.InvoicingStatus, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

func (db *DB) CreateTransport(t *Transport) error {
	if t.UID == "" {
		t.UID = uuid.New().String()
	}
	id, err := db.insert(db.DB, `INSERT INTO transports (uid, reference, invoicing_status) VALUES (?, ?, ?)`,
		t.UID, t.Reference, t.InvoicingStatus)
	if err != nil {
		return fmt.Errorf("create transport: %w", err)
	}
	t.ID = id
	return nil
}

func (db *DB) GetTransportByUID(uid string) (*Transport, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM transports WHERE uid=?`, transportSelectCols)), uid)
	t, err := scanTransport(row)
	if err != nil {
		return nil, fmt.Errorf("get transport %s: %w", uid, err)
	}
	return t, nil
}

func (db *DB) UpdateTransportInvoicing(id int64, status string) error {
	_, err := db.Exec(db.Q(`UPDATE transports SET invoicing_status=?, updated_at=datetime('now','localtime') WHERE id=?`), status, id)
	if err != nil {
		return fmt.Errorf("update transport invoicing: %w", err)
	}
	return nil
}

// AddActivity appends an activity to the trip and links the given transports.
// A single activity takes exactly one transport.
func (db *DB) AddActivity(tripID int64, kind scheduler.ActivityKind, label string, transportIDs ...int64) (*Activity, error) {
	switch kind {
	case scheduler.ActivitySingle:
		if len(transportIDs) != 1 {
			return nil, fmt.Errorf("single activity needs one transport, got %d", len(transportIDs))
		}
	case scheduler.ActivityGrouped:
	default:
		return nil, fmt.Errorf("unknown activity kind %q", kind)
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var position int
	if err := tx.QueryRow(db.Q(`SELECT COUNT(*) FROM activities WHERE trip_id=?`), tripID).Scan(&position); err != nil {
		return nil, fmt.Errorf("count activities: %w", err)
	}
	id, err := db.insert(tx, `INSERT INTO activities (trip_id, kind, position, label) VALUES (?, ?, ?, ?)`,
		tripID, string(kind), position, label)
	if err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	for _, tid := range transportIDs {
		if _, err := tx.Exec(db.Q(`INSERT INTO activity_transports (activity_id, transport_id) VALUES (?, ?)`), id, tid); err != nil {
			return nil, fmt.Errorf("link transport %d: %w", tid, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &Activity{ID: id, TripID: tripID, Kind: string(kind), Position: position, Label: label}, nil
}

// ClearTripActivities drops every activity of the trip. Transports stay.
func (db *DB) ClearTripActivities(tripID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.Exec(db.Q(`DELETE FROM activity_transports WHERE activity_id IN (SELECT id FROM activities WHERE trip_id=?)`), tripID); err != nil {
		return fmt.Errorf("unlink activities of trip %d: %w", tripID, err)
	}
	if _, err := tx.Exec(db.Q(`DELETE FROM activities WHERE trip_id=?`), tripID); err != nil {
		return fmt.Errorf("clear activities of trip %d: %w", tripID, err)
	}
	return tx.Commit()
}

// ListTripActivities loads the trip's activities in order with their transports.
func (db *DB) ListTripActivities(tripID int64) ([]*Activity, error) {
	rows, err := db.Query(db.Q(`SELECT id, trip_id, kind, position, label FROM activities WHERE trip_id=? ORDER BY position, id`), tripID)
	if err != nil {
		return nil, err
	}
	var activities []*Activity
	byID := map[int64]*Activity{}
	for rows.Next() {
		var a Activity
		if err := rows.Scan(&a.ID, &a.TripID, &a.Kind, &a.Position, &a.Label); err != nil {
			rows.Close()
			return nil, err
		}
		activities = append(activities, &a)
		byID[a.ID] = &a
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(activities) == 0 {
		return activities, nil
	}

	trows, err := db.Query(db.Q(`SELECT lnk.activity_id, t.id, t.uid, t.reference, t.invoicing_status, t.created_at, t.updated_at
		FROM activity_transports lnk JOIN transports t ON t.id = lnk.transport_id
		JOIN activities a ON a.id = lnk.activity_id
		WHERE a.trip_id=? ORDER BY t.id`), tripID)
	if err != nil {
		return nil, err
	}
	defer trows.Close()
	for trows.Next() {
		var activityID int64
		var t Transport
		var createdAt, updatedAt any
		if err := trows.Scan(&activityID, &t.ID, &t.UID, &t.Reference, &t.InvoicingStatus, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		t.CreatedAt = parseTime(createdAt)
		t.UpdatedAt = parseTime(updatedAt)
		if a := byID[activityID]; a != nil {
			a.Transports = append(a.Transports, &t)
		}
	}
	return activities, trows.Err()
}

// TripActivities is ListTripActivities converted for the resolver.
func (db *DB) TripActivities(tripID int64) ([]scheduler.Activity, error) {
	rows, err := db.ListTripActivities(tripID)
	if err != nil {
		return nil, err
	}
	out := make([]scheduler.Activity, 0, len(rows))
	for _, a := range rows {
		out = append(out, a.Scheduler())
	}
	return out, nil
}

// TripState loads the trip's activities and builds its resolver input.
func (db *DB) TripState(t *Trip) (scheduler.TripState, error) {
	acts, err := db.TripActivities(t.ID)
	if err != nil {
		return scheduler.TripState{}, fmt.Errorf("trip %d activities: %w", t.ID, err)
	}
	return t.State(acts), nil
}

// ListTripIDsByTransport returns the trips with an activity referencing the transport.
func (db *DB) ListTripIDsByTransport(transportID int64) ([]int64, error) {
	rows, err := db.Query(db.Q(`SELECT DISTINCT a.trip_id FROM activities a
		JOIN activity_transports lnk ON lnk.activity_id = a.id
		WHERE lnk.transport_id=? ORDER BY a.trip_id`), transportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
