package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tmscore/scheduler"

	"github.com/google/uuid"
)

type Trip struct {
	ID            int64     `json:"id"`
	UID           string    `json:"uid"`
	Name          string    `json:"name"`
	Status        string    `json:"status"`
	TruckerStatus string    `json:"trucker_status"`
	ResourceUID   string    `json:"resource_uid"`
	Day           string    `json:"day"`
	Position      int       `json:"position"`
	VehiclePlate  string    `json:"vehicle_plate"`
	TrailerPlate  string    `json:"trailer_plate"`
	TruckerName   string    `json:"trucker_name"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Payload is the scheduler cell the trip currently sits in.
func (t *Trip) Payload() scheduler.CellPayload {
	return scheduler.CellPayload{ResourceUID: t.ResourceUID, Day: t.Day, Index: t.Position}
}

// State builds the resolver input for the trip. The vehicle plate is the
// licence plate the vehicle view inspects.
func (t *Trip) State(activities []scheduler.Activity) scheduler.TripState {
	return scheduler.NewTripState(t.Status, t.TruckerStatus, t.VehiclePlate, activities)
}

// TripFilter narrows ListTrips. Zero fields match everything; From/To bound
// the day inclusively and never match the unplanned pool's empty day.
type TripFilter struct {
	ResourceUID string
	Status      string
	From        string
	To          string
	Limit       int
}

const tripSelectCols = `id, uid, name, status, trucker_status, resource_uid, day, position, vehicle_plate, trailer_plate, trucker_name, created_at, updated_at`

func scanTrip(row interface{ Scan(...any) error }) (*Trip, error) {
	var t Trip
	var createdAt, updatedAt any
	err := row.Scan(&t.ID, &t.UID, &t.Name, &t.Status, &t.TruckerStatus, &t.ResourceUID, &t.Day, &t.Position,
		&t.VehiclePlate, &t.TrailerPlate, &t.TruckerName, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	t.CreatedAt = parseTime(createdAt)
	t.UpdatedAt = parseTime(updatedAt)
	return &t, nil
}

func scanTrips(rows *sql.Rows) ([]*Trip, error) {
	var trips []*Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	return trips, rows.Err()
}

func (db *DB) CreateTrip(t *Trip) error {
	if t.UID == "" {
		t.UID = uuid.New().String()
	}
	status, _ := scheduler.ParseTripStatus(t.Status)
	trucker, _ := scheduler.ParseTruckerStatus(t.TruckerStatus)
	t.Status, t.TruckerStatus = string(status), string(trucker)
	if t.ResourceUID == "" {
		t.ResourceUID = scheduler.UnplannedResourceUID
	}
	id, err := db.insert(db.DB, `INSERT INTO trips (uid, name, status, trucker_status, resource_uid, day, position, vehicle_plate, trailer_plate, trucker_name) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.UID, t.Name, t.Status, t.TruckerStatus, t.ResourceUID, t.Day, t.Position, t.VehiclePlate, t.TrailerPlate, t.TruckerName)
	if err != nil {
		return fmt.Errorf("create trip: %w", err)
	}
	t.ID = id
	return nil
}

func (db *DB) GetTrip(id int64) (*Trip, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM trips WHERE id=?`, tripSelectCols)), id)
	t, err := scanTrip(row)
	if err != nil {
		return nil, fmt.Errorf("get trip %d: %w", id, err)
	}
	return t, nil
}

func (db *DB) GetTripByUID(uid string) (*Trip, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM trips WHERE uid=?`, tripSelectCols)), uid)
	t, err := scanTrip(row)
	if err != nil {
		return nil, fmt.Errorf("get trip %s: %w", uid, err)
	}
	return t, nil
}

func (db *DB) ListTrips(f TripFilter) ([]*Trip, error) {
	var where []string
	var args []any
	if f.ResourceUID != "" {
		where = append(where, "resource_uid=?")
		args = append(args, f.ResourceUID)
	}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, f.Status)
	}
	if f.From != "" {
		where = append(where, "day>=?")
		args = append(args, f.From)
	}
	if f.To != "" {
		where = append(where, "day<=? AND day<>''")
		args = append(args, f.To)
	}
	query := fmt.Sprintf(`SELECT %s FROM trips`, tripSelectCols)
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY resource_uid, day, position, id"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrips(rows)
}

func (db *DB) ListTripsInCell(resourceUID, day string) ([]*Trip, error) {
	rows, err := db.Query(db.Q(fmt.Sprintf(`SELECT %s FROM trips WHERE resource_uid=? AND day=? ORDER BY position, id`, tripSelectCols)), resourceUID, day)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrips(rows)
}

// MoveTrip places the trip at target, shifting its neighbours in both cells,
// and records the move. It returns the placement the trip had before.
func (db *DB) MoveTrip(id int64, target scheduler.CellPayload, actor string) (scheduler.CellPayload, error) {
	from, err := db.movePlacement(tripPlacement, id, target, actor)
	if err != nil {
		return from, fmt.Errorf("move trip %d: %w", id, err)
	}
	return from, nil
}

func (db *DB) UpdateTripStatus(id int64, status, truckerStatus string) error {
	_, err := db.Exec(db.Q(`UPDATE trips SET status=?, trucker_status=?, updated_at=datetime('now','localtime') WHERE id=?`),
		status, truckerStatus, id)
	if err != nil {
		return fmt.Errorf("update trip status: %w", err)
	}
	return nil
}

// UpdateTrip rewrites the descriptive fields of a trip. Placement is only
// changed through MoveTrip so neighbours and history stay consistent.
func (db *DB) UpdateTrip(t *Trip) error {
	status, _ := scheduler.ParseTripStatus(t.Status)
	trucker, _ := scheduler.ParseTruckerStatus(t.TruckerStatus)
	t.Status, t.TruckerStatus = string(status), string(trucker)
	_, err := db.Exec(db.Q(`UPDATE trips SET name=?, status=?, trucker_status=?, vehicle_plate=?, trailer_plate=?, trucker_name=?, updated_at=datetime('now','localtime') WHERE id=?`),
		t.Name, t.Status, t.TruckerStatus, strings.TrimSpace(t.VehiclePlate), strings.TrimSpace(t.TrailerPlate), t.TruckerName, t.ID)
	if err != nil {
		return fmt.Errorf("update trip %d: %w", t.ID, err)
	}
	return nil
}

func (db *DB) UpdateTripVehicle(id int64, vehiclePlate, trailerPlate, truckerName string) error {
	_, err := db.Exec(db.Q(`UPDATE trips SET vehicle_plate=?, trailer_plate=?, trucker_name=?, updated_at=datetime('now','localtime') WHERE id=?`),
		strings.TrimSpace(vehiclePlate), strings.TrimSpace(trailerPlate), truckerName, id)
	if err != nil {
		return fmt.Errorf("update trip vehicle: %w", err)
	}
	return nil
}

func (db *DB) DeleteTrip(id int64) error {
	_, err := db.Exec(db.Q(`DELETE FROM trips WHERE id=?`), id)
	return err
}
