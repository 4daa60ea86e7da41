package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Resource is a scheduler row: a trucker, vehicle, trailer or carrier.
type Resource struct {
	ID           int64     `json:"id"`
	UID          string    `json:"uid"`
	Kind         string    `json:"kind"`
	Label        string    `json:"label"`
	LicensePlate string    `json:"license_plate"`
	CreatedAt    time.Time `json:"created_at"`
}

const resourceSelectCols = `id, uid, kind, label, license_plate, created_at`

func scanResource(row interface{ Scan(...any) error }) (*Resource, error) {
	var r Resource
	var createdAt any
	if err := row.Scan(&r.ID, &r.UID, &r.Kind, &r.Label, &r.LicensePlate, &createdAt); err != nil {
		return nil, err
	}
	r.CreatedAt = parseTime(createdAt)
	return &r, nil
}

func scanResources(rows *sql.Rows) ([]*Resource, error) {
	var resources []*Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		resources = append(resources, r)
	}
	return resources, rows.Err()
}

func (db *DB) CreateResource(r *Resource) error {
	if r.UID == "" {
		r.UID = uuid.New().String()
	}
	if r.Kind == "" {
		r.Kind = "trucker"
	}
	id, err := db.insert(db.DB, `INSERT INTO resources (uid, kind, label, license_plate) VALUES (?, ?, ?, ?)`,
		r.UID, r.Kind, r.Label, r.LicensePlate)
	if err != nil {
		return fmt.Errorf("create resource: %w", err)
	}
	r.ID = id
	return nil
}

func (db *DB) GetResourceByUID(uid string) (*Resource, error) {
	row := db.QueryRow(db.Q(fmt.Sprintf(`SELECT %s FROM resources WHERE uid=?`, resourceSelectCols)), uid)
	r, err := scanResource(row)
	if err != nil {
		return nil, fmt.Errorf("get resource %s: %w", uid, err)
	}
	return r, nil
}

func (db *DB) UpdateResource(r *Resource) error {
	_, err := db.Exec(db.Q(`UPDATE resources SET kind=?, label=?, license_plate=? WHERE id=?`),
		r.Kind, r.Label, r.LicensePlate, r.ID)
	if err != nil {
		return fmt.Errorf("update resource %s: %w", r.UID, err)
	}
	return nil
}

// ListResources returns resources of the given kind, or all of them when kind is empty.
func (db *DB) ListResources(kind string) ([]*Resource, error) {
	query := fmt.Sprintf(`SELECT %s FROM resources`, resourceSelectCols)
	var args []any
	if kind != "" {
		query += ` WHERE kind=?`
		args = append(args, kind)
	}
	query += ` ORDER BY label, id`
	rows, err := db.Query(db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanResources(rows)
}
