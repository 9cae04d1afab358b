package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"citynav/internal/model"

	"github.com/google/uuid"
	"github.com/mmcloughlin/geohash"
)

// GeohashPrecision is the number of geohash characters stored per location.
const GeohashPrecision = 9

func encodeGeohash(lat, lng float64) string {
	return geohash.EncodeWithPrecision(lat, lng, GeohashPrecision)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

// ListLocations retrieves every location in insertion order.
func ListLocations(ctx context.Context, db *sql.DB) ([]model.Location, error) {
	return listLocations(ctx, db)
}

func listLocations(ctx context.Context, q queryer) ([]model.Location, error) {
	query := `
		SELECT id, name, category, description, lat, lng, geohash, created_at
		FROM locations
		ORDER BY rowid
	`

	rows, err := q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	results := []model.Location{}
	for rows.Next() {
		var l model.Location
		var description, hash sql.NullString
		var createdAt string

		if err := rows.Scan(&l.ID, &l.Name, &l.Category, &description, &l.Lat, &l.Lng, &hash, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}

		l.Description = description.String
		l.Geohash = hash.String
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			l.CreatedAt = t
		}

		results = append(results, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating location rows: %w", err)
	}

	return results, nil
}

// InsertLocation creates a new location and returns its id. The creation
// timestamp is assigned by the database.
func InsertLocation(ctx context.Context, db *sql.DB, l model.NewLocation) (string, error) {
	query := `
		INSERT INTO locations (id, name, category, description, lat, lng, geohash)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	var description interface{}
	if l.Description != "" {
		description = l.Description
	}

	id := uuid.NewString()
	hash := encodeGeohash(l.Lat, l.Lng)

	if _, err := db.ExecContext(ctx, query, id, l.Name, l.Category, description, l.Lat, l.Lng, hash); err != nil {
		return "", fmt.Errorf("failed to insert location: %w", err)
	}

	return id, nil
}

// insertLocationWithID writes a location under a caller-chosen id, keeping
// its creation time when set. It reports false when the id already exists.
func insertLocationWithID(ctx context.Context, tx *sql.Tx, l model.Location) (bool, error) {
	query := `
		INSERT OR IGNORE INTO locations (id, name, category, description, lat, lng, geohash, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	var description interface{}
	if l.Description != "" {
		description = l.Description
	}
	createdAt := time.Now().UTC().Format(time.RFC3339)
	if !l.CreatedAt.IsZero() {
		createdAt = l.CreatedAt.UTC().Format(time.RFC3339)
	}
	hash := encodeGeohash(l.Lat, l.Lng)

	res, err := tx.ExecContext(ctx, query, l.ID, l.Name, l.Category, description, l.Lat, l.Lng, hash, createdAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert location %s: %w", l.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to insert location %s: %w", l.ID, err)
	}
	return affected > 0, nil
}
