package store

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"citynav/internal/model"
)

var (
	// ErrInvalidCoordinate is returned for coordinates that are not finite numbers.
	ErrInvalidCoordinate = errors.New("coordinate must be a finite number")
	// ErrNameRequired is returned for a location without a name.
	ErrNameRequired = errors.New("name is required")
)

// ParseCoordinate parses a coordinate typed by the user. Non-numeric input,
// NaN and infinities are rejected rather than stored.
func ParseCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCoordinate, s)
	}
	return v, nil
}

// ParseNewLocation builds a NewLocation from raw form input.
func ParseNewLocation(name, category, description, lat, lng string) (model.NewLocation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.NewLocation{}, ErrNameRequired
	}
	latV, err := ParseCoordinate(lat)
	if err != nil {
		return model.NewLocation{}, fmt.Errorf("latitude: %w", err)
	}
	if math.Abs(latV) > 90 {
		return model.NewLocation{}, fmt.Errorf("latitude: %w: %v is outside -90..90", ErrInvalidCoordinate, latV)
	}
	lngV, err := ParseCoordinate(lng)
	if err != nil {
		return model.NewLocation{}, fmt.Errorf("longitude: %w", err)
	}
	if math.Abs(lngV) > 180 {
		return model.NewLocation{}, fmt.Errorf("longitude: %w: %v is outside -180..180", ErrInvalidCoordinate, lngV)
	}
	return model.NewLocation{
		Name:        name,
		Category:    strings.TrimSpace(category),
		Description: strings.TrimSpace(description),
		Lat:         latV,
		Lng:         lngV,
	}, nil
}

// Normalize turns a stored document into a Location. Coordinates may be stored
// as numbers or numeric strings; anything else is an error and the document
// should be skipped. So is a document without a name.
func Normalize(id string, fields map[string]interface{}) (model.Location, error) {
	name := strings.TrimSpace(getString(fields, "name"))
	if name == "" {
		return model.Location{}, fmt.Errorf("document %s: %w", id, ErrNameRequired)
	}
	lat, err := getCoordinate(fields, "lat")
	if err != nil {
		return model.Location{}, fmt.Errorf("document %s: lat: %w", id, err)
	}
	lng, err := getCoordinate(fields, "lng")
	if err != nil {
		return model.Location{}, fmt.Errorf("document %s: lng: %w", id, err)
	}

	loc := model.Location{
		ID:          id,
		Name:        name,
		Category:    getString(fields, "category"),
		Description: getString(fields, "description"),
		Lat:         lat,
		Lng:         lng,
	}
	if t, ok := getTime(fields, "createdAt"); ok {
		loc.CreatedAt = t
	} else if t, ok := getTime(fields, "created_at"); ok {
		loc.CreatedAt = t
	}
	return loc, nil
}

// Helper to safely get string from map
func getString(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Helper to safely get time from map (handles time.Time from Firestore)
func getTime(m map[string]interface{}, key string) (time.Time, bool) {
	if v, ok := m[key]; ok {
		if t, ok := v.(time.Time); ok {
			return t, true
		}
	}
	return time.Time{}, false
}

func getCoordinate(m map[string]interface{}, key string) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, fmt.Errorf("%w: missing", ErrInvalidCoordinate)
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int64:
		f = float64(n)
	case int:
		f = float64(n)
	case string:
		return ParseCoordinate(n)
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidCoordinate, v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrInvalidCoordinate
	}
	return f, nil
}
