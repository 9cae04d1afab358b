package model

import "time"

// Category values understood by the navigator. Any other value is allowed
// and renders with the default badge.
const (
	CategoryAll           = "all"
	CategoryAccommodation = "accommodation"
	CategoryFood          = "food"
	CategorySocial        = "social"
)

// FilterCategories returns the category filter options in display order.
func FilterCategories() []string {
	return []string{CategoryAll, CategoryAccommodation, CategoryFood, CategorySocial}
}

// KnownCategories returns the categories a new location can be filed under.
func KnownCategories() []string {
	return []string{CategoryAccommodation, CategoryFood, CategorySocial}
}

// Location represents one point of interest.
type Location struct {
	ID          string
	Name        string
	Category    string
	Description string
	Lat         float64
	Lng         float64
	CreatedAt   time.Time
	// Geohash is the stored cell id, empty when the backend keeps none.
	Geohash string
}

// NewLocation represents data for creating a location.
type NewLocation struct {
	Name        string
	Category    string
	Description string
	Lat         float64
	Lng         float64
}
