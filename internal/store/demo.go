package store

import "citynav/internal/model"

// DemoNotice is shown above the list whenever the demo dataset is on screen.
const DemoNotice = "Showing demo data (Database empty or inaccessible)"

// DemoLocations returns the built-in dataset used when the store is empty or
// unreachable.
func DemoLocations() []model.Location {
	return []model.Location{
		{
			ID:          "demo1",
			Name:        "Student Hub Central",
			Category:    model.CategorySocial,
			Description: "A popular meeting spot for students with free Wi-Fi and coffee.",
			Lat:         51.505,
			Lng:         -0.09,
		},
		{
			ID:          "demo2",
			Name:        "Budget Bites",
			Category:    model.CategoryFood,
			Description: "Amazing street food at student-friendly prices.",
			Lat:         51.51,
			Lng:         -0.1,
		},
		{
			ID:          "demo3",
			Name:        "Green Park Dorms",
			Category:    model.CategoryAccommodation,
			Description: "Affordable student housing near the university campus.",
			Lat:         51.50,
			Lng:         -0.08,
		},
		{
			ID:          "demo4",
			Name:        "The Old Library",
			Category:    model.CategorySocial,
			Description: "Historic library open 24/7 for study sessions.",
			Lat:         51.515,
			Lng:         -0.095,
		},
		{
			ID:          "demo5",
			Name:        "Noodle Bar",
			Category:    model.CategoryFood,
			Description: "Best ramen in town, 10% discount for students.",
			Lat:         51.508,
			Lng:         -0.11,
		},
	}
}
