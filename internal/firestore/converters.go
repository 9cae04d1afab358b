package firestore

import (
	"cloud.google.com/go/firestore"

	"citynav/internal/model"
	"citynav/internal/store"
)

// LocationsCollection is the collection holding every location document.
const LocationsCollection = "locations"

// LocationToFirestore maps a new location to its document fields. The
// creation time is assigned by the server.
func LocationToFirestore(l model.NewLocation) map[string]interface{} {
	return map[string]interface{}{
		"name":        l.Name,
		"category":    l.Category,
		"description": l.Description,
		"lat":         l.Lat,
		"lng":         l.Lng,
		"createdAt":   firestore.ServerTimestamp,
	}
}

// FirestoreToLocation maps document fields back to a Location.
func FirestoreToLocation(id string, m map[string]interface{}) (model.Location, error) {
	return store.Normalize(id, m)
}
