// Package state holds the navigator's record set, the active filter and the
// search term, and redraws both presenters whenever any of them change.
package state

import (
	"strings"

	"citynav/internal/model"
)

// MapPresenter draws the visible records on the map.
type MapPresenter interface {
	ClearMarkers()
	DrawMarkers(records []model.Location)
	FitToMarkers()
	MarkerCount() int
}

// ListPresenter draws the visible records in the sidebar.
type ListPresenter interface {
	Clear()
	Render(records []model.Location)
}

// State is the single owner of the record set, category filter and search term.
// It is not safe for concurrent use; callers drive it from one event loop.
type State struct {
	all        []model.Location
	category   string
	searchTerm string

	mapView  MapPresenter
	listView ListPresenter
}

// New creates a state with no records, the "all" filter and an empty search.
func New(mapView MapPresenter, listView ListPresenter) *State {
	return &State{
		category: model.CategoryAll,
		mapView:  mapView,
		listView: listView,
	}
}

// SetCategory changes the category filter. Unknown categories are accepted.
func (s *State) SetCategory(category string) {
	s.category = category
	s.redraw()
}

// SetSearchTerm changes the search term.
func (s *State) SetSearchTerm(term string) {
	s.searchTerm = term
	s.redraw()
}

// ReplaceRecords swaps the full record set for records.
func (s *State) ReplaceRecords(records []model.Location) {
	s.all = dedupe(records)
	s.redraw()
}

// Category returns the active category filter.
func (s *State) Category() string { return s.category }

// SearchTerm returns the search term as typed.
func (s *State) SearchTerm() string { return s.searchTerm }

// Len returns the number of records held, filtered or not.
func (s *State) Len() int { return len(s.all) }

// Visible returns the records matching the active filter and search term.
func (s *State) Visible() []model.Location {
	return ComputeVisible(s.all, s.category, s.searchTerm)
}

func (s *State) redraw() {
	visible := s.Visible()

	if s.mapView != nil {
		s.mapView.ClearMarkers()
	}
	if s.listView != nil {
		s.listView.Clear()
	}
	if s.mapView != nil {
		s.mapView.DrawMarkers(visible)
	}
	if s.listView != nil {
		s.listView.Render(visible)
	}
	if s.mapView != nil && s.mapView.MarkerCount() > 0 {
		s.mapView.FitToMarkers()
	}
}

// ComputeVisible returns the records whose category matches category (or
// category is "all") and whose name or description contains term, ignoring
// case. Input order is preserved.
func ComputeVisible(records []model.Location, category, term string) []model.Location {
	needle := strings.ToLower(term)
	visible := make([]model.Location, 0, len(records))
	for _, r := range records {
		if category != model.CategoryAll && r.Category != category {
			continue
		}
		if !matchesTerm(r, needle) {
			continue
		}
		visible = append(visible, r)
	}
	return visible
}

func matchesTerm(r model.Location, needle string) bool {
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Name), needle) ||
		strings.Contains(strings.ToLower(r.Description), needle)
}

// dedupe keeps one record per id: the last value wins, at the position of the
// first occurrence.
func dedupe(records []model.Location) []model.Location {
	out := make([]model.Location, 0, len(records))
	index := make(map[string]int, len(records))
	for _, r := range records {
		if i, ok := index[r.ID]; ok {
			out[i] = r
			continue
		}
		index[r.ID] = len(out)
		out = append(out, r)
	}
	return out
}
