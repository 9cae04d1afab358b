package state

import (
	"testing"

	"citynav/internal/model"
	"citynav/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeMap struct {
	calls   []string
	markers []model.Location
	fits    int
}

func (f *fakeMap) ClearMarkers() {
	f.calls = append(f.calls, "clear-markers")
	f.markers = nil
}

func (f *fakeMap) DrawMarkers(records []model.Location) {
	f.calls = append(f.calls, "draw-markers")
	f.markers = append(f.markers, records...)
}

func (f *fakeMap) FitToMarkers() {
	f.calls = append(f.calls, "fit")
	f.fits++
}

func (f *fakeMap) MarkerCount() int { return len(f.markers) }

type fakeList struct {
	calls []string
	items []model.Location
}

func (f *fakeList) Clear() {
	f.calls = append(f.calls, "clear-list")
	f.items = nil
}

func (f *fakeList) Render(records []model.Location) {
	f.calls = append(f.calls, "render-list")
	f.items = append([]model.Location(nil), records...)
}

func names(records []model.Location) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.Name)
	}
	return out
}

func newState() (*State, *fakeMap, *fakeList) {
	m := &fakeMap{}
	l := &fakeList{}
	return New(m, l), m, l
}

func TestNewDefaults(t *testing.T) {
	s, _, _ := newState()
	assert.Equal(t, model.CategoryAll, s.Category())
	assert.Equal(t, "", s.SearchTerm())
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Visible())
}

func TestComputeVisible(t *testing.T) {
	demo := store.DemoLocations()

	tests := []struct {
		name     string
		category string
		term     string
		want     []string
	}{
		{"all no term", "all", "", []string{"Student Hub Central", "Budget Bites", "Green Park Dorms", "The Old Library", "Noodle Bar"}},
		{"food", "food", "", []string{"Budget Bites", "Noodle Bar"}},
		{"library search", "all", "library", []string{"The Old Library"}},
		{"case insensitive", "all", "LIBRARY", []string{"The Old Library"}},
		{"description match", "all", "ramen", []string{"Noodle Bar"}},
		{"both predicates", "social", "students", []string{"Student Hub Central"}},
		{"category excludes term match", "food", "library", []string{}},
		{"unknown category", "nightlife", "", []string{}},
		{"student matches many", "all", "student", []string{"Student Hub Central", "Budget Bites", "Green Park Dorms", "Noodle Bar"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeVisible(demo, tt.category, tt.term)
			assert.Equal(t, tt.want, names(got))
		})
	}
}

func TestComputeVisibleEmptyDescription(t *testing.T) {
	records := []model.Location{{ID: "a", Name: "Cafe", Category: "food"}}
	assert.Len(t, ComputeVisible(records, "all", "cafe"), 1)
	assert.Empty(t, ComputeVisible(records, "all", "tea"))
}

func TestRedrawOrder(t *testing.T) {
	s, m, l := newState()
	s.ReplaceRecords(store.DemoLocations())

	assert.Equal(t, []string{"clear-markers", "draw-markers", "fit"}, m.calls)
	assert.Equal(t, []string{"clear-list", "render-list"}, l.calls)
	assert.Len(t, m.markers, 5)
	assert.Len(t, l.items, 5)
}

func TestNoFitWhenNothingVisible(t *testing.T) {
	s, m, l := newState()
	s.ReplaceRecords(store.DemoLocations())
	m.fits = 0

	s.SetSearchTerm("zzz")
	assert.Equal(t, 0, m.fits)
	assert.Empty(t, m.markers)
	assert.Empty(t, l.items)
}

func TestFilterScenario(t *testing.T) {
	s, m, l := newState()
	s.ReplaceRecords(store.DemoLocations())
	s.SetCategory("food")

	assert.Equal(t, []string{"Budget Bites", "Noodle Bar"}, names(l.items))
	assert.Equal(t, []string{"Budget Bites", "Noodle Bar"}, names(m.markers))

	s.SetCategory("all")
	s.SetSearchTerm("library")
	assert.Equal(t, []string{"The Old Library"}, names(s.Visible()))
	assert.Equal(t, []string{"The Old Library"}, names(l.items))
}

func TestReplaceRecordsSupersedes(t *testing.T) {
	s, m, l := newState()
	a := []model.Location{
		{ID: "1", Name: "Alpha Cafe", Category: "food"},
		{ID: "2", Name: "Beta Hall", Category: "social"},
	}
	b := []model.Location{
		{ID: "3", Name: "Gamma Diner", Category: "food"},
	}

	s.SetCategory("food")
	s.ReplaceRecords(a)
	s.ReplaceRecords(b)

	assert.Equal(t, []string{"Gamma Diner"}, names(s.Visible()))
	assert.Equal(t, []string{"Gamma Diner"}, names(m.markers))
	assert.Equal(t, []string{"Gamma Diner"}, names(l.items))
	assert.Equal(t, 1, s.Len())
}

func TestReplaceRecordsDedupesByID(t *testing.T) {
	s, _, _ := newState()
	s.ReplaceRecords([]model.Location{
		{ID: "1", Name: "Old name"},
		{ID: "2", Name: "Other"},
		{ID: "1", Name: "New name"},
	})

	require.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"New name", "Other"}, names(s.Visible()))
}

func TestReplaceRecordsCopiesInput(t *testing.T) {
	s, _, _ := newState()
	in := []model.Location{{ID: "1", Name: "Original"}}
	s.ReplaceRecords(in)
	in[0].Name = "Mutated"

	got := s.Visible()
	require.Len(t, got, 1)
	assert.Equal(t, "Original", got[0].Name)
}

func TestSearchTermStoredAsTyped(t *testing.T) {
	s, _, _ := newState()
	s.SetSearchTerm("LiBrary")
	assert.Equal(t, "LiBrary", s.SearchTerm())
}

func TestNilPresenters(t *testing.T) {
	s := New(nil, nil)
	assert.NotPanics(t, func() {
		s.ReplaceRecords(store.DemoLocations())
		s.SetCategory("food")
	})
	assert.Len(t, s.Visible(), 2)
}
