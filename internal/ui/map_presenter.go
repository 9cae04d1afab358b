package ui

import (
	"fmt"
	"strings"

	"citynav/internal/basemap"
	"citynav/internal/category"
	"citynav/internal/mapview"
	"citynav/internal/model"
	"citynav/internal/util"

	"github.com/mmcloughlin/geohash"
)

const (
	// MaxFitZoom caps the zoom chosen when fitting the markers.
	MaxFitZoom = 16
	// FocusZoom is the zoom used when a location is focused from the list.
	FocusZoom = 16

	popupGeohashPrecision = 7
)

// MapFailedTitle heads the panel shown in place of the map when it could
// not be loaded.
const MapFailedTitle = "Map Failed to Load"

// MapPresenter draws the visible locations as markers on a terminal map and
// owns the single open popup.
type MapPresenter struct {
	m       *mapview.Map
	markers map[string]*mapview.Marker
	records map[string]model.Location

	popup      *model.Location
	failed     string
	loaded     bool
	background []string
	bgView     basemap.View
}

// NewMapPresenter creates a presenter drawing on m.
func NewMapPresenter(m *mapview.Map) *MapPresenter {
	return &MapPresenter{
		m:       m,
		markers: make(map[string]*mapview.Marker),
		records: make(map[string]model.Location),
	}
}

// Map returns the underlying map.
func (p *MapPresenter) Map() *mapview.Map {
	return p.m
}

// ClearMarkers removes every tracked marker along with its popup. Calling it
// on an empty map is a no-op.
func (p *MapPresenter) ClearMarkers() {
	for id, h := range p.markers {
		p.m.RemoveMarker(h)
		delete(p.markers, id)
	}
	p.records = make(map[string]model.Location)
	p.popup = nil
}

// DrawMarkers places one marker per record, colored by category.
func (p *MapPresenter) DrawMarkers(records []model.Location) {
	for _, r := range records {
		if old, ok := p.markers[r.ID]; ok {
			p.m.RemoveMarker(old)
		}
		h := p.m.AddMarker(mapview.Marker{
			ID:       r.ID,
			Position: mapview.LatLng{Lat: r.Lat, Lng: r.Lng},
			Color:    category.Color(r.Category),
			Title:    r.Name,
		})
		p.markers[r.ID] = h
		p.records[r.ID] = r
	}
}

// FitToMarkers zooms the map to show every tracked marker. Once the map
// settles the zoom is capped at MaxFitZoom so a single marker is not shown
// at street level.
func (p *MapPresenter) FitToMarkers() {
	if len(p.markers) == 0 {
		return
	}
	var b mapview.Bounds
	for _, h := range p.markers {
		b.Extend(h.Position)
	}
	p.m.FitBounds(b)
	p.m.OnIdle(func(m *mapview.Map) {
		if m.Zoom() > MaxFitZoom {
			m.SetZoom(MaxFitZoom)
		}
	})
}

// MarkerCount returns the number of tracked markers.
func (p *MapPresenter) MarkerCount() int {
	return len(p.markers)
}

// Focus centers the map on the marker for id at FocusZoom and opens its
// popup. It reports false, changing nothing, when no marker is tracked for id.
func (p *MapPresenter) Focus(id string) bool {
	h, ok := p.markers[id]
	if !ok {
		return false
	}
	p.m.SetView(h.Position, FocusZoom)
	return p.Activate(id)
}

// Activate opens the popup for id without moving the map.
func (p *MapPresenter) Activate(id string) bool {
	r, ok := p.records[id]
	if !ok {
		return false
	}
	p.popup = &r
	return true
}

// ClosePopup closes the open popup, if any.
func (p *MapPresenter) ClosePopup() {
	p.popup = nil
}

// Popup returns the location whose popup is open.
func (p *MapPresenter) Popup() (model.Location, bool) {
	if p.popup == nil {
		return model.Location{}, false
	}
	return *p.popup, true
}

// Fail replaces the map with an error panel. Markers stay tracked.
func (p *MapPresenter) Fail(message string) {
	if p.failed == "" {
		p.failed = message
	}
}

// Failed returns the failure message, if the map failed to load.
func (p *MapPresenter) Failed() (string, bool) {
	return p.failed, p.failed != ""
}

// MarkLoaded records that the map finished loading.
func (p *MapPresenter) MarkLoaded() {
	p.loaded = true
}

// Loaded reports whether the map finished loading.
func (p *MapPresenter) Loaded() bool {
	return p.loaded
}

// CurrentView returns the basemap area matching the current viewport.
func (p *MapPresenter) CurrentView() basemap.View {
	cols, rows := p.m.Size()
	return basemap.View{Center: p.m.Center(), Zoom: p.m.Zoom(), Cols: cols, Rows: rows}
}

// SetBackground stores basemap lines rendered for v. They are drawn only
// while v matches the viewport.
func (p *MapPresenter) SetBackground(lines []string, v basemap.View) {
	p.background = lines
	p.bgView = v
}

// Resize sets the canvas size in cells.
func (p *MapPresenter) Resize(width, height int) {
	p.m.Resize(width, max(height, 3))
}

// View renders the map panel. An open popup is drawn over the bottom rows of
// the canvas.
func (p *MapPresenter) View() string {
	width, _ := p.m.Size()
	if msg, failed := p.Failed(); failed {
		body := LabelStyle.Render(MapFailedTitle) + "\n\n" + msg
		return MapErrorStyle.Width(max(width-6, 10)).Render(body)
	}

	var bg []string
	if p.bgView == p.CurrentView() {
		bg = p.background
	}
	selected := ""
	if p.popup != nil {
		selected = p.popup.ID
	}
	canvas := p.m.Render(bg, nil, selected)

	popup := p.renderPopup(width)
	if popup == "" {
		return canvas
	}
	rows := strings.Split(canvas, "\n")
	over := strings.Split(popup, "\n")
	if len(over) >= len(rows) {
		return popup
	}
	return strings.Join(append(rows[:len(rows)-len(over)], over...), "\n")
}

func (p *MapPresenter) renderPopup(width int) string {
	if p.popup == nil {
		return ""
	}
	r := p.popup
	var lines []string
	lines = append(lines, LabelStyle.Render(r.Name)+"  "+category.BadgeFor(r.Category).Render())
	if desc := util.FirstLine(r.Description); desc != "" {
		lines = append(lines, NormalRowStyle.Render(util.TruncateString(desc, max(width-6, 10))))
	}
	lines = append(lines, MutedStyle.Render(fmt.Sprintf("%s  #%s  (esc to close)", util.FormatCoordinate(r.Lat, r.Lng), popupGeohash(*r))))
	return PopupStyle.Width(max(width-4, 10)).Render(strings.Join(lines, "\n"))
}

// popupGeohash prefers the hash stored with the record and encodes one when
// the backend keeps none.
func popupGeohash(r model.Location) string {
	if len(r.Geohash) >= popupGeohashPrecision {
		return r.Geohash[:popupGeohashPrecision]
	}
	return geohash.EncodeWithPrecision(r.Lat, r.Lng, popupGeohashPrecision)
}
