// Package mapview is a Web-Mercator map viewport drawn on a character grid.
package mapview

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// DefaultCenter is the initial view, central London.
var DefaultCenter = LatLng{Lat: 51.505, Lng: -0.09}

const (
	DefaultZoom    = 13
	DefaultMinZoom = 2
	DefaultMaxZoom = 21

	defaultCols = 80
	defaultRows = 20
)

// Options configures a new Map. Zero values select the defaults.
type Options struct {
	Center  LatLng
	Zoom    int
	MinZoom int
	MaxZoom int
}

// Marker is a point drawn on the map.
type Marker struct {
	ID       string
	Position LatLng
	Color    string
	Title    string
}

// Map holds the viewport and the markers placed on it. It is not safe for
// concurrent use; the UI mutates it from the Update loop only.
type Map struct {
	center  LatLng
	zoom    int
	minZoom int
	maxZoom int
	cols    int
	rows    int

	markers []*Marker
	idle    []func(*Map)
	settled bool
}

// New creates a map.
func New(opts Options) *Map {
	m := &Map{
		center:  opts.Center,
		zoom:    opts.Zoom,
		minZoom: opts.MinZoom,
		maxZoom: opts.MaxZoom,
		cols:    defaultCols,
		rows:    defaultRows,
	}
	if m.center == (LatLng{}) {
		m.center = DefaultCenter
	}
	if m.minZoom <= 0 {
		m.minZoom = DefaultMinZoom
	}
	if m.maxZoom <= 0 {
		m.maxZoom = DefaultMaxZoom
	}
	if m.zoom <= 0 {
		m.zoom = DefaultZoom
	}
	m.zoom = m.clampZoom(m.zoom)
	return m
}

// Resize sets the canvas size in cells.
func (m *Map) Resize(cols, rows int) {
	if cols < 1 {
		cols = 1
	}
	if rows < 1 {
		rows = 1
	}
	if cols != m.cols || rows != m.rows {
		m.cols, m.rows = cols, rows
		m.settled = false
	}
}

// Size returns the canvas size in cells.
func (m *Map) Size() (cols, rows int) {
	return m.cols, m.rows
}

// Center returns the geographic point at the middle of the canvas.
func (m *Map) Center() LatLng { return m.center }

// Zoom returns the current zoom level.
func (m *Map) Zoom() int { return m.zoom }

// MinZoom returns the lowest allowed zoom level.
func (m *Map) MinZoom() int { return m.minZoom }

// MaxZoom returns the highest allowed zoom level.
func (m *Map) MaxZoom() int { return m.maxZoom }

func (m *Map) clampZoom(z int) int {
	if z < m.minZoom {
		return m.minZoom
	}
	if z > m.maxZoom {
		return m.maxZoom
	}
	return z
}

// SetZoom changes the zoom level, clamped to the allowed range.
func (m *Map) SetZoom(z int) {
	m.zoom = m.clampZoom(z)
	m.settled = false
}

// PanTo re-centers the map.
func (m *Map) PanTo(p LatLng) {
	m.center = p
	m.settled = false
}

// SetView re-centers the map and changes the zoom level.
func (m *Map) SetView(p LatLng, zoom int) {
	m.center = p
	m.SetZoom(zoom)
}

// ZoomIn zooms in one level.
func (m *Map) ZoomIn() { m.SetZoom(m.zoom + 1) }

// ZoomOut zooms out one level.
func (m *Map) ZoomOut() { m.SetZoom(m.zoom - 1) }

// Pan moves the center by dx columns and dy rows.
func (m *Map) Pan(dx, dy int) {
	x, y := Project(m.center, m.zoom)
	x += float64(dx * CellWidth)
	y += float64(dy * CellHeight)
	size := WorldSize(m.zoom)
	x = math.Mod(math.Mod(x, size)+size, size)
	y = math.Max(0, math.Min(size, y))
	m.PanTo(Unproject(x, y, m.zoom))
}

// AddMarker places a marker and returns its handle.
func (m *Map) AddMarker(mk Marker) *Marker {
	h := &mk
	m.markers = append(m.markers, h)
	return h
}

// RemoveMarker removes a marker. It reports whether the marker was on the map.
func (m *Map) RemoveMarker(h *Marker) bool {
	for i, mk := range m.markers {
		if mk == h {
			m.markers = append(m.markers[:i], m.markers[i+1:]...)
			return true
		}
	}
	return false
}

// Markers returns the markers in insertion order.
func (m *Map) Markers() []*Marker {
	out := make([]*Marker, len(m.markers))
	copy(out, m.markers)
	return out
}

// FitBounds centers the map on b and picks the largest zoom at which b fits
// inside the canvas, keeping one cell of padding on every side.
func (m *Map) FitBounds(b Bounds) {
	if b.Empty() {
		return
	}
	availW := float64(max(m.cols-2, 1) * CellWidth)
	availH := float64(max(m.rows-2, 1) * CellHeight)

	zoom := m.minZoom
	for z := m.maxZoom; z >= m.minZoom; z-- {
		x1, y1 := Project(b.SW, z)
		x2, y2 := Project(b.NE, z)
		if math.Abs(x2-x1) <= availW && math.Abs(y2-y1) <= availH {
			zoom = z
			break
		}
	}
	m.SetView(b.Center(), zoom)
}

// OnIdle registers a listener fired once, the next time the map settles.
func (m *Map) OnIdle(fn func(*Map)) {
	m.idle = append(m.idle, fn)
}

// Settle marks the viewport as settled and fires pending idle listeners.
func (m *Map) Settle() {
	pending := m.idle
	m.idle = nil
	for _, fn := range pending {
		fn(m)
	}
	m.settled = true
}

// Settled reports whether the viewport has not changed since the last Settle.
func (m *Map) Settled() bool {
	return m.settled
}

// Project returns the canvas cell showing p. ok is false when p is off screen.
func (m *Map) Project(p LatLng) (col, row int, ok bool) {
	cx, cy := Project(m.center, m.zoom)
	x, y := Project(p, m.zoom)
	col = int(math.Floor((x-cx)/CellWidth + float64(m.cols)/2))
	row = int(math.Floor((y-cy)/CellHeight + float64(m.rows)/2))
	ok = col >= 0 && col < m.cols && row >= 0 && row < m.rows
	return col, row, ok
}

const (
	markerGlyph   = '●'
	selectedGlyph = '◉'
	gridGlyph     = '·'
)

var backgroundStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#3b4252"))

// Render draws the canvas. background supplies basemap characters row by row;
// when it is nil a dotted graticule is drawn instead. styleFor colors each
// marker glyph and selected names the marker drawn highlighted.
func (m *Map) Render(background []string, styleFor func(*Marker) lipgloss.Style, selected string) string {
	grid := make([][]rune, m.rows)
	for r := range grid {
		grid[r] = make([]rune, m.cols)
		var bg []rune
		if r < len(background) {
			bg = []rune(background[r])
		}
		for c := range grid[r] {
			switch {
			case background != nil && c < len(bg):
				grid[r][c] = bg[c]
			case background == nil:
				grid[r][c] = m.graticule(c, r)
			default:
				grid[r][c] = ' '
			}
		}
	}

	type hit struct {
		mk       *Marker
		selected bool
	}
	hits := make(map[[2]int]hit)
	for _, mk := range m.markers {
		col, row, ok := m.Project(mk.Position)
		if !ok {
			continue
		}
		cell := [2]int{col, row}
		if prev, taken := hits[cell]; taken && prev.selected {
			continue
		}
		hits[cell] = hit{mk: mk, selected: mk.ID == selected && selected != ""}
	}

	var sb strings.Builder
	for r := 0; r < m.rows; r++ {
		var run strings.Builder
		flush := func() {
			if run.Len() > 0 {
				sb.WriteString(backgroundStyle.Render(run.String()))
				run.Reset()
			}
		}
		for c := 0; c < m.cols; c++ {
			h, ok := hits[[2]int{c, r}]
			if !ok {
				run.WriteRune(grid[r][c])
				continue
			}
			flush()
			glyph := string(markerGlyph)
			if h.selected {
				glyph = string(selectedGlyph)
			}
			style := lipgloss.NewStyle().Foreground(lipgloss.Color(h.mk.Color)).Bold(true)
			if styleFor != nil {
				style = styleFor(h.mk)
			}
			if h.selected {
				style = style.Reverse(true)
			}
			sb.WriteString(style.Render(glyph))
		}
		flush()
		if r < m.rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// graticule places a dot every few world cells so panning is visible on an
// empty map.
func (m *Map) graticule(col, row int) rune {
	cx, cy := Project(m.center, m.zoom)
	wc := int(math.Floor(cx/CellWidth)) - m.cols/2 + col
	wr := int(math.Floor(cy/CellHeight)) - m.rows/2 + row
	if wc%8 == 0 && wr%4 == 0 {
		return gridGlyph
	}
	return ' '
}
