package mapview

import (
	"math"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var demoPoints = []LatLng{
	{51.505, -0.09},
	{51.51, -0.1},
	{51.50, -0.08},
	{51.515, -0.095},
	{51.508, -0.11},
}

func TestNewDefaults(t *testing.T) {
	m := New(Options{})
	assert.Equal(t, DefaultCenter, m.Center())
	assert.Equal(t, DefaultZoom, m.Zoom())
	assert.Equal(t, DefaultMinZoom, m.MinZoom())
	assert.Equal(t, DefaultMaxZoom, m.MaxZoom())
}

func TestZoomIsClamped(t *testing.T) {
	m := New(Options{Zoom: 30})
	assert.Equal(t, DefaultMaxZoom, m.Zoom())
	m.SetZoom(0)
	assert.Equal(t, DefaultMinZoom, m.Zoom())
	m.ZoomIn()
	assert.Equal(t, DefaultMinZoom+1, m.Zoom())
}

func TestProjectRoundTrip(t *testing.T) {
	for _, p := range demoPoints {
		x, y := Project(p, 13)
		back := Unproject(x, y, 13)
		assert.InDelta(t, p.Lat, back.Lat, 1e-9)
		assert.InDelta(t, p.Lng, back.Lng, 1e-9)
	}
}

func TestProjectKnownValues(t *testing.T) {
	x, y := Project(LatLng{0, 0}, 0)
	assert.InDelta(t, 128, x, 1e-9)
	assert.InDelta(t, 128, y, 1e-9)
	assert.Equal(t, 512.0, WorldSize(1))
}

func TestBounds(t *testing.T) {
	var b Bounds
	assert.True(t, b.Empty())

	b = BoundsOf(demoPoints...)
	assert.False(t, b.Empty())
	assert.Equal(t, LatLng{51.50, -0.11}, b.SW)
	assert.Equal(t, LatLng{51.515, -0.08}, b.NE)
	c := b.Center()
	assert.InDelta(t, -0.095, c.Lng, 1e-9)
	assert.True(t, c.Lat > 51.50 && c.Lat < 51.515)
}

func TestFitBoundsContainsAllPoints(t *testing.T) {
	m := New(Options{})
	m.Resize(60, 20)
	m.FitBounds(BoundsOf(demoPoints...))

	for _, p := range demoPoints {
		_, _, ok := m.Project(p)
		assert.True(t, ok, "point %v off screen at zoom %d", p, m.Zoom())
	}

	// One more level must no longer fit.
	z := m.Zoom()
	x1, y1 := Project(LatLng{51.50, -0.11}, z+1)
	x2, y2 := Project(LatLng{51.515, -0.08}, z+1)
	tooWide := math.Abs(x2-x1) > float64(58*CellWidth)
	tooTall := math.Abs(y2-y1) > float64(18*CellHeight)
	assert.True(t, tooWide || tooTall)
}

func TestFitBoundsSinglePointUsesMaxZoom(t *testing.T) {
	m := New(Options{})
	m.FitBounds(BoundsOf(LatLng{51.51, -0.1}))
	assert.Equal(t, DefaultMaxZoom, m.Zoom())
	assert.InDelta(t, 51.51, m.Center().Lat, 1e-9)
}

func TestFitBoundsEmptyIsNoop(t *testing.T) {
	m := New(Options{})
	m.FitBounds(Bounds{})
	assert.Equal(t, DefaultZoom, m.Zoom())
	assert.Equal(t, DefaultCenter, m.Center())
}

func TestIdleListenerFiresOnce(t *testing.T) {
	m := New(Options{})
	calls := 0
	m.OnIdle(func(mm *Map) {
		calls++
		if mm.Zoom() > 16 {
			mm.SetZoom(16)
		}
	})
	m.SetZoom(20)
	assert.False(t, m.Settled())

	m.Settle()
	assert.Equal(t, 1, calls)
	assert.Equal(t, 16, m.Zoom())
	assert.True(t, m.Settled())

	m.Settle()
	assert.Equal(t, 1, calls)
}

func TestMarkers(t *testing.T) {
	m := New(Options{})
	a := m.AddMarker(Marker{ID: "a", Position: demoPoints[0]})
	b := m.AddMarker(Marker{ID: "b", Position: demoPoints[1]})
	require.Len(t, m.Markers(), 2)

	assert.True(t, m.RemoveMarker(a))
	assert.False(t, m.RemoveMarker(a))
	assert.Equal(t, []*Marker{b}, m.Markers())
}

func TestProjectCenter(t *testing.T) {
	m := New(Options{})
	m.Resize(40, 10)
	col, row, ok := m.Project(m.Center())
	assert.True(t, ok)
	assert.Equal(t, 20, col)
	assert.Equal(t, 5, row)
}

func TestPanMovesCenter(t *testing.T) {
	m := New(Options{})
	before := m.Center()
	m.Pan(10, 0)
	assert.Greater(t, m.Center().Lng, before.Lng)
	m.Pan(0, 5)
	assert.Less(t, m.Center().Lat, before.Lat)
}

func TestRenderDrawsMarkers(t *testing.T) {
	m := New(Options{})
	m.Resize(20, 6)
	m.AddMarker(Marker{ID: "a", Position: m.Center(), Color: "#22c55e"})

	out := m.Render(nil, func(*Marker) lipgloss.Style { return lipgloss.NewStyle() }, "")
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 6)
	assert.Contains(t, lines[3], string(markerGlyph))

	out = m.Render([]string{strings.Repeat("#", 20)}, nil, "a")
	assert.Contains(t, out, string(selectedGlyph))
	assert.Contains(t, out, "#")
}
