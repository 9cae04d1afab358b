package mapview

import "math"

const (
	// TileSize is the width of one Web-Mercator tile in pixels.
	TileSize = 256
	// CellWidth and CellHeight are the pixels covered by one terminal cell.
	CellWidth  = 8
	CellHeight = 16

	maxLatitude = 85.05112878
)

// LatLng is a geographic position in degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

// Bounds is the smallest box containing a set of positions.
type Bounds struct {
	SW, NE LatLng
	set    bool
}

// BoundsOf returns the bounds of points.
func BoundsOf(points ...LatLng) Bounds {
	var b Bounds
	for _, p := range points {
		b.Extend(p)
	}
	return b
}

// Extend grows the bounds to include p.
func (b *Bounds) Extend(p LatLng) {
	if !b.set {
		b.SW, b.NE, b.set = p, p, true
		return
	}
	b.SW.Lat = math.Min(b.SW.Lat, p.Lat)
	b.SW.Lng = math.Min(b.SW.Lng, p.Lng)
	b.NE.Lat = math.Max(b.NE.Lat, p.Lat)
	b.NE.Lng = math.Max(b.NE.Lng, p.Lng)
}

// Empty reports whether no point was added.
func (b Bounds) Empty() bool {
	return !b.set
}

// Center returns the midpoint of the box in projected space.
func (b Bounds) Center() LatLng {
	x1, y1 := Project(b.SW, 0)
	x2, y2 := Project(b.NE, 0)
	return Unproject((x1+x2)/2, (y1+y2)/2, 0)
}

// WorldSize returns the width of the world in pixels at zoom.
func WorldSize(zoom int) float64 {
	return TileSize * math.Exp2(float64(zoom))
}

// Project converts p to world pixel coordinates at zoom.
func Project(p LatLng, zoom int) (x, y float64) {
	lat := math.Max(-maxLatitude, math.Min(maxLatitude, p.Lat))
	size := WorldSize(zoom)
	sin := math.Sin(lat * math.Pi / 180)
	x = (p.Lng + 180) / 360 * size
	y = (0.5 - math.Log((1+sin)/(1-sin))/(4*math.Pi)) * size
	return x, y
}

// Unproject converts world pixel coordinates at zoom back to a position.
func Unproject(x, y float64, zoom int) LatLng {
	size := WorldSize(zoom)
	lng := x/size*360 - 180
	n := math.Pi - 2*math.Pi*y/size
	lat := 180 / math.Pi * math.Atan(math.Sinh(n))
	return LatLng{Lat: lat, Lng: lng}
}
