// Package basemap renders raster map tiles as text for the map canvas.
package basemap

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/qeesung/image2ascii/convert"

	"citynav/internal/mapview"
)

const (
	// DefaultURLTemplate is the OpenStreetMap standard tile layer.
	DefaultURLTemplate = "https://tile.openstreetmap.org/{z}/{x}/{y}.png"
	// DefaultMaxZoom is the deepest zoom the default tile server offers.
	DefaultMaxZoom   = 19
	defaultCacheSize = 256
)

var (
	// ErrDisabled is returned by a client without a URL template.
	ErrDisabled = errors.New("basemap disabled")
	// ErrZoomUnsupported is returned for zoom levels the tile server lacks.
	ErrZoomUnsupported = errors.New("zoom level not served by tile server")
)

// TileError is a failed tile request.
type TileError struct {
	Status int
	URL    string
}

func (e *TileError) Error() string {
	return fmt.Sprintf("tile request failed: status %d", e.Status)
}

// Unauthorized reports whether the server rejected the API key.
func (e *TileError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// Config configures a Client.
type Config struct {
	URLTemplate string
	APIKey      string
	UserAgent   string
	CacheSize   int
	MaxZoom     int
	HTTPClient  *http.Client
}

type tileKey struct {
	z, x, y int
}

// Client fetches, caches and renders tiles.
type Client struct {
	cfg   Config
	http  *http.Client
	cache *lru.Cache[tileKey, image.Image]
}

// NewClient creates a tile client. An empty URL template gives a disabled
// client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = defaultCacheSize
	}
	if cfg.MaxZoom <= 0 {
		cfg.MaxZoom = DefaultMaxZoom
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "citynav"
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	cache, err := lru.New[tileKey, image.Image](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create tile cache: %w", err)
	}
	return &Client{cfg: cfg, http: httpClient, cache: cache}, nil
}

// Enabled reports whether the client has a tile server.
func (c *Client) Enabled() bool {
	return c != nil && c.cfg.URLTemplate != ""
}

// View is the area to render.
type View struct {
	Center mapview.LatLng
	Zoom   int
	Cols   int
	Rows   int
}

// Render returns v.Rows lines of v.Cols characters depicting the view.
func (c *Client) Render(ctx context.Context, v View) ([]string, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}
	if v.Zoom > c.cfg.MaxZoom || v.Zoom < 0 {
		return nil, fmt.Errorf("%w: %d", ErrZoomUnsupported, v.Zoom)
	}
	if v.Cols <= 0 || v.Rows <= 0 {
		return nil, nil
	}

	img, err := c.Stitch(ctx, v)
	if err != nil {
		return nil, err
	}
	return toText(img, v.Cols, v.Rows), nil
}

// Stitch assembles the tiles covering v into one image sized to the canvas in
// pixels.
func (c *Client) Stitch(ctx context.Context, v View) (*image.RGBA, error) {
	w := v.Cols * mapview.CellWidth
	h := v.Rows * mapview.CellHeight
	cx, cy := mapview.Project(v.Center, v.Zoom)
	left := int(math.Floor(cx)) - w/2
	top := int(math.Floor(cy)) - h/2

	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.Black}, image.Point{}, draw.Src)

	n := 1 << v.Zoom
	for ty := floorDiv(top, mapview.TileSize); ty <= floorDiv(top+h-1, mapview.TileSize); ty++ {
		if ty < 0 || ty >= n {
			continue
		}
		for tx := floorDiv(left, mapview.TileSize); tx <= floorDiv(left+w-1, mapview.TileSize); tx++ {
			tile, err := c.Tile(ctx, v.Zoom, ((tx%n)+n)%n, ty)
			if err != nil {
				return nil, err
			}
			at := image.Pt(tx*mapview.TileSize-left, ty*mapview.TileSize-top)
			draw.Draw(canvas, image.Rectangle{Min: at, Max: at.Add(tile.Bounds().Size())}, tile, tile.Bounds().Min, draw.Src)
		}
	}
	return canvas, nil
}

// Tile returns one tile, from the cache when possible.
func (c *Client) Tile(ctx context.Context, z, x, y int) (image.Image, error) {
	key := tileKey{z, x, y}
	if img, ok := c.cache.Get(key); ok {
		return img, nil
	}

	tileURL := c.tileURL(z, x, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, tileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("request creation failed: %w", err)
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("network error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TileError{Status: resp.StatusCode, URL: redact(tileURL)}
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("tile decode error: %w", err)
	}
	c.cache.Add(key, img)
	return img, nil
}

func (c *Client) tileURL(z, x, y int) string {
	u := strings.NewReplacer(
		"{z}", strconv.Itoa(z),
		"{x}", strconv.Itoa(x),
		"{y}", strconv.Itoa(y),
	).Replace(c.cfg.URLTemplate)
	if c.cfg.APIKey == "" {
		return u
	}
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + "key=" + url.QueryEscape(c.cfg.APIKey)
}

func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// toText converts the stitched image with image2ascii and normalizes the
// result to exactly rows lines of cols runes.
func toText(img image.Image, cols, rows int) []string {
	converter := convert.NewImageConverter()

	opts := convert.DefaultOptions
	opts.FixedWidth = cols
	opts.FixedHeight = rows
	opts.Colored = false
	opts.FitScreen = false
	opts.StretchedScreen = false

	raw := strings.Split(converter.Image2ASCIIString(img, &opts), "\n")
	lines := make([]string, rows)
	for i := range lines {
		var line []rune
		if i < len(raw) {
			line = []rune(raw[i])
		}
		if len(line) > cols {
			line = line[:cols]
		}
		lines[i] = string(line) + strings.Repeat(" ", cols-len(line))
	}
	return lines
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
