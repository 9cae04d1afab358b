// Package category maps a location category to its marker color and badge.
package category

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"citynav/internal/model"

	"github.com/charmbracelet/lipgloss"
)

// DefaultColor is used for categories the navigator does not know.
const DefaultColor = "#94a3b8"

// Badge describes how a category is labelled in lists and popups.
type Badge struct {
	Icon  string
	Glyph string
	Class string
	Label string
	Color string
}

var badges = map[string]Badge{
	model.CategoryAccommodation: {Icon: "home", Glyph: "⌂", Class: "bg-primary", Color: "#0ea5e9"},
	model.CategoryFood:          {Icon: "utensils", Glyph: "♨", Class: "bg-success", Color: "#22c55e"},
	model.CategorySocial:        {Icon: "users", Glyph: "☻", Class: "bg-warning text-dark", Color: "#eab308"},
}

var fallback = Badge{Icon: "map-marker", Glyph: "◉", Class: "bg-secondary", Color: DefaultColor}

// Color returns the marker color for a category.
func Color(category string) string {
	if b, ok := badges[category]; ok {
		return b.Color
	}
	return DefaultColor
}

// BadgeFor returns the badge for a category.
func BadgeFor(category string) Badge {
	b, ok := badges[category]
	if !ok {
		b = fallback
	}
	b.Label = Label(category)
	return b
}

// Label upper-cases the first letter of a category: "food" becomes "Food".
func Label(category string) string {
	if category == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(category)
	return string(unicode.ToUpper(r)) + category[size:]
}

// Known reports whether the category has its own badge.
func Known(category string) bool {
	_, ok := badges[strings.TrimSpace(category)]
	return ok
}

// Render draws the badge as a pill.
func (b Badge) Render() string {
	fg := lipgloss.Color("#ffffff")
	if strings.Contains(b.Class, "text-dark") {
		fg = lipgloss.Color("#1e293b")
	}
	return lipgloss.NewStyle().
		Foreground(fg).
		Background(lipgloss.Color(b.Color)).
		Padding(0, 1).
		Render(b.Glyph + " " + b.Label)
}
