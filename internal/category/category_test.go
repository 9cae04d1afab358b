package category

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColor(t *testing.T) {
	tests := []struct {
		category string
		want     string
	}{
		{"accommodation", "#0ea5e9"},
		{"food", "#22c55e"},
		{"social", "#eab308"},
		{"nightlife", DefaultColor},
		{"", DefaultColor},
		{"Food", DefaultColor},
	}
	for _, tt := range tests {
		t.Run(tt.category, func(t *testing.T) {
			assert.Equal(t, tt.want, Color(tt.category))
		})
	}
}

func TestBadgeFor(t *testing.T) {
	food := BadgeFor("food")
	assert.Equal(t, "Food", food.Label)
	assert.Equal(t, "utensils", food.Icon)
	assert.Equal(t, "bg-success", food.Class)
	assert.Equal(t, "#22c55e", food.Color)

	social := BadgeFor("social")
	assert.Equal(t, "bg-warning text-dark", social.Class)
	assert.Equal(t, "users", social.Icon)

	home := BadgeFor("accommodation")
	assert.Equal(t, "home", home.Icon)
	assert.Equal(t, "Accommodation", home.Label)

	unknown := BadgeFor("library")
	assert.Equal(t, "map-marker", unknown.Icon)
	assert.Equal(t, "bg-secondary", unknown.Class)
	assert.Equal(t, "Library", unknown.Label)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "", Label(""))
	assert.Equal(t, "Éclair", Label("éclair"))
	assert.Equal(t, "Food", Label("food"))
}

func TestRenderContainsLabel(t *testing.T) {
	assert.Contains(t, BadgeFor("food").Render(), "Food")
}

func TestKnown(t *testing.T) {
	assert.True(t, Known("food"))
	assert.True(t, Known(" social "))
	assert.False(t, Known("all"))
}
