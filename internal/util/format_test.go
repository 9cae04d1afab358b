package util

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTruncateString(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"Budget Bites", 20, "Budget Bites"},
		{"Amazing street food at student-friendly prices.", 16, "Amazing stree..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "ab"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TruncateString(tt.in, tt.max), tt.in)
	}
}

func TestFormatCoordinate(t *testing.T) {
	assert.Equal(t, "51.50500, -0.09000", FormatCoordinate(51.505, -0.09))
}

func TestFormatAddedHuman(t *testing.T) {
	now := time.Date(2025, 6, 15, 18, 0, 0, 0, time.UTC)
	tests := []struct {
		at   time.Time
		want string
	}{
		{time.Time{}, ""},
		{now.Add(-time.Hour), "Today"},
		{now.AddDate(0, 0, -1), "Yesterday"},
		{now.AddDate(0, 0, -3), "3d ago"},
		{time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC), "Jan 15"},
		{time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC), "Jan 15 '24"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAddedHuman(tt.at, now))
	}
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "first", FirstLine(" first \nsecond"))
	assert.Equal(t, "only", FirstLine("only"))
}
