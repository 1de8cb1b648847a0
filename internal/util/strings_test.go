package util

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

func TestFit(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{
			name:     "short string unchanged",
			input:    "hello",
			width:    10,
			expected: "hello",
		},
		{
			name:     "exact width unchanged",
			input:    "hello",
			width:    5,
			expected: "hello",
		},
		{
			name:     "long string truncated",
			input:    "hello world",
			width:    6,
			expected: "hello…",
		},
		{
			name:     "width of one keeps only the mark",
			input:    "hello",
			width:    1,
			expected: "…",
		},
		{
			name:     "zero width",
			input:    "hello",
			width:    0,
			expected: "",
		},
		{
			name:     "negative width",
			input:    "hello",
			width:    -4,
			expected: "",
		},
		{
			name:     "wide characters measured by cells",
			input:    "日本語テキスト",
			width:    5,
			expected: "日本…",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Fit(tt.input, tt.width); got != tt.expected {
				t.Errorf("Fit(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.expected)
			}
		})
	}
}

func TestFit_StyledText(t *testing.T) {
	styled := lipgloss.NewStyle().Bold(true).Render("speed 12.5MB/s remaining 0:01:00")

	got := Fit(styled, 10)
	if w := lipgloss.Width(got); w > 10 {
		t.Errorf("Fit() width = %d, want <= 10", w)
	}
	if plain := ansi.Strip(got); plain != "speed 12.…" {
		t.Errorf("Fit() text = %q", plain)
	}
}

func TestFitLeft(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		width    int
		expected string
	}{
		{"fits", "/Volumes/Backup", 20, "/Volumes/Backup"},
		{"keeps the end", "/Users/me/Pictures/Photos Library", 15, "…Photos Library"},
		{"single cell", "/a/b/c", 1, "…"},
		{"zero width", "/a/b/c", 0, ""},
		{"wide characters", "/データ/写真", 6, "…/写真"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitLeft(tt.input, tt.width)
			if got != tt.expected {
				t.Errorf("FitLeft(%q, %d) = %q, want %q", tt.input, tt.width, got, tt.expected)
			}
			if w := ansi.StringWidth(got); w > max(tt.width, 0) {
				t.Errorf("FitLeft() width = %d, want <= %d", w, tt.width)
			}
		})
	}
}
