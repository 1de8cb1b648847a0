// Package util holds text helpers shared by the terminal front ends.
package util

import (
	"github.com/charmbracelet/x/ansi"
)

// Ellipsis marks where text was cut.
const Ellipsis = "…"

// Fit truncates s to width terminal cells, marking the cut with Ellipsis.
// ANSI styling and wide characters are measured correctly, so styled
// strings may be passed. A width of zero or less yields "".
func Fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, Ellipsis)
}

// FitLeft truncates plain text s to width cells by dropping its start, so
// the end of a long path stays visible.
func FitLeft(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if ansi.StringWidth(s) <= width {
		return s
	}

	runes := []rune(s)
	budget := width - ansi.StringWidth(Ellipsis)
	start, used := len(runes), 0
	for start > 0 {
		w := ansi.StringWidth(string(runes[start-1]))
		if used+w > budget {
			break
		}
		used += w
		start--
	}
	return Ellipsis + string(runes[start:])
}
