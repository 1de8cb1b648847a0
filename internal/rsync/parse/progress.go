// Package parse classifies rsync output lines and extracts the statistics
// block printed by --stats.
//
// rsync's textual output is not a stable contract: progress lines may start
// with a byte counter, columns are padded with a varying number of spaces,
// and builds differ in which fields they print. Every pattern here therefore
// searches anywhere in the line instead of anchoring to a column, and a
// line that matches nothing simply yields an empty result. Nothing in this
// package returns an error or panics on malformed input.
package parse

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	percentRe = regexp.MustCompile(`(?:^|\s)(\d{1,3})%`)
	speedRe   = regexp.MustCompile(`(?:^|\s)(\d+(?:\.\d+)?[kKMGT]?B/s)(?:\s|$)`)
	etaRe     = regexp.MustCompile(`(?:^|\s)(\d+:\d+:\d+)(?:\s|$)`)
)

// Markers rsync appends to progress lines while it is still reconciling the
// file list.
var scanMarkers = []string{"to-chk=", "ir-chk="}

// Progress is the classification of one output line.
type Progress struct {
	// Percent is the overall completion, clamped to [0, 100].
	// Only meaningful when HasPercent is true.
	Percent    int
	HasPercent bool
	// Speed is a transfer rate token such as "12.34MB/s".
	Speed string
	// ETA is a remaining-time token such as "0:01:23".
	ETA string
	// Scanning reports that the line carries a file-list reconciliation marker.
	Scanning bool
}

// ParseProgressLine classifies a single trimmed line.
func ParseProgressLine(line string) Progress {
	var p Progress

	if m := percentRe.FindStringSubmatch(line); m != nil {
		// At most three digits, so Atoi cannot fail or overflow.
		n, _ := strconv.Atoi(m[1])
		p.Percent = min(max(n, 0), 100)
		p.HasPercent = true
	}
	if m := speedRe.FindStringSubmatch(line); m != nil {
		p.Speed = m[1]
	}
	if m := etaRe.FindStringSubmatch(line); m != nil {
		p.ETA = m[1]
	}
	for _, marker := range scanMarkers {
		if strings.Contains(line, marker) {
			p.Scanning = true
			break
		}
	}
	return p
}

// IsStatsHeader reports whether line opens rsync's end-of-run statistics
// block.
func IsStatsHeader(line string) bool {
	return strings.HasPrefix(line, LabelFilesTotal)
}
