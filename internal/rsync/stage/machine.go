// Package stage tracks the lifecycle of one rsync run and turns classified
// output lines into events.
//
// A Machine is the only place that decides which stage a run is in. It does
// no I/O: the runner feeds it lines in the order they were read and forwards
// whatever events it returns.
package stage

import (
	"strings"
	"sync"

	"github.com/Iron-Ham/rsyncsync/internal/event"
	"github.com/Iron-Ham/rsyncsync/internal/rsync/parse"
)

// ScanningDetail is the detail text of the stage event that opens a run.
const ScanningDetail = "scanning…"

// Machine is the stage state machine for a single run at a time.
// It is safe for concurrent use.
type Machine struct {
	mu       sync.Mutex
	stage    event.Stage
	canceled bool
	captured []string
}

// New returns a Machine in the idle stage.
func New() *Machine {
	return &Machine{stage: event.StageIdle}
}

// Stage returns the current stage.
func (m *Machine) Stage() event.Stage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stage
}

// CancelRequested reports whether Cancel was called during the current run.
func (m *Machine) CancelRequested() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canceled
}

// Begin opens a run: idle moves to scan and the scanning stage event is
// returned. Any state left from a previous run is discarded.
func (m *Machine) Begin() event.StageEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stage = event.StageScan
	m.canceled = false
	m.captured = m.captured[:0]
	return event.NewStageEvent(event.StageScan, ScanningDetail)
}

// Observe classifies one output line and returns the events it produces.
// level is the level a plain log line gets: info for stdout, warn for
// stderr, error for stream failures. Blank lines produce nothing.
func (m *Machine) Observe(line string, level event.Level) []event.Event {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	p := parse.ParseProgressLine(line)

	m.mu.Lock()
	defer m.mu.Unlock()

	if p.HasPercent {
		if m.stage == event.StageScan || m.stage == event.StageIdle {
			m.stage = event.StageTransfer
		}
		return []event.Event{event.NewProgressEvent(m.stage, p.Percent, line, p.Speed, p.ETA)}
	}

	m.captured = append(m.captured, line)
	logEv := event.NewLogEvent(line, level)

	switch {
	case p.Scanning && m.stage == event.StageScan:
		return []event.Event{event.NewStageEvent(event.StageScan, line), logEv}
	case parse.IsStatsHeader(line) && (m.stage == event.StageScan || m.stage == event.StageTransfer):
		m.stage = event.StageFinishing
		return []event.Event{event.NewStageEvent(event.StageFinishing, line), logEv}
	default:
		return []event.Event{logEv}
	}
}

// Cancel records a cancellation request. The stage becomes canceled and
// stays there until Finish; lines observed afterwards still produce events.
// It returns false when no run is in progress.
func (m *Machine) Cancel() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stage == event.StageIdle || m.stage.IsTerminal() {
		return false
	}
	m.canceled = true
	m.stage = event.StageCanceled
	return true
}

// Finish closes the run with the process exit code and returns its terminal
// event. The stage is done for exit code 0, canceled if Cancel was called,
// and error otherwise. The Machine is idle again afterwards.
func (m *Machine) Finish(exitCode int) event.FinishedEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	final := event.StageError
	switch {
	case exitCode == 0:
		final = event.StageDone
	case m.canceled:
		final = event.StageCanceled
	}

	summary := parse.ParseStats(strings.Join(m.captured, "\n"))

	m.stage = event.StageIdle
	m.canceled = false
	m.captured = nil
	return event.NewFinishedEvent(final, exitCode, summary)
}

// Output returns the lines captured so far in the current run.
func (m *Machine) Output() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.captured...)
}
