package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Iron-Ham/rsyncsync/internal/rsync/parse"
)

// Event is the interface that all events must implement.
type Event interface {
	// EventType returns the discriminator: "stage", "progress", "log" or "finished".
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type discriminators.
const (
	TypeStage    = "stage"
	TypeProgress = "progress"
	TypeLog      = "log"
	TypeFinished = "finished"
)

// baseEvent provides the common fields for all events.
type baseEvent struct {
	Type string    `json:"type"`
	At   time.Time `json:"timestamp"`
}

func (e baseEvent) EventType() string    { return e.Type }
func (e baseEvent) Timestamp() time.Time { return e.At }

func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		Type: eventType,
		At:   time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Stage
// -----------------------------------------------------------------------------

// Stage is the lifecycle position of a run.
type Stage string

const (
	StageIdle      Stage = "idle"
	StageScan      Stage = "scan"
	StageTransfer  Stage = "transfer"
	StageFinishing Stage = "finishing"
	StageDone      Stage = "done"
	StageError     Stage = "error"
	StageCanceled  Stage = "canceled"
)

// Stages lists every stage in lifecycle order.
func Stages() []Stage {
	return []Stage{StageIdle, StageScan, StageTransfer, StageFinishing, StageDone, StageError, StageCanceled}
}

func (s Stage) String() string { return string(s) }

// IsTerminal reports whether s ends a run.
func (s Stage) IsTerminal() bool {
	switch s {
	case StageDone, StageError, StageCanceled:
		return true
	default:
		return false
	}
}

// Valid reports whether s is one of the known stages.
func (s Stage) Valid() bool {
	for _, known := range Stages() {
		if s == known {
			return true
		}
	}
	return false
}

// UnmarshalText rejects unknown stage names.
func (s *Stage) UnmarshalText(text []byte) error {
	v := Stage(text)
	if !v.Valid() {
		return fmt.Errorf("unknown stage %q", text)
	}
	*s = v
	return nil
}

// -----------------------------------------------------------------------------
// Level
// -----------------------------------------------------------------------------

// Level classifies a LogEvent.
type Level string

const (
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// -----------------------------------------------------------------------------
// Run Events
// -----------------------------------------------------------------------------

// StageEvent is emitted when a run moves to a new stage.
type StageEvent struct {
	baseEvent
	Stage  Stage  `json:"stage"`
	Detail string `json:"detail"`
}

// NewStageEvent creates a StageEvent.
func NewStageEvent(stage Stage, detail string) StageEvent {
	return StageEvent{
		baseEvent: newBaseEvent(TypeStage),
		Stage:     stage,
		Detail:    detail,
	}
}

// ProgressEvent carries one progress line. Percent is reported exactly as
// rsync printed it and may go backwards between events.
type ProgressEvent struct {
	baseEvent
	Stage   Stage  `json:"stage"`
	Percent int    `json:"percent"`
	Detail  string `json:"detail"`
	Speed   string `json:"speed,omitempty"`
	ETA     string `json:"eta,omitempty"`
}

// NewProgressEvent creates a ProgressEvent.
func NewProgressEvent(stage Stage, percent int, detail, speed, eta string) ProgressEvent {
	return ProgressEvent{
		baseEvent: newBaseEvent(TypeProgress),
		Stage:     stage,
		Percent:   percent,
		Detail:    detail,
		Speed:     speed,
		ETA:       eta,
	}
}

// LogEvent passes one output line through for display and auditing.
type LogEvent struct {
	baseEvent
	Line  string `json:"line"`
	Level Level  `json:"level"`
}

// NewLogEvent creates a LogEvent.
func NewLogEvent(line string, level Level) LogEvent {
	return LogEvent{
		baseEvent: newBaseEvent(TypeLog),
		Line:      line,
		Level:     level,
	}
}

// FinishedEvent is the terminal event of a run. Exactly one is emitted per
// run that was spawned.
type FinishedEvent struct {
	baseEvent
	OK       bool          `json:"ok"`
	ExitCode int           `json:"exitCode"`
	Stage    Stage         `json:"stage"`
	Summary  parse.Summary `json:"summary"`
	DryRun   bool          `json:"dryRun,omitempty"`
}

// NewFinishedEvent creates a FinishedEvent. OK is true only for StageDone.
func NewFinishedEvent(stage Stage, exitCode int, summary parse.Summary) FinishedEvent {
	return FinishedEvent{
		baseEvent: newBaseEvent(TypeFinished),
		OK:        stage == StageDone,
		ExitCode:  exitCode,
		Stage:     stage,
		Summary:   summary,
	}
}

// Decode parses one JSON-encoded event back into its concrete type.
func Decode(data []byte) (Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var (
		ev  Event
		err error
	)
	switch head.Type {
	case TypeStage:
		var e StageEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case TypeProgress:
		var e ProgressEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case TypeLog:
		var e LogEvent
		err = json.Unmarshal(data, &e)
		ev = e
	case TypeFinished:
		var e FinishedEvent
		err = json.Unmarshal(data, &e)
		ev = e
	default:
		return nil, fmt.Errorf("unknown event type %q", head.Type)
	}
	if err != nil {
		return nil, err
	}
	return ev, nil
}
