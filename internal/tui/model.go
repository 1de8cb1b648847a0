package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/Iron-Ham/rsyncsync/internal/event"
	"github.com/Iron-Ham/rsyncsync/internal/logging"
	"github.com/Iron-Ham/rsyncsync/internal/picker"
	"github.com/Iron-Ham/rsyncsync/internal/rsync"
	"github.com/Iron-Ham/rsyncsync/internal/settings"
	"github.com/Iron-Ham/rsyncsync/internal/tui/styles"
)

// DefaultMaxLogLines caps the log drawer when Options.MaxLogLines is unset.
const DefaultMaxLogLines = 2000

// focusField is the element receiving key presses.
type focusField int

const (
	focusSource focusField = iota
	focusDest
	focusControls
	focusCount
)

// logLine is one entry of the log drawer.
type logLine struct {
	level event.Level
	text  string
}

// Options wires the TUI to the rest of the application.
type Options struct {
	Context context.Context
	Runner  SyncRunner
	Store   SettingsStore
	Picker  picker.Picker
	// Bus receives every run event; the TUI subscribes to it. A private bus
	// is created when nil.
	Bus         *event.Bus
	Logger      *logging.Logger
	MaxLogLines int
}

// Model holds the TUI application state
type Model struct {
	// Collaborators
	ctx    context.Context
	runner SyncRunner
	store  SettingsStore
	picker picker.Picker
	bus    *event.Bus
	events chan event.Event
	logger *logging.Logger

	// Presentation
	keys     keyMap
	help     help.Model
	styles   *styles.Styles
	settings settings.Settings
	width    int
	height   int

	// Form
	source      textinput.Model
	dest        textinput.Model
	focus       focusField
	deleteExtra bool
	dryRun      bool
	checksum    bool

	// Run state
	running  bool
	stopping bool
	stage    event.Stage
	percent  int // displayed percent, never decreases within a run
	speed    string
	eta      string
	detail   string
	result   *event.FinishedEvent
	spinner  spinner.Model
	progress progress.Model

	// Log drawer
	logLines    []logLine
	maxLogLines int
	showLog     bool
	logView     viewport.Model

	status       string
	errorMessage string
	quitting     bool
}

// NewModel creates a Model seeded from the saved settings.
func NewModel(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NopLogger()
	}
	bus := opts.Bus
	if bus == nil {
		bus = event.NewBus(logger)
	}
	maxLines := opts.MaxLogLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLogLines
	}
	p := opts.Picker
	if p == nil {
		p = picker.Unsupported{}
	}

	s := opts.Store.Get()

	source := textinput.New()
	source.Placeholder = "/path/to/source"
	source.Prompt = ""
	source.SetValue(s.LastSource)
	source.Focus()

	dest := textinput.New()
	dest.Placeholder = "/path/to/destination"
	dest.Prompt = ""
	dest.SetValue(s.LastDest)

	m := Model{
		ctx:    ctx,
		runner: opts.Runner,
		store:  opts.Store,
		picker: p,
		bus:    bus,
		events: make(chan event.Event, 256),
		logger: logger.With("component", "tui"),

		keys:     defaultKeyMap(),
		help:     help.New(),
		styles:   styles.ForTheme(string(s.Theme)),
		settings: s,

		source:      source,
		dest:        dest,
		focus:       focusSource,
		deleteExtra: s.DefaultDelete,
		dryRun:      s.DefaultDryRun,
		checksum:    s.DefaultChecksum,

		stage:       event.StageIdle,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot)),
		progress:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		maxLogLines: maxLines,
		logView:     viewport.New(80, 10),
	}

	events := m.events
	bus.SubscribeAll(func(ev event.Event) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	})
	return m
}

// sink is the runner sink: events go through the bus so other subscribers
// (the audit log) see them too.
func (m Model) sink(ev event.Event) {
	m.bus.Publish(ev)
}

// options builds the sync request from the form.
func (m Model) options() rsync.Options {
	return rsync.Options{
		Source:   strings.TrimSpace(m.source.Value()),
		Dest:     strings.TrimSpace(m.dest.Value()),
		Delete:   m.deleteExtra,
		DryRun:   m.dryRun,
		Checksum: m.checksum,
	}
}

// DisplayedPercent returns the percent shown on the progress bar.
func (m Model) DisplayedPercent() int {
	return m.percent
}

// Stage returns the stage shown in the header badge.
func (m Model) Stage() event.Stage {
	return m.stage
}

// Running reports whether a run is in flight.
func (m Model) Running() bool {
	return m.running
}

func (m *Model) setFocus(f focusField) {
	m.focus = f
	m.source.Blur()
	m.dest.Blur()
	switch f {
	case focusSource:
		m.source.Focus()
	case focusDest:
		m.dest.Focus()
	}
}

func (m *Model) appendLog(level event.Level, text string) {
	m.logLines = append(m.logLines, logLine{level: level, text: text})
	if over := len(m.logLines) - m.maxLogLines; over > 0 {
		m.logLines = append(m.logLines[:0:0], m.logLines[over:]...)
	}
	if m.showLog {
		m.refreshLog()
	}
}

func (m *Model) refreshLog() {
	atBottom := m.logView.AtBottom()
	rendered := make([]string, len(m.logLines))
	for i, l := range m.logLines {
		rendered[i] = m.styles.LogLine(l.level, l.text)
	}
	m.logView.SetContent(strings.Join(rendered, "\n"))
	if atBottom {
		m.logView.GotoBottom()
	}
}

// logText returns the drawer contents as plain text.
func (m Model) logText() string {
	var sb strings.Builder
	for _, l := range m.logLines {
		sb.WriteString(l.text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (m *Model) resetRun() {
	m.stage = event.StageScan
	m.percent = 0
	m.speed = ""
	m.eta = ""
	m.detail = ""
	m.result = nil
	m.errorMessage = ""
	m.status = ""
	m.logLines = nil
	m.logView.SetContent("")
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	inputWidth := max(width-20, 20)
	m.source.Width = inputWidth
	m.dest.Width = inputWidth
	m.progress.Width = min(max(width-16, 10), 80)
	m.help.Width = width

	m.logView.Width = max(width-4, 20)
	m.logView.Height = max(height-22, 5)
	if m.showLog {
		m.refreshLog()
	}
}
