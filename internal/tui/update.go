package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Iron-Ham/rsyncsync/internal/errors"
	"github.com/Iron-Ham/rsyncsync/internal/event"
	"github.com/Iron-Ham/rsyncsync/internal/settings"
	"github.com/Iron-Ham/rsyncsync/internal/tui/styles"
	"github.com/Iron-Ham/rsyncsync/internal/util"
)

// Init starts listening for run events.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.waitForEvent(), textinput.Blink)
}

// waitForEvent delivers the next run event as a runEventMsg.
func (m Model) waitForEvent() tea.Cmd {
	events, ctx := m.events, m.ctx
	return func() tea.Msg {
		select {
		case ev := <-events:
			return runEventMsg{ev: ev}
		case <-ctx.Done():
			return nil
		}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case runEventMsg:
		cmd := m.handleEvent(msg.ev)
		return m, tea.Batch(cmd, m.waitForEvent())

	case runDoneMsg:
		if msg.err != nil {
			m.running = false
			m.stopping = false
			m.stage = event.StageIdle
			m.errorMessage = describeStartError(msg.err)
			m.logger.Warn("run rejected", "error", msg.err)
		}
		return m, nil

	case stopDoneMsg:
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("stop failed: %v", msg.err)
		}
		return m, nil

	case pickedMsg:
		return m.handlePicked(msg), nil

	case savedMsg:
		switch {
		case msg.err != nil:
			m.errorMessage = describePickerError(msg.err)
		case msg.path != "":
			m.status = "Log saved to " + util.FitLeft(msg.path, max(m.width-14, 20))
		}
		return m, nil

	case settingsChangedMsg:
		m.applySettings(msg.settings)
		return m, nil

	case spinner.TickMsg:
		if !m.running {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.ForceQuit) {
		return m.quit()
	}

	if m.focus != focusControls {
		return m.handleInputKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m.quit()
	case key.Matches(msg, m.keys.Next):
		m.setFocus((m.focus + 1) % focusCount)
	case key.Matches(msg, m.keys.Prev):
		m.setFocus((m.focus + focusCount - 1) % focusCount)
	case key.Matches(msg, m.keys.Start):
		return m.startRun()
	case key.Matches(msg, m.keys.Stop):
		return m.stopRun()
	case key.Matches(msg, m.keys.Delete):
		if !m.running {
			m.deleteExtra = !m.deleteExtra
		}
	case key.Matches(msg, m.keys.DryRun):
		if !m.running {
			m.dryRun = !m.dryRun
		}
	case key.Matches(msg, m.keys.Checksum):
		if !m.running {
			m.checksum = !m.checksum
		}
	case key.Matches(msg, m.keys.PickSource):
		return m, m.pickDirectory(focusSource, m.source.Value())
	case key.Matches(msg, m.keys.PickDest):
		return m, m.pickDirectory(focusDest, m.dest.Value())
	case key.Matches(msg, m.keys.ToggleLog):
		m.showLog = !m.showLog
		if m.showLog {
			m.refreshLog()
			m.logView.GotoBottom()
		}
	case key.Matches(msg, m.keys.SaveLog):
		return m, m.saveLog()
	case key.Matches(msg, m.keys.ToggleTheme):
		m.toggleTheme()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	default:
		if m.showLog {
			var cmd tea.Cmd
			m.logView, cmd = m.logView.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab:
		m.setFocus((m.focus + 1) % focusCount)
		return m, nil
	case tea.KeyShiftTab:
		m.setFocus((m.focus + focusCount - 1) % focusCount)
		return m, nil
	case tea.KeyEsc:
		m.setFocus(focusControls)
		return m, nil
	case tea.KeyEnter:
		if m.focus == focusSource {
			m.setFocus(focusDest)
		} else {
			m.setFocus(focusControls)
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == focusSource {
		m.source, cmd = m.source.Update(msg)
	} else {
		m.dest, cmd = m.dest.Update(msg)
	}
	return m, cmd
}

// handleEvent folds one run event into the model.
func (m *Model) handleEvent(ev event.Event) tea.Cmd {
	switch e := ev.(type) {
	case event.StageEvent:
		m.stage = e.Stage
		m.detail = stageDetail(e.Stage, e.Detail)

	case event.ProgressEvent:
		m.stage = e.Stage
		m.speed = e.Speed
		m.eta = e.ETA
		m.detail = progressDetail(e)
		if e.Percent > m.percent {
			m.percent = e.Percent
			if !m.settings.ReduceMotion {
				return m.progress.SetPercent(float64(m.percent) / 100)
			}
		}

	case event.LogEvent:
		m.appendLog(e.Level, e.Line)

	case event.FinishedEvent:
		m.running = false
		m.stopping = false
		m.stage = e.Stage
		m.result = &e
		m.speed, m.eta = "", ""
		m.detail = ""
		if e.Stage == event.StageDone {
			m.percent = 100
		}
		if e.Stage == event.StageError {
			m.showLog = true
			m.refreshLog()
			m.logView.GotoBottom()
		}
		if !m.settings.ReduceMotion {
			return m.progress.SetPercent(float64(m.percent) / 100)
		}
	}
	return nil
}

func (m Model) startRun() (tea.Model, tea.Cmd) {
	if m.running {
		return m, nil
	}

	opts := m.options()
	if err := opts.Validate(); err != nil {
		m.errorMessage = describeStartError(err)
		return m, nil
	}

	if s, err := m.store.Update(func(s *settings.Settings) {
		s.LastSource = opts.Source
		s.LastDest = opts.Dest
		s.DefaultDelete = opts.Delete
		s.DefaultDryRun = opts.DryRun
		s.DefaultChecksum = opts.Checksum
	}); err != nil {
		m.logger.Warn("failed to save settings", "error", err)
	} else {
		m.settings = s
	}

	m.resetRun()
	m.running = true
	m.setFocus(focusControls)
	reset := m.progress.SetPercent(0)

	runner, ctx, sink := m.runner, m.ctx, m.sink
	run := func() tea.Msg {
		return runDoneMsg{err: runner.Start(ctx, opts, sink)}
	}
	return m, tea.Batch(run, m.spinner.Tick, reset)
}

func (m Model) stopRun() (tea.Model, tea.Cmd) {
	if !m.running || m.stopping {
		return m, nil
	}
	m.stopping = true
	m.status = "Stopping…"
	return m, m.stopCmd()
}

func (m Model) stopCmd() tea.Cmd {
	runner := m.runner
	return func() tea.Msg {
		return stopDoneMsg{err: runner.Stop(context.Background())}
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if m.running && !m.stopping {
		m.stopping = true
		return m, tea.Sequence(m.stopCmd(), tea.Quit)
	}
	return m, tea.Quit
}

func (m Model) pickDirectory(field focusField, initial string) tea.Cmd {
	p, ctx := m.picker, m.ctx
	return func() tea.Msg {
		path, err := p.SelectDirectory(ctx, initial)
		return pickedMsg{field: field, path: path, err: err}
	}
}

func (m Model) handlePicked(msg pickedMsg) Model {
	if msg.err != nil {
		m.errorMessage = describePickerError(msg.err)
		return m
	}
	if msg.path == "" {
		return m
	}
	switch msg.field {
	case focusSource:
		m.source.SetValue(msg.path)
	case focusDest:
		m.dest.SetValue(msg.path)
	}
	return m
}

func (m Model) saveLog() tea.Cmd {
	if len(m.logLines) == 0 {
		return nil
	}
	p, ctx, content := m.picker, m.ctx, m.logText()
	name := "rsyncsync-" + time.Now().Format("20060102-150405") + ".log"
	return func() tea.Msg {
		path, err := p.SaveText(ctx, name, content)
		return savedMsg{path: path, err: err}
	}
}

func (m *Model) toggleTheme() {
	next := settings.ThemeDark
	if m.settings.Theme == settings.ThemeDark {
		next = settings.ThemeLight
	}
	s, err := m.store.Update(func(s *settings.Settings) { s.Theme = next })
	if err != nil {
		m.errorMessage = fmt.Sprintf("could not save theme: %v", err)
		return
	}
	m.applySettings(s)
}

func (m *Model) applySettings(s settings.Settings) {
	m.settings = s
	m.styles = styles.ForTheme(string(s.Theme))
	if m.showLog {
		m.refreshLog()
	}
}

// stageDetail is the status line shown for a stage event. rsync's internal
// counters (xfr#, to-chk=) stay in the log.
func stageDetail(stage event.Stage, raw string) string {
	switch stage {
	case event.StageScan:
		return "Scanning…"
	case event.StageTransfer:
		return "Syncing…"
	case event.StageFinishing:
		return "Finishing…"
	}
	return raw
}

func progressDetail(e event.ProgressEvent) string {
	switch {
	case e.Speed != "" && e.ETA != "":
		return fmt.Sprintf("Speed %s · Remaining %s", e.Speed, e.ETA)
	case e.Speed != "":
		return "Speed " + e.Speed
	case e.ETA != "":
		return "Remaining " + e.ETA
	default:
		return "Syncing…"
	}
}

func describeStartError(err error) string {
	var vErr *errors.ValidationError
	switch {
	case errors.As(err, &vErr) && vErr.Field == "source":
		return "Choose a source folder first."
	case errors.As(err, &vErr) && vErr.Field == "dest":
		return "Choose a destination folder first."
	case errors.Is(err, errors.ErrRunActive):
		return "A sync is already running."
	case errors.Is(err, errors.ErrExecutableNotFound):
		return "rsync was not found. " + err.Error()
	default:
		return err.Error()
	}
}

func describePickerError(err error) string {
	if errors.Is(err, errors.ErrUnsupported) {
		return "No file dialog is available on this system; type the path instead."
	}
	return err.Error()
}
