package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/rsyncsync/internal/event"
	"github.com/Iron-Ham/rsyncsync/internal/util"
)

// View renders the whole screen.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	sections := []string{
		m.renderHeader(),
		m.renderForm(),
		m.renderProgress(),
	}
	if banner := m.renderResult(); banner != "" {
		sections = append(sections, banner)
	}
	if m.errorMessage != "" {
		sections = append(sections, m.styles.ErrorText.Render("✗ "+m.errorMessage))
	} else if m.status != "" {
		sections = append(sections, m.styles.Hint.Render(m.status))
	}
	if m.showLog {
		sections = append(sections, m.renderLog())
	}
	sections = append(sections, m.styles.Help.Render(m.help.View(m.keys)))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	title := m.styles.Title.Render("rsyncsync")
	badge := m.styles.StageBadge(m.stage)
	gap := max(m.width-lipgloss.Width(title)-lipgloss.Width(badge), 2)
	return title + strings.Repeat(" ", gap) + badge + "\n"
}

func (m Model) renderForm() string {
	field := func(label string, f focusField, view string) string {
		box := m.styles.InputBlurred
		if m.focus == f {
			box = m.styles.InputFocused
		}
		return lipgloss.JoinHorizontal(lipgloss.Center, m.styles.Label.Render(label), box.Render(view))
	}

	toggle := func(on bool, name, keyHint string) string {
		mark, style := "[ ]", m.styles.ToggleOff
		if on {
			mark, style = "[x]", m.styles.ToggleOn
		}
		return style.Render(mark+" "+name) + m.styles.Hint.Render(" ("+keyHint+")")
	}

	options := strings.Join([]string{
		toggle(m.deleteExtra, "delete extraneous", "d"),
		toggle(m.dryRun, "dry run", "n"),
		toggle(m.checksum, "checksum", "c"),
	}, "   ")

	return lipgloss.JoinVertical(lipgloss.Left,
		field("Source", focusSource, m.source.View()),
		field("Dest", focusDest, m.dest.View()),
		m.styles.Label.Render("Options")+options,
		"",
	)
}

func (m Model) renderProgress() string {
	if m.stage == event.StageIdle && m.result == nil {
		return m.styles.Hint.Render("Fill in both folders, then press s to start.") + "\n"
	}

	bar := m.progress.View()
	if m.settings.ReduceMotion {
		bar = m.progress.ViewAs(float64(m.percent) / 100)
	}

	line := m.detail
	if m.width > 0 {
		line = util.Fit(line, m.width-2)
	}
	if m.running {
		line = m.spinner.View() + " " + line
	}
	return lipgloss.JoinVertical(lipgloss.Left, line, bar, "")
}

func (m Model) renderResult() string {
	if m.result == nil {
		return ""
	}
	r := m.result

	var title string
	style := m.styles.Neutral
	switch {
	case r.Stage == event.StageDone && r.DryRun:
		title = "Dry run complete. No files were changed."
	case r.Stage == event.StageDone:
		title = "✓ Sync complete"
		style = m.styles.Success
	case r.Stage == event.StageCanceled:
		title = "Sync canceled"
	default:
		title = fmt.Sprintf("✗ Sync failed (exit code %d). See the log below.", r.ExitCode)
		style = m.styles.Failure
	}

	lines := []string{title}
	for _, f := range r.Summary.Fields() {
		lines = append(lines, m.styles.Hint.Render(f.Label+": ")+m.styles.Value.Render(f.Value))
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (m Model) renderLog() string {
	header := m.styles.Hint.Render(fmt.Sprintf("Log (%d lines)", len(m.logLines)))
	return lipgloss.JoinVertical(lipgloss.Left, header, m.styles.LogBox.Render(m.logView.View()))
}
