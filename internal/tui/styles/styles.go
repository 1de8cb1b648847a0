// Package styles holds the lipgloss styles of the TUI for each theme.
package styles

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/rsyncsync/internal/event"
)

// Styles is the full set of styles for one palette.
type Styles struct {
	Palette *ColorPalette

	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Label    lipgloss.Style
	Hint     lipgloss.Style
	Value    lipgloss.Style

	InputFocused lipgloss.Style
	InputBlurred lipgloss.Style

	ToggleOn  lipgloss.Style
	ToggleOff lipgloss.Style

	Badge lipgloss.Style

	Success lipgloss.Style
	Neutral lipgloss.Style
	Failure lipgloss.Style

	LogBox   lipgloss.Style
	LogInfo  lipgloss.Style
	LogWarn  lipgloss.Style
	LogError lipgloss.Style

	ErrorText lipgloss.Style
	Help      lipgloss.Style
}

// New builds the styles for a palette.
func New(p *ColorPalette) *Styles {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		Padding(0, 1)

	return &Styles{
		Palette: p,

		Title:    lipgloss.NewStyle().Bold(true).Foreground(p.Primary),
		Subtitle: lipgloss.NewStyle().Foreground(p.Muted).Italic(true),
		Label:    lipgloss.NewStyle().Foreground(p.Muted).Width(9),
		Hint:     lipgloss.NewStyle().Foreground(p.Muted),
		Value:    lipgloss.NewStyle().Foreground(p.Text),

		InputFocused: box.BorderForeground(p.Primary),
		InputBlurred: box.BorderForeground(p.Border),

		ToggleOn:  lipgloss.NewStyle().Bold(true).Foreground(p.Secondary),
		ToggleOff: lipgloss.NewStyle().Foreground(p.Muted),

		Badge: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Padding(0, 1),

		Success: box.BorderForeground(p.Secondary).Foreground(p.Secondary).Bold(true),
		Neutral: box.BorderForeground(p.Border).Foreground(p.Text),
		Failure: box.BorderForeground(p.Error).Foreground(p.Error).Bold(true),

		LogBox:   box.BorderForeground(p.Border),
		LogInfo:  lipgloss.NewStyle().Foreground(p.Text),
		LogWarn:  lipgloss.NewStyle().Foreground(p.Warning),
		LogError: lipgloss.NewStyle().Foreground(p.Error),

		ErrorText: lipgloss.NewStyle().Foreground(p.Error),
		Help:      lipgloss.NewStyle().Foreground(p.Muted),
	}
}

// ForTheme returns the styles for a theme name.
func ForTheme(name string) *Styles {
	return New(GetPalette(ThemeName(name)))
}

// StageColor returns the badge color for a stage.
func (s *Styles) StageColor(stage event.Stage) lipgloss.Color {
	p := s.Palette
	switch stage {
	case event.StageScan:
		return p.StageScan
	case event.StageTransfer:
		return p.StageTransfer
	case event.StageFinishing:
		return p.StageFinishing
	case event.StageDone:
		return p.StageDone
	case event.StageError:
		return p.StageError
	case event.StageCanceled:
		return p.StageCanceled
	default:
		return p.StageIdle
	}
}

// StageBadge renders the stage as a colored badge.
func (s *Styles) StageBadge(stage event.Stage) string {
	return s.Badge.Background(s.StageColor(stage)).Render(StageLabel(stage))
}

// StageLabel is the human-readable name of a stage.
func StageLabel(stage event.Stage) string {
	switch stage {
	case event.StageScan:
		return "SCANNING"
	case event.StageTransfer:
		return "SYNCING"
	case event.StageFinishing:
		return "FINISHING"
	case event.StageDone:
		return "DONE"
	case event.StageError:
		return "FAILED"
	case event.StageCanceled:
		return "CANCELED"
	default:
		return "READY"
	}
}

// LogLine styles one log line by level.
func (s *Styles) LogLine(level event.Level, line string) string {
	switch level {
	case event.LevelWarn:
		return s.LogWarn.Render(line)
	case event.LevelError:
		return s.LogError.Render(line)
	default:
		return s.LogInfo.Render(line)
	}
}
