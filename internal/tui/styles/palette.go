package styles

import "github.com/charmbracelet/lipgloss"

// ThemeName identifies a built-in palette.
type ThemeName string

const (
	ThemeDark  ThemeName = "dark"
	ThemeLight ThemeName = "light"
)

// ValidThemes returns the names accepted by GetPalette.
func ValidThemes() []string {
	return []string{string(ThemeDark), string(ThemeLight)}
}

// ColorPalette defines the color scheme for a theme.
// All colors meet WCAG AA contrast (4.5:1) against the theme's background.
type ColorPalette struct {
	// Primary accent (title, focused input, progress bar start)
	Primary lipgloss.Color
	// Secondary accent (success, progress bar end)
	Secondary lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	// Muted is used for labels, hints and help text
	Muted   lipgloss.Color
	Surface lipgloss.Color
	Text    lipgloss.Color
	Border  lipgloss.Color

	// Stage badge backgrounds
	StageIdle      lipgloss.Color
	StageScan      lipgloss.Color
	StageTransfer  lipgloss.Color
	StageFinishing lipgloss.Color
	StageDone      lipgloss.Color
	StageError     lipgloss.Color
	StageCanceled  lipgloss.Color
}

// DarkPalette is the purple/green palette for dark terminals.
func DarkPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color("#A78BFA"), // Purple (violet-400)
		Secondary: lipgloss.Color("#10B981"), // Green
		Warning:   lipgloss.Color("#F59E0B"), // Amber
		Error:     lipgloss.Color("#F87171"), // Red (red-400)
		Muted:     lipgloss.Color("#9CA3AF"), // Gray
		Surface:   lipgloss.Color("#1F2937"),
		Text:      lipgloss.Color("#F9FAFB"),
		Border:    lipgloss.Color("#6B7280"),

		StageIdle:      lipgloss.Color("#6B7280"),
		StageScan:      lipgloss.Color("#60A5FA"),
		StageTransfer:  lipgloss.Color("#A78BFA"),
		StageFinishing: lipgloss.Color("#F472B6"),
		StageDone:      lipgloss.Color("#10B981"),
		StageError:     lipgloss.Color("#F87171"),
		StageCanceled:  lipgloss.Color("#F59E0B"),
	}
}

// LightPalette is the palette for light terminals.
func LightPalette() *ColorPalette {
	return &ColorPalette{
		Primary:   lipgloss.Color("#6D28D9"), // Violet-700
		Secondary: lipgloss.Color("#047857"), // Emerald-700
		Warning:   lipgloss.Color("#B45309"), // Amber-700
		Error:     lipgloss.Color("#B91C1C"), // Red-700
		Muted:     lipgloss.Color("#4B5563"), // Gray-600
		Surface:   lipgloss.Color("#F3F4F6"),
		Text:      lipgloss.Color("#111827"),
		Border:    lipgloss.Color("#9CA3AF"),

		StageIdle:      lipgloss.Color("#4B5563"),
		StageScan:      lipgloss.Color("#1D4ED8"),
		StageTransfer:  lipgloss.Color("#6D28D9"),
		StageFinishing: lipgloss.Color("#BE185D"),
		StageDone:      lipgloss.Color("#047857"),
		StageError:     lipgloss.Color("#B91C1C"),
		StageCanceled:  lipgloss.Color("#B45309"),
	}
}

// GetPalette returns the palette for name, defaulting to the dark palette.
func GetPalette(name ThemeName) *ColorPalette {
	if name == ThemeLight {
		return LightPalette()
	}
	return DarkPalette()
}
