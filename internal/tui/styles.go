package tui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/tinytelemetry/vwatch/internal/model"
)

var (
	ColorNavy   = lipgloss.Color("#1E2A47")
	ColorBlue   = lipgloss.Color("#3B82F6")
	ColorGreen  = lipgloss.Color("#22C55E")
	ColorYellow = lipgloss.Color("#EAB308")
	ColorRed    = lipgloss.Color("#EF4444")
	ColorGray   = lipgloss.Color("#6B7280")
	ColorWhite  = lipgloss.Color("#F9FAFB")
	ColorInk    = lipgloss.Color("#111827")
)

// palette is the set of styles a page renders with. It follows the user's
// theme setting.
type palette struct {
	theme   model.Theme
	text    lipgloss.Style
	muted   lipgloss.Style
	title   lipgloss.Style
	err     lipgloss.Style
	bar     lipgloss.Style
	section lipgloss.Style
	active  lipgloss.Style
	card    lipgloss.Style
}

func newPalette(theme model.Theme) palette {
	fg, barBg := ColorWhite, ColorNavy
	if theme == model.ThemeLight {
		fg, barBg = ColorInk, lipgloss.Color("#E5E7EB")
	}
	section := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorGray).
		Padding(0, 1)
	return palette{
		theme:   theme,
		text:    lipgloss.NewStyle().Foreground(fg),
		muted:   lipgloss.NewStyle().Foreground(ColorGray),
		title:   lipgloss.NewStyle().Foreground(ColorBlue).Bold(true),
		err:     lipgloss.NewStyle().Foreground(ColorRed),
		bar:     lipgloss.NewStyle().Background(barBg).Foreground(fg),
		section: section,
		active:  section.BorderForeground(ColorBlue),
		card:    section.Width(22),
	}
}

// statusColor maps a deployment state to its badge color.
func statusColor(s model.ProjectStatus) lipgloss.Color {
	switch s {
	case model.StatusReady:
		return ColorGreen
	case model.StatusBuilding:
		return ColorYellow
	case model.StatusError:
		return ColorRed
	default:
		return ColorGray
	}
}

// healthColor grades a 0-100 health score.
func healthColor(score int) lipgloss.Color {
	switch {
	case score >= 90:
		return ColorGreen
	case score >= 70:
		return ColorYellow
	default:
		return ColorRed
	}
}

// renderBranding renders "vwatch" with a green to light blue gradient.
func renderBranding(base lipgloss.Style) string {
	colors := []string{"#49E209", "#35DD2F", "#21D955", "#0DD47B", "#00D0A1", "#00CAC7"}
	var out string
	for i, ch := range "vwatch" {
		out += base.
			Foreground(lipgloss.Color(colors[i])).
			Bold(true).
			Render(string(ch))
	}
	return out
}
