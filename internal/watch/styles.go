package watch

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/edgewatch/internal/config"
)

// Dashboard color palette.
const (
	ColorBorder   = lipgloss.Color("#2A2A4A")
	ColorHealthy  = lipgloss.Color("#39FF14")
	ColorWarning  = lipgloss.Color("#FFAA00")
	ColorCritical = lipgloss.Color("#FF0055")

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent = lipgloss.Color("#FF2E97")
	ColorGraph  = lipgloss.Color("#00FFFF")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Bold(true).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	CardStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	StatusOnlineStyle  = lipgloss.NewStyle().Foreground(ColorHealthy)
	StatusStaleStyle   = lipgloss.NewStyle().Foreground(ColorWarning)
	StatusOfflineStyle = lipgloss.NewStyle().Foreground(ColorCritical)

	FlagStyle = lipgloss.NewStyle().
			Foreground(ColorCritical).
			Bold(true)
)

// Status indicator glyphs.
const (
	StatusOnline  = "◉"
	StatusStale   = "◔"
	StatusOffline = "◌"
)

// thresholdColor maps a percentage to its severity color using the
// configured warning/critical levels.
func thresholdColor(percent float64, t config.Threshold) lipgloss.Color {
	switch {
	case percent >= float64(t.Critical):
		return ColorCritical
	case percent >= float64(t.Warning):
		return ColorWarning
	default:
		return ColorHealthy
	}
}
