package watch

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/rileyhilliard/edgewatch/internal/config"
	"github.com/rileyhilliard/edgewatch/internal/errors"
)

// Run starts the dashboard in the alternate screen and blocks until the user
// quits. The coordinator keeps its own state; quitting the dashboard does not
// shut it down.
func Run(device string, coord SnapshotPoller, cfg config.WatchConfig, interval time.Duration) error {
	// Respect the terminal's actual color capabilities instead of assuming
	// truecolor over whatever SSH hop the operator is on.
	lipgloss.SetColorProfile(termenv.ColorProfile())

	p := tea.NewProgram(NewModel(device, coord, cfg, interval), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			"Dashboard terminated unexpectedly",
			"Check terminal compatibility; try a plain 'edgewatch poll'")
	}
	return nil
}
