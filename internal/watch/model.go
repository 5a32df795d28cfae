// Package watch renders a live terminal dashboard for a single device:
// CPU/memory sparklines, per-interface throughput, uptime, and health flags,
// refreshed every poll interval.
package watch

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/edgewatch/internal/config"
	"github.com/rileyhilliard/edgewatch/internal/errors"
	"github.com/rileyhilliard/edgewatch/internal/poller"
)

// SnapshotPoller is the slice of the coordinator the dashboard drives.
type SnapshotPoller interface {
	Poll(ctx context.Context) (*poller.DeviceSnapshot, error)
	Last() *poller.DeviceSnapshot
}

// DeviceStatus is the dashboard's view of device reachability.
type DeviceStatus int

const (
	StatusConnecting DeviceStatus = iota
	StatusOnlineState
	StatusOfflineState
	StatusAuthFailedState
)

// String returns a human-readable status label.
func (s DeviceStatus) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusOnlineState:
		return "online"
	case StatusOfflineState:
		return "offline"
	case StatusAuthFailedState:
		return "auth failed"
	default:
		return "unknown"
	}
}

// Model is the Bubble Tea model for the watch dashboard.
type Model struct {
	device     string
	coord      SnapshotPoller
	history    *History
	thresholds config.Thresholds
	interval   time.Duration

	snapshot   *poller.DeviceSnapshot
	status     DeviceStatus
	lastError  string
	lastUpdate time.Time

	spin     spinner.Model
	width    int
	height   int
	quitting bool
	polling  bool
}

// tickMsg signals the next refresh interval.
type tickMsg time.Time

// snapshotMsg carries the result of one poll cycle.
type snapshotMsg struct {
	snap *poller.DeviceSnapshot
	err  error
	at   time.Time
}

// NewModel creates a dashboard model. interval is the refresh period and
// matches the coordinator's poll interval.
func NewModel(device string, coord SnapshotPoller, cfg config.WatchConfig, interval time.Duration) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(ColorAccent)

	return Model{
		device:     device,
		coord:      coord,
		history:    NewHistory(cfg.HistorySize),
		thresholds: cfg.Thresholds,
		interval:   interval,
		status:     StatusConnecting,
		spin:       sp,
	}
}

// Init starts the spinner and triggers the first poll immediately.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.pollCmd())
}

// Update handles messages and advances the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "r":
			if !m.polling {
				return m, m.pollCmd()
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		if m.polling {
			// Cycle still running; skip this tick, never stack polls.
			return m, m.tickCmd()
		}
		return m, m.pollCmd()

	case snapshotMsg:
		m.polling = false
		m.applyResult(msg)
		return m, m.tickCmd()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

// applyResult folds one poll result into the dashboard state.
func (m *Model) applyResult(msg snapshotMsg) {
	m.lastUpdate = msg.at

	if msg.snap != nil {
		m.snapshot = msg.snap
		m.history.Push(msg.snap)
	}

	switch {
	case msg.err == nil && msg.snap == nil:
		// Nothing produced yet (first cycle owned by another caller).
	case msg.err == nil:
		m.status = StatusOnlineState
		m.lastError = ""
	case errors.IsAuth(msg.err):
		m.status = StatusAuthFailedState
		m.lastError = msg.err.Error()
	default:
		if msg.snap != nil && msg.snap.Available {
			// Transient failure, still serving last-known-good data.
			m.status = StatusOnlineState
		} else {
			m.status = StatusOfflineState
		}
		m.lastError = msg.err.Error()
	}
}

// View renders the dashboard.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.render()
}

// tickCmd schedules the next refresh.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// pollCmd runs one poll cycle off the UI goroutine.
func (m *Model) pollCmd() tea.Cmd {
	m.polling = true
	coord := m.coord
	return func() tea.Msg {
		snap, err := coord.Poll(context.Background())
		if err == poller.ErrPollInFlight || err == poller.ErrBackoff {
			// Nothing new this tick; keep showing the retained snapshot.
			err = nil
		}
		return snapshotMsg{snap: snap, err: err, at: time.Now()}
	}
}
