package watch

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/edgewatch/internal/config"
	"github.com/rileyhilliard/edgewatch/internal/edgeos"
	"github.com/rileyhilliard/edgewatch/internal/poller"
	"github.com/rileyhilliard/edgewatch/internal/publish"
)

const (
	defaultWidth   = 80
	sparklineWidth = 40
)

// render assembles the full dashboard frame.
func (m Model) render() string {
	width := m.width
	if width <= 0 {
		width = defaultWidth
	}

	var sections []string
	sections = append(sections, m.renderHeader(width))

	if m.snapshot == nil {
		sections = append(sections, m.renderWaiting())
	} else {
		sections = append(sections, m.renderMetrics())
		sections = append(sections, m.renderInterfaces())
		if flags := m.renderFlags(); flags != "" {
			sections = append(sections, flags)
		}
	}

	sections = append(sections, m.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// renderHeader shows the device name, status glyph, and firmware/uptime line.
func (m Model) renderHeader(width int) string {
	var glyph, label string
	switch m.status {
	case StatusOnlineState:
		glyph = StatusOnlineStyle.Render(StatusOnline)
		label = m.status.String()
	case StatusConnecting:
		glyph = m.spin.View()
		label = m.status.String()
	case StatusAuthFailedState:
		glyph = StatusOfflineStyle.Render(StatusOffline)
		label = m.status.String()
	default:
		glyph = StatusOfflineStyle.Render(StatusOffline)
		label = m.status.String()
	}

	title := fmt.Sprintf("%s %s %s", glyph, m.device, LabelStyle.Render("("+label+")"))

	var meta []string
	if s := m.snapshot; s != nil {
		if s.Firmware != nil {
			meta = append(meta, "fw "+*s.Firmware)
		}
		if s.UptimeSeconds != nil {
			meta = append(meta, "up "+formatUptime(*s.UptimeSeconds))
		}
	}
	if !m.lastUpdate.IsZero() {
		meta = append(meta, "updated "+m.lastUpdate.Format("15:04:05"))
	}

	line := HeaderStyle.Render(title)
	if len(meta) > 0 {
		line += "  " + LabelStyle.Render(strings.Join(meta, " · "))
	}
	return lipgloss.NewStyle().Width(width).Render(line)
}

// renderWaiting fills the body before the first snapshot arrives.
func (m Model) renderWaiting() string {
	if m.lastError != "" {
		return CardStyle.Render(StatusOfflineStyle.Render(m.lastError))
	}
	return CardStyle.Render(LabelStyle.Render("waiting for first poll..."))
}

// renderMetrics draws the CPU and memory gauge rows with sparklines.
func (m Model) renderMetrics() string {
	rows := []string{
		m.gaugeRow("CPU", m.snapshot.CPUPercent, m.history.CPU(sparklineWidth), m.thresholds.CPU),
		m.gaugeRow("RAM", m.snapshot.MemPercent, m.history.Mem(sparklineWidth), m.thresholds.RAM),
	}
	return CardStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) gaugeRow(label string, current *float64, history []float64, t config.Threshold) string {
	value := "  -  "
	if current != nil {
		value = fmt.Sprintf("%5.1f%%", *current)
		value = lipgloss.NewStyle().Foreground(thresholdColor(*current, t)).Render(value)
	} else {
		value = LabelStyle.Render(value)
	}
	spark := renderSparkline(history, sparklineWidth, t)
	return fmt.Sprintf("%s %s %s", LabelStyle.Render(fmt.Sprintf("%-4s", label)), value, spark)
}

// renderInterfaces draws one throughput row per interface, stale ones last.
func (m Model) renderInterfaces() string {
	names := make([]string, 0, len(m.snapshot.Interfaces))
	for name := range m.snapshot.Interfaces {
		if edgeos.IsLoopback(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		si := m.snapshot.Interfaces[names[i]].Stale
		sj := m.snapshot.Interfaces[names[j]].Stale
		if si != sj {
			return !si
		}
		return names[i] < names[j]
	})

	if len(names) == 0 {
		return CardStyle.Render(LabelStyle.Render("no interfaces"))
	}

	var rows []string
	for _, name := range names {
		rows = append(rows, m.interfaceRow(name, m.snapshot.Interfaces[name]))
	}

	// Snapshot totals already drop stale and loopback interfaces.
	if s := m.snapshot; s.TotalRxRate != nil || s.TotalTxRate != nil {
		var rx, tx float64
		if s.TotalRxRate != nil {
			rx = *s.TotalRxRate
		}
		if s.TotalTxRate != nil {
			tx = *s.TotalTxRate
		}
		rows = append(rows, LabelStyle.Render(fmt.Sprintf("%-8s ↓ %-12s ↑ %s",
			"total", publish.FormatRate(rx), publish.FormatRate(tx))))
	}

	return CardStyle.Render(strings.Join(rows, "\n"))
}

func (m Model) interfaceRow(name string, st poller.InterfaceStats) string {
	label := ValueStyle.Render(fmt.Sprintf("%-8s", name))
	if st.Stale {
		return fmt.Sprintf("%s %s", label, StatusStaleStyle.Render("stale"))
	}

	rx, tx := "-", "-"
	if st.RxRate != nil {
		rx = publish.FormatRate(*st.RxRate)
	}
	if st.TxRate != nil {
		tx = publish.FormatRate(*st.TxRate)
	}

	rxHist, _ := m.history.Rates(name, sparklineWidth/2)
	spark := renderRateSparkline(rxHist, sparklineWidth/2)

	return fmt.Sprintf("%s ↓ %-12s ↑ %-12s %s", label, rx, tx, spark)
}

// renderFlags lists raised health flags; hidden when the device is clean.
func (m Model) renderFlags() string {
	s := m.snapshot
	if len(s.HealthFlags) == 0 {
		return ""
	}
	parts := make([]string, len(s.HealthFlags))
	for i, f := range s.HealthFlags {
		parts[i] = FlagStyle.Render("⚠ " + f)
	}
	line := strings.Join(parts, "  ")
	if s.LogErrorCount != nil {
		line += "  " + LabelStyle.Render(fmt.Sprintf("(%d log hits)", *s.LogErrorCount))
	}
	return CardStyle.Render(line)
}

// renderFooter shows keybindings and the last error, if any.
func (m Model) renderFooter() string {
	help := "q quit · r refresh"
	if m.lastError != "" {
		help += "  " + StatusOfflineStyle.Render(m.lastError)
	}
	return FooterStyle.Render(help)
}

// formatUptime renders seconds as "3d 4h" style text.
func formatUptime(seconds int64) string {
	d := time.Duration(seconds) * time.Second
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	mins := int(d.Minutes()) % 60
	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, mins)
	default:
		return fmt.Sprintf("%dm", mins)
	}
}
