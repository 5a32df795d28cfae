package watch

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/rileyhilliard/edgewatch/internal/config"
)

// sparklineBlocks are the 8 vertical levels, lowest to highest.
var sparklineBlocks = []rune("▁▂▃▄▅▆▇█")

// renderSparkline maps samples onto block characters, scaled to the data's
// own min/max range, colored by the newest value's severity.
func renderSparkline(data []float64, width int, t config.Threshold) string {
	plain := plainSparkline(data, width)
	if plain == "" {
		return ""
	}
	color := thresholdColor(data[len(data)-1], t)
	return lipgloss.NewStyle().Foreground(color).Render(plain)
}

// renderRateSparkline is the uncolored variant for throughput graphs, where
// percentage thresholds don't apply.
func renderRateSparkline(data []float64, width int) string {
	plain := plainSparkline(data, width)
	if plain == "" {
		return ""
	}
	return lipgloss.NewStyle().Foreground(ColorGraph).Render(plain)
}

func plainSparkline(data []float64, width int) string {
	if len(data) == 0 || width <= 0 {
		return ""
	}
	if len(data) > width {
		data = data[len(data)-width:]
	}

	minVal, maxVal := data[0], data[0]
	for _, v := range data {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}

	var sb strings.Builder
	sb.Grow(len(data) * 4)

	levels := len(sparklineBlocks)
	span := maxVal - minVal
	for _, v := range data {
		level := levels / 2
		if span > 0 {
			level = int((v - minVal) / span * float64(levels-1))
			if level < 0 {
				level = 0
			} else if level >= levels {
				level = levels - 1
			}
		}
		sb.WriteRune(sparklineBlocks[level])
	}
	return sb.String()
}
