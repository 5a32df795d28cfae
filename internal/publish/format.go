package publish

import (
	"fmt"
	"time"
)

// fmtPct renders an optional percentage for log lines; "-" means the field
// was unavailable this cycle.
func fmtPct(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v)
}

// fmtSeconds renders an optional uptime as a duration.
func fmtSeconds(v *int64) string {
	if v == nil {
		return "-"
	}
	return (time.Duration(*v) * time.Second).String()
}

// FormatRate renders a byte rate with a binary-prefix unit, for human output.
func FormatRate(bytesPerSec float64) string {
	switch {
	case bytesPerSec >= 1<<20:
		return fmt.Sprintf("%.1f MiB/s", bytesPerSec/(1<<20))
	case bytesPerSec >= 1<<10:
		return fmt.Sprintf("%.1f KiB/s", bytesPerSec/(1<<10))
	default:
		return fmt.Sprintf("%.0f B/s", bytesPerSec)
	}
}
