package poller

import (
	"sort"
	"time"
)

// InterfaceStats holds one interface's counters and derived throughput for a
// poll cycle. Rates are nil (not zero) until two usable samples exist, so
// consumers can tell "no data yet" from "idle link".
type InterfaceStats struct {
	RxBytes int64 `json:"rx_bytes"`
	TxBytes int64 `json:"tx_bytes"`

	// RxRate/TxRate are bytes per second since the previous poll. Nil on
	// the first poll and after a counter reset.
	RxRate *float64 `json:"rx_rate,omitempty"`
	TxRate *float64 `json:"tx_rate,omitempty"`

	// Stale marks an interface that was absent from the latest cycle
	// (link flapped out of /proc/net/dev). Its counters are the last seen
	// values and must not be treated as current.
	Stale bool `json:"stale,omitempty"`
}

// DeviceSnapshot is the immutable result of one poll cycle. A new snapshot
// supersedes the previous one; nothing mutates a snapshot after Poll returns
// it. Nil pointer fields mean "unavailable this cycle", never zero.
type DeviceSnapshot struct {
	// ID uniquely identifies this poll cycle in published messages.
	ID string `json:"id"`

	// Device is the friendly device name from config.
	Device string `json:"device"`

	Timestamp time.Time `json:"timestamp"`

	// Available is false once connection failures cross the configured
	// threshold. While false, metric fields hold last-known-good values
	// from the retained snapshot or are nil.
	Available bool `json:"available"`

	UptimeSeconds *int64  `json:"uptime_seconds,omitempty"`
	UptimeRaw     *string `json:"uptime_raw,omitempty"`
	Firmware      *string `json:"firmware,omitempty"`
	CPUPercent    *float64 `json:"cpu_percent,omitempty"`
	MemPercent    *float64 `json:"mem_percent,omitempty"`

	Interfaces map[string]InterfaceStats `json:"interfaces,omitempty"`

	// TotalRxRate/TotalTxRate aggregate non-loopback interface rates.
	TotalRxRate *float64 `json:"total_rx_rate,omitempty"`
	TotalTxRate *float64 `json:"total_tx_rate,omitempty"`

	// HealthFlags lists raised flag names, sorted for stable output.
	HealthFlags []string `json:"health_flags,omitempty"`

	// LogErrorCount is the number of signature-matching log lines in this
	// cycle's window. Nil when the log tail command failed.
	LogErrorCount *int `json:"log_error_count,omitempty"`
}

// HasFlag reports whether the named health flag was raised this cycle.
func (s *DeviceSnapshot) HasFlag(flag string) bool {
	for _, f := range s.HealthFlags {
		if f == flag {
			return true
		}
	}
	return false
}

// sortedFlags converts a flag set into the snapshot's sorted slice form.
func sortedFlags(flags map[string]bool) []string {
	if len(flags) == 0 {
		return nil
	}
	out := make([]string, 0, len(flags))
	for f := range flags {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func ptr[T any](v T) *T {
	return &v
}
