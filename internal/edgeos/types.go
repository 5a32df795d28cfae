package edgeos

// MemoryStats holds the /proc/meminfo fields needed for a usage percentage.
// Values are in kB as reported by the kernel.
type MemoryStats struct {
	TotalKB     int64
	FreeKB      int64
	AvailableKB int64 // 0 on kernels predating MemAvailable
	BuffersKB   int64
	CachedKB    int64
}

// UsedPercent computes memory usage. MemAvailable is preferred; older
// kernels fall back to free+buffers+cached.
func (m MemoryStats) UsedPercent() float64 {
	if m.TotalKB == 0 {
		return 0
	}
	var used int64
	if m.AvailableKB > 0 {
		used = m.TotalKB - m.AvailableKB
	} else {
		used = m.TotalKB - (m.FreeKB + m.BuffersKB + m.CachedKB)
	}
	return float64(used) / float64(m.TotalKB) * 100
}

// CPUSample is one reading of the aggregate cpu line from /proc/stat.
// Usage is computed from the delta between two samples.
type CPUSample struct {
	Total int64 // sum of all jiffy fields
	Idle  int64
}

// UsageSince computes the CPU usage percentage between a previous sample and
// this one. Returns (0, false) when the delta is unusable: first sample,
// counter reset, or no elapsed jiffies.
func (c CPUSample) UsageSince(prev CPUSample) (float64, bool) {
	totalDelta := c.Total - prev.Total
	idleDelta := c.Idle - prev.Idle
	if prev.Total == 0 || totalDelta <= 0 || idleDelta < 0 {
		return 0, false
	}
	return float64(totalDelta-idleDelta) / float64(totalDelta) * 100, true
}

// InterfaceCounters holds cumulative byte counters for one interface from
// /proc/net/dev.
type InterfaceCounters struct {
	RxBytes int64
	TxBytes int64
}

// ImageInfo is the parsed result of `show system image`.
type ImageInfo struct {
	// Running is the currently booted image version, e.g. "v2.0.9-hotfix.7".
	Running string

	// DefaultBoot is the image marked as default boot, when reported.
	DefaultBoot string

	// Installed lists all image versions found in the output.
	Installed []string
}

// Health flag names. A flag is present for a poll cycle when the syslog tail
// window contains a line matching its signature; flags are not accumulated
// across polls.
const (
	FlagDHCPConflict   = "dhcp_conflict"
	FlagKernelWarning  = "kernel_warning"
	FlagSSHAuthFailure = "ssh_auth_failure"
)

// HealthReport summarises health-flag detection over one log window.
type HealthReport struct {
	// Flags is the set of flag names with at least one signature match.
	Flags map[string]bool

	// ErrorCount is the total number of matching lines across all
	// signatures, exposed as its own sensor.
	ErrorCount int
}

// Has reports whether the named flag was raised.
func (h HealthReport) Has(flag string) bool {
	return h.Flags[flag]
}
