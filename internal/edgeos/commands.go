// Package edgeos knows how to talk to Ubiquiti EdgeOS (Vyatta) devices:
// which diagnostic commands to run and how to parse their semi-structured
// text output into typed values.
//
// The command set is the de facto protocol between edgewatch and the router.
// The exact strings must match the firmware's CLI; output formats vary across
// firmware versions, so parsers detect the format rather than assume one
// grammar.
package edgeos

import (
	"fmt"

	"github.com/rileyhilliard/edgewatch/pkg/sshutil"
)

// Command names used as batch keys and parser selectors.
const (
	CmdUptime  = "uptime"
	CmdVersion = "version"
	CmdMemInfo = "meminfo"
	CmdCPUStat = "cpustat"
	CmdNetDev  = "netdev"
	CmdLogTail = "logtail"
)

// vyatta op-mode wrapper locations, tried in order. Older firmware needs the
// vbash indirection.
const (
	opWrapper      = "/opt/vyatta/bin/vyatta-op-cmd-wrapper"
	opWrapperVbash = "vbash -c '/opt/vyatta/bin/vyatta-op-cmd-wrapper show system image'"
)

// DefaultLogLines is how many syslog lines the health-flag scan covers when
// the config doesn't say otherwise.
const DefaultLogLines = 50

// CommandSet returns the fixed poll batch, in execution order.
// logLines bounds the syslog tail window; values < 1 fall back to the default.
func CommandSet(logLines int) []sshutil.Command {
	if logLines < 1 {
		logLines = DefaultLogLines
	}
	return []sshutil.Command{
		{Name: CmdUptime, Line: "uptime"},
		{Name: CmdVersion, Line: versionCommand()},
		{Name: CmdMemInfo, Line: "cat /proc/meminfo"},
		{Name: CmdCPUStat, Line: "cat /proc/stat"},
		{Name: CmdNetDev, Line: "cat /proc/net/dev"},
		{Name: CmdLogTail, Line: fmt.Sprintf("tail -n %d /var/log/messages", logLines)},
	}
}

// versionCommand builds the firmware-image query with wrapper fallback.
// The direct wrapper path works on current EdgeOS; the vbash form covers
// firmware where the wrapper only resolves inside a vyatta shell.
func versionCommand() string {
	return fmt.Sprintf("%s show system image 2>/dev/null || %s 2>/dev/null", opWrapper, opWrapperVbash)
}
