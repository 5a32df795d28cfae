// Package cli wires the edgewatch commands together: one-shot polls, the
// long-running serve loop, the TUI dashboard, and config management.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// configFlag is the --config persistent flag shared by all commands.
var configFlag string

var rootCmd = &cobra.Command{
	Use:   "edgewatch",
	Short: "Poll Ubiquiti EdgeRouters over SSH",
	Long: `edgewatch polls a Ubiquiti EdgeRouter (EdgeOS/Vyatta) over SSH and turns
its diagnostic command output into structured metrics: uptime, firmware
version, CPU and memory usage, per-interface throughput, and health flags
scanned from the syslog.

Snapshots can be printed once, watched live in a terminal dashboard, or
served continuously to Kafka and HTTP consumers.

Examples:
  edgewatch init
  edgewatch poll
  edgewatch watch
  edgewatch serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file (default: ./.edgewatch.yaml)")
}

// Execute runs the root command and exits non-zero on error. Errors are
// printed once here; commands return them instead of printing.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
