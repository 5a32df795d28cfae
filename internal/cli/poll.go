package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/edgewatch/internal/poller"
	"github.com/rileyhilliard/edgewatch/internal/publish"
)

var pollJSON bool

// pollCmd runs a single poll cycle and prints the snapshot.
var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Run one poll cycle and print the snapshot",
	Long: `Connect to the configured device, run the diagnostic command batch once,
and print the resulting snapshot.

Note: CPU usage and interface rates are computed from deltas between two
cycles, so a one-shot poll reports them as unavailable. Use 'watch' or
'serve' for rate metrics.

Examples:
  edgewatch poll
  edgewatch poll --json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		coord := newCoordinator(cfg)
		defer coord.Shutdown()

		snap, err := coord.Poll(context.Background())
		if err != nil {
			return err
		}

		if pollJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(snap)
		}

		printSnapshot(snap)
		return nil
	},
}

func init() {
	pollCmd.Flags().BoolVar(&pollJSON, "json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(pollCmd)
}

// printSnapshot renders a snapshot for humans. Missing fields print as "-"
// rather than zero so degraded cycles are visible.
func printSnapshot(snap *poller.DeviceSnapshot) {
	fmt.Printf("%s  (%s)\n", snap.Device, availability(snap))
	fmt.Printf("  firmware: %s\n", strOr(snap.Firmware))
	if snap.UptimeSeconds != nil {
		fmt.Printf("  uptime:   %ds\n", *snap.UptimeSeconds)
	} else {
		fmt.Printf("  uptime:   -\n")
	}
	fmt.Printf("  cpu:      %s\n", pctOr(snap.CPUPercent))
	fmt.Printf("  memory:   %s\n", pctOr(snap.MemPercent))

	if len(snap.Interfaces) > 0 {
		fmt.Println("  interfaces:")
		names := make([]string, 0, len(snap.Interfaces))
		for name := range snap.Interfaces {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			st := snap.Interfaces[name]
			if st.Stale {
				fmt.Printf("    %-10s stale\n", name)
				continue
			}
			fmt.Printf("    %-10s rx %s  tx %s\n", name, rateOr(st.RxRate), rateOr(st.TxRate))
		}
	}

	if len(snap.HealthFlags) > 0 {
		fmt.Println("  health flags:")
		for _, f := range snap.HealthFlags {
			fmt.Printf("    ⚠ %s\n", f)
		}
	}
}

func availability(snap *poller.DeviceSnapshot) string {
	if snap.Available {
		return "available"
	}
	return "unavailable"
}

func strOr(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}

func pctOr(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", *v)
}

func rateOr(v *float64) string {
	if v == nil {
		return "-"
	}
	return publish.FormatRate(*v)
}
