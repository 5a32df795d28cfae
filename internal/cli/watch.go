package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/edgewatch/internal/errors"
	"github.com/rileyhilliard/edgewatch/internal/watch"
)

var watchIntervalFlag string

// watchCmd starts the TUI dashboard.
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live terminal dashboard for the device",
	Long: `Start an interactive dashboard showing live metrics for the configured
device: CPU and memory sparklines, per-interface throughput, uptime,
firmware version, and health flags.

Keyboard shortcuts:
  q / Ctrl+C  Quit
  r           Force refresh

Examples:
  edgewatch watch
  edgewatch watch --interval 5s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		interval := cfg.Poll.Interval
		if watchIntervalFlag != "" {
			parsed, err := time.ParseDuration(watchIntervalFlag)
			if err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					"Invalid interval: "+watchIntervalFlag,
					"Use a valid duration like 5s, 30s, or 1m")
			}
			if parsed < time.Second {
				return errors.New(errors.ErrConfig,
					"Interval too short",
					"Minimum interval is 1s to avoid overwhelming the router")
			}
			interval = parsed
		}

		coord := newCoordinator(cfg)
		defer coord.Shutdown()

		return watch.Run(cfg.Device.DisplayName(), coord, cfg.Watch, interval)
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchIntervalFlag, "interval", "", "refresh interval override (e.g., 5s, 1m)")
	rootCmd.AddCommand(watchCmd)
}
