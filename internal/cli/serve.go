package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rileyhilliard/edgewatch/internal/config"
	"github.com/rileyhilliard/edgewatch/internal/errors"
	"github.com/rileyhilliard/edgewatch/internal/logger"
	"github.com/rileyhilliard/edgewatch/internal/poller"
	"github.com/rileyhilliard/edgewatch/internal/publish"
)

var serveIntervalFlag string

// serveCmd runs the continuous poll-and-publish loop.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Poll continuously and publish snapshots",
	Long: `Poll the device at the configured interval and publish each snapshot to
the enabled sinks: a Kafka topic, an HTTP endpoint serving the latest
snapshot, and the log.

Runs until interrupted. On SIGINT/SIGTERM the current cycle finishes, the
publishers flush, and the SSH connection closes.

Examples:
  edgewatch serve
  edgewatch serve --interval 10s`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		interval := cfg.Poll.Interval
		if serveIntervalFlag != "" {
			parsed, err := time.ParseDuration(serveIntervalFlag)
			if err != nil {
				return errors.WrapWithCode(err, errors.ErrConfig,
					"Invalid interval: "+serveIntervalFlag,
					"Use a valid duration like 10s, 30s, or 1m")
			}
			if parsed < time.Second {
				return errors.New(errors.ErrConfig,
					"Interval too short",
					"Minimum interval is 1s to avoid overwhelming the router")
			}
			interval = parsed
		}

		return serve(cfg, interval)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveIntervalFlag, "interval", "", "poll interval override (e.g., 10s, 1m)")
	rootCmd.AddCommand(serveCmd)
}

func serve(cfg *config.Config, interval time.Duration) error {
	log := logger.Default()

	coord := newCoordinator(cfg)
	defer coord.Shutdown()

	sinks := []publish.Publisher{publish.NewLogPublisher(log)}
	if cfg.Publish.Kafka.Enabled {
		sinks = append(sinks, publish.NewKafkaPublisher(cfg.Publish.Kafka, log))
	}
	publisher := publish.NewMulti(log, sinks...)
	defer publisher.Close()

	var httpSrv *publish.Server
	if cfg.Publish.HTTP.Enabled {
		httpSrv = publish.NewServer(cfg.Publish.HTTP, coord, log)
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil {
				log.Error("http endpoint failed: %v", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("polling %s every %s", cfg.Device.DisplayName(), interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First cycle immediately; the ticker covers the rest.
	runCycle(ctx, coord, publisher, log)
	if coord.AuthFailed() {
		return errors.New(errors.ErrAuth,
			"Authentication failed, polling stopped",
			"Fix the credentials in your config and restart")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info("shutting down")
			if httpSrv != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				_ = httpSrv.Shutdown(shutdownCtx)
				cancel()
			}
			return nil
		case <-ticker.C:
			runCycle(ctx, coord, publisher, log)
			if coord.AuthFailed() {
				// No amount of retrying fixes bad credentials. Stop
				// and tell the operator instead of looping silently.
				return errors.New(errors.ErrAuth,
					"Authentication failed, polling stopped",
					"Fix the credentials in your config and restart")
			}
		}
	}
}

// runCycle performs one poll and publishes the result. Poll errors are
// already logged and reflected in the snapshot's availability, so only the
// publish step needs handling here.
func runCycle(ctx context.Context, coord *poller.Coordinator, publisher *publish.Multi, log logger.Logger) {
	snap, err := coord.Poll(ctx)
	if err != nil || snap == nil {
		return
	}
	if err := publisher.Publish(ctx, snap); err != nil {
		log.Warn("snapshot %s not delivered to all sinks: %v", snap.ID, err)
	}
}
