package config

import (
	"fmt"

	"github.com/rileyhilliard/edgewatch/internal/errors"
)

// Validate checks a Config for problems that would break polling at runtime.
func Validate(cfg *Config) error {
	if cfg.Version > CurrentConfigVersion {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Config version %d is newer than supported version %d", cfg.Version, CurrentConfigVersion),
			"Upgrade edgewatch, or regenerate the config with 'edgewatch init'")
	}

	if cfg.Device.Host == "" {
		return errors.New(errors.ErrConfig,
			"No device host configured",
			"Set device.host in your config, or run 'edgewatch init'")
	}

	if cfg.Device.Port <= 0 || cfg.Device.Port > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("Invalid SSH port %d", cfg.Device.Port),
			"Set device.port to a value between 1 and 65535")
	}

	if cfg.Device.Username == "" {
		return errors.New(errors.ErrConfig,
			"No username configured",
			"Set device.username (EdgeOS default is 'ubnt')")
	}

	if cfg.Poll.Interval <= 0 {
		return errors.New(errors.ErrConfig,
			"poll.interval must be positive",
			"Use a duration like 30s or 1m")
	}

	if cfg.Poll.CommandTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			"poll.command_timeout must be positive",
			"Use a duration like 10s")
	}

	// A batch shorter than one command makes the per-command timeout unreachable.
	if cfg.Poll.BatchTimeout < cfg.Poll.CommandTimeout {
		return errors.New(errors.ErrConfig,
			"poll.batch_timeout is shorter than poll.command_timeout",
			"Increase poll.batch_timeout so a full cycle can complete")
	}

	if cfg.Poll.FailureThreshold < 1 {
		return errors.New(errors.ErrConfig,
			"poll.failure_threshold must be at least 1",
			"Set poll.failure_threshold to 3 to avoid flapping on a single blip")
	}

	if cfg.Publish.Kafka.Enabled && len(cfg.Publish.Kafka.Brokers) == 0 {
		return errors.New(errors.ErrConfig,
			"Kafka publishing enabled but no brokers configured",
			"Set publish.kafka.brokers to at least one broker address")
	}

	if cfg.Publish.HTTP.Enabled && cfg.Publish.HTTP.Listen == "" {
		return errors.New(errors.ErrConfig,
			"HTTP publishing enabled but no listen address configured",
			"Set publish.http.listen, e.g. 127.0.0.1:8688")
	}

	return nil
}
