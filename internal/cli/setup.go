package cli

import (
	"github.com/rileyhilliard/edgewatch/internal/config"
	"github.com/rileyhilliard/edgewatch/internal/poller"
	"github.com/rileyhilliard/edgewatch/pkg/sshutil"
)

// sshOptions maps a device config onto connection options.
func sshOptions(cfg *config.Config) sshutil.Options {
	return sshutil.Options{
		Host:            cfg.Device.Host,
		Port:            cfg.Device.Port,
		User:            cfg.Device.Username,
		Password:        cfg.Device.ResolvePassword(),
		Timeout:         cfg.Poll.CommandTimeout,
		InsecureHostKey: cfg.Device.InsecureHostKey,
	}
}

// newCoordinator builds the poll coordinator from a loaded config.
func newCoordinator(cfg *config.Config) *poller.Coordinator {
	runner := sshutil.NewRunner(sshOptions(cfg), cfg.Poll.CommandTimeout)
	return poller.New(runner, poller.Options{
		Device:           cfg.Device.DisplayName(),
		BatchTimeout:     cfg.Poll.BatchTimeout,
		FailureThreshold: cfg.Poll.FailureThreshold,
		LogLines:         cfg.Poll.LogLines,
	})
}

// loadConfig resolves and loads the effective configuration.
func loadConfig() (*config.Config, error) {
	return config.LoadOrFind(configFlag)
}
