package config

import (
	"os"
	"strings"
	"time"
)

// CurrentConfigVersion is the schema version for the config file.
// Increment when making breaking changes to the config structure.
const CurrentConfigVersion = 1

// Config represents the complete .edgewatch.yaml configuration file.
type Config struct {
	Version int          `yaml:"version" mapstructure:"version"`
	Device  Device       `yaml:"device" mapstructure:"device"`
	Poll    PollConfig   `yaml:"poll" mapstructure:"poll"`
	Publish Publish      `yaml:"publish" mapstructure:"publish"`
	Watch   WatchConfig  `yaml:"watch" mapstructure:"watch"`
	Output  OutputConfig `yaml:"output" mapstructure:"output"`
}

// Device defines the router to poll and how to authenticate to it.
type Device struct {
	// Name is a friendly label used in logs and published messages.
	// Defaults to Host when empty.
	Name string `yaml:"name" mapstructure:"name"`

	// Host is the router address: hostname, IP, or an ~/.ssh/config alias.
	Host string `yaml:"host" mapstructure:"host"`

	// Port is the SSH port. Defaults to 22.
	Port int `yaml:"port" mapstructure:"port"`

	// Username for SSH login. EdgeOS ships with "ubnt".
	Username string `yaml:"username" mapstructure:"username"`

	// Password for SSH login. Use "env:VAR_NAME" to read from the
	// environment instead of storing the password in the file.
	Password string `yaml:"password" mapstructure:"password"`

	// InsecureHostKey skips known_hosts verification when true.
	InsecureHostKey bool `yaml:"insecure_host_key" mapstructure:"insecure_host_key"`
}

// PollConfig controls the polling cycle.
type PollConfig struct {
	// Interval between poll cycles.
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`

	// CommandTimeout bounds each individual remote command.
	CommandTimeout time.Duration `yaml:"command_timeout" mapstructure:"command_timeout"`

	// BatchTimeout bounds one whole poll cycle.
	BatchTimeout time.Duration `yaml:"batch_timeout" mapstructure:"batch_timeout"`

	// FailureThreshold is how many consecutive connection failures are
	// tolerated before the device is reported unavailable.
	FailureThreshold int `yaml:"failure_threshold" mapstructure:"failure_threshold"`

	// LogLines is how many lines of /var/log/messages to scan for
	// health-flag signatures each cycle.
	LogLines int `yaml:"log_lines" mapstructure:"log_lines"`
}

// Publish configures where snapshots are delivered in serve mode.
type Publish struct {
	Kafka KafkaConfig `yaml:"kafka" mapstructure:"kafka"`
	HTTP  HTTPConfig  `yaml:"http" mapstructure:"http"`
}

// KafkaConfig configures the Kafka snapshot publisher.
type KafkaConfig struct {
	Enabled bool     `yaml:"enabled" mapstructure:"enabled"`
	Brokers []string `yaml:"brokers" mapstructure:"brokers"`
	Topic   string   `yaml:"topic" mapstructure:"topic"`
}

// HTTPConfig configures the HTTP snapshot endpoint.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Listen  string `yaml:"listen" mapstructure:"listen"`
}

// WatchConfig controls the TUI dashboard.
type WatchConfig struct {
	// HistorySize is the number of samples retained for sparklines.
	HistorySize int `yaml:"history_size" mapstructure:"history_size"`

	Thresholds Thresholds `yaml:"thresholds" mapstructure:"thresholds"`
}

// Thresholds define warning/critical levels for gauge coloring.
type Thresholds struct {
	CPU Threshold `yaml:"cpu" mapstructure:"cpu"`
	RAM Threshold `yaml:"ram" mapstructure:"ram"`
}

// Threshold holds warning and critical percentages.
type Threshold struct {
	Warning  int `yaml:"warning" mapstructure:"warning"`
	Critical int `yaml:"critical" mapstructure:"critical"`
}

// OutputConfig controls terminal output formatting.
type OutputConfig struct {
	// Color mode: "auto", "always", or "never".
	Color string `yaml:"color" mapstructure:"color"`

	// Verbosity level: "quiet", "normal", or "verbose".
	Verbosity string `yaml:"verbosity" mapstructure:"verbosity"`
}

// DefaultConfig returns a Config with sensible defaults.
// Interval and port defaults match what EdgeOS tolerates well: a 30s cycle
// keeps load on the router's shell negligible.
func DefaultConfig() *Config {
	return &Config{
		Version: CurrentConfigVersion,
		Device: Device{
			Port:     22,
			Username: "ubnt",
		},
		Poll: PollConfig{
			Interval:         30 * time.Second,
			CommandTimeout:   10 * time.Second,
			BatchTimeout:     25 * time.Second,
			FailureThreshold: 3,
			LogLines:         50,
		},
		Publish: Publish{
			Kafka: KafkaConfig{
				Topic: "edgewatch.snapshots",
			},
			HTTP: HTTPConfig{
				Listen: "127.0.0.1:8688",
			},
		},
		Watch: WatchConfig{
			HistorySize: 60,
			Thresholds: Thresholds{
				CPU: Threshold{Warning: 70, Critical: 90},
				RAM: Threshold{Warning: 70, Critical: 90},
			},
		},
		Output: OutputConfig{
			Color:     "auto",
			Verbosity: "normal",
		},
	}
}

// ResolvePassword returns the device password, following "env:VAR" indirection.
// Returns an empty string if the referenced variable is unset.
func (d Device) ResolvePassword() string {
	if strings.HasPrefix(d.Password, "env:") {
		return os.Getenv(strings.TrimPrefix(d.Password, "env:"))
	}
	return d.Password
}

// DisplayName returns the friendly device name, falling back to the host.
func (d Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.Host
}
