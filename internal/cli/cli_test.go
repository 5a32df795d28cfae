package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rileyhilliard/edgewatch/internal/config"
	"github.com/rileyhilliard/edgewatch/internal/poller"
)

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"dev", "dev"},
		{"", ""},
		{"1.2.3", "v1.2.3"},
		{"v1.2.3", "v1.2.3"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatVersion(tt.in))
	}
}

func TestSSHOptionsMapping(t *testing.T) {
	t.Setenv("EDGEWATCH_TEST_PW", "hunter2")

	cfg := config.DefaultConfig()
	cfg.Device.Host = "192.168.1.1"
	cfg.Device.Port = 2222
	cfg.Device.Username = "admin"
	cfg.Device.Password = "env:EDGEWATCH_TEST_PW"
	cfg.Device.InsecureHostKey = true
	cfg.Poll.CommandTimeout = 7 * time.Second

	opts := sshOptions(cfg)
	assert.Equal(t, "192.168.1.1", opts.Host)
	assert.Equal(t, 2222, opts.Port)
	assert.Equal(t, "admin", opts.User)
	assert.Equal(t, "hunter2", opts.Password)
	assert.Equal(t, 7*time.Second, opts.Timeout)
	assert.True(t, opts.InsecureHostKey)
}

func TestSnapshotFieldFormatting(t *testing.T) {
	assert.Equal(t, "-", strOr(nil))
	fw := "v2.0.9"
	assert.Equal(t, "v2.0.9", strOr(&fw))

	assert.Equal(t, "-", pctOr(nil))
	pct := 12.34
	assert.Equal(t, "12.3%", pctOr(&pct))

	assert.Equal(t, "-", rateOr(nil))
	rate := 1536.0
	assert.Equal(t, "1.5 KiB/s", rateOr(&rate))
}

func TestAvailability(t *testing.T) {
	assert.Equal(t, "available", availability(&poller.DeviceSnapshot{Available: true}))
	assert.Equal(t, "unavailable", availability(&poller.DeviceSnapshot{}))
}

func TestRootCommandRegistry(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"poll", "serve", "watch", "init", "version"} {
		assert.True(t, names[want], "missing command %q", want)
	}
}
