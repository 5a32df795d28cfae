package sshutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsAuthFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"auth rejection", errors.New("ssh: handshake failed: ssh: unable to authenticate, attempted methods [none password]"), true},
		{"no methods remain", errors.New("ssh: no supported methods remain"), true},
		{"permission denied", errors.New("permission denied (publickey,password)"), true},
		{"connection refused", errors.New("dial tcp 192.168.1.1:22: connect: connection refused"), false},
		{"timeout", errors.New("dial tcp 192.168.1.1:22: i/o timeout"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isAuthFailure(tt.err))
		})
	}
}

func TestResolveSSHSettingsExplicitOverrides(t *testing.T) {
	// Point HOME at an empty dir so no real ssh config interferes.
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USER", "fallback-user")

	settings := resolveSSHSettings(Options{Host: "192.168.1.1", Port: 2222, User: "admin"})
	assert.Equal(t, "192.168.1.1", settings.hostname)
	assert.Equal(t, "2222", settings.port)
	assert.Equal(t, "admin", settings.user)
	assert.Equal(t, "192.168.1.1:2222", settings.address())
}

func TestResolveSSHSettingsDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("USER", "opuser")

	settings := resolveSSHSettings(Options{Host: "router.local"})
	assert.Equal(t, "router.local", settings.hostname)
	assert.Equal(t, "22", settings.port)
	assert.Equal(t, "opuser", settings.user)
}

func TestResolveSSHSettingsFromConfigAlias(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	sshDir := filepath.Join(home, ".ssh")
	require.NoError(t, os.MkdirAll(sshDir, 0o700))
	cfg := `Host edge
    HostName 10.0.0.1
    Port 2200
    User ubnt
`
	require.NoError(t, os.WriteFile(filepath.Join(sshDir, "config"), []byte(cfg), 0o600))

	settings := resolveSSHSettings(Options{Host: "edge"})
	assert.Equal(t, "10.0.0.1", settings.hostname)
	assert.Equal(t, "2200", settings.port)
	assert.Equal(t, "ubnt", settings.user)

	// Explicit options still win over the alias.
	settings = resolveSSHSettings(Options{Host: "edge", Port: 22, User: "admin"})
	assert.Equal(t, "22", settings.port)
	assert.Equal(t, "admin", settings.user)
}

func TestPreprocessSSHConfigStopsAtMatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config")
	content := `Host edge
    HostName 10.0.0.1

Match host *.internal
    User svc
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	got, matchLine, err := preprocessSSHConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 4, matchLine)
	assert.Contains(t, string(got), "HostName 10.0.0.1")
	assert.NotContains(t, string(got), "Match host")
}

func TestSuggestionForDialError(t *testing.T) {
	tests := []struct {
		err  string
		want string
	}{
		{"connect: connection refused", "Is SSH enabled on the router?"},
		{"connect: no route to host", "Can't route to the host"},
		{"i/o timeout", "timed out"},
		{"something else", "ping <host>"},
	}
	for _, tt := range tests {
		assert.Contains(t, suggestionForDialError(errors.New(tt.err)), tt.want)
	}
}

func TestExpandPath(t *testing.T) {
	t.Setenv("HOME", "/home/op")
	assert.Equal(t, "/home/op/.ssh/id_ed25519", expandPath("~/.ssh/id_ed25519"))
	assert.Equal(t, "/etc/key", expandPath("/etc/key"))
}
