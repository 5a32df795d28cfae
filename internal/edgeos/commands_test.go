package edgeos

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandSet(t *testing.T) {
	cmds := CommandSet(50)
	require.Len(t, cmds, 6)

	// Order is the execution order on the device.
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = c.Name
	}
	assert.Equal(t, []string{CmdUptime, CmdVersion, CmdMemInfo, CmdCPUStat, CmdNetDev, CmdLogTail}, names)

	byName := make(map[string]string)
	for _, c := range cmds {
		byName[c.Name] = c.Line
	}

	assert.Equal(t, "uptime", byName[CmdUptime])
	assert.Equal(t, "cat /proc/meminfo", byName[CmdMemInfo])
	assert.Equal(t, "cat /proc/stat", byName[CmdCPUStat])
	assert.Equal(t, "cat /proc/net/dev", byName[CmdNetDev])
	assert.Equal(t, "tail -n 50 /var/log/messages", byName[CmdLogTail])

	// Version command carries the vbash fallback for older firmware.
	assert.Contains(t, byName[CmdVersion], "/opt/vyatta/bin/vyatta-op-cmd-wrapper show system image")
	assert.Contains(t, byName[CmdVersion], "vbash -c")
}

func TestCommandSetLogLines(t *testing.T) {
	cmds := CommandSet(200)
	assert.Equal(t, "tail -n 200 /var/log/messages", cmds[5].Line)

	// Bogus values fall back to the default window.
	cmds = CommandSet(0)
	assert.Equal(t, "tail -n 50 /var/log/messages", cmds[5].Line)
}
