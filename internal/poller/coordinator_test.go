package poller

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/edgewatch/internal/edgeos"
	"github.com/rileyhilliard/edgewatch/internal/errors"
	"github.com/rileyhilliard/edgewatch/internal/logger"
	sshtest "github.com/rileyhilliard/edgewatch/pkg/sshutil/testing"
)

const (
	uptimeOut = " 12:34:56 up 3 days,  4:00,  1 user,  load average: 0.08, 0.05, 0.01"

	versionOut = `The system currently has the following image(s) installed:

v2.0.9-hotfix.7    (running image) (default boot)
v1.10.11
`

	memOut = `MemTotal:        1000000 kB
MemFree:          300000 kB
MemAvailable:     600000 kB
Buffers:           50000 kB
Cached:           150000 kB
`

	// Total 1000 jiffies, idle 850.
	cpuOut1 = `cpu  100 0 50 850 0 0 0
cpu0 100 0 50 850 0 0 0
`
	// Total 2000, idle 1700: delta 1000/850, usage 15%.
	cpuOut2 = `cpu  200 0 100 1700 0 0 0
cpu0 200 0 100 1700 0 0 0
`

	netDevHeader = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
`

	logOut = `Jan  1 00:00:01 router dnsmasq-dhcp[123]: not giving name to the DHCP lease because uid lease 192.168.1.5 is duplicate on eth1
Jan  1 00:00:02 router kernel: everything fine
`
)

func netDev(eth0Rx, eth0Tx int64) string {
	var b strings.Builder
	b.WriteString(netDevHeader)
	writeIface(&b, "eth0", eth0Rx, eth0Tx)
	writeIface(&b, "lo", 200, 200)
	return b.String()
}

func writeIface(b *strings.Builder, name string, rx, tx int64) {
	b.WriteString("  " + name + ": ")
	b.WriteString(strings.Join([]string{
		itoa(rx), "10", "0", "0", "0", "0", "0", "0",
		itoa(tx), "5", "0", "0", "0", "0", "0", "0",
	}, " "))
	b.WriteString("\n")
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}

// healthyMock registers a full set of good command outputs.
func healthyMock() *sshtest.MockRunner {
	return sshtest.NewMockRunner().
		Respond(edgeos.CmdUptime, uptimeOut).
		Respond(edgeos.CmdVersion, versionOut).
		Respond(edgeos.CmdMemInfo, memOut).
		Respond(edgeos.CmdCPUStat, cpuOut1).
		Respond(edgeos.CmdNetDev, netDev(1000, 5000)).
		Respond(edgeos.CmdLogTail, logOut)
}

// newTestCoordinator wires a coordinator to a fake clock the test advances.
func newTestCoordinator(t *testing.T, runner *sshtest.MockRunner, opts Options) (*Coordinator, *time.Time) {
	t.Helper()
	if opts.Device == "" {
		opts.Device = "lab-router"
	}
	if opts.Log == nil {
		opts.Log = logger.Noop()
	}
	c := New(runner, opts)
	clock := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }
	t.Cleanup(func() { _ = c.Shutdown() })
	return c, &clock
}

func TestPollFullSnapshot(t *testing.T) {
	mock := healthyMock()
	c, clock := newTestCoordinator(t, mock, Options{})

	snap, err := c.Poll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, snap)

	assert.True(t, snap.Available)
	assert.Equal(t, "lab-router", snap.Device)
	assert.NotEmpty(t, snap.ID)

	// 3 days + 4:00 of uptime.
	require.NotNil(t, snap.UptimeSeconds)
	assert.Equal(t, int64(273600), *snap.UptimeSeconds)
	require.NotNil(t, snap.UptimeRaw)
	assert.Contains(t, *snap.UptimeRaw, "up 3 days")

	require.NotNil(t, snap.Firmware)
	assert.Equal(t, "v2.0.9-hotfix.7", *snap.Firmware)

	// (1000000 - 600000) / 1000000, via MemAvailable.
	require.NotNil(t, snap.MemPercent)
	assert.InDelta(t, 40.0, *snap.MemPercent, 0.001)

	// First cycle: no CPU or rate baselines yet.
	assert.Nil(t, snap.CPUPercent)
	require.Contains(t, snap.Interfaces, "eth0")
	assert.Nil(t, snap.Interfaces["eth0"].RxRate)
	assert.Nil(t, snap.TotalRxRate)

	assert.Equal(t, []string{edgeos.FlagDHCPConflict}, snap.HealthFlags)
	require.NotNil(t, snap.LogErrorCount)
	assert.Equal(t, 1, *snap.LogErrorCount)

	// Second cycle 10s later with advanced counters.
	*clock = clock.Add(10 * time.Second)
	mock.Respond(edgeos.CmdCPUStat, cpuOut2)
	mock.Respond(edgeos.CmdNetDev, netDev(2000, 6000))

	snap2, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, snap.ID, snap2.ID)

	require.NotNil(t, snap2.CPUPercent)
	assert.InDelta(t, 15.0, *snap2.CPUPercent, 0.001)

	eth0 := snap2.Interfaces["eth0"]
	require.NotNil(t, eth0.RxRate)
	assert.InDelta(t, 100.0, *eth0.RxRate, 0.001) // 1000 bytes over 10s
	require.NotNil(t, eth0.TxRate)
	assert.InDelta(t, 100.0, *eth0.TxRate, 0.001)

	// Loopback is excluded from totals.
	require.NotNil(t, snap2.TotalRxRate)
	assert.InDelta(t, 100.0, *snap2.TotalRxRate, 0.001)
}

func TestPollCounterResetSkipsRate(t *testing.T) {
	mock := healthyMock()
	c, clock := newTestCoordinator(t, mock, Options{})

	_, err := c.Poll(context.Background())
	require.NoError(t, err)

	// Device rebooted: counters went backwards. No negative rate, baseline
	// re-seeds from the new values.
	*clock = clock.Add(10 * time.Second)
	mock.Respond(edgeos.CmdNetDev, netDev(100, 100))

	snap, err := c.Poll(context.Background())
	require.NoError(t, err)
	eth0 := snap.Interfaces["eth0"]
	assert.Nil(t, eth0.RxRate)
	assert.Nil(t, eth0.TxRate)
	assert.Equal(t, int64(100), eth0.RxBytes)

	// Next cycle rates resume from the re-seeded baseline.
	*clock = clock.Add(10 * time.Second)
	mock.Respond(edgeos.CmdNetDev, netDev(1100, 600))

	snap, err = c.Poll(context.Background())
	require.NoError(t, err)
	eth0 = snap.Interfaces["eth0"]
	require.NotNil(t, eth0.RxRate)
	assert.InDelta(t, 100.0, *eth0.RxRate, 0.001)
	require.NotNil(t, eth0.TxRate)
	assert.InDelta(t, 50.0, *eth0.TxRate, 0.001)
}

func TestPollStaleInterface(t *testing.T) {
	mock := healthyMock()
	c, clock := newTestCoordinator(t, mock, Options{})

	var withEth1 strings.Builder
	withEth1.WriteString(netDevHeader)
	writeIface(&withEth1, "eth0", 1000, 5000)
	writeIface(&withEth1, "eth1", 400, 400)
	mock.Respond(edgeos.CmdNetDev, withEth1.String())

	_, err := c.Poll(context.Background())
	require.NoError(t, err)

	// eth1 disappears from /proc/net/dev; it stays in the snapshot flagged
	// stale with its last counters, and contributes nothing to totals.
	*clock = clock.Add(10 * time.Second)
	mock.Respond(edgeos.CmdNetDev, netDev(2000, 6000))

	snap, err := c.Poll(context.Background())
	require.NoError(t, err)

	eth1, ok := snap.Interfaces["eth1"]
	require.True(t, ok)
	assert.True(t, eth1.Stale)
	assert.Equal(t, int64(400), eth1.RxBytes)
	assert.Nil(t, eth1.RxRate)

	require.NotNil(t, snap.TotalRxRate)
	assert.InDelta(t, 100.0, *snap.TotalRxRate, 0.001)
}

func TestPollCommandTimeoutDegradesField(t *testing.T) {
	log := logger.NewBufferLogger()
	mock := healthyMock().
		FailCommand(edgeos.CmdVersion, errors.New(errors.ErrTimeout, "command timed out after 10s", ""))
	c, clock := newTestCoordinator(t, mock, Options{Log: log})

	snap, err := c.Poll(context.Background())
	require.NoError(t, err)

	// Firmware degrades to nil; the rest of the cycle is unaffected.
	assert.Nil(t, snap.Firmware)
	assert.True(t, snap.Available)
	assert.NotNil(t, snap.UptimeSeconds)
	assert.NotNil(t, snap.MemPercent)

	// The timeout warns once, then repeats land at debug.
	*clock = clock.Add(30 * time.Second)
	_, err = c.Poll(context.Background())
	require.NoError(t, err)

	warns := 0
	for _, m := range log.Messages {
		if m.Level == "warn" && strings.Contains(m.Message, "timed out") {
			warns++
		}
	}
	assert.Equal(t, 1, warns)
}

func TestPollParseFailureDegradesField(t *testing.T) {
	log := logger.NewBufferLogger()
	mock := healthyMock().Respond(edgeos.CmdUptime, "no such command")
	c, clock := newTestCoordinator(t, mock, Options{Log: log})

	snap, err := c.Poll(context.Background())
	require.NoError(t, err)
	assert.Nil(t, snap.UptimeSeconds)
	assert.Nil(t, snap.UptimeRaw)
	assert.True(t, snap.Available)
	assert.NotNil(t, snap.Firmware)

	*clock = clock.Add(30 * time.Second)
	_, err = c.Poll(context.Background())
	require.NoError(t, err)

	warns := 0
	for _, m := range log.Messages {
		if m.Level == "warn" && strings.Contains(m.Message, "uptime") {
			warns++
		}
	}
	assert.Equal(t, 1, warns)
}

func TestPollBatchFailureRetainsLastKnownGood(t *testing.T) {
	mock := healthyMock()
	c, clock := newTestCoordinator(t, mock, Options{
		FailureThreshold: 3,
		RetryBackoff:     time.Second,
	})

	good, err := c.Poll(context.Background())
	require.NoError(t, err)
	require.True(t, good.Available)

	connErr := errors.New(errors.ErrSSH, "connection refused", "")
	mock.FailBatch(connErr)

	// Failures below the threshold keep serving the retained snapshot.
	for i := 1; i < 3; i++ {
		*clock = clock.Add(30 * time.Second)
		snap, err := c.Poll(context.Background())
		require.Error(t, err)
		assert.Same(t, good, snap)
		assert.Equal(t, i, c.Failures())
		assert.Equal(t, OutcomeFailed, c.LastOutcome())
	}

	// Third consecutive failure crosses the threshold: unavailable snapshot
	// still carrying last-known-good values, connection dropped.
	*clock = clock.Add(30 * time.Second)
	snap, err := c.Poll(context.Background())
	require.Error(t, err)
	assert.False(t, snap.Available)
	require.NotNil(t, snap.UptimeSeconds)
	assert.Equal(t, *good.UptimeSeconds, *snap.UptimeSeconds)
	assert.GreaterOrEqual(t, mock.DropCount(), 1)

	// Recovery resets the failure count and availability.
	mock.FailBatch(nil)
	*clock = clock.Add(30 * time.Second)
	snap, err = c.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Available)
	assert.Equal(t, 0, c.Failures())
}

func TestPollBackoffSkipsAttempts(t *testing.T) {
	mock := healthyMock().FailBatch(errors.New(errors.ErrSSH, "connection refused", ""))
	c, clock := newTestCoordinator(t, mock, Options{
		FailureThreshold: 10,
		RetryBackoff:     time.Minute,
	})

	_, err := c.Poll(context.Background())
	require.Error(t, err)
	*clock = clock.Add(30 * time.Second)
	_, err = c.Poll(context.Background())
	require.Error(t, err)
	calls := mock.CallCount()

	// Second failure scheduled a backoff window; a tick inside it skips the
	// network entirely and says so, so publishers don't re-emit the retained
	// snapshot.
	*clock = clock.Add(30 * time.Second)
	_, err = c.Poll(context.Background())
	assert.ErrorIs(t, err, ErrBackoff)
	assert.Equal(t, calls, mock.CallCount())

	// Past the window the coordinator tries again.
	*clock = clock.Add(2 * time.Minute)
	_, err = c.Poll(context.Background())
	require.Error(t, err)
	assert.Equal(t, calls+1, mock.CallCount())
}

func TestPollAuthFailureLatches(t *testing.T) {
	authErr := errors.New(errors.ErrAuth, "Authentication failed", "Check the configured password")
	mock := healthyMock().FailBatch(authErr)
	c, clock := newTestCoordinator(t, mock, Options{})

	snap, err := c.Poll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
	assert.False(t, snap.Available)
	assert.True(t, c.AuthFailed())
	assert.Equal(t, 1, mock.CallCount())

	// Latched: further ticks never touch the network.
	*clock = clock.Add(30 * time.Second)
	_, err = c.Poll(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsAuth(err))
	assert.Equal(t, 1, mock.CallCount())

	// New credentials clear the latch.
	fixed := healthyMock()
	c.Reconfigure(fixed)
	assert.False(t, c.AuthFailed())
	assert.True(t, mock.Closed())

	snap, err = c.Poll(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Available)
}

func TestPollSingleFlight(t *testing.T) {
	mock := healthyMock()
	c, _ := newTestCoordinator(t, mock, Options{})

	good, err := c.Poll(context.Background())
	require.NoError(t, err)

	// Simulate a cycle still in flight: an overlapping tick is dropped and
	// gets the retained snapshot back.
	c.pollMu.Lock()
	snap, err := c.Poll(context.Background())
	c.pollMu.Unlock()

	assert.ErrorIs(t, err, ErrPollInFlight)
	assert.Same(t, good, snap)
	assert.Equal(t, 1, mock.CallCount())
}

func TestShutdown(t *testing.T) {
	mock := healthyMock()
	c, _ := newTestCoordinator(t, mock, Options{})

	_, err := c.Poll(context.Background())
	require.NoError(t, err)

	require.NoError(t, c.Shutdown())
	assert.True(t, mock.Closed())

	_, err = c.Poll(context.Background())
	assert.ErrorIs(t, err, ErrShutdown)

	// Idempotent.
	require.NoError(t, c.Shutdown())
}

func TestHasFlag(t *testing.T) {
	snap := &DeviceSnapshot{HealthFlags: []string{edgeos.FlagKernelWarning}}
	assert.True(t, snap.HasFlag(edgeos.FlagKernelWarning))
	assert.False(t, snap.HasFlag(edgeos.FlagDHCPConflict))
}
