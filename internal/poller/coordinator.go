// Package poller drives the poll cycle: it runs the EdgeOS command batch over
// SSH, parses each command's output, derives per-interface throughput from
// counter deltas, and produces an immutable DeviceSnapshot per cycle.
//
// One poll runs at a time. A tick that arrives while a cycle is in flight is
// dropped, never queued, so a slow device can't stack up sessions.
package poller

import (
	"context"
	stderrors "errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rileyhilliard/edgewatch/internal/edgeos"
	"github.com/rileyhilliard/edgewatch/internal/errors"
	"github.com/rileyhilliard/edgewatch/internal/logger"
	"github.com/rileyhilliard/edgewatch/pkg/sshutil"
)

// ErrPollInFlight is returned when Poll is called while a previous cycle is
// still running. The caller should skip the tick and keep the last snapshot.
var ErrPollInFlight = stderrors.New("poll already in flight")

// ErrBackoff is returned when Poll is called inside the retry backoff window
// after repeated connection failures. No network attempt is made; the caller
// should skip the tick and keep the last snapshot rather than republish it.
var ErrBackoff = stderrors.New("retry backoff in effect")

// ErrShutdown is returned by Poll after Shutdown.
var ErrShutdown = stderrors.New("coordinator is shut down")

// Outcome reports how the most recent cycle ended.
type Outcome int

const (
	OutcomeNone Outcome = iota
	OutcomeUpdated
	OutcomeFailed
)

// Options configures a Coordinator.
type Options struct {
	// Device is the friendly name stamped on snapshots.
	Device string

	// BatchTimeout bounds a whole poll cycle. Zero means 25s.
	BatchTimeout time.Duration

	// FailureThreshold is how many consecutive batch failures are
	// tolerated before the device is reported unavailable and the
	// connection dropped. Zero means 3.
	FailureThreshold int

	// LogLines is the syslog tail window for health-flag scanning.
	LogLines int

	// RetryBackoff is the base delay added between reconnect attempts
	// after repeated connection failures; it doubles per failure up to
	// MaxBackoff. Zero means 30s base, 5m cap.
	RetryBackoff time.Duration
	MaxBackoff   time.Duration

	Log logger.Logger
}

// rateState remembers an interface's counters from the previous cycle so the
// next one can compute byte deltas.
type rateState struct {
	counters edgeos.InterfaceCounters
	at       time.Time
}

// Coordinator owns the poll loop state for one device: the SSH runner, the
// previous CPU sample and interface counters, the consecutive-failure count,
// and the last snapshot. All methods are safe for concurrent use.
type Coordinator struct {
	opts   Options
	log    logger.Logger
	dedup  *logger.Deduper
	now    func() time.Time

	pollMu sync.Mutex // held for the duration of a cycle

	mu          sync.Mutex // guards everything below
	runner      sshutil.CommandRunner
	prevCPU     edgeos.CPUSample
	rates       map[string]rateState
	failures    int
	nextAttempt time.Time
	authErr     error
	last        *DeviceSnapshot
	outcome     Outcome
	closed      bool
}

// New creates a coordinator polling through runner. The coordinator takes
// ownership of the runner and closes it on Shutdown.
func New(runner sshutil.CommandRunner, opts Options) *Coordinator {
	if opts.BatchTimeout == 0 {
		opts.BatchTimeout = 25 * time.Second
	}
	if opts.FailureThreshold < 1 {
		opts.FailureThreshold = 3
	}
	if opts.RetryBackoff == 0 {
		opts.RetryBackoff = 30 * time.Second
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = 5 * time.Minute
	}
	if opts.Log == nil {
		opts.Log = logger.Default()
	}
	return &Coordinator{
		opts:   opts,
		log:    opts.Log,
		dedup:  logger.NewDeduper(opts.Log),
		now:    time.Now,
		runner: runner,
		rates:  make(map[string]rateState),
	}
}

// Poll runs one complete cycle and returns the resulting snapshot.
//
// Per-command failures degrade individual snapshot fields to nil; the cycle
// still succeeds. A batch-level failure (connection or auth) returns the
// retained last-known-good snapshot together with the error, until the
// failure threshold is crossed, after which snapshots report Available false.
// An authentication failure latches: no further connection attempts are made
// until Reconfigure. A tick inside the retry backoff window makes no network
// attempt and returns the retained snapshot with ErrBackoff.
func (c *Coordinator) Poll(ctx context.Context) (*DeviceSnapshot, error) {
	if !c.pollMu.TryLock() {
		c.log.Debug("dropping poll tick: previous cycle still running")
		return c.Last(), ErrPollInFlight
	}
	defer c.pollMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return c.last, ErrShutdown
	}
	if c.authErr != nil {
		err := c.authErr
		c.mu.Unlock()
		return c.Last(), err
	}
	now := c.now()
	if now.Before(c.nextAttempt) {
		last := c.last
		until := c.nextAttempt
		c.mu.Unlock()
		c.log.Debug("skipping poll: in backoff window until %s", until.Format(time.RFC3339))
		return last, ErrBackoff
	}
	runner := c.runner
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, c.opts.BatchTimeout)
	defer cancel()

	results, err := runner.RunCommands(ctx, edgeos.CommandSet(c.opts.LogLines))
	if err != nil {
		return c.recordFailure(err)
	}

	snapshot := c.buildSnapshot(results)

	c.mu.Lock()
	c.failures = 0
	c.nextAttempt = time.Time{}
	c.last = snapshot
	c.outcome = OutcomeUpdated
	c.mu.Unlock()

	return snapshot, nil
}

// recordFailure updates failure state after a batch-level error and decides
// what snapshot the caller gets: the retained last-known-good one below the
// threshold, an unavailable one at or above it.
func (c *Coordinator) recordFailure(err error) (*DeviceSnapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.outcome = OutcomeFailed

	if errors.IsAuth(err) {
		// Fatal until credentials change. Retrying would lock the
		// account or spam the router's auth log, so latch instead.
		c.authErr = err
		c.runner.Drop()
		c.log.Error("authentication failed for %s: %v", c.opts.Device, err)
		snap := c.unavailableLocked()
		c.last = snap
		return snap, err
	}

	c.failures++
	c.log.Warn("poll failed for %s (%d/%d consecutive): %v",
		c.opts.Device, c.failures, c.opts.FailureThreshold, err)

	if c.failures > 1 {
		delay := c.opts.RetryBackoff << (c.failures - 2)
		if delay > c.opts.MaxBackoff || delay <= 0 {
			delay = c.opts.MaxBackoff
		}
		c.nextAttempt = c.now().Add(delay)
	}

	if c.failures < c.opts.FailureThreshold {
		// Keep serving the last good snapshot through transient blips.
		return c.last, err
	}

	c.runner.Drop()
	snap := c.unavailableLocked()
	c.last = snap
	return snap, err
}

// unavailableLocked builds a snapshot marking the device unreachable while
// carrying forward the last-known-good metric values. Callers hold c.mu.
func (c *Coordinator) unavailableLocked() *DeviceSnapshot {
	snap := &DeviceSnapshot{
		ID:        uuid.NewString(),
		Device:    c.opts.Device,
		Timestamp: c.now(),
		Available: false,
	}
	if prev := c.last; prev != nil {
		snap.UptimeSeconds = prev.UptimeSeconds
		snap.UptimeRaw = prev.UptimeRaw
		snap.Firmware = prev.Firmware
		snap.CPUPercent = prev.CPUPercent
		snap.MemPercent = prev.MemPercent
		snap.Interfaces = prev.Interfaces
		snap.TotalRxRate = prev.TotalRxRate
		snap.TotalTxRate = prev.TotalTxRate
		snap.HealthFlags = prev.HealthFlags
		snap.LogErrorCount = prev.LogErrorCount
	}
	return snap
}

// buildSnapshot parses each command result into snapshot fields. A failed or
// unparseable command leaves its fields nil and logs once per distinct
// failure; the rest of the snapshot is unaffected.
func (c *Coordinator) buildSnapshot(results sshutil.BatchResult) *DeviceSnapshot {
	now := c.now()
	snap := &DeviceSnapshot{
		ID:        uuid.NewString(),
		Device:    c.opts.Device,
		Timestamp: now,
		Available: true,
	}

	if raw, ok := c.fieldOutput(results, edgeos.CmdUptime); ok {
		seconds, err := edgeos.ParseUptime(raw)
		if err != nil {
			c.dedup.WarnOnce("parse:"+edgeos.CmdUptime, "uptime output not understood: %v", err)
		} else {
			snap.UptimeSeconds = ptr(seconds)
			snap.UptimeRaw = ptr(raw)
		}
	}

	if raw, ok := c.fieldOutput(results, edgeos.CmdVersion); ok {
		image, err := edgeos.ParseImage(raw)
		if err != nil {
			c.dedup.WarnOnce("parse:"+edgeos.CmdVersion, "firmware image output not understood: %v", err)
		} else {
			snap.Firmware = ptr(image.Running)
		}
	}

	if raw, ok := c.fieldOutput(results, edgeos.CmdMemInfo); ok {
		mem, err := edgeos.ParseMemory(raw)
		if err != nil {
			c.dedup.WarnOnce("parse:"+edgeos.CmdMemInfo, "meminfo output not understood: %v", err)
		} else {
			snap.MemPercent = ptr(mem.UsedPercent())
		}
	}

	if raw, ok := c.fieldOutput(results, edgeos.CmdCPUStat); ok {
		sample, err := edgeos.ParseCPUSample(raw)
		if err != nil {
			c.dedup.WarnOnce("parse:"+edgeos.CmdCPUStat, "cpu stat output not understood: %v", err)
		} else {
			c.mu.Lock()
			if usage, ok := sample.UsageSince(c.prevCPU); ok {
				snap.CPUPercent = ptr(usage)
			}
			c.prevCPU = *sample
			c.mu.Unlock()
		}
	}

	if raw, ok := c.fieldOutput(results, edgeos.CmdNetDev); ok {
		counters, err := edgeos.ParseInterfaces(raw)
		if err != nil {
			c.dedup.WarnOnce("parse:"+edgeos.CmdNetDev, "net/dev output not understood: %v", err)
		} else {
			snap.Interfaces = c.deriveRates(counters, now)
			c.sumRates(snap)
		}
	}

	if raw, ok := c.fieldOutput(results, edgeos.CmdLogTail); ok {
		report := edgeos.ParseHealth(raw)
		snap.HealthFlags = sortedFlags(report.Flags)
		snap.LogErrorCount = ptr(report.ErrorCount)
	}

	return snap
}

// fieldOutput extracts one command's output, logging command-level failures
// once per distinct error so a persistently broken command doesn't flood the
// log at every interval.
func (c *Coordinator) fieldOutput(results sshutil.BatchResult, name string) (string, bool) {
	res, ok := results[name]
	if !ok {
		return "", false
	}
	if res.Err != nil {
		if errors.IsTimeout(res.Err) {
			c.dedup.WarnOnce("timeout:"+name, "command %q timed out, field unavailable this cycle", name)
		} else {
			c.dedup.WarnOnce("cmd:"+name, "command %q failed: %v", name, res.Err)
		}
		return "", false
	}
	return res.Output, true
}

// deriveRates turns this cycle's counters into per-interface stats, computing
// byte rates against remembered previous counters. Rates stay nil on the
// first sighting of an interface and after a counter reset (delta would be
// negative); a reset re-seeds the baseline instead of reporting a bogus
// spike. Interfaces that vanished this cycle keep their remembered state and
// appear flagged stale.
func (c *Coordinator) deriveRates(counters map[string]edgeos.InterfaceCounters, now time.Time) map[string]InterfaceStats {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := make(map[string]InterfaceStats, len(counters))
	for name, cur := range counters {
		st := InterfaceStats{RxBytes: cur.RxBytes, TxBytes: cur.TxBytes}
		if prev, ok := c.rates[name]; ok {
			elapsed := now.Sub(prev.at).Seconds()
			rxDelta := cur.RxBytes - prev.counters.RxBytes
			txDelta := cur.TxBytes - prev.counters.TxBytes
			if elapsed > 0 && rxDelta >= 0 && txDelta >= 0 {
				st.RxRate = ptr(float64(rxDelta) / elapsed)
				st.TxRate = ptr(float64(txDelta) / elapsed)
			} else if rxDelta < 0 || txDelta < 0 {
				c.log.Debug("counter reset on %s, re-seeding rate baseline", name)
			}
		}
		c.rates[name] = rateState{counters: cur, at: now}
		stats[name] = st
	}

	for name, prev := range c.rates {
		if _, seen := counters[name]; seen {
			continue
		}
		stats[name] = InterfaceStats{
			RxBytes: prev.counters.RxBytes,
			TxBytes: prev.counters.TxBytes,
			Stale:   true,
		}
	}
	return stats
}

// sumRates aggregates non-loopback interface rates into the snapshot totals.
// Totals stay nil when no interface has a rate yet.
func (c *Coordinator) sumRates(snap *DeviceSnapshot) {
	var rx, tx float64
	var have bool
	for name, st := range snap.Interfaces {
		if edgeos.IsLoopback(name) || st.Stale {
			continue
		}
		if st.RxRate != nil {
			rx += *st.RxRate
			have = true
		}
		if st.TxRate != nil {
			tx += *st.TxRate
			have = true
		}
	}
	if have {
		snap.TotalRxRate = ptr(rx)
		snap.TotalTxRate = ptr(tx)
	}
}

// Last returns the most recent snapshot, or nil before the first cycle.
func (c *Coordinator) Last() *DeviceSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

// LastOutcome reports how the most recent cycle ended.
func (c *Coordinator) LastOutcome() Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// Failures returns the current consecutive batch-failure count.
func (c *Coordinator) Failures() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

// AuthFailed reports whether polling is latched on an authentication failure.
func (c *Coordinator) AuthFailed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authErr != nil
}

// Reconfigure swaps in a new runner (typically after a credential change),
// clears the auth latch and failure state, and closes the old runner. Rate
// baselines and the retained snapshot survive: the device didn't change,
// only how we reach it.
func (c *Coordinator) Reconfigure(runner sshutil.CommandRunner) {
	c.mu.Lock()
	old := c.runner
	c.runner = runner
	c.authErr = nil
	c.failures = 0
	c.nextAttempt = time.Time{}
	c.dedup.Reset()
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}
}

// Shutdown stops the coordinator and closes the underlying connection.
// Poll calls after Shutdown return ErrShutdown.
func (c *Coordinator) Shutdown() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	runner := c.runner
	c.mu.Unlock()

	if runner != nil {
		return runner.Close()
	}
	return nil
}
