// Package publish delivers poll snapshots to downstream consumers: a Kafka
// topic for pipelines, an HTTP endpoint for scrapers, and the log for humans.
package publish

import (
	"context"

	"github.com/rileyhilliard/edgewatch/internal/logger"
	"github.com/rileyhilliard/edgewatch/internal/poller"
)

// Publisher delivers one snapshot downstream. Implementations must tolerate
// being called once per poll interval and should not block past ctx.
type Publisher interface {
	Publish(ctx context.Context, snap *poller.DeviceSnapshot) error
	Close() error
}

// Multi fans a snapshot out to several publishers. Each publisher gets every
// snapshot; one sink failing must not starve the others, so errors are
// collected and the last one returned.
type Multi struct {
	publishers []Publisher
	log        logger.Logger
}

// NewMulti wraps the given publishers. A nil logger falls back to the default.
func NewMulti(log logger.Logger, publishers ...Publisher) *Multi {
	if log == nil {
		log = logger.Default()
	}
	return &Multi{publishers: publishers, log: log}
}

// Publish sends snap to every sink.
func (m *Multi) Publish(ctx context.Context, snap *poller.DeviceSnapshot) error {
	var last error
	for _, p := range m.publishers {
		if err := p.Publish(ctx, snap); err != nil {
			m.log.Warn("publish failed: %v", err)
			last = err
		}
	}
	return last
}

// Close closes every sink, returning the last error seen.
func (m *Multi) Close() error {
	var last error
	for _, p := range m.publishers {
		if err := p.Close(); err != nil {
			last = err
		}
	}
	return last
}

// LogPublisher writes a one-line summary of each snapshot to the logger.
// It is the always-on sink: even with Kafka and HTTP disabled, polls leave
// a trace.
type LogPublisher struct {
	log logger.Logger
}

// NewLogPublisher creates a publisher that logs snapshot summaries.
func NewLogPublisher(log logger.Logger) *LogPublisher {
	if log == nil {
		log = logger.Default()
	}
	return &LogPublisher{log: log}
}

// Publish logs a condensed view of the snapshot.
func (p *LogPublisher) Publish(_ context.Context, snap *poller.DeviceSnapshot) error {
	if !snap.Available {
		p.log.Warn("%s: unavailable", snap.Device)
		return nil
	}
	p.log.Info("%s: cpu=%s mem=%s up=%s flags=%d",
		snap.Device,
		fmtPct(snap.CPUPercent),
		fmtPct(snap.MemPercent),
		fmtSeconds(snap.UptimeSeconds),
		len(snap.HealthFlags))
	return nil
}

// Close implements Publisher.
func (p *LogPublisher) Close() error { return nil }
