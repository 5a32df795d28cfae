package publish

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rileyhilliard/edgewatch/internal/config"
	"github.com/rileyhilliard/edgewatch/internal/errors"
	"github.com/rileyhilliard/edgewatch/internal/logger"
	"github.com/rileyhilliard/edgewatch/internal/poller"
)

func sampleSnapshot() *poller.DeviceSnapshot {
	cpu := 12.5
	mem := 40.0
	uptime := int64(273600)
	return &poller.DeviceSnapshot{
		ID:            "test-cycle-1",
		Device:        "lab-router",
		Timestamp:     time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		Available:     true,
		CPUPercent:    &cpu,
		MemPercent:    &mem,
		UptimeSeconds: &uptime,
	}
}

// fakeWriter records kafka messages instead of sending them.
type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaPublisherEncodesSnapshot(t *testing.T) {
	fw := &fakeWriter{}
	p := &KafkaPublisher{writer: fw, log: logger.Noop()}

	snap := sampleSnapshot()
	require.NoError(t, p.Publish(context.Background(), snap))
	require.Len(t, fw.messages, 1)

	msg := fw.messages[0]
	assert.Equal(t, "lab-router", string(msg.Key))

	var decoded poller.DeviceSnapshot
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, snap.ID, decoded.ID)
	require.NotNil(t, decoded.CPUPercent)
	assert.Equal(t, 12.5, *decoded.CPUPercent)

	// Nil fields stay absent from the wire, not zero.
	assert.NotContains(t, string(msg.Value), "firmware")

	require.NoError(t, p.Close())
	assert.True(t, fw.closed)
}

func TestKafkaPublisherWrapsWriteError(t *testing.T) {
	fw := &fakeWriter{err: assert.AnError}
	p := &KafkaPublisher{writer: fw, log: logger.Noop()}

	err := p.Publish(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrPublish))
}

func TestNewKafkaPublisherBuildsWriter(t *testing.T) {
	p := NewKafkaPublisher(config.KafkaConfig{
		Brokers: []string{"localhost:9092"},
		Topic:   "edgewatch.snapshots",
	}, logger.Noop())

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, "edgewatch.snapshots", w.Topic)
	require.NoError(t, p.Close())
}

func TestMultiFansOutAndCollectsErrors(t *testing.T) {
	log := logger.NewBufferLogger()
	good := &recordingPublisher{}
	bad := &recordingPublisher{err: assert.AnError}
	m := NewMulti(log, bad, good)

	err := m.Publish(context.Background(), sampleSnapshot())
	require.Error(t, err)
	assert.Equal(t, 1, good.calls) // bad sink does not starve good one
	assert.True(t, log.HasLevel("warn"))

	require.NoError(t, m.Close())
	assert.True(t, good.closed)
}

type recordingPublisher struct {
	calls  int
	err    error
	closed bool
}

func (r *recordingPublisher) Publish(context.Context, *poller.DeviceSnapshot) error {
	r.calls++
	return r.err
}

func (r *recordingPublisher) Close() error {
	r.closed = true
	return nil
}

func TestLogPublisher(t *testing.T) {
	log := logger.NewBufferLogger()
	p := NewLogPublisher(log)

	require.NoError(t, p.Publish(context.Background(), sampleSnapshot()))
	require.Len(t, log.Messages, 1)
	assert.Equal(t, "info", log.Messages[0].Level)
	assert.Contains(t, log.Messages[0].Message, "cpu=12.5%")
	assert.Contains(t, log.Messages[0].Message, "76h0m0s")

	log.Clear()
	down := sampleSnapshot()
	down.Available = false
	require.NoError(t, p.Publish(context.Background(), down))
	assert.True(t, log.HasLevel("warn"))
}

// stubSource feeds the HTTP server a fixed snapshot.
type stubSource struct {
	snap *poller.DeviceSnapshot
}

func (s *stubSource) Last() *poller.DeviceSnapshot { return s.snap }

func TestHTTPSnapshotEndpoint(t *testing.T) {
	src := &stubSource{snap: sampleSnapshot()}
	srv := NewServer(config.HTTPConfig{Listen: "127.0.0.1:0"}, src, logger.Noop())

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var decoded poller.DeviceSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	assert.Equal(t, "lab-router", decoded.Device)
}

func TestHTTPSnapshotBeforeFirstPoll(t *testing.T) {
	srv := NewServer(config.HTTPConfig{Listen: "127.0.0.1:0"}, &stubSource{}, logger.Noop())

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/snapshot")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHTTPHealthz(t *testing.T) {
	src := &stubSource{snap: sampleSnapshot()}
	srv := NewServer(config.HTTPConfig{Listen: "127.0.0.1:0"}, src, logger.Noop())

	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	src.snap.Available = false
	resp, err = http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestFormatRate(t *testing.T) {
	assert.Equal(t, "512 B/s", FormatRate(512))
	assert.Equal(t, "1.5 KiB/s", FormatRate(1536))
	assert.Equal(t, "2.0 MiB/s", FormatRate(2<<20))
}
