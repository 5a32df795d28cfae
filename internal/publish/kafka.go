package publish

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"github.com/rileyhilliard/edgewatch/internal/config"
	"github.com/rileyhilliard/edgewatch/internal/errors"
	"github.com/rileyhilliard/edgewatch/internal/logger"
	"github.com/rileyhilliard/edgewatch/internal/poller"
)

// messageWriter is the slice of kafka.Writer the publisher needs, split out
// so tests can substitute a recorder.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher sends each snapshot as one JSON message. Messages are keyed
// by device name so a topic carrying several devices keeps per-device
// ordering within a partition.
type KafkaPublisher struct {
	writer messageWriter
	log    logger.Logger
}

// NewKafkaPublisher creates a publisher writing to the configured brokers and
// topic. The writer connects lazily on first publish.
func NewKafkaPublisher(cfg config.KafkaConfig, log logger.Logger) *KafkaPublisher {
	if log == nil {
		log = logger.Default()
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.Brokers...),
		Topic:    cfg.Topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaPublisher{writer: writer, log: log}
}

// Publish encodes the snapshot and writes it to the topic.
func (p *KafkaPublisher) Publish(ctx context.Context, snap *poller.DeviceSnapshot) error {
	value, err := json.Marshal(snap)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrPublish, "Failed to encode snapshot", "")
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(snap.Device),
		Value: value,
	})
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrPublish,
			"Failed to publish snapshot to Kafka",
			"Check that the configured brokers are reachable")
	}

	p.log.Debug("published snapshot %s for %s", snap.ID, snap.Device)
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
