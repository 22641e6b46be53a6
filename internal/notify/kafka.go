package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"solana-copurchase/internal/domain"
)

// SnapshotHeader carries the snapshot ID on every Kafka message.
const SnapshotHeader = "snapshot_id"

// messageWriter is the subset of *kafka.Writer used here.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes one message per candidate, keyed by token mint.
type Kafka struct {
	mu     sync.Mutex
	writer messageWriter
	topic  string
	logger zerolog.Logger
}

// NewKafka creates a Kafka notifier for topic on brokers.
func NewKafka(brokers []string, topic string, logger zerolog.Logger) *Kafka {
	return &Kafka{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
		topic:  topic,
		logger: logger,
	}
}

// Name implements Notifier.
func (k *Kafka) Name() string { return "kafka" }

// Publish writes the candidates as one batch.
func (k *Kafka) Publish(ctx context.Context, snapshotID string, candidates []domain.TokenCandidate) error {
	if len(candidates) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(candidates))
	for _, c := range candidates {
		value, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshal candidate %s: %w", c.Token, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(c.Token),
			Value:   value,
			Headers: []kafka.Header{{Key: SnapshotHeader, Value: []byte(snapshotID)}},
		})
	}

	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer == nil {
		return fmt.Errorf("kafka writer closed")
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write messages to kafka: %w", err)
	}

	k.logger.Info().
		Str("topic", k.topic).
		Str("snapshot_id", snapshotID).
		Int("messages", len(msgs)).
		Msg("published snapshot to kafka")
	return nil
}

// Close flushes and closes the writer.
func (k *Kafka) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.writer != nil {
		err := k.writer.Close()
		k.writer = nil
		return err
	}
	return nil
}
