package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/resqlink/early-warning-service/internal/config"
	"github.com/resqlink/early-warning-service/internal/domain"
)

func newWriter(brokers []string, topic string, balancer kafkago.Balancer) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     balancer,
		RequiredAcks: kafkago.RequireAll,
	}
}

// AlertWriter appends alert attempts to the audit topic.
// It implements dashboard.AlertRecorder.
type AlertWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAlertWriter creates a Kafka producer for the configured alerts topic.
func NewAlertWriter(cfg *config.Config, logger *slog.Logger) *AlertWriter {
	return &AlertWriter{writer: newWriter(cfg.KafkaBrokers, cfg.KafkaAlertsTopic, &kafkago.LeastBytes{}), logger: logger}
}

// Record publishes one audit entry keyed by alert id.
func (w *AlertWriter) Record(ctx context.Context, rec domain.AlertRecord) error {
	msg, err := serializeAlertRecord(rec)
	if err != nil {
		return err
	}
	if err := w.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write alert record: %w", err)
	}
	return nil
}

func (w *AlertWriter) Close() error {
	return w.writer.Close()
}

// serializeAlertRecord marshals an AlertRecord into a Kafka message.
func serializeAlertRecord(rec domain.AlertRecord) (kafkago.Message, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize alert record: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(rec.ID),
		Value: data,
		Time:  rec.RequestedAt,
		Headers: []kafkago.Header{
			{Key: "target", Value: []byte(rec.Target)},
			{Key: "outcome", Value: []byte(rec.Outcome)},
		},
	}, nil
}

// ChangeWriter publishes row change events to the CDC topic. The dashboard
// itself only consumes that topic; the writer backs the mock generator and
// integration tests.
type ChangeWriter struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewChangeWriter creates a Kafka producer for the configured changes topic.
func NewChangeWriter(cfg *config.Config, logger *slog.Logger) *ChangeWriter {
	return &ChangeWriter{writer: newWriter(cfg.KafkaBrokers, cfg.KafkaChangesTopic, &kafkago.Hash{}), logger: logger}
}

// Publish writes the events in a single WriteMessages call.
func (w *ChangeWriter) Publish(ctx context.Context, events ...domain.ChangeEvent) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(events))
	for i := range events {
		msg, err := serializeChangeEvent(events[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write change events: %w", err)
	}
	w.logger.Debug("published change events", "count", len(msgs))
	return nil
}

func (w *ChangeWriter) Close() error {
	return w.writer.Close()
}

// serializeChangeEvent marshals a ChangeEvent keyed by table. The writer's
// hash balancer then keeps one table's changes ordered on a single partition.
func serializeChangeEvent(ev domain.ChangeEvent) (kafkago.Message, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize change event: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(ev.Table),
		Value: data,
		Time:  ev.CommitTimestamp,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(ev.Type)},
			{Key: "commit_timestamp", Value: []byte(ev.CommitTimestamp.Format(time.RFC3339))},
		},
	}, nil
}
