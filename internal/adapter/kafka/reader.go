package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/resqlink/early-warning-service/internal/config"
	"github.com/resqlink/early-warning-service/internal/domain"
)

// ChangeReader consumes row change events from the CDC topic.
// It implements live.Feed.
type ChangeReader struct {
	reader *kafkago.Reader
	logger *slog.Logger
}

// NewChangeReader creates a consumer-group reader for the changes topic.
func NewChangeReader(cfg *config.Config, logger *slog.Logger) *ChangeReader {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaChangesTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  500 * time.Millisecond,
	})
	return &ChangeReader{reader: r, logger: logger}
}

// Next blocks until a decodable change event arrives. Messages that cannot be
// decoded are logged and committed so they do not block the partition.
// The returned event's Commit acknowledges its offset.
func (r *ChangeReader) Next(ctx context.Context) (domain.ChangeEvent, error) {
	for {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			return domain.ChangeEvent{}, fmt.Errorf("fetch change message: %w", err)
		}

		ev, err := mapMessageToChangeEvent(msg)
		if err != nil {
			r.logger.Warn("skipping undecodable change message",
				"error", err,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			if err := r.reader.CommitMessages(ctx, msg); err != nil {
				return domain.ChangeEvent{}, fmt.Errorf("commit skipped message: %w", err)
			}
			continue
		}

		ev.Commit = func(ctx context.Context) error {
			return r.reader.CommitMessages(ctx, msg)
		}
		return ev, nil
	}
}

func (r *ChangeReader) Close() error {
	return r.reader.Close()
}

// mapMessageToChangeEvent decodes a message value. The message time stands
// in for a missing commit timestamp.
func mapMessageToChangeEvent(msg kafkago.Message) (domain.ChangeEvent, error) {
	ev, err := domain.ParseChangeEvent(msg.Value)
	if err != nil {
		return domain.ChangeEvent{}, err
	}
	if ev.CommitTimestamp.IsZero() {
		ev.CommitTimestamp = msg.Time
	}
	return ev, nil
}
