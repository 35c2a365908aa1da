// Package live keeps connected dashboards current. A Syncer turns change
// feed events into refetched panel state, and a Hub fans that state out to
// stream subscribers.
package live

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/resqlink/early-warning-service/internal/domain"
	"github.com/resqlink/early-warning-service/internal/observability"
)

// Feed yields row change events for the watched tables.
type Feed interface {
	Next(ctx context.Context) (domain.ChangeEvent, error)
}

// ChangeHook observes every change event before panels are refetched.
type ChangeHook interface {
	HandleChange(ctx context.Context, ev domain.ChangeEvent) error
}

// RefreshFunc refetches the state of one topic.
type RefreshFunc func(ctx context.Context) (any, error)

// Publisher receives refreshed topic state.
type Publisher interface {
	Publish(u domain.Update)
}

// Syncer drives the feed → refetch → publish loop.
type Syncer struct {
	feed      Feed
	publisher Publisher
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool

	tables    map[string][]domain.Topic
	refreshes map[domain.Topic]RefreshFunc
	order     []domain.Topic
	hooks     []ChangeHook
}

// NewSyncer creates a Syncer reading from feed and publishing to publisher.
// Register topics with Watch before calling Run.
func NewSyncer(feed Feed, publisher Publisher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Syncer {
	return &Syncer{
		feed:      feed,
		publisher: publisher,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		tables:    make(map[string][]domain.Topic),
		refreshes: make(map[domain.Topic]RefreshFunc),
	}
}

// Watch refetches topic with refresh whenever table changes. A table may
// feed several topics.
func (s *Syncer) Watch(table string, topic domain.Topic, refresh RefreshFunc) {
	if _, ok := s.refreshes[topic]; !ok {
		s.order = append(s.order, topic)
	}
	s.refreshes[topic] = refresh
	s.tables[table] = append(s.tables[table], topic)
}

// AddHook runs h for every event received from the feed.
func (s *Syncer) AddHook(h ChangeHook) {
	s.hooks = append(s.hooks, h)
}

// CheckReadiness returns nil once at least one topic has been published.
func (s *Syncer) CheckReadiness(_ context.Context) error {
	if !s.ready.Load() {
		return errors.New("syncer has not published any updates yet")
	}
	return nil
}

// Run publishes every watched topic once, then follows the feed until the
// context is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	s.logger.Info("syncer started", "topics", len(s.order))
	s.metrics.SyncerRunning.Set(1)
	defer s.metrics.SyncerRunning.Set(0)

	for _, topic := range s.order {
		s.refresh(ctx, topic)
	}

	// Exponential backoff on feed errors: start at 200ms, double, cap at 5s.
	backoff := 200 * time.Millisecond
	maxBackoff := 5 * time.Second

	for {
		ev, err := s.feed.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				s.logger.Info("syncer stopping", "reason", ctx.Err())
				return nil
			}
			s.logger.Error("change feed read failed", "error", err, "retry_in", backoff)
			if !s.sleep(ctx, backoff) {
				return nil
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = 200 * time.Millisecond
		s.handle(ctx, ev)
	}
}

// handle runs hooks, refetches the topics fed by the event's table, and
// acknowledges the event. Events for tables nobody watches are acknowledged
// and otherwise ignored.
func (s *Syncer) handle(ctx context.Context, ev domain.ChangeEvent) {
	s.metrics.ChangeEvents.WithLabelValues(ev.Table, string(ev.Type)).Inc()

	for _, h := range s.hooks {
		if err := h.HandleChange(ctx, ev); err != nil {
			s.logger.Warn("change hook failed", "error", err, "table", ev.Table, "type", ev.Type)
		}
	}

	topics, ok := s.tables[ev.Table]
	if !ok {
		s.logger.Debug("change for unwatched table", "table", ev.Table, "type", ev.Type)
	}
	for _, topic := range topics {
		s.refresh(ctx, topic)
	}
	s.commit(ctx, ev)
}

func (s *Syncer) refresh(ctx context.Context, topic domain.Topic) {
	start := s.clock.Now()
	data, err := s.refreshes[topic](ctx)
	s.metrics.RefreshDuration.WithLabelValues(string(topic)).Observe(s.clock.Since(start).Seconds())
	if err != nil {
		s.metrics.RefreshErrors.WithLabelValues(string(topic)).Inc()
		s.logger.Warn("topic refresh failed", "topic", topic, "error", err)
		return
	}

	s.publisher.Publish(domain.Update{Topic: topic, Data: data, At: s.clock.Now().UTC()})
	s.ready.Store(true)
}

// commit acknowledges the event if its source needs it. A failed refetch is
// still acknowledged: the next change refetches the whole panel anyway.
func (s *Syncer) commit(ctx context.Context, ev domain.ChangeEvent) {
	if ev.Commit == nil {
		return
	}
	if err := ev.Commit(ctx); err != nil {
		s.logger.Warn("commit change event failed", "error", err, "table", ev.Table)
	}
}

// sleep is retry.SleepWithContext on the syncer's clock.
func (s *Syncer) sleep(ctx context.Context, d time.Duration) bool {
	timer := s.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
