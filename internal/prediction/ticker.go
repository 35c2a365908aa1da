package prediction

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/resqlink/early-warning-service/internal/domain"
)

// Publisher receives the refreshed prediction.
type Publisher interface {
	Publish(u domain.Update)
}

// Ticker recomputes the prediction on a fixed interval and publishes it on
// the prediction topic. Between ticks it serves the last computed value.
type Ticker struct {
	predictor Predictor
	publisher Publisher
	interval  time.Duration
	clock     clockwork.Clock
	logger    *slog.Logger

	mu      sync.Mutex
	current *domain.Prediction
}

func NewTicker(predictor Predictor, publisher Publisher, interval time.Duration, clock clockwork.Clock, logger *slog.Logger) *Ticker {
	return &Ticker{
		predictor: predictor,
		publisher: publisher,
		interval:  interval,
		clock:     clock,
		logger:    logger,
	}
}

// Current returns the last prediction, computing one if none exists yet.
func (t *Ticker) Current(ctx context.Context) (domain.Prediction, error) {
	t.mu.Lock()
	current := t.current
	t.mu.Unlock()
	if current != nil {
		return *current, nil
	}
	return t.Recompute(ctx)
}

// Recompute asks the predictor for a fresh value and stores it.
func (t *Ticker) Recompute(ctx context.Context) (domain.Prediction, error) {
	p, err := t.predictor.Predict(ctx)
	if err != nil {
		return domain.Prediction{}, err
	}
	t.mu.Lock()
	t.current = &p
	t.mu.Unlock()
	return p, nil
}

// Refresh adapts Recompute to live.RefreshFunc.
func (t *Ticker) Refresh(ctx context.Context) (any, error) {
	return t.Recompute(ctx)
}

// Run publishes a prediction immediately and then on every tick until ctx is
// cancelled.
func (t *Ticker) Run(ctx context.Context) {
	ticker := t.clock.NewTicker(t.interval)
	defer ticker.Stop()

	t.publish(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			t.publish(ctx)
		}
	}
}

func (t *Ticker) publish(ctx context.Context) {
	p, err := t.Recompute(ctx)
	if err != nil {
		t.logger.Warn("prediction refresh failed", "error", err)
		return
	}
	t.publisher.Publish(domain.Update{Topic: domain.TopicPrediction, Data: p, At: t.clock.Now().UTC()})
}
