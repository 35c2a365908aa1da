// Package prediction produces the landslide prediction card. Two predictors
// exist: one that reads the risk flags the sensor pipeline already computed,
// and a simulated one for demos without flagged data.
package prediction

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/jonboulle/clockwork"

	"github.com/resqlink/early-warning-service/internal/domain"
)

// Predictor returns the current prediction.
type Predictor interface {
	Predict(ctx context.Context) (domain.Prediction, error)
}

// LatestReadingFunc returns the newest sensor reading, or nil when the table
// is empty.
type LatestReadingFunc func(ctx context.Context) (*domain.SensorReading, error)

// SensorPredictor derives the level from the newest reading's danger and
// alert flags.
type SensorPredictor struct {
	latest LatestReadingFunc
	clock  clockwork.Clock
}

func NewSensorPredictor(latest LatestReadingFunc, clock clockwork.Clock) *SensorPredictor {
	return &SensorPredictor{latest: latest, clock: clock}
}

func (p *SensorPredictor) Predict(ctx context.Context) (domain.Prediction, error) {
	reading, err := p.latest(ctx)
	if err != nil {
		return domain.Prediction{}, fmt.Errorf("latest reading: %w", err)
	}
	return domain.NewPrediction(domain.LevelFromReading(reading), p.clock.Now().UTC()), nil
}

// SimulatedPredictor draws danger with probability 0.6, then warning with
// probability 0.8 of the remainder, else safe.
type SimulatedPredictor struct {
	rand  func() float64
	clock clockwork.Clock
}

// NewSimulatedPredictor uses randFloat as its source of [0,1) draws; nil
// selects math/rand/v2.
func NewSimulatedPredictor(randFloat func() float64, clock clockwork.Clock) *SimulatedPredictor {
	if randFloat == nil {
		randFloat = rand.Float64
	}
	return &SimulatedPredictor{rand: randFloat, clock: clock}
}

func (p *SimulatedPredictor) Predict(_ context.Context) (domain.Prediction, error) {
	level := domain.LevelSafe
	switch {
	case p.rand() < 0.6:
		level = domain.LevelDanger
	case p.rand() < 0.8:
		level = domain.LevelWarning
	}
	return domain.NewPrediction(level, p.clock.Now().UTC()), nil
}
