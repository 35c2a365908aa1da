package prediction

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resqlink/early-warning-service/internal/domain"
)

var now = time.Date(2024, 7, 30, 6, 0, 0, 0, time.UTC)

// draws returns a rand func yielding vals in order.
func draws(vals ...float64) func() float64 {
	i := 0
	return func() float64 {
		v := vals[i]
		i++
		return v
	}
}

func TestSimulatedPredictor(t *testing.T) {
	tests := []struct {
		name  string
		draws []float64
		want  domain.PredictionLevel
		conf  int
	}{
		{"danger", []float64{0.1}, domain.LevelDanger, 87},
		{"warning", []float64{0.7, 0.5}, domain.LevelWarning, 65},
		{"safe", []float64{0.6, 0.8}, domain.LevelSafe, 92},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewSimulatedPredictor(draws(tt.draws...), clockwork.NewFakeClockAt(now))
			got, err := p.Predict(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Level)
			assert.Equal(t, tt.conf, got.Confidence)
			assert.Equal(t, now, got.Timestamp)
		})
	}
}

func TestSensorPredictor(t *testing.T) {
	tests := []struct {
		name    string
		reading *domain.SensorReading
		want    domain.PredictionLevel
	}{
		{"empty table", nil, domain.LevelSafe},
		{"danger flag", &domain.SensorReading{Danger: true, Alert: true}, domain.LevelDanger},
		{"alert flag", &domain.SensorReading{Alert: true}, domain.LevelWarning},
		{"no flags", &domain.SensorReading{}, domain.LevelSafe},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewSensorPredictor(func(context.Context) (*domain.SensorReading, error) {
				return tt.reading, nil
			}, clockwork.NewFakeClockAt(now))
			got, err := p.Predict(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Level)
		})
	}
}

func TestSensorPredictor_Error(t *testing.T) {
	p := NewSensorPredictor(func(context.Context) (*domain.SensorReading, error) {
		return nil, errors.New("backend down")
	}, clockwork.NewFakeClockAt(now))
	_, err := p.Predict(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend down")
}

type recordingPublisher struct {
	mu      sync.Mutex
	updates []domain.Update
}

func (r *recordingPublisher) Publish(u domain.Update) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, u)
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.updates)
}

func TestTicker_CurrentIsStableBetweenTicks(t *testing.T) {
	clock := clockwork.NewFakeClockAt(now)
	tk := NewTicker(NewSimulatedPredictor(draws(0.1, 0.9, 0.9), clock), &recordingPublisher{}, 30*time.Second, clock, slog.Default())

	first, err := tk.Current(context.Background())
	require.NoError(t, err)
	again, err := tk.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, again)

	fresh, err := tk.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.LevelSafe, fresh.(domain.Prediction).Level)
}

func TestTicker_RunPublishesOnStartAndTick(t *testing.T) {
	clock := clockwork.NewFakeClockAt(now)
	pub := &recordingPublisher{}
	tk := NewTicker(NewSimulatedPredictor(draws(0.1, 0.7, 0.5), clock), pub, 30*time.Second, clock, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		tk.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return pub.count() == 1 }, time.Second, 5*time.Millisecond)

	waitCtx, waitCancel := context.WithTimeout(context.Background(), time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))

	clock.Advance(30 * time.Second)
	require.Eventually(t, func() bool { return pub.count() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, domain.TopicPrediction, pub.updates[0].Topic)
	assert.Equal(t, domain.LevelDanger, pub.updates[0].Data.(domain.Prediction).Level)
	assert.Equal(t, domain.LevelWarning, pub.updates[1].Data.(domain.Prediction).Level)

	current, err := tk.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.LevelWarning, current.Level)
}
