package live

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resqlink/early-warning-service/internal/domain"
	"github.com/resqlink/early-warning-service/internal/observability"
)

func update(topic domain.Topic, data any) domain.Update {
	return domain.Update{Topic: topic, Data: data, At: time.Date(2024, 7, 30, 6, 0, 0, 0, time.UTC)}
}

func TestHub_DeliversSubscribedTopicsOnly(t *testing.T) {
	h := NewHub(observability.NewMetricsForTesting())
	ch, cancel := h.Subscribe(domain.TopicMessages)
	defer cancel()

	h.Publish(update(domain.TopicSensors, "sensors"))
	h.Publish(update(domain.TopicMessages, "messages"))

	select {
	case u := <-ch:
		assert.Equal(t, domain.TopicMessages, u.Topic)
		assert.Equal(t, "messages", u.Data)
	case <-time.After(time.Second):
		t.Fatal("no update delivered")
	}
	assert.Empty(t, ch)
}

func TestHub_ReplaysLastUpdate(t *testing.T) {
	h := NewHub(observability.NewMetricsForTesting())
	h.Publish(update(domain.TopicSOS, "first"))
	h.Publish(update(domain.TopicSOS, "second"))
	h.Publish(update(domain.TopicPrediction, "prediction"))

	ch, cancel := h.Subscribe(domain.TopicSOS)
	defer cancel()

	require.Len(t, ch, 1)
	u := <-ch
	assert.Equal(t, "second", u.Data)

	last, ok := h.Last(domain.TopicPrediction)
	require.True(t, ok)
	assert.Equal(t, "prediction", last.Data)

	_, ok = h.Last(domain.TopicSensors)
	assert.False(t, ok)
}

func TestHub_AllTopicsByDefault(t *testing.T) {
	h := NewHub(observability.NewMetricsForTesting())
	ch, cancel := h.Subscribe()
	defer cancel()

	for _, topic := range domain.AllTopics() {
		h.Publish(update(topic, string(topic)))
	}
	assert.Len(t, ch, len(domain.AllTopics()))
}

func TestHub_SlowSubscriberDropsUpdates(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	h := NewHub(metrics)
	ch, cancel := h.Subscribe(domain.TopicSensors)
	defer cancel()

	for i := range subscriberBuffer + 3 {
		h.Publish(update(domain.TopicSensors, i))
	}

	assert.Len(t, ch, subscriberBuffer)
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.StreamDropped))
}

func TestHub_CancelClosesAndUnregisters(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	h := NewHub(metrics)
	ch, cancel := h.Subscribe(domain.TopicSensors)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StreamSubscribers))

	cancel()
	cancel()

	_, open := <-ch
	assert.False(t, open)
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.StreamSubscribers))

	// Publishing after cancel must not panic on the closed channel.
	h.Publish(update(domain.TopicSensors, "late"))
}
