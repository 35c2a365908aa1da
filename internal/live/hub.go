package live

import (
	"sync"

	"github.com/resqlink/early-warning-service/internal/domain"
	"github.com/resqlink/early-warning-service/internal/observability"
)

// subscriberBuffer is the per-topic channel capacity of a subscriber.
const subscriberBuffer = 8

type subscriber struct {
	ch     chan domain.Update
	topics map[domain.Topic]bool
}

// Hub fans updates out to stream subscribers. It remembers the last update
// of each topic and replays it to new subscribers so a freshly opened
// dashboard renders without waiting for the next change.
type Hub struct {
	mu      sync.Mutex
	subs    map[*subscriber]struct{}
	last    map[domain.Topic]domain.Update
	metrics *observability.Metrics
}

// NewHub creates an empty hub.
func NewHub(metrics *observability.Metrics) *Hub {
	return &Hub{
		subs:    make(map[*subscriber]struct{}),
		last:    make(map[domain.Topic]domain.Update),
		metrics: metrics,
	}
}

// Publish records u as the latest state of its topic and delivers it to every
// subscriber of that topic. A subscriber whose buffer is full misses the
// update.
func (h *Hub) Publish(u domain.Update) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.last[u.Topic] = u
	for s := range h.subs {
		if !s.topics[u.Topic] {
			continue
		}
		select {
		case s.ch <- u:
		default:
			h.metrics.StreamDropped.Inc()
		}
	}
}

// Subscribe registers interest in topics; no topics means all of them. The
// returned cancel func unregisters and closes the channel. It is safe to call
// more than once.
func (h *Hub) Subscribe(topics ...domain.Topic) (<-chan domain.Update, func()) {
	if len(topics) == 0 {
		topics = domain.AllTopics()
	}
	s := &subscriber{
		ch:     make(chan domain.Update, subscriberBuffer*len(topics)),
		topics: make(map[domain.Topic]bool, len(topics)),
	}
	for _, t := range topics {
		s.topics[t] = true
	}

	h.mu.Lock()
	for _, t := range topics {
		if u, ok := h.last[t]; ok {
			s.ch <- u
		}
	}
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	h.metrics.StreamSubscribers.Inc()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, s)
			close(s.ch)
			h.mu.Unlock()
			h.metrics.StreamSubscribers.Dec()
		})
	}
	return s.ch, cancel
}

// Last returns the most recent update of topic.
func (h *Hub) Last(topic domain.Topic) (domain.Update, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	u, ok := h.last[topic]
	return u, ok
}
