// Package changefeed provides a change feed for deployments without a CDC
// topic: it asks for every watched table to be refetched on a fixed period.
package changefeed

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/resqlink/early-warning-service/internal/domain"
)

// Poller emits one REFRESH event per table on every tick.
// It implements live.Feed.
type Poller struct {
	tables  []string
	ticker  clockwork.Ticker
	clock   clockwork.Clock
	pending []string
}

// NewPoller starts a ticker that fires every interval.
func NewPoller(tables []string, interval time.Duration, clock clockwork.Clock) *Poller {
	return &Poller{
		tables: append([]string(nil), tables...),
		ticker: clock.NewTicker(interval),
		clock:  clock,
	}
}

// Next returns the next refresh event, waiting for a tick when the events
// of the previous tick have been handed out.
func (p *Poller) Next(ctx context.Context) (domain.ChangeEvent, error) {
	for len(p.pending) == 0 {
		select {
		case <-ctx.Done():
			return domain.ChangeEvent{}, ctx.Err()
		case <-p.ticker.Chan():
			p.pending = append(p.pending, p.tables...)
		}
	}

	table := p.pending[0]
	p.pending = p.pending[1:]
	return domain.ChangeEvent{
		Schema:          "public",
		Table:           table,
		Type:            domain.ChangeRefresh,
		CommitTimestamp: p.clock.Now().UTC(),
	}, nil
}

func (p *Poller) Close() error {
	p.ticker.Stop()
	return nil
}
