package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tickerboard/internal/event"
)

// Poller drives the simulated equity quotes by emitting a PollTick every interval.
type Poller struct {
	engine   *Engine
	interval time.Duration
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewPoller creates a poller. Intervals below 100ms are raised to 100ms.
func NewPoller(e *Engine, interval time.Duration) *Poller {
	if interval < 100*time.Millisecond {
		interval = 100 * time.Millisecond
	}
	return &Poller{engine: e, interval: interval}
}

// Start begins emitting ticks until ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) {
	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Quote poller stopped")
				return
			case now := <-ticker.C:
				if !p.engine.Offer(&event.PollTick{BaseEvent: event.BaseEvent{Ts: now}}) {
					slog.Warn("Engine inbox full, poll tick dropped")
				}
			}
		}
	}()
}

// Stop halts the poller and waits for its goroutine.
func (p *Poller) Stop() {
	if p.cancel != nil {
		p.cancel()
	}
	p.wg.Wait()
}
