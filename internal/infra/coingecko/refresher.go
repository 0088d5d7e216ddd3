package coingecko

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tickerboard/internal/domain"
	"tickerboard/internal/event"
	"tickerboard/internal/infra"
)

// Refresher polls a catalog source and hands each result to the engine.
// A failed fetch emits the fallback catalog instead.
type Refresher struct {
	source   domain.CatalogSource
	inbox    chan<- event.Event
	metrics  *infra.Metrics
	topN     int
	interval time.Duration

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRefresher creates a refresher. metrics may be nil.
func NewRefresher(source domain.CatalogSource, inbox chan<- event.Event, topN int, interval time.Duration, metrics *infra.Metrics) *Refresher {
	if topN <= 0 {
		topN = 50
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if metrics == nil {
		metrics = infra.GlobalMetrics
	}
	return &Refresher{
		source:   source,
		inbox:    inbox,
		metrics:  metrics,
		topN:     topN,
		interval: interval,
	}
}

// Start refreshes once immediately, then every interval.
func (r *Refresher) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if rec := recover(); rec != nil {
				slog.Error("Catalog refresh panic recovered", slog.Any("panic", rec))
			}
		}()

		r.Refresh(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Catalog refresh stopped")
				return
			case <-ticker.C:
				r.Refresh(ctx)
			}
		}
	}()

	return nil
}

// Refresh fetches the catalog and enqueues the result. It blocks until the
// engine accepts the event or ctx ends.
func (r *Refresher) Refresh(ctx context.Context) {
	ev := &event.CatalogRefreshed{
		BaseEvent: event.BaseEvent{Ts: time.Now()},
		Class:     domain.ClassCrypto,
	}

	entries, err := r.source.FetchTop(ctx, r.topN)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		r.metrics.RecordCatalogFailure()
		slog.Warn("Catalog refresh failed, using fallback", slog.Any("error", err))
		ev.Entries = domain.FallbackCryptoCatalog()
		ev.Fallback = true
	} else {
		slog.Info("Catalog refreshed", slog.Int("entries", len(entries)))
		ev.Entries = entries
	}

	select {
	case r.inbox <- ev:
	case <-ctx.Done():
	}
}

// Stop stops the polling
func (r *Refresher) Stop() {
	if r.cancel != nil {
		r.cancel()
		r.wg.Wait()
	}
}
