package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"tickerboard/internal/domain"
	"tickerboard/internal/event"
	"tickerboard/internal/infra"
	"tickerboard/internal/series"

	"github.com/shopspring/decimal"
)

var (
	placeholderEquityPrice = decimal.NewFromInt(150)
	placeholderCryptoPrice = decimal.NewFromInt(100)
)

// Options tune an Engine. Zero values mean defaults.
type Options struct {
	Inbox                  chan event.Event // shared with feeds; created from InboxSize when nil
	InboxSize              int
	DiscontinuityThreshold decimal.Decimal
	CorrectionThreshold    decimal.Decimal
	AutoSeedCount          int

	// Assets backs Search with registry metadata. Nil searches the catalog and dictionary only.
	Assets domain.AssetDirectory

	Seed    int64            // 0 seeds from the clock
	Now     func() time.Time // defaults to time.Now
	Metrics *infra.Metrics   // defaults to infra.GlobalMetrics

	// DumpPath receives a JSON dump of the table when event processing panics.
	DumpPath string
}

// Engine is the single-consumer reconcile loop that owns the instrument table.
// Every mutation happens inside Run; other goroutines only enqueue events or read copies.
type Engine struct {
	inbox   chan event.Event
	table   *table
	catalog atomic.Pointer[domain.Catalog]
	bus     *Bus
	stream  domain.StreamRegistrar

	recon               *series.Reconciler
	rng                 *rand.Rand // poll walk, loop goroutine only
	now                 func() time.Time
	correctionThreshold decimal.Decimal
	autoSeedCount       int
	assets              domain.AssetDirectory
	metrics             *infra.Metrics
	dumpPath            string

	mu   sync.RWMutex // guards view; used only for external reads
	view []domain.Instrument

	done     chan struct{}
	stopOnce sync.Once
}

// New creates an engine. stream may be nil when no push feed is wired.
func New(stream domain.StreamRegistrar, opts Options) *Engine {
	if opts.InboxSize <= 0 {
		opts.InboxSize = 1024
	}
	if !opts.DiscontinuityThreshold.IsPositive() {
		opts.DiscontinuityThreshold = series.DefaultDiscontinuityThreshold
	}
	if !opts.CorrectionThreshold.IsPositive() {
		opts.CorrectionThreshold = series.DefaultCorrectionThreshold
	}
	if opts.AutoSeedCount <= 0 {
		opts.AutoSeedCount = 3
	}
	if opts.Seed == 0 {
		opts.Seed = time.Now().UnixNano()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Metrics == nil {
		opts.Metrics = infra.GlobalMetrics
	}

	recon := series.NewReconciler(series.NewSynthesizer(rand.New(rand.NewSource(opts.Seed))))
	recon.DiscontinuityThreshold = opts.DiscontinuityThreshold

	if opts.Inbox == nil {
		opts.Inbox = make(chan event.Event, opts.InboxSize)
	}

	e := &Engine{
		inbox:               opts.Inbox,
		table:               newTable(),
		bus:                 NewBus(),
		stream:              stream,
		recon:               recon,
		rng:                 rand.New(rand.NewSource(opts.Seed + 1)),
		now:                 opts.Now,
		correctionThreshold: opts.CorrectionThreshold,
		autoSeedCount:       opts.AutoSeedCount,
		assets:              opts.Assets,
		metrics:             opts.Metrics,
		dumpPath:            opts.DumpPath,
		view:                []domain.Instrument{},
		done:                make(chan struct{}),
	}
	e.catalog.Store(domain.NewCatalog(domain.ClassCrypto, nil, true))
	return e
}

// Inbox returns the event channel. Feeds send events here.
func (e *Engine) Inbox() chan<- event.Event {
	return e.inbox
}

// Run starts the main event loop. This MUST be run in a single goroutine.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("Engine started (single-consumer reconcile loop)")
	defer e.stopOnce.Do(func() { close(e.done) })

	for {
		select {
		case <-ctx.Done():
			slog.Info("Engine stopping...")
			return
		case ev := <-e.inbox:
			e.processEvent(ev)
		}
	}
}

// Done is closed when Run returns.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

func (e *Engine) processEvent(ev event.Event) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			e.metrics.RecordError()
			slog.Error("EVENT_PANIC_RECOVERED",
				slog.String("type", ev.GetType().String()),
				slog.Any("panic", r),
			)
			if e.dumpPath != "" {
				e.DumpState(e.dumpPath)
			}
		}
	}()

	var changed bool
	switch ev := ev.(type) {
	case *event.StreamTick:
		changed = e.handleStreamTick(ev)
		event.ReleaseStreamTick(ev)
	case *event.PollTick:
		changed = e.handlePoll()
	case *event.CatalogRefreshed:
		changed = e.handleCatalog(ev)
	case *event.AddInstrument:
		changed = e.handleAdd(ev.Symbol, ev.Class)
	case *event.RemoveInstrument:
		changed = e.handleRemove(ev.Symbol)
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
	}

	if changed {
		e.publish()
	}
	e.metrics.RecordEvent(time.Since(start).Nanoseconds())
}

func (e *Engine) handleAdd(symbol string, class domain.Class) bool {
	sym := domain.CanonicalSymbol(symbol)
	if sym == "" {
		slog.Debug("Ignoring add with empty symbol")
		return false
	}
	if _, ok := e.table.get(sym); ok {
		slog.Debug("Instrument already tracked", slog.String("symbol", sym))
		return false
	}

	e.table.put(e.seed(sym, class))

	if class.IsStreamed() && e.stream != nil {
		e.stream.Register(domain.StreamKey(sym))
	}

	slog.Info("Instrument added", slog.String("symbol", sym), slog.String("class", string(class)))
	return true
}

// seed builds a new instrument from the catalog, the equity dictionary, or a placeholder.
func (e *Engine) seed(sym string, class domain.Class) domain.Instrument {
	inst := domain.Instrument{
		Symbol: sym,
		Name:   sym,
		Class:  class,
		Volume: domain.PlaceholderVolume,
	}
	price := placeholderEquityPrice
	if class == domain.ClassCrypto {
		price = placeholderCryptoPrice
	}

	if entry, ok := e.Catalog().Lookup(sym); ok && entry.Price.IsPositive() {
		price = entry.Price
		inst.Name = entry.Name
		inst.Volume = volumeLabel(entry.Volume)
	} else if class == domain.ClassEquity {
		if entry, ok := domain.LookupEquity(sym); ok {
			inst.Name = entry.Name
			if entry.Price.IsPositive() {
				price = entry.Price
				inst.Volume = volumeLabel(entry.Volume)
			}
		}
	}

	return e.recon.Reset(inst, price, e.now())
}

func volumeLabel(v decimal.Decimal) string {
	if !v.IsPositive() {
		return domain.PlaceholderVolume
	}
	return domain.FormatVolume(v)
}

func (e *Engine) handleRemove(symbol string) bool {
	sym := domain.CanonicalSymbol(symbol)
	if !e.table.remove(sym) {
		slog.Debug("Remove of untracked instrument", slog.String("symbol", sym))
		return false
	}
	slog.Info("Instrument removed", slog.String("symbol", sym))
	return true
}

func (e *Engine) handleStreamTick(ev *event.StreamTick) bool {
	inst, ok := e.table.get(domain.CanonicalSymbol(ev.Symbol))
	if !ok || !inst.Class.IsStreamed() {
		// Removed instruments keep their stream; their ticks end here.
		return false
	}
	e.apply(inst, ev.Price)
	return true
}

func (e *Engine) handlePoll() bool {
	e.metrics.RecordPoll()

	changed := false
	for _, sym := range e.table.symbols() {
		inst, _ := e.table.get(sym)
		if inst.Class.IsStreamed() {
			continue
		}
		next := domain.ClampPrice(series.Step(e.rng, inst.Price, series.PollVolatility))
		e.apply(inst, next)
		changed = true
	}
	return changed
}

func (e *Engine) apply(inst domain.Instrument, price decimal.Decimal) {
	next, reset := e.recon.Apply(inst, price, e.now())
	e.table.put(next)
	e.metrics.RecordTick()
	if reset {
		e.metrics.RecordReset()
		slog.Info("Price discontinuity, history reset",
			slog.String("symbol", inst.Symbol),
			slog.String("from", inst.Price.String()),
			slog.String("to", next.Price.String()),
		)
	}
}

func (e *Engine) handleCatalog(ev *event.CatalogRefreshed) bool {
	current := e.Catalog()
	if ev.Fallback && current.Len() > 0 && !current.IsFallback() {
		// Keep the last good catalog over the hardcoded list.
		slog.Warn("Catalog refresh failed, keeping previous catalog", slog.Int("entries", current.Len()))
	} else {
		e.catalog.Store(domain.NewCatalog(ev.Class, ev.Entries, ev.Fallback))
	}
	cat := e.Catalog()

	changed := false
	if !ev.Fallback {
		changed = e.correctDrift(cat)
	}

	if e.table.countClass(cat.Class()) == 0 {
		for _, entry := range cat.Top(e.autoSeedCount) {
			if e.handleAdd(entry.Symbol, cat.Class()) {
				changed = true
			}
		}
	}
	return changed
}

// correctDrift resets every tracked instrument that strayed too far from its reference price.
func (e *Engine) correctDrift(cat *domain.Catalog) bool {
	changed := false
	for _, sym := range e.table.symbols() {
		inst, _ := e.table.get(sym)
		if inst.Class != cat.Class() {
			continue
		}
		entry, ok := cat.Lookup(sym)
		if !ok || !entry.Price.IsPositive() {
			continue
		}
		if !series.RelativeDiff(inst.Price, entry.Price).GreaterThan(e.correctionThreshold) {
			continue
		}

		next := e.recon.Reset(inst, entry.Price, e.now())
		if entry.Volume.IsPositive() {
			next.Volume = volumeLabel(entry.Volume)
		}
		e.table.put(next)
		e.metrics.RecordReset()
		changed = true

		slog.Info("Catalog drift corrected",
			slog.String("symbol", sym),
			slog.String("from", inst.Price.String()),
			slog.String("to", entry.Price.String()),
		)
	}
	return changed
}

func (e *Engine) publish() {
	snap := e.table.snapshot()

	e.mu.Lock()
	e.view = snap
	e.mu.Unlock()

	e.metrics.SetTracked(len(snap))
	e.bus.Publish(snap)
}

// Offer enqueues ev without blocking. It reports false when the inbox is full.
func (e *Engine) Offer(ev event.Event) bool {
	select {
	case e.inbox <- ev:
		return true
	default:
		e.metrics.RecordDropped()
		return false
	}
}

// send enqueues a command, waiting for room unless ctx ends or the loop has exited.
func (e *Engine) send(ctx context.Context, ev event.Event) error {
	select {
	case <-e.done:
		return domain.ErrEngineStopped
	default:
	}

	select {
	case e.inbox <- ev:
		return nil
	case <-e.done:
		return domain.ErrEngineStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AddInstrument starts tracking symbol. Adding a tracked symbol is a no-op.
func (e *Engine) AddInstrument(ctx context.Context, symbol string, class domain.Class) error {
	return e.send(ctx, &event.AddInstrument{
		BaseEvent: event.BaseEvent{Ts: e.now()},
		Symbol:    symbol,
		Class:     class,
	})
}

// RemoveInstrument stops tracking symbol. Removing an untracked symbol is a no-op.
// The stream registration for a removed crypto symbol is kept.
func (e *Engine) RemoveInstrument(ctx context.Context, symbol string) error {
	return e.send(ctx, &event.RemoveInstrument{
		BaseEvent: event.BaseEvent{Ts: e.now()},
		Symbol:    symbol,
	})
}

// Subscribe registers an observer. It is called at once with the current table.
// Do not call Subscribe from inside an observer: delivery holds the bus lock and it will deadlock.
// Unsubscribing from inside an observer is fine.
func (e *Engine) Subscribe(obs domain.Observer) (unsubscribe func()) {
	unsub := e.bus.Subscribe(obs)
	e.metrics.SetSubscribers(e.bus.Len())
	return func() {
		unsub()
		e.metrics.SetSubscribers(e.bus.Len())
	}
}

// Catalog returns the current reference catalog. Never nil.
func (e *Engine) Catalog() *domain.Catalog {
	return e.catalog.Load()
}

// Search looks up instruments by symbol or name across the catalog, the equity dictionary
// and the asset registry. Registry hits carry the catalog reference price and their icon path.
func (e *Engine) Search(query string, limit int) []domain.SearchResult {
	cat := e.Catalog()

	var registered []domain.CatalogEntry
	icons := make(map[string]string)
	if e.assets != nil {
		assets, err := e.assets.SearchAssets(query, limit)
		if err != nil {
			slog.Warn("Asset registry search failed", slog.String("query", query), slog.Any("error", err))
		}
		for _, a := range assets {
			entry := domain.CatalogEntry{Symbol: a.Symbol, Name: a.Name, Class: a.Class}
			if ref, ok := cat.Lookup(a.Symbol); ok {
				entry.Price = ref.Price
				entry.Volume = ref.Volume
			}
			registered = append(registered, entry)
			if a.IconPath != "" {
				icons[a.Symbol] = a.IconPath
			}
		}
	}

	hits := domain.Search(query, limit, cat.Entries(), domain.EquityDictionary, registered)
	out := make([]domain.SearchResult, len(hits))
	for i, h := range hits {
		out[i] = domain.SearchResult{CatalogEntry: h, IconPath: icons[h.Symbol]}
	}
	return out
}

// Snapshot returns a copy of the last published table (external read).
func (e *Engine) Snapshot() []domain.Instrument {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return cloneTable(e.view)
}

// Instrument returns a copy of one row of the last published table.
func (e *Engine) Instrument(symbol string) (domain.Instrument, bool) {
	sym := domain.CanonicalSymbol(symbol)

	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, inst := range e.view {
		if inst.Symbol == sym {
			return inst.Clone(), true
		}
	}
	return domain.Instrument{}, false
}

// DumpState writes the current table to a file (for post-mortem).
// It reads the loop-owned table, so call it only from the loop or after Run returned.
func (e *Engine) DumpState(filename string) {
	slog.Info("Dumping engine state...", slog.String("file", filename))

	data := struct {
		Catalog []domain.CatalogEntry `json:"catalog"`
		Table   []domain.Instrument   `json:"table"`
	}{
		Catalog: e.Catalog().Entries(),
		Table:   e.table.snapshot(),
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	if err := os.WriteFile(filename, b, 0644); err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", fmt.Errorf("dump %s: %w", filename, err)))
	}
}
