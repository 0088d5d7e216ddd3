package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tickerboard/internal/advisor"
	"tickerboard/internal/app"
	"tickerboard/internal/domain"
	"tickerboard/internal/engine"
	"tickerboard/internal/event"
	"tickerboard/internal/infra"
	"tickerboard/internal/infra/binance"
	"tickerboard/internal/infra/coingecko"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config")
	flag.Parse()

	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()
	bootstrap.SeedEquities()

	cfg := bootstrap.Config
	metrics := infra.GlobalMetrics
	event.Warmup()

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Engine and stream share one inbox
	inbox := make(chan event.Event, cfg.Engine.InboxSize)
	stream := binance.NewStream(cfg.API.Stream.WSURL, inbox, metrics)

	eng := engine.New(stream, engine.Options{
		Inbox:                  inbox,
		DiscontinuityThreshold: cfg.Engine.DiscontinuityThreshold,
		CorrectionThreshold:    cfg.Engine.CorrectionThreshold,
		AutoSeedCount:          cfg.Engine.AutoSeedCount,
		Assets:                 bootstrap.AssetDirectory(),
		Metrics:                metrics,
		DumpPath:               "engine_dump.json",
	})
	go eng.Run(ctx)
	slog.InfoContext(ctx, "Engine started")

	unsubscribe := eng.Subscribe(func(table []domain.Instrument) {
		slog.Debug("Board updated", slog.Int("instruments", len(table)))
	})
	defer unsubscribe()

	// 5. Default watchlist
	for _, w := range cfg.Engine.Watchlist {
		if err := eng.AddInstrument(ctx, w.Symbol, domain.ParseClass(w.Class)); err != nil {
			slog.Error("Failed to add watchlist item", slog.String("symbol", w.Symbol), slog.Any("error", err))
		}
	}
	for _, key := range cfg.API.Stream.InitialStreams {
		stream.Register(key)
	}

	// 6. Feeds
	if err := stream.Connect(ctx); err != nil {
		slog.Error("Failed to connect stream", slog.Any("error", err))
	}
	defer stream.Disconnect()

	poller := engine.NewPoller(eng, cfg.PollInterval())
	poller.Start(ctx)
	defer poller.Stop()

	source := bootstrap.SyncingSource(coingecko.NewClient(cfg.API.Catalog.URL))
	refresher := coingecko.NewRefresher(source, eng.Inbox(), cfg.API.Catalog.TopN, cfg.CatalogRefreshInterval(), metrics)
	if err := refresher.Start(ctx); err != nil {
		slog.Error("Failed to start catalog refresh", slog.Any("error", err))
	}
	defer refresher.Stop()

	// 7. Advisor
	adv, err := advisor.New(ctx, cfg.API.Gemini.APIKey, cfg.API.Gemini.Model)
	if err != nil {
		slog.Error("Advisor unavailable", slog.Any("error", err))
	} else if adv.Enabled() && cfg.RiskReportInterval() > 0 {
		go reportRisk(ctx, adv, eng, cfg.RiskReportInterval())
	}

	go reportMetrics(ctx, metrics, cfg.MetricsReportInterval())

	slog.InfoContext(ctx, "tickerboard fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal
	<-ctx.Done()

	slog.Info("Shutting down gracefully...")
	<-eng.Done()
}

func reportMetrics(ctx context.Context, m *infra.Metrics, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s := m.Snapshot()
			slog.Info("Metrics",
				slog.Uint64("events", s.EventsProcessed),
				slog.Uint64("ticks", s.TicksApplied),
				slog.Uint64("resets", s.HistoryResets),
				slog.Uint64("polls", s.PollCycles),
				slog.Uint64("dropped", s.EventsDropped),
				slog.Uint64("malformed", s.MalformedDropped),
				slog.Uint64("catalog_failures", s.CatalogFailures),
				slog.Int64("avg_latency_ns", s.AvgLatencyNs),
				slog.Int("connections", int(s.ActiveConnections)),
				slog.Int("tracked", int(s.Tracked)),
			)
		}
	}
}

func reportRisk(ctx context.Context, adv *advisor.Advisor, eng *engine.Engine, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			report := adv.AnalyzeRisk(ctx, advisor.PortfolioJSON(eng.Snapshot()))
			slog.Info("Risk report",
				slog.Float64("score", report.RiskScore),
				slog.String("volatility", report.Volatility),
				slog.String("max_drawdown", report.MaxDrawdown),
				slog.String("summary", report.Summary),
			)
		}
	}
}
