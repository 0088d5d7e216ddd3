package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"tickerboard/internal/domain"
	"tickerboard/internal/infra"
	"tickerboard/internal/infra/storage"
)

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config     *infra.Config
	Storage    *storage.Storage       // nil when the asset registry is disabled
	Downloader *infra.IconDownloader // nil when the asset registry is disabled

	syncMu sync.Mutex     // one SyncAssets at a time
	syncWG sync.WaitGroup // background syncs started by SyncingSource
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads the config, installs the logger and opens the asset registry.
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("Bootstrapping tickerboard...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	slog.SetDefault(infra.NewLogger(cfg))

	if !cfg.Assets.Enabled {
		slog.Info("Asset registry disabled")
		return nil
	}

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Assets.DBPath)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("Asset registry initialized", slog.String("path", cfg.Assets.DBPath))

	// 4. Initialize Icon Downloader
	downloader, err := infra.NewIconDownloader(cfg.Assets.IconDir, cfg.Assets.IconURL)
	if err != nil {
		return err
	}
	b.Downloader = downloader
	slog.Info("Icon downloader ready", slog.String("dir", cfg.Assets.IconDir))

	return nil
}

// SeedEquities registers the equity dictionary in the asset registry.
func (b *Bootstrap) SeedEquities() {
	if b.Storage == nil {
		return
	}
	for _, e := range domain.EquityDictionary {
		existing, _ := b.Storage.GetAsset(e.Symbol)
		if existing != nil {
			continue
		}
		if err := b.Storage.UpsertAsset(&domain.AssetInfo{Symbol: e.Symbol, Name: e.Name, Class: domain.ClassEquity}); err != nil {
			slog.Error("Failed to upsert equity", slog.String("symbol", e.Symbol), slog.Any("error", err))
		}
	}
}

// SyncAssets upserts catalog entries into the registry and fetches missing crypto icons,
// at most 5 at a time. Failures are logged and skipped.
func (b *Bootstrap) SyncAssets(ctx context.Context, entries []domain.CatalogEntry) {
	if b.Storage == nil {
		return
	}
	b.syncMu.Lock()
	defer b.syncMu.Unlock()

	slog.Info("Starting asset synchronization...", slog.Int("entries", len(entries)))

	known := make(map[string]domain.AssetInfo)
	existing, err := b.Storage.ListAssets("")
	if err != nil {
		slog.Warn("Failed to list registered assets", slog.Any("error", err))
	}
	for _, a := range existing {
		known[a.Symbol] = a
	}

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 5) // Limit concurrent downloads

	for rank, entry := range entries {
		wg.Add(1)
		go func(rank int, entry domain.CatalogEntry) {
			defer wg.Done()
			select {
			case <-ctx.Done():
				return
			case semaphore <- struct{}{}: // Acquire
			}
			defer func() { <-semaphore }() // Release

			class := entry.Class
			if class == "" {
				class = domain.ClassCrypto
			}
			asset := &domain.AssetInfo{
				Symbol: entry.Symbol,
				Name:   entry.Name,
				Class:  class,
				Rank:   rank + 1,
			}

			// Keep the cached icon across refreshes
			if prev, ok := known[domain.CanonicalSymbol(entry.Symbol)]; ok {
				asset.IconPath = prev.IconPath
				asset.LastSyncedAt = prev.LastSyncedAt
				asset.CreatedAt = prev.CreatedAt
			}

			if err := b.Storage.UpsertAsset(asset); err != nil {
				slog.Error("Failed to upsert asset", slog.String("symbol", entry.Symbol), slog.Any("error", err))
				return
			}

			if class != domain.ClassCrypto || b.Downloader == nil || asset.IconPath != "" {
				return
			}

			path, err := b.Downloader.DownloadIcon(entry.Symbol)
			if err != nil {
				slog.Warn("Failed to download icon", slog.String("symbol", entry.Symbol), slog.Any("error", err))
				return
			}
			asset.IconPath = path
			asset.LastSyncedAt = time.Now()
			if err := b.Storage.UpsertAsset(asset); err != nil {
				slog.Error("Failed to record icon", slog.String("symbol", entry.Symbol), slog.Any("error", err))
			}
		}(rank, entry)
	}

	wg.Wait()
	slog.Info("Asset synchronization completed")
}

// syncInBackground runs SyncAssets on its own goroutine; Close waits for it.
func (b *Bootstrap) syncInBackground(ctx context.Context, entries []domain.CatalogEntry) {
	b.syncWG.Add(1)
	go func() {
		defer b.syncWG.Done()
		b.SyncAssets(ctx, entries)
	}()
}

// AssetDirectory exposes the registry for search, or nil when it is disabled.
func (b *Bootstrap) AssetDirectory() domain.AssetDirectory {
	if b.Storage == nil {
		return nil
	}
	return b.Storage
}

// Close waits for background syncs, then releases the registry.
func (b *Bootstrap) Close() {
	b.syncWG.Wait()
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Failed to close asset registry", slog.Any("error", err))
		}
	}
}
