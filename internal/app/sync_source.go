package app

import (
	"context"

	"tickerboard/internal/domain"
)

// syncingSource forwards fetches and syncs every successful result into the asset registry.
type syncingSource struct {
	domain.CatalogSource
	b *Bootstrap
}

// SyncingSource wraps src so each fetched catalog is registered in the background.
// With the registry disabled it returns src unchanged.
func (b *Bootstrap) SyncingSource(src domain.CatalogSource) domain.CatalogSource {
	if b.Storage == nil {
		return src
	}
	return syncingSource{CatalogSource: src, b: b}
}

func (s syncingSource) FetchTop(ctx context.Context, n int) ([]domain.CatalogEntry, error) {
	entries, err := s.CatalogSource.FetchTop(ctx, n)
	if err == nil {
		s.b.syncInBackground(ctx, entries)
	}
	return entries, err
}
