package domain

import (
	"context"
)

// StreamRegistrar adds channels to the push feed. Registering a known key is a no-op.
type StreamRegistrar interface {
	Register(key string)
}

// StreamWorker is the push feed connector.
type StreamWorker interface {
	StreamRegistrar
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
}

// CatalogSource fetches the top-N reference entries.
type CatalogSource interface {
	FetchTop(ctx context.Context, n int) ([]CatalogEntry, error)
}

// Observer receives a full, immutable copy of the table after every mutation.
type Observer func(table []Instrument)

// AssetDirectory searches registry metadata (names, icons) for autocomplete.
type AssetDirectory interface {
	SearchAssets(query string, limit int) ([]AssetInfo, error)
}
