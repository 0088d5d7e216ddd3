package storage

import (
	"path/filepath"
	"testing"
	"time"

	"tickerboard/internal/domain"
)

func setupTestDB(t *testing.T) *Storage {
	s, err := NewStorage(filepath.Join(t.TempDir(), "data", "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertAndGetAsset(t *testing.T) {
	s := setupTestDB(t)

	asset := &domain.AssetInfo{
		Symbol:    "btc-usd",
		Name:      "Bitcoin",
		Class:     domain.ClassCrypto,
		Rank:      1,
		UpdatedAt: time.Now(),
	}

	// 1. Create
	if err := s.UpsertAsset(asset); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}

	// 2. Get
	fetched, err := s.GetAsset("BTC-USD")
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("fetched asset is nil")
	}
	if fetched.Symbol != "BTC-USD" || fetched.Class != domain.ClassCrypto {
		t.Errorf("unexpected asset %+v", fetched)
	}
}

func TestUpdateAsset(t *testing.T) {
	s := setupTestDB(t)
	asset := &domain.AssetInfo{Symbol: "ETH-USD", Name: "Before"}
	s.UpsertAsset(asset)

	// Update
	asset.Name = "After"
	asset.IconPath = "/tmp/eth.png"
	if err := s.UpsertAsset(asset); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, _ := s.GetAsset("ETH-USD")
	if fetched.Name != "After" || fetched.IconPath != "/tmp/eth.png" {
		t.Errorf("expected updated asset, got %+v", fetched)
	}
}

func TestUpsertAssetRejectsEmptySymbol(t *testing.T) {
	s := setupTestDB(t)
	if err := s.UpsertAsset(&domain.AssetInfo{Symbol: "  "}); err != domain.ErrInvalidSymbol {
		t.Errorf("expected ErrInvalidSymbol, got %v", err)
	}
}

func TestDeleteAsset(t *testing.T) {
	s := setupTestDB(t)
	s.UpsertAsset(&domain.AssetInfo{Symbol: "DEL", Name: "Delete Me"})

	// Delete
	if err := s.DeleteAsset("del"); err != nil {
		t.Fatalf("DeleteAsset failed: %v", err)
	}

	// Verify
	fetched, err := s.GetAsset("DEL")
	if err != nil {
		t.Fatalf("GetAsset after delete failed: %v", err)
	}
	if fetched != nil {
		t.Error("expected asset to be deleted, but found record")
	}
}

func TestListAndSearchAssets(t *testing.T) {
	s := setupTestDB(t)
	for _, a := range []domain.AssetInfo{
		{Symbol: "ETH-USD", Name: "Ethereum", Class: domain.ClassCrypto, Rank: 2},
		{Symbol: "BTC-USD", Name: "Bitcoin", Class: domain.ClassCrypto, Rank: 1},
		{Symbol: "AAPL", Name: "Apple Inc.", Class: domain.ClassEquity},
	} {
		a := a
		if err := s.UpsertAsset(&a); err != nil {
			t.Fatalf("UpsertAsset failed: %v", err)
		}
	}

	crypto, err := s.ListAssets(domain.ClassCrypto)
	if err != nil {
		t.Fatalf("ListAssets failed: %v", err)
	}
	if len(crypto) != 2 || crypto[0].Symbol != "BTC-USD" {
		t.Errorf("expected BTC-USD first of 2, got %+v", crypto)
	}

	all, _ := s.ListAssets("")
	if len(all) != 3 {
		t.Errorf("expected 3 assets, got %d", len(all))
	}

	hits, err := s.SearchAssets("bit", 10)
	if err != nil {
		t.Fatalf("SearchAssets failed: %v", err)
	}
	if len(hits) != 1 || hits[0].Symbol != "BTC-USD" {
		t.Errorf("expected BTC-USD, got %+v", hits)
	}

	if hits, _ := s.SearchAssets("   ", 10); hits != nil {
		t.Errorf("blank query should return nil, got %+v", hits)
	}
}
