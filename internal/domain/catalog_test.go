package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestNewCatalog(t *testing.T) {
	c := NewCatalog(ClassCrypto, []CatalogEntry{
		{Symbol: "btc-usd", Name: "Bitcoin", Price: decimal.NewFromInt(64000)},
		{Symbol: "BTC-USD", Name: "Duplicate", Price: decimal.NewFromInt(1)},
		{Symbol: "", Name: "Blank"},
		{Symbol: "eth-usd", Price: decimal.NewFromInt(3000)},
	}, false)

	if c.Len() != 2 {
		t.Fatalf("Expected 2 entries, got %d", c.Len())
	}

	btc, ok := c.Lookup("Btc-Usd")
	if !ok {
		t.Fatal("Lookup should be case-insensitive")
	}
	if btc.Name != "Bitcoin" {
		t.Errorf("First entry should win, got %q", btc.Name)
	}

	eth, _ := c.Lookup("ETH-USD")
	if eth.Name != "ETH-USD" {
		t.Errorf("Missing name should default to symbol, got %q", eth.Name)
	}
}

func TestCatalog_Top(t *testing.T) {
	c := NewCatalog(ClassCrypto, FallbackCryptoCatalog(), true)

	top := c.Top(2)
	if len(top) != 2 || top[0].Symbol != "BTC-USD" || top[1].Symbol != "ETH-USD" {
		t.Errorf("Unexpected top entries: %+v", top)
	}
	if len(c.Top(10)) != 3 {
		t.Error("Top should cap at catalog size")
	}

	top[0].Price = decimal.NewFromInt(1)
	if e, _ := c.Lookup("BTC-USD"); !e.Price.Equal(decimal.NewFromInt(90000)) {
		t.Error("Top must return a copy")
	}
	if !c.IsFallback() {
		t.Error("Expected fallback flag")
	}
}

func TestCatalog_NilSafe(t *testing.T) {
	var c *Catalog
	if c.Len() != 0 {
		t.Error("nil catalog should be empty")
	}
	if _, ok := c.Lookup("BTC-USD"); ok {
		t.Error("nil catalog lookup should miss")
	}
	if c.Entries() != nil {
		t.Error("nil catalog entries should be nil")
	}
}

func TestLookupEquity(t *testing.T) {
	aapl, ok := LookupEquity("aapl")
	if !ok || !aapl.Price.Equal(decimal.RequireFromString("189.45")) {
		t.Errorf("Default equity should carry seed price, got %+v", aapl)
	}
	tsla, ok := LookupEquity("TSLA")
	if !ok || !tsla.Price.IsZero() {
		t.Errorf("Dictionary equity should have no price, got %+v", tsla)
	}
	if _, ok := LookupEquity("ZZZZ"); ok {
		t.Error("Unknown equity should miss")
	}
}

func TestSearch(t *testing.T) {
	crypto := []CatalogEntry{
		{Symbol: "SOL-USD", Name: "Solana"},
		{Symbol: "AAVE-USD", Name: "Aave"},
	}

	got := Search("a", 10, crypto, EquityDictionary)
	if len(got) == 0 || got[0].Symbol != "AAVE-USD" {
		t.Fatalf("Symbol-prefix hits should come first, got %+v", got)
	}

	got = Search("micro", 10, crypto, EquityDictionary)
	if len(got) != 2 {
		t.Errorf("Expected MSFT and AMD by name, got %+v", got)
	}

	if len(Search("a", 1, crypto, EquityDictionary)) != 1 {
		t.Error("Limit should cap results")
	}
	if Search("  ", 5, crypto) != nil {
		t.Error("Blank query should return nil")
	}
}
