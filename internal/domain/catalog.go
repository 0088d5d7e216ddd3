package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CatalogEntry is reference data for one instrument. Ticks never mutate it.
type CatalogEntry struct {
	Symbol string          `json:"symbol"`
	Name   string          `json:"name"`
	Class  Class           `json:"class"`
	Price  decimal.Decimal `json:"price"`  // reference price, zero when unknown
	Volume decimal.Decimal `json:"volume"` // reference 24h volume, zero when unknown
}

// SearchResult is one autocomplete hit. IconPath is set when the asset registry has a cached icon.
type SearchResult struct {
	CatalogEntry
	IconPath string `json:"icon_path,omitempty"`
}

// Catalog is an immutable snapshot of reference entries for a single class.
// A refresh builds a new Catalog and swaps it in; nobody edits one in place.
type Catalog struct {
	class    Class
	fallback bool
	entries  []CatalogEntry
	index    map[string]int
}

// NewCatalog copies entries into a new catalog keyed by canonical symbol.
// Later duplicates of a symbol are ignored.
func NewCatalog(class Class, entries []CatalogEntry, fallback bool) *Catalog {
	c := &Catalog{
		class:    class,
		fallback: fallback,
		entries:  make([]CatalogEntry, 0, len(entries)),
		index:    make(map[string]int, len(entries)),
	}
	for _, e := range entries {
		e.Symbol = CanonicalSymbol(e.Symbol)
		if e.Symbol == "" {
			continue
		}
		if _, dup := c.index[e.Symbol]; dup {
			continue
		}
		if e.Name == "" {
			e.Name = e.Symbol
		}
		c.index[e.Symbol] = len(c.entries)
		c.entries = append(c.entries, e)
	}
	return c
}

// Class returns the class every entry in the catalog belongs to.
func (c *Catalog) Class() Class { return c.class }

// IsFallback reports whether the catalog came from the hardcoded list.
func (c *Catalog) IsFallback() bool { return c.fallback }

// Len returns the number of entries.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

// Lookup finds an entry by symbol (case-insensitive).
func (c *Catalog) Lookup(symbol string) (CatalogEntry, bool) {
	if c == nil {
		return CatalogEntry{}, false
	}
	i, ok := c.index[CanonicalSymbol(symbol)]
	if !ok {
		return CatalogEntry{}, false
	}
	return c.entries[i], true
}

// Entries returns a copy of all entries in rank order.
func (c *Catalog) Entries() []CatalogEntry {
	return c.Top(c.Len())
}

// Top returns a copy of the first n entries.
func (c *Catalog) Top(n int) []CatalogEntry {
	if c == nil || n <= 0 {
		return nil
	}
	if n > len(c.entries) {
		n = len(c.entries)
	}
	out := make([]CatalogEntry, n)
	copy(out, c.entries[:n])
	return out
}

// FallbackCryptoCatalog is used when the snapshot source cannot be reached.
func FallbackCryptoCatalog() []CatalogEntry {
	return []CatalogEntry{
		{Symbol: "BTC-USD", Name: "Bitcoin", Class: ClassCrypto, Price: decimal.NewFromInt(90000)},
		{Symbol: "ETH-USD", Name: "Ethereum", Class: ClassCrypto, Price: decimal.NewFromInt(3000)},
		{Symbol: "SOL-USD", Name: "Solana", Class: ClassCrypto, Price: decimal.NewFromInt(150)},
	}
}

// EquityDictionary is the static list of searchable equities. Prices are unknown.
var EquityDictionary = []CatalogEntry{
	{Symbol: "AAPL", Name: "Apple Inc.", Class: ClassEquity},
	{Symbol: "MSFT", Name: "Microsoft Corp.", Class: ClassEquity},
	{Symbol: "GOOGL", Name: "Alphabet Inc.", Class: ClassEquity},
	{Symbol: "AMZN", Name: "Amazon.com Inc.", Class: ClassEquity},
	{Symbol: "NVDA", Name: "NVIDIA Corp.", Class: ClassEquity},
	{Symbol: "TSLA", Name: "Tesla Inc.", Class: ClassEquity},
	{Symbol: "META", Name: "Meta Platforms", Class: ClassEquity},
	{Symbol: "NFLX", Name: "Netflix Inc.", Class: ClassEquity},
	{Symbol: "AMD", Name: "Advanced Micro Devices", Class: ClassEquity},
}

// DefaultEquities seeds the board on startup.
var DefaultEquities = []CatalogEntry{
	{Symbol: "AAPL", Name: "Apple Inc.", Class: ClassEquity, Price: decimal.RequireFromString("189.45"), Volume: decimal.NewFromInt(45_200_000)},
	{Symbol: "NVDA", Name: "NVIDIA Corp", Class: ClassEquity, Price: decimal.RequireFromString("875.30"), Volume: decimal.NewFromInt(32_100_000)},
	{Symbol: "MSFT", Name: "Microsoft", Class: ClassEquity, Price: decimal.RequireFromString("420.10"), Volume: decimal.NewFromInt(18_500_000)},
}

// LookupEquity finds a dictionary or default equity by symbol.
// Default entries win because they carry seed prices.
func LookupEquity(symbol string) (CatalogEntry, bool) {
	sym := CanonicalSymbol(symbol)
	for _, e := range DefaultEquities {
		if e.Symbol == sym {
			return e, true
		}
	}
	for _, e := range EquityDictionary {
		if e.Symbol == sym {
			return e, true
		}
	}
	return CatalogEntry{}, false
}

// Search matches query against symbol and name of every entry, symbol-prefix hits first.
func Search(query string, limit int, sources ...[]CatalogEntry) []CatalogEntry {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" || limit <= 0 {
		return nil
	}

	var prefix, rest []CatalogEntry
	seen := make(map[string]bool)
	for _, src := range sources {
		for _, e := range src {
			if seen[e.Symbol] {
				continue
			}
			sym := strings.ToLower(e.Symbol)
			switch {
			case strings.HasPrefix(sym, q):
				prefix = append(prefix, e)
			case strings.Contains(sym, q) || strings.Contains(strings.ToLower(e.Name), q):
				rest = append(rest, e)
			default:
				continue
			}
			seen[e.Symbol] = true
		}
	}

	out := append(prefix, rest...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
