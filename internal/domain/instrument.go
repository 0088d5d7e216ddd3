package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Class separates stream-driven instruments from poll-driven ones.
type Class string

const (
	ClassEquity Class = "EQUITY"
	ClassCrypto Class = "CRYPTO"
)

// ParseClass maps a loose class tag to a Class.
// Regional equity tags ("US", "HK", "CN") collapse into EQUITY.
func ParseClass(s string) Class {
	if strings.EqualFold(strings.TrimSpace(s), string(ClassCrypto)) {
		return ClassCrypto
	}
	return ClassEquity
}

// IsStreamed reports whether instruments of this class are driven by the trade stream.
func (c Class) IsStreamed() bool {
	return c == ClassCrypto
}

// PlaceholderVolume is shown when no reference volume is known.
const PlaceholderVolume = "---"

// MinPrice is the floor applied to every price before it is stored or used in a ratio.
var MinPrice = decimal.New(1, -2)

var hundred = decimal.NewFromInt(100)

// Point is a single observation in an instrument's history.
type Point struct {
	Time  time.Time       `json:"time"`
	Price decimal.Decimal `json:"price"`
}

// Equal compares time and price by value.
func (p Point) Equal(o Point) bool {
	return p.Time.Equal(o.Time) && p.Price.Equal(o.Price)
}

// Instrument is the tracked series for one symbol.
type Instrument struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Class     Class           `json:"class"`
	Price     decimal.Decimal `json:"price"`
	OpenPrice decimal.Decimal `json:"open_price"` // anchor for Change, moved only on history reset
	Change    decimal.Decimal `json:"change"`
	ChangePct decimal.Decimal `json:"change_pct"`
	Volume    string          `json:"volume"`
	History   []Point         `json:"history"` // oldest first
}

// Clone returns a deep copy so observers can never alias the engine's history.
func (i Instrument) Clone() Instrument {
	out := i
	out.History = make([]Point, len(i.History))
	copy(out.History, i.History)
	return out
}

// ChangeDirection returns "positive", "negative", or "neutral"
func (i Instrument) ChangeDirection() string {
	switch {
	case i.Change.IsPositive():
		return "positive"
	case i.Change.IsNegative():
		return "negative"
	default:
		return "neutral"
	}
}

// PercentChange calculates 100 * (price - open) / open, with open clamped to the floor.
func PercentChange(price, open decimal.Decimal) decimal.Decimal {
	open = ClampPrice(open)
	return price.Sub(open).Div(open).Mul(hundred)
}

// CanonicalSymbol normalizes user input to the table key form.
func CanonicalSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// ClampPrice forces p onto the positive floor.
func ClampPrice(p decimal.Decimal) decimal.Decimal {
	if p.LessThan(MinPrice) {
		return MinPrice
	}
	return p
}

// StreamKey returns the trade-stream channel for a crypto symbol ("BTC-USD" -> "btcusdt@trade").
func StreamKey(symbol string) string {
	base := strings.TrimSuffix(CanonicalSymbol(symbol), "-USD")
	return strings.ToLower(base) + "usdt@trade"
}

// SymbolFromPair maps a stream trading pair back to the table symbol ("BTCUSDT" -> "BTC-USD").
// It returns "" for pairs not quoted in USDT.
func SymbolFromPair(pair string) string {
	p := strings.ToUpper(strings.TrimSpace(pair))
	if !strings.HasSuffix(p, "USDT") {
		return ""
	}
	base := strings.TrimSuffix(p, "USDT")
	if base == "" {
		return ""
	}
	return base + "-USD"
}
