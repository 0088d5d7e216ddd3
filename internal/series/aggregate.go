package series

import (
	"time"

	"tickerboard/internal/domain"

	"github.com/shopspring/decimal"
)

var (
	DefaultDiscontinuityThreshold = decimal.RequireFromString("0.20")
	DefaultCorrectionThreshold    = decimal.RequireFromString("0.10")
)

// Reconciler folds incoming prices into an instrument series.
type Reconciler struct {
	Synth *Synthesizer

	// A relative jump above this is treated as a source switch, not a market move.
	DiscontinuityThreshold decimal.Decimal
}

// NewReconciler returns a reconciler with the default threshold.
func NewReconciler(synth *Synthesizer) *Reconciler {
	return &Reconciler{Synth: synth, DiscontinuityThreshold: DefaultDiscontinuityThreshold}
}

// RelativeDiff returns |a-b|/b, with b clamped to the price floor.
func RelativeDiff(a, b decimal.Decimal) decimal.Decimal {
	return a.Sub(b).Abs().Div(domain.ClampPrice(b))
}

// IsDiscontinuity reports whether moving from current to next must reset history.
// A move of exactly the threshold is not a discontinuity.
func (r *Reconciler) IsDiscontinuity(current, next decimal.Decimal) bool {
	if !current.IsPositive() {
		return false
	}
	return RelativeDiff(next, current).GreaterThan(r.DiscontinuityThreshold)
}

// Apply returns inst updated with price observed at now. The input is not modified.
// The bool result is true when the update reset the history.
func (r *Reconciler) Apply(inst domain.Instrument, price decimal.Decimal, now time.Time) (domain.Instrument, bool) {
	price = domain.ClampPrice(price)

	if r.IsDiscontinuity(inst.Price, price) {
		return r.Reset(inst, price, now), true
	}

	n := len(inst.History) + 1
	drop := 0
	if n > HistorySize {
		drop = n - HistorySize
		n = HistorySize
	}
	history := make([]domain.Point, 0, n)
	history = append(history, inst.History[drop:]...)
	history = append(history, domain.Point{Time: now, Price: price})

	out := inst
	out.History = history
	if !out.OpenPrice.IsPositive() {
		out.OpenPrice = history[0].Price
	}
	recompute(&out, price)
	return out, false
}

// Reset discards the history of inst and synthesizes a fresh one ending at price.
// The open anchor moves to the oldest synthesized point.
func (r *Reconciler) Reset(inst domain.Instrument, price decimal.Decimal, now time.Time) domain.Instrument {
	price = domain.ClampPrice(price)

	out := inst
	out.History = r.Synth.History(price, now)
	out.OpenPrice = out.History[0].Price
	recompute(&out, price)
	return out
}

func recompute(inst *domain.Instrument, price decimal.Decimal) {
	open := domain.ClampPrice(inst.OpenPrice)
	inst.Change = price.Sub(open)
	inst.ChangePct = domain.PercentChange(price, open)
	inst.Price = price
}
