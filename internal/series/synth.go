package series

import (
	"math/rand"
	"sync"
	"time"

	"tickerboard/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	// HistorySize is the ring capacity: 50 minutes of seed plus the current point.
	HistorySize = 51

	// SeedInterval spaces synthesized points.
	SeedInterval = time.Minute

	// SeedVolatility is the per-step relative range of the backward walk.
	SeedVolatility = 0.001

	// PollVolatility is the per-tick relative range for simulated quotes.
	PollVolatility = 0.0005

	// PricePlaces bounds the scale of simulated prices.
	PricePlaces = 8
)

// Step perturbs price by a value drawn uniformly from [-v/2, +v/2], v = price*volatility,
// rounded to PricePlaces. The result is not clamped.
func Step(rng *rand.Rand, price decimal.Decimal, volatility float64) decimal.Decimal {
	v := price.InexactFloat64() * volatility
	delta := decimal.NewFromFloat((rng.Float64() - 0.5) * v)
	return price.Add(delta).Round(PricePlaces)
}

// Synthesizer fabricates a plausible trailing history for a price.
// It is safe for concurrent use.
type Synthesizer struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSynthesizer creates a synthesizer. A nil rng seeds one from the clock.
func NewSynthesizer(rng *rand.Rand) *Synthesizer {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Synthesizer{rng: rng}
}

// History returns HistorySize points one minute apart, oldest first, the last one
// at now with value endPrice. Earlier points come from a backward random walk.
func (s *Synthesizer) History(endPrice decimal.Decimal, now time.Time) []domain.Point {
	s.mu.Lock()
	defer s.mu.Unlock()

	points := make([]domain.Point, HistorySize)
	running := domain.ClampPrice(endPrice)
	for i := HistorySize - 1; i >= 0; i-- {
		offset := time.Duration(HistorySize-1-i) * SeedInterval
		points[i] = domain.Point{Time: now.Add(-offset), Price: running}
		running = domain.ClampPrice(Step(s.rng, running, SeedVolatility))
	}
	return points
}
