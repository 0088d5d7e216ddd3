package series

import (
	"math/rand"
	"testing"
	"time"

	"tickerboard/internal/domain"
)

// stepTolerance absorbs rounding to PricePlaces.
var stepTolerance = d("0.00000001")

func TestSynthesizer_History(t *testing.T) {
	synth := NewSynthesizer(rand.New(rand.NewSource(1)))
	now := time.Date(2026, 1, 2, 15, 0, 0, 0, time.UTC)

	points := synth.History(d("100"), now)

	if len(points) != HistorySize {
		t.Fatalf("Expected %d points, got %d", HistorySize, len(points))
	}
	last := points[len(points)-1]
	if !last.Price.Equal(d("100")) || !last.Time.Equal(now) {
		t.Errorf("Last point should be (now, 100), got %+v", last)
	}
	if !points[0].Time.Equal(now.Add(-50 * time.Minute)) {
		t.Errorf("Oldest point should be 50 minutes back, got %v", points[0].Time)
	}

	band := d("0.0005") // SeedVolatility / 2
	for i := 1; i < len(points); i++ {
		if points[i].Time.Sub(points[i-1].Time) != SeedInterval {
			t.Fatalf("Points %d/%d not one minute apart", i-1, i)
		}
		// Each backward step moves at most half the volatility band.
		prev, cur := points[i-1].Price, points[i].Price
		if prev.Sub(cur).Abs().GreaterThan(cur.Mul(band).Add(stepTolerance)) {
			t.Fatalf("Step %d too large: %s -> %s", i, cur, prev)
		}
	}
}

func TestSynthesizer_ClampsNonPositive(t *testing.T) {
	synth := NewSynthesizer(rand.New(rand.NewSource(7)))

	for _, p := range []string{"0", "-10"} {
		points := synth.History(d(p), time.Now())
		for _, pt := range points {
			if pt.Price.LessThan(domain.MinPrice) {
				t.Fatalf("History(%s) produced price %s below floor", p, pt.Price)
			}
		}
	}
}

func TestStep_Bounds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	base := d("200")
	band := d("0.05") // 200 * PollVolatility / 2
	for i := 0; i < 1000; i++ {
		got := Step(rng, base, PollVolatility)
		if got.Sub(base).Abs().GreaterThan(band.Add(stepTolerance)) {
			t.Fatalf("Step out of band: %s", got)
		}
		if got.Exponent() < -PricePlaces {
			t.Fatalf("Step should round to %d places, got %s", PricePlaces, got)
		}
	}
}
