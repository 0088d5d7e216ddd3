package engine

import (
	"testing"

	"tickerboard/internal/domain"

	"github.com/shopspring/decimal"
)

func TestBus_UnsubscribeInsideCallback(t *testing.T) {
	b := NewBus()

	var aCalls, bCalls int
	var unsubA func()
	unsubA = b.Subscribe(func(table []domain.Instrument) {
		aCalls++
		if len(table) > 0 {
			unsubA()
		}
	})
	b.Subscribe(func(table []domain.Instrument) {
		bCalls++
	})

	table := []domain.Instrument{{Symbol: "AAPL", History: []domain.Point{{Price: decimal.NewFromInt(1)}}}}
	b.Publish(table)
	b.Publish(cloneTable(table))

	if aCalls != 2 {
		t.Errorf("Expected observer A called twice (initial + first publish), got %d", aCalls)
	}
	if bCalls != 3 {
		t.Errorf("Expected observer B called 3 times, got %d", bCalls)
	}
	if b.Len() != 1 {
		t.Errorf("Expected 1 observer left, got %d", b.Len())
	}
}

func TestBus_ObserverPanicDoesNotStopDelivery(t *testing.T) {
	b := NewBus()
	b.Subscribe(func(table []domain.Instrument) {
		if len(table) > 0 {
			panic("boom")
		}
	})

	var got []domain.Instrument
	b.Subscribe(func(table []domain.Instrument) { got = table })

	b.Publish([]domain.Instrument{{Symbol: "NVDA"}})

	if len(got) != 1 || got[0].Symbol != "NVDA" {
		t.Errorf("Second observer should still receive the table, got %v", got)
	}
}

func TestBus_EachObserverGetsOwnCopy(t *testing.T) {
	b := NewBus()

	var first, second []domain.Instrument
	b.Subscribe(func(table []domain.Instrument) { first = table })
	b.Subscribe(func(table []domain.Instrument) { second = table })

	b.Publish([]domain.Instrument{{Symbol: "MSFT", History: []domain.Point{{Price: decimal.NewFromInt(10)}}}})

	first[0].History[0].Price = decimal.NewFromInt(99)
	if !second[0].History[0].Price.Equal(decimal.NewFromInt(10)) {
		t.Error("Observers should not share history slices")
	}
}

func TestBus_UnsubscribeTwice(t *testing.T) {
	b := NewBus()
	unsub := b.Subscribe(func([]domain.Instrument) {})
	b.Subscribe(func([]domain.Instrument) {})

	unsub()
	unsub()

	if b.Len() != 1 {
		t.Errorf("Expected 1 observer, got %d", b.Len())
	}
}
