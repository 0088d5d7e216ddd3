package event

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// streamTickPool recycles StreamTick events on the trade-stream hot path.
//
// Usage:
//
//	ev := AcquireStreamTick()
//	ev.Symbol = "BTC-USD"
//	// ... send to the engine ...
//	ReleaseStreamTick(ev) // the engine releases after processing
var streamTickPool = sync.Pool{
	New: func() interface{} {
		return &StreamTick{}
	},
}

// AcquireStreamTick gets a StreamTick from the pool.
// The returned event has zero values and must be initialized.
func AcquireStreamTick() *StreamTick {
	return streamTickPool.Get().(*StreamTick)
}

// ReleaseStreamTick returns a StreamTick to the pool.
// The event is reset to zero values before being pooled.
func ReleaseStreamTick(ev *StreamTick) {
	if ev == nil {
		return
	}
	ev.Ts = time.Time{}
	ev.Symbol = ""
	ev.Price = decimal.Zero

	streamTickPool.Put(ev)
}

// Warmup pre-allocates tick objects to reduce GC pressure at startup.
func Warmup() {
	const batchSize = 256

	evs := make([]*StreamTick, 0, batchSize)
	for i := 0; i < batchSize; i++ {
		evs = append(evs, AcquireStreamTick())
	}
	for _, ev := range evs {
		ReleaseStreamTick(ev)
	}
}
