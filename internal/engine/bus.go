package engine

import (
	"log/slog"
	"sync"

	"tickerboard/internal/domain"
)

type subscription struct {
	id uint64
	fn domain.Observer
}

// Bus fans every table change out to all observers synchronously.
//
// Each observer gets its own copy of the table. Deliveries are serialized, so the
// initial snapshot handed to a new subscriber can never overtake a newer publish.
// An observer may unsubscribe itself (or others) from inside its callback, but must
// not call Subscribe there.
type Bus struct {
	deliverMu sync.Mutex // held while observers run
	mu        sync.Mutex // guards observers, last, nextID

	observers []subscription
	last      []domain.Instrument
	nextID    uint64
}

// NewBus creates an empty bus whose current table is empty.
func NewBus() *Bus {
	return &Bus{last: []domain.Instrument{}}
}

// Subscribe registers fn and immediately calls it with the current table.
// The returned function removes the observer; calling it twice is harmless.
func (b *Bus) Subscribe(fn domain.Observer) (unsubscribe func()) {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.observers = append(b.observers, subscription{id: id, fn: fn})
	current := b.last
	b.mu.Unlock()

	deliver(fn, current)

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(id) })
	}
}

func (b *Bus) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, s := range b.observers {
		if s.id == id {
			b.observers = append(b.observers[:i:i], b.observers[i+1:]...)
			return
		}
	}
}

// Publish stores table as current and calls every observer registered at the time of the call.
// The bus takes ownership of table.
func (b *Bus) Publish(table []domain.Instrument) {
	b.deliverMu.Lock()
	defer b.deliverMu.Unlock()

	b.mu.Lock()
	b.last = table
	observers := make([]subscription, len(b.observers))
	copy(observers, b.observers)
	b.mu.Unlock()

	for _, s := range observers {
		deliver(s.fn, table)
	}
}

// Len returns the number of registered observers.
func (b *Bus) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.observers)
}

func deliver(fn domain.Observer, table []domain.Instrument) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Observer panic recovered", slog.Any("panic", r))
		}
	}()
	fn(cloneTable(table))
}
