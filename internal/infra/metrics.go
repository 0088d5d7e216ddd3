package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	eventsProcessed  atomic.Uint64
	ticksApplied     atomic.Uint64
	historyResets    atomic.Uint64
	pollCycles       atomic.Uint64
	eventsDropped    atomic.Uint64
	malformedDropped atomic.Uint64
	catalogFailures  atomic.Uint64
	errorsTotal      atomic.Uint64

	// Latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
	trackedCount      atomic.Int32
	subscriberCount   atomic.Int32
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordEvent records an event processing with latency.
func (m *Metrics) RecordEvent(latencyNs int64) {
	m.eventsProcessed.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordTick records a price folded into a series.
func (m *Metrics) RecordTick() { m.ticksApplied.Add(1) }

// RecordReset records a history reset (discontinuity or catalog correction).
func (m *Metrics) RecordReset() { m.historyResets.Add(1) }

// RecordPoll records one poll cycle.
func (m *Metrics) RecordPoll() { m.pollCycles.Add(1) }

// RecordDropped records an event dropped because the inbox was full.
func (m *Metrics) RecordDropped() { m.eventsDropped.Add(1) }

// RecordMalformed records a feed payload that could not be decoded.
func (m *Metrics) RecordMalformed() { m.malformedDropped.Add(1) }

// RecordCatalogFailure records a failed snapshot fetch.
func (m *Metrics) RecordCatalogFailure() { m.catalogFailures.Add(1) }

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// SetTracked sets the tracked instrument gauge.
func (m *Metrics) SetTracked(n int) { m.trackedCount.Store(int32(n)) }

// SetSubscribers sets the observer gauge.
func (m *Metrics) SetSubscribers(n int) { m.subscriberCount.Store(int32(n)) }

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	EventsProcessed   uint64
	TicksApplied      uint64
	HistoryResets     uint64
	PollCycles        uint64
	EventsDropped     uint64
	MalformedDropped  uint64
	CatalogFailures   uint64
	ErrorsTotal       uint64
	AvgLatencyNs      int64
	ActiveConnections int32
	Tracked           int32
	Subscribers       int32
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		EventsProcessed:   m.eventsProcessed.Load(),
		TicksApplied:      m.ticksApplied.Load(),
		HistoryResets:     m.historyResets.Load(),
		PollCycles:        m.pollCycles.Load(),
		EventsDropped:     m.eventsDropped.Load(),
		MalformedDropped:  m.malformedDropped.Load(),
		CatalogFailures:   m.catalogFailures.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		AvgLatencyNs:      avgLatency,
		ActiveConnections: m.activeConnections.Load(),
		Tracked:           m.trackedCount.Load(),
		Subscribers:       m.subscriberCount.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.eventsProcessed.Store(0)
	m.ticksApplied.Store(0)
	m.historyResets.Store(0)
	m.pollCycles.Store(0)
	m.eventsDropped.Store(0)
	m.malformedDropped.Store(0)
	m.catalogFailures.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.activeConnections.Store(0)
	m.trackedCount.Store(0)
	m.subscriberCount.Store(0)
}
