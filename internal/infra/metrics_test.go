package infra

import (
	"testing"
)

func TestMetrics_RecordEvent(t *testing.T) {
	m := &Metrics{}

	m.RecordEvent(1000)
	m.RecordEvent(2000)
	m.RecordEvent(3000)

	snap := m.Snapshot()

	if snap.EventsProcessed != 3 {
		t.Errorf("Expected 3 events, got %d", snap.EventsProcessed)
	}

	// Average latency: (1000 + 2000 + 3000) / 3 = 2000
	if snap.AvgLatencyNs != 2000 {
		t.Errorf("Expected avg latency 2000, got %d", snap.AvgLatencyNs)
	}
}

func TestMetrics_Counters(t *testing.T) {
	m := &Metrics{}

	m.RecordTick()
	m.RecordTick()
	m.RecordReset()
	m.RecordPoll()
	m.RecordDropped()
	m.RecordMalformed()
	m.RecordCatalogFailure()

	snap := m.Snapshot()
	if snap.TicksApplied != 2 || snap.HistoryResets != 1 || snap.PollCycles != 1 {
		t.Errorf("Unexpected counters: %+v", snap)
	}
	if snap.EventsDropped != 1 || snap.MalformedDropped != 1 || snap.CatalogFailures != 1 {
		t.Errorf("Unexpected drop counters: %+v", snap)
	}
}

func TestMetrics_Gauges(t *testing.T) {
	m := &Metrics{}

	m.IncrementConnections()
	m.IncrementConnections()
	m.DecrementConnections()
	m.SetTracked(6)
	m.SetSubscribers(2)

	snap := m.Snapshot()
	if snap.ActiveConnections != 1 {
		t.Errorf("Expected 1 connection, got %d", snap.ActiveConnections)
	}
	if snap.Tracked != 6 || snap.Subscribers != 2 {
		t.Errorf("Unexpected gauges: %+v", snap)
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordEvent(1000)
	m.RecordError()
	m.IncrementConnections()
	m.SetTracked(3)

	m.Reset()
	snap := m.Snapshot()

	if snap.EventsProcessed != 0 {
		t.Error("Expected 0 events after reset")
	}
	if snap.ErrorsTotal != 0 {
		t.Error("Expected 0 errors after reset")
	}
	if snap.ActiveConnections != 0 || snap.Tracked != 0 {
		t.Error("Expected zero gauges after reset")
	}
}
