package engine

import "tickerboard/internal/domain"

// table is the tracked instrument set. Insertion order is display order.
// It is owned by the engine loop and never locked.
type table struct {
	order []string
	rows  map[string]domain.Instrument
}

func newTable() *table {
	return &table{rows: make(map[string]domain.Instrument)}
}

func (t *table) get(symbol string) (domain.Instrument, bool) {
	inst, ok := t.rows[symbol]
	return inst, ok
}

// put inserts inst at the end, or replaces it in place when already tracked.
func (t *table) put(inst domain.Instrument) {
	if _, ok := t.rows[inst.Symbol]; !ok {
		t.order = append(t.order, inst.Symbol)
	}
	t.rows[inst.Symbol] = inst
}

func (t *table) remove(symbol string) bool {
	if _, ok := t.rows[symbol]; !ok {
		return false
	}
	delete(t.rows, symbol)
	for i, s := range t.order {
		if s == symbol {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

func (t *table) len() int { return len(t.order) }

// symbols returns a copy of the keys in display order.
func (t *table) symbols() []string {
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

func (t *table) countClass(c domain.Class) int {
	n := 0
	for _, inst := range t.rows {
		if inst.Class == c {
			n++
		}
	}
	return n
}

// snapshot deep-copies the table in display order.
func (t *table) snapshot() []domain.Instrument {
	out := make([]domain.Instrument, 0, len(t.order))
	for _, s := range t.order {
		out = append(out, t.rows[s].Clone())
	}
	return out
}

func cloneTable(in []domain.Instrument) []domain.Instrument {
	out := make([]domain.Instrument, len(in))
	for i, inst := range in {
		out[i] = inst.Clone()
	}
	return out
}
