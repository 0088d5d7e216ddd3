package event

import (
	"time"

	"tickerboard/internal/domain"

	"github.com/shopspring/decimal"
)

// Type tags an event for dispatch and logging.
type Type int

const (
	TypeStreamTick Type = iota + 1
	TypePollTick
	TypeCatalogRefreshed
	TypeAddInstrument
	TypeRemoveInstrument
)

// String returns the string representation of Type
func (t Type) String() string {
	switch t {
	case TypeStreamTick:
		return "STREAM_TICK"
	case TypePollTick:
		return "POLL_TICK"
	case TypeCatalogRefreshed:
		return "CATALOG_REFRESHED"
	case TypeAddInstrument:
		return "ADD_INSTRUMENT"
	case TypeRemoveInstrument:
		return "REMOVE_INSTRUMENT"
	default:
		return "UNKNOWN"
	}
}

// Event is anything the engine inbox accepts.
type Event interface {
	GetType() Type
	GetTs() time.Time
}

// BaseEvent carries the arrival time.
type BaseEvent struct {
	Ts time.Time
}

func (b BaseEvent) GetTs() time.Time { return b.Ts }

// StreamTick is one trade from the push feed.
type StreamTick struct {
	BaseEvent
	Symbol string
	Price  decimal.Decimal
}

func (*StreamTick) GetType() Type { return TypeStreamTick }

// PollTick asks the engine to advance every poll-driven instrument.
type PollTick struct {
	BaseEvent
}

func (*PollTick) GetType() Type { return TypePollTick }

// CatalogRefreshed carries a full replacement catalog.
// Fallback is set when the entries are the hardcoded list used after a failed fetch.
type CatalogRefreshed struct {
	BaseEvent
	Class    domain.Class
	Entries  []domain.CatalogEntry
	Fallback bool
}

func (*CatalogRefreshed) GetType() Type { return TypeCatalogRefreshed }

// AddInstrument starts tracking a symbol.
type AddInstrument struct {
	BaseEvent
	Symbol string
	Class  domain.Class
}

func (*AddInstrument) GetType() Type { return TypeAddInstrument }

// RemoveInstrument stops tracking a symbol.
type RemoveInstrument struct {
	BaseEvent
	Symbol string
}

func (*RemoveInstrument) GetType() Type { return TypeRemoveInstrument }
