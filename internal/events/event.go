// Package events holds strategy event definitions and their registration.
package events

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/trading"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type EventType string

const (
	EventTypePrice     EventType = "PRICE"
	EventTypeBar       EventType = "BAR"
	EventTypeOrderbook EventType = "ORDERBOOK"
)

type (
	PriceCallback     func(price float64, symbol string, state *State) error
	BarCallback       func(bar types.Bar, symbol string, state *State) error
	OrderbookCallback func(book types.OrderbookUpdate, symbol string, state *State) error
	InitCallback      func(symbol string, state *State) error
	TeardownCallback  func(state *State) error
)

// Payload is the data delivered to one firing. Only the field matching
// the event type is read.
type Payload struct {
	Price     float64
	Bar       types.Bar
	Orderbook types.OrderbookUpdate
}

// EventDefinition is one registered callback with its schedule.
type EventDefinition struct {
	// Name, when set, replaces the callback in duplicate detection.
	Name        string
	Symbol      string
	Resolution  time.Duration
	Type        EventType
	OnPrice     PriceCallback
	OnBar       BarCallback
	OnOrderbook OrderbookCallback
	Init        InitCallback
	Teardown    TeardownCallback
	// NextRun is the next simulated time the event is due. It never decreases.
	NextRun   time.Time
	Variables *Variables
	// Index is the registration order and breaks ties between events due at the same time.
	Index int
	State *State
}

// Reset positions the event at start for a new run and rebinds its state.
func (e *EventDefinition) Reset(start time.Time, ts trading.TradingSystem) {
	e.NextRun = start
	e.State = &State{
		Interface:  ts,
		Variables:  e.Variables,
		Symbol:     e.Symbol,
		Resolution: e.Resolution,
	}
}

// Schedule moves NextRun to t. Earlier times are ignored.
func (e *EventDefinition) Schedule(t time.Time) {
	if t.After(e.NextRun) {
		e.NextRun = t
	}
}

// Advance moves NextRun forward by one resolution.
func (e *EventDefinition) Advance() {
	e.NextRun = e.NextRun.Add(e.Resolution)
}

// RunInit runs the init callback, if any.
func (e *EventDefinition) RunInit() error {
	if e.Init == nil {
		return nil
	}

	return e.Init(e.Symbol, e.State)
}

// RunTeardown runs the teardown callback, if any.
func (e *EventDefinition) RunTeardown() error {
	if e.Teardown == nil {
		return nil
	}

	return e.Teardown(e.State)
}

// Fire invokes the callback matching the event type with payload.
func (e *EventDefinition) Fire(payload Payload) error {
	switch e.Type {
	case EventTypePrice:
		return e.OnPrice(payload.Price, e.Symbol, e.State)
	case EventTypeBar:
		return e.OnBar(payload.Bar, e.Symbol, e.State)
	case EventTypeOrderbook:
		return e.OnOrderbook(payload.Orderbook, e.Symbol, e.State)
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unknown event type %q", e.Type)
	}
}

// callback returns whichever callback is set, for duplicate detection.
func (e *EventDefinition) callback() any {
	switch e.Type {
	case EventTypePrice:
		return e.OnPrice
	case EventTypeBar:
		return e.OnBar
	case EventTypeOrderbook:
		return e.OnOrderbook
	default:
		return nil
	}
}
