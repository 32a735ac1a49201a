package events

import (
	"reflect"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// DefaultOrderbookResolution is used by AddOrderbookEvent unless WithResolution is given.
const DefaultOrderbookResolution = time.Minute

// Option customizes an event at registration time.
type Option func(*EventDefinition)

// WithInit runs fn once before the first firing.
func WithInit(fn InitCallback) Option {
	return func(e *EventDefinition) {
		e.Init = fn
	}
}

// WithTeardown runs fn once after the last firing.
func WithTeardown(fn TeardownCallback) Option {
	return func(e *EventDefinition) {
		e.Teardown = fn
	}
}

// WithVariables seeds the event's variables.
func WithVariables(initial map[string]any) Option {
	return func(e *EventDefinition) {
		e.Variables = NewVariables(initial)
	}
}

// WithResolution overrides the event resolution.
func WithResolution(resolution time.Duration) Option {
	return func(e *EventDefinition) {
		e.Resolution = resolution
	}
}

// WithName keys the event by name instead of by its callback. Closures
// built by the same function share one callback, so give each a name to
// register them side by side.
func WithName(name string) Option {
	return func(e *EventDefinition) {
		e.Name = name
	}
}

type eventKey struct {
	name       string
	callback   uintptr
	symbol     string
	resolution time.Duration
	eventType  EventType
}

// Registry collects event definitions in registration order.
type Registry struct {
	mu     sync.Mutex
	events []*EventDefinition
	keys   map[eventKey]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		mu:     sync.Mutex{},
		events: nil,
		keys:   make(map[eventKey]struct{}),
	}
}

// AddPriceEvent registers cb to receive the price of symbol every resolution.
// Registering the same callback code twice for one symbol and resolution is
// ErrCodeDuplicateEvent, even for distinct closures, unless WithName tells
// them apart. The same holds for the other Add methods.
func (r *Registry) AddPriceEvent(cb PriceCallback, symbol string, resolution time.Duration, opts ...Option) (*EventDefinition, error) {
	event := newEvent(symbol, resolution, EventTypePrice)
	event.OnPrice = cb

	return r.add(event, cb == nil, opts)
}

// AddBarEvent registers cb to receive the bar closed over each resolution.
func (r *Registry) AddBarEvent(cb BarCallback, symbol string, resolution time.Duration, opts ...Option) (*EventDefinition, error) {
	event := newEvent(symbol, resolution, EventTypeBar)
	event.OnBar = cb

	return r.add(event, cb == nil, opts)
}

// AddOrderbookEvent registers cb to receive orderbook updates for symbol.
func (r *Registry) AddOrderbookEvent(cb OrderbookCallback, symbol string, opts ...Option) (*EventDefinition, error) {
	event := newEvent(symbol, DefaultOrderbookResolution, EventTypeOrderbook)
	event.OnOrderbook = cb

	return r.add(event, cb == nil, opts)
}

// Events returns the registered events in registration order.
func (r *Registry) Events() []*EventDefinition {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*EventDefinition, len(r.events))
	copy(out, r.events)

	return out
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.events)
}

// Symbols returns every (symbol, resolution) pair that needs price data.
func (r *Registry) Symbols() map[string][]time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string][]time.Duration)

	for _, event := range r.events {
		found := false

		for _, res := range out[event.Symbol] {
			if res == event.Resolution {
				found = true

				break
			}
		}

		if !found {
			out[event.Symbol] = append(out[event.Symbol], event.Resolution)
		}
	}

	return out
}

func (r *Registry) add(event *EventDefinition, nilCallback bool, opts []Option) (*EventDefinition, error) {
	for _, opt := range opts {
		opt(event)
	}

	if nilCallback {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "callback is required")
	}

	if err := validateSymbol(event.Symbol); err != nil {
		return nil, err
	}

	if err := ValidateResolution(event.Resolution); err != nil {
		return nil, err
	}

	key := eventKey{
		name:       event.Name,
		callback:   0,
		symbol:     event.Symbol,
		resolution: event.Resolution,
		eventType:  event.Type,
	}

	if event.Name == "" {
		key.callback = reflect.ValueOf(event.callback()).Pointer()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.keys[key]; ok {
		return nil, errors.Newf(errors.ErrCodeDuplicateEvent,
			"%s event for %s at %s is already registered", event.Type, event.Symbol, event.Resolution)
	}

	event.Index = len(r.events)
	r.keys[key] = struct{}{}
	r.events = append(r.events, event)

	return event, nil
}

// ValidateResolution rejects resolutions under one second or with sub-second precision.
func ValidateResolution(resolution time.Duration) error {
	if resolution < time.Second || resolution%time.Second != 0 {
		return errors.Newf(errors.ErrCodeInvalidResolution,
			"resolution must be a whole number of seconds and at least 1s, got %s", resolution)
	}

	return nil
}

func validateSymbol(symbol string) error {
	if symbol == "" {
		return errors.New(errors.ErrCodeInvalidParameter, "symbol is required")
	}

	if _, _, err := types.SplitSymbol(symbol); err != nil {
		return err
	}

	return nil
}

func newEvent(symbol string, resolution time.Duration, eventType EventType) *EventDefinition {
	return &EventDefinition{
		Name:        "",
		Symbol:      symbol,
		Resolution:  resolution,
		Type:        eventType,
		OnPrice:     nil,
		OnBar:       nil,
		OnOrderbook: nil,
		Init:        nil,
		Teardown:    nil,
		NextRun:     time.Time{},
		Variables:   NewVariables(nil),
		Index:       0,
		State:       nil,
	}
}
