package engine

import (
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/events"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/trading"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// Clock is the simulated now shared by the scheduler and the order simulator.
type Clock struct {
	mu  sync.RWMutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	return &Clock{mu: sync.RWMutex{}, now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.now
}

func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = t
}

// TraceEntry records one callback invocation.
type TraceEntry struct {
	Time   time.Time        `json:"time" yaml:"time"`
	Index  int              `json:"index" yaml:"index"`
	Symbol string           `json:"symbol" yaml:"symbol"`
	Type   events.EventType `json:"type" yaml:"type"`
}

// SchedulerHooks run around every firing. Nil hooks are skipped.
type SchedulerHooks struct {
	// BeforeTick runs after the clock moved and before data is delivered.
	BeforeTick func(now time.Time)
	// AfterTick runs after the callback returned. An error aborts the run.
	AfterTick func(now time.Time, event *events.EventDefinition) error
}

// Scheduler fires events in simulated time order. Events due at the same
// time fire in registration order.
type Scheduler struct {
	events           []*events.EventDefinition
	queue            []*events.EventDefinition
	clock            *Clock
	prices           datasource.PriceReader
	column           types.PriceColumn
	ignoreUserErrors bool
	hooks            SchedulerHooks
	logger           *logger.Logger
	trace            []TraceEntry
	stopped          atomic.Bool
}

func NewScheduler(
	registered []*events.EventDefinition,
	clock *Clock,
	prices datasource.PriceReader,
	column types.PriceColumn,
	ignoreUserErrors bool,
	hooks SchedulerHooks,
	log *logger.Logger,
) *Scheduler {
	ordered := slices.Clone(registered)
	slices.SortStableFunc(ordered, func(a, b *events.EventDefinition) int {
		return a.Index - b.Index
	})

	return &Scheduler{
		events:           ordered,
		queue:            slices.Clone(ordered),
		clock:            clock,
		prices:           prices,
		column:           column,
		ignoreUserErrors: ignoreUserErrors,
		hooks:            hooks,
		logger:           log.Named("scheduler"),
		trace:            nil,
		stopped:          atomic.Bool{},
	}
}

// Stop ends the run at the next tick boundary.
func (s *Scheduler) Stop() {
	s.stopped.Store(true)
}

// Trace returns the invocations made so far.
func (s *Scheduler) Trace() []TraceEntry {
	return slices.Clone(s.trace)
}

// TotalTicks estimates the number of firings between start and horizon.
// BAR events also fire at horizon itself.
func (s *Scheduler) TotalTicks(start, horizon time.Time) int {
	total := 0

	for _, event := range s.events {
		span := horizon.Sub(start)
		if span <= 0 {
			continue
		}

		if event.Type == events.EventTypeBar {
			total += int(span/event.Resolution) + 1

			continue
		}

		total += int((span + event.Resolution - 1) / event.Resolution)
	}

	return total
}

// withinHorizon reports whether event may still fire. A BAR firing at t
// delivers [t-resolution, t), so it may fire at horizon itself.
func withinHorizon(event *events.EventDefinition, horizon time.Time) bool {
	if event.Type == events.EventTypeBar {
		return !event.NextRun.After(horizon)
	}

	return event.NextRun.Before(horizon)
}

// Init positions every event at start and runs the init callbacks in
// registration order. Any init error aborts.
func (s *Scheduler) Init(start time.Time, ts trading.TradingSystem) error {
	s.clock.Set(start)

	for _, event := range s.events {
		event.Reset(start, ts)
	}

	for _, event := range s.events {
		if err := event.RunInit(); err != nil {
			return errors.Wrapf(errors.ErrCodeUserCallbackError, err, "init of %s event for %s failed", event.Type, event.Symbol)
		}
	}

	return nil
}

// Run fires events until every NextRun reaches horizon, then runs the
// teardowns. BAR events fire once more at horizon. A callback error aborts without teardowns unless user errors
// are ignored.
func (s *Scheduler) Run(ctx context.Context, horizon time.Time) error {
	for {
		if err := ctx.Err(); err != nil {
			s.logger.Info("Backtest cancelled", zap.Time("at", s.clock.Now()))

			if teardownErr := s.teardown(); teardownErr != nil {
				return teardownErr
			}

			return err
		}

		if s.stopped.Load() {
			s.logger.Info("Backtest stopped", zap.Time("at", s.clock.Now()))

			break
		}

		s.queue = slices.DeleteFunc(s.queue, func(event *events.EventDefinition) bool {
			return !withinHorizon(event, horizon)
		})

		if len(s.queue) == 0 {
			break
		}

		slices.SortFunc(s.queue, func(a, b *events.EventDefinition) int {
			if c := a.NextRun.Compare(b.NextRun); c != 0 {
				return c
			}

			return a.Index - b.Index
		})

		due := s.queue[0]

		if err := s.fire(due); err != nil {
			return err
		}

		due.Advance()
	}

	return s.teardown()
}

func (s *Scheduler) fire(event *events.EventDefinition) error {
	now := event.NextRun
	s.clock.Set(now)

	if s.hooks.BeforeTick != nil {
		s.hooks.BeforeTick(now)
	}

	payload, ok := s.payload(event, now)
	if !ok {
		s.logger.Debug("No data yet, skipping",
			zap.String("symbol", event.Symbol),
			zap.String("type", string(event.Type)),
			zap.Time("time", now))

		return nil
	}

	s.trace = append(s.trace, TraceEntry{Time: now, Index: event.Index, Symbol: event.Symbol, Type: event.Type})

	if err := event.Fire(payload); err != nil {
		if !s.ignoreUserErrors {
			return errors.Wrapf(errors.ErrCodeUserCallbackError, err, "%s callback for %s failed at %s",
				event.Type, event.Symbol, now.Format(time.RFC3339))
		}

		s.logger.Error("Callback failed, continuing",
			zap.String("symbol", event.Symbol),
			zap.String("type", string(event.Type)),
			zap.Time("time", now),
			zap.Error(err))
	}

	if s.hooks.AfterTick != nil {
		return s.hooks.AfterTick(now, event)
	}

	return nil
}

func (s *Scheduler) payload(event *events.EventDefinition, now time.Time) (events.Payload, bool) {
	switch event.Type {
	case events.EventTypeBar:
		bar, ok := s.prices.Bar(event.Symbol, event.Resolution, now.Add(-event.Resolution), now)
		if !ok {
			return events.Payload{}, false
		}

		return events.Payload{Price: bar.Price(s.column), Bar: bar, Orderbook: types.OrderbookUpdate{}}, true
	case events.EventTypeOrderbook:
		price, ok := s.prices.PriceAt(event.Symbol, now, s.column)
		if !ok {
			return events.Payload{}, false
		}

		return events.Payload{
			Price:     price,
			Bar:       types.Bar{},
			Orderbook: types.NewPriceTickOrderbook(event.Symbol, now, price),
		}, true
	default:
		price, ok := s.prices.PriceAt(event.Symbol, now, s.column)
		if !ok {
			return events.Payload{}, false
		}

		return events.Payload{Price: price, Bar: types.Bar{}, Orderbook: types.OrderbookUpdate{}}, true
	}
}

func (s *Scheduler) teardown() error {
	for _, event := range s.events {
		if err := event.RunTeardown(); err != nil {
			if !s.ignoreUserErrors {
				return errors.Wrapf(errors.ErrCodeUserCallbackError, err, "teardown of %s event for %s failed", event.Type, event.Symbol)
			}

			s.logger.Error("Teardown failed", zap.String("symbol", event.Symbol), zap.Error(err))
		}
	}

	return nil
}
