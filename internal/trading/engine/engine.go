package engine

import (
	"context"
	"encoding/json"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/rxtech-lab/argo-backtest/internal/events"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/exchange"
)

// Lifecycle callback types for live trading phases.
// All callbacks with error return can abort execution if they return an error.

// OnEngineStartCallback is called once every init callback succeeded.
type OnEngineStartCallback func(symbols []string) error

// OnEngineStopCallback is called when the engine stops (always called via defer).
type OnEngineStopCallback func(err error)

// OnTickCallback is called after each delivered event. Calls are serialized.
type OnTickCallback func(event *events.EventDefinition, at time.Time) error

// OnErrorCallback is called when a non-fatal error occurs, such as a failed price fetch.
type OnErrorCallback func(err error)

// OnStrategyErrorCallback is called when a callback fails and user errors are ignored.
type OnStrategyErrorCallback func(event *events.EventDefinition, err error)

// LiveTradingCallbacks holds all lifecycle callback functions for the live trading engine.
// All fields are pointers - nil means no callback will be invoked.
type LiveTradingCallbacks struct {
	OnEngineStart   *OnEngineStartCallback
	OnEngineStop    *OnEngineStopCallback
	OnTick          *OnTickCallback
	OnError         *OnErrorCallback
	OnStrategyError *OnStrategyErrorCallback
}

// LiveTradingEngineConfig holds the configuration for the live trading engine.
type LiveTradingEngineConfig struct {
	// UsePrice is the bar column delivered as the price of BAR events.
	UsePrice types.PriceColumn `json:"use_price" yaml:"use_price" jsonschema:"description=OHLC column used as the price of a bar,enum=open,enum=high,enum=low,enum=close,default=close"`

	// IgnoreUserExceptions logs callback errors instead of stopping the engine.
	IgnoreUserExceptions bool `json:"ignore_user_exceptions" yaml:"ignore_user_exceptions" jsonschema:"description=Keep running when a callback fails"`

	// RequestTimeout bounds every exchange call; zero uses the default.
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" jsonschema:"description=Timeout of one exchange call in nanoseconds"`
}

// GetConfigSchema returns the JSON schema for LiveTradingEngineConfig.
func GetConfigSchema() (string, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = true
	schema := r.Reflect(&LiveTradingEngineConfig{}) //nolint:exhaustruct // Empty config for schema generation

	schemaBytes, err := json.Marshal(schema)
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// LiveTradingEngine runs registered events against a real exchange.
type LiveTradingEngine interface {
	// Initialize sets up the engine with the given configuration.
	Initialize(config LiveTradingEngineConfig) error

	// LoadEvents sets the events Run drives.
	LoadEvents(registered []*events.EventDefinition) error

	// SetExchange configures the exchange used for prices and orders.
	SetExchange(ex exchange.Exchange) error

	// Run starts the live trading engine.
	// Blocks until context is cancelled or a fatal error occurs.
	Run(ctx context.Context, callbacks LiveTradingCallbacks) error

	// GetConfigSchema returns the JSON schema for engine configuration.
	GetConfigSchema() (string, error)
}
