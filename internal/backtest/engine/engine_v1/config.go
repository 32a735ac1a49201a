package engine

import (
	"encoding/json"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

type BacktestEngineV1Config struct {
	UsePrice                       types.PriceColumn          `yaml:"use_price" json:"use_price" mapstructure:"use_price" jsonschema:"title=Use Price,description=OHLC column used as the price of a bar,enum=open,enum=high,enum=low,enum=close,default=close" validate:"required,oneof=open high low close"`
	SmoothPrices                   bool                       `yaml:"smooth_prices" json:"smooth_prices" mapstructure:"smooth_prices" jsonschema:"title=Smooth Prices,description=Fill gaps in price data by linear interpolation"`
	CacheLocation                  string                     `yaml:"cache_location" json:"cache_location" mapstructure:"cache_location" jsonschema:"title=Cache Location,description=Folder of the on-disk price cache,default=./price_caches" validate:"required"`
	ContinuousCaching              bool                       `yaml:"continuous_caching" json:"continuous_caching" mapstructure:"continuous_caching" jsonschema:"title=Continuous Caching,description=Persist fetched prices to the cache location,default=true"`
	ResampleAccountValueForMetrics string                     `yaml:"resample_account_value_for_metrics" json:"resample_account_value_for_metrics" mapstructure:"resample_account_value_for_metrics" jsonschema:"title=Resample Interval,description=Interval the account value curve is resampled to before computing metrics. Empty disables resampling,default=1d"`
	QuoteAccountValueIn            string                     `yaml:"quote_account_value_in" json:"quote_account_value_in" mapstructure:"quote_account_value_in" jsonschema:"title=Quote Currency,description=Asset the account value is quoted in,default=USD" validate:"required"`
	IgnoreUserExceptions           bool                       `yaml:"ignore_user_exceptions" json:"ignore_user_exceptions" mapstructure:"ignore_user_exceptions" jsonschema:"title=Ignore User Exceptions,description=Log callback errors and keep running instead of aborting"`
	RiskFreeReturnRate             float64                    `yaml:"risk_free_return_rate" json:"risk_free_return_rate" mapstructure:"risk_free_return_rate" jsonschema:"title=Risk Free Return Rate,description=Annual risk free rate used by Sharpe and Sortino,minimum=0,maximum=0.1" validate:"gte=0,lte=0.1"`
	ShowProgressDuringBacktest     bool                       `yaml:"show_progress_during_backtest" json:"show_progress_during_backtest" mapstructure:"show_progress_during_backtest" jsonschema:"title=Show Progress,default=true"`
	SaveInitialAccountValue        bool                       `yaml:"save_initial_account_value" json:"save_initial_account_value" mapstructure:"save_initial_account_value" jsonschema:"title=Save Initial Account Value,description=Record a sample at the start time,default=true"`
	SimulateLimitFills             bool                       `yaml:"simulate_limit_fills" json:"simulate_limit_fills" mapstructure:"simulate_limit_fills" jsonschema:"title=Simulate Limit Fills,description=Fill resting limit orders when the price crosses them,default=true"`
	MaxFetchRetries                uint64                     `yaml:"max_fetch_retries" json:"max_fetch_retries" mapstructure:"max_fetch_retries" jsonschema:"title=Max Fetch Retries,minimum=0,default=3"`
	ResultsFolder                  string                     `yaml:"results_folder" json:"results_folder" mapstructure:"results_folder" jsonschema:"title=Results Folder,description=Folder results are written to. Empty keeps results in memory"`
	FeeModel                       commission_fee.FeeModel    `yaml:"fee_model" json:"fee_model" mapstructure:"fee_model" jsonschema:"title=Fee Model,description=How simulated fills are charged,default=exchange" validate:"required,oneof=exchange interactive_broker zero_commission"`
	StartTime                      optional.Option[time.Time] `yaml:"-" json:"start_time" mapstructure:"-" jsonschema:"title=Start Time,description=Optional start time for the backtest period"`
	EndTime                        optional.Option[time.Time] `yaml:"-" json:"end_time" mapstructure:"-" jsonschema:"title=End Time,description=Optional end time for the backtest period"`
}

// UnmarshalYAML decodes the config, leaving missing times as None.
func (c *BacktestEngineV1Config) UnmarshalYAML(value *yaml.Node) error {
	// alias drops the method so Decode does not recurse
	type alias BacktestEngineV1Config

	type raw struct {
		alias     `yaml:",inline"`
		StartTime *time.Time `yaml:"start_time"`
		EndTime   *time.Time `yaml:"end_time"`
	}

	decoded := raw{alias: alias(EmptyConfig()), StartTime: nil, EndTime: nil}
	if err := value.Decode(&decoded); err != nil {
		return err
	}

	*c = BacktestEngineV1Config(decoded.alias)
	c.StartTime = optional.None[time.Time]()
	c.EndTime = optional.None[time.Time]()

	if decoded.StartTime != nil {
		c.StartTime = optional.Some(decoded.StartTime.UTC())
	}

	if decoded.EndTime != nil {
		c.EndTime = optional.Some(decoded.EndTime.UTC())
	}

	return nil
}

// Validate checks field constraints and the start/end order.
func (c *BacktestEngineV1Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest configuration", err)
	}

	if _, err := c.ResampleInterval(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid resample_account_value_for_metrics", err)
	}

	if c.StartTime.IsSome() && c.EndTime.IsSome() && !c.StartTime.Unwrap().Before(c.EndTime.Unwrap()) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "start time %s must be before end time %s",
			c.StartTime.Unwrap().Format(time.RFC3339), c.EndTime.Unwrap().Format(time.RFC3339))
	}

	return nil
}

// ResampleInterval parses ResampleAccountValueForMetrics. Zero disables resampling.
func (c *BacktestEngineV1Config) ResampleInterval() (time.Duration, error) {
	if strings.TrimSpace(c.ResampleAccountValueForMetrics) == "" {
		return 0, nil
	}

	return utils.ParseInterval(strings.TrimSpace(c.ResampleAccountValueForMetrics))
}

// GenerateSchema generates a JSON schema for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == reflect.TypeOf(optional.Option[time.Time]{}) {
				return &jsonschema.Schema{
					Type:   "string",
					Format: "date-time",
				}
			}

			if t == reflect.TypeOf(commission_fee.FeeModel("")) {
				return &jsonschema.Schema{
					Type: "string",
					Enum: commission_fee.AllFeeModels,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(c)

	schema.Title = "backtest-engine-v1-config"
	schema.Description = "Configuration schema for BacktestEngineV1"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for the BacktestEngineV1Config
func (c *BacktestEngineV1Config) GenerateSchemaJSON() (string, error) {
	schema, err := c.GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}

// TestConfig returns a config for tests: in-memory cache, no progress bar, zero fees.
func TestConfig(startTime time.Time, endTime time.Time, feeModel commission_fee.FeeModel) BacktestEngineV1Config {
	config := EmptyConfig()
	config.CacheLocation = ":memory:"
	config.ContinuousCaching = false
	config.ShowProgressDuringBacktest = false
	config.FeeModel = feeModel
	config.StartTime = optional.Some(startTime)
	config.EndTime = optional.Some(endTime)

	return config
}

// EmptyConfig returns a BacktestEngineV1Config with default values
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		UsePrice:                       types.PriceColumnClose,
		SmoothPrices:                   false,
		CacheLocation:                  DefaultCacheLocation,
		ContinuousCaching:              true,
		ResampleAccountValueForMetrics: "1d",
		QuoteAccountValueIn:            "USD",
		IgnoreUserExceptions:           false,
		RiskFreeReturnRate:             0,
		ShowProgressDuringBacktest:     true,
		SaveInitialAccountValue:        true,
		SimulateLimitFills:             true,
		MaxFetchRetries:                3,
		ResultsFolder:                  "",
		FeeModel:                       commission_fee.FeeModelExchange,
		StartTime:                      optional.None[time.Time](),
		EndTime:                        optional.None[time.Time](),
	}
}
