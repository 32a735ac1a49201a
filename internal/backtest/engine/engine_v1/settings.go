package engine

import (
	"strings"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/spf13/viper"
)

const (
	DefaultCacheLocation = "./price_caches"
	// SettingsEnvPrefix prefixes environment overrides, e.g. ARGO_USE_PRICE=open.
	SettingsEnvPrefix = "ARGO"
)

// LoadSettings builds the engine config from, in increasing precedence,
// the defaults, the settings file at path (JSON or YAML, optional),
// ARGO_ environment variables and overrides.
func LoadSettings(path string, overrides map[string]any) (BacktestEngineV1Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(SettingsEnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return BacktestEngineV1Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read settings file %s", path)
		}
	}

	for key, value := range overrides {
		v.Set(key, value)
	}

	config := EmptyConfig()
	if err := v.Unmarshal(&config); err != nil {
		return BacktestEngineV1Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to decode settings", err)
	}

	var err error

	if config.StartTime, err = settingsTime(v, "start_time"); err != nil {
		return BacktestEngineV1Config{}, err
	}

	if config.EndTime, err = settingsTime(v, "end_time"); err != nil {
		return BacktestEngineV1Config{}, err
	}

	if err := config.Validate(); err != nil {
		return BacktestEngineV1Config{}, err
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	defaults := EmptyConfig()

	v.SetDefault("use_price", string(defaults.UsePrice))
	v.SetDefault("smooth_prices", defaults.SmoothPrices)
	v.SetDefault("cache_location", defaults.CacheLocation)
	v.SetDefault("continuous_caching", defaults.ContinuousCaching)
	v.SetDefault("resample_account_value_for_metrics", defaults.ResampleAccountValueForMetrics)
	v.SetDefault("quote_account_value_in", defaults.QuoteAccountValueIn)
	v.SetDefault("ignore_user_exceptions", defaults.IgnoreUserExceptions)
	v.SetDefault("risk_free_return_rate", defaults.RiskFreeReturnRate)
	v.SetDefault("show_progress_during_backtest", defaults.ShowProgressDuringBacktest)
	v.SetDefault("save_initial_account_value", defaults.SaveInitialAccountValue)
	v.SetDefault("simulate_limit_fills", defaults.SimulateLimitFills)
	v.SetDefault("max_fetch_retries", defaults.MaxFetchRetries)
	v.SetDefault("results_folder", defaults.ResultsFolder)
	v.SetDefault("fee_model", string(defaults.FeeModel))
}

func settingsTime(v *viper.Viper, key string) (optional.Option[time.Time], error) {
	if !v.IsSet(key) {
		return optional.None[time.Time](), nil
	}

	switch value := v.Get(key).(type) {
	case time.Time:
		return optional.Some(value.UTC()), nil
	case string:
		if value == "" {
			return optional.None[time.Time](), nil
		}

		for _, layout := range []string{time.RFC3339, time.DateTime, time.DateOnly} {
			if t, err := time.Parse(layout, value); err == nil {
				return optional.Some(t.UTC()), nil
			}
		}

		return optional.None[time.Time](), errors.Newf(errors.ErrCodeInvalidConfiguration, "invalid %s %q", key, value)
	default:
		return optional.None[time.Time](), errors.Newf(errors.ErrCodeInvalidConfiguration, "invalid %s of type %T", key, value)
	}
}
