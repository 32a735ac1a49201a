package engine

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SettingsTestSuite struct {
	suite.Suite
	dir string
}

func TestSettingsSuite(t *testing.T) {
	suite.Run(t, new(SettingsTestSuite))
}

func (suite *SettingsTestSuite) SetupTest() {
	suite.dir = suite.T().TempDir()
}

func (suite *SettingsTestSuite) write(name, content string) string {
	path := filepath.Join(suite.dir, name)
	suite.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	return path
}

func (suite *SettingsTestSuite) TestDefaultsWithoutFile() {
	config, err := LoadSettings("", nil)
	suite.Require().NoError(err)

	suite.Equal(EmptyConfig(), config)
}

func (suite *SettingsTestSuite) TestYAMLFile() {
	path := suite.write("settings.yaml", `
use_price: high
cache_location: /tmp/prices
fee_model: interactive_broker
max_fetch_retries: 5
start_time: "2024-01-01"
end_time: "2024-01-05 12:00:00"
`)

	config, err := LoadSettings(path, nil)
	suite.Require().NoError(err)

	suite.Equal(types.PriceColumnHigh, config.UsePrice)
	suite.Equal("/tmp/prices", config.CacheLocation)
	suite.Equal(commission_fee.FeeModelInteractiveBroker, config.FeeModel)
	suite.Equal(uint64(5), config.MaxFetchRetries)
	suite.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), config.StartTime.Unwrap())
	suite.Equal(time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC), config.EndTime.Unwrap())
	suite.True(config.SaveInitialAccountValue)
}

func (suite *SettingsTestSuite) TestJSONFile() {
	path := suite.write("settings.json", `{"quote_account_value_in": "USDT", "simulate_limit_fills": false}`)

	config, err := LoadSettings(path, nil)
	suite.Require().NoError(err)

	suite.Equal("USDT", config.QuoteAccountValueIn)
	suite.False(config.SimulateLimitFills)
}

func (suite *SettingsTestSuite) TestPrecedence() {
	path := suite.write("settings.yaml", "quote_account_value_in: EUR\nuse_price: open\n")
	suite.T().Setenv("ARGO_USE_PRICE", "low")

	config, err := LoadSettings(path, map[string]any{"quote_account_value_in": "GBP"})
	suite.Require().NoError(err)

	suite.Equal(types.PriceColumnLow, config.UsePrice)
	suite.Equal("GBP", config.QuoteAccountValueIn)
}

func (suite *SettingsTestSuite) TestOverrideTimes() {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	config, err := LoadSettings("", map[string]any{
		"start_time": start,
		"end_time":   "2024-06-02T00:00:00Z",
	})
	suite.Require().NoError(err)

	suite.Equal(start, config.StartTime.Unwrap())
	suite.Equal(start.Add(24*time.Hour), config.EndTime.Unwrap())
}

func (suite *SettingsTestSuite) TestErrors() {
	tests := []struct {
		name      string
		path      func() string
		overrides map[string]any
	}{
		{"missing file", func() string { return filepath.Join(suite.dir, "missing.yaml") }, nil},
		{"invalid value", func() string { return "" }, map[string]any{"fee_model": "free"}},
		{"invalid time", func() string { return "" }, map[string]any{"start_time": "yesterday"}},
		{"start after end", func() string { return "" }, map[string]any{
			"start_time": "2024-02-01",
			"end_time":   "2024-01-01",
		}},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			_, err := LoadSettings(tc.path(), tc.overrides)
			suite.Error(err)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
		})
	}
}
