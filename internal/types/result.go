package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AccountValueSample is the account value after one tick.
type AccountValueSample struct {
	Time time.Time `yaml:"time" json:"time" csv:"time"`
	// Value is quoted in the configured quote currency.
	Value float64 `yaml:"value" json:"value" csv:"value"`
	// Holdings is the total (available + hold) of each asset.
	Holdings map[string]float64 `yaml:"holdings,omitempty" json:"holdings,omitempty" csv:"-"`
}

type BacktestMetrics struct {
	// Return is final value minus initial value.
	Return float64 `yaml:"return" json:"return"`
	// ReturnPercent is Return relative to the initial value, in percent.
	ReturnPercent float64 `yaml:"return_percent" json:"return_percent"`
	// CAGR is the compound annual growth rate, in percent.
	CAGR float64 `yaml:"cagr" json:"cagr"`
	// Volatility is the annualised standard deviation of period returns.
	Volatility float64 `yaml:"volatility" json:"volatility"`
	// SharpeRatio uses the configured risk-free rate.
	SharpeRatio float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	// SortinoRatio only penalises returns below the risk-free rate.
	SortinoRatio float64 `yaml:"sortino_ratio" json:"sortino_ratio"`
	// MaxDrawdown is the largest peak-to-trough fall in quote currency.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	// MaxDrawdownPercent is MaxDrawdown relative to its peak, in percent.
	MaxDrawdownPercent float64 `yaml:"max_drawdown_percent" json:"max_drawdown_percent"`
	TotalFees          float64 `yaml:"total_fees" json:"total_fees"`
	NumberOfTrades     int     `yaml:"number_of_trades" json:"number_of_trades"`
	RiskFreeReturnRate float64 `yaml:"risk_free_return_rate" json:"risk_free_return_rate"`
}

type BacktestResult struct {
	ID           string    `yaml:"id" json:"id"`
	Start        time.Time `yaml:"start" json:"start"`
	End          time.Time `yaml:"end" json:"end"`
	QuoteAsset   string    `yaml:"quote_asset" json:"quote_asset"`
	InitialValue float64   `yaml:"initial_value" json:"initial_value"`
	FinalValue   float64   `yaml:"final_value" json:"final_value"`
	// ResampleInterval is the spacing of ResampledAccountValues; zero means no resampling.
	ResampleInterval time.Duration   `yaml:"resample_interval" json:"resample_interval"`
	Metrics          BacktestMetrics `yaml:"metrics" json:"metrics"`
	// AccountValues holds one sample per tick.
	AccountValues          []AccountValueSample `yaml:"-" json:"account_values"`
	ResampledAccountValues []AccountValueSample `yaml:"-" json:"resampled_account_values"`
	Trades                 []Order              `yaml:"-" json:"trades"`
	// ResultFolder is set when results were written to disk.
	ResultFolder      string             `yaml:"result_folder,omitempty" json:"result_folder,omitempty"`
	TradesFilePath    string             `yaml:"trades_file_path,omitempty" json:"trades_file_path,omitempty"`
	AccountValuesPath string             `yaml:"account_values_file_path,omitempty" json:"account_values_file_path,omitempty"`
	InitialBalances   map[string]float64 `yaml:"initial_balances" json:"initial_balances"`
	FinalBalances     map[string]float64 `yaml:"final_balances" json:"final_balances"`
}

// WriteBacktestResult writes the result summary as YAML. Sample and trade
// lists are exported separately.
func WriteBacktestResult(path string, result BacktestResult) error {
	data, err := yaml.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest result to file: %w", err)
	}

	return nil
}
