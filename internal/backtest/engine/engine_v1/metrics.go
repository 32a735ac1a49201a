package engine

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
)

const yearLength = time.Duration(365.25 * 24 * float64(time.Hour))

// ResampleAccountValues keeps the last sample of every interval bucket,
// stamped with the bucket start. Buckets are aligned to the first sample.
// A non-positive interval returns the samples unchanged.
func ResampleAccountValues(samples []types.AccountValueSample, interval time.Duration) []types.AccountValueSample {
	if interval <= 0 || len(samples) == 0 {
		return append([]types.AccountValueSample(nil), samples...)
	}

	origin := samples[0].Time
	out := make([]types.AccountValueSample, 0, len(samples))

	for _, sample := range samples {
		bucket := origin.Add(sample.Time.Sub(origin) / interval * interval)
		resampled := types.AccountValueSample{Time: bucket, Value: sample.Value, Holdings: sample.Holdings}

		if n := len(out); n > 0 && out[n-1].Time.Equal(bucket) {
			out[n-1] = resampled

			continue
		}

		out = append(out, resampled)
	}

	return out
}

// ComputeMetrics derives the run metrics. samples is the raw per-tick curve
// and curve the resampled one; interval is the resample interval, zero when
// the curve is not resampled.
func ComputeMetrics(
	samples []types.AccountValueSample,
	curve []types.AccountValueSample,
	interval time.Duration,
	riskFreeRate float64,
	totalFees float64,
	trades int,
) types.BacktestMetrics {
	metrics := types.BacktestMetrics{
		Return:             0,
		ReturnPercent:      0,
		CAGR:               0,
		Volatility:         0,
		SharpeRatio:        0,
		SortinoRatio:       0,
		MaxDrawdown:        0,
		MaxDrawdownPercent: 0,
		TotalFees:          totalFees,
		NumberOfTrades:     trades,
		RiskFreeReturnRate: riskFreeRate,
	}

	if len(samples) == 0 {
		return metrics
	}

	first := samples[0]
	last := samples[len(samples)-1]
	initial := decimal.NewFromFloat(first.Value)
	final := decimal.NewFromFloat(last.Value)

	metrics.Return = final.Sub(initial).InexactFloat64()
	if initial.IsPositive() {
		metrics.ReturnPercent = final.Sub(initial).Div(initial).Mul(decimal.NewFromInt(100)).InexactFloat64()
	}

	metrics.CAGR = calcCAGR(first, last)
	metrics.MaxDrawdown, metrics.MaxDrawdownPercent = calcDrawdown(curve)

	returns := periodReturns(curve)
	periods := periodsPerYear(curve, interval)

	if len(returns) < 2 || periods <= 0 {
		return metrics
	}

	// riskFreeRate is annual; convert it to one period
	rfPeriod := math.Pow(1+riskFreeRate, 1/periods) - 1

	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - rfPeriod
	}

	metrics.Volatility = stddev(returns) * math.Sqrt(periods)

	if std := stddev(excess); std > 0 {
		metrics.SharpeRatio = mean(excess) / std * math.Sqrt(periods)
	}

	if downside := downsideDeviation(excess); downside > 0 {
		metrics.SortinoRatio = mean(excess) / downside * math.Sqrt(periods)
	}

	return metrics
}

func calcCAGR(first, last types.AccountValueSample) float64 {
	if first.Value <= 0 || last.Value <= 0 {
		return 0
	}

	years := float64(last.Time.Sub(first.Time)) / float64(yearLength)
	if years <= 0 {
		return 0
	}

	return (math.Pow(last.Value/first.Value, 1/years) - 1) * 100
}

func calcDrawdown(curve []types.AccountValueSample) (float64, float64) {
	peak := decimal.Zero
	maxDD := decimal.Zero
	maxDDPct := decimal.Zero

	for i, sample := range curve {
		equity := decimal.NewFromFloat(sample.Value)

		if i == 0 || equity.GreaterThan(peak) {
			peak = equity
		}

		if !peak.IsPositive() {
			continue
		}

		if dd := peak.Sub(equity); dd.GreaterThan(maxDD) {
			maxDD = dd
			maxDDPct = dd.Div(peak).Mul(decimal.NewFromInt(100))
		}
	}

	return maxDD.InexactFloat64(), maxDDPct.InexactFloat64()
}

func periodReturns(curve []types.AccountValueSample) []float64 {
	if len(curve) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(curve)-1)

	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Value
		if prev <= 0 {
			continue
		}

		returns = append(returns, curve[i].Value/prev-1)
	}

	return returns
}

// periodsPerYear uses the resample interval, or the mean sample spacing
// when the curve is not resampled.
func periodsPerYear(curve []types.AccountValueSample, interval time.Duration) float64 {
	if interval > 0 {
		return float64(yearLength) / float64(interval)
	}

	if len(curve) < 2 {
		return 0
	}

	spacing := curve[len(curve)-1].Time.Sub(curve[0].Time) / time.Duration(len(curve)-1)
	if spacing <= 0 {
		return 0
	}

	return float64(yearLength) / float64(spacing)
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

// stddev is the sample standard deviation.
func stddev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}

	m := mean(values)

	var sum float64
	for _, v := range values {
		sum += (v - m) * (v - m)
	}

	return math.Sqrt(sum / float64(len(values)-1))
}

func downsideDeviation(excess []float64) float64 {
	var sum float64

	for _, x := range excess {
		if x < 0 {
			sum += x * x
		}
	}

	return math.Sqrt(sum / float64(len(excess)))
}
