package utils

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type UtilsTestSuite struct {
	suite.Suite
}

func TestUtilsTestSuite(t *testing.T) {
	suite.Run(t, new(UtilsTestSuite))
}

func (suite *UtilsTestSuite) TestCalculateMaxQuantity() {
	tests := []struct {
		name        string
		balance     float64
		price       float64
		increment   float64
		expectedQty float64
	}{
		{
			name:        "whole units",
			balance:     1000.0,
			price:       100.0,
			increment:   1,
			expectedQty: 10,
		},
		{
			name:        "truncated to increment",
			balance:     1000.0,
			price:       300.0,
			increment:   0.01,
			expectedQty: 3.33,
		},
		{
			name:        "zero balance",
			balance:     0.0,
			price:       100.0,
			increment:   0.01,
			expectedQty: 0,
		},
		{
			name:        "zero price",
			balance:     100.0,
			price:       0,
			increment:   0.01,
			expectedQty: 0,
		},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			qty := CalculateMaxQuantity(tc.balance, tc.price, tc.increment)
			suite.InDelta(tc.expectedQty, qty, 1e-12)
		})
	}
}

func (suite *UtilsTestSuite) TestRoundToDecimalPrecision() {
	suite.Equal(1.23, RoundToDecimalPrecision(1.239, 2))
	suite.Equal(1.0, RoundToDecimalPrecision(1.9, 0))
}

func (suite *UtilsTestSuite) TestRoundToIncrement() {
	suite.InDelta(0.123, RoundToIncrement(0.12345, 0.001), 1e-12)
	suite.InDelta(0.3, RoundToIncrement(0.3, 0.1), 1e-12)
	suite.Equal(0.12345, RoundToIncrement(0.12345, 0))
	suite.Equal(3, DecimalPlaces(0.001))
	suite.Equal(8, DecimalPlaces(1e-8))
	suite.Equal(0, DecimalPlaces(1))
}

func (suite *UtilsTestSuite) TestParseInterval() {
	tests := []struct {
		input    string
		expected time.Duration
	}{
		{"30s", 30 * time.Second},
		{"15m", 15 * time.Minute},
		{"1h", time.Hour},
		{"10d", 10 * Day},
		{"2w", 14 * Day},
		{"1M", 30 * Day},
		{"1y", 365 * Day},
	}

	for _, tc := range tests {
		suite.Run(tc.input, func() {
			d, err := ParseInterval(tc.input)
			suite.Require().NoError(err)
			suite.Equal(tc.expected, d)
			suite.Equal(tc.input, FormatInterval(d))
		})
	}
}

func (suite *UtilsTestSuite) TestParseIntervalLongestYears() {
	d, err := ParseInterval("292y")
	suite.Require().NoError(err)
	suite.Equal(292*Year, d)
	suite.Positive(d)
}

func (suite *UtilsTestSuite) TestParseIntervalErrors() {
	for _, input := range []string{"", "d", "0d", "-1d", "1x", "abch", "300y", "4000M", "9999999999999s"} {
		_, err := ParseInterval(input)
		suite.Error(err, input)
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod), input)
	}
}
