package utils

import (
	"math"
	"strconv"
	"time"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const (
	Day   = 24 * time.Hour
	Week  = 7 * Day
	Month = 30 * Day
	Year  = 365 * Day
)

// ParseInterval parses strings such as "30s", "15m", "1h", "10d", "2w", "1M" and "1y".
// The magnitude must be a positive integer and the result must fit in a time.Duration.
func ParseInterval(interval string) (time.Duration, error) {
	if len(interval) < 2 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "invalid interval %q", interval)
	}

	magnitude, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || magnitude <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "invalid interval magnitude in %q", interval)
	}

	var unit time.Duration

	switch interval[len(interval)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = Day
	case 'w':
		unit = Week
	case 'M':
		unit = Month
	case 'y':
		unit = Year
	default:
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "unknown interval unit in %q", interval)
	}

	if int64(magnitude) > math.MaxInt64/int64(unit) {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "interval %q is too long", interval)
	}

	return time.Duration(magnitude) * unit, nil
}

// FormatInterval is the inverse of ParseInterval for whole units; it falls back to seconds.
func FormatInterval(d time.Duration) string {
	units := []struct {
		suffix string
		size   time.Duration
	}{
		{"y", Year},
		{"M", Month},
		{"w", Week},
		{"d", Day},
		{"h", time.Hour},
		{"m", time.Minute},
	}

	for _, u := range units {
		if d >= u.size && d%u.size == 0 {
			return strconv.FormatInt(int64(d/u.size), 10) + u.suffix
		}
	}

	return strconv.FormatInt(int64(d/time.Second), 10) + "s"
}
