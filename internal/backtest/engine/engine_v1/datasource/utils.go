package datasource

import (
	"fmt"
	"time"
)

// alignDown truncates t to a multiple of granularity since the unix epoch.
func alignDown(t time.Time, granularity time.Duration) time.Time {
	seconds := int64(granularity / time.Second)
	if seconds <= 0 {
		return t.UTC()
	}

	unix := t.Unix()
	offset := unix % seconds

	if offset < 0 {
		offset += seconds
	}

	return time.Unix(unix-offset, 0).UTC()
}

// fetchKey identifies one uncovered piece for singleflight.
func fetchKey(key SeriesKey, r TimeRange) string {
	return fmt.Sprintf("%s|%d|%d|%d", key.Symbol, int64(key.Granularity/time.Second), r.Start.Unix(), r.End.Unix())
}

func minTime(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}

	return b
}

func maxTime(a, b time.Time) time.Time {
	if a.After(b) {
		return a
	}

	return b
}
