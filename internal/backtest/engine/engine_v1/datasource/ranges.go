package datasource

import (
	"slices"
	"time"
)

// TimeRange is the half-open interval [Start, End).
type TimeRange struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Empty reports whether the range contains no instant.
func (r TimeRange) Empty() bool {
	return !r.End.After(r.Start)
}

// Contains reports whether t lies inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && t.Before(r.End)
}

// Duration returns End - Start, or zero for an empty range.
func (r TimeRange) Duration() time.Duration {
	if r.Empty() {
		return 0
	}

	return r.End.Sub(r.Start)
}

// RangeSet is a sorted list of non-overlapping, non-adjacent ranges.
type RangeSet struct {
	ranges []TimeRange
}

// Ranges returns a copy of the merged ranges.
func (s *RangeSet) Ranges() []TimeRange {
	return slices.Clone(s.ranges)
}

// Len returns the number of disjoint ranges.
func (s *RangeSet) Len() int {
	return len(s.ranges)
}

// Add inserts r and merges it with every range it overlaps or touches.
func (s *RangeSet) Add(r TimeRange) {
	if r.Empty() {
		return
	}

	merged := make([]TimeRange, 0, len(s.ranges)+1)
	inserted := false

	for _, existing := range s.ranges {
		switch {
		case existing.End.Before(r.Start):
			merged = append(merged, existing)
		case r.End.Before(existing.Start):
			if !inserted {
				merged = append(merged, r)
				inserted = true
			}

			merged = append(merged, existing)
		default:
			if existing.Start.Before(r.Start) {
				r.Start = existing.Start
			}

			if existing.End.After(r.End) {
				r.End = existing.End
			}
		}
	}

	if !inserted {
		merged = append(merged, r)
	}

	slices.SortFunc(merged, func(a, b TimeRange) int {
		return a.Start.Compare(b.Start)
	})

	s.ranges = merged
}

// Uncovered returns the parts of r not covered by the set, in order.
func (s *RangeSet) Uncovered(r TimeRange) []TimeRange {
	if r.Empty() {
		return nil
	}

	var gaps []TimeRange

	cursor := r.Start

	for _, existing := range s.ranges {
		if !existing.End.After(cursor) {
			continue
		}

		if !existing.Start.Before(r.End) {
			break
		}

		if existing.Start.After(cursor) {
			gaps = append(gaps, TimeRange{Start: cursor, End: existing.Start})
		}

		cursor = existing.End
		if !cursor.Before(r.End) {
			return gaps
		}
	}

	if cursor.Before(r.End) {
		gaps = append(gaps, TimeRange{Start: cursor, End: r.End})
	}

	return gaps
}

// Covers reports whether r lies entirely inside the set.
func (s *RangeSet) Covers(r TimeRange) bool {
	return len(s.Uncovered(r)) == 0
}

// Bounds returns the smallest range spanning the whole set.
func (s *RangeSet) Bounds() (TimeRange, bool) {
	if len(s.ranges) == 0 {
		return TimeRange{}, false
	}

	return TimeRange{Start: s.ranges[0].Start, End: s.ranges[len(s.ranges)-1].End}, true
}
