/*
interval.go - Half-open interval arithmetic over time

PURPOSE:

	Slot generation is interval subtraction: working windows minus
	unavailability minus buffered bookings, then fixed-width slices of
	whatever remains. All of that reduces to three operations on sorted
	interval lists, implemented here.

INVARIANTS:
  - All intervals are half-open [Start, End); zero-length intervals are
    dropped by every operation
  - MergeIntervals and SubtractIntervals return sorted, non-overlapping
    output
  - All operations are O(n + m) after sorting

SEE ALSO:
  - slots/generator.go: the consumer of these operations
*/
package engine

import (
	"sort"
	"time"
)

// Interval is a half-open time interval [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (iv Interval) IsZero() bool            { return !iv.Start.Before(iv.End) }
func (iv Interval) Duration() time.Duration { return iv.End.Sub(iv.Start) }

// Overlaps reports whether two half-open intervals intersect.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Contains reports whether other lies entirely within iv.
func (iv Interval) Contains(other Interval) bool {
	return !other.Start.Before(iv.Start) && !other.End.After(iv.End)
}

// ContainsTime reports whether t falls inside [Start, End).
func (iv Interval) ContainsTime(t time.Time) bool {
	return !t.Before(iv.Start) && t.Before(iv.End)
}

// =============================================================================
// MERGE - Sort and coalesce overlapping/adjacent intervals
// =============================================================================

// MergeIntervals returns a sorted list with overlapping and adjacent
// intervals coalesced. The input is not modified.
func MergeIntervals(ivs []Interval) []Interval {
	var in []Interval
	for _, iv := range ivs {
		if !iv.IsZero() {
			in = append(in, iv)
		}
	}
	if len(in) == 0 {
		return nil
	}
	sort.Slice(in, func(i, j int) bool { return in[i].Start.Before(in[j].Start) })

	out := []Interval{in[0]}
	for _, iv := range in[1:] {
		last := &out[len(out)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		out = append(out, iv)
	}
	return out
}

// =============================================================================
// SUBTRACT - Remove one sorted interval list from another
// =============================================================================

// SubtractIntervals removes every interval in subtrahend from base.
// Both inputs are merged first, so neither needs to be sorted.
func SubtractIntervals(base, subtrahend []Interval) []Interval {
	b := MergeIntervals(base)
	s := MergeIntervals(subtrahend)

	var out []Interval
	j := 0
	for _, iv := range b {
		cur := iv
		for j < len(s) && !s[j].End.After(cur.Start) {
			j++
		}
		k := j
		for k < len(s) && s[k].Start.Before(cur.End) {
			hole := s[k]
			if hole.Start.After(cur.Start) {
				out = append(out, Interval{Start: cur.Start, End: hole.Start})
			}
			if hole.End.After(cur.Start) {
				cur.Start = hole.End
			}
			if !cur.Start.Before(cur.End) {
				break
			}
			k++
		}
		if cur.Start.Before(cur.End) {
			out = append(out, cur)
		}
	}
	return out
}

// =============================================================================
// SLICE - Emit fixed-width slots aligned to a granularity grid
// =============================================================================

// SliceOnGrid cuts each free interval into width-sized slots whose
// boundaries fall on multiples of width from gridOrigin (business-tz
// midnight in practice). A slot is emitted only when its entire width
// is free, so partial remainders at either edge are dropped.
func SliceOnGrid(free []Interval, width time.Duration, gridOrigin time.Time) []Interval {
	if width <= 0 {
		return nil
	}
	var out []Interval
	for _, iv := range free {
		start := alignUp(iv.Start, width, gridOrigin)
		for !start.Add(width).After(iv.End) {
			out = append(out, Interval{Start: start, End: start.Add(width)})
			start = start.Add(width)
		}
	}
	return out
}

// alignUp rounds t up to the next grid boundary (or returns t if it is
// already aligned). Works for times before the origin as well: Go's %
// keeps the sign of the dividend.
func alignUp(t time.Time, width time.Duration, origin time.Time) time.Time {
	rem := t.Sub(origin) % width
	switch {
	case rem == 0:
		return t
	case rem < 0:
		return t.Add(-rem)
	default:
		return t.Add(width - rem)
	}
}
