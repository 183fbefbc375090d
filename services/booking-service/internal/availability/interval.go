package availability

import (
	"sort"
	"time"
)

// Interval is the half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func (i Interval) Valid() bool {
	return i.End.After(i.Start)
}

// Overlaps is the one overlap predicate used for scheduling. Touching endpoints do not
// overlap, so back-to-back bookings are allowed.
func (i Interval) Overlaps(o Interval) bool {
	return i.Start.Before(o.End) && o.Start.Before(i.End)
}

// Within reports whether i lies entirely inside outer.
func (i Interval) Within(outer Interval) bool {
	return !i.Start.Before(outer.Start) && !i.End.After(outer.End)
}

// Busy is a set of occupied intervals.
type Busy []Interval

// Free reports whether iv overlaps none of the busy intervals.
func (b Busy) Free(iv Interval) bool {
	for _, occupied := range b {
		if iv.Overlaps(occupied) {
			return false
		}
	}
	return true
}

// Sorted returns a copy ordered by start time.
func (b Busy) Sorted() Busy {
	out := make(Busy, len(b))
	copy(out, b)
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}
