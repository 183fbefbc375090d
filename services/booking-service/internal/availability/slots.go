package availability

import "time"

// Candidates walks window in step increments. The walk starts where a block would open
// exactly at window.Start, so a setup buffer shifts the grid instead of costing the first
// slot. For each start t, block(t) gives the time the booking would occupy; t is kept when
// that block lies inside the window, t is not before notBefore, and the block overlaps
// nothing in busy.
//
// All times are expected to be in the same location.
func Candidates(window Interval, step time.Duration, block func(time.Time) Interval, busy Busy, notBefore time.Time) []time.Time {
	if step <= 0 || !window.Valid() {
		return nil
	}

	first := window.Start
	if lead := window.Start.Sub(block(window.Start).Start); lead > 0 {
		first = first.Add(lead)
	}

	var slots []time.Time
	for t := first; t.Before(window.End); t = t.Add(step) {
		b := block(t)
		if b.End.After(window.End) {
			break
		}
		if !b.Valid() || b.Start.Before(window.Start) {
			continue
		}
		if t.Before(notBefore) {
			continue
		}
		if busy.Free(b) {
			slots = append(slots, t)
		}
	}
	return slots
}

// Fixed returns a block function for a booking of length d with no buffers.
func Fixed(d time.Duration) func(time.Time) Interval {
	return func(t time.Time) Interval { return Interval{Start: t, End: t.Add(d)} }
}
