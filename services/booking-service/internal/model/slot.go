package model

import "time"

const (
	SlotTimeLayout    = "15:04:05"
	SlotDisplayLayout = "3:04 PM"
)

// Slot is a bookable start time. It is computed per request and never stored.
type Slot struct {
	Start   time.Time
	End     time.Time
	Time    string
	Display string
}

// NewSlot labels start in its own location.
func NewSlot(start, end time.Time) Slot {
	return Slot{
		Start:   start,
		End:     end,
		Time:    start.Format(SlotTimeLayout),
		Display: start.Format(SlotDisplayLayout),
	}
}
