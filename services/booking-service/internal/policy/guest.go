package policy

import (
	"errors"
	"time"
)

var (
	ErrOnlineCancellationDisabled = errors.New("online cancellation is disabled")
	ErrOnlineReschedulingDisabled = errors.New("online rescheduling is disabled")
	ErrInsideCancellationWindow   = errors.New("appointment is inside the cancellation window")
)

// Guest limits what a client may change through the tracking token.
type Guest struct {
	AllowCancellation  bool
	AllowRescheduling  bool
	CancellationWindow time.Duration
}

// CanCancel reports whether a guest may cancel an appointment starting at start.
func (g Guest) CanCancel(now, start time.Time) error {
	if !g.AllowCancellation {
		return ErrOnlineCancellationDisabled
	}
	return g.outsideWindow(now, start)
}

func (g Guest) CanReschedule(now, start time.Time) error {
	if !g.AllowRescheduling {
		return ErrOnlineReschedulingDisabled
	}
	return g.outsideWindow(now, start)
}

func (g Guest) outsideWindow(now, start time.Time) error {
	if start.Sub(now) < g.CancellationWindow {
		return ErrInsideCancellationWindow
	}
	return nil
}
