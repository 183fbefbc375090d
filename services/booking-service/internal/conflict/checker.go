// Package conflict decides whether a staff member is free for an interval. Appointments,
// approved time off and scheduled breaks all count as occupied time.
package conflict

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/hours"
)

// AppointmentLister returns the occupied blocks of non-cancelled appointments for a staff
// member that intersect [from, to). excludeID, when set, is left out.
type AppointmentLister interface {
	ListBlocking(ctx context.Context, staffID string, from, to time.Time, excludeID string) ([]availability.Interval, error)
}

type Checker struct {
	hours *hours.Provider
	appts AppointmentLister
}

func NewChecker(hoursProvider *hours.Provider, appts AppointmentLister) *Checker {
	return &Checker{hours: hoursProvider, appts: appts}
}

// Using returns a copy of the checker that reads appointments from appts, typically a
// transaction that holds the staff scheduling lock.
func (c *Checker) Using(appts AppointmentLister) *Checker {
	return &Checker{hours: c.hours, appts: appts}
}

// IsAvailable reports whether iv overlaps nothing the staff member is already committed to.
func (c *Checker) IsAvailable(ctx context.Context, staffID string, iv availability.Interval, excludeID string) (bool, error) {
	busy, err := c.Busy(ctx, staffID, iv.Start, iv.End, excludeID)
	if err != nil {
		return false, err
	}
	return busy.Free(iv), nil
}

// Busy collects every occupied interval intersecting [from, to).
func (c *Checker) Busy(ctx context.Context, staffID string, from, to time.Time, excludeID string) (availability.Busy, error) {
	var busy availability.Busy

	blocks, err := c.appts.ListBlocking(ctx, staffID, from, to, excludeID)
	if err != nil {
		return nil, err
	}
	busy = append(busy, blocks...)

	off, err := c.hours.TimeOff(ctx, staffID, from, to)
	if err != nil {
		return nil, err
	}
	busy = append(busy, off...)

	// Breaks belong to each working day the range touches.
	for day := c.hours.Day(from); day.Before(to); day = day.AddDate(0, 0, 1) {
		w, ok, err := c.hours.Window(ctx, staffID, day)
		if err != nil {
			return nil, err
		}
		if ok {
			busy = append(busy, w.Breaks...)
		}
	}
	return busy.Sorted(), nil
}
