// Package hours answers when a staff member is working: the working window and breaks for
// a date, and approved time off within a range.
package hours

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

// Store is the schedule storage the provider reads from.
type Store interface {
	// GetWorkingHours returns ok=false when no row exists for the weekday.
	GetWorkingHours(ctx context.Context, staffID string, weekday int) (wh model.WorkingHours, ok bool, err error)
	ListTimeOff(ctx context.Context, staffID string, from, to time.Time) ([]model.TimeOff, error)
}

// Window is a working day resolved to absolute instants.
type Window struct {
	availability.Interval
	Breaks []availability.Interval
}

type Provider struct {
	store Store
	loc   *time.Location
}

// NewProvider interprets schedule minutes in loc, the salon's local time zone.
func NewProvider(store Store, loc *time.Location) *Provider {
	if loc == nil {
		loc = time.UTC
	}
	return &Provider{store: store, loc: loc}
}

func (p *Provider) Location() *time.Location { return p.loc }

// Day returns local midnight of the calendar day containing t.
func (p *Provider) Day(t time.Time) time.Time {
	t = t.In(p.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, p.loc)
}

// Window returns the working window for the calendar day of date. ok is false when the
// staff member does not work that day.
func (p *Provider) Window(ctx context.Context, staffID string, date time.Time) (Window, bool, error) {
	day := p.Day(date)
	wh, ok, err := p.store.GetWorkingHours(ctx, staffID, int(day.Weekday()))
	if err != nil {
		return Window{}, false, err
	}
	if !ok || !wh.IsWorking || wh.EndMinute <= wh.StartMinute {
		return Window{}, false, nil
	}

	w := Window{Interval: availability.Interval{
		Start: atMinute(day, wh.StartMinute),
		End:   atMinute(day, wh.EndMinute),
	}}
	for _, b := range wh.Breaks {
		if b.EndMinute <= b.StartMinute {
			continue
		}
		w.Breaks = append(w.Breaks, availability.Interval{
			Start: atMinute(day, b.StartMinute),
			End:   atMinute(day, b.EndMinute),
		})
	}
	return w, true, nil
}

// TimeOff returns approved time off intersecting [from, to).
func (p *Provider) TimeOff(ctx context.Context, staffID string, from, to time.Time) ([]availability.Interval, error) {
	rows, err := p.store.ListTimeOff(ctx, staffID, from, to)
	if err != nil {
		return nil, err
	}
	span := availability.Interval{Start: from, End: to}
	var out []availability.Interval
	for _, row := range rows {
		if row.Status != model.TimeOffApproved {
			continue
		}
		iv := availability.Interval{Start: row.Start, End: row.End}
		if iv.Valid() && iv.Overlaps(span) {
			out = append(out, iv)
		}
	}
	return out, nil
}

// atMinute adds wall-clock minutes to a local midnight so DST days keep their clock times.
func atMinute(day time.Time, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), minute/60, minute%60, 0, 0, day.Location())
}
