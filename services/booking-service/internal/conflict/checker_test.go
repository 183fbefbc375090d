package conflict

import (
	"context"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/hours"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

var day = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC) // Monday

func clock(h, m int) time.Time {
	return day.Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute)
}

type scheduleStore struct {
	timeOff []model.TimeOff
}

func (s scheduleStore) GetWorkingHours(_ context.Context, _ string, weekday int) (model.WorkingHours, bool, error) {
	if weekday != 1 {
		return model.WorkingHours{}, false, nil
	}
	return model.WorkingHours{
		Weekday: 1, IsWorking: true, StartMinute: 9 * 60, EndMinute: 18 * 60,
		Breaks: []model.Break{{StartMinute: 12 * 60, EndMinute: 12*60 + 30}},
	}, true, nil
}

func (s scheduleStore) ListTimeOff(context.Context, string, time.Time, time.Time) ([]model.TimeOff, error) {
	return s.timeOff, nil
}

type appointment struct {
	id, staff string
	block     availability.Interval
}

type lister []appointment

func (l lister) ListBlocking(_ context.Context, staffID string, from, to time.Time, excludeID string) ([]availability.Interval, error) {
	span := availability.Interval{Start: from, End: to}
	var out []availability.Interval
	for _, a := range l {
		if a.staff == staffID && a.id != excludeID && a.block.Overlaps(span) {
			out = append(out, a.block)
		}
	}
	return out, nil
}

func newChecker(appts lister) *Checker {
	store := scheduleStore{timeOff: []model.TimeOff{
		{StaffID: "ana", Start: clock(15, 0), End: clock(16, 0), Status: model.TimeOffApproved},
	}}
	return NewChecker(hours.NewProvider(store, time.UTC), appts)
}

func TestIsAvailable(t *testing.T) {
	c := newChecker(lister{
		{id: "a1", staff: "ana", block: availability.Interval{Start: clock(10, 0), End: clock(11, 0)}},
		{id: "b1", staff: "ben", block: availability.Interval{Start: clock(13, 0), End: clock(14, 0)}},
	})
	ctx := context.Background()

	cases := []struct {
		name       string
		staff      string
		start, end time.Time
		exclude    string
		want       bool
	}{
		{"overlaps appointment", "ana", clock(10, 30), clock(11, 30), "", false},
		{"back to back after", "ana", clock(11, 0), clock(12, 0), "", true},
		{"back to back before", "ana", clock(9, 0), clock(10, 0), "", true},
		{"excluding itself", "ana", clock(10, 30), clock(11, 30), "a1", true},
		{"other staff's booking", "ana", clock(13, 0), clock(14, 0), "", true},
		{"time off", "ana", clock(15, 30), clock(16, 30), "", false},
		{"after time off", "ana", clock(16, 0), clock(17, 0), "", true},
		{"break", "ana", clock(11, 45), clock(12, 15), "", false},
		{"touching break end", "ana", clock(12, 30), clock(13, 0), "", true},
	}
	for _, tc := range cases {
		got, err := c.IsAvailable(ctx, tc.staff, availability.Interval{Start: tc.start, End: tc.end}, tc.exclude)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got != tc.want {
			t.Errorf("%s: IsAvailable = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestBusyIsSortedAndComplete(t *testing.T) {
	c := newChecker(lister{
		{id: "a2", staff: "ana", block: availability.Interval{Start: clock(16, 0), End: clock(17, 0)}},
		{id: "a1", staff: "ana", block: availability.Interval{Start: clock(9, 0), End: clock(9, 30)}},
	})

	busy, err := c.Busy(context.Background(), "ana", day, day.AddDate(0, 0, 1), "")
	if err != nil {
		t.Fatal(err)
	}
	// two appointments, one time off, one break
	if len(busy) != 4 {
		t.Fatalf("expected 4 busy intervals, got %d: %+v", len(busy), busy)
	}
	for i := 1; i < len(busy); i++ {
		if busy[i].Start.Before(busy[i-1].Start) {
			t.Fatalf("busy not sorted at %d", i)
		}
	}
}

func TestUsingSwapsAppointmentSource(t *testing.T) {
	base := newChecker(nil)
	txView := base.Using(lister{{id: "x", staff: "ana", block: availability.Interval{Start: clock(9, 0), End: clock(10, 0)}}})

	iv := availability.Interval{Start: clock(9, 0), End: clock(10, 0)}
	if ok, _ := base.IsAvailable(context.Background(), "ana", iv, ""); !ok {
		t.Fatal("base checker has no appointments")
	}
	if ok, _ := txView.IsAvailable(context.Background(), "ana", iv, ""); ok {
		t.Fatal("bound checker should see the transaction's appointment")
	}
}
