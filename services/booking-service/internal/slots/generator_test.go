package slots

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/duration"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/hours"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

type schedule struct {
	loc     *time.Location
	timeOff []model.TimeOff
	breaks  []model.Break
}

func (s schedule) GetWorkingHours(_ context.Context, _ string, weekday int) (model.WorkingHours, bool, error) {
	if weekday == 0 {
		return model.WorkingHours{}, false, nil
	}
	return model.WorkingHours{Weekday: weekday, IsWorking: true, StartMinute: 9 * 60, EndMinute: 18 * 60, Breaks: s.breaks}, true, nil
}

func (s schedule) ListTimeOff(context.Context, string, time.Time, time.Time) ([]model.TimeOff, error) {
	return s.timeOff, nil
}

type catalog map[string]model.Service

func (c catalog) GetService(_ context.Context, id string) (model.Service, error) {
	s, ok := c[id]
	if !ok {
		return model.Service{}, model.ErrNotFound
	}
	return s, nil
}

func (catalog) GetStaffMember(_ context.Context, id string) (model.StaffMember, error) {
	return model.StaffMember{ID: id, IsActive: true}, nil
}

func (catalog) GetStaffServiceOverride(context.Context, string, string) (model.StaffServiceOverride, bool, error) {
	return model.StaffServiceOverride{}, false, nil
}

type booked struct {
	staff  string
	start  time.Time
	end    time.Time
	status model.Status
}

type appointments []booked

func (a appointments) ListBlocking(_ context.Context, staffID string, from, to time.Time, _ string) ([]availability.Interval, error) {
	span := availability.Interval{Start: from, End: to}
	var out []availability.Interval
	for _, b := range a {
		iv := availability.Interval{Start: b.start, End: b.end}
		if b.staff == staffID && b.status != model.StatusCancelled && iv.Overlaps(span) {
			out = append(out, iv)
		}
	}
	return out, nil
}

var services = catalog{
	"cut":   {ID: "cut", BaseMinutes: 60, IsActive: true},
	"color": {ID: "color", BaseMinutes: 60, BufferBefore: 15, BufferAfter: 15, IsActive: true},
}

// 2026-03-02 is a Monday.
func at(loc *time.Location, h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, loc)
}

func newGenerator(s schedule, appts appointments, now time.Time) *Generator {
	if s.loc == nil {
		s.loc = time.UTC
	}
	hp := hours.NewProvider(s, s.loc)
	return NewGenerator(hp, duration.NewResolver(services), conflict.NewChecker(hp, appts),
		WithClock(func() time.Time { return now }))
}

func times(slots []model.Slot) []string {
	out := make([]string, 0, len(slots))
	for _, s := range slots {
		out = append(out, s.Time)
	}
	return out
}

func TestFullDayHasSeventeenSlots(t *testing.T) {
	g := newGenerator(schedule{}, nil, at(time.UTC, 6, 0))
	got, err := g.AvailableSlots(context.Background(), Query{ServiceID: "cut", StaffID: "ana", Date: at(time.UTC, 0, 0)})
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(got) != 17 {
		t.Fatalf("slots = %d, want 17: %v", len(got), times(got))
	}
	if got[0].Time != "09:00:00" || got[0].Display != "9:00 AM" || got[16].Time != "17:00:00" {
		t.Fatalf("first/last = %s %s / %s", got[0].Time, got[0].Display, got[16].Time)
	}
	if !got[16].End.Equal(at(time.UTC, 18, 0)) {
		t.Fatalf("last slot ends %s", got[16].End)
	}
}

func TestBookedAndTimeOffAreExcluded(t *testing.T) {
	s := schedule{timeOff: []model.TimeOff{
		{StaffID: "ana", Start: at(time.UTC, 13, 0), End: at(time.UTC, 14, 0), Status: model.TimeOffApproved},
		{StaffID: "ana", Start: at(time.UTC, 16, 0), End: at(time.UTC, 17, 0), Status: model.TimeOffPending},
	}}
	appts := appointments{
		{staff: "ana", start: at(time.UTC, 10, 0), end: at(time.UTC, 11, 0), status: model.StatusConfirmed},
		{staff: "ben", start: at(time.UTC, 15, 0), end: at(time.UTC, 16, 0), status: model.StatusConfirmed},
	}
	g := newGenerator(s, appts, at(time.UTC, 6, 0))
	q := Query{ServiceID: "cut", StaffID: "ana", Date: at(time.UTC, 12, 0)}

	got, err := g.AvailableSlots(context.Background(), q)
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	want := []string{
		"09:00:00", "11:00:00", "11:30:00", "12:00:00",
		"14:00:00", "14:30:00", "15:00:00", "15:30:00", "16:00:00", "16:30:00", "17:00:00",
	}
	if !reflect.DeepEqual(times(got), want) {
		t.Fatalf("slots = %v\nwant  %v", times(got), want)
	}

	again, err := g.AvailableSlots(context.Background(), q)
	if err != nil {
		t.Fatalf("second listing: %v", err)
	}
	if !reflect.DeepEqual(got, again) {
		t.Fatalf("listing is not stable")
	}
}

func TestCancelledAppointmentFreesSlots(t *testing.T) {
	appts := appointments{{staff: "ana", start: at(time.UTC, 10, 0), end: at(time.UTC, 11, 0), status: model.StatusCancelled}}
	g := newGenerator(schedule{}, appts, at(time.UTC, 6, 0))
	got, err := g.AvailableSlots(context.Background(), Query{ServiceID: "cut", StaffID: "ana", Date: at(time.UTC, 0, 0)})
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(got) != 17 {
		t.Fatalf("slots = %d, want 17", len(got))
	}
}

func TestBuffersShrinkTheDay(t *testing.T) {
	g := newGenerator(schedule{}, nil, at(time.UTC, 6, 0))
	got, err := g.AvailableSlots(context.Background(), Query{ServiceID: "color", StaffID: "ana", Date: at(time.UTC, 0, 0)})
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	// The setup buffer opens at 09:00, so the first service starts at 09:15 and the
	// cleanup of the last one ends at 18:00.
	if len(got) != 16 || got[0].Time != "09:15:00" || got[len(got)-1].Time != "16:45:00" {
		t.Fatalf("slots = %v", times(got))
	}
	if !got[0].Start.Add(-15 * time.Minute).Equal(at(time.UTC, 9, 0)) {
		t.Fatalf("first block does not open with the day: %s", got[0].Start)
	}
}

func TestBreakRemovesOverlappingSlots(t *testing.T) {
	lunch := schedule{breaks: []model.Break{{StartMinute: 12 * 60, EndMinute: 12*60 + 30}}}
	g := newGenerator(lunch, nil, at(time.UTC, 6, 0))
	got, err := g.AvailableSlots(context.Background(), Query{ServiceID: "cut", StaffID: "ana", Date: at(time.UTC, 0, 0)})
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	has := map[string]bool{}
	for _, tm := range times(got) {
		has[tm] = true
	}
	// A one hour cut at 11:30 or 12:00 would run into the 12:00-12:30 break.
	for _, gone := range []string{"11:30:00", "12:00:00"} {
		if has[gone] {
			t.Fatalf("%s overlaps the break: %v", gone, times(got))
		}
	}
	for _, kept := range []string{"11:00:00", "12:30:00"} {
		if !has[kept] {
			t.Fatalf("%s missing: %v", kept, times(got))
		}
	}
	if len(got) != 15 {
		t.Fatalf("slots = %d, want 15: %v", len(got), times(got))
	}
}

func TestNegativeMinNoticeStillHidesPast(t *testing.T) {
	g := newGenerator(schedule{}, nil, at(time.UTC, 12, 10))
	got, err := g.AvailableSlots(context.Background(), Query{ServiceID: "cut", StaffID: "ana", Date: at(time.UTC, 0, 0), MinNotice: -5 * time.Hour})
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(got) == 0 || got[0].Time != "12:30:00" {
		t.Fatalf("slots = %v", times(got))
	}
}

func TestMinNoticeAndPastSlotsHidden(t *testing.T) {
	g := newGenerator(schedule{}, nil, at(time.UTC, 9, 20))
	got, err := g.AvailableSlots(context.Background(), Query{ServiceID: "cut", StaffID: "ana", Date: at(time.UTC, 0, 0), MinNotice: time.Hour})
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if len(got) == 0 || got[0].Time != "10:30:00" {
		t.Fatalf("slots = %v", times(got))
	}
}

func TestDayOffAndUnknownService(t *testing.T) {
	g := newGenerator(schedule{}, nil, at(time.UTC, 6, 0))
	sunday := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	got, err := g.AvailableSlots(context.Background(), Query{ServiceID: "cut", StaffID: "ana", Date: sunday})
	if err != nil || len(got) != 0 {
		t.Fatalf("sunday = %v, %v", times(got), err)
	}
	if _, err := g.AvailableSlots(context.Background(), Query{ServiceID: "nope", StaffID: "ana", Date: at(time.UTC, 0, 0)}); err == nil {
		t.Fatalf("unknown service should fail")
	}
}

func TestSlotsLabelledInSalonTime(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	g := newGenerator(schedule{loc: loc}, nil, at(loc, 6, 0))
	got, err := g.AvailableSlots(context.Background(), Query{ServiceID: "cut", StaffID: "ana", Date: at(loc, 0, 0)})
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	if got[0].Time != "09:00:00" || !got[0].Start.Equal(time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)) {
		t.Fatalf("first slot %s at %s", got[0].Time, got[0].Start.UTC())
	}
}
