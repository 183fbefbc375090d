package hours

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

type fakeStore struct {
	hours   map[int]model.WorkingHours
	timeOff []model.TimeOff
	err     error
}

func (f *fakeStore) GetWorkingHours(_ context.Context, _ string, weekday int) (model.WorkingHours, bool, error) {
	if f.err != nil {
		return model.WorkingHours{}, false, f.err
	}
	wh, ok := f.hours[weekday]
	return wh, ok, nil
}

func (f *fakeStore) ListTimeOff(_ context.Context, _ string, _, _ time.Time) ([]model.TimeOff, error) {
	return f.timeOff, f.err
}

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestWindowWithBreaks(t *testing.T) {
	store := &fakeStore{hours: map[int]model.WorkingHours{
		1: {Weekday: 1, IsWorking: true, StartMinute: 9 * 60, EndMinute: 18 * 60, Breaks: []model.Break{
			{StartMinute: 13 * 60, EndMinute: 14 * 60},
			{StartMinute: 15 * 60, EndMinute: 15 * 60},
		}},
	}}
	p := NewProvider(store, time.UTC)

	w, ok, err := p.Window(context.Background(), "staff-1", monday.Add(15*time.Hour))
	if err != nil || !ok {
		t.Fatalf("Window = ok:%v err:%v", ok, err)
	}
	if !w.Start.Equal(monday.Add(9*time.Hour)) || !w.End.Equal(monday.Add(18*time.Hour)) {
		t.Fatalf("unexpected window %s - %s", w.Start, w.End)
	}
	if len(w.Breaks) != 1 || !w.Breaks[0].Start.Equal(monday.Add(13*time.Hour)) {
		t.Fatalf("expected one valid break, got %+v", w.Breaks)
	}
}

func TestWindowNone(t *testing.T) {
	store := &fakeStore{hours: map[int]model.WorkingHours{
		2: {Weekday: 2, IsWorking: false, StartMinute: 540, EndMinute: 1080},
		3: {Weekday: 3, IsWorking: true, StartMinute: 600, EndMinute: 600},
	}}
	p := NewProvider(store, time.UTC)

	for _, offset := range []int{0, 1, 2} { // Monday has no row, Tuesday is off, Wednesday is empty.
		if _, ok, err := p.Window(context.Background(), "staff-1", monday.AddDate(0, 0, offset)); ok || err != nil {
			t.Fatalf("day +%d: expected no window, got ok=%v err=%v", offset, ok, err)
		}
	}

	store.err = errors.New("db down")
	if _, _, err := p.Window(context.Background(), "staff-1", monday); err == nil {
		t.Fatal("expected storage error to propagate")
	}
}

func TestWindowUsesSalonLocation(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	store := &fakeStore{hours: map[int]model.WorkingHours{
		2: {Weekday: 2, IsWorking: true, StartMinute: 9 * 60, EndMinute: 17 * 60},
	}}
	p := NewProvider(store, loc)

	// 23:30 UTC on Monday is already Tuesday in the salon.
	w, ok, err := p.Window(context.Background(), "staff-1", monday.Add(23*time.Hour+30*time.Minute))
	if err != nil || !ok {
		t.Fatalf("Window = ok:%v err:%v", ok, err)
	}
	if want := time.Date(2026, 3, 3, 7, 0, 0, 0, time.UTC); !w.Start.Equal(want) {
		t.Fatalf("expected start %s, got %s", want, w.Start.UTC())
	}
}

func TestTimeOffOnlyApproved(t *testing.T) {
	store := &fakeStore{timeOff: []model.TimeOff{
		{Start: monday.Add(13 * time.Hour), End: monday.Add(14 * time.Hour), Status: model.TimeOffApproved},
		{Start: monday.Add(15 * time.Hour), End: monday.Add(16 * time.Hour), Status: model.TimeOffPending},
		{Start: monday.AddDate(0, 0, 3), End: monday.AddDate(0, 0, 4), Status: model.TimeOffApproved},
	}}
	p := NewProvider(store, time.UTC)

	got, err := p.TimeOff(context.Background(), "staff-1", monday, monday.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("TimeOff: %v", err)
	}
	if len(got) != 1 || !got[0].Start.Equal(monday.Add(13*time.Hour)) {
		t.Fatalf("expected only the approved, intersecting interval, got %+v", got)
	}
}
