package model

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to Status }{
		{StatusPending, StatusConfirmed},
		{StatusPending, StatusCancelled},
		{StatusPending, StatusNoShow},
		{StatusConfirmed, StatusCheckedIn},
		{StatusConfirmed, StatusNoShow},
		{StatusCheckedIn, StatusInProgress},
		{StatusCheckedIn, StatusCancelled},
		{StatusInProgress, StatusCompleted},
	}
	for _, tc := range allowed {
		if !CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be allowed", tc.from, tc.to)
		}
	}

	rejected := []struct{ from, to Status }{
		{StatusPending, StatusCompleted},
		{StatusPending, StatusPending},
		{StatusConfirmed, StatusPending},
		{StatusInProgress, StatusCancelled},
		{StatusCompleted, StatusConfirmed},
		{StatusCancelled, StatusConfirmed},
		{StatusNoShow, StatusConfirmed},
	}
	for _, tc := range rejected {
		if CanTransition(tc.from, tc.to) {
			t.Errorf("%s -> %s should be rejected", tc.from, tc.to)
		}
	}

	for _, s := range []Status{StatusCompleted, StatusCancelled, StatusNoShow} {
		if !s.Terminal() {
			t.Errorf("%s should be terminal", s)
		}
	}
	if StatusCheckedIn.Reschedulable() {
		t.Error("checked-in appointments cannot be moved")
	}
}

func TestParseStatus(t *testing.T) {
	if s, err := ParseStatus("checked_in"); err != nil || s != StatusCheckedIn {
		t.Fatalf("ParseStatus = %q, %v", s, err)
	}
	if _, err := ParseStatus("booked"); err == nil {
		t.Fatal("expected unknown status error")
	}
}

func TestDefaultWorkingHours(t *testing.T) {
	hours := DefaultWorkingHours("staff-1")
	if len(hours) != 7 {
		t.Fatalf("expected 7 days, got %d", len(hours))
	}
	if hours[0].IsWorking {
		t.Error("sunday should be off")
	}
	if hours[1].StartMinute != 540 || hours[1].EndMinute != 1080 {
		t.Errorf("monday: got %d-%d", hours[1].StartMinute, hours[1].EndMinute)
	}
	if hours[6].EndMinute != 1020 {
		t.Errorf("saturday should end at 17:00, got %d", hours[6].EndMinute)
	}
}

func TestSlotLabelsAndConfirmationCode(t *testing.T) {
	start := time.Date(2026, 4, 6, 14, 30, 0, 0, time.UTC)
	s := NewSlot(start, start.Add(time.Hour))
	if s.Time != "14:30:00" || s.Display != "2:30 PM" {
		t.Fatalf("unexpected labels: %+v", s)
	}

	a := Appointment{ID: "1a2b3c4d-0000-4000-8000-000000000000", CreatedAt: start}
	if got := a.ConfirmationCode(); got != "BKG-2026-1A2B3C4D" {
		t.Fatalf("ConfirmationCode = %q", got)
	}
}

func TestWorkingHoursValidate(t *testing.T) {
	cases := []struct {
		name string
		wh   WorkingHours
		ok   bool
	}{
		{"day off ignores minutes", WorkingHours{Weekday: 0, StartMinute: 900, EndMinute: 100}, true},
		{"plain day", WorkingHours{Weekday: 1, IsWorking: true, StartMinute: 540, EndMinute: 1080}, true},
		{"break inside", WorkingHours{Weekday: 2, IsWorking: true, StartMinute: 540, EndMinute: 1080, Breaks: []Break{{720, 780}}}, true},
		{"weekday out of range", WorkingHours{Weekday: 7}, false},
		{"end before start", WorkingHours{Weekday: 3, IsWorking: true, StartMinute: 600, EndMinute: 540}, false},
		{"past midnight", WorkingHours{Weekday: 3, IsWorking: true, StartMinute: 600, EndMinute: 1500}, false},
		{"break outside window", WorkingHours{Weekday: 4, IsWorking: true, StartMinute: 540, EndMinute: 1080, Breaks: []Break{{1050, 1110}}}, false},
		{"empty break", WorkingHours{Weekday: 4, IsWorking: true, StartMinute: 540, EndMinute: 1080, Breaks: []Break{{720, 720}}}, false},
	}
	for _, tc := range cases {
		err := tc.wh.Validate()
		if (err == nil) != tc.ok {
			t.Errorf("%s: err = %v", tc.name, err)
		}
	}
}
