package model

import (
	"errors"
	"fmt"
	"time"
)

// Break is a [StartMinute, EndMinute) pause within a working day, in minutes after midnight.
type Break struct {
	StartMinute int `json:"start_minute"`
	EndMinute   int `json:"end_minute"`
}

// WorkingHours is one staff member's schedule for a weekday (0 = Sunday).
type WorkingHours struct {
	StaffID     string
	Weekday     int
	IsWorking   bool
	StartMinute int
	EndMinute   int
	Breaks      []Break
}

// DefaultWorkingHours is the schedule seeded for new staff: Mon-Fri 09:00-18:00,
// Sat 09:00-17:00, Sun off.
func DefaultWorkingHours(staffID string) []WorkingHours {
	out := make([]WorkingHours, 0, 7)
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		wh := WorkingHours{StaffID: staffID, Weekday: int(wd)}
		switch wd {
		case time.Sunday:
		case time.Saturday:
			wh.IsWorking, wh.StartMinute, wh.EndMinute = true, 9*60, 17*60
		default:
			wh.IsWorking, wh.StartMinute, wh.EndMinute = true, 9*60, 18*60
		}
		out = append(out, wh)
	}
	return out
}

const minutesPerDay = 24 * 60

// Validate checks that a working day is ordered within the day and that every break lies
// inside it. A day off carries no further constraints.
func (wh WorkingHours) Validate() error {
	if wh.Weekday < 0 || wh.Weekday > 6 {
		return fmt.Errorf("weekday %d out of range", wh.Weekday)
	}
	if !wh.IsWorking {
		return nil
	}
	if wh.StartMinute < 0 || wh.EndMinute > minutesPerDay || wh.EndMinute <= wh.StartMinute {
		return errors.New("working window must satisfy 0 <= start < end <= 1440")
	}
	for _, b := range wh.Breaks {
		if b.EndMinute <= b.StartMinute || b.StartMinute < wh.StartMinute || b.EndMinute > wh.EndMinute {
			return fmt.Errorf("break %d-%d must lie inside the working window", b.StartMinute, b.EndMinute)
		}
	}
	return nil
}

type TimeOffStatus string

const (
	TimeOffPending  TimeOffStatus = "pending"
	TimeOffApproved TimeOffStatus = "approved"
	TimeOffRejected TimeOffStatus = "rejected"
)

func (s TimeOffStatus) Valid() bool {
	switch s {
	case TimeOffPending, TimeOffApproved, TimeOffRejected:
		return true
	}
	return false
}

type TimeOff struct {
	ID      string
	StaffID string
	Start   time.Time
	End     time.Time
	Status  TimeOffStatus
	Reason  string
}

type Service struct {
	ID             string
	Name           string
	BaseMinutes    int
	BufferBefore   int
	BufferAfter    int
	PriceCents     int64
	TaxBasisPoints int
	IsActive       bool
}

type StaffMember struct {
	ID       string
	Name     string
	BranchID string
	IsActive bool
}

// StaffServiceOverride is a staff member's own duration or price for a service.
// Zero values mean "use the service's value".
type StaffServiceOverride struct {
	StaffID       string
	ServiceID     string
	CustomMinutes int
	CustomPrice   *int64
	IsActive      bool
}
