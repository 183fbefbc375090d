package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by storage when a referenced record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrOverlap is returned by storage when a write would overlap another
	// non-cancelled appointment of the same staff member.
	ErrOverlap = errors.New("overlapping appointment")
	// ErrDuplicate is returned by storage when a record with the same key already exists.
	ErrDuplicate = errors.New("already exists")
)

type Source string

const (
	SourceAdmin  Source = "admin"
	SourceOnline Source = "online"
)

func (s Source) Valid() bool {
	return s == SourceAdmin || s == SourceOnline
}

type PaymentStatus string

const (
	PaymentUnpaid  PaymentStatus = "unpaid"
	PaymentPartial PaymentStatus = "partial"
	PaymentPaid    PaymentStatus = "paid"
)

// Appointment is one booked service. Start and End bound the serviceable time; BlockStart
// and BlockEnd extend them by the service buffers and are what overlap checks compare.
type Appointment struct {
	ID        string
	ClientID  string
	StaffID   string
	ServiceID string
	BranchID  string

	Start      time.Time
	End        time.Time
	BlockStart time.Time
	BlockEnd   time.Time

	Status Status
	Source Source
	Notes  string

	PriceCents    int64
	DiscountCents int64
	TaxCents      int64
	TotalCents    int64
	PaymentStatus PaymentStatus

	// TrackingDigest is the hex BLAKE2b digest of the guest tracking token.
	TrackingDigest string

	CancelledAt  *time.Time
	CancelReason string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ConfirmationCode is the human-facing booking reference, e.g. BKG-2026-1A2B3C4D.
func (a Appointment) ConfirmationCode() string {
	short := strings.ReplaceAll(a.ID, "-", "")
	if len(short) > 8 {
		short = short[:8]
	}
	year := a.CreatedAt.Year()
	if a.CreatedAt.IsZero() {
		year = a.Start.Year()
	}
	return fmt.Sprintf("BKG-%d-%s", year, strings.ToUpper(short))
}

// Blocking reports whether the appointment still occupies its staff member's time.
func (a Appointment) Blocking() bool {
	return a.Status != StatusCancelled
}

// AppointmentFilter narrows appointment listings. Zero fields are ignored.
type AppointmentFilter struct {
	From     time.Time
	To       time.Time
	StaffID  string
	ClientID string
	BranchID string
	Status   Status
	Limit    int
}
