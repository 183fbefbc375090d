package scheduler

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
)

// Store is the appointment persistence the scheduler needs.
type Store interface {
	// WithStaffLock runs fn in one transaction that holds staffID's scheduling lock, so
	// availability checks and writes for that staff member are serialised. The
	// transaction commits only when fn returns nil.
	WithStaffLock(ctx context.Context, staffID string, fn func(Tx) error) error
	// WithTx runs fn in one transaction without the scheduling lock.
	WithTx(ctx context.Context, fn func(Tx) error) error

	Get(ctx context.Context, id string) (model.Appointment, error)
	GetByTrackingDigest(ctx context.Context, digest string) (model.Appointment, error)
	List(ctx context.Context, f model.AppointmentFilter) ([]model.Appointment, error)
	ListLogs(ctx context.Context, appointmentID string) ([]model.LogEntry, error)
	// ListDueNoShows returns ids of confirmed appointments starting before cutoff.
	ListDueNoShows(ctx context.Context, cutoff time.Time, limit int) ([]string, error)
	// LookupIdempotencyKey reads a completed (scope, key) without locking it. found is
	// false while the first request is still in flight.
	LookupIdempotencyKey(ctx context.Context, scope, key string) (response []byte, found bool, err error)
}

// Tx is the transaction-scoped view handed to Store callbacks.
type Tx interface {
	conflict.AppointmentLister

	GetForUpdate(ctx context.Context, id string) (model.Appointment, error)
	// Insert returns model.ErrOverlap when the block overlaps another non-cancelled
	// appointment of the same staff member.
	Insert(ctx context.Context, a *model.Appointment) error
	UpdateStatus(ctx context.Context, a model.Appointment) error
	// UpdateSchedule persists Start, End, BlockStart and BlockEnd, returning
	// model.ErrOverlap like Insert.
	UpdateSchedule(ctx context.Context, a model.Appointment) error
	// RotateTrackingDigest replaces the stored token digest, invalidating the old token.
	RotateTrackingDigest(ctx context.Context, id, digest string, at time.Time) error
	AppendLog(ctx context.Context, e model.LogEntry) error
	Publish(ctx context.Context, evt outbox.Event) error

	// ClaimIdempotencyKey locks (scope, key). found is true when an earlier request
	// already completed under the key; response is what it returned.
	ClaimIdempotencyKey(ctx context.Context, scope, key string) (response []byte, found bool, err error)
	CompleteIdempotencyKey(ctx context.Context, scope, key, appointmentID string, response []byte) error
}

// Notifier turns appointment changes into outbox events. It must not block.
type Notifier interface {
	NotifyCreated(ctx context.Context, a model.Appointment, trackingToken string) []outbox.Event
	NotifyStatusChanged(ctx context.Context, a model.Appointment, old model.Status, notes string) []outbox.Event
	NotifyRescheduled(ctx context.Context, a model.Appointment, oldStart, oldEnd time.Time) []outbox.Event
	NotifyTokenReissued(ctx context.Context, a model.Appointment, trackingToken string) []outbox.Event
}
