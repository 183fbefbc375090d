// Package scheduler creates, moves and transitions appointments. Every write re-checks
// availability inside a transaction holding the staff member's scheduling lock, and the
// storage layer's exclusion constraint rejects anything that slips through, so two
// overlapping appointments for one staff member can never both be stored.
package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/duration"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/hours"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
)

// SystemActor is recorded as performer for automatic changes.
const SystemActor = "system"

const noShowBatch = 200

// Policy limits online bookings. Zero values disable a limit.
type Policy struct {
	MinNotice  time.Duration
	MaxAdvance time.Duration
}

type Config struct {
	Policy Policy
	Now    func() time.Time
}

type Scheduler struct {
	store     Store
	durations *duration.Resolver
	checker   *conflict.Checker
	hours     *hours.Provider
	notifier  Notifier
	logger    *slog.Logger
	policy    Policy
	now       func() time.Time
	tracer    trace.Tracer
}

func New(store Store, durations *duration.Resolver, checker *conflict.Checker, hoursProvider *hours.Provider, notifier Notifier, logger *slog.Logger, cfg Config) *Scheduler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Scheduler{
		store:     store,
		durations: durations,
		checker:   checker,
		hours:     hoursProvider,
		notifier:  notifier,
		logger:    logger,
		policy:    cfg.Policy,
		now:       cfg.Now,
		tracer:    otel.Tracer("salonbook/booking-service/scheduler"),
	}
}

type CreateRequest struct {
	ClientID  string
	ServiceID string
	StaffID   string
	BranchID  string
	Start     time.Time
	Source    model.Source
	// Status is pending or confirmed. Empty means pending.
	Status        model.Status
	Notes         string
	DiscountCents int64
	PerformedBy   string
	// IdempotencyKey, when set, makes a repeated request from the same client replay
	// the first result instead of booking again.
	IdempotencyKey string
}

// Created is the result of Create. TrackingToken is only ever available here. A replayed
// create carries a freshly issued token; the one handed out first stops working.
type Created struct {
	Appointment   model.Appointment
	TrackingToken string
	Replayed      bool
}

// storedCreate is the body kept under an idempotency key. It never holds the token.
type storedCreate struct {
	Appointment model.Appointment `json:"appointment"`
}

func (r CreateRequest) validate() error {
	switch {
	case strings.TrimSpace(r.ClientID) == "":
		return invalid("client_id", "is required")
	case strings.TrimSpace(r.ServiceID) == "":
		return invalid("service_id", "is required")
	case strings.TrimSpace(r.StaffID) == "":
		return invalid("staff_id", "is required")
	case r.Start.IsZero():
		return invalid("start_time", "is required")
	case !r.Source.Valid():
		return invalid("source", "must be admin or online")
	case r.Status != "" && r.Status != model.StatusPending && r.Status != model.StatusConfirmed:
		return invalid("status", "new appointments must be pending or confirmed")
	case r.DiscountCents < 0:
		return invalid("discount", "must not be negative")
	}
	return nil
}

// Create books an appointment. It fails with ErrSlotUnavailable when the staff member is
// not free for the whole occupied block; callers should refresh the slot list and let
// the client choose again.
func (s *Scheduler) Create(ctx context.Context, req CreateRequest) (_ Created, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduler.Create", trace.WithAttributes(
		attribute.String("staff_id", req.StaffID),
		attribute.String("service_id", req.ServiceID),
		attribute.String("source", string(req.Source)),
	))
	defer func() { endSpan(span, err) }()

	if err := req.validate(); err != nil {
		return Created{}, err
	}
	if req.Status == "" {
		req.Status = model.StatusPending
	}

	// A completed key replays before any rule is re-evaluated: the booking exists even if
	// its start is now inside the notice period or its service was retired.
	if req.IdempotencyKey != "" {
		prev, found, err := s.store.LookupIdempotencyKey(ctx, req.ClientID, req.IdempotencyKey)
		if err != nil {
			return Created{}, err
		}
		if found {
			var out Created
			err = s.store.WithTx(ctx, func(tx Tx) error {
				out, err = s.replay(ctx, tx, prev, req.PerformedBy)
				return err
			})
			if err != nil {
				return Created{}, mapWriteErr(err)
			}
			s.logger.Info("appointment create replayed", "appointment_id", out.Appointment.ID, "idempotency_key", req.IdempotencyKey)
			return out, nil
		}
	}

	res, err := s.durations.Resolve(ctx, req.ServiceID, req.StaffID)
	if err != nil {
		return Created{}, err
	}
	end := req.Start.Add(res.Service)
	block := res.Block(req.Start)

	if req.Source == model.SourceOnline {
		if err := s.checkOnlinePolicy(ctx, req.StaffID, req.Start, block); err != nil {
			return Created{}, err
		}
	}

	price := res.PriceCents
	if req.DiscountCents > price {
		return Created{}, invalid("discount", "must not exceed the price")
	}
	tax := taxCents(price-req.DiscountCents, res.TaxBasisPoints)

	token, digest, err := NewTrackingToken()
	if err != nil {
		return Created{}, err
	}
	now := s.now()
	appt := model.Appointment{
		ID:             uuid.NewString(),
		ClientID:       req.ClientID,
		StaffID:        req.StaffID,
		ServiceID:      req.ServiceID,
		BranchID:       req.BranchID,
		Start:          req.Start,
		End:            end,
		BlockStart:     block.Start,
		BlockEnd:       block.End,
		Status:         req.Status,
		Source:         req.Source,
		Notes:          req.Notes,
		PriceCents:     price,
		DiscountCents:  req.DiscountCents,
		TaxCents:       tax,
		TotalCents:     price - req.DiscountCents + tax,
		PaymentStatus:  model.PaymentUnpaid,
		TrackingDigest: digest,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var out Created
	err = s.store.WithStaffLock(ctx, req.StaffID, func(tx Tx) error {
		if req.IdempotencyKey != "" {
			prev, found, err := tx.ClaimIdempotencyKey(ctx, req.ClientID, req.IdempotencyKey)
			if err != nil {
				return err
			}
			if found {
				out, err = s.replay(ctx, tx, prev, req.PerformedBy)
				return err
			}
		}

		free, err := s.checker.Using(tx).IsAvailable(ctx, req.StaffID, block, "")
		if err != nil {
			return err
		}
		if !free {
			return ErrSlotUnavailable
		}
		if err := tx.Insert(ctx, &appt); err != nil {
			return err
		}
		if err := tx.AppendLog(ctx, s.logEntry(appt.ID, model.ActionCreated, "", appt.Status, req.Notes, req.PerformedBy)); err != nil {
			return err
		}
		if err := s.publish(ctx, tx, s.notifier.NotifyCreated(ctx, appt, token)); err != nil {
			return err
		}

		out = Created{Appointment: appt, TrackingToken: token}
		if req.IdempotencyKey != "" {
			body, err := json.Marshal(storedCreate{Appointment: appt})
			if err != nil {
				return err
			}
			return tx.CompleteIdempotencyKey(ctx, req.ClientID, req.IdempotencyKey, appt.ID, body)
		}
		return nil
	})
	if err != nil {
		return Created{}, mapWriteErr(err)
	}

	if out.Replayed {
		s.logger.Info("appointment create replayed", "appointment_id", out.Appointment.ID, "idempotency_key", req.IdempotencyKey)
		return out, nil
	}
	s.logger.Info("appointment created",
		"appointment_id", appt.ID,
		"staff_id", appt.StaffID,
		"start", appt.Start.Format(time.RFC3339),
		"status", appt.Status,
		"source", appt.Source,
	)
	return out, nil
}

func (s *Scheduler) checkOnlinePolicy(ctx context.Context, staffID string, start time.Time, block availability.Interval) error {
	now := s.now()
	if start.Before(now.Add(s.policy.MinNotice)) {
		return invalid("start_time", fmt.Sprintf("must be at least %s from now", s.policy.MinNotice))
	}
	if s.policy.MaxAdvance > 0 && start.After(now.Add(s.policy.MaxAdvance)) {
		return invalid("start_time", fmt.Sprintf("must be within %s from now", s.policy.MaxAdvance))
	}
	window, ok, err := s.hours.Window(ctx, staffID, start)
	if err != nil {
		return err
	}
	if !ok || !block.Within(window.Interval) {
		return ErrSlotUnavailable
	}
	return nil
}

// UpdateStatus moves an appointment along its lifecycle. Transitions outside the
// lifecycle fail with ErrInvalidTransition and change nothing.
func (s *Scheduler) UpdateStatus(ctx context.Context, id string, to model.Status, notes, performedBy string) (model.Appointment, error) {
	return s.changeStatus(ctx, id, to, notes, performedBy, false)
}

// Cancel sets the appointment to cancelled. Cancelling twice returns the appointment as is.
func (s *Scheduler) Cancel(ctx context.Context, id, reason, performedBy string) (model.Appointment, error) {
	return s.changeStatus(ctx, id, model.StatusCancelled, reason, performedBy, true)
}

func (s *Scheduler) changeStatus(ctx context.Context, id string, to model.Status, notes, performedBy string, idempotent bool) (_ model.Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduler.UpdateStatus", trace.WithAttributes(
		attribute.String("appointment_id", id),
		attribute.String("status", string(to)),
	))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(id) == "" {
		return model.Appointment{}, invalid("appointment_id", "is required")
	}

	var (
		appt    model.Appointment
		old     model.Status
		changed bool
	)
	err = s.store.WithTx(ctx, func(tx Tx) error {
		cur, err := tx.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		appt, old = cur, cur.Status
		if idempotent && cur.Status == to {
			return nil
		}
		if !model.CanTransition(cur.Status, to) {
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, cur.Status, to)
		}

		now := s.now()
		appt.Status = to
		appt.UpdatedAt = now
		if to == model.StatusCancelled {
			appt.CancelledAt = &now
			appt.CancelReason = notes
		}
		if err := tx.UpdateStatus(ctx, appt); err != nil {
			return err
		}
		if err := tx.AppendLog(ctx, s.logEntry(appt.ID, model.ActionStatusChanged, old, to, notes, performedBy)); err != nil {
			return err
		}
		changed = true
		return s.publish(ctx, tx, s.notifier.NotifyStatusChanged(ctx, appt, old, notes))
	})
	if err != nil {
		return model.Appointment{}, err
	}
	if changed {
		s.logger.Info("appointment status changed",
			"appointment_id", appt.ID,
			"staff_id", appt.StaffID,
			"old_status", old,
			"new_status", appt.Status,
			"performed_by", performedBy,
		)
	}
	return appt, nil
}

type RescheduleRequest struct {
	ID       string
	NewStart time.Time
	// NewEnd overrides the resolved duration when set.
	NewEnd      *time.Time
	PerformedBy string
	// Source online applies the online booking policy to the new time.
	Source model.Source
}

// Reschedule moves a pending or confirmed appointment. On ErrSlotUnavailable the
// appointment keeps its previous times.
func (s *Scheduler) Reschedule(ctx context.Context, req RescheduleRequest) (_ model.Appointment, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduler.Reschedule", trace.WithAttributes(
		attribute.String("appointment_id", req.ID),
	))
	defer func() { endSpan(span, err) }()

	if strings.TrimSpace(req.ID) == "" {
		return model.Appointment{}, invalid("appointment_id", "is required")
	}
	if req.NewStart.IsZero() {
		return model.Appointment{}, invalid("start_time", "is required")
	}
	if req.NewEnd != nil && !req.NewEnd.After(req.NewStart) {
		return model.Appointment{}, invalid("end_time", "must be after start_time")
	}

	current, err := s.store.Get(ctx, req.ID)
	if err != nil {
		return model.Appointment{}, err
	}
	res, err := s.durations.Resolve(ctx, current.ServiceID, current.StaffID)
	if err != nil {
		return model.Appointment{}, err
	}
	newEnd := req.NewStart.Add(res.Service)
	if req.NewEnd != nil {
		newEnd = *req.NewEnd
	}
	block := res.BlockFor(req.NewStart, newEnd)
	if req.Source == model.SourceOnline {
		if err := s.checkOnlinePolicy(ctx, current.StaffID, req.NewStart, block); err != nil {
			return model.Appointment{}, err
		}
	}

	var appt model.Appointment
	var oldStart, oldEnd time.Time
	err = s.store.WithStaffLock(ctx, current.StaffID, func(tx Tx) error {
		cur, err := tx.GetForUpdate(ctx, req.ID)
		if err != nil {
			return err
		}
		if !cur.Status.Reschedulable() {
			return fmt.Errorf("%w: cannot reschedule a %s appointment", ErrInvalidTransition, cur.Status)
		}

		free, err := s.checker.Using(tx).IsAvailable(ctx, cur.StaffID, block, cur.ID)
		if err != nil {
			return err
		}
		if !free {
			return ErrSlotUnavailable
		}

		oldStart, oldEnd = cur.Start, cur.End
		appt = cur
		appt.Start, appt.End = req.NewStart, newEnd
		appt.BlockStart, appt.BlockEnd = block.Start, block.End
		appt.UpdatedAt = s.now()
		if err := tx.UpdateSchedule(ctx, appt); err != nil {
			return err
		}
		notes := fmt.Sprintf("From: %s To: %s", oldStart.Format(time.RFC3339), appt.Start.Format(time.RFC3339))
		if err := tx.AppendLog(ctx, s.logEntry(appt.ID, model.ActionRescheduled, appt.Status, appt.Status, notes, req.PerformedBy)); err != nil {
			return err
		}
		return s.publish(ctx, tx, s.notifier.NotifyRescheduled(ctx, appt, oldStart, oldEnd))
	})
	if err != nil {
		return model.Appointment{}, mapWriteErr(err)
	}

	s.logger.Info("appointment rescheduled",
		"appointment_id", appt.ID,
		"staff_id", appt.StaffID,
		"old_start", oldStart.Format(time.RFC3339),
		"new_start", appt.Start.Format(time.RFC3339),
	)
	return appt, nil
}

// SweepNoShows marks confirmed appointments that started more than grace before now as
// no_show and returns how many were changed.
func (s *Scheduler) SweepNoShows(ctx context.Context, now time.Time, grace time.Duration) (int, error) {
	ids, err := s.store.ListDueNoShows(ctx, now.Add(-grace), noShowBatch)
	if err != nil {
		return 0, err
	}
	marked := 0
	for _, id := range ids {
		_, err := s.UpdateStatus(ctx, id, model.StatusNoShow, "not checked in within grace period", SystemActor)
		switch {
		case err == nil:
			marked++
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrNotFound):
			// changed by someone else since it was listed
			continue
		default:
			return marked, err
		}
	}
	return marked, nil
}

func (s *Scheduler) Get(ctx context.Context, id string) (model.Appointment, error) {
	return s.store.Get(ctx, id)
}

// FindByTrackingToken looks an appointment up by the token handed to the guest.
func (s *Scheduler) FindByTrackingToken(ctx context.Context, token string) (model.Appointment, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return model.Appointment{}, invalid("token", "is required")
	}
	return s.store.GetByTrackingDigest(ctx, DigestToken(token))
}

func (s *Scheduler) List(ctx context.Context, f model.AppointmentFilter) ([]model.Appointment, error) {
	if !f.From.IsZero() && !f.To.IsZero() && !f.To.After(f.From) {
		return nil, invalid("to", "must be after from")
	}
	return s.store.List(ctx, f)
}

// Logs returns the audit trail of an appointment, oldest first.
func (s *Scheduler) Logs(ctx context.Context, appointmentID string) ([]model.LogEntry, error) {
	if _, err := s.store.Get(ctx, appointmentID); err != nil {
		return nil, err
	}
	return s.store.ListLogs(ctx, appointmentID)
}

func (s *Scheduler) logEntry(appointmentID string, action model.LogAction, old, next model.Status, notes, performedBy string) model.LogEntry {
	if performedBy == "" {
		performedBy = SystemActor
	}
	return model.LogEntry{
		ID:            uuid.NewString(),
		AppointmentID: appointmentID,
		Action:        action,
		OldStatus:     old,
		NewStatus:     next,
		Notes:         notes,
		PerformedBy:   performedBy,
		PerformedAt:   s.now(),
	}
}

// replay answers a repeated create with the appointment as it stands now. Only the digest
// of the first token was kept, so a new token is issued and announced.
func (s *Scheduler) replay(ctx context.Context, tx Tx, stored []byte, performedBy string) (Created, error) {
	var prev storedCreate
	if err := json.Unmarshal(stored, &prev); err != nil {
		return Created{}, fmt.Errorf("decode idempotent response: %w", err)
	}
	appt, err := tx.GetForUpdate(ctx, prev.Appointment.ID)
	if err != nil {
		return Created{}, err
	}
	token, digest, err := NewTrackingToken()
	if err != nil {
		return Created{}, err
	}
	if err := tx.RotateTrackingDigest(ctx, appt.ID, digest, s.now()); err != nil {
		return Created{}, err
	}
	appt.TrackingDigest = digest
	appt.UpdatedAt = s.now()
	if err := tx.AppendLog(ctx, s.logEntry(appt.ID, model.ActionTokenReissued, "", "", "", performedBy)); err != nil {
		return Created{}, err
	}
	if err := s.publish(ctx, tx, s.notifier.NotifyTokenReissued(ctx, appt, token)); err != nil {
		return Created{}, err
	}
	return Created{Appointment: appt, TrackingToken: token, Replayed: true}, nil
}

func (s *Scheduler) publish(ctx context.Context, tx Tx, events []outbox.Event) error {
	for _, evt := range events {
		if err := tx.Publish(ctx, evt); err != nil {
			return err
		}
	}
	return nil
}

// taxCents rounds half up.
func taxCents(base int64, basisPoints int) int64 {
	if base <= 0 || basisPoints <= 0 {
		return 0
	}
	return (base*int64(basisPoints) + 5000) / 10000
}

func mapWriteErr(err error) error {
	if errors.Is(err, model.ErrOverlap) {
		return fmt.Errorf("%w: %v", ErrSlotUnavailable, err)
	}
	return err
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
