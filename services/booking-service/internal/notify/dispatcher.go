// Package notify turns appointment changes into outbox events for downstream
// notification and reminder services.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/policy"
)

const (
	EventCreated           = "booking.appointment.created.v1"
	EventStatusChanged     = "booking.appointment.status_changed.v1"
	EventRescheduled       = "booking.appointment.rescheduled.v1"
	EventReminderRequested = "booking.reminder.requested.v1"
	EventTokenReissued     = "booking.tracking_token.reissued.v1"

	aggregateType = "appointment"
)

// SecretPayloadKeys are payload fields the outbox strips once an event is published.
var SecretPayloadKeys = []string{"tracking_token"}

type Dispatcher struct {
	policy policy.Provider
	logger *slog.Logger
	now    func() time.Time
}

func NewDispatcher(policyProvider policy.Provider, logger *slog.Logger, now func() time.Time) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{policy: policyProvider, logger: logger, now: now}
}

// NotifyCreated announces a new booking and requests its reminders. The tracking token is
// included so the notification service can send the guest a self-service link.
func (d *Dispatcher) NotifyCreated(ctx context.Context, a model.Appointment, trackingToken string) []outbox.Event {
	payload := appointmentPayload(a)
	payload["tracking_token"] = trackingToken
	payload["confirmation_code"] = a.ConfirmationCode()
	payload["total_cents"] = a.TotalCents

	events := d.appendEvent(nil, a.ID, EventCreated, payload)
	return d.appendReminders(ctx, events, a)
}

// NotifyTokenReissued carries the replacement token after a repeated create.
func (d *Dispatcher) NotifyTokenReissued(_ context.Context, a model.Appointment, trackingToken string) []outbox.Event {
	payload := appointmentPayload(a)
	payload["tracking_token"] = trackingToken
	payload["confirmation_code"] = a.ConfirmationCode()
	return d.appendEvent(nil, a.ID, EventTokenReissued, payload)
}

func (d *Dispatcher) NotifyStatusChanged(_ context.Context, a model.Appointment, old model.Status, notes string) []outbox.Event {
	payload := appointmentPayload(a)
	payload["old_status"] = old
	payload["notes"] = notes
	if a.CancelledAt != nil {
		payload["cancelled_at"] = a.CancelledAt.UTC().Format(time.RFC3339)
	}
	return d.appendEvent(nil, a.ID, EventStatusChanged, payload)
}

// NotifyRescheduled announces the move and requests reminders for the new time. Consumers
// drop reminders whose start_time no longer matches the appointment.
func (d *Dispatcher) NotifyRescheduled(ctx context.Context, a model.Appointment, oldStart, oldEnd time.Time) []outbox.Event {
	payload := appointmentPayload(a)
	payload["old_start_time"] = oldStart.UTC().Format(time.RFC3339)
	payload["old_end_time"] = oldEnd.UTC().Format(time.RFC3339)

	events := d.appendEvent(nil, a.ID, EventRescheduled, payload)
	return d.appendReminders(ctx, events, a)
}

func (d *Dispatcher) appendReminders(ctx context.Context, events []outbox.Event, a model.Appointment) []outbox.Event {
	offsets, err := d.policy.ReminderOffsets(ctx, a.BranchID)
	if err != nil {
		d.logger.Warn("reminder policy unavailable", "appointment_id", a.ID, "err", err)
		return events
	}
	now := d.now()
	for _, offset := range offsets {
		remindAt := a.Start.Add(-offset)
		if !remindAt.After(now) {
			continue
		}
		events = d.appendEvent(events, a.ID, EventReminderRequested, map[string]any{
			"appointment_id": a.ID,
			"client_id":      a.ClientID,
			"branch_id":      a.BranchID,
			"remind_at":      remindAt.UTC().Format(time.RFC3339),
			"template_data": map[string]any{
				"service_id": a.ServiceID,
				"staff_id":   a.StaffID,
				"start_time": a.Start.UTC().Format(time.RFC3339),
			},
		})
	}
	return events
}

func (d *Dispatcher) appendEvent(events []outbox.Event, appointmentID, eventType string, payload map[string]any) []outbox.Event {
	body, err := json.Marshal(payload)
	if err != nil {
		d.logger.Error("failed to build event payload", "event_type", eventType, "err", err)
		return events
	}
	return append(events, outbox.Event{
		AggregateType: aggregateType,
		AggregateID:   appointmentID,
		EventType:     eventType,
		Payload:       body,
	})
}

func appointmentPayload(a model.Appointment) map[string]any {
	return map[string]any{
		"appointment_id": a.ID,
		"client_id":      a.ClientID,
		"staff_id":       a.StaffID,
		"service_id":     a.ServiceID,
		"branch_id":      a.BranchID,
		"status":         a.Status,
		"source":         a.Source,
		"start_time":     a.Start.UTC().Format(time.RFC3339),
		"end_time":       a.End.UTC().Format(time.RFC3339),
	}
}
