// Package grpcserver exposes the scheduler to internal callers such as the gateway and
// the notification worker.
package grpcserver

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/md-rashed-zaman/salonbook/libs/grpcx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/scheduler"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/slots"
)

type server struct {
	sched  *scheduler.Scheduler
	slots  *slots.Generator
	loc    *time.Location
	logger *slog.Logger
}

func Register(grpcServer *grpc.Server, sched *scheduler.Scheduler, gen *slots.Generator, loc *time.Location, logger *slog.Logger) {
	if loc == nil {
		loc = time.UTC
	}
	grpcServer.RegisterService(&serviceDesc, &server{sched: sched, slots: gen, loc: loc, logger: logger})
}

func (s *server) ListAvailableSlots(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	serviceID, staffID := str(req, "service_id"), str(req, "staff_id")
	if serviceID == "" || staffID == "" {
		return nil, status.Error(codes.InvalidArgument, "service_id and staff_id are required")
	}
	date, err := time.ParseInLocation("2006-01-02", str(req, "date"), s.loc)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, "date must be YYYY-MM-DD")
	}
	var notice time.Duration
	if v := req.GetFields()["min_notice_minutes"]; v != nil {
		if m := v.GetNumberValue(); m > 0 {
			notice = time.Duration(m) * time.Minute
		}
	}

	list, err := s.slots.AvailableSlots(ctx, slots.Query{ServiceID: serviceID, StaffID: staffID, Date: date, MinNotice: notice})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	items := make([]any, 0, len(list))
	for _, sl := range list {
		items = append(items, map[string]any{
			"start_time": sl.Start.Format(time.RFC3339),
			"end_time":   sl.End.Format(time.RFC3339),
			"time":       sl.Time,
			"display":    sl.Display,
		})
	}
	return structpb.NewStruct(map[string]any{"slots": items})
}

func (s *server) CreateAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start, err := parseTime(req, "start_time")
	if err != nil {
		return nil, err
	}
	source := model.SourceAdmin
	if v := str(req, "source"); v != "" {
		source = model.Source(v)
	}
	st := model.StatusConfirmed
	if source == model.SourceOnline {
		st = model.StatusPending
	}
	if v := str(req, "status"); v != "" {
		st = model.Status(v)
	}

	out, err := s.sched.Create(ctx, scheduler.CreateRequest{
		ClientID:       str(req, "client_id"),
		ServiceID:      str(req, "service_id"),
		StaffID:        str(req, "staff_id"),
		BranchID:       str(req, "branch_id"),
		Start:          start,
		Source:         source,
		Status:         st,
		Notes:          str(req, "notes"),
		DiscountCents:  int64(req.GetFields()["discount_cents"].GetNumberValue()),
		PerformedBy:    str(req, "performed_by"),
		IdempotencyKey: str(req, "idempotency_key"),
	})
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	m := s.appointmentMap(out.Appointment)
	m["tracking_token"] = out.TrackingToken
	m["replayed"] = out.Replayed
	return structpb.NewStruct(m)
}

func (s *server) GetAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var (
		appt model.Appointment
		err  error
	)
	if token := str(req, "tracking_token"); token != "" {
		appt, err = s.sched.FindByTrackingToken(ctx, token)
	} else {
		appt, err = s.sched.Get(ctx, str(req, "appointment_id"))
	}
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return structpb.NewStruct(s.appointmentMap(appt))
}

func (s *server) UpdateAppointmentStatus(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	to, err := model.ParseStatus(str(req, "status"))
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	var appt model.Appointment
	if to == model.StatusCancelled {
		appt, err = s.sched.Cancel(ctx, str(req, "appointment_id"), str(req, "notes"), str(req, "performed_by"))
	} else {
		appt, err = s.sched.UpdateStatus(ctx, str(req, "appointment_id"), to, str(req, "notes"), str(req, "performed_by"))
	}
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return structpb.NewStruct(s.appointmentMap(appt))
}

func (s *server) RescheduleAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	start, err := parseTime(req, "start_time")
	if err != nil {
		return nil, err
	}
	rr := scheduler.RescheduleRequest{
		ID:          str(req, "appointment_id"),
		NewStart:    start,
		PerformedBy: str(req, "performed_by"),
		Source:      model.Source(str(req, "source")),
	}
	if str(req, "end_time") != "" {
		end, err := parseTime(req, "end_time")
		if err != nil {
			return nil, err
		}
		rr.NewEnd = &end
	}
	appt, err := s.sched.Reschedule(ctx, rr)
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return structpb.NewStruct(s.appointmentMap(appt))
}

func (s *server) CancelAppointment(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	appt, err := s.sched.Cancel(ctx, str(req, "appointment_id"), str(req, "reason"), str(req, "performed_by"))
	if err != nil {
		return nil, s.toStatus(ctx, err)
	}
	return structpb.NewStruct(s.appointmentMap(appt))
}

func (s *server) appointmentMap(a model.Appointment) map[string]any {
	m := map[string]any{
		"appointment_id":    a.ID,
		"confirmation_code": a.ConfirmationCode(),
		"client_id":         a.ClientID,
		"staff_id":          a.StaffID,
		"service_id":        a.ServiceID,
		"branch_id":         a.BranchID,
		"start_time":        a.Start.In(s.loc).Format(time.RFC3339),
		"end_time":          a.End.In(s.loc).Format(time.RFC3339),
		"status":            string(a.Status),
		"source":            string(a.Source),
		"price_cents":       a.PriceCents,
		"discount_cents":    a.DiscountCents,
		"tax_cents":         a.TaxCents,
		"total_cents":       a.TotalCents,
		"payment_status":    string(a.PaymentStatus),
	}
	if a.CancelledAt != nil {
		m["cancelled_at"] = a.CancelledAt.UTC().Format(time.RFC3339)
		m["cancel_reason"] = a.CancelReason
	}
	return m
}

func (s *server) toStatus(ctx context.Context, err error) error {
	var verr *scheduler.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.Error(codes.InvalidArgument, verr.Error())
	case errors.Is(err, scheduler.ErrValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, scheduler.ErrNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, scheduler.ErrSlotUnavailable):
		return status.Error(codes.AlreadyExists, "time slot unavailable")
	case errors.Is(err, scheduler.ErrInvalidTransition):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	default:
		s.logger.Error("grpc call failed", "request_id", grpcx.RequestIDFromContext(ctx), "err", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func str(req *structpb.Struct, key string) string {
	return strings.TrimSpace(req.GetFields()[key].GetStringValue())
}

func parseTime(req *structpb.Struct, key string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, str(req, key))
	if err != nil {
		return time.Time{}, status.Errorf(codes.InvalidArgument, "%s must be RFC3339", key)
	}
	return t, nil
}
