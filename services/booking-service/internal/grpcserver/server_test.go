package grpcserver

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/md-rashed-zaman/salonbook/libs/grpcx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/duration"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/hours"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/scheduler"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/scheduler/schedulertest"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/slots"
)

var now = time.Date(2026, 3, 2, 7, 0, 0, 0, time.UTC)

type schedule struct{}

func (schedule) GetWorkingHours(_ context.Context, _ string, weekday int) (model.WorkingHours, bool, error) {
	return model.WorkingHours{Weekday: weekday, IsWorking: weekday != 0, StartMinute: 540, EndMinute: 1080}, true, nil
}

func (schedule) ListTimeOff(context.Context, string, time.Time, time.Time) ([]model.TimeOff, error) {
	return nil, nil
}

type catalog struct{}

func (catalog) GetService(_ context.Context, id string) (model.Service, error) {
	if id != "cut" {
		return model.Service{}, model.ErrNotFound
	}
	return model.Service{ID: id, BaseMinutes: 45, PriceCents: 3000, IsActive: true}, nil
}

func (catalog) GetStaffMember(_ context.Context, id string) (model.StaffMember, error) {
	return model.StaffMember{ID: id, IsActive: true}, nil
}

func (catalog) GetStaffServiceOverride(context.Context, string, string) (model.StaffServiceOverride, bool, error) {
	return model.StaffServiceOverride{}, false, nil
}

type quiet struct{}

func (quiet) NotifyCreated(context.Context, model.Appointment, string) []outbox.Event { return nil }
func (quiet) NotifyStatusChanged(context.Context, model.Appointment, model.Status, string) []outbox.Event {
	return nil
}
func (quiet) NotifyRescheduled(context.Context, model.Appointment, time.Time, time.Time) []outbox.Event {
	return nil
}

func (quiet) NotifyTokenReissued(context.Context, model.Appointment, string) []outbox.Event {
	return nil
}

func dial(t *testing.T) *grpc.ClientConn {
	t.Helper()
	return dialAt(t, now)
}

func dialAt(t *testing.T, current time.Time) *grpc.ClientConn {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := func() time.Time { return current }
	store := schedulertest.NewMemStore()
	hp := hours.NewProvider(schedule{}, time.UTC)
	resolver := duration.NewResolver(catalog{})
	checker := conflict.NewChecker(hp, store)
	sched := scheduler.New(store, resolver, checker, hp, quiet{}, logger, scheduler.Config{
		Policy: scheduler.Policy{MinNotice: time.Hour, MaxAdvance: 60 * 24 * time.Hour},
		Now:    clock,
	})

	lis := bufconn.Listen(1 << 20)
	srv, _ := grpcx.NewServer(logger)
	Register(srv, sched, slots.NewGenerator(hp, resolver, checker, slots.WithClock(clock)), time.UTC, logger)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithChainUnaryInterceptor(grpcx.UnaryClientRequestIDInterceptor()),
	)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func call(t *testing.T, conn *grpc.ClientConn, method string, in map[string]any) (*structpb.Struct, error) {
	t.Helper()
	req, err := structpb.NewStruct(in)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	out := new(structpb.Struct)
	err = conn.Invoke(ctx, FullMethod(method), req, out)
	return out, err
}

func field(s *structpb.Struct, key string) string {
	return s.GetFields()[key].GetStringValue()
}

func TestHealthServing(t *testing.T) {
	conn := dial(t)
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v", resp.GetStatus())
	}
}

func TestBookingLifecycleOverGRPC(t *testing.T) {
	conn := dial(t)

	slotsResp, err := call(t, conn, MethodListAvailableSlots, map[string]any{"service_id": "cut", "staff_id": "ana", "date": "2026-03-03"})
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	// 09:00 through 17:00 in 30 minute steps for a 45 minute service.
	if n := len(slotsResp.GetFields()["slots"].GetListValue().GetValues()); n != 17 {
		t.Fatalf("slots = %d, want 17", n)
	}

	created, err := call(t, conn, MethodCreateAppointment, map[string]any{
		"client_id": "c1", "service_id": "cut", "staff_id": "ana", "start_time": "2026-03-03T10:00:00Z",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := field(created, "appointment_id")
	if field(created, "status") != "confirmed" || field(created, "end_time") != "2026-03-03T10:45:00Z" || field(created, "tracking_token") == "" {
		t.Fatalf("created = %v", created.AsMap())
	}

	_, err = call(t, conn, MethodCreateAppointment, map[string]any{
		"client_id": "c2", "service_id": "cut", "staff_id": "ana", "start_time": "2026-03-03T10:30:00Z",
	})
	if status.Code(err) != codes.AlreadyExists {
		t.Fatalf("overlap code = %v", status.Code(err))
	}

	_, err = call(t, conn, MethodUpdateAppointmentStatus, map[string]any{"appointment_id": id, "status": "completed"})
	if status.Code(err) != codes.FailedPrecondition {
		t.Fatalf("skip code = %v", status.Code(err))
	}

	moved, err := call(t, conn, MethodRescheduleAppointment, map[string]any{"appointment_id": id, "start_time": "2026-03-03T13:00:00Z"})
	if err != nil || field(moved, "start_time") != "2026-03-03T13:00:00Z" {
		t.Fatalf("reschedule: %v %v", err, moved.AsMap())
	}

	got, err := call(t, conn, MethodGetAppointment, map[string]any{"tracking_token": field(created, "tracking_token")})
	if err != nil || field(got, "appointment_id") != id {
		t.Fatalf("get by token: %v", err)
	}

	cancelled, err := call(t, conn, MethodCancelAppointment, map[string]any{"appointment_id": id, "reason": "ill"})
	if err != nil || field(cancelled, "status") != "cancelled" || field(cancelled, "cancel_reason") != "ill" {
		t.Fatalf("cancel: %v", err)
	}
}

func TestErrorCodes(t *testing.T) {
	conn := dial(t)
	cases := []struct {
		method string
		in     map[string]any
		want   codes.Code
	}{
		{MethodListAvailableSlots, map[string]any{"service_id": "cut", "staff_id": "ana", "date": "tomorrow"}, codes.InvalidArgument},
		{MethodCreateAppointment, map[string]any{"client_id": "c", "service_id": "cut", "staff_id": "ana", "start_time": "x"}, codes.InvalidArgument},
		{MethodCreateAppointment, map[string]any{"client_id": "c", "service_id": "dye", "staff_id": "ana", "start_time": "2026-03-03T10:00:00Z"}, codes.NotFound},
		{MethodGetAppointment, map[string]any{"appointment_id": "missing"}, codes.NotFound},
		{MethodUpdateAppointmentStatus, map[string]any{"appointment_id": "missing", "status": "bogus"}, codes.InvalidArgument},
	}
	for _, tc := range cases {
		if _, err := call(t, conn, tc.method, tc.in); status.Code(err) != tc.want {
			t.Fatalf("%s %v: code = %v, want %v", tc.method, tc.in, status.Code(err), tc.want)
		}
	}
}

func TestNegativeMinNoticeHidesPastSlots(t *testing.T) {
	midday := time.Date(2026, 3, 2, 12, 10, 0, 0, time.UTC)
	conn := dialAt(t, midday)
	out, err := call(t, conn, MethodListAvailableSlots, map[string]any{
		"service_id": "cut", "staff_id": "ana", "date": "2026-03-02", "min_notice_minutes": -300,
	})
	if err != nil {
		t.Fatalf("slots: %v", err)
	}
	list := out.GetFields()["slots"].GetListValue().GetValues()
	if len(list) == 0 {
		t.Fatalf("no slots left in the afternoon")
	}
	for _, v := range list {
		start, err := time.Parse(time.RFC3339, field(v.GetStructValue(), "start_time"))
		if err != nil {
			t.Fatalf("start_time: %v", err)
		}
		if start.Before(midday) {
			t.Fatalf("slot %s starts before now", start)
		}
	}
}

func TestRequestIDIsPropagated(t *testing.T) {
	conn := dial(t)
	req, _ := structpb.NewStruct(map[string]any{"service_id": "cut", "staff_id": "ana", "date": "2026-03-08"})

	ctx := grpcx.WithRequestID(context.Background(), "req-42")
	var header metadata.MD
	if err := conn.Invoke(ctx, FullMethod(MethodListAvailableSlots), req, new(structpb.Struct), grpc.Header(&header)); err != nil {
		t.Fatalf("slots: %v", err)
	}
	if got := header.Get(grpcx.RequestIDMetadataKey); len(got) != 1 || got[0] != "req-42" {
		t.Fatalf("request id header = %v", got)
	}
}
