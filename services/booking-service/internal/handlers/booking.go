package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/policy"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/scheduler"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/slots"
)

const maxListLimit = 200

type BookingHandler struct {
	sched     *scheduler.Scheduler
	slots     *slots.Generator
	loc       *time.Location
	guest     policy.Guest
	minNotice time.Duration
	validate  *validator.Validate
	logger    *slog.Logger
	now       func() time.Time
}

type Config struct {
	Location  *time.Location
	Guest     policy.Guest
	MinNotice time.Duration
	Now       func() time.Time
}

func NewBookingHandler(sched *scheduler.Scheduler, gen *slots.Generator, logger *slog.Logger, cfg Config) *BookingHandler {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &BookingHandler{
		sched:     sched,
		slots:     gen,
		loc:       cfg.Location,
		guest:     cfg.Guest,
		minNotice: cfg.MinNotice,
		validate:  newValidator(),
		logger:    logger,
		now:       cfg.Now,
	}
}

// Register mounts the public routes behind public and the staff routes behind admin.
func (h *BookingHandler) Register(mux *http.ServeMux, public, admin httpx.Middleware) {
	mux.Handle("/api/v1/public/slots", public(http.HandlerFunc(h.PublicSlots)))
	mux.Handle("/api/v1/public/book", public(http.HandlerFunc(h.Book)))
	mux.Handle("/api/v1/public/appointments", public(http.HandlerFunc(h.GuestLookup)))
	mux.Handle("/api/v1/public/appointments/cancel", public(http.HandlerFunc(h.GuestCancel)))
	mux.Handle("/api/v1/public/appointments/reschedule", public(http.HandlerFunc(h.GuestReschedule)))

	mux.Handle("/api/v1/slots", admin(http.HandlerFunc(h.AdminSlots)))
	mux.Handle("/api/v1/appointments", admin(http.HandlerFunc(h.Appointments)))
	mux.Handle("/api/v1/appointments/status", admin(http.HandlerFunc(h.UpdateStatus)))
	mux.Handle("/api/v1/appointments/reschedule", admin(http.HandlerFunc(h.Reschedule)))
	mux.Handle("/api/v1/appointments/cancel", admin(http.HandlerFunc(h.Cancel)))
	mux.Handle("/api/v1/appointments/logs", admin(http.HandlerFunc(h.Logs)))
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	return true
}
