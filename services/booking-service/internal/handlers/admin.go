package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/auth"
	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/scheduler"
)

type adminCreateRequest struct {
	ClientID      string `json:"client_id" validate:"required,max=128"`
	ServiceID     string `json:"service_id" validate:"required,max=128"`
	StaffID       string `json:"staff_id" validate:"required,max=128"`
	BranchID      string `json:"branch_id" validate:"max=128"`
	StartTime     string `json:"start_time" validate:"required,rfc3339"`
	Status        string `json:"status" validate:"omitempty,oneof=pending confirmed"`
	Notes         string `json:"notes" validate:"max=1000"`
	DiscountCents int64  `json:"discount_cents" validate:"gte=0"`
}

type statusRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
	Status        string `json:"status" validate:"required,oneof=pending confirmed checked_in in_progress completed cancelled no_show"`
	Notes         string `json:"notes" validate:"max=1000"`
}

type rescheduleRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
	StartTime     string `json:"start_time" validate:"required,rfc3339"`
	EndTime       string `json:"end_time" validate:"omitempty,rfc3339"`
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id" validate:"required"`
	Reason        string `json:"reason" validate:"max=500"`
}

// Appointments lists on GET and creates on POST.
func (h *BookingHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.List(w, r)
	case http.MethodPost:
		h.Create(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := model.AppointmentFilter{
		StaffID:  strings.TrimSpace(q.Get("staff_id")),
		ClientID: strings.TrimSpace(q.Get("client_id")),
		BranchID: strings.TrimSpace(q.Get("branch_id")),
	}
	if v := strings.TrimSpace(q.Get("date")); v != "" {
		day, err := time.ParseInLocation(dateLayout, v, h.loc)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		f.From, f.To = day, day.AddDate(0, 0, 1)
	}
	if v := strings.TrimSpace(q.Get("status")); v != "" {
		st, err := model.ParseStatus(v)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Status = st
	}
	if v := strings.TrimSpace(q.Get("limit")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > maxListLimit {
			httpx.WriteError(w, http.StatusBadRequest, "limit must be between 1 and 200")
			return
		}
		f.Limit = n
	}

	appts, err := h.sched.List(r.Context(), f)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	items := make([]appointmentResponse, 0, len(appts))
	for _, a := range appts {
		items = append(items, toAppointmentResponse(a, h.loc))
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

// Create books on behalf of a client. Staff bookings default to confirmed and may fall
// outside working hours.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req adminCreateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	start, _ := time.Parse(time.RFC3339, req.StartTime)
	status := model.StatusConfirmed
	if req.Status != "" {
		status = model.Status(req.Status)
	}

	out, err := h.sched.Create(r.Context(), scheduler.CreateRequest{
		ClientID:       strings.TrimSpace(req.ClientID),
		ServiceID:      strings.TrimSpace(req.ServiceID),
		StaffID:        strings.TrimSpace(req.StaffID),
		BranchID:       strings.TrimSpace(req.BranchID),
		Start:          start,
		Source:         model.SourceAdmin,
		Status:         status,
		Notes:          strings.TrimSpace(req.Notes),
		DiscountCents:  req.DiscountCents,
		PerformedBy:    actorID(r),
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	code := http.StatusCreated
	if out.Replayed {
		code = http.StatusOK
	}
	httpx.WriteJSON(w, code, bookingResponse{
		appointmentResponse: toAppointmentResponse(out.Appointment, h.loc),
		TrackingToken:       out.TrackingToken,
	})
}

func (h *BookingHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req statusRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	var (
		appt model.Appointment
		err  error
	)
	if model.Status(req.Status) == model.StatusCancelled {
		appt, err = h.sched.Cancel(r.Context(), req.AppointmentID, strings.TrimSpace(req.Notes), actorID(r))
	} else {
		appt, err = h.sched.UpdateStatus(r.Context(), req.AppointmentID, model.Status(req.Status), strings.TrimSpace(req.Notes), actorID(r))
	}
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt, h.loc))
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req rescheduleRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	start, _ := time.Parse(time.RFC3339, req.StartTime)
	rr := scheduler.RescheduleRequest{ID: req.AppointmentID, NewStart: start, PerformedBy: actorID(r)}
	if req.EndTime != "" {
		end, _ := time.Parse(time.RFC3339, req.EndTime)
		rr.NewEnd = &end
	}

	appt, err := h.sched.Reschedule(r.Context(), rr)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt, h.loc))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req cancelRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	appt, err := h.sched.Cancel(r.Context(), req.AppointmentID, strings.TrimSpace(req.Reason), actorID(r))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt, h.loc))
}

func (h *BookingHandler) Logs(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	id := strings.TrimSpace(r.URL.Query().Get("appointment_id"))
	if id == "" {
		httpx.WriteError(w, http.StatusBadRequest, "appointment_id is required")
		return
	}
	entries, err := h.sched.Logs(r.Context(), id)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	items := make([]logItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, logItem{
			ID:          e.ID,
			Action:      string(e.Action),
			OldStatus:   string(e.OldStatus),
			NewStatus:   string(e.NewStatus),
			Notes:       e.Notes,
			PerformedBy: e.PerformedBy,
			PerformedAt: e.PerformedAt.UTC().Format(time.RFC3339),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func actorID(r *http.Request) string {
	if a, ok := auth.ActorFromContext(r.Context()); ok {
		return a.ID
	}
	return ""
}
