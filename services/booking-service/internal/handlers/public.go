package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/scheduler"
)

type bookRequest struct {
	ClientID  string `json:"client_id" validate:"required,max=128"`
	ServiceID string `json:"service_id" validate:"required,max=128"`
	StaffID   string `json:"staff_id" validate:"required,max=128"`
	BranchID  string `json:"branch_id" validate:"max=128"`
	StartTime string `json:"start_time" validate:"required,rfc3339"`
	Notes     string `json:"notes" validate:"max=1000"`
}

type guestCancelRequest struct {
	Token  string `json:"token" validate:"required"`
	Reason string `json:"reason" validate:"max=500"`
}

type guestRescheduleRequest struct {
	Token     string `json:"token" validate:"required"`
	StartTime string `json:"start_time" validate:"required,rfc3339"`
}

// Book creates a pending online booking. A repeated Idempotency-Key from the same client
// returns the original booking.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req bookRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	start, _ := time.Parse(time.RFC3339, req.StartTime)

	out, err := h.sched.Create(r.Context(), scheduler.CreateRequest{
		ClientID:       strings.TrimSpace(req.ClientID),
		ServiceID:      strings.TrimSpace(req.ServiceID),
		StaffID:        strings.TrimSpace(req.StaffID),
		BranchID:       strings.TrimSpace(req.BranchID),
		Start:          start,
		Source:         model.SourceOnline,
		Status:         model.StatusPending,
		Notes:          strings.TrimSpace(req.Notes),
		PerformedBy:    strings.TrimSpace(req.ClientID),
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	status := http.StatusCreated
	if out.Replayed {
		status = http.StatusOK
	}
	httpx.WriteJSON(w, status, bookingResponse{
		appointmentResponse: toAppointmentResponse(out.Appointment, h.loc),
		TrackingToken:       out.TrackingToken,
	})
}

func (h *BookingHandler) GuestLookup(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	appt, err := h.sched.FindByTrackingToken(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt, h.loc))
}

func (h *BookingHandler) GuestCancel(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req guestCancelRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	appt, err := h.sched.FindByTrackingToken(r.Context(), req.Token)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	if appt.Status != model.StatusCancelled {
		if err := h.guest.CanCancel(h.now(), appt.Start); err != nil {
			writeErr(w, r, h.logger, err)
			return
		}
	}
	appt, err = h.sched.Cancel(r.Context(), appt.ID, strings.TrimSpace(req.Reason), appt.ClientID)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt, h.loc))
}

func (h *BookingHandler) GuestReschedule(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req guestRescheduleRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}
	start, _ := time.Parse(time.RFC3339, req.StartTime)

	appt, err := h.sched.FindByTrackingToken(r.Context(), req.Token)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	if err := h.guest.CanReschedule(h.now(), appt.Start); err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	appt, err = h.sched.Reschedule(r.Context(), scheduler.RescheduleRequest{
		ID:          appt.ID,
		NewStart:    start,
		PerformedBy: appt.ClientID,
		Source:      model.SourceOnline,
	})
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt, h.loc))
}
