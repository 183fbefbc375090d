package handlers

import (
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

type appointmentResponse struct {
	AppointmentID    string `json:"appointment_id"`
	ConfirmationCode string `json:"confirmation_code"`
	ClientID         string `json:"client_id"`
	StaffID          string `json:"staff_id"`
	ServiceID        string `json:"service_id"`
	BranchID         string `json:"branch_id,omitempty"`
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	Status           string `json:"status"`
	Source           string `json:"source"`
	Notes            string `json:"notes,omitempty"`
	PriceCents       int64  `json:"price_cents"`
	DiscountCents    int64  `json:"discount_cents"`
	TaxCents         int64  `json:"tax_cents"`
	TotalCents       int64  `json:"total_cents"`
	PaymentStatus    string `json:"payment_status"`
	CancelledAt      string `json:"cancelled_at,omitempty"`
	CancelReason     string `json:"cancel_reason,omitempty"`
	CreatedAt        string `json:"created_at"`
}

func toAppointmentResponse(a model.Appointment, loc *time.Location) appointmentResponse {
	resp := appointmentResponse{
		AppointmentID:    a.ID,
		ConfirmationCode: a.ConfirmationCode(),
		ClientID:         a.ClientID,
		StaffID:          a.StaffID,
		ServiceID:        a.ServiceID,
		BranchID:         a.BranchID,
		StartTime:        a.Start.In(loc).Format(time.RFC3339),
		EndTime:          a.End.In(loc).Format(time.RFC3339),
		Status:           string(a.Status),
		Source:           string(a.Source),
		Notes:            a.Notes,
		PriceCents:       a.PriceCents,
		DiscountCents:    a.DiscountCents,
		TaxCents:         a.TaxCents,
		TotalCents:       a.TotalCents,
		PaymentStatus:    string(a.PaymentStatus),
		CancelReason:     a.CancelReason,
		CreatedAt:        a.CreatedAt.UTC().Format(time.RFC3339),
	}
	if a.CancelledAt != nil {
		resp.CancelledAt = a.CancelledAt.UTC().Format(time.RFC3339)
	}
	return resp
}

type bookingResponse struct {
	appointmentResponse
	TrackingToken string `json:"tracking_token"`
}

type slotItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Time      string `json:"time"`
	Display   string `json:"display"`
}

type slotsResponse struct {
	Date      string     `json:"date"`
	StaffID   string     `json:"staff_id"`
	ServiceID string     `json:"service_id"`
	Slots     []slotItem `json:"slots"`
}

type logItem struct {
	ID          string `json:"id"`
	Action      string `json:"action"`
	OldStatus   string `json:"old_status,omitempty"`
	NewStatus   string `json:"new_status,omitempty"`
	Notes       string `json:"notes,omitempty"`
	PerformedBy string `json:"performed_by"`
	PerformedAt string `json:"performed_at"`
}
