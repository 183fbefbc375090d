package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

// ScheduleStore is the write side of staff schedules. *storage.ScheduleRepository
// implements it.
type ScheduleStore interface {
	UpsertWorkingHours(ctx context.Context, wh model.WorkingHours) error
	CreateTimeOff(ctx context.Context, t model.TimeOff) (string, error)
	ListTimeOff(ctx context.Context, staffID string, from, to time.Time) ([]model.TimeOff, error)
}

// ScheduleHandler lets managers edit weekly hours and record time off. Slot listings
// pick the changes up on the next request.
type ScheduleHandler struct {
	store    ScheduleStore
	loc      *time.Location
	validate *validator.Validate
	logger   *slog.Logger
}

func NewScheduleHandler(store ScheduleStore, loc *time.Location, logger *slog.Logger) *ScheduleHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &ScheduleHandler{store: store, loc: loc, validate: newValidator(), logger: logger}
}

func (h *ScheduleHandler) Register(mux *http.ServeMux, manager httpx.Middleware) {
	mux.Handle("/api/v1/staff/working-hours", manager(http.HandlerFunc(h.WorkingHours)))
	mux.Handle("/api/v1/staff/time-off", manager(http.HandlerFunc(h.TimeOff)))
}

type breakItem struct {
	StartMinute int `json:"start_minute" validate:"gte=0,lte=1440"`
	EndMinute   int `json:"end_minute" validate:"gte=0,lte=1440"`
}

type workingHoursRequest struct {
	StaffID     string      `json:"staff_id" validate:"required,max=128"`
	Weekday     *int        `json:"weekday" validate:"required,gte=0,lte=6"`
	IsWorking   bool        `json:"is_working"`
	StartMinute int         `json:"start_minute" validate:"gte=0,lte=1440"`
	EndMinute   int         `json:"end_minute" validate:"gte=0,lte=1440"`
	Breaks      []breakItem `json:"breaks" validate:"omitempty,max=10,dive"`
}

type timeOffRequest struct {
	StaffID   string `json:"staff_id" validate:"required,max=128"`
	StartTime string `json:"start_time" validate:"required,rfc3339"`
	EndTime   string `json:"end_time" validate:"required,rfc3339"`
	Status    string `json:"status" validate:"omitempty,oneof=pending approved rejected"`
	Reason    string `json:"reason" validate:"max=500"`
}

type timeOffItem struct {
	ID        string `json:"id"`
	StaffID   string `json:"staff_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
}

// WorkingHours replaces one weekday of a staff member's schedule.
func (h *ScheduleHandler) WorkingHours(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPut) {
		return
	}
	var req workingHoursRequest
	if !decodeAndValidate(h.validate, w, r, &req) {
		return
	}
	wh := model.WorkingHours{
		StaffID:     strings.TrimSpace(req.StaffID),
		Weekday:     *req.Weekday,
		IsWorking:   req.IsWorking,
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
	}
	for _, b := range req.Breaks {
		wh.Breaks = append(wh.Breaks, model.Break{StartMinute: b.StartMinute, EndMinute: b.EndMinute})
	}
	if err := wh.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.UpsertWorkingHours(r.Context(), wh); err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, req)
}

// TimeOff lists on GET and records a request on POST.
func (h *ScheduleHandler) TimeOff(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listTimeOff(w, r)
	case http.MethodPost:
		h.createTimeOff(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		httpx.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *ScheduleHandler) createTimeOff(w http.ResponseWriter, r *http.Request) {
	var req timeOffRequest
	if !decodeAndValidate(h.validate, w, r, &req) {
		return
	}
	start, _ := time.Parse(time.RFC3339, req.StartTime)
	end, _ := time.Parse(time.RFC3339, req.EndTime)
	if !end.After(start) {
		httpx.WriteJSON(w, http.StatusBadRequest, httpx.ErrorBody{Error: "end_time must be after start_time", Field: "end_time"})
		return
	}
	t := model.TimeOff{
		StaffID: strings.TrimSpace(req.StaffID),
		Start:   start,
		End:     end,
		Status:  model.TimeOffStatus(req.Status),
		Reason:  strings.TrimSpace(req.Reason),
	}
	if t.Status == "" {
		t.Status = model.TimeOffPending
	}
	id, err := h.store.CreateTimeOff(r.Context(), t)
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	t.ID = id
	httpx.WriteJSON(w, http.StatusCreated, h.toItem(t))
}

func (h *ScheduleHandler) listTimeOff(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	staffID := strings.TrimSpace(q.Get("staff_id"))
	if staffID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "staff_id is required")
		return
	}
	from, errFrom := time.ParseInLocation(dateLayout, strings.TrimSpace(q.Get("from")), h.loc)
	to, errTo := time.ParseInLocation(dateLayout, strings.TrimSpace(q.Get("to")), h.loc)
	if errFrom != nil || errTo != nil || to.Before(from) {
		httpx.WriteError(w, http.StatusBadRequest, "from and to must be YYYY-MM-DD with from <= to")
		return
	}

	list, err := h.store.ListTimeOff(r.Context(), staffID, from, to.AddDate(0, 0, 1))
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}
	items := make([]timeOffItem, 0, len(list))
	for _, t := range list {
		items = append(items, h.toItem(t))
	}
	httpx.WriteJSON(w, http.StatusOK, items)
}

func (h *ScheduleHandler) toItem(t model.TimeOff) timeOffItem {
	return timeOffItem{
		ID:        t.ID,
		StaffID:   t.StaffID,
		StartTime: t.Start.In(h.loc).Format(time.RFC3339),
		EndTime:   t.End.In(h.loc).Format(time.RFC3339),
		Status:    string(t.Status),
		Reason:    t.Reason,
	}
}
