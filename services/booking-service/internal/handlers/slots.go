package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/salonbook/libs/httpx"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/slots"
)

const dateLayout = "2006-01-02"

// PublicSlots lists bookable times honouring the minimum notice.
func (h *BookingHandler) PublicSlots(w http.ResponseWriter, r *http.Request) {
	h.listSlots(w, r, h.minNotice)
}

// AdminSlots lists every free time still ahead, without the online notice period.
func (h *BookingHandler) AdminSlots(w http.ResponseWriter, r *http.Request) {
	h.listSlots(w, r, 0)
}

func (h *BookingHandler) listSlots(w http.ResponseWriter, r *http.Request, minNotice time.Duration) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	q := r.URL.Query()
	serviceID := strings.TrimSpace(q.Get("service_id"))
	staffID := strings.TrimSpace(q.Get("staff_id"))
	if serviceID == "" || staffID == "" {
		httpx.WriteError(w, http.StatusBadRequest, "service_id and staff_id are required")
		return
	}
	date, err := time.ParseInLocation(dateLayout, strings.TrimSpace(q.Get("date")), h.loc)
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	list, err := h.slots.AvailableSlots(r.Context(), slots.Query{
		ServiceID: serviceID,
		StaffID:   staffID,
		Date:      date,
		MinNotice: minNotice,
	})
	if err != nil {
		writeErr(w, r, h.logger, err)
		return
	}

	resp := slotsResponse{
		Date:      date.Format(dateLayout),
		StaffID:   staffID,
		ServiceID: serviceID,
		Slots:     make([]slotItem, 0, len(list)),
	}
	for _, s := range list {
		resp.Slots = append(resp.Slots, slotItem{
			StartTime: s.Start.Format(time.RFC3339),
			EndTime:   s.End.Format(time.RFC3339),
			Time:      s.Time,
			Display:   s.Display,
		})
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}
