package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

type memSchedule struct {
	mu    sync.Mutex
	hours map[int]model.WorkingHours
	off   []model.TimeOff
}

func (m *memSchedule) UpsertWorkingHours(_ context.Context, wh model.WorkingHours) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hours == nil {
		m.hours = map[int]model.WorkingHours{}
	}
	m.hours[wh.Weekday] = wh
	return nil
}

func (m *memSchedule) CreateTimeOff(_ context.Context, t model.TimeOff) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = "off-" + t.Start.Format("0102")
	m.off = append(m.off, t)
	return t.ID, nil
}

func (m *memSchedule) ListTimeOff(_ context.Context, staffID string, from, to time.Time) ([]model.TimeOff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.TimeOff
	for _, t := range m.off {
		if t.StaffID == staffID && t.End.After(from) && t.Start.Before(to) {
			out = append(out, t)
		}
	}
	return out, nil
}

func newScheduleServer(store ScheduleStore) http.Handler {
	mux := http.NewServeMux()
	h := NewScheduleHandler(store, time.UTC, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.Register(mux, func(next http.Handler) http.Handler { return next })
	return mux
}

func TestUpsertWorkingHours(t *testing.T) {
	store := &memSchedule{}
	srv := newScheduleServer(store)

	rec := do(t, srv, http.MethodPut, "/api/v1/staff/working-hours", map[string]any{
		"staff_id": "ana", "weekday": 2, "is_working": true, "start_minute": 600, "end_minute": 1020,
		"breaks": []map[string]int{{"start_minute": 720, "end_minute": 780}},
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", rec.Code, rec.Body)
	}
	got := store.hours[2]
	if got.StaffID != "ana" || got.StartMinute != 600 || len(got.Breaks) != 1 || got.Breaks[0].EndMinute != 780 {
		t.Fatalf("stored = %+v", got)
	}

	bad := []map[string]any{
		{"staff_id": "ana", "is_working": true, "start_minute": 600, "end_minute": 1020},
		{"staff_id": "ana", "weekday": 9, "is_working": true, "start_minute": 600, "end_minute": 1020},
		{"staff_id": "ana", "weekday": 1, "is_working": true, "start_minute": 1020, "end_minute": 600},
		{"staff_id": "ana", "weekday": 1, "is_working": true, "start_minute": 600, "end_minute": 1020,
			"breaks": []map[string]int{{"start_minute": 1000, "end_minute": 1100}}},
	}
	for _, body := range bad {
		if rec := do(t, srv, http.MethodPut, "/api/v1/staff/working-hours", body, nil); rec.Code != http.StatusBadRequest {
			t.Fatalf("%v: status = %d", body, rec.Code)
		}
	}
	if rec := do(t, srv, http.MethodPost, "/api/v1/staff/working-hours", nil, nil); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST status = %d", rec.Code)
	}
}

func TestTimeOffCreateAndList(t *testing.T) {
	srv := newScheduleServer(&memSchedule{})

	rec := do(t, srv, http.MethodPost, "/api/v1/staff/time-off", map[string]string{
		"staff_id": "ana", "start_time": "2026-03-04T12:00:00Z", "end_time": "2026-03-04T15:00:00Z", "status": "approved",
	}, nil)
	if rec.Code != http.StatusCreated || decode[timeOffItem](t, rec).Status != "approved" {
		t.Fatalf("create status = %d body=%s", rec.Code, rec.Body)
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/staff/time-off", map[string]string{
		"staff_id": "ana", "start_time": "2026-03-06T10:00:00Z", "end_time": "2026-03-06T11:00:00Z",
	}, nil)
	if rec.Code != http.StatusCreated || decode[timeOffItem](t, rec).Status != "pending" {
		t.Fatalf("default status = %d body=%s", rec.Code, rec.Body)
	}

	rec = do(t, srv, http.MethodPost, "/api/v1/staff/time-off", map[string]string{
		"staff_id": "ana", "start_time": "2026-03-04T15:00:00Z", "end_time": "2026-03-04T12:00:00Z",
	}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("inverted range status = %d", rec.Code)
	}

	rec = do(t, srv, http.MethodGet, "/api/v1/staff/time-off?staff_id=ana&from=2026-03-04&to=2026-03-04", nil, nil)
	items := decode[[]timeOffItem](t, rec)
	if rec.Code != http.StatusOK || len(items) != 1 || items[0].StartTime != "2026-03-04T12:00:00Z" {
		t.Fatalf("list status = %d body=%s", rec.Code, rec.Body)
	}
	if rec := do(t, srv, http.MethodGet, "/api/v1/staff/time-off?staff_id=ana&from=2026-03-05&to=2026-03-04", nil, nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("reversed list range status = %d", rec.Code)
	}
}
