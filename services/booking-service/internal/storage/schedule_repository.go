package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

// ScheduleRepository stores weekly working hours and time off.
type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) GetWorkingHours(ctx context.Context, staffID string, weekday int) (model.WorkingHours, bool, error) {
	var (
		wh     model.WorkingHours
		breaks []byte
	)
	err := r.pool.QueryRow(ctx, `
		SELECT staff_id, weekday, is_working, start_minute, end_minute, breaks
		FROM staff_working_hours
		WHERE staff_id = $1 AND weekday = $2
	`, staffID, weekday).Scan(&wh.StaffID, &wh.Weekday, &wh.IsWorking, &wh.StartMinute, &wh.EndMinute, &breaks)
	if db.IsNoRows(err) {
		return model.WorkingHours{}, false, nil
	}
	if err != nil {
		return model.WorkingHours{}, false, err
	}
	if len(breaks) > 0 {
		if err := json.Unmarshal(breaks, &wh.Breaks); err != nil {
			return model.WorkingHours{}, false, fmt.Errorf("decode breaks for staff %s weekday %d: %w", staffID, weekday, err)
		}
	}
	return wh, true, nil
}

func (r *ScheduleRepository) UpsertWorkingHours(ctx context.Context, wh model.WorkingHours) error {
	return upsertWorkingHours(ctx, r.pool, wh)
}

// SeedDefaultWorkingHours writes the default week for a staff member without touching
// weekdays that already have a row.
func (r *ScheduleRepository) SeedDefaultWorkingHours(ctx context.Context, staffID string) error {
	return r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		for _, wh := range model.DefaultWorkingHours(staffID) {
			if _, err := tx.Exec(ctx, `
				INSERT INTO staff_working_hours (staff_id, weekday, is_working, start_minute, end_minute, breaks)
				VALUES ($1, $2, $3, $4, $5, '[]')
				ON CONFLICT (staff_id, weekday) DO NOTHING
			`, wh.StaffID, wh.Weekday, wh.IsWorking, wh.StartMinute, wh.EndMinute); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateTimeOff stores a time-off request and returns its id.
func (r *ScheduleRepository) CreateTimeOff(ctx context.Context, t model.TimeOff) (string, error) {
	if !t.End.After(t.Start) {
		return "", fmt.Errorf("time off must end after it starts")
	}
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Status == "" {
		t.Status = model.TimeOffPending
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO staff_time_off (id, staff_id, start_time, end_time, status, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID, t.StaffID, t.Start, t.End, string(t.Status), t.Reason)
	if err != nil {
		return "", err
	}
	return t.ID, nil
}

// ListTimeOff returns time off of any status intersecting [from, to).
func (r *ScheduleRepository) ListTimeOff(ctx context.Context, staffID string, from, to time.Time) ([]model.TimeOff, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, staff_id, start_time, end_time, status, reason
		FROM staff_time_off
		WHERE staff_id = $1
			AND end_time > $2
			AND start_time < $3
		ORDER BY start_time ASC
	`, staffID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TimeOff
	for rows.Next() {
		var (
			t      model.TimeOff
			status string
		)
		if err := rows.Scan(&t.ID, &t.StaffID, &t.Start, &t.End, &status, &t.Reason); err != nil {
			return nil, err
		}
		t.Status = model.TimeOffStatus(status)
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func upsertWorkingHours(ctx context.Context, q querier, wh model.WorkingHours) error {
	if wh.Weekday < 0 || wh.Weekday > 6 {
		return fmt.Errorf("weekday %d out of range", wh.Weekday)
	}
	breaks := wh.Breaks
	if breaks == nil {
		breaks = []model.Break{}
	}
	raw, err := json.Marshal(breaks)
	if err != nil {
		return err
	}
	_, err = q.Exec(ctx, `
		INSERT INTO staff_working_hours (staff_id, weekday, is_working, start_minute, end_minute, breaks)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (staff_id, weekday) DO UPDATE
		SET is_working = EXCLUDED.is_working,
			start_minute = EXCLUDED.start_minute,
			end_minute = EXCLUDED.end_minute,
			breaks = EXCLUDED.breaks
	`, wh.StaffID, wh.Weekday, wh.IsWorking, wh.StartMinute, wh.EndMinute, string(raw))
	return err
}
