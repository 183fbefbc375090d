package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/scheduler"
)

const staffLockNamespace = "appointment-staff"

const defaultListLimit = 50

const appointmentColumns = `
	id, client_id, staff_id, service_id, branch_id,
	start_time, end_time, block_start, block_end,
	status, source, notes,
	price_cents, discount_cents, tax_cents, total_cents, payment_status,
	tracking_digest, cancelled_at, cancel_reason, created_at, updated_at`

// BookingRepository stores appointments, their audit log and idempotency keys.
type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

var (
	_ scheduler.Store = (*BookingRepository)(nil)
	_ scheduler.Tx    = (*bookingTx)(nil)
)

func NewBookingRepository(pool *db.Pool, outboxRepo *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: outboxRepo}
}

func (r *BookingRepository) WithStaffLock(ctx context.Context, staffID string, fn func(scheduler.Tx) error) error {
	return r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		if err := db.AdvisoryXactLock(ctx, tx, staffLockNamespace, staffID); err != nil {
			return fmt.Errorf("lock staff %s: %w", staffID, err)
		}
		return fn(&bookingTx{tx: tx, outbox: r.outbox})
	})
}

func (r *BookingRepository) WithTx(ctx context.Context, fn func(scheduler.Tx) error) error {
	return r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		return fn(&bookingTx{tx: tx, outbox: r.outbox})
	})
}

func (r *BookingRepository) Get(ctx context.Context, id string) (model.Appointment, error) {
	return getAppointment(ctx, r.pool, `WHERE id = $1`, id)
}

func (r *BookingRepository) GetByTrackingDigest(ctx context.Context, digest string) (model.Appointment, error) {
	return getAppointment(ctx, r.pool, `WHERE tracking_digest = $1`, digest)
}

func (r *BookingRepository) LookupIdempotencyKey(ctx context.Context, scope, key string) ([]byte, bool, error) {
	var response string
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE scope = $1 AND idempotency_key = $2
	`, scope, key).Scan(&response)
	if db.IsNoRows(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if response == "" {
		return nil, false, nil
	}
	return []byte(response), true, nil
}

// ListBlocking reads outside any transaction; slot listings use it.
func (r *BookingRepository) ListBlocking(ctx context.Context, staffID string, from, to time.Time, excludeID string) ([]availability.Interval, error) {
	return listBlocking(ctx, r.pool, staffID, from, to, excludeID)
}

func (r *BookingRepository) List(ctx context.Context, f model.AppointmentFilter) ([]model.Appointment, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if !f.From.IsZero() {
		add("start_time >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("start_time < $%d", f.To)
	}
	if f.StaffID != "" {
		add("staff_id = $%d", f.StaffID)
	}
	if f.ClientID != "" {
		add("client_id = $%d", f.ClientID)
	}
	if f.BranchID != "" {
		add("branch_id = $%d", f.BranchID)
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)

	sql := `SELECT ` + appointmentColumns + ` FROM appointments`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += fmt.Sprintf(` ORDER BY start_time ASC LIMIT $%d`, len(args))

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var appts []model.Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, appt)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return appts, nil
}

func (r *BookingRepository) ListLogs(ctx context.Context, appointmentID string) ([]model.LogEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, appointment_id, action, old_status, new_status, notes, performed_by, performed_at
		FROM appointment_logs
		WHERE appointment_id = $1
		ORDER BY performed_at ASC, id ASC
	`, appointmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.LogEntry
	for rows.Next() {
		var e model.LogEntry
		if err := rows.Scan(&e.ID, &e.AppointmentID, &e.Action, &e.OldStatus, &e.NewStatus, &e.Notes, &e.PerformedBy, &e.PerformedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func (r *BookingRepository) ListDueNoShows(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id
		FROM appointments
		WHERE status = 'confirmed' AND start_time < $1
		ORDER BY start_time ASC
		LIMIT $2
	`, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return ids, nil
}

// bookingTx is the scheduler's view of one open transaction.
type bookingTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *bookingTx) ListBlocking(ctx context.Context, staffID string, from, to time.Time, excludeID string) ([]availability.Interval, error) {
	return listBlocking(ctx, t.tx, staffID, from, to, excludeID)
}

func (t *bookingTx) GetForUpdate(ctx context.Context, id string) (model.Appointment, error) {
	return getAppointment(ctx, t.tx, `WHERE id = $1 FOR UPDATE`, id)
}

func (t *bookingTx) Insert(ctx context.Context, a *model.Appointment) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO appointments (`+appointmentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
	`, a.ID, a.ClientID, a.StaffID, a.ServiceID, a.BranchID,
		a.Start, a.End, a.BlockStart, a.BlockEnd,
		string(a.Status), string(a.Source), a.Notes,
		a.PriceCents, a.DiscountCents, a.TaxCents, a.TotalCents, string(a.PaymentStatus),
		a.TrackingDigest, a.CancelledAt, a.CancelReason, a.CreatedAt, a.UpdatedAt)
	return mapErr(err)
}

func (t *bookingTx) UpdateStatus(ctx context.Context, a model.Appointment) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET status = $2,
			cancelled_at = $3,
			cancel_reason = $4,
			updated_at = $5
		WHERE id = $1
	`, a.ID, string(a.Status), a.CancelledAt, a.CancelReason, a.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (t *bookingTx) UpdateSchedule(ctx context.Context, a model.Appointment) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET start_time = $2,
			end_time = $3,
			block_start = $4,
			block_end = $5,
			updated_at = $6
		WHERE id = $1
	`, a.ID, a.Start, a.End, a.BlockStart, a.BlockEnd, a.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (t *bookingTx) RotateTrackingDigest(ctx context.Context, id, digest string, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE appointments
		SET tracking_digest = $2,
			updated_at = $3
		WHERE id = $1
	`, id, digest, at)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (t *bookingTx) AppendLog(ctx context.Context, e model.LogEntry) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO appointment_logs (id, appointment_id, action, old_status, new_status, notes, performed_by, performed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, e.ID, e.AppointmentID, string(e.Action), string(e.OldStatus), string(e.NewStatus), e.Notes, e.PerformedBy, e.PerformedAt)
	return err
}

func (t *bookingTx) Publish(ctx context.Context, evt outbox.Event) error {
	return t.outbox.Insert(ctx, t.tx, evt)
}

func (t *bookingTx) ClaimIdempotencyKey(ctx context.Context, scope, key string) ([]byte, bool, error) {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (scope, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (scope, idempotency_key) DO NOTHING
	`, scope, key)
	if err != nil {
		return nil, false, err
	}

	var response string
	err = t.tx.QueryRow(ctx, `
		SELECT COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE scope = $1 AND idempotency_key = $2
		FOR UPDATE
	`, scope, key).Scan(&response)
	if err != nil {
		return nil, false, err
	}
	if response == "" {
		return nil, false, nil
	}
	return []byte(response), true, nil
}

func (t *bookingTx) CompleteIdempotencyKey(ctx context.Context, scope, key, appointmentID string, response []byte) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET appointment_id = $3,
			response_payload = $4,
			updated_at = now()
		WHERE scope = $1 AND idempotency_key = $2
	`, scope, key, appointmentID, string(response))
	return err
}

func getAppointment(ctx context.Context, q querier, where string, args ...any) (model.Appointment, error) {
	appt, err := scanAppointment(q.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments `+where, args...))
	if err != nil {
		return model.Appointment{}, mapErr(err)
	}
	return appt, nil
}

func listBlocking(ctx context.Context, q querier, staffID string, from, to time.Time, excludeID string) ([]availability.Interval, error) {
	rows, err := q.Query(ctx, `
		SELECT block_start, block_end
		FROM appointments
		WHERE staff_id = $1
			AND status <> 'cancelled'
			AND block_start < $3
			AND block_end > $2
			AND ($4 = '' OR id <> $4)
		ORDER BY block_start ASC
	`, staffID, from, to, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Interval
	for rows.Next() {
		var iv availability.Interval
		if err := rows.Scan(&iv.Start, &iv.End); err != nil {
			return nil, err
		}
		out = append(out, iv)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var (
		a                   model.Appointment
		status, source, pay string
		cancelledAt         *time.Time
	)
	err := row.Scan(
		&a.ID, &a.ClientID, &a.StaffID, &a.ServiceID, &a.BranchID,
		&a.Start, &a.End, &a.BlockStart, &a.BlockEnd,
		&status, &source, &a.Notes,
		&a.PriceCents, &a.DiscountCents, &a.TaxCents, &a.TotalCents, &pay,
		&a.TrackingDigest, &cancelledAt, &a.CancelReason, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return model.Appointment{}, err
	}
	a.Status = model.Status(status)
	a.Source = model.Source(source)
	a.PaymentStatus = model.PaymentStatus(pay)
	a.CancelledAt = cancelledAt
	return a, nil
}

// IsOverlap reports whether err is the storage-level overlap guard firing.
func IsOverlap(err error) bool {
	return errors.Is(err, model.ErrOverlap)
}
