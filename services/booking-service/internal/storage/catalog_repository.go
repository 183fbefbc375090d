package storage

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/md-rashed-zaman/salonbook/libs/db"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

// CatalogRepository reads services, staff and per-staff service overrides.
type CatalogRepository struct {
	pool *db.Pool
}

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

func (r *CatalogRepository) GetService(ctx context.Context, id string) (model.Service, error) {
	var s model.Service
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, base_minutes, buffer_before, buffer_after, price_cents, tax_basis_points, is_active
		FROM services
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.BaseMinutes, &s.BufferBefore, &s.BufferAfter, &s.PriceCents, &s.TaxBasisPoints, &s.IsActive)
	if err != nil {
		return model.Service{}, mapErr(err)
	}
	return s, nil
}

func (r *CatalogRepository) GetStaffMember(ctx context.Context, id string) (model.StaffMember, error) {
	var s model.StaffMember
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, branch_id, is_active
		FROM staff
		WHERE id = $1
	`, id).Scan(&s.ID, &s.Name, &s.BranchID, &s.IsActive)
	if err != nil {
		return model.StaffMember{}, mapErr(err)
	}
	return s, nil
}

func (r *CatalogRepository) GetStaffServiceOverride(ctx context.Context, staffID, serviceID string) (model.StaffServiceOverride, bool, error) {
	var o model.StaffServiceOverride
	err := r.pool.QueryRow(ctx, `
		SELECT staff_id, service_id, custom_minutes, custom_price, is_active
		FROM staff_services
		WHERE staff_id = $1 AND service_id = $2
	`, staffID, serviceID).Scan(&o.StaffID, &o.ServiceID, &o.CustomMinutes, &o.CustomPrice, &o.IsActive)
	if db.IsNoRows(err) {
		return model.StaffServiceOverride{}, false, nil
	}
	if err != nil {
		return model.StaffServiceOverride{}, false, err
	}
	return o, true, nil
}

// CreateService returns model.ErrDuplicate when the id is taken.
func (r *CatalogRepository) CreateService(ctx context.Context, s model.Service) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO services (id, name, base_minutes, buffer_before, buffer_after, price_cents, tax_basis_points, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.Name, s.BaseMinutes, s.BufferBefore, s.BufferAfter, s.PriceCents, s.TaxBasisPoints, s.IsActive)
	return mapErr(err)
}

// CreateStaffMember inserts a staff member and seeds the default working week in the same
// transaction.
func (r *CatalogRepository) CreateStaffMember(ctx context.Context, s model.StaffMember) error {
	return r.pool.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO staff (id, name, branch_id, is_active)
			VALUES ($1, $2, $3, $4)
		`, s.ID, s.Name, s.BranchID, s.IsActive); err != nil {
			return mapErr(err)
		}
		for _, wh := range model.DefaultWorkingHours(s.ID) {
			if err := upsertWorkingHours(ctx, tx, wh); err != nil {
				return err
			}
		}
		return nil
	})
}
