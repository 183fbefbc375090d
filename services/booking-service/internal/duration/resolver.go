// Package duration resolves how long a service takes for a given staff member and how much
// time it blocks including setup and cleanup buffers.
package duration

import (
	"context"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

// DefaultDuration applies when neither the staff override nor the service has one.
const DefaultDuration = 60 * time.Minute

// Catalog is the read-only service and staff lookup.
type Catalog interface {
	GetService(ctx context.Context, id string) (model.Service, error)
	GetStaffMember(ctx context.Context, id string) (model.StaffMember, error)
	GetStaffServiceOverride(ctx context.Context, staffID, serviceID string) (model.StaffServiceOverride, bool, error)
}

// Resolution is the effective duration and price of a service for one staff member.
type Resolution struct {
	Service        time.Duration
	Before         time.Duration
	After          time.Duration
	PriceCents     int64
	TaxBasisPoints int
}

// Total is the whole occupied length.
func (r Resolution) Total() time.Duration {
	return r.Before + r.Service + r.After
}

// Block is the time occupied by an appointment starting at start.
func (r Resolution) Block(start time.Time) availability.Interval {
	return r.BlockFor(start, start.Add(r.Service))
}

// BlockFor pads an explicit [start, end) with the buffers.
func (r Resolution) BlockFor(start, end time.Time) availability.Interval {
	return availability.Interval{Start: start.Add(-r.Before), End: end.Add(r.After)}
}

type Resolver struct {
	catalog Catalog
}

func NewResolver(catalog Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// Resolve returns model.ErrNotFound (wrapped) when the service, or the staff member when
// staffID is set, does not exist.
func (r *Resolver) Resolve(ctx context.Context, serviceID, staffID string) (Resolution, error) {
	svc, err := r.catalog.GetService(ctx, serviceID)
	if err != nil {
		return Resolution{}, fmt.Errorf("service %s: %w", serviceID, err)
	}

	res := Resolution{
		Service:        DefaultDuration,
		Before:         minutes(svc.BufferBefore),
		After:          minutes(svc.BufferAfter),
		PriceCents:     svc.PriceCents,
		TaxBasisPoints: svc.TaxBasisPoints,
	}
	if svc.IsActive && svc.BaseMinutes > 0 {
		res.Service = minutes(svc.BaseMinutes)
	}
	if staffID == "" {
		return res, nil
	}

	if _, err := r.catalog.GetStaffMember(ctx, staffID); err != nil {
		return Resolution{}, fmt.Errorf("staff %s: %w", staffID, err)
	}
	override, ok, err := r.catalog.GetStaffServiceOverride(ctx, staffID, serviceID)
	if err != nil {
		return Resolution{}, err
	}
	if ok && override.IsActive {
		if override.CustomMinutes > 0 {
			res.Service = minutes(override.CustomMinutes)
		}
		if override.CustomPrice != nil {
			res.PriceCents = *override.CustomPrice
		}
	}
	return res, nil
}

func minutes(n int) time.Duration {
	if n < 0 {
		return 0
	}
	return time.Duration(n) * time.Minute
}
