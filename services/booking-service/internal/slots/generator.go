// Package slots lists the bookable start times for a service with a staff member on a date.
package slots

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/conflict"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/duration"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/hours"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
)

// DefaultStep is the spacing between candidate start times.
const DefaultStep = 30 * time.Minute

type Generator struct {
	hours     *hours.Provider
	durations *duration.Resolver
	checker   *conflict.Checker
	step      time.Duration
	now       func() time.Time
}

type Option func(*Generator)

func WithStep(step time.Duration) Option {
	return func(g *Generator) {
		if step > 0 {
			g.step = step
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func NewGenerator(h *hours.Provider, d *duration.Resolver, c *conflict.Checker, opts ...Option) *Generator {
	g := &Generator{hours: h, durations: d, checker: c, step: DefaultStep, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Query selects the slots to list.
type Query struct {
	ServiceID string
	StaffID   string
	Date      time.Time
	// MinNotice hides slots starting sooner than now+MinNotice. Past slots are always hidden.
	MinNotice time.Duration
}

// AvailableSlots returns the free start times in chronological order. A day without a
// working window yields an empty list, not an error.
func (g *Generator) AvailableSlots(ctx context.Context, q Query) ([]model.Slot, error) {
	window, ok, err := g.hours.Window(ctx, q.StaffID, q.Date)
	if err != nil || !ok {
		return nil, err
	}
	res, err := g.durations.Resolve(ctx, q.ServiceID, q.StaffID)
	if err != nil {
		return nil, err
	}
	// Blocks near the window edges reach into the buffers on either side.
	busy, err := g.checker.Busy(ctx, q.StaffID, window.Start.Add(-res.Before), window.End.Add(res.After), "")
	if err != nil {
		return nil, err
	}

	notBefore := g.now().Add(max(q.MinNotice, 0))
	starts := availability.Candidates(window.Interval, g.step, res.Block, busy, notBefore)

	out := make([]model.Slot, 0, len(starts))
	loc := g.hours.Location()
	for _, s := range starts {
		out = append(out, model.NewSlot(s.In(loc), s.Add(res.Service).In(loc)))
	}
	return out, nil
}
