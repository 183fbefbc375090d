// Package schedulertest provides an in-memory scheduler.Store for tests.
package schedulertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/salonbook/services/booking-service/internal/scheduler"
)

// MemStore is an in-memory scheduler.Store. Transactions buffer their writes and apply them on
// success; staff locks are real mutexes so concurrent creates contend like they do in
// Postgres.
type MemStore struct {
	mu         sync.Mutex
	staffLocks map[string]*sync.Mutex
	appts      map[string]model.Appointment
	logs       []model.LogEntry
	events     []outbox.Event
	idem       map[string][]byte
}

var (
	_ scheduler.Store = (*MemStore)(nil)
	_ scheduler.Tx    = (*memTx)(nil)
)

func NewMemStore() *MemStore {
	return &MemStore{
		staffLocks: map[string]*sync.Mutex{},
		appts:      map[string]model.Appointment{},
		idem:       map[string][]byte{},
	}
}

func (s *MemStore) staffLock(staffID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.staffLocks[staffID]
	if !ok {
		l = &sync.Mutex{}
		s.staffLocks[staffID] = l
	}
	return l
}

func (s *MemStore) WithStaffLock(ctx context.Context, staffID string, fn func(scheduler.Tx) error) error {
	l := s.staffLock(staffID)
	l.Lock()
	defer l.Unlock()
	return s.WithTx(ctx, fn)
}

func (s *MemStore) WithTx(_ context.Context, fn func(scheduler.Tx) error) error {
	tx := &memTx{store: s, appts: map[string]model.Appointment{}, idem: map[string][]byte{}}
	if err := fn(tx); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, a := range tx.appts {
		s.appts[id] = a
	}
	for k, v := range tx.idem {
		s.idem[k] = v
	}
	s.logs = append(s.logs, tx.logs...)
	s.events = append(s.events, tx.events...)
	return nil
}

func (s *MemStore) Get(_ context.Context, id string) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.appts[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	return a, nil
}

func (s *MemStore) GetByTrackingDigest(_ context.Context, digest string) (model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.appts {
		if a.TrackingDigest == digest {
			return a, nil
		}
	}
	return model.Appointment{}, model.ErrNotFound
}

func (s *MemStore) LookupIdempotencyKey(_ context.Context, scope, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp, ok := s.idem[scope+"/"+key]
	return resp, ok, nil
}

func (s *MemStore) List(_ context.Context, f model.AppointmentFilter) ([]model.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Appointment
	for _, a := range s.appts {
		if f.StaffID != "" && a.StaffID != f.StaffID {
			continue
		}
		if f.ClientID != "" && a.ClientID != f.ClientID {
			continue
		}
		if f.BranchID != "" && a.BranchID != f.BranchID {
			continue
		}
		if f.Status != "" && a.Status != f.Status {
			continue
		}
		if !f.From.IsZero() && a.Start.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && !a.Start.Before(f.To) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (s *MemStore) ListLogs(_ context.Context, appointmentID string) ([]model.LogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.LogEntry
	for _, e := range s.logs {
		if e.AppointmentID == appointmentID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemStore) ListDueNoShows(_ context.Context, cutoff time.Time, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id, a := range s.appts {
		if a.Status == model.StatusConfirmed && a.Start.Before(cutoff) && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *MemStore) ListBlocking(ctx context.Context, staffID string, from, to time.Time, excludeID string) ([]availability.Interval, error) {
	tx := &memTx{store: s}
	return tx.ListBlocking(ctx, staffID, from, to, excludeID)
}

// EventTypes lists the committed outbox event types in publish order.
func (s *MemStore) EventTypes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type memTx struct {
	store  *MemStore
	appts  map[string]model.Appointment
	logs   []model.LogEntry
	events []outbox.Event
	idem   map[string][]byte
}

// view merges committed rows with this transaction's writes.
func (t *memTx) view() map[string]model.Appointment {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	out := make(map[string]model.Appointment, len(t.store.appts)+len(t.appts))
	for id, a := range t.store.appts {
		out[id] = a
	}
	for id, a := range t.appts {
		out[id] = a
	}
	return out
}

func (t *memTx) ListBlocking(_ context.Context, staffID string, from, to time.Time, excludeID string) ([]availability.Interval, error) {
	span := availability.Interval{Start: from, End: to}
	var out []availability.Interval
	for id, a := range t.view() {
		iv := availability.Interval{Start: a.BlockStart, End: a.BlockEnd}
		if a.StaffID == staffID && id != excludeID && a.Blocking() && iv.Overlaps(span) {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (t *memTx) GetForUpdate(_ context.Context, id string) (model.Appointment, error) {
	a, ok := t.view()[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	return a, nil
}

// overlaps plays the role of the exclusion constraint.
func (t *memTx) overlaps(a model.Appointment) bool {
	block := availability.Interval{Start: a.BlockStart, End: a.BlockEnd}
	for id, other := range t.view() {
		if id == a.ID || other.StaffID != a.StaffID || !other.Blocking() {
			continue
		}
		if block.Overlaps(availability.Interval{Start: other.BlockStart, End: other.BlockEnd}) {
			return true
		}
	}
	return false
}

func (t *memTx) Insert(_ context.Context, a *model.Appointment) error {
	if t.overlaps(*a) {
		return model.ErrOverlap
	}
	t.appts[a.ID] = *a
	return nil
}

func (t *memTx) UpdateStatus(_ context.Context, a model.Appointment) error {
	t.appts[a.ID] = a
	return nil
}

func (t *memTx) UpdateSchedule(_ context.Context, a model.Appointment) error {
	if t.overlaps(a) {
		return model.ErrOverlap
	}
	t.appts[a.ID] = a
	return nil
}

func (t *memTx) RotateTrackingDigest(_ context.Context, id, digest string, at time.Time) error {
	a, ok := t.view()[id]
	if !ok {
		return model.ErrNotFound
	}
	a.TrackingDigest = digest
	a.UpdatedAt = at
	t.appts[id] = a
	return nil
}

func (t *memTx) AppendLog(_ context.Context, e model.LogEntry) error {
	t.logs = append(t.logs, e)
	return nil
}

func (t *memTx) Publish(_ context.Context, evt outbox.Event) error {
	t.events = append(t.events, evt)
	return nil
}

func (t *memTx) ClaimIdempotencyKey(_ context.Context, scope, key string) ([]byte, bool, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()
	resp, ok := t.store.idem[scope+"/"+key]
	return resp, ok, nil
}

func (t *memTx) CompleteIdempotencyKey(_ context.Context, scope, key, _ string, response []byte) error {
	t.idem[scope+"/"+key] = response
	return nil
}
