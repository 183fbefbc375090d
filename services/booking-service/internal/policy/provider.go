// Package policy holds the salon's booking rules: reminder offsets and what guests may do
// to their own appointments.
package policy

import (
	"context"
	"sort"
	"time"
)

// Provider returns the reminder offsets for a branch. An empty branchID means the salon-wide
// default.
type Provider interface {
	ReminderOffsets(ctx context.Context, branchID string) ([]time.Duration, error)
}

type staticProvider struct {
	offsets []time.Duration
}

// NewStaticProvider serves the same offsets for every branch, largest first. Non-positive
// offsets are dropped.
func NewStaticProvider(offsets []time.Duration) Provider {
	clean := make([]time.Duration, 0, len(offsets))
	for _, o := range offsets {
		if o > 0 {
			clean = append(clean, o)
		}
	}
	sort.Slice(clean, func(i, j int) bool { return clean[i] > clean[j] })
	return &staticProvider{offsets: clean}
}

func (p *staticProvider) ReminderOffsets(_ context.Context, _ string) ([]time.Duration, error) {
	return p.offsets, nil
}

// OffsetsFromMinutes converts configured minute values.
func OffsetsFromMinutes(mins []int) []time.Duration {
	out := make([]time.Duration, 0, len(mins))
	for _, m := range mins {
		out = append(out, time.Duration(m)*time.Minute)
	}
	return out
}
