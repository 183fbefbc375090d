package model

import "time"

type LogAction string

const (
	ActionCreated       LogAction = "created"
	ActionStatusChanged LogAction = "status_changed"
	ActionRescheduled   LogAction = "rescheduled"
	ActionTokenReissued LogAction = "token_reissued"
)

// LogEntry is an immutable audit record of one state change.
type LogEntry struct {
	ID            string
	AppointmentID string
	Action        LogAction
	OldStatus     Status
	NewStatus     Status
	Notes         string
	PerformedBy   string
	PerformedAt   time.Time
}
