package jobscheduler

import "time"

type DispatchStatus string

const (
	StatusSent      DispatchStatus = "sent"
	StatusCompleted DispatchStatus = "completed"
	StatusFailed    DispatchStatus = "failed"
)

const (
	JobSettlement  = "settlement"
	JobFixtureSync = "fixture-sync"
)

// DispatchEvent records one lifecycle step of a queued or manually triggered job.
type DispatchEvent struct {
	DispatchID   string
	JobName      string
	JobPath      string
	Status       DispatchStatus
	Payload      map[string]any
	ErrorMessage string
	OccurredAt   time.Time
	TraceID      string
	SpanID       string
}
