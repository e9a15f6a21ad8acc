package domain

import (
	"time"
)

// RunStatus represents the lifecycle state of an analysis run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// IsTerminal reports whether the run can no longer change state
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusCancelled
}

// Run is the persisted record of one pipeline execution
type Run struct {
	ID            string        `json:"id" db:"id" validate:"required,uuid"`
	Status        RunStatus     `json:"status" db:"status"`
	StartedAt     time.Time     `json:"started_at" db:"started_at"`
	CompletedAt   *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	Contamination float64       `json:"contamination" db:"contamination"`
	Enrollments   int           `json:"enrollments" db:"enrollments"`
	Demographic   int           `json:"demographic" db:"demographic"`
	Biometric     int           `json:"biometric" db:"biometric"`
	Anomalies     int           `json:"anomalies" db:"anomalies"`
	IntegrityHits int           `json:"integrity_hits" db:"integrity_hits"`
	Error         string        `json:"error,omitempty" db:"error"`
	Duration      time.Duration `json:"duration" db:"-"`
}
