// Package events defines the run progress messages pushed to WebSocket
// subscribers.
package events

import "time"

// Type names a run progress message
type Type string

const (
	TypeConnection     Type = "connection"
	TypeRunStarted     Type = "run:started"
	TypeStageStarted   Type = "stage:started"
	TypeStageCompleted Type = "stage:completed"
	TypeStageFailed    Type = "stage:failed"
	TypeRunFinished    Type = "run:finished"
)

// RunEvent reports one step of a pipeline run. Fields that do not apply to
// the event type are omitted.
type RunEvent struct {
	Type       Type      `json:"type"`
	RunID      string    `json:"run_id,omitempty"`
	Stage      string    `json:"stage,omitempty"`
	StageName  string    `json:"stage_name,omitempty"`
	Status     string    `json:"status,omitempty"`
	Records    int       `json:"records,omitempty"`
	DurationMS int64     `json:"duration_ms,omitempty"`
	Error      string    `json:"error,omitempty"`
	ClientID   string    `json:"client_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher receives run events. Publish must not block the caller.
type Publisher interface {
	Publish(event RunEvent)
}
