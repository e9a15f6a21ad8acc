package pipeline

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"aadhaarcli/internal/ingest"
	"aadhaarcli/pkg/contracts/domain"
)

// RunState threads the tables and every intermediate result of one run
// through the stages. Each stage only appends its own outputs.
type RunState struct {
	mu sync.RWMutex

	ID        string
	Status    domain.RunStatus
	StartTime time.Time
	EndTime   *time.Time
	Err       error

	// Inputs
	Dirs          map[domain.RecordKind]string
	Contamination float64

	// Stage outputs
	Raw         ingest.Tables
	Enrollments []domain.EnrollmentRecord
	Demographic []domain.UpdateRecord
	Biometric   []domain.UpdateRecord
	Cleaning    map[domain.RecordKind]domain.CleaningStats
	Scored      []domain.ScoredRecord
	Sweep       []domain.SweepPoint
	States      []domain.GeoAggregate
	Districts   []domain.GeoAggregate
	Integrity   domain.IntegrityReport
	Summary     domain.Summary

	steps []*StepState
}

// NewRunState creates a pending run reading from dirs. An empty id gets a UUID.
func NewRunState(id string, dirs map[domain.RecordKind]string) *RunState {
	if id == "" {
		id = uuid.NewString()
	}
	return &RunState{
		ID:       id,
		Status:   domain.RunStatusPending,
		Dirs:     dirs,
		Cleaning: make(map[domain.RecordKind]domain.CleaningStats),
	}
}

// Start marks the run as running
func (s *RunState) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Status = domain.RunStatusRunning
	s.StartTime = time.Now()
}

// Complete marks the run as completed
func (s *RunState) Complete() {
	s.finish(domain.RunStatusCompleted, nil)
}

// Fail marks the run as failed
func (s *RunState) Fail(err error) {
	s.finish(domain.RunStatusFailed, err)
}

// Cancel marks the run as cancelled
func (s *RunState) Cancel(err error) {
	s.finish(domain.RunStatusCancelled, err)
}

func (s *RunState) finish(status domain.RunStatus, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	s.EndTime = &now
	s.Status = status
	s.Err = err
}

// Duration returns the duration of the run
func (s *RunState) Duration() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.StartTime.IsZero() {
		return 0
	}
	if s.EndTime != nil {
		return s.EndTime.Sub(s.StartTime)
	}
	return time.Since(s.StartTime)
}

// AddStep registers the state of a stage in execution order
func (s *RunState) AddStep(step *StepState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.steps = append(s.steps, step)
}

// Step returns the state of the stage with id
func (s *RunState) Step(id string) *StepState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, step := range s.steps {
		if step.ID == id {
			return step
		}
	}
	return nil
}

// Steps returns snapshots of every stage in execution order
func (s *RunState) Steps() []StepInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]StepInfo, len(s.steps))
	for i, step := range s.steps {
		out[i] = step.Snapshot()
	}
	return out
}

// CleaningStats returns the per-kind cleaning stats in kind order
func (s *RunState) CleaningStats() []domain.CleaningStats {
	var out []domain.CleaningStats
	for _, kind := range domain.AllKinds {
		if st, ok := s.Cleaning[kind]; ok {
			out = append(out, st)
		}
	}
	return out
}

// Anomalies counts flagged enrollment records
func (s *RunState) Anomalies() int {
	n := 0
	for _, r := range s.Scored {
		if r.Label.Outlier {
			n++
		}
	}
	return n
}

// Run returns the persisted summary of the run
func (s *RunState) Run() domain.Run {
	d := s.Duration()

	s.mu.RLock()
	defer s.mu.RUnlock()

	run := domain.Run{
		ID:            s.ID,
		Status:        s.Status,
		StartedAt:     s.StartTime,
		CompletedAt:   s.EndTime,
		Contamination: s.Contamination,
		Enrollments:   len(s.Enrollments),
		Demographic:   len(s.Demographic),
		Biometric:     len(s.Biometric),
		Anomalies:     s.Anomalies(),
		IntegrityHits: len(s.Integrity.Flagged()),
		Duration:      d,
	}
	if s.Err != nil {
		run.Error = s.Err.Error()
	}
	return run
}
