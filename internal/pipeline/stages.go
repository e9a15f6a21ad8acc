package pipeline

import (
	"context"
	"fmt"

	"aadhaarcli/internal/aggregate"
	"aadhaarcli/internal/anomaly"
	"aadhaarcli/internal/cleaning"
	"aadhaarcli/internal/features"
	"aadhaarcli/internal/infrastructure"
	"aadhaarcli/internal/ingest"
	"aadhaarcli/internal/integrity"
	"aadhaarcli/internal/summary"
	"aadhaarcli/pkg/contracts/domain"
)

// Stage IDs in execution order
const (
	StageIngest    = "ingest"
	StageClean     = "clean"
	StageDerive    = "derive"
	StageScore     = "score"
	StageIntegrity = "integrity"
	StageSummarize = "summarize"
)

// StageOrder lists the default stages in execution order
var StageOrder = []string{StageIngest, StageClean, StageDerive, StageScore, StageIntegrity, StageSummarize}

// producer is implemented by stages that report how many records they produced
type producer interface {
	Produced(state *RunState) int
}

// IngestStage reads the raw tables of every kind
type IngestStage struct {
	loader *ingest.Loader
}

// NewIngestStage creates the ingest stage
func NewIngestStage(loader *ingest.Loader) *IngestStage {
	return &IngestStage{loader: loader}
}

func (s *IngestStage) ID() string   { return StageIngest }
func (s *IngestStage) Name() string { return "Ingest input files" }

func (s *IngestStage) Execute(ctx context.Context, state *RunState) error {
	tables, err := s.loader.Load(ctx, state.Dirs)
	if err != nil {
		return err
	}
	for _, kind := range domain.AllKinds {
		if tables[kind] == nil {
			return fmt.Errorf("no %s table loaded", kind)
		}
	}
	state.Raw = tables
	return nil
}

func (s *IngestStage) Produced(state *RunState) int {
	n := 0
	for _, t := range state.Raw {
		n += t.Len()
	}
	return n
}

// CleanStage turns raw tables into typed records
type CleanStage struct {
	cleaner *cleaning.Cleaner
}

// NewCleanStage creates the clean stage
func NewCleanStage(cleaner *cleaning.Cleaner) *CleanStage {
	return &CleanStage{cleaner: cleaner}
}

func (s *CleanStage) ID() string   { return StageClean }
func (s *CleanStage) Name() string { return "Clean records" }

func (s *CleanStage) Execute(ctx context.Context, state *RunState) error {
	if state.Raw == nil {
		return NewInvalidStateError(StageClean, "raw tables")
	}

	enrol, st, err := s.cleaner.CleanEnrollment(ctx, state.Raw[domain.KindEnrollment])
	if err != nil {
		return err
	}
	state.Enrollments = enrol
	state.Cleaning[domain.KindEnrollment] = st

	demo, st, err := s.cleaner.CleanUpdates(ctx, state.Raw[domain.KindDemographic])
	if err != nil {
		return err
	}
	state.Demographic = demo
	state.Cleaning[domain.KindDemographic] = st

	bio, st, err := s.cleaner.CleanUpdates(ctx, state.Raw[domain.KindBiometric])
	if err != nil {
		return err
	}
	state.Biometric = bio
	state.Cleaning[domain.KindBiometric] = st

	return nil
}

func (s *CleanStage) Produced(state *RunState) int {
	return len(state.Enrollments) + len(state.Demographic) + len(state.Biometric)
}

// DeriveStage computes totals, percentages and month buckets
type DeriveStage struct{}

// NewDeriveStage creates the derive stage
func NewDeriveStage() *DeriveStage {
	return &DeriveStage{}
}

func (s *DeriveStage) ID() string   { return StageDerive }
func (s *DeriveStage) Name() string { return "Derive features" }

func (s *DeriveStage) Execute(_ context.Context, state *RunState) error {
	state.Enrollments = features.DeriveEnrollments(state.Enrollments)
	state.Demographic = features.DeriveUpdates(state.Demographic)
	state.Biometric = features.DeriveUpdates(state.Biometric)
	return nil
}

func (s *DeriveStage) Produced(state *RunState) int {
	return len(state.Enrollments) + len(state.Demographic) + len(state.Biometric)
}

// ScoreStage labels enrollment records and sweeps contamination levels
type ScoreStage struct {
	scorer        *anomaly.Scorer
	contamination float64
	sweep         []float64
}

// NewScoreStage creates the score stage. A nil sweep uses anomaly.DefaultSweep.
func NewScoreStage(scorer *anomaly.Scorer, contamination float64, sweep []float64) *ScoreStage {
	return &ScoreStage{scorer: scorer, contamination: contamination, sweep: sweep}
}

func (s *ScoreStage) ID() string   { return StageScore }
func (s *ScoreStage) Name() string { return "Score anomalies" }

func (s *ScoreStage) Execute(ctx context.Context, state *RunState) error {
	scored, sweep, err := s.scorer.Analyze(ctx, state.Enrollments, s.sweep)
	if err != nil {
		return err
	}
	state.Scored = scored
	state.Sweep = sweep
	state.Contamination = s.contamination

	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"anomaly.contamination": s.contamination,
		"anomaly.outliers":      state.Anomalies(),
		"anomaly.sweep_levels":  len(sweep),
	})
	return nil
}

func (s *ScoreStage) Produced(state *RunState) int {
	return state.Anomalies()
}

// IntegrityStage compares the three sources per geography
type IntegrityStage struct {
	comparator *integrity.Comparator
}

// NewIntegrityStage creates the integrity stage
func NewIntegrityStage(comparator *integrity.Comparator) *IntegrityStage {
	return &IntegrityStage{comparator: comparator}
}

func (s *IntegrityStage) ID() string   { return StageIntegrity }
func (s *IntegrityStage) Name() string { return "Compare sources" }

func (s *IntegrityStage) Execute(ctx context.Context, state *RunState) error {
	state.States = aggregate.Aggregate(state.Enrollments, state.Demographic, state.Biometric, aggregate.ByState)
	state.Districts = aggregate.Aggregate(state.Enrollments, state.Demographic, state.Biometric, aggregate.ByDistrict)
	state.Integrity = s.comparator.Analyze(state.Enrollments, state.Demographic, state.Biometric)

	infrastructure.SetSpanAttributes(ctx, map[string]interface{}{
		"integrity.districts": len(state.Integrity.Rows),
		"integrity.flagged":   len(state.Integrity.Flagged()),
	})
	return nil
}

func (s *IntegrityStage) Produced(state *RunState) int {
	return len(state.Integrity.Flagged())
}

// SummarizeStage builds the summary tables
type SummarizeStage struct {
	summarizer *summary.Summarizer
}

// NewSummarizeStage creates the summarize stage
func NewSummarizeStage(summarizer *summary.Summarizer) *SummarizeStage {
	return &SummarizeStage{summarizer: summarizer}
}

func (s *SummarizeStage) ID() string   { return StageSummarize }
func (s *SummarizeStage) Name() string { return "Summarize" }

func (s *SummarizeStage) Execute(ctx context.Context, state *RunState) error {
	state.Summary = s.summarizer.Summarize(ctx, summary.Input{
		Enrollments: state.Enrollments,
		Scored:      state.Scored,
		States:      state.States,
		Integrity:   state.Integrity,
		Sweep:       state.Sweep,
		Cleaning:    state.CleaningStats(),
	})
	return nil
}
