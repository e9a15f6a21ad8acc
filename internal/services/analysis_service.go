package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"aadhaarcli/internal/anomaly"
	"aadhaarcli/internal/config"
	"aadhaarcli/internal/exporter"
	"aadhaarcli/internal/pipeline"
	"aadhaarcli/pkg/contracts/domain"
)

// DefaultAnomalyLimit caps anomaly queries that do not set a limit
const DefaultAnomalyLimit = 100

// RunStore persists run history
type RunStore interface {
	SaveRun(ctx context.Context, run domain.Run, scored []domain.ScoredRecord, integrity []domain.IntegrityRow) error
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)
	GetRun(ctx context.Context, id string) (*domain.Run, error)
	RunAnomalies(ctx context.Context, runID string) ([]domain.ScoredRecord, error)
	RunIntegrity(ctx context.Context, runID string) ([]domain.IntegrityRow, error)
	DeleteRun(ctx context.Context, id string) error
}

// Result is the complete output of one analysis run
type Result struct {
	Run       domain.Run             `json:"run"`
	Steps     []pipeline.StepInfo    `json:"steps"`
	Scored    []domain.ScoredRecord  `json:"-"`
	States    []domain.GeoAggregate  `json:"states"`
	Districts []domain.GeoAggregate  `json:"-"`
	Integrity domain.IntegrityReport `json:"-"`
	Summary   domain.Summary         `json:"summary"`
	Exports   []string               `json:"exports,omitempty"`
}

func newResult(state *pipeline.RunState) *Result {
	return &Result{
		Run:       state.Run(),
		Steps:     state.Steps(),
		Scored:    state.Scored,
		States:    state.States,
		Districts: state.Districts,
		Integrity: state.Integrity,
		Summary:   state.Summary,
	}
}

// AnalysisOptions configures an AnalysisService
type AnalysisOptions struct {
	Paths config.PathsConfig

	// Export writes the CSV, workbook and JSON reports after each completed run
	Export bool
}

// AnalysisService runs the pipeline and serves queries over the latest result
type AnalysisService struct {
	manager *pipeline.Manager
	opts    AnalysisOptions
	writer  *exporter.CSVWriter
	store   RunStore
	logger  *slog.Logger

	running atomic.Bool

	mu     sync.RWMutex
	latest *Result
}

// NewAnalysisService creates the service. store may be nil to disable run history.
func NewAnalysisService(manager *pipeline.Manager, opts AnalysisOptions, store RunStore, logger *slog.Logger) *AnalysisService {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("service", "analysis"))

	return &AnalysisService{
		manager: manager,
		opts:    opts,
		writer:  exporter.NewCSVWriter(opts.Paths.Resolve(opts.Paths.OutputDir), logger),
		store:   store,
		logger:  logger,
	}
}

// Run executes the pipeline against the configured input directories. Only
// one run executes at a time; a concurrent call gets ErrRunInProgress. The
// result is returned even when the run fails so callers can report the
// stage states, but only completed runs replace the cached result.
func (s *AnalysisService) Run(ctx context.Context) (*Result, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer s.running.Store(false)

	state := pipeline.NewRunState("", s.opts.Paths.InputDirs())
	s.logger.InfoContext(ctx, "Starting analysis run", slog.String("run_id", state.ID))

	runErr := s.manager.Execute(ctx, state)

	var exports []string
	if runErr == nil && s.opts.Export {
		var err error
		exports, err = s.Export(ctx, newResult(state))
		if err != nil {
			runErr = fmt.Errorf("%w: %w", ErrExportFailed, err)
			state.Fail(runErr)
		}
	}

	result := newResult(state)
	result.Exports = exports

	if s.store != nil {
		// Persist even when the caller's context was cancelled
		saveCtx := context.WithoutCancel(ctx)
		if err := s.store.SaveRun(saveCtx, result.Run, result.Scored, result.Integrity.Rows); err != nil {
			s.logger.ErrorContext(ctx, "Failed to save run",
				slog.String("run_id", state.ID),
				slog.String("error", err.Error()))
			if runErr == nil {
				runErr = fmt.Errorf("%w: %w", ErrSaveFailed, err)
			}
		}
	}

	if runErr != nil {
		s.logger.ErrorContext(ctx, "Analysis run failed",
			slog.String("run_id", state.ID),
			slog.String("status", string(result.Run.Status)),
			slog.String("error", runErr.Error()))
		return result, runErr
	}

	s.mu.Lock()
	s.latest = result
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "Analysis run completed",
		slog.String("run_id", state.ID),
		slog.Duration("duration", result.Run.Duration),
		slog.Int("anomalies", result.Run.Anomalies),
		slog.Int("integrity_hits", result.Run.IntegrityHits))
	return result, nil
}

// Export writes every report for result into the output directory and
// returns the written paths
func (s *AnalysisService) Export(ctx context.Context, result *Result) ([]string, error) {
	if err := s.opts.Paths.EnsureOutputDir(); err != nil {
		return nil, err
	}

	if _, err := s.writer.WriteAnomalies(config.AnomaliesCSV, result.Scored); err != nil {
		return nil, err
	}
	if _, err := s.writer.WriteIntegrity(config.IntegrityCSV, result.Integrity.Rows); err != nil {
		return nil, err
	}
	report := exporter.Report{
		Scored:         result.Scored,
		Integrity:      result.Integrity.Rows,
		GhostDistricts: result.Integrity.GhostDistricts,
		DeadDistricts:  result.Integrity.Dead,
		RatioStats:     result.Integrity.Stats,
		States:         result.States,
	}
	if err := s.writer.WriteWorkbook(config.ReportXLSX, report); err != nil {
		return nil, err
	}
	if err := s.writer.WriteJSON(config.SummaryJSON, result.Summary); err != nil {
		return nil, err
	}

	paths := []string{
		s.writer.Path(config.AnomaliesCSV),
		s.writer.Path(config.IntegrityCSV),
		s.writer.Path(config.ReportXLSX),
		s.writer.Path(config.SummaryJSON),
	}
	s.logger.InfoContext(ctx, "Exported reports", slog.Any("files", paths))
	return paths, nil
}

// Running reports whether a run is executing
func (s *AnalysisService) Running() bool {
	return s.running.Load()
}

// Latest returns the most recent completed result
func (s *AnalysisService) Latest() (*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.latest == nil {
		return nil, ErrNoResult
	}
	return s.latest, nil
}

// States returns the state-level aggregates of the latest result
func (s *AnalysisService) States() ([]domain.GeoAggregate, error) {
	latest, err := s.Latest()
	if err != nil {
		return nil, err
	}
	return latest.States, nil
}

// Summary returns the summary tables of the latest result
func (s *AnalysisService) Summary() (domain.Summary, error) {
	latest, err := s.Latest()
	if err != nil {
		return domain.Summary{}, err
	}
	return latest.Summary, nil
}

// AnomalyFilter narrows an anomaly query
type AnomalyFilter struct {
	State string `json:"state" validate:"omitempty,max=100,geoname"`
	Limit int    `json:"limit" validate:"gte=0,lte=1000"`
}

// Anomalies returns flagged records of the latest result, most anomalous
// first. State matching ignores case.
func (s *AnalysisService) Anomalies(filter AnomalyFilter) ([]domain.ScoredRecord, error) {
	latest, err := s.Latest()
	if err != nil {
		return nil, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultAnomalyLimit
	}

	out := make([]domain.ScoredRecord, 0)
	for _, r := range anomaly.Outliers(latest.Scored) {
		if filter.State != "" && !strings.EqualFold(r.State, filter.State) {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

var fraudAliases = map[string]domain.FraudType{
	"ghost":      domain.FraudGhostEnrollments,
	"phantom":    domain.FraudPhantomUpdates,
	"mismatch":   domain.FraudBioMismatch,
	"disconnect": domain.FraudDisconnect,
}

// FraudTypeNames lists every accepted fraud type filter: the short aliases
// followed by the full names
func FraudTypeNames() []string {
	names := make([]string, 0, 2*len(fraudAliases))
	for alias := range fraudAliases {
		names = append(names, alias)
	}
	sort.Strings(names)
	full := make([]string, 0, len(fraudAliases))
	for _, ft := range fraudAliases {
		full = append(full, string(ft))
	}
	sort.Strings(full)
	return append(names, full...)
}

// ParseFraudType resolves a fraud type from its full name or short alias
// (ghost, phantom, mismatch, disconnect), ignoring case
func ParseFraudType(s string) (domain.FraudType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if ft, ok := fraudAliases[key]; ok {
		return ft, nil
	}
	for _, ft := range fraudAliases {
		if strings.EqualFold(string(ft), key) {
			return ft, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFraudType, s)
}

// Integrity returns the flagged integrity rows of the latest result. A
// non-empty fraudType keeps only rows that matched it.
func (s *AnalysisService) Integrity(fraudType string) ([]domain.IntegrityRow, error) {
	var want domain.FraudType
	if fraudType != "" {
		ft, err := ParseFraudType(fraudType)
		if err != nil {
			return nil, err
		}
		want = ft
	}

	latest, err := s.Latest()
	if err != nil {
		return nil, err
	}

	out := make([]domain.IntegrityRow, 0)
	for _, row := range latest.Integrity.Flagged() {
		if want != "" && !row.Has(want) {
			continue
		}
		out = append(out, row)
	}
	return out, nil
}

// IntegrityOverview returns the integrity headline figures of the latest
// result: ratio statistics, pattern counts, ghost and dead districts
func (s *AnalysisService) IntegrityOverview() (domain.IntegrityOverview, error) {
	latest, err := s.Latest()
	if err != nil {
		return domain.IntegrityOverview{}, err
	}
	return latest.Summary.Integrity, nil
}

// ListRuns returns stored runs, newest first. Without a store only the
// latest completed run is known.
func (s *AnalysisService) ListRuns(ctx context.Context, limit int) ([]domain.Run, error) {
	if s.store != nil {
		return s.store.ListRuns(ctx, limit)
	}
	latest, err := s.Latest()
	if err != nil {
		return []domain.Run{}, nil
	}
	return []domain.Run{latest.Run}, nil
}

// GetRun returns a run by ID
func (s *AnalysisService) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	if latest, err := s.Latest(); err == nil && latest.Run.ID == id {
		run := latest.Run
		return &run, nil
	}
	if s.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return s.store.GetRun(ctx, id)
}

// RunAnomalies returns the flagged records of a run by ID
func (s *AnalysisService) RunAnomalies(ctx context.Context, id string) ([]domain.ScoredRecord, error) {
	if latest, err := s.Latest(); err == nil && latest.Run.ID == id {
		return anomaly.Outliers(latest.Scored), nil
	}
	if s.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return s.store.RunAnomalies(ctx, id)
}

// RunIntegrity returns the flagged integrity rows of a run by ID
func (s *AnalysisService) RunIntegrity(ctx context.Context, id string) ([]domain.IntegrityRow, error) {
	if latest, err := s.Latest(); err == nil && latest.Run.ID == id {
		out := latest.Integrity.Flagged()
		if out == nil {
			out = []domain.IntegrityRow{}
		}
		return out, nil
	}
	if s.store == nil {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return s.store.RunIntegrity(ctx, id)
}

// DeleteRun removes a run from the history. The cached latest result is
// kept so queries keep working until the next run.
func (s *AnalysisService) DeleteRun(ctx context.Context, id string) error {
	if s.store == nil {
		return ErrHistoryDisabled
	}
	if err := s.store.DeleteRun(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Deleted run", slog.String("run_id", id))
	return nil
}
