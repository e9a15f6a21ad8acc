package pipeline

import (
	"fmt"
	"log/slog"
	"sync"

	"aadhaarcli/internal/anomaly"
	"aadhaarcli/internal/cleaning"
	"aadhaarcli/internal/files"
	"aadhaarcli/internal/ingest"
	"aadhaarcli/internal/integrity"
	"aadhaarcli/internal/summary"
)

// Registry holds stages in registration order
type Registry struct {
	mu     sync.RWMutex
	stages map[string]Stage
	order  []string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		stages: make(map[string]Stage),
	}
}

// Register appends a stage
func (r *Registry) Register(stage Stage) error {
	if stage == nil {
		return fmt.Errorf("cannot register nil stage")
	}

	id := stage.ID()
	if id == "" {
		return fmt.Errorf("stage ID cannot be empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.stages[id]; exists {
		return fmt.Errorf("stage with ID %s already registered", id)
	}

	r.stages[id] = stage
	r.order = append(r.order, id)
	return nil
}

// Get retrieves a stage by ID
func (r *Registry) Get(id string) (Stage, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stage, exists := r.stages[id]
	if !exists {
		return nil, fmt.Errorf("stage with ID %s not found", id)
	}
	return stage, nil
}

// List returns the stages in registration order
func (r *Registry) List() []Stage {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Stage, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.stages[id])
	}
	return out
}

// Count returns the number of registered stages
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Options configures the default stage set
type Options struct {
	BaseDir string
	Anomaly anomaly.Config
	Summary summary.Config
	Sweep   []float64
}

// NewDefaultRegistry wires ingest, clean, derive, score, integrity and
// summarize in that order
func NewDefaultRegistry(opts Options, logger *slog.Logger) (*Registry, *ingest.Loader, error) {
	if logger == nil {
		logger = slog.Default()
	}

	scorer, err := anomaly.NewScorer(opts.Anomaly, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid anomaly config: %w", err)
	}

	loader := ingest.NewLoader(files.NewDiscovery(opts.BaseDir), logger)

	r := NewRegistry()
	for _, stage := range []Stage{
		NewIngestStage(loader),
		NewCleanStage(cleaning.NewCleaner(logger)),
		NewDeriveStage(),
		NewScoreStage(scorer, opts.Anomaly.Contamination, opts.Sweep),
		NewIntegrityStage(integrity.NewComparator()),
		NewSummarizeStage(summary.NewSummarizer(opts.Summary, logger)),
	} {
		if err := r.Register(stage); err != nil {
			return nil, nil, err
		}
	}
	return r, loader, nil
}
