// Package anomaly flags unusual enrollment records with an isolation forest
// over standardized features and explains each flag with an ordered rule set.
package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"aadhaarcli/internal/features"
	"aadhaarcli/internal/stats"
	"aadhaarcli/pkg/contracts/domain"
)

// DefaultContamination is the expected share of outliers
const DefaultContamination = 0.005

// DefaultSweep lists the contamination levels compared by Sweep
var DefaultSweep = []float64{0.01, 0.005, 0.001}

// Config configures the scorer
type Config struct {
	Contamination float64 `yaml:"contamination" envconfig:"CONTAMINATION" default:"0.005" validate:"gt=0,lte=0.5"`
	Trees         int     `yaml:"trees" envconfig:"TREES" default:"100" validate:"min=1,max=1000"`
	SampleSize    int     `yaml:"sample_size" envconfig:"SAMPLE_SIZE" default:"256" validate:"min=2"`
	Seed          int64   `yaml:"seed" envconfig:"SEED" default:"42"`
}

// DefaultConfig returns the standard model settings
func DefaultConfig() Config {
	return Config{
		Contamination: DefaultContamination,
		Trees:         100,
		SampleSize:    256,
		Seed:          42,
	}
}

// Validate checks the configuration
func (c Config) Validate() error {
	if c.Contamination <= 0 || c.Contamination > 0.5 {
		return fmt.Errorf("contamination must be in (0, 0.5], got %v", c.Contamination)
	}
	if c.Trees <= 0 {
		return fmt.Errorf("trees must be positive, got %d", c.Trees)
	}
	if c.SampleSize < 2 {
		return fmt.Errorf("sample size must be at least 2, got %d", c.SampleSize)
	}
	return nil
}

// Scorer labels enriched enrollment records
type Scorer struct {
	cfg    Config
	rules  RuleSet
	logger *slog.Logger
}

// NewScorer creates a scorer using DefaultRules
func NewScorer(cfg Config, logger *slog.Logger) (*Scorer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scorer{
		cfg:    cfg,
		rules:  DefaultRules(),
		logger: logger.With(slog.String("component", "anomaly")),
	}, nil
}

// WithRules replaces the categorization rules
func (s *Scorer) WithRules(rules RuleSet) *Scorer {
	s.rules = rules
	return s
}

// Model is a fitted forest together with the scores of its training population
type Model struct {
	Forest *Forest
	Scaler *Scaler
	Scores []float64
}

// Fit standardizes the feature matrix of records and builds the forest.
// Empty input yields a nil model.
func (s *Scorer) Fit(ctx context.Context, records []domain.EnrollmentRecord) (*Model, error) {
	if len(records) == 0 {
		return nil, nil
	}

	matrix := make([][]float64, len(records))
	for i, r := range records {
		matrix[i] = features.Vector(r)
	}

	scaler := FitScaler(matrix)
	scaled := scaler.Transform(matrix)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	forest, err := FitForest(scaled, ForestConfig{
		Trees:      s.cfg.Trees,
		SampleSize: s.cfg.SampleSize,
		Seed:       s.cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("fit isolation forest: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return &Model{Forest: forest, Scaler: scaler, Scores: forest.ScoreAll(scaled)}, nil
}

// Threshold returns the score above which a record counts as an outlier
func Threshold(scores []float64, contamination float64) float64 {
	return stats.Quantile(scores, 1-contamination)
}

// Score fits the model and labels every record. The returned slice is
// parallel to records. Empty input returns an empty result.
func (s *Scorer) Score(ctx context.Context, records []domain.EnrollmentRecord) ([]domain.ScoredRecord, error) {
	model, err := s.Fit(ctx, records)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return []domain.ScoredRecord{}, nil
	}
	return s.Label(ctx, records, model, s.cfg.Contamination), nil
}

// Label flags records of a fitted model at the given contamination and tags
// each flagged record
func (s *Scorer) Label(ctx context.Context, records []domain.EnrollmentRecord, model *Model, contamination float64) []domain.ScoredRecord {
	threshold := Threshold(model.Scores, contamination)
	pop := NewPopulation(records)

	out := make([]domain.ScoredRecord, len(records))
	flagged := 0
	for i, r := range records {
		label := domain.AnomalyLabel{Score: model.Scores[i]}
		if model.Scores[i] > threshold {
			label.Outlier = true
			label.Tags = s.rules.Evaluate(r, pop)
			flagged++
		}
		out[i] = domain.ScoredRecord{EnrollmentRecord: r, Label: label}
	}

	s.logger.InfoContext(ctx, "Scored enrollment records",
		slog.Int("records", len(records)),
		slog.Int("flagged", flagged),
		slog.Float64("contamination", contamination),
		slog.Float64("threshold", threshold))

	return out
}

// Analyze fits the model once and returns both the labels at the configured
// contamination and the sweep over levels
func (s *Scorer) Analyze(ctx context.Context, records []domain.EnrollmentRecord, levels []float64) ([]domain.ScoredRecord, []domain.SweepPoint, error) {
	if err := checkLevels(levels); err != nil {
		return nil, nil, err
	}
	model, err := s.Fit(ctx, records)
	if err != nil {
		return nil, nil, err
	}
	if model == nil {
		return []domain.ScoredRecord{}, s.sweep(nil, levels), nil
	}
	return s.Label(ctx, records, model, s.cfg.Contamination), s.sweep(model, levels), nil
}

// Sweep reports how many records each contamination level would flag on an
// already fitted model. A nil model yields zero counts.
func (s *Scorer) Sweep(model *Model, levels []float64) ([]domain.SweepPoint, error) {
	if err := checkLevels(levels); err != nil {
		return nil, err
	}
	return s.sweep(model, levels), nil
}

func checkLevels(levels []float64) error {
	for _, c := range levels {
		if c <= 0 || c > 0.5 {
			return fmt.Errorf("contamination must be in (0, 0.5], got %v", c)
		}
	}
	return nil
}

func (s *Scorer) sweep(model *Model, levels []float64) []domain.SweepPoint {
	if len(levels) == 0 {
		levels = DefaultSweep
	}
	points := make([]domain.SweepPoint, 0, len(levels))
	for _, c := range levels {
		p := domain.SweepPoint{Contamination: c}
		if model != nil && len(model.Scores) > 0 {
			threshold := Threshold(model.Scores, c)
			for _, score := range model.Scores {
				if score > threshold {
					p.Flagged++
				}
			}
			p.Rate = float64(p.Flagged) / float64(len(model.Scores)) * 100
		}
		points = append(points, p)
	}
	return points
}

// Outliers returns only the flagged records, most anomalous first
func Outliers(scored []domain.ScoredRecord) []domain.ScoredRecord {
	var out []domain.ScoredRecord
	for _, r := range scored {
		if r.Label.Outlier {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Label.Score > out[j].Label.Score
	})
	return out
}
