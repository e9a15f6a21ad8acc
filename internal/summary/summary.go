// Package summary computes the descriptive tables reported after a run:
// monthly trend, age composition, district spread, anomaly breakdowns and
// the integrity overview.
package summary

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"aadhaarcli/internal/aggregate"
	"aadhaarcli/internal/features"
	"aadhaarcli/internal/integrity"
	"aadhaarcli/internal/stats"
	"aadhaarcli/pkg/contracts/domain"
)

// Thresholds of the age mode conclusion
const (
	BirthRegistrationChildPct = 60
	SchoolCatchUpYouthPct     = 40
)

// StableSlope is the largest monthly change, in percentage points, of the
// child and youth shares for the composition to count as stable
const StableSlope = 0.5

// Config holds options for the Summarizer
type Config struct {
	TopPincodes          int   `yaml:"top_pincodes" envconfig:"TOP_PINCODES" default:"20" validate:"min=0"`
	TopDistricts         int   `yaml:"top_districts" envconfig:"TOP_DISTRICTS" default:"20" validate:"min=0"`
	TopAnomalies         int   `yaml:"top_anomalies" envconfig:"TOP_ANOMALIES" default:"10" validate:"min=0"`
	LowActivityThreshold int64 `yaml:"low_activity_threshold" envconfig:"LOW_ACTIVITY_THRESHOLD" default:"100" validate:"min=0"`
}

// DefaultConfig returns the standard summary options
func DefaultConfig() Config {
	return Config{TopPincodes: 20, TopDistricts: 20, TopAnomalies: 10, LowActivityThreshold: 100}
}

// Input is everything a summary is computed from
type Input struct {
	Enrollments []domain.EnrollmentRecord
	Scored      []domain.ScoredRecord
	States      []domain.GeoAggregate
	Integrity   domain.IntegrityReport
	Sweep       []domain.SweepPoint
	Cleaning    []domain.CleaningStats
}

// Summarizer builds domain.Summary values
type Summarizer struct {
	cfg    Config
	logger *slog.Logger
}

// NewSummarizer creates a summarizer. Zero config fields fall back to defaults.
func NewSummarizer(cfg Config, logger *slog.Logger) *Summarizer {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.TopPincodes <= 0 {
		cfg.TopPincodes = def.TopPincodes
	}
	if cfg.TopDistricts <= 0 {
		cfg.TopDistricts = def.TopDistricts
	}
	if cfg.TopAnomalies <= 0 {
		cfg.TopAnomalies = def.TopAnomalies
	}
	if cfg.LowActivityThreshold <= 0 {
		cfg.LowActivityThreshold = def.LowActivityThreshold
	}
	return &Summarizer{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "summary")),
	}
}

// Summarize computes every summary table
func (s *Summarizer) Summarize(ctx context.Context, in Input) domain.Summary {
	out := domain.Summary{
		Trend:             MonthlyTrend(in.Enrollments),
		Ages:              AgeDistribution(in.Enrollments),
		AgeShares:         AgeShareByMonth(in.Enrollments),
		Districts:         DistrictDistribution(aggregate.Enrollments(in.Enrollments, aggregate.ByDistrict), s.cfg.LowActivityThreshold),
		StateActivity:     aggregate.ByTotal(in.States),
		StateRates:        StateAnomalyRates(in.Scored),
		DistrictAnomalies: DistrictAnomalies(in.Scored, s.cfg.TopDistricts),
		MonthlyAnomalies:  MonthlyAnomalies(in.Scored),
		TopPincodes:       TopPincodes(in.Scored, s.cfg.TopPincodes),
		TopAnomalies:      TopAnomalies(in.Scored, s.cfg.TopAnomalies),
		FeatureDiffs:      CompareGroups(in.Scored),
		Categories:        CategoryCounts(in.Scored),
		Integrity:         IntegrityOverview(in.Integrity),
		Sweep:             in.Sweep,
		Cleaning:          in.Cleaning,
	}

	s.logger.InfoContext(ctx, "Summary computed",
		slog.Int("months", len(out.Trend.Points)),
		slog.Int("districts", out.Districts.Districts),
		slog.Int("states", len(out.StateRates)),
		slog.Int("integrity_flagged", out.Integrity.Flagged),
		slog.String("age_mode", out.AgeShares.Mode),
		slog.String("composition", out.AgeShares.Composition))

	return out
}

type bands struct {
	a0, a5, a18 int64
}

func (b bands) total() int64 { return b.a0 + b.a5 + b.a18 }

// byMonth sums age bands per YearMonth and returns the months in order
func byMonth(records []domain.EnrollmentRecord) ([]string, map[string]*bands) {
	sums := make(map[string]*bands)
	for _, r := range records {
		b, ok := sums[r.YearMonth]
		if !ok {
			b = &bands{}
			sums[r.YearMonth] = b
		}
		b.a0 += r.Age0To5
		b.a5 += r.Age5To17
		b.a18 += r.Age18Plus
	}
	months := make([]string, 0, len(sums))
	for m := range sums {
		months = append(months, m)
	}
	sort.Strings(months)
	return months, sums
}

// MonthlyTrend returns the enrollment total per month with month over month
// growth and a least squares trend over the month index
func MonthlyTrend(records []domain.EnrollmentRecord) domain.MonthlyTrend {
	months, sums := byMonth(records)

	trend := domain.MonthlyTrend{Points: make([]domain.MonthPoint, len(months))}
	totals := make([]float64, len(months))
	for i, m := range months {
		total := sums[m].total()
		totals[i] = float64(total)
		p := domain.MonthPoint{Month: m, Total: total}
		if i > 0 {
			p.GrowthPct = features.Round2(stats.PctChange(totals[i-1], totals[i]))
		}
		trend.Points[i] = p
	}

	reg := stats.LinearRegression(stats.Index(len(totals)), totals)
	trend.Slope = reg.Slope
	trend.R2 = reg.R2

	for i, p := range trend.Points {
		if i == 0 || p.Total > trend.Highest.Total {
			trend.Highest = p
		}
		if i == 0 || p.Total < trend.Lowest.Total {
			trend.Lowest = p
		}
	}
	return trend
}

// AgeDistribution sums enrollments per age band
func AgeDistribution(records []domain.EnrollmentRecord) domain.AgeDistribution {
	var b bands
	for _, r := range records {
		b.a0 += r.Age0To5
		b.a5 += r.Age5To17
		b.a18 += r.Age18Plus
	}
	total := b.total()
	return domain.AgeDistribution{
		Age0To5:   b.a0,
		Age5To17:  b.a5,
		Age18Plus: b.a18,
		Total:     total,
		ChildPct:  features.Percent(b.a0, total),
		YouthPct:  features.Percent(b.a5, total),
		AdultPct:  features.Percent(b.a18, total),
	}
}

// AgeShareByMonth returns the age-band shares per month, their linear
// trends and the enrollment mode implied by the latest month
func AgeShareByMonth(records []domain.EnrollmentRecord) domain.AgeShareTrend {
	months, sums := byMonth(records)

	out := domain.AgeShareTrend{Months: make([]domain.AgeShareMonth, len(months))}
	child := make([]float64, len(months))
	youth := make([]float64, len(months))
	adult := make([]float64, len(months))
	for i, m := range months {
		b := sums[m]
		share := domain.AgeShareMonth{
			Month:    m,
			ChildPct: features.Percent(b.a0, b.total()),
			YouthPct: features.Percent(b.a5, b.total()),
			AdultPct: features.Percent(b.a18, b.total()),
		}
		out.Months[i] = share
		child[i], youth[i], adult[i] = share.ChildPct, share.YouthPct, share.AdultPct
	}

	x := stats.Index(len(months))
	childFit := stats.LinearRegression(x, child)
	youthFit := stats.LinearRegression(x, youth)
	adultFit := stats.LinearRegression(x, adult)
	out.ChildSlope, out.ChildR2 = childFit.Slope, childFit.R2
	out.YouthSlope, out.YouthR2 = youthFit.Slope, youthFit.R2
	out.AdultSlope, out.AdultR2 = adultFit.Slope, adultFit.R2

	if len(out.Months) > 0 {
		out.Mode = Mode(out.Months[len(out.Months)-1])
		out.Composition = Composition(out.ChildSlope, out.YouthSlope)
	}
	return out
}

// Composition reports whether the age mix holds steady: both the child and
// youth shares move by less than StableSlope points a month
func Composition(childSlope, youthSlope float64) string {
	if math.Abs(childSlope) < StableSlope && math.Abs(youthSlope) < StableSlope {
		return domain.CompositionStable
	}
	return domain.CompositionChanging
}

// Mode classifies a month by its dominant enrollment driver
func Mode(m domain.AgeShareMonth) string {
	switch {
	case m.ChildPct > BirthRegistrationChildPct:
		return domain.ModeBirthRegistration
	case m.YouthPct > SchoolCatchUpYouthPct:
		return domain.ModeSchoolCatchUp
	default:
		return domain.ModeBalanced
	}
}

// DistrictDistribution describes the spread of district enrollment totals.
// Districts with fewer than lowThreshold enrollments count as low activity.
func DistrictDistribution(districts []domain.GeoAggregate, lowThreshold int64) domain.DistrictDistribution {
	out := domain.DistrictDistribution{Districts: len(districts)}
	totals := make([]float64, len(districts))
	for i, d := range districts {
		out.Total += d.EnrollmentTotal
		totals[i] = float64(d.EnrollmentTotal)
		if d.EnrollmentTotal < lowThreshold {
			out.LowActivity++
		}
	}
	out.Mean = stats.Mean(totals)
	out.Median = stats.Median(totals)
	return out
}

// StateAnomalyRates returns the flagged share of each state's records,
// highest rate first
func StateAnomalyRates(scored []domain.ScoredRecord) []domain.StateAnomalyRate {
	index := make(map[string]*domain.StateAnomalyRate)
	for _, r := range scored {
		rate, ok := index[r.State]
		if !ok {
			rate = &domain.StateAnomalyRate{State: r.State}
			index[r.State] = rate
		}
		rate.Records++
		if r.Label.Outlier {
			rate.Anomalies++
		}
	}

	out := make([]domain.StateAnomalyRate, 0, len(index))
	for _, rate := range index {
		rate.RatePct = features.Round2(float64(rate.Anomalies) / float64(rate.Records) * 100)
		out = append(out, *rate)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RatePct != out[j].RatePct {
			return out[i].RatePct > out[j].RatePct
		}
		return out[i].State < out[j].State
	})
	return out
}

// DistrictAnomalies returns the n districts with the most flagged records,
// skipping districts without any. n <= 0 keeps them all.
func DistrictAnomalies(scored []domain.ScoredRecord, n int) []domain.DistrictAnomalyCount {
	type key struct{ state, district string }
	index := make(map[key]*domain.DistrictAnomalyCount)
	for _, r := range scored {
		k := key{r.State, r.District}
		dc, ok := index[k]
		if !ok {
			dc = &domain.DistrictAnomalyCount{State: r.State, District: r.District}
			index[k] = dc
		}
		dc.Records++
		if r.Label.Outlier {
			dc.Anomalies++
		}
	}

	out := make([]domain.DistrictAnomalyCount, 0, len(index))
	for _, dc := range index {
		if dc.Anomalies > 0 {
			out = append(out, *dc)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Anomalies != out[j].Anomalies {
			return out[i].Anomalies > out[j].Anomalies
		}
		if out[i].State != out[j].State {
			return out[i].State < out[j].State
		}
		return out[i].District < out[j].District
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// MonthlyAnomalies splits each month's records into flagged and normal, in
// month order
func MonthlyAnomalies(scored []domain.ScoredRecord) []domain.MonthlyAnomalyCount {
	index := make(map[string]*domain.MonthlyAnomalyCount)
	for _, r := range scored {
		mc, ok := index[r.YearMonth]
		if !ok {
			mc = &domain.MonthlyAnomalyCount{Month: r.YearMonth}
			index[r.YearMonth] = mc
		}
		if r.Label.Outlier {
			mc.Anomalies++
		} else {
			mc.Normal++
		}
	}

	out := make([]domain.MonthlyAnomalyCount, 0, len(index))
	for _, mc := range index {
		out = append(out, *mc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// IntegrityOverview condenses the integrity report into its headline numbers
func IntegrityOverview(report domain.IntegrityReport) domain.IntegrityOverview {
	flagged := report.Flagged()
	out := domain.IntegrityOverview{
		Stats:          report.Stats,
		Flagged:        len(flagged),
		Patterns:       integrity.PrimaryCounts(flagged),
		GhostDistricts: report.GhostDistricts,
		DeadDistricts:  report.Dead,
	}
	if out.GhostDistricts == nil {
		out.GhostDistricts = []domain.IntegrityRow{}
	}
	if out.DeadDistricts == nil {
		out.DeadDistricts = []domain.GeoKey{}
	}
	return out
}

// TopPincodes returns the n pincodes with the most flagged records. n <= 0
// returns every pincode with at least one anomaly.
func TopPincodes(scored []domain.ScoredRecord, n int) []domain.PincodeCount {
	index := make(map[string]*domain.PincodeCount)
	for _, r := range scored {
		if !r.Label.Outlier {
			continue
		}
		pc, ok := index[r.Pincode]
		if !ok {
			pc = &domain.PincodeCount{Pincode: r.Pincode, State: r.State, District: r.District}
			index[r.Pincode] = pc
		}
		pc.Anomalies++
	}

	out := make([]domain.PincodeCount, 0, len(index))
	for _, pc := range index {
		out = append(out, *pc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Anomalies != out[j].Anomalies {
			return out[i].Anomalies > out[j].Anomalies
		}
		return out[i].Pincode < out[j].Pincode
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// CompareGroups contrasts the mean of each model feature between flagged and
// normal records. DiffPct is relative to the normal mean.
func CompareGroups(scored []domain.ScoredRecord) []domain.FeatureComparison {
	width := len(features.VectorNames)
	anomalous := make([][]float64, width)
	normal := make([][]float64, width)
	for _, r := range scored {
		v := features.Vector(r.EnrollmentRecord)
		for f := range v {
			if r.Label.Outlier {
				anomalous[f] = append(anomalous[f], v[f])
			} else {
				normal[f] = append(normal[f], v[f])
			}
		}
	}

	out := make([]domain.FeatureComparison, width)
	for f, name := range features.VectorNames {
		am, nm := stats.Mean(anomalous[f]), stats.Mean(normal[f])
		out[f] = domain.FeatureComparison{
			Feature:     name,
			AnomalyMean: features.Round2(am),
			NormalMean:  features.Round2(nm),
			DiffPct:     features.Round2(stats.PctChange(nm, am)),
		}
	}
	return out
}

// CategoryCounts counts flagged records per category string, most frequent first
func CategoryCounts(scored []domain.ScoredRecord) []domain.CategoryCount {
	counts := make(map[string]int)
	for _, r := range scored {
		if cat := r.Label.Category(); cat != "" {
			counts[cat]++
		}
	}
	out := make([]domain.CategoryCount, 0, len(counts))
	for cat, n := range counts {
		out = append(out, domain.CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// TopAnomalies returns the n flagged records with the largest totals
func TopAnomalies(scored []domain.ScoredRecord, n int) []domain.ScoredRecord {
	var out []domain.ScoredRecord
	for _, r := range scored {
		if r.Label.Outlier {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Total > out[j].Total
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
