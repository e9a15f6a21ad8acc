// Package integrity compares enrollment, demographic and biometric volumes per
// geographic unit and flags units whose ratios suggest fabricated or missing
// activity.
package integrity

import (
	"math"
	"sort"

	"aadhaarcli/internal/aggregate"
	"aadhaarcli/internal/stats"
	"aadhaarcli/pkg/contracts/domain"
)

// FraudRule is a named predicate over a joined unit
type FraudRule struct {
	Type  domain.FraudType
	Match func(a domain.GeoAggregate) bool
}

// DefaultRules returns the cross-dataset patterns in evaluation order
func DefaultRules() []FraudRule {
	return []FraudRule{
		{
			Type: domain.FraudGhostEnrollments,
			Match: func(a domain.GeoAggregate) bool {
				return a.EnrollmentTotal > 1000 && a.DemoToEnrol < 0.3
			},
		},
		{
			Type: domain.FraudPhantomUpdates,
			Match: func(a domain.GeoAggregate) bool {
				return a.DemographicTotal > 1000 && a.DemoToEnrol > 10
			},
		},
		{
			Type: domain.FraudBioMismatch,
			Match: func(a domain.GeoAggregate) bool {
				return a.BiometricTotal > 1000 && math.Abs(a.BioToDemo-1.0) > 0.5
			},
		},
		{
			Type: domain.FraudDisconnect,
			Match: func(a domain.GeoAggregate) bool {
				return a.Combined() > 5000 &&
					(a.DemoToEnrol < 0.2 || a.DemoToEnrol > 5) &&
					(a.BioToDemo < 0.5 || a.BioToDemo > 2)
			},
		},
	}
}

// Thresholds of the finer grained district checks
const (
	GhostDistrictMinEnrollments = 100
	GhostDistrictMaxDemoRatio   = 0.1
)

// Comparator joins per-source aggregates and applies the fraud rules
type Comparator struct {
	rules []FraudRule
}

// NewComparator creates a comparator with DefaultRules
func NewComparator() *Comparator {
	return &Comparator{rules: DefaultRules()}
}

// Compare joins the three tables on the union of their keys, treating
// missing values as zero, and evaluates every rule on each unit. All
// matching patterns are kept in rule order; Primary is the first.
func (c *Comparator) Compare(enrol, demo, bio []domain.GeoAggregate) []domain.IntegrityRow {
	joined := aggregate.Merge(enrol, demo, bio)

	rows := make([]domain.IntegrityRow, len(joined))
	for i, a := range joined {
		row := domain.IntegrityRow{GeoAggregate: a}
		for _, rule := range c.rules {
			if rule.Match(a) {
				row.FraudTypes = append(row.FraudTypes, rule.Type)
			}
		}
		if len(row.FraudTypes) > 0 {
			row.Primary = row.FraudTypes[0]
		}
		row.Dead = IsDead(a)
		rows[i] = row
	}
	return rows
}

// Analyze runs the state level comparison and the district level ghost and
// dead checks over cleaned, enriched records
func (c *Comparator) Analyze(enrol []domain.EnrollmentRecord, demo, bio []domain.UpdateRecord) domain.IntegrityReport {
	stateRows := c.Compare(
		aggregate.Enrollments(enrol, aggregate.ByState),
		aggregate.Updates(demo, aggregate.ByState),
		aggregate.Updates(bio, aggregate.ByState),
	)
	districtRows := c.Compare(
		aggregate.Enrollments(enrol, aggregate.ByDistrict),
		aggregate.Updates(demo, aggregate.ByDistrict),
		aggregate.Updates(bio, aggregate.ByDistrict),
	)

	report := domain.IntegrityReport{
		Rows:           stateRows,
		GhostDistricts: GhostDistricts(districtRows),
		Stats:          Stats(stateRows),
	}
	for _, row := range districtRows {
		if row.Dead {
			report.Dead = append(report.Dead, row.Key)
		}
	}
	return report
}

// IsDead reports whether a unit has no activity in any source
func IsDead(a domain.GeoAggregate) bool {
	return a.EnrollmentTotal == 0 && a.DemographicTotal == 0 && a.BiometricTotal == 0
}

// IsGhostDistrict reports whether a district enrolls heavily but is almost never updated
func IsGhostDistrict(a domain.GeoAggregate) bool {
	return a.EnrollmentTotal > GhostDistrictMinEnrollments && a.DemoToEnrol < GhostDistrictMaxDemoRatio
}

// GhostDistricts returns the ghost units of a district level table, largest
// enrollment first
func GhostDistricts(rows []domain.IntegrityRow) []domain.IntegrityRow {
	var out []domain.IntegrityRow
	for _, row := range rows {
		if IsGhostDistrict(row.GeoAggregate) {
			out = append(out, row)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EnrollmentTotal > out[j].EnrollmentTotal
	})
	return out
}

// Stats summarizes the demographic-to-enrollment ratio across units
func Stats(rows []domain.IntegrityRow) domain.RatioStats {
	ratios := make([]float64, len(rows))
	s := domain.RatioStats{Units: len(rows)}
	for i, row := range rows {
		ratios[i] = row.DemoToEnrol
		if row.DemoToEnrol < 0.2 {
			s.BelowPoint2++
		}
		if row.DemoToEnrol > 5 {
			s.AboveFive++
		}
	}
	s.MeanDemo = stats.Mean(ratios)
	s.MedianDemo = stats.Median(ratios)
	return s
}

// PrimaryCounts counts flagged units per primary pattern, most frequent first
func PrimaryCounts(rows []domain.IntegrityRow) []domain.FraudTypeCount {
	counts := make(map[domain.FraudType]int)
	for _, row := range rows {
		if row.Primary != "" {
			counts[row.Primary]++
		}
	}
	out := make([]domain.FraudTypeCount, 0, len(counts))
	for ft, n := range counts {
		out = append(out, domain.FraudTypeCount{Type: ft, Units: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Units != out[j].Units {
			return out[i].Units > out[j].Units
		}
		return out[i].Type < out[j].Type
	})
	return out
}
