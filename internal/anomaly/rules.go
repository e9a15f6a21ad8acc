package anomaly

import (
	"aadhaarcli/internal/stats"
	"aadhaarcli/pkg/contracts/domain"
)

// Population carries statistics of the full input that rules compare against
type Population struct {
	// TotalP999 is the 99.9th percentile of record totals
	TotalP999 float64
}

// NewPopulation computes population statistics over enriched records
func NewPopulation(records []domain.EnrollmentRecord) Population {
	totals := make([]float64, len(records))
	for i, r := range records {
		totals[i] = float64(r.Total)
	}
	return Population{TotalP999: stats.Quantile(totals, 0.999)}
}

// Rule is a named predicate over an unstandardized record
type Rule struct {
	Tag   string
	Match func(r domain.EnrollmentRecord, pop Population) bool
}

// RuleSet is evaluated in order; every matching rule contributes its tag
type RuleSet []Rule

// DefaultRules returns the categorization rules for flagged enrollment records
func DefaultRules() RuleSet {
	return RuleSet{
		{
			Tag: domain.TagExtremeVolume,
			Match: func(r domain.EnrollmentRecord, pop Population) bool {
				return float64(r.Total) > pop.TotalP999
			},
		},
		{
			Tag: domain.TagAdultSpike,
			Match: func(r domain.EnrollmentRecord, _ Population) bool {
				return r.Age18Plus > r.Age0To5
			},
		},
		{
			Tag: domain.TagMissingYouthData,
			Match: func(r domain.EnrollmentRecord, _ Population) bool {
				return r.Age5To17 == 0 && r.Total > 100
			},
		},
		{
			Tag: domain.TagExtremeChildBias,
			Match: func(r domain.EnrollmentRecord, _ Population) bool {
				return r.ChildPct > 95
			},
		},
		{
			Tag: domain.TagZeroEnrollment,
			Match: func(r domain.EnrollmentRecord, _ Population) bool {
				return r.Total == 0
			},
		},
		{
			Tag: domain.TagYouthOverrepresent,
			Match: func(r domain.EnrollmentRecord, _ Population) bool {
				return r.YouthPct > 50
			},
		},
	}
}

// Evaluate returns the tags of every rule matching r, in rule order
func (rs RuleSet) Evaluate(r domain.EnrollmentRecord, pop Population) []string {
	var tags []string
	for _, rule := range rs {
		if rule.Match(r, pop) {
			tags = append(tags, rule.Tag)
		}
	}
	return tags
}
