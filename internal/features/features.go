// Package features derives per-record totals, age-band percentages and the
// monthly bucket key from cleaned records. Every function is pure.
package features

import (
	"math"

	"aadhaarcli/pkg/contracts/domain"
)

// Round2 rounds half away from zero to two decimal places
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Percent returns part as a percentage of total rounded to two decimals, or 0
// when total is zero
func Percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return Round2(float64(part) / float64(total) * 100)
}

// DeriveEnrollment returns r with total, percentages and year_month populated
func DeriveEnrollment(r domain.EnrollmentRecord) domain.EnrollmentRecord {
	r.Total = r.SumAges()
	r.ChildPct = Percent(r.Age0To5, r.Total)
	r.YouthPct = Percent(r.Age5To17, r.Total)
	r.AdultPct = Percent(r.Age18Plus, r.Total)
	r.YearMonth = r.Date.Format(domain.MonthLayout)
	return r
}

// DeriveUpdate returns r with total, youth percentage and year_month populated
func DeriveUpdate(r domain.UpdateRecord) domain.UpdateRecord {
	r.Total = r.SumAges()
	r.YouthPct = Percent(r.Age5To17, r.Total)
	r.YearMonth = r.Date.Format(domain.MonthLayout)
	return r
}

// DeriveEnrollments derives every record into a new slice
func DeriveEnrollments(records []domain.EnrollmentRecord) []domain.EnrollmentRecord {
	out := make([]domain.EnrollmentRecord, len(records))
	for i, r := range records {
		out[i] = DeriveEnrollment(r)
	}
	return out
}

// DeriveUpdates derives every record into a new slice
func DeriveUpdates(records []domain.UpdateRecord) []domain.UpdateRecord {
	out := make([]domain.UpdateRecord, len(records))
	for i, r := range records {
		out[i] = DeriveUpdate(r)
	}
	return out
}

// Vector returns the anomaly model's feature vector for an enriched record:
// age_0_5, age_5_17, age_18_plus, total, child_pct, youth_pct, adult_pct
func Vector(r domain.EnrollmentRecord) []float64 {
	return []float64{
		float64(r.Age0To5),
		float64(r.Age5To17),
		float64(r.Age18Plus),
		float64(r.Total),
		r.ChildPct,
		r.YouthPct,
		r.AdultPct,
	}
}

// VectorNames labels the columns returned by Vector
var VectorNames = []string{"age_0_5", "age_5_17", "age_18_plus", "total", "child_pct", "youth_pct", "adult_pct"}
