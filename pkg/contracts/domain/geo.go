package domain

import (
	"strings"
)

// GeoLevel selects the geographic grain of an aggregation
type GeoLevel string

const (
	LevelState    GeoLevel = "state"
	LevelDistrict GeoLevel = "district"
)

// GeoKey identifies one aggregation bucket. District and Month are empty when
// the grouping does not use them.
type GeoKey struct {
	State    string `json:"state"`
	District string `json:"district,omitempty"`
	Month    string `json:"month,omitempty"`
}

// String renders the key as "state|district|month"
func (k GeoKey) String() string {
	return strings.Join([]string{k.State, k.District, k.Month}, "|")
}

// Less orders keys by state, then district, then month
func (k GeoKey) Less(o GeoKey) bool {
	if k.State != o.State {
		return k.State < o.State
	}
	if k.District != o.District {
		return k.District < o.District
	}
	return k.Month < o.Month
}

// GeoAggregate holds summed counts for one GeoKey across the three sources
type GeoAggregate struct {
	Key GeoKey `json:"key"`

	EnrollmentTotal  int64 `json:"enrollment_total"`
	DemographicTotal int64 `json:"demographic_total"`
	BiometricTotal   int64 `json:"biometric_total"`

	Age0To5   int64 `json:"age_0_5"`
	Age5To17  int64 `json:"age_5_17"`
	Age18Plus int64 `json:"age_18_plus"`
	Records   int   `json:"records"`

	DemoToEnrol float64 `json:"demo_to_enrol"`
	BioToEnrol  float64 `json:"bio_to_enrol"`
	BioToDemo   float64 `json:"bio_to_demo"`
}

// Combined returns the sum of the three source totals
func (a GeoAggregate) Combined() int64 {
	return a.EnrollmentTotal + a.DemographicTotal + a.BiometricTotal
}

// Ratio divides num by den, returning 0 when den is zero
func Ratio(num, den int64) float64 {
	if den == 0 {
		return 0
	}
	return float64(num) / float64(den)
}

// WithRatios returns a copy of a with the three ratios recomputed from its totals
func (a GeoAggregate) WithRatios() GeoAggregate {
	a.DemoToEnrol = Ratio(a.DemographicTotal, a.EnrollmentTotal)
	a.BioToEnrol = Ratio(a.BiometricTotal, a.EnrollmentTotal)
	a.BioToDemo = Ratio(a.BiometricTotal, a.DemographicTotal)
	return a
}
