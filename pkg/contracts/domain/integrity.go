package domain

// FraudType names a cross-dataset integrity pattern
type FraudType string

const (
	FraudGhostEnrollments FraudType = "Ghost Enrollments (Low Updates)"
	FraudPhantomUpdates   FraudType = "Phantom Updates (No New Enrollments)"
	FraudBioMismatch      FraudType = "Biometric-Demographic Mismatch"
	FraudDisconnect       FraudType = "Complete System Disconnect"
)

// IntegrityRow is one joined geographic unit with its matched patterns
type IntegrityRow struct {
	GeoAggregate
	FraudTypes []FraudType `json:"fraud_types,omitempty"`
	Primary    FraudType   `json:"primary,omitempty"`
	Dead       bool        `json:"dead"`
}

// Flagged reports whether any pattern matched
func (r IntegrityRow) Flagged() bool {
	return len(r.FraudTypes) > 0
}

// Has reports whether the row matched the given pattern
func (r IntegrityRow) Has(ft FraudType) bool {
	for _, f := range r.FraudTypes {
		if f == ft {
			return true
		}
	}
	return false
}

// RatioStats summarizes the demographic-to-enrollment ratio across units
type RatioStats struct {
	Units       int     `json:"units"`
	MeanDemo    float64 `json:"mean_demo_to_enrol"`
	MedianDemo  float64 `json:"median_demo_to_enrol"`
	BelowPoint2 int     `json:"below_0_2"`
	AboveFive   int     `json:"above_5"`
}

// FraudTypeCount counts units whose primary pattern is a given fraud type
type FraudTypeCount struct {
	Type  FraudType `json:"type"`
	Units int       `json:"units"`
}

// IntegrityReport is the full output of the integrity comparator
type IntegrityReport struct {
	Rows           []IntegrityRow `json:"rows"`
	GhostDistricts []IntegrityRow `json:"ghost_districts"`
	Dead           []GeoKey       `json:"dead"`
	Stats          RatioStats     `json:"stats"`
}

// Flagged returns only the rows that matched at least one pattern
func (r IntegrityReport) Flagged() []IntegrityRow {
	var out []IntegrityRow
	for _, row := range r.Rows {
		if row.Flagged() {
			out = append(out, row)
		}
	}
	return out
}
