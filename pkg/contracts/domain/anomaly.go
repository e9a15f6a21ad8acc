package domain

import (
	"strings"
)

// Anomaly category tags, in rule evaluation order
const (
	TagExtremeVolume      = "Extreme Volume"
	TagAdultSpike         = "Adult Spike"
	TagMissingYouthData   = "Missing Youth Data"
	TagExtremeChildBias   = "Extreme Child Bias"
	TagZeroEnrollment     = "Zero Enrollment"
	TagYouthOverrepresent = "Youth Overrepresentation"

	// CategoryOther is reported for flagged records that match no rule
	CategoryOther = "Other"
)

// AnomalyLabel is attached to an EnrollmentRecord by the anomaly scorer
type AnomalyLabel struct {
	Outlier bool     `json:"outlier"`
	Score   float64  `json:"score"`
	Tags    []string `json:"tags,omitempty"`
}

// Category renders the tags as a single display string. Unflagged records
// have no category.
func (l AnomalyLabel) Category() string {
	if !l.Outlier {
		return ""
	}
	if len(l.Tags) == 0 {
		return CategoryOther
	}
	return strings.Join(l.Tags, ", ")
}

// ScoredRecord pairs an enrollment record with its label
type ScoredRecord struct {
	EnrollmentRecord
	Label AnomalyLabel `json:"label"`
}

// SweepPoint reports how many records a contamination level flags
type SweepPoint struct {
	Contamination float64 `json:"contamination"`
	Flagged       int     `json:"flagged"`
	Rate          float64 `json:"rate"`
}
