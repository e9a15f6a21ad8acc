package domain

// MonthPoint is one month of the enrollment trend
type MonthPoint struct {
	Month     string  `json:"month"`
	Total     int64   `json:"total"`
	GrowthPct float64 `json:"growth_pct"`
}

// MonthlyTrend is the enrollment volume per month with a fitted linear trend.
// Highest and Lowest are the busiest and quietest months; zero without data.
type MonthlyTrend struct {
	Points  []MonthPoint `json:"points"`
	Slope   float64      `json:"slope"`
	R2      float64      `json:"r2"`
	Highest MonthPoint   `json:"highest"`
	Lowest  MonthPoint   `json:"lowest"`
}

// AgeDistribution holds enrollment totals per age band
type AgeDistribution struct {
	Age0To5   int64   `json:"age_0_5"`
	Age5To17  int64   `json:"age_5_17"`
	Age18Plus int64   `json:"age_18_plus"`
	Total     int64   `json:"total"`
	ChildPct  float64 `json:"child_pct"`
	YouthPct  float64 `json:"youth_pct"`
	AdultPct  float64 `json:"adult_pct"`
}

// AgeShareMonth is the age-band share of enrollments in one month
type AgeShareMonth struct {
	Month    string  `json:"month"`
	ChildPct float64 `json:"child_pct"`
	YouthPct float64 `json:"youth_pct"`
	AdultPct float64 `json:"adult_pct"`
}

// Enrollment mode conclusions
const (
	ModeBirthRegistration = "Birth Registration"
	ModeSchoolCatchUp     = "School Catch-up"
	ModeBalanced          = "Balanced"
)

// Age composition findings
const (
	CompositionStable   = "Stable"
	CompositionChanging = "Changing"
)

// AgeShareTrend tracks age-band shares over time. Slopes are in percentage
// points per month; each R2 is the fit quality of its slope.
type AgeShareTrend struct {
	Months      []AgeShareMonth `json:"months"`
	ChildSlope  float64         `json:"child_slope"`
	YouthSlope  float64         `json:"youth_slope"`
	AdultSlope  float64         `json:"adult_slope"`
	ChildR2     float64         `json:"child_r2"`
	YouthR2     float64         `json:"youth_r2"`
	AdultR2     float64         `json:"adult_r2"`
	Composition string          `json:"composition"`
	Mode        string          `json:"mode"`
}

// DistrictDistribution describes how enrollment volume spreads over districts
type DistrictDistribution struct {
	Districts   int     `json:"districts"`
	Total       int64   `json:"total"`
	Mean        float64 `json:"mean"`
	Median      float64 `json:"median"`
	LowActivity int     `json:"low_activity"`
}

// StateAnomalyRate is the share of a state's records the scorer flagged
type StateAnomalyRate struct {
	State     string  `json:"state"`
	Records   int     `json:"records"`
	Anomalies int     `json:"anomalies"`
	RatePct   float64 `json:"rate_pct"`
}

// DistrictAnomalyCount counts flagged records in one district
type DistrictAnomalyCount struct {
	State     string `json:"state"`
	District  string `json:"district"`
	Records   int    `json:"records"`
	Anomalies int    `json:"anomalies"`
}

// MonthlyAnomalyCount splits one month's records into flagged and normal
type MonthlyAnomalyCount struct {
	Month     string `json:"month"`
	Anomalies int    `json:"anomalies"`
	Normal    int    `json:"normal"`
}

// PincodeCount counts anomalies at one pincode
type PincodeCount struct {
	Pincode   string `json:"pincode"`
	State     string `json:"state"`
	District  string `json:"district"`
	Anomalies int    `json:"anomalies"`
}

// FeatureComparison contrasts the mean of a feature between flagged and normal records
type FeatureComparison struct {
	Feature     string  `json:"feature"`
	AnomalyMean float64 `json:"anomaly_mean"`
	NormalMean  float64 `json:"normal_mean"`
	DiffPct     float64 `json:"diff_pct"`
}

// CategoryCount counts flagged records per category string
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// IntegrityOverview condenses an IntegrityReport for reporting
type IntegrityOverview struct {
	Stats          RatioStats       `json:"stats"`
	Flagged        int              `json:"flagged"`
	Patterns       []FraudTypeCount `json:"patterns"`
	GhostDistricts []IntegrityRow   `json:"ghost_districts"`
	DeadDistricts  []GeoKey         `json:"dead_districts"`
}

// Summary bundles every summary table produced by a run
type Summary struct {
	Trend             MonthlyTrend           `json:"trend"`
	Ages              AgeDistribution        `json:"ages"`
	AgeShares         AgeShareTrend          `json:"age_shares"`
	Districts         DistrictDistribution   `json:"districts"`
	StateActivity     []GeoAggregate         `json:"state_activity"`
	StateRates        []StateAnomalyRate     `json:"state_rates"`
	DistrictAnomalies []DistrictAnomalyCount `json:"district_anomalies"`
	MonthlyAnomalies  []MonthlyAnomalyCount  `json:"monthly_anomalies"`
	TopPincodes       []PincodeCount         `json:"top_pincodes"`
	TopAnomalies      []ScoredRecord         `json:"top_anomalies"`
	FeatureDiffs      []FeatureComparison    `json:"feature_diffs"`
	Categories        []CategoryCount        `json:"categories"`
	Integrity         IntegrityOverview      `json:"integrity"`
	Sweep             []SweepPoint           `json:"sweep"`
	Cleaning          []CleaningStats        `json:"cleaning"`
}
