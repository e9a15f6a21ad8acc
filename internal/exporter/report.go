package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"aadhaarcli/internal/anomaly"
	"aadhaarcli/pkg/contracts/domain"
)

// AnomalyHeaders are the columns of the anomaly export
var AnomalyHeaders = []string{
	"date", "state", "district", "pincode", "total",
	"age_0_5", "age_5_17", "age_18_plus", "anomaly_type",
}

// IntegrityHeaders are the columns of the integrity export
var IntegrityHeaders = []string{
	"key", "state", "district", "month",
	"enrollment_total", "demographic_total", "biometric_total",
	"demo_to_enrol", "bio_to_enrol", "bio_to_demo",
	"fraud_types", "primary", "dead",
}

// StateHeaders are the columns of the per-state totals sheet
var StateHeaders = []string{
	"state", "records", "enrollment_total", "demographic_total", "biometric_total",
	"age_0_5", "age_5_17", "age_18_plus", "demo_to_enrol", "bio_to_enrol", "bio_to_demo",
}

// GhostDistrictHeaders are the columns of the ghost district sheet
var GhostDistrictHeaders = []string{
	"state", "district", "enrollment_total", "demographic_total", "biometric_total", "demo_to_enrol",
}

// DeadDistrictHeaders are the columns of the dead district sheet
var DeadDistrictHeaders = []string{"state", "district"}

// RatioStatsHeaders are the columns of the ratio statistics sheet
var RatioStatsHeaders = []string{
	"units", "mean_demo_to_enrol", "median_demo_to_enrol", "below_0_2", "above_5",
}

// AnomalyRecords renders the flagged records, most anomalous first
func AnomalyRecords(scored []domain.ScoredRecord) [][]string {
	outliers := anomaly.Outliers(scored)
	records := make([][]string, 0, len(outliers))
	for _, r := range outliers {
		records = append(records, anomalyRecord(r))
	}
	return records
}

func anomalyRecord(r domain.ScoredRecord) []string {
	return []string{
		formatDate(r.Date),
		r.State,
		r.District,
		r.Pincode,
		formatInt(r.Total),
		formatInt(r.Age0To5),
		formatInt(r.Age5To17),
		formatInt(r.Age18Plus),
		r.Label.Category(),
	}
}

// IntegrityRecords renders the rows that matched at least one pattern
func IntegrityRecords(rows []domain.IntegrityRow) [][]string {
	var records [][]string
	for _, row := range rows {
		if !row.Flagged() {
			continue
		}
		records = append(records, []string{
			row.Key.String(),
			row.Key.State,
			row.Key.District,
			row.Key.Month,
			formatInt(row.EnrollmentTotal),
			formatInt(row.DemographicTotal),
			formatInt(row.BiometricTotal),
			formatFloat(row.DemoToEnrol),
			formatFloat(row.BioToEnrol),
			formatFloat(row.BioToDemo),
			joinFraudTypes(row.FraudTypes),
			string(row.Primary),
			formatBool(row.Dead),
		})
	}
	return records
}

// GhostDistrictRecords renders ghost districts in the order given
func GhostDistrictRecords(rows []domain.IntegrityRow) [][]string {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{
			row.Key.State,
			row.Key.District,
			formatInt(row.EnrollmentTotal),
			formatInt(row.DemographicTotal),
			formatInt(row.BiometricTotal),
			formatFloat(row.DemoToEnrol),
		})
	}
	return records
}

// DeadDistrictRecords renders the districts without activity in any source
func DeadDistrictRecords(keys []domain.GeoKey) [][]string {
	records := make([][]string, 0, len(keys))
	for _, k := range keys {
		records = append(records, []string{k.State, k.District})
	}
	return records
}

// RatioStatsRecords renders the ratio statistics as a single row
func RatioStatsRecords(s domain.RatioStats) [][]string {
	return [][]string{{
		formatInt(int64(s.Units)),
		formatFloat(s.MeanDemo),
		formatFloat(s.MedianDemo),
		formatInt(int64(s.BelowPoint2)),
		formatInt(int64(s.AboveFive)),
	}}
}

// StateRecords renders per-state aggregates
func StateRecords(states []domain.GeoAggregate) [][]string {
	records := make([][]string, 0, len(states))
	for _, s := range states {
		records = append(records, []string{
			s.Key.State,
			formatInt(int64(s.Records)),
			formatInt(s.EnrollmentTotal),
			formatInt(s.DemographicTotal),
			formatInt(s.BiometricTotal),
			formatInt(s.Age0To5),
			formatInt(s.Age5To17),
			formatInt(s.Age18Plus),
			formatFloat(s.DemoToEnrol),
			formatFloat(s.BioToEnrol),
			formatFloat(s.BioToDemo),
		})
	}
	return records
}

// WriteAnomalies streams the flagged enrollment records, most anomalous
// first, and returns how many were written
func (w *CSVWriter) WriteAnomalies(filePath string, scored []domain.ScoredRecord) (int, error) {
	sw, err := w.CreateStreamWriter(filePath, AnomalyHeaders)
	if err != nil {
		return 0, fmt.Errorf("write anomalies: %w", err)
	}
	for _, r := range anomaly.Outliers(scored) {
		if err := sw.WriteRecord(anomalyRecord(r)); err != nil {
			sw.Close()
			return sw.Rows(), fmt.Errorf("write anomalies: %w", err)
		}
	}
	if err := sw.Close(); err != nil {
		return sw.Rows(), fmt.Errorf("write anomalies: %w", err)
	}
	return sw.Rows(), nil
}

// WriteIntegrity writes the flagged integrity rows and returns how many were written
func (w *CSVWriter) WriteIntegrity(filePath string, rows []domain.IntegrityRow) (int, error) {
	records := IntegrityRecords(rows)
	if err := w.WriteSimpleCSV(filePath, IntegrityHeaders, records); err != nil {
		return 0, fmt.Errorf("write integrity flags: %w", err)
	}
	return len(records), nil
}

// WriteJSON writes v as indented JSON
func (w *CSVWriter) WriteJSON(filePath string, v any) error {
	fullPath := w.resolvePath(filePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(fullPath), err)
	}
	if err := os.WriteFile(fullPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(fullPath), err)
	}
	return nil
}
