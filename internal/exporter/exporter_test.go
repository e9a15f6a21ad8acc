package exporter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"aadhaarcli/internal/shared/testutil"
	"aadhaarcli/pkg/contracts/domain"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

func newTestWriter(t *testing.T) (*CSVWriter, string) {
	t.Helper()
	logger, _ := testutil.NewTestLogger(t)
	dir := t.TempDir()
	return NewCSVWriter(dir, logger), dir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, bom))).ReadAll()
	require.NoError(t, err)
	return records
}

func scoredRecord(state, district string, total int64, outlier bool, score float64, tags ...string) domain.ScoredRecord {
	r := testutil.Enrollment(state, district, total/2, total/4, total-total/2-total/4)
	r.Total = total
	r.Date = testutil.Day(2025, time.April, 2)
	return domain.ScoredRecord{
		EnrollmentRecord: r,
		Label:            domain.AnomalyLabel{Outlier: outlier, Score: score, Tags: tags},
	}
}

// TestCSVWriter_WriteCSV tests header, BOM and overwrite handling
func TestCSVWriter_WriteCSV(t *testing.T) {
	tests := []struct {
		name     string
		options  []WriteOptions
		wantBOM  bool
		expected [][]string
	}{
		{
			name:     "headers and records",
			options:  []WriteOptions{{Headers: []string{"a", "b"}, Records: [][]string{{"1", "2"}}}},
			expected: [][]string{{"a", "b"}, {"1", "2"}},
		},
		{
			name:     "bom prefix",
			options:  []WriteOptions{{Headers: []string{"a"}, Records: [][]string{{"x"}}, BOMPrefix: true}},
			wantBOM:  true,
			expected: [][]string{{"a"}, {"x"}},
		},
		{
			name: "overwrite truncates",
			options: []WriteOptions{
				{Headers: []string{"a"}, Records: [][]string{{"1"}, {"2"}}},
				{Headers: []string{"b"}, Records: [][]string{{"3"}}},
			},
			expected: [][]string{{"b"}, {"3"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, dir := newTestWriter(t)
			for _, opts := range tt.options {
				require.NoError(t, w.WriteCSV("nested/out.csv", opts))
			}

			path := filepath.Join(dir, "nested", "out.csv")
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBOM, bytes.HasPrefix(data, bom))
			assert.Equal(t, tt.expected, readCSV(t, path))
		})
	}
}

// TestStreamWriter tests streaming writes
func TestStreamWriter(t *testing.T) {
	w, dir := newTestWriter(t)

	sw, err := w.CreateStreamWriter("stream.csv", []string{"n"})
	require.NoError(t, err)
	for _, v := range []string{"1", "2", "3"} {
		require.NoError(t, sw.WriteRecord([]string{v}))
	}
	assert.Equal(t, 3, sw.Rows())
	require.NoError(t, sw.Close())

	assert.Equal(t, [][]string{{"n"}, {"1"}, {"2"}, {"3"}}, readCSV(t, filepath.Join(dir, "stream.csv")))
}

// TestResolvePath tests absolute and relative names
func TestResolvePath(t *testing.T) {
	w := NewCSVWriter("/srv/out", nil)
	assert.Equal(t, "/srv/out/a.csv", w.Path("a.csv"))
	assert.Equal(t, "/tmp/b.csv", w.Path("/tmp/b.csv"))
	assert.Equal(t, "c.csv", NewCSVWriter("", nil).Path("c.csv"))
}

// TestWriteAnomalies tests that only flagged records are exported, highest score first
func TestWriteAnomalies(t *testing.T) {
	w, dir := newTestWriter(t)

	scored := []domain.ScoredRecord{
		scoredRecord("Bihar", "Patna", 400, true, 0.61, domain.TagAdultSpike),
		scoredRecord("Goa", "North Goa", 8, false, 0.40),
		scoredRecord("West Bengal", "Kolkata", 1200, true, 0.72, domain.TagExtremeVolume, domain.TagAdultSpike),
		scoredRecord("Kerala", "Ernakulam", 100, true, 0.55),
	}

	n, err := w.WriteAnomalies("anomalies.csv", scored)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	records := readCSV(t, filepath.Join(dir, "anomalies.csv"))
	require.Len(t, records, 4)
	assert.Equal(t, AnomalyHeaders, records[0])
	assert.Equal(t, []string{"2025-04-02", "West Bengal", "Kolkata", "110001", "1200", "600", "300", "300", "Extreme Volume, Adult Spike"}, records[1])
	assert.Equal(t, "Bihar", records[2][1])
	assert.Equal(t, domain.CategoryOther, records[3][8])

	data, err := os.ReadFile(filepath.Join(dir, "anomalies.csv"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, bom))

	n, err = w.WriteAnomalies("anomalies.csv", scored[1:2])
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, [][]string{AnomalyHeaders}, readCSV(t, filepath.Join(dir, "anomalies.csv")))
}

// TestWriteIntegrity tests flagged row export
func TestWriteIntegrity(t *testing.T) {
	w, dir := newTestWriter(t)

	bihar := domain.GeoAggregate{
		Key:              domain.GeoKey{State: "Bihar"},
		EnrollmentTotal:  2000,
		DemographicTotal: 400,
		BiometricTotal:   1900,
	}.WithRatios()
	rows := []domain.IntegrityRow{
		{
			GeoAggregate: bihar,
			FraudTypes:   []domain.FraudType{domain.FraudGhostEnrollments, domain.FraudBioMismatch},
			Primary:      domain.FraudGhostEnrollments,
		},
		{GeoAggregate: domain.GeoAggregate{Key: domain.GeoKey{State: "Kerala"}}, Dead: true},
	}

	n, err := w.WriteIntegrity("integrity.csv", rows)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	records := readCSV(t, filepath.Join(dir, "integrity.csv"))
	require.Len(t, records, 2)
	assert.Equal(t, IntegrityHeaders, records[0])
	assert.Equal(t, []string{
		"Bihar||", "Bihar", "", "",
		"2000", "400", "1900",
		"0.20", "0.95", "4.75",
		"Ghost Enrollments (Low Updates); Biometric-Demographic Mismatch",
		"Ghost Enrollments (Low Updates)", "false",
	}, records[1])
}

// TestWriteWorkbook tests the three sheets of the XLSX report
func TestWriteWorkbook(t *testing.T) {
	w, dir := newTestWriter(t)

	report := Report{
		Scored: []domain.ScoredRecord{
			scoredRecord("Bihar", "Patna", 400, true, 0.61, domain.TagAdultSpike),
			scoredRecord("Goa", "North Goa", 8, false, 0.40),
		},
		Integrity: []domain.IntegrityRow{{
			GeoAggregate: domain.GeoAggregate{Key: domain.GeoKey{State: "Bihar"}, EnrollmentTotal: 2000},
			FraudTypes:   []domain.FraudType{domain.FraudGhostEnrollments},
			Primary:      domain.FraudGhostEnrollments,
		}},
		GhostDistricts: []domain.IntegrityRow{{
			GeoAggregate: domain.GeoAggregate{
				Key:              domain.GeoKey{State: "Bihar", District: "Gaya"},
				EnrollmentTotal:  500,
				DemographicTotal: 10,
			}.WithRatios(),
		}},
		DeadDistricts: []domain.GeoKey{
			{State: "Goa", District: "South Goa"},
			{State: "Kerala", District: "Idukki"},
		},
		RatioStats: domain.RatioStats{Units: 4, MeanDemo: 1.25, MedianDemo: 0.8, BelowPoint2: 1, AboveFive: 0},
		States: []domain.GeoAggregate{
			{Key: domain.GeoKey{State: "Bihar"}, Records: 3, EnrollmentTotal: 2000},
			{Key: domain.GeoKey{State: "Goa"}, Records: 2, EnrollmentTotal: 20},
		},
	}

	require.NoError(t, w.WriteWorkbook("report.xlsx", report))

	f, err := excelize.OpenFile(filepath.Join(dir, "report.xlsx"))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{
		SheetAnomalies, SheetIntegrity, SheetGhostDistricts, SheetDeadDistricts, SheetRatioStats, SheetStates,
	}, f.GetSheetList())

	tests := []struct {
		sheet   string
		rows    int
		headers []string
	}{
		{SheetAnomalies, 2, AnomalyHeaders},
		{SheetIntegrity, 2, IntegrityHeaders},
		{SheetGhostDistricts, 2, GhostDistrictHeaders},
		{SheetDeadDistricts, 3, DeadDistrictHeaders},
		{SheetRatioStats, 2, RatioStatsHeaders},
		{SheetStates, 3, StateHeaders},
	}
	for _, tt := range tests {
		t.Run(tt.sheet, func(t *testing.T) {
			rows, err := f.GetRows(tt.sheet)
			require.NoError(t, err)
			require.Len(t, rows, tt.rows)
			assert.Equal(t, tt.headers, rows[0])
		})
	}

	rows, err := f.GetRows(SheetStates)
	require.NoError(t, err)
	assert.Equal(t, "Goa", rows[2][0])
	assert.Equal(t, "20", rows[2][2])

	rows, err = f.GetRows(SheetGhostDistricts)
	require.NoError(t, err)
	assert.Equal(t, []string{"Bihar", "Gaya", "500", "10", "0", "0.02"}, rows[1])

	rows, err = f.GetRows(SheetRatioStats)
	require.NoError(t, err)
	assert.Equal(t, []string{"4", "1.25", "0.80", "1", "0"}, rows[1])
}

// TestWriteJSON tests JSON export
func TestWriteJSON(t *testing.T) {
	w, dir := newTestWriter(t)

	in := domain.Summary{Categories: []domain.CategoryCount{{Category: "Other", Count: 2}}}
	require.NoError(t, w.WriteJSON("summary.json", in))

	data, err := os.ReadFile(filepath.Join(dir, "summary.json"))
	require.NoError(t, err)

	var out domain.Summary
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.Categories, out.Categories)
}
