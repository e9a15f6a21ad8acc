package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"aadhaarcli/internal/files"
	"aadhaarcli/pkg/contracts/domain"
)

const enrolCSV = `date,state,district,pincode,age_0_5,age_5_17,age_18_greater
02-03-2025,Bihar,Patna,800001,10,5,2
02-03-2025,West Bangal,Kolkata,700001,1,2,3
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// TestDecodeCSV tests header aliasing and row extraction
func TestDecodeCSV(t *testing.T) {
	tests := []struct {
		name    string
		kind    domain.RecordKind
		input   string
		columns []string
		rows    int
		check   func(t *testing.T, table *domain.RawTable)
	}{
		{
			name:    "enrollment with age_18_greater alias",
			kind:    domain.KindEnrollment,
			input:   enrolCSV,
			columns: []string{ColDate, ColState, ColDistrict, ColPincode, ColAge0To5, ColAge5To17, ColAge18Plus},
			rows:    2,
			check: func(t *testing.T, table *domain.RawTable) {
				assert.Equal(t, "2", table.Rows[0][ColAge18Plus])
				assert.Equal(t, "West Bangal", table.Rows[1][ColState])
			},
		},
		{
			name:    "demographic prefixed columns",
			kind:    domain.KindDemographic,
			input:   "date,state,district,pincode,demo_age_5_17,demo_age_17_\n01-04-2025,Goa,North Goa,403001,4,9\n",
			columns: []string{ColDate, ColState, ColDistrict, ColPincode, ColAge5To17, ColAge17Plus},
			rows:    1,
			check: func(t *testing.T, table *domain.RawTable) {
				assert.Equal(t, "9", table.Rows[0][ColAge17Plus])
			},
		},
		{
			name:    "biometric headers with case and spacing noise",
			kind:    domain.KindBiometric,
			input:   " Date , STATE,District,Bio_Age_5_17,bio_age_17_\n01-04-2025,Goa,North Goa,1,2\n",
			columns: []string{ColDate, ColState, ColDistrict, ColAge5To17, ColAge17Plus},
			rows:    1,
		},
		{
			name:    "blank lines and short rows",
			kind:    domain.KindBiometric,
			input:   "date,state,district,age_5_17,age_17_plus\n\n,,,,\n01-04-2025,Goa\n",
			columns: []string{ColDate, ColState, ColDistrict, ColAge5To17, ColAge17Plus},
			rows:    1,
			check: func(t *testing.T, table *domain.RawTable) {
				assert.Equal(t, "", table.Rows[0][ColDistrict])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := DecodeCSV(strings.NewReader(tt.input), tt.kind, "test.csv")
			require.NoError(t, err)
			assert.Equal(t, tt.kind, table.Kind)
			assert.Equal(t, tt.columns, table.Columns)
			assert.Equal(t, tt.rows, table.Len())
			if tt.check != nil {
				tt.check(t, table)
			}
		})
	}
}

// TestDecodeCSVSchemaErrors tests that missing columns are fatal
func TestDecodeCSVSchemaErrors(t *testing.T) {
	tests := []struct {
		name    string
		kind    domain.RecordKind
		input   string
		missing []string
	}{
		{
			name:    "missing district",
			kind:    domain.KindEnrollment,
			input:   "date,state,age_0_5,age_5_17,age_18_greater\n",
			missing: []string{ColDistrict},
		},
		{
			name:    "update table missing both age bands",
			kind:    domain.KindDemographic,
			input:   "date,state,district\n",
			missing: []string{ColAge5To17, ColAge17Plus},
		},
		{
			name:    "empty file",
			kind:    domain.KindBiometric,
			input:   "",
			missing: []string{ColDate, ColState, ColDistrict, ColAge5To17, ColAge17Plus},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeCSV(strings.NewReader(tt.input), tt.kind, "bad.csv")
			require.Error(t, err)

			var schemaErr *SchemaError
			require.True(t, errors.As(err, &schemaErr))
			assert.Equal(t, tt.missing, schemaErr.Missing)
			assert.Contains(t, err.Error(), "bad.csv")
		})
	}
}

func TestReadXLSX(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "enrol.xlsx")

	f := excelize.NewFile()
	rows := [][]interface{}{
		{"date", "state", "district", "pincode", "age_0_5", "age_5_17", "age_18_greater"},
		{"02-03-2025", "Bihar", "Patna", "800001", 10, 5, 2},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := ReadFile(path, domain.KindEnrollment)
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())
	assert.Equal(t, "10", table.Rows[0][ColAge0To5])
	assert.Equal(t, []string{path}, table.Sources)
}

func TestConcat(t *testing.T) {
	a := &domain.RawTable{Columns: []string{"date", "state"}, Rows: []domain.RawRow{{"date": "1"}}, Sources: []string{"a"}}
	b := &domain.RawTable{Columns: []string{"date", "pincode"}, Rows: []domain.RawRow{{"date": "2"}, {"date": "3"}}, Sources: []string{"b"}}

	out := Concat(domain.KindEnrollment, a, nil, b)
	assert.Equal(t, []string{"date", "state", "pincode"}, out.Columns)
	assert.Equal(t, 3, out.Len())
	assert.Equal(t, []string{"a", "b"}, out.Sources)
}

// TestLoaderLoad tests concurrent loading of all three datasets
func TestLoaderLoad(t *testing.T) {
	base := t.TempDir()
	for _, dir := range []string{"enrol", "demo", "bio"} {
		require.NoError(t, os.MkdirAll(filepath.Join(base, dir), 0755))
	}
	writeFile(t, filepath.Join(base, "enrol"), "part1.csv", enrolCSV)
	writeFile(t, filepath.Join(base, "enrol"), "part2.csv", enrolCSV)
	writeFile(t, filepath.Join(base, "demo"), "demo.csv", "date,state,district,demo_age_5_17,demo_age_17_\n01-04-2025,Goa,North Goa,4,9\n")
	writeFile(t, filepath.Join(base, "bio"), "bio.csv", "date,state,district,bio_age_5_17,bio_age_17_\n01-04-2025,Goa,North Goa,1,2\n")

	loader := NewLoader(files.NewDiscovery(base), nil)

	var calls int
	loader.OnFile(func(kind domain.RecordKind, file files.FileInfo, rows int) {
		calls++
		assert.Greater(t, rows, 0)
	})

	tables, err := loader.Load(context.Background(), map[domain.RecordKind]string{
		domain.KindEnrollment:  "enrol",
		domain.KindDemographic: "demo",
		domain.KindBiometric:   "bio",
	})
	require.NoError(t, err)

	assert.Equal(t, 4, calls)
	assert.Equal(t, 4, tables[domain.KindEnrollment].Len())
	assert.Len(t, tables[domain.KindEnrollment].Sources, 2)
	assert.Equal(t, 1, tables[domain.KindDemographic].Len())
	assert.Equal(t, 1, tables[domain.KindBiometric].Len())
}

func TestLoaderErrors(t *testing.T) {
	t.Run("empty directory", func(t *testing.T) {
		dir := t.TempDir()
		_, err := NewLoader(nil, nil).LoadKind(context.Background(), domain.KindEnrollment, dir)
		assert.ErrorIs(t, err, ErrNoInputFiles)
	})

	t.Run("schema error propagates", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "bad.csv", "date,state\n01-01-2025,Goa\n")

		_, err := NewLoader(nil, nil).Load(context.Background(), map[domain.RecordKind]string{
			domain.KindBiometric: dir,
		})
		var schemaErr *SchemaError
		assert.True(t, errors.As(err, &schemaErr))
	})

	t.Run("cancelled context", func(t *testing.T) {
		dir := t.TempDir()
		writeFile(t, dir, "ok.csv", enrolCSV)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := NewLoader(nil, nil).LoadKind(ctx, domain.KindEnrollment, dir)
		assert.ErrorIs(t, err, context.Canceled)
	})
}
