package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"aadhaarcli/internal/files"
	"aadhaarcli/pkg/contracts/domain"
)

// ReadFile reads one CSV or Excel table of the given kind
func ReadFile(path string, kind domain.RecordKind) (*domain.RawTable, error) {
	format, ok := files.DetectFormat(path)
	if !ok {
		return nil, fmt.Errorf("unsupported table format: %s", filepath.Base(path))
	}
	switch format {
	case files.FormatXLSX:
		return ReadXLSX(path, kind)
	default:
		return ReadCSV(path, kind)
	}
}

// ReadCSV reads a comma separated table whose first row is the header
func ReadCSV(path string, kind domain.RecordKind) (*domain.RawTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open CSV file: %w", err)
	}
	defer file.Close()

	table, err := DecodeCSV(file, kind, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	table.Sources = []string{path}
	return table, nil
}

// DecodeCSV decodes a CSV stream. name is only used in error messages.
func DecodeCSV(r io.Reader, kind domain.RecordKind, name string) (*domain.RawTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV records from %s: %w", name, err)
	}
	return buildTable(records, kind, name)
}

// ReadXLSX reads the first worksheet of an Excel workbook
func ReadXLSX(path string, kind domain.RecordKind) (*domain.RawTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", filepath.Base(path))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}

	table, err := buildTable(rows, kind, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	table.Sources = []string{path}
	return table, nil
}

// buildTable maps the header row onto canonical columns and converts every
// following non-blank row into a RawRow
func buildTable(records [][]string, kind domain.RecordKind, name string) (*domain.RawTable, error) {
	schema, err := SchemaFor(kind)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &SchemaError{Kind: kind, File: name, Missing: schema.Required}
	}

	header := records[0]
	columns := make([]string, 0, len(header))
	index := make([]int, 0, len(header))
	seen := make(map[string]bool, len(header))
	for i, cell := range header {
		col, _ := schema.Canonical(cell)
		if col == "" || seen[col] {
			continue
		}
		seen[col] = true
		columns = append(columns, col)
		index = append(index, i)
	}

	if missing := schema.Missing(columns); len(missing) > 0 {
		return nil, &SchemaError{Kind: kind, File: name, Missing: missing}
	}

	table := &domain.RawTable{
		Kind:    kind,
		Columns: columns,
		Rows:    make([]domain.RawRow, 0, len(records)-1),
	}

	for _, record := range records[1:] {
		if isBlank(record) {
			continue
		}
		row := make(domain.RawRow, len(columns))
		for j, col := range columns {
			if idx := index[j]; idx < len(record) {
				row[col] = record[idx]
			} else {
				row[col] = ""
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func isBlank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// Concat appends the rows of every table into one. Columns are the union in
// first-seen order; rows missing a column read as empty.
func Concat(kind domain.RecordKind, tables ...*domain.RawTable) *domain.RawTable {
	out := &domain.RawTable{Kind: kind}
	seen := make(map[string]bool)
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if !seen[c] {
				seen[c] = true
				out.Columns = append(out.Columns, c)
			}
		}
		out.Rows = append(out.Rows, t.Rows...)
		out.Sources = append(out.Sources, t.Sources...)
	}
	return out
}
