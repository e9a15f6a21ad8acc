package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"aadhaarcli/pkg/contracts/domain"
)

// Workbook sheet names
const (
	SheetAnomalies      = "Anomalies"
	SheetIntegrity      = "Integrity"
	SheetGhostDistricts = "Ghost Districts"
	SheetDeadDistricts  = "Dead Districts"
	SheetRatioStats     = "Ratio Stats"
	SheetStates         = "States"
)

// Report is everything written to the workbook
type Report struct {
	Scored         []domain.ScoredRecord
	Integrity      []domain.IntegrityRow
	GhostDistricts []domain.IntegrityRow
	DeadDistricts  []domain.GeoKey
	RatioStats     domain.RatioStats
	States         []domain.GeoAggregate
}

// WriteWorkbook writes the anomaly, integrity and state tables as sheets of
// one XLSX file
func (w *CSVWriter) WriteWorkbook(filePath string, report Report) error {
	fullPath := w.resolvePath(filePath)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	sheets := []struct {
		name    string
		headers []string
		records [][]string
	}{
		{SheetAnomalies, AnomalyHeaders, AnomalyRecords(report.Scored)},
		{SheetIntegrity, IntegrityHeaders, IntegrityRecords(report.Integrity)},
		{SheetGhostDistricts, GhostDistrictHeaders, GhostDistrictRecords(report.GhostDistricts)},
		{SheetDeadDistricts, DeadDistrictHeaders, DeadDistrictRecords(report.DeadDistricts)},
		{SheetRatioStats, RatioStatsHeaders, RatioStatsRecords(report.RatioStats)},
		{SheetStates, StateHeaders, StateRecords(report.States)},
	}

	for i, sheet := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), sheet.name); err != nil {
				return fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.name); err != nil {
			return fmt.Errorf("create sheet %s: %w", sheet.name, err)
		}

		if err := writeSheet(f, sheet.name, sheet.headers, sheet.records, headerStyle); err != nil {
			return err
		}
	}

	if err := f.SaveAs(fullPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	w.logger.Info("Wrote workbook",
		slog.String("file_path", fullPath),
		slog.Int("anomalies", len(sheets[0].records)),
		slog.Int("integrity_rows", len(sheets[1].records)),
		slog.Int("ghost_districts", len(report.GhostDistricts)),
		slog.Int("dead_districts", len(report.DeadDistricts)),
		slog.Int("states", len(report.States)))
	return nil
}

func writeSheet(f *excelize.File, sheet string, headers []string, records [][]string, headerStyle int) error {
	if err := setRow(f, sheet, 1, headers); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}

	for i, record := range records {
		if err := setRow(f, sheet, i+2, record); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &cells); err != nil {
		return fmt.Errorf("write %s row %d: %w", sheet, row, err)
	}
	return nil
}
