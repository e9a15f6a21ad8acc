// Package exporter writes analysis results to disk.
//
// CSVWriter resolves file names against an output directory and writes
// UTF-8 CSV with an optional BOM so spreadsheets open the files correctly.
// WriteAnomalies and WriteIntegrity export the flagged enrollment records and
// the flagged integrity rows; WriteWorkbook puts the same tables plus the
// per-state totals into one XLSX file.
//
// Example usage:
//
//	w := exporter.NewCSVWriter("output", logger)
//	n, err := w.WriteAnomalies("enrollment_anomalies.csv", state.Scored)
//	err = w.WriteWorkbook("aadhaar_report.xlsx", exporter.Report{
//		Scored:    state.Scored,
//		Integrity: state.Integrity.Rows,
//		States:    state.States,
//	})
package exporter
