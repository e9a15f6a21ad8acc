package testutil

import (
	"time"

	"aadhaarcli/pkg/contracts/domain"
)

// Day returns midnight UTC of the given date
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Enrollment builds an enrollment record dated 1 March 2025
func Enrollment(state, district string, age0To5, age5To17, age18Plus int64) domain.EnrollmentRecord {
	return domain.EnrollmentRecord{
		Date:      Day(2025, time.March, 1),
		State:     state,
		District:  district,
		Pincode:   "110001",
		Age0To5:   age0To5,
		Age5To17:  age5To17,
		Age18Plus: age18Plus,
	}
}

// Update builds a demographic or biometric update record dated 1 March 2025
func Update(kind domain.RecordKind, state, district string, age5To17, age17Plus int64) domain.UpdateRecord {
	return domain.UpdateRecord{
		Kind:      kind,
		Date:      Day(2025, time.March, 1),
		State:     state,
		District:  district,
		Pincode:   "110001",
		Age5To17:  age5To17,
		Age17Plus: age17Plus,
	}
}

// OnDate returns r moved to the given date
func OnDate(r domain.EnrollmentRecord, date time.Time) domain.EnrollmentRecord {
	r.Date = date
	return r
}

// RawTable builds a raw table from a header row and data rows
func RawTable(kind domain.RecordKind, header []string, rows ...[]string) *domain.RawTable {
	table := &domain.RawTable{Kind: kind, Columns: header}
	for _, cells := range rows {
		row := make(domain.RawRow, len(header))
		for i, col := range header {
			if i < len(cells) {
				row[col] = cells[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}
