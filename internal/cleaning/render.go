package cleaning

import (
	"strconv"

	"aadhaarcli/internal/ingest"
	"aadhaarcli/pkg/contracts/domain"
)

// EnrollmentTable renders cleaned enrollment records back into a raw table
func EnrollmentTable(records []domain.EnrollmentRecord) *domain.RawTable {
	table := &domain.RawTable{
		Kind: domain.KindEnrollment,
		Columns: []string{ingest.ColDate, ingest.ColState, ingest.ColDistrict, ingest.ColPincode,
			ingest.ColAge0To5, ingest.ColAge5To17, ingest.ColAge18Plus},
		Rows: make([]domain.RawRow, 0, len(records)),
	}
	for _, r := range records {
		table.Rows = append(table.Rows, domain.RawRow{
			ingest.ColDate:      r.Date.Format("02-01-2006"),
			ingest.ColState:     r.State,
			ingest.ColDistrict:  r.District,
			ingest.ColPincode:   r.Pincode,
			ingest.ColAge0To5:   strconv.FormatInt(r.Age0To5, 10),
			ingest.ColAge5To17:  strconv.FormatInt(r.Age5To17, 10),
			ingest.ColAge18Plus: strconv.FormatInt(r.Age18Plus, 10),
		})
	}
	return table
}

// UpdateTable renders cleaned update records of one kind back into a raw table
func UpdateTable(kind domain.RecordKind, records []domain.UpdateRecord) *domain.RawTable {
	table := &domain.RawTable{
		Kind: kind,
		Columns: []string{ingest.ColDate, ingest.ColState, ingest.ColDistrict, ingest.ColPincode,
			ingest.ColAge5To17, ingest.ColAge17Plus},
		Rows: make([]domain.RawRow, 0, len(records)),
	}
	for _, r := range records {
		table.Rows = append(table.Rows, domain.RawRow{
			ingest.ColDate:      r.Date.Format("02-01-2006"),
			ingest.ColState:     r.State,
			ingest.ColDistrict:  r.District,
			ingest.ColPincode:   r.Pincode,
			ingest.ColAge5To17:  strconv.FormatInt(r.Age5To17, 10),
			ingest.ColAge17Plus: strconv.FormatInt(r.Age17Plus, 10),
		})
	}
	return table
}
