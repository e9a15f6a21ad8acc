package domain

import (
	"time"
)

// RecordKind identifies which of the three source datasets a row came from
type RecordKind string

const (
	KindEnrollment  RecordKind = "enrollment"
	KindDemographic RecordKind = "demographic"
	KindBiometric   RecordKind = "biometric"
)

// AllKinds lists the source datasets in pipeline order
var AllKinds = []RecordKind{KindEnrollment, KindDemographic, KindBiometric}

// Valid reports whether k names a known dataset
func (k RecordKind) Valid() bool {
	switch k {
	case KindEnrollment, KindDemographic, KindBiometric:
		return true
	}
	return false
}

// MonthLayout is the layout of the YearMonth bucket key
const MonthLayout = "2006-01"

// EnrollmentRecord represents new identity enrollments at a date and place
type EnrollmentRecord struct {
	Date      time.Time `json:"date"`
	State     string    `json:"state"`
	District  string    `json:"district"`
	Pincode   string    `json:"pincode"`
	Age0To5   int64     `json:"age_0_5"`
	Age5To17  int64     `json:"age_5_17"`
	Age18Plus int64     `json:"age_18_plus"`

	// Derived fields, populated by the feature deriver
	Total     int64   `json:"total"`
	ChildPct  float64 `json:"child_pct"`
	YouthPct  float64 `json:"youth_pct"`
	AdultPct  float64 `json:"adult_pct"`
	YearMonth string  `json:"year_month"`
}

// SumAges returns the sum of the three age bands
func (r EnrollmentRecord) SumAges() int64 {
	return r.Age0To5 + r.Age5To17 + r.Age18Plus
}

// UpdateRecord represents a demographic or biometric update at a date and place
type UpdateRecord struct {
	Kind      RecordKind `json:"kind"`
	Date      time.Time  `json:"date"`
	State     string     `json:"state"`
	District  string     `json:"district"`
	Pincode   string     `json:"pincode"`
	Age5To17  int64      `json:"age_5_17"`
	Age17Plus int64      `json:"age_17_plus"`

	Total     int64   `json:"total"`
	YouthPct  float64 `json:"youth_pct"`
	YearMonth string  `json:"year_month"`
}

// SumAges returns the sum of both age bands
func (r UpdateRecord) SumAges() int64 {
	return r.Age5To17 + r.Age17Plus
}

// RawRow is a header-normalized input row keyed by canonical column name
type RawRow map[string]string

// RawTable holds the concatenated rows of every input file of a single kind
type RawTable struct {
	Kind    RecordKind `json:"kind"`
	Columns []string   `json:"columns"`
	Rows    []RawRow   `json:"-"`
	Sources []string   `json:"sources"`
}

// Len returns the number of rows
func (t *RawTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// HasColumn reports whether the table carries the named canonical column
func (t *RawTable) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// DropReason classifies why the cleaner discarded a row
type DropReason string

const (
	DropBadDate      DropReason = "bad_date"
	DropBlockedState DropReason = "blocked_state"
	DropMissingGeo   DropReason = "missing_geo"
	DropBadCount     DropReason = "bad_count"
)

// CleaningStats summarizes one cleaner pass over a RawTable
type CleaningStats struct {
	Kind       RecordKind         `json:"kind"`
	RowsIn     int                `json:"rows_in"`
	Duplicates int                `json:"duplicates"`
	Dropped    map[DropReason]int `json:"dropped"`
	RowsOut    int                `json:"rows_out"`
}

// TotalDropped returns the number of rows discarded for any reason
func (s CleaningStats) TotalDropped() int {
	n := 0
	for _, c := range s.Dropped {
		n += c
	}
	return n
}
