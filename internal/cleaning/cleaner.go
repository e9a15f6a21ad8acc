package cleaning

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"aadhaarcli/internal/ingest"
	"aadhaarcli/pkg/contracts/domain"
)

// DateLayout is the day-month-year format of the date column. Single digit
// days and months are accepted.
const DateLayout = "2-1-2006"

// ErrWrongKind is returned when a table is passed to the cleaner of another kind
var ErrWrongKind = errors.New("table kind does not match cleaner")

// Cleaner turns raw tables into validated typed records
type Cleaner struct {
	logger *slog.Logger
}

// NewCleaner creates a cleaner logging data quality events to logger
func NewCleaner(logger *slog.Logger) *Cleaner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Cleaner{logger: logger.With(slog.String("component", "cleaner"))}
}

// base holds the columns shared by every record kind once validated
type base struct {
	date     time.Time
	state    string
	district string
	pincode  string
}

// rowFunc converts the count columns of one row. It returns the identity key
// of the cleaned record and a func that appends it to the output; a false
// return drops the row.
type rowFunc func(b base, row domain.RawRow) (string, func(), bool)

func (b base) key(counts ...int64) string {
	var sb strings.Builder
	sb.WriteString(b.date.Format(time.DateOnly))
	for _, s := range []string{b.state, b.district, b.pincode} {
		sb.WriteByte(0x1f)
		sb.WriteString(s)
	}
	for _, n := range counts {
		sb.WriteByte(0x1f)
		sb.WriteString(strconv.FormatInt(n, 10))
	}
	return sb.String()
}

// CleanEnrollment validates an enrollment table
func (c *Cleaner) CleanEnrollment(ctx context.Context, table *domain.RawTable) ([]domain.EnrollmentRecord, domain.CleaningStats, error) {
	if table != nil && table.Kind != domain.KindEnrollment {
		return nil, domain.CleaningStats{}, fmt.Errorf("clean %s: %w", table.Kind, ErrWrongKind)
	}

	var out []domain.EnrollmentRecord
	stats, err := c.clean(ctx, domain.KindEnrollment, table, func(b base, row domain.RawRow) (string, func(), bool) {
		a0, ok0 := parseCount(row[ingest.ColAge0To5])
		a5, ok5 := parseCount(row[ingest.ColAge5To17])
		a18, ok18 := parseCount(row[ingest.ColAge18Plus])
		if !ok0 || !ok5 || !ok18 {
			return "", nil, false
		}
		return b.key(a0, a5, a18), func() {
			out = append(out, domain.EnrollmentRecord{
				Date:      b.date,
				State:     b.state,
				District:  b.district,
				Pincode:   b.pincode,
				Age0To5:   a0,
				Age5To17:  a5,
				Age18Plus: a18,
			})
		}, true
	})
	if err != nil {
		return nil, stats, err
	}
	return out, stats, nil
}

// CleanUpdates validates a demographic or biometric table
func (c *Cleaner) CleanUpdates(ctx context.Context, table *domain.RawTable) ([]domain.UpdateRecord, domain.CleaningStats, error) {
	if table == nil {
		return nil, domain.CleaningStats{}, fmt.Errorf("clean updates: %w", ErrWrongKind)
	}
	if table.Kind != domain.KindDemographic && table.Kind != domain.KindBiometric {
		return nil, domain.CleaningStats{}, fmt.Errorf("clean %s as updates: %w", table.Kind, ErrWrongKind)
	}

	kind := table.Kind
	var out []domain.UpdateRecord
	stats, err := c.clean(ctx, kind, table, func(b base, row domain.RawRow) (string, func(), bool) {
		a5, ok5 := parseCount(row[ingest.ColAge5To17])
		a17, ok17 := parseCount(row[ingest.ColAge17Plus])
		if !ok5 || !ok17 {
			return "", nil, false
		}
		return b.key(a5, a17), func() {
			out = append(out, domain.UpdateRecord{
				Kind:      kind,
				Date:      b.date,
				State:     b.state,
				District:  b.district,
				Pincode:   b.pincode,
				Age5To17:  a5,
				Age17Plus: a17,
			})
		}, true
	})
	if err != nil {
		return nil, stats, err
	}
	return out, stats, nil
}

func (c *Cleaner) clean(ctx context.Context, kind domain.RecordKind, table *domain.RawTable, convert rowFunc) (domain.CleaningStats, error) {
	stats := domain.CleaningStats{
		Kind:    kind,
		Dropped: make(map[domain.DropReason]int),
	}
	if table == nil {
		return stats, nil
	}

	schema, err := ingest.SchemaFor(kind)
	if err != nil {
		return stats, err
	}
	if missing := schema.Missing(table.Columns); len(missing) > 0 {
		return stats, &ingest.SchemaError{Kind: kind, File: strings.Join(table.Sources, ","), Missing: missing}
	}

	stats.RowsIn = table.Len()
	rows := dedupe(table)
	stats.Duplicates = stats.RowsIn - len(rows)

	// Rows that differ only in spelling or number rendering collapse once
	// normalized
	seen := make(map[string]struct{}, len(rows))

	for i, row := range rows {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
		}

		b, reason, ok := c.validateBase(row)
		if !ok {
			stats.Dropped[reason]++
			continue
		}
		key, emit, ok := convert(b, row)
		if !ok {
			stats.Dropped[domain.DropBadCount]++
			continue
		}
		if _, dup := seen[key]; dup {
			stats.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		emit()
		stats.RowsOut++
	}

	c.logger.InfoContext(ctx, "Cleaned table",
		slog.String("kind", string(kind)),
		slog.Int("rows_in", stats.RowsIn),
		slog.Int("duplicates", stats.Duplicates),
		slog.Int("dropped", stats.TotalDropped()),
		slog.Int("rows_out", stats.RowsOut))

	return stats, nil
}

// validateBase applies the date, name and block-list rules to the shared columns
func (c *Cleaner) validateBase(row domain.RawRow) (base, domain.DropReason, bool) {
	date, dateErr := time.Parse(DateLayout, strings.TrimSpace(row[ingest.ColDate]))

	state := NormalizeName(row[ingest.ColState])
	district := NormalizeName(row[ingest.ColDistrict])

	if IsBlockedState(state) {
		return base{}, domain.DropBlockedState, false
	}

	state = CanonicalState(state)
	district = CanonicalDistrict(district)

	if state == "" || district == "" {
		return base{}, domain.DropMissingGeo, false
	}
	if dateErr != nil {
		c.logger.Debug("Dropping row with unparseable date",
			slog.String("date", row[ingest.ColDate]),
			slog.String("state", state))
		return base{}, domain.DropBadDate, false
	}

	return base{
		date:     date,
		state:    state,
		district: district,
		pincode:  NormalizePincode(row[ingest.ColPincode]),
	}, "", true
}

// dedupe removes raw rows identical in every column, keeping the first occurrence
func dedupe(table *domain.RawTable) []domain.RawRow {
	columns := append([]string(nil), table.Columns...)
	sort.Strings(columns)

	seen := make(map[string]struct{}, len(table.Rows))
	out := make([]domain.RawRow, 0, len(table.Rows))
	var b strings.Builder
	for _, row := range table.Rows {
		b.Reset()
		for _, col := range columns {
			b.WriteString(row[col])
			b.WriteByte(0x1f)
		}
		key := b.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, row)
	}
	return out
}

// parseCount reads a non-negative integral count. Empty cells count as zero;
// spreadsheet float renderings such as "12.0" are accepted.
func parseCount(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, n >= 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 || f != math.Trunc(f) || f > math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
