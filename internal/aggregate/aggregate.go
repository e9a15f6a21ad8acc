// Package aggregate sums enriched records into geographic and monthly buckets.
//
// Sums are commutative, and output is always sorted by key, so the result
// depends only on the multiset of input records and never on their order.
package aggregate

import (
	"sort"

	"aadhaarcli/pkg/contracts/domain"
)

// Grouping selects the bucket key of an aggregation
type Grouping struct {
	Level   domain.GeoLevel `json:"level" validate:"omitempty,oneof=state district"`
	ByMonth bool            `json:"by_month"`
}

// ByState groups on state only
var ByState = Grouping{Level: domain.LevelState}

// ByDistrict groups on state and district
var ByDistrict = Grouping{Level: domain.LevelDistrict}

// Key builds the bucket key of a record located at state/district in month
func (g Grouping) Key(state, district, month string) domain.GeoKey {
	k := domain.GeoKey{State: state}
	if g.Level == domain.LevelDistrict {
		k.District = district
	}
	if g.ByMonth {
		k.Month = month
	}
	return k
}

type buckets map[domain.GeoKey]*domain.GeoAggregate

func (b buckets) get(k domain.GeoKey) *domain.GeoAggregate {
	agg, ok := b[k]
	if !ok {
		agg = &domain.GeoAggregate{Key: k}
		b[k] = agg
	}
	return agg
}

func (b buckets) sorted() []domain.GeoAggregate {
	out := make([]domain.GeoAggregate, 0, len(b))
	for _, agg := range b {
		out = append(out, agg.WithRatios())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Key.Less(out[j].Key)
	})
	return out
}

// Enrollments sums enrollment records per bucket
func Enrollments(records []domain.EnrollmentRecord, g Grouping) []domain.GeoAggregate {
	b := make(buckets)
	for _, r := range records {
		addEnrollment(b.get(g.Key(r.State, r.District, r.YearMonth)), r)
	}
	return b.sorted()
}

// Updates sums demographic and biometric records per bucket. Each record's
// total is credited to the column of its kind.
func Updates(records []domain.UpdateRecord, g Grouping) []domain.GeoAggregate {
	b := make(buckets)
	for _, r := range records {
		addUpdate(b.get(g.Key(r.State, r.District, r.YearMonth)), r)
	}
	return b.sorted()
}

// Aggregate joins the three sources on the union of their keys
func Aggregate(enrol []domain.EnrollmentRecord, demo, bio []domain.UpdateRecord, g Grouping) []domain.GeoAggregate {
	b := make(buckets)
	for _, r := range enrol {
		addEnrollment(b.get(g.Key(r.State, r.District, r.YearMonth)), r)
	}
	for _, r := range demo {
		addUpdate(b.get(g.Key(r.State, r.District, r.YearMonth)), r)
	}
	for _, r := range bio {
		addUpdate(b.get(g.Key(r.State, r.District, r.YearMonth)), r)
	}
	return b.sorted()
}

// Merge sums aggregate tables that share a grouping. Keys missing from a
// table contribute zero.
func Merge(tables ...[]domain.GeoAggregate) []domain.GeoAggregate {
	b := make(buckets)
	for _, table := range tables {
		for _, a := range table {
			dst := b.get(a.Key)
			dst.EnrollmentTotal += a.EnrollmentTotal
			dst.DemographicTotal += a.DemographicTotal
			dst.BiometricTotal += a.BiometricTotal
			dst.Age0To5 += a.Age0To5
			dst.Age5To17 += a.Age5To17
			dst.Age18Plus += a.Age18Plus
			dst.Records += a.Records
		}
	}
	return b.sorted()
}

// ByTotal returns a copy sorted by combined total, largest first. Ties keep
// key order.
func ByTotal(aggs []domain.GeoAggregate) []domain.GeoAggregate {
	out := append([]domain.GeoAggregate(nil), aggs...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Combined() > out[j].Combined()
	})
	return out
}

func addEnrollment(agg *domain.GeoAggregate, r domain.EnrollmentRecord) {
	agg.EnrollmentTotal += r.SumAges()
	agg.Age0To5 += r.Age0To5
	agg.Age5To17 += r.Age5To17
	agg.Age18Plus += r.Age18Plus
	agg.Records++
}

func addUpdate(agg *domain.GeoAggregate, r domain.UpdateRecord) {
	switch r.Kind {
	case domain.KindDemographic:
		agg.DemographicTotal += r.SumAges()
	case domain.KindBiometric:
		agg.BiometricTotal += r.SumAges()
	}
	agg.Records++
}
