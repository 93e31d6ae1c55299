package schedule

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CALENDAR AGGREGATION - Period-bucketed statistics
// =============================================================================

// PeriodKey identifies an aggregation bucket, e.g. "2026-03" for a
// year-month key.
type PeriodKey string

// BucketKeyFunc maps an occurrence to its bucket. Callers choose the
// period semantics; the aggregator never interprets the key.
type BucketKeyFunc func(SessionOccurrence) PeriodKey

// MonthKey buckets occurrences by the year-month of their start instant in
// the given location.
func MonthKey(loc *time.Location) BucketKeyFunc {
	if loc == nil {
		loc = time.UTC
	}
	return func(o SessionOccurrence) PeriodKey {
		return PeriodKey(o.Interval.Start().In(loc).Format("2006-01"))
	}
}

// CalendarBucket accumulates the statistics of one period. Accumulation is
// commutative and associative, so buckets built from partitioned inputs
// merge into exactly what a single full pass produces.
type CalendarBucket struct {
	PeriodKey       PeriodKey
	OccurrenceCount int
	TotalHours      decimal.Decimal
	TotalRevenue    decimal.Decimal
	StatusBreakdown map[PaymentStatus]int
}

func newCalendarBucket(key PeriodKey) *CalendarBucket {
	return &CalendarBucket{
		PeriodKey:       key,
		TotalHours:      decimal.Zero,
		TotalRevenue:    decimal.Zero,
		StatusBreakdown: make(map[PaymentStatus]int),
	}
}

func (b *CalendarBucket) add(o SessionOccurrence) {
	b.OccurrenceCount++
	b.TotalHours = b.TotalHours.Add(o.Hours())
	if o.Status.Billable() {
		b.TotalRevenue = b.TotalRevenue.Add(o.Price)
	}
	b.StatusBreakdown[o.Status]++
}

// Aggregate folds occurrences into buckets in a single pass. The result is
// independent of input order.
func Aggregate(occurrences []SessionOccurrence, keyFn BucketKeyFunc) map[PeriodKey]*CalendarBucket {
	buckets := make(map[PeriodKey]*CalendarBucket)
	for _, o := range occurrences {
		key := keyFn(o)
		b, ok := buckets[key]
		if !ok {
			b = newCalendarBucket(key)
			buckets[key] = b
		}
		b.add(o)
	}
	return buckets
}

// MergeBuckets folds src into dst and returns dst. Partitioning the input,
// aggregating partitions independently, and merging yields the same totals
// as one full Aggregate call.
func MergeBuckets(dst, src map[PeriodKey]*CalendarBucket) map[PeriodKey]*CalendarBucket {
	if dst == nil {
		dst = make(map[PeriodKey]*CalendarBucket, len(src))
	}
	for key, sb := range src {
		db, ok := dst[key]
		if !ok {
			db = newCalendarBucket(key)
			dst[key] = db
		}
		db.OccurrenceCount += sb.OccurrenceCount
		db.TotalHours = db.TotalHours.Add(sb.TotalHours)
		db.TotalRevenue = db.TotalRevenue.Add(sb.TotalRevenue)
		for status, n := range sb.StatusBreakdown {
			db.StatusBreakdown[status] += n
		}
	}
	return dst
}
