package schedule

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIME INTERVAL - Half-open [start, end)
// =============================================================================

// TimeInterval is an immutable half-open time span. start < end always
// holds for intervals built through NewInterval.
type TimeInterval struct {
	start time.Time
	end   time.Time
}

// NewInterval constructs an interval, rejecting degenerate spans.
func NewInterval(start, end time.Time) (TimeInterval, error) {
	if !start.Before(end) {
		return TimeInterval{}, &IntervalError{Start: start, End: end}
	}
	return TimeInterval{start: start, end: end}, nil
}

// MustInterval is NewInterval for callers with statically valid bounds,
// primarily tests.
func MustInterval(start, end time.Time) TimeInterval {
	i, err := NewInterval(start, end)
	if err != nil {
		panic(err)
	}
	return i
}

func (i TimeInterval) Start() time.Time { return i.start }
func (i TimeInterval) End() time.Time   { return i.end }
func (i TimeInterval) IsZero() bool     { return i.start.IsZero() && i.end.IsZero() }

// Overlaps reports whether two half-open intervals intersect. Touching
// endpoints (a.end == b.start) do not overlap.
func (i TimeInterval) Overlaps(other TimeInterval) bool {
	return i.start.Before(other.end) && other.start.Before(i.end)
}

// Duration returns end - start.
func (i TimeInterval) Duration() time.Duration { return i.end.Sub(i.start) }

// DurationHours returns the span in decimal hours. Fractional hours are
// exact: a 90 minute session is 1.5, not 1.4999….
func (i TimeInterval) DurationHours() decimal.Decimal {
	minutes := i.end.Sub(i.start) / time.Minute
	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60))
}

// Contains reports whether t falls inside the half-open span.
func (i TimeInterval) Contains(t time.Time) bool {
	return !t.Before(i.start) && t.Before(i.end)
}

func (i TimeInterval) String() string {
	return "[" + i.start.Format(time.RFC3339) + ", " + i.end.Format(time.RFC3339) + ")"
}
