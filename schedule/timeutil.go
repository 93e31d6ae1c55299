package schedule

import (
	"fmt"
	"time"
)

// =============================================================================
// LOCAL CLOCK - Wall-clock time of day, independent of any date
// =============================================================================

// LocalClock is a time of day on a local wall clock (e.g. 14:30). It only
// becomes an absolute instant when combined with a date and a timezone.
type LocalClock struct {
	Hour   int
	Minute int
}

// NewLocalClock validates and builds a wall-clock time of day.
func NewLocalClock(hour, minute int) (LocalClock, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return LocalClock{}, fmt.Errorf("%w: clock %02d:%02d out of range", ErrInvalidRule, hour, minute)
	}
	return LocalClock{Hour: hour, Minute: minute}, nil
}

// ParseLocalClock parses "HH:MM".
func ParseLocalClock(s string) (LocalClock, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(s, "%d:%d", &hour, &minute); err != nil {
		return LocalClock{}, fmt.Errorf("%w: malformed clock %q", ErrInvalidRule, s)
	}
	return NewLocalClock(hour, minute)
}

func (c LocalClock) MinutesOfDay() int          { return c.Hour*60 + c.Minute }
func (c LocalClock) Before(other LocalClock) bool { return c.MinutesOfDay() < other.MinutesOfDay() }
func (c LocalClock) String() string             { return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute) }

// =============================================================================
// DATE STEPPING
// =============================================================================

// DateOf truncates t to its calendar date in t's location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// NextOccurrenceDate returns the smallest date >= from whose weekday is in
// days. The weekday match is evaluated in from's location.
func NextOccurrenceDate(from time.Time, days []time.Weekday) (time.Time, error) {
	if len(days) == 0 {
		return time.Time{}, fmt.Errorf("%w: empty weekday set", ErrInvalidRule)
	}
	wanted := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		wanted[d] = true
	}
	date := DateOf(from)
	for i := 0; i < 7; i++ {
		if wanted[date.Weekday()] {
			return date, nil
		}
		date = date.AddDate(0, 0, 1)
	}
	// Unreachable: a non-empty weekday set matches within a week.
	return time.Time{}, fmt.Errorf("%w: no weekday matched", ErrInvalidRule)
}

// =============================================================================
// TIMEZONE-SAFE COMBINATION
// =============================================================================

// CombineDateAndLocalTime resolves a (date, wall clock) pair to an absolute
// instant in loc, handling daylight-saving transitions deterministically:
//
//   - Spring-forward gap: the requested wall time never exists; the first
//     valid instant after the gap is returned.
//   - Fall-back fold: the wall time exists twice; the earlier instant is
//     returned.
func CombineDateAndLocalTime(date time.Time, clock LocalClock, loc *time.Location) time.Time {
	y, m, d := date.Date()
	t := time.Date(y, m, d, clock.Hour, clock.Minute, 0, 0, loc)

	if t.Hour()*60+t.Minute() != clock.MinutesOfDay() {
		// time.Date normalized through a spring-forward gap. Depending on
		// the zone it lands either just past the transition or just before
		// it, so locate the boundary itself: that is the first valid
		// instant after the gap.
		if boundary, ok := transitionBoundary(t); ok {
			return boundary
		}
		return t
	}

	// Folds repeat the wall clock at the fold-length earlier instant with a
	// larger UTC offset. Offset changes are 30 or 60 minutes in practice.
	for _, fold := range []time.Duration{30 * time.Minute, time.Hour} {
		earlier := t.Add(-fold)
		if earlier.Hour()*60+earlier.Minute() == clock.MinutesOfDay() {
			return earlier
		}
	}
	return t
}

// transitionBoundary locates the offset change nearest t and returns the
// first instant carrying the new offset. It reports false when no change
// exists within a few hours of t, which means t is nowhere near a
// daylight-saving transition.
func transitionBoundary(t time.Time) (time.Time, bool) {
	_, at := t.Zone()
	const window = 6 * time.Hour

	// Bracket the transition: the boundary is ahead of t when t still
	// carries the pre-transition offset, behind it otherwise.
	var lo, hi time.Time
	if _, off := t.Add(window).Zone(); off != at {
		lo, hi = t, t.Add(window)
	} else if _, off := t.Add(-window).Zone(); off != at {
		lo, hi = t.Add(-window), t
	} else {
		return time.Time{}, false
	}

	_, before := lo.Zone()
	for hi.Sub(lo) > time.Second {
		mid := lo.Add(hi.Sub(lo) / 2)
		if _, off := mid.Zone(); off == before {
			lo = mid
		} else {
			hi = mid
		}
	}

	hi = hi.Truncate(time.Second)
	if _, off := hi.Zone(); off == before {
		hi = hi.Add(time.Second)
	}
	return hi, true
}
