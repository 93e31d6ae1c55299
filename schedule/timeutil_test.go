package schedule_test

import (
	"errors"
	"testing"
	"time"

	"github.com/warp/schedule-engine/schedule"
)

func newYork(t *testing.T) *time.Location {
	t.Helper()
	return loadZone(t, "America/New_York")
}

func loadZone(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation(name)
	if err != nil {
		t.Fatalf("failed to load %s: %v", name, err)
	}
	return loc
}

func clock(t *testing.T, hour, min int) schedule.LocalClock {
	t.Helper()
	c, err := schedule.NewLocalClock(hour, min)
	if err != nil {
		t.Fatalf("unexpected clock error: %v", err)
	}
	return c
}

// =============================================================================
// LOCAL CLOCK TESTS
// =============================================================================

func TestNewLocalClock_OutOfRange(t *testing.T) {
	for _, tc := range []struct{ h, m int }{
		{24, 0}, {-1, 0}, {0, 60}, {0, -1},
	} {
		if _, err := schedule.NewLocalClock(tc.h, tc.m); !errors.Is(err, schedule.ErrInvalidRule) {
			t.Errorf("clock %02d:%02d: expected ErrInvalidRule, got %v", tc.h, tc.m, err)
		}
	}
}

func TestParseLocalClock(t *testing.T) {
	c, err := schedule.ParseLocalClock("14:30")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Hour != 14 || c.Minute != 30 {
		t.Errorf("expected 14:30, got %s", c)
	}

	if _, err := schedule.ParseLocalClock("garbage"); !errors.Is(err, schedule.ErrInvalidRule) {
		t.Errorf("expected ErrInvalidRule for malformed clock, got %v", err)
	}
}

// =============================================================================
// DATE STEPPING TESTS
// =============================================================================

func TestNextOccurrenceDate_SameDayMatches(t *testing.T) {
	// GIVEN: Monday Sept 1 2025 and a Monday/Wednesday pattern
	// WHEN: Stepping from that Monday
	// THEN: The same date is returned (>= semantics)

	monday := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)

	got, err := schedule.NextOccurrenceDate(monday, []time.Weekday{time.Monday, time.Wednesday})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(monday) {
		t.Errorf("expected %v, got %v", monday, got)
	}
}

func TestNextOccurrenceDate_StepsForward(t *testing.T) {
	tuesday := time.Date(2025, time.September, 2, 0, 0, 0, 0, time.UTC)
	wednesday := time.Date(2025, time.September, 3, 0, 0, 0, 0, time.UTC)

	got, err := schedule.NextOccurrenceDate(tuesday, []time.Weekday{time.Monday, time.Wednesday})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(wednesday) {
		t.Errorf("expected %v, got %v", wednesday, got)
	}
}

func TestNextOccurrenceDate_EmptySet_Rejected(t *testing.T) {
	_, err := schedule.NextOccurrenceDate(time.Now(), nil)
	if !errors.Is(err, schedule.ErrInvalidRule) {
		t.Errorf("expected ErrInvalidRule, got %v", err)
	}
}

// =============================================================================
// DST TRANSITION TESTS
// =============================================================================

func TestCombine_PlainDate_NoTransition(t *testing.T) {
	loc := newYork(t)
	date := time.Date(2025, time.September, 1, 0, 0, 0, 0, loc)

	got := schedule.CombineDateAndLocalTime(date, clock(t, 14, 30), loc)

	want := time.Date(2025, time.September, 1, 14, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestCombine_SpringForwardGap_FirstValidInstant(t *testing.T) {
	// GIVEN: March 9 2025 in New York, clocks jump 02:00 -> 03:00
	// WHEN: Resolving the nonexistent wall time 02:30
	// THEN: The first valid instant after the gap (03:00 EDT) is returned

	loc := newYork(t)
	date := time.Date(2025, time.March, 9, 0, 0, 0, 0, loc)

	got := schedule.CombineDateAndLocalTime(date, clock(t, 2, 30), loc)

	want := time.Date(2025, time.March, 9, 3, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if _, off := got.Zone(); off != -4*3600 {
		t.Errorf("expected EDT offset -4h, got %d", off)
	}
}

func TestCombine_SpringForwardGap_EastOfUTC(t *testing.T) {
	// GIVEN: March 30 2025 in Berlin, clocks jump 02:00 -> 03:00. East of
	// UTC, time.Date normalizes a nonexistent wall time past the
	// transition rather than before it, so both normalization directions
	// must resolve to the same boundary instant.
	// WHEN: Resolving the nonexistent wall time 02:30
	// THEN: The first valid instant after the gap (03:00 CEST) is returned

	loc := loadZone(t, "Europe/Berlin")
	date := time.Date(2025, time.March, 30, 0, 0, 0, 0, loc)

	got := schedule.CombineDateAndLocalTime(date, clock(t, 2, 30), loc)

	want := time.Date(2025, time.March, 30, 3, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if _, off := got.Zone(); off != 2*3600 {
		t.Errorf("expected CEST offset +2h, got %d", off)
	}
}

func TestCombine_HalfHourGap_LordHowe(t *testing.T) {
	// GIVEN: October 5 2025 on Lord Howe Island, clocks advance only 30
	// minutes, 02:00 -> 02:30
	// WHEN: Resolving the nonexistent wall time 02:15
	// THEN: The first valid instant after the gap (02:30 LHDT, +11h) is
	// returned

	loc := loadZone(t, "Australia/Lord_Howe")
	date := time.Date(2025, time.October, 5, 0, 0, 0, 0, loc)

	got := schedule.CombineDateAndLocalTime(date, clock(t, 2, 15), loc)

	want := time.Date(2025, time.October, 5, 2, 30, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if _, off := got.Zone(); off != 11*3600 {
		t.Errorf("expected LHDT offset +11h, got %d", off)
	}
}

func TestCombine_HalfHourFold_LordHowe(t *testing.T) {
	// GIVEN: April 6 2025 on Lord Howe Island, clocks fall back 02:00 ->
	// 01:30, so 01:45 happens twice 30 minutes apart
	// WHEN: Resolving the ambiguous wall time 01:45
	// THEN: The earlier of the two instants (LHDT, +11h) is chosen

	loc := loadZone(t, "Australia/Lord_Howe")
	date := time.Date(2025, time.April, 6, 0, 0, 0, 0, loc)

	got := schedule.CombineDateAndLocalTime(date, clock(t, 1, 45), loc)

	if got.Hour() != 1 || got.Minute() != 45 {
		t.Fatalf("expected wall time 01:45, got %v", got)
	}
	if _, off := got.Zone(); off != 11*3600 {
		t.Errorf("expected earlier instant (LHDT, +11h), got offset %d", off)
	}
}

func TestCombine_FallBackFold_EarlierInstant(t *testing.T) {
	// GIVEN: November 2 2025 in New York, clocks repeat 01:00-02:00
	// WHEN: Resolving the ambiguous wall time 01:30
	// THEN: The earlier of the two instants (01:30 EDT, offset -4h) is chosen

	loc := newYork(t)
	date := time.Date(2025, time.November, 2, 0, 0, 0, 0, loc)

	got := schedule.CombineDateAndLocalTime(date, clock(t, 1, 30), loc)

	if got.Hour() != 1 || got.Minute() != 30 {
		t.Fatalf("expected wall time 01:30, got %v", got)
	}
	if _, off := got.Zone(); off != -4*3600 {
		t.Errorf("expected earlier instant (EDT, -4h), got offset %d", off)
	}
}

func TestCombine_Deterministic(t *testing.T) {
	// Resolving the same (date, clock, zone) twice must yield the same
	// instant, fold or not.

	loc := newYork(t)
	date := time.Date(2025, time.November, 2, 0, 0, 0, 0, loc)

	a := schedule.CombineDateAndLocalTime(date, clock(t, 1, 30), loc)
	b := schedule.CombineDateAndLocalTime(date, clock(t, 1, 30), loc)
	if !a.Equal(b) {
		t.Errorf("non-deterministic resolution: %v vs %v", a, b)
	}
}
