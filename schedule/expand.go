/*
expand.go - Lazy expansion of recurrence rules into occurrences

PURPOSE:
  Walks a rule's weekly pattern over a requested horizon and produces the
  concrete session occurrences, one at a time. The sequence is lazy (no
  horizon is materialized unless consumed), finite (the horizon is always
  clamped to the rule's effective range), and restartable.

IDEMPOTENT IDS:
  Occurrence ids are derived from (rule id, calendar date), so expanding
  the same rule over overlapping horizons yields identical ids. Extending
  a rule's effective range and re-expanding therefore re-produces the
  already-known occurrences byte-for-byte and only appends new ones,
  which is what makes incremental regeneration a simple existence check
  for callers.

SEE ALSO:
  - rule.go:     Rule validation (invalid rules never reach expansion)
  - timeutil.go: Weekday stepping and timezone-safe combination
*/
package schedule

import (
	"fmt"
	"time"
)

// OccurrenceID derives the deterministic id for a rule occurrence on a
// calendar date.
func OccurrenceID(ruleID RuleID, date time.Time) SessionID {
	return SessionID(fmt.Sprintf("%s:%s", ruleID, date.Format("2006-01-02")))
}

// =============================================================================
// EXPANSION - Restartable cursor over a rule's occurrences
// =============================================================================

// Expansion is a lazy cursor over the occurrences of one rule within a
// clamped horizon. Zero allocations per step beyond the produced value.
type Expansion struct {
	rule  RecurrenceRule
	lower time.Time // first candidate date, inclusive
	upper time.Time // last candidate date, inclusive

	cursor time.Time
	done   bool
	empty  bool
}

// NewExpansion validates the rule and clamps [horizonStart, horizonEnd]
// (dates, inclusive) to the rule's effective range. An empty intersection
// is not an error; the cursor just produces nothing.
func NewExpansion(rule RecurrenceRule, horizonStart, horizonEnd time.Time) (*Expansion, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if rule.Location == nil {
		rule.Location = time.UTC
	}

	lower := DateOf(horizonStart.In(rule.Location))
	if from := DateOf(rule.EffectiveFrom.In(rule.Location)); from.After(lower) {
		lower = from
	}
	upper := DateOf(horizonEnd.In(rule.Location))
	if rule.Bounded() {
		if until := DateOf(rule.EffectiveUntil.In(rule.Location)); until.Before(upper) {
			upper = until
		}
	}

	e := &Expansion{rule: rule, lower: lower, upper: upper, empty: lower.After(upper)}
	e.Reset()
	return e, nil
}

// Reset rewinds the cursor to the start of the horizon.
func (e *Expansion) Reset() {
	e.done = e.empty
	if !e.empty {
		e.cursor = e.lower
	}
}

// Next produces the next occurrence, or false when the horizon is
// exhausted.
func (e *Expansion) Next() (SessionOccurrence, bool) {
	for !e.done {
		date, err := NextOccurrenceDate(e.cursor, e.rule.Weekdays)
		if err != nil || date.After(e.upper) {
			e.done = true
			break
		}
		e.cursor = date.AddDate(0, 0, 1)

		start := CombineDateAndLocalTime(date, e.rule.StartClock, e.rule.Location)
		end := CombineDateAndLocalTime(date, e.rule.EndClock, e.rule.Location)
		interval, err := NewInterval(start, end)
		if err != nil {
			// A spring-forward gap swallowed the whole slot; no session can
			// take place, so the date yields nothing.
			continue
		}

		return SessionOccurrence{
			ID:         OccurrenceID(e.rule.ID, date),
			RuleID:     e.rule.ID,
			Interval:   interval,
			ResourceID: e.rule.ResourceID,
			SubjectID:  e.rule.SubjectID,
			Price:      e.rule.SessionPrice(),
			Status:     StatusUnpaid,
		}, true
	}
	return SessionOccurrence{}, false
}

// Expand materializes the full sequence for callers that want a slice.
func Expand(rule RecurrenceRule, horizonStart, horizonEnd time.Time) ([]SessionOccurrence, error) {
	e, err := NewExpansion(rule, horizonStart, horizonEnd)
	if err != nil {
		return nil, err
	}
	var out []SessionOccurrence
	for {
		occ, ok := e.Next()
		if !ok {
			return out, nil
		}
		out = append(out, occ)
	}
}

// CountOccurrences reports how many occurrences Expand would produce,
// without building them. Used for generation previews.
func CountOccurrences(rule RecurrenceRule, horizonStart, horizonEnd time.Time) (int, error) {
	e, err := NewExpansion(rule, horizonStart, horizonEnd)
	if err != nil {
		return 0, err
	}
	n := 0
	for {
		if _, ok := e.Next(); !ok {
			return n, nil
		}
		n++
	}
}
