package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RECURRENCE RULE - Weekly session pattern
// =============================================================================

// RecurrenceRule defines a weekly repeating session slot: which weekdays,
// which wall-clock time range, in which timezone, over which effective
// date range, for which resource.
type RecurrenceRule struct {
	ID         RuleID
	ResourceID ResourceID
	SubjectID  SubjectID

	Weekdays   []time.Weekday
	StartClock LocalClock
	EndClock   LocalClock
	Location   *time.Location

	// EffectiveFrom bounds the rule's validity (dates, inclusive).
	// A zero EffectiveUntil means unbounded.
	EffectiveFrom  time.Time
	EffectiveUntil time.Time

	// PricePerHour carries the billing rate; each generated occurrence's
	// Price is PricePerHour multiplied by the slot's duration in hours.
	PricePerHour decimal.Decimal

	Active bool
}

// NewRecurrenceRule validates and constructs a rule. Invalid definitions
// fail here, at construction, not at expansion time.
func NewRecurrenceRule(r RecurrenceRule) (RecurrenceRule, error) {
	if err := r.Validate(); err != nil {
		return RecurrenceRule{}, err
	}
	if r.Location == nil {
		r.Location = time.UTC
	}
	return r, nil
}

// Validate checks the rule invariants: non-empty weekday set, start clock
// before end clock, effectiveFrom <= effectiveUntil when bounded.
func (r RecurrenceRule) Validate() error {
	if len(r.Weekdays) == 0 {
		return &RuleError{RuleID: r.ID, Reason: "empty weekday set"}
	}
	seen := make(map[time.Weekday]bool, len(r.Weekdays))
	for _, d := range r.Weekdays {
		if d < time.Sunday || d > time.Saturday {
			return &RuleError{RuleID: r.ID, Reason: fmt.Sprintf("unknown weekday %d", d)}
		}
		if seen[d] {
			return &RuleError{RuleID: r.ID, Reason: fmt.Sprintf("duplicate weekday %s", d)}
		}
		seen[d] = true
	}
	if !r.StartClock.Before(r.EndClock) {
		return &RuleError{RuleID: r.ID, Reason: fmt.Sprintf("time range %s-%s is empty", r.StartClock, r.EndClock)}
	}
	if r.EffectiveFrom.IsZero() {
		return &RuleError{RuleID: r.ID, Reason: "missing effective-from date"}
	}
	if !r.EffectiveUntil.IsZero() && r.EffectiveUntil.Before(r.EffectiveFrom) {
		return &RuleError{RuleID: r.ID, Reason: "effective range ends before it starts"}
	}
	if r.PricePerHour.IsNegative() {
		return &RuleError{RuleID: r.ID, Reason: "negative price per hour"}
	}
	return nil
}

// Bounded reports whether the rule has an effective end date.
func (r RecurrenceRule) Bounded() bool { return !r.EffectiveUntil.IsZero() }

// OnWeekday reports whether the rule fires on the given weekday.
func (r RecurrenceRule) OnWeekday(d time.Weekday) bool {
	for _, w := range r.Weekdays {
		if w == d {
			return true
		}
	}
	return false
}

// SessionPrice is the price of one occurrence generated from this rule.
func (r RecurrenceRule) SessionPrice() decimal.Decimal {
	minutes := int64(r.EndClock.MinutesOfDay() - r.StartClock.MinutesOfDay())
	hours := decimal.NewFromInt(minutes).Div(decimal.NewFromInt(60))
	return r.PricePerHour.Mul(hours)
}
