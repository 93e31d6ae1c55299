/*
errors.go - Centralized error types for the scheduling engine

PURPOSE:
  All error kinds the engine can surface, in one place. Every precondition
  violation maps to a distinct sentinel so callers can branch with
  errors.Is instead of string matching. Nothing is retried internally and
  nothing is swallowed: the engine performs no I/O, so every failure is a
  caller-actionable input problem.

ERROR CATEGORIES:
  1. Rule errors     - Malformed recurrence definitions
  2. Interval errors - Degenerate time spans
  3. Lookup errors   - References to unknown occurrences
  4. Store errors    - Concurrent status changes (adapter-level)

SEE ALSO:
  - billing/errors.go: Payment-lifecycle error kinds
*/
package schedule

import (
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRule is returned when a recurrence rule is malformed:
	// empty weekday set, end-of-day not after start-of-day, or an effective
	// range that ends before it starts.
	ErrInvalidRule = errors.New("invalid recurrence rule")

	// ErrInvalidInterval is returned when an interval's end is not after
	// its start.
	ErrInvalidInterval = errors.New("invalid interval: end not after start")

	// ErrSessionNotFound is returned when a referenced occurrence is not in
	// the working set or store.
	ErrSessionNotFound = errors.New("session occurrence not found")

	// ErrStatusConflict is returned by stores when a compare-and-swap
	// status update finds the stored status already changed.
	ErrStatusConflict = errors.New("session status changed concurrently")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// RuleError reports which rule failed validation and why.
type RuleError struct {
	RuleID RuleID
	Reason string
}

func (e *RuleError) Error() string {
	if e.RuleID == "" {
		return fmt.Sprintf("invalid recurrence rule: %s", e.Reason)
	}
	return fmt.Sprintf("invalid recurrence rule %s: %s", e.RuleID, e.Reason)
}

func (e *RuleError) Unwrap() error { return ErrInvalidRule }

// IntervalError reports the degenerate bounds.
type IntervalError struct {
	Start time.Time
	End   time.Time
}

func (e *IntervalError) Error() string {
	return fmt.Sprintf("invalid interval: end %s not after start %s",
		e.End.Format(time.RFC3339), e.Start.Format(time.RFC3339))
}

func (e *IntervalError) Unwrap() error { return ErrInvalidInterval }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRule) ||
		errors.Is(err, ErrInvalidInterval) ||
		errors.Is(err, ErrSessionNotFound)
}

// IsRetryable returns true if the operation might succeed after the caller
// re-reads current state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStatusConflict)
}
