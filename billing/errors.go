/*
errors.go - Payment-lifecycle error kinds

PURPOSE:
  Every invoice-creation and status-transition precondition surfaces a
  distinct error kind. The embedding application decides user-visible
  messaging and whether to re-fetch and retry (e.g. after ErrNotUnpaid
  when a concurrent selection won the race).

SEE ALSO:
  - transition.go: The transition table these errors guard
  - ledger.go:     Invoice-creation preconditions
*/
package billing

import (
	"errors"
	"fmt"

	"github.com/warp/schedule-engine/schedule"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidTransition is returned for any payment-status change
	// outside the allowed lifecycle.
	ErrInvalidTransition = errors.New("invalid payment status transition")

	// ErrEmptySelection is returned when invoice creation is attempted
	// with no sessions selected.
	ErrEmptySelection = errors.New("empty invoice selection")

	// ErrNotUnpaid is returned when a selected session is not currently
	// Unpaid, including when a concurrent invoice already claimed it.
	ErrNotUnpaid = errors.New("session is not unpaid")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// TransitionError reports an illegal status change.
type TransitionError struct {
	SessionID schedule.SessionID
	From      schedule.PaymentStatus
	To        schedule.PaymentStatus
}

func (e *TransitionError) Error() string {
	if e.SessionID == "" {
		return fmt.Sprintf("invalid transition: %s -> %s", e.From, e.To)
	}
	return fmt.Sprintf("invalid transition for %s: %s -> %s", e.SessionID, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// NotUnpaidError identifies which selected session blocked an invoice.
type NotUnpaidError struct {
	SessionID schedule.SessionID
	Status    schedule.PaymentStatus
}

func (e *NotUnpaidError) Error() string {
	return fmt.Sprintf("session %s is %s, not unpaid", e.SessionID, e.Status)
}

func (e *NotUnpaidError) Unwrap() error { return ErrNotUnpaid }

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrEmptySelection) ||
		errors.Is(err, ErrNotUnpaid)
}
