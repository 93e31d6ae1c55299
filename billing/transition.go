package billing

import (
	"github.com/warp/schedule-engine/schedule"
)

// =============================================================================
// PAYMENT STATUS STATE MACHINE
// =============================================================================
//
// States: Unpaid (initial), Paid, Invoiced, Waived.
// Paid and Waived absorb; Invoiced can still settle or be written off.
//
//   Unpaid   -> Paid      direct settlement
//   Unpaid   -> Invoiced  included in an invoice
//   Unpaid   -> Waived    written off before invoicing
//   Invoiced -> Paid      invoice settled
//   Invoiced -> Waived    invoice voided / written off
//
// Everything else is illegal.

var allowedTransitions = map[schedule.PaymentStatus][]schedule.PaymentStatus{
	schedule.StatusUnpaid:   {schedule.StatusPaid, schedule.StatusInvoiced, schedule.StatusWaived},
	schedule.StatusInvoiced: {schedule.StatusPaid, schedule.StatusWaived},
	schedule.StatusPaid:     {},
	schedule.StatusWaived:   {},
}

// CanTransition reports whether from -> to is a legal lifecycle change.
func CanTransition(from, to schedule.PaymentStatus) bool {
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a TransitionError when from -> to is illegal.
func ValidateTransition(id schedule.SessionID, from, to schedule.PaymentStatus) error {
	if !from.IsValid() || !to.IsValid() || !CanTransition(from, to) {
		return &TransitionError{SessionID: id, From: from, To: to}
	}
	return nil
}
