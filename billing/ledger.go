/*
ledger.go - Unpaid-session ledger and invoice creation

PURPOSE:
  Tracks the payment lifecycle of session occurrences in a working set and
  groups unpaid ones into invoices. The ledger is the ONLY component that
  mutates an occurrence's payment status; every change passes through the
  transition table in transition.go.

ATOMIC INVOICES:
  CreateInvoice validates the entire selection before touching anything:
  either every selected occurrence transitions to Invoiced and an Invoice
  is returned, or nothing changes and a typed error says why. There are no
  partial invoices.

OWNERSHIP:
  The ledger owns no persistent store. It works on the OccurrenceSet the
  caller handed it; the caller persists the status changes the ledger
  reports (see store.go for the transactional commit contract).

SEE ALSO:
  - transition.go: The legal status lifecycle
  - store.go:      InvoiceStore, the caller-side commit boundary
*/
package billing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/schedule-engine/schedule"
)

// =============================================================================
// INVOICE - Immutable grouping of invoiced sessions
// =============================================================================

// Invoice groups invoiced occurrences with a computed total. Never mutated
// after creation; an amendment is a new invoice.
type Invoice struct {
	ID          string
	SessionIDs  []schedule.SessionID // selection order = line-item order
	TotalAmount decimal.Decimal
	GeneratedAt time.Time
}

// =============================================================================
// LEDGER
// =============================================================================

// Ledger applies payment-status changes to a working set of occurrences.
type Ledger struct {
	set *schedule.OccurrenceSet

	now   func() time.Time
	newID func() string
}

// NewLedger wraps a working set. The set is mutated in place; callers that
// need the original untouched pass set.Clone().
func NewLedger(set *schedule.OccurrenceSet) *Ledger {
	return &Ledger{
		set:   set,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// WithClock overrides the invoice timestamp source. Tests use this for
// deterministic GeneratedAt values.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Set returns the working set, so callers can read back mutated statuses
// for persistence.
func (l *Ledger) Set() *schedule.OccurrenceSet { return l.set }

// Transition applies a validated status change to one occurrence.
func (l *Ledger) Transition(id schedule.SessionID, to schedule.PaymentStatus) error {
	occ, ok := l.set.Get(id)
	if !ok {
		return schedule.ErrSessionNotFound
	}
	if err := ValidateTransition(id, occ.Status, to); err != nil {
		return err
	}
	l.set.SetStatusValidated(id, to)
	return nil
}

// MarkPaid settles a session directly or settles its invoice line.
func (l *Ledger) MarkPaid(id schedule.SessionID) error {
	return l.Transition(id, schedule.StatusPaid)
}

// Waive writes a session off.
func (l *Ledger) Waive(id schedule.SessionID) error {
	return l.Transition(id, schedule.StatusWaived)
}

// =============================================================================
// UNPAID SELECTION
// =============================================================================

// UnpaidFilter narrows SelectUnpaid. Zero fields mean "any".
type UnpaidFilter struct {
	ResourceID schedule.ResourceID
	From       time.Time // inclusive, against interval start
	To         time.Time // exclusive
}

func (f UnpaidFilter) matches(o schedule.SessionOccurrence) bool {
	if o.Status != schedule.StatusUnpaid {
		return false
	}
	if f.ResourceID != "" && o.ResourceID != f.ResourceID {
		return false
	}
	if !f.From.IsZero() && o.Interval.Start().Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !o.Interval.Start().Before(f.To) {
		return false
	}
	return true
}

// SelectUnpaid returns the eligible occurrences from a caller-given
// sequence, preserving its order. Invoice line-item order is
// user-meaningful, so the engine never re-sorts a selection.
func SelectUnpaid(occurrences []schedule.SessionOccurrence, filter UnpaidFilter) []schedule.SessionOccurrence {
	var out []schedule.SessionOccurrence
	for _, o := range occurrences {
		if filter.matches(o) {
			out = append(out, o)
		}
	}
	return out
}

// SelectUnpaid filters the ledger's working set in insertion order.
func (l *Ledger) SelectUnpaid(filter UnpaidFilter) []schedule.SessionOccurrence {
	return SelectUnpaid(l.set.All(), filter)
}

// =============================================================================
// INVOICE CREATION
// =============================================================================

// CreateInvoice atomically transitions every selected occurrence to
// Invoiced and returns the immutable Invoice. The selection order becomes
// the line-item order.
//
// Fails with ErrEmptySelection for an empty selection, ErrSessionNotFound
// for an unknown id, and NotUnpaidError when any selected occurrence is
// not currently Unpaid. On failure nothing transitions.
func (l *Ledger) CreateInvoice(selection []schedule.SessionID) (Invoice, error) {
	if len(selection) == 0 {
		return Invoice{}, ErrEmptySelection
	}

	// Validate the whole selection before mutating anything.
	total := decimal.Zero
	seen := make(map[schedule.SessionID]bool, len(selection))
	for _, id := range selection {
		if seen[id] {
			return Invoice{}, &NotUnpaidError{SessionID: id, Status: schedule.StatusInvoiced}
		}
		seen[id] = true

		occ, ok := l.set.Get(id)
		if !ok {
			return Invoice{}, schedule.ErrSessionNotFound
		}
		if occ.Status != schedule.StatusUnpaid {
			return Invoice{}, &NotUnpaidError{SessionID: id, Status: occ.Status}
		}
		total = total.Add(occ.Price)
	}

	for _, id := range selection {
		l.set.SetStatusValidated(id, schedule.StatusInvoiced)
	}

	return Invoice{
		ID:          l.newID(),
		SessionIDs:  append([]schedule.SessionID(nil), selection...),
		TotalAmount: total,
		GeneratedAt: l.now(),
	}, nil
}
