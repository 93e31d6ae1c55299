/*
Package schedule provides the core recurring-scheduling engine.

PURPOSE:
  This package contains the types and algorithms for turning recurring
  session definitions into concrete calendar occurrences, detecting
  resource conflicts among them, and folding them into period-bucketed
  statistics. It is computation-only: it holds no store and performs no
  I/O. Callers hand it collections of occurrences and persist whatever
  it returns.

KEY CONCEPTS IN THIS FILE (types.go):
  - SessionOccurrence: One concrete scheduled session instance
  - PaymentStatus: The closed payment lifecycle of an occurrence
  - OccurrenceSet: An id-indexed working set of occurrences
  - Session/Rule/Resource IDs: Type-safe identifiers

DESIGN PRINCIPLES:
  1. Purity: expansion, conflict detection and aggregation are
     referentially transparent, so results are reproducible
  2. Precision: decimal.Decimal for prices and fractional hours
  3. Identity: occurrences are referenced by id across components;
     the set is an indexed table, not a pointer graph
  4. Explicitness: occurrences leave the working set only through
     explicit cancellation, never as a side effect

SEE ALSO:
  - interval.go: Time intervals and overlap arithmetic
  - rule.go:     Recurrence rule definition and validation
  - expand.go:   Lazy expansion of rules into occurrences
  - conflict.go: Resource conflict detection
  - aggregate.go: Calendar bucket statistics
*/
package schedule

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type SessionID string
type RuleID string
type ResourceID string
type SubjectID string

// =============================================================================
// PAYMENT STATUS - Closed lifecycle variant
// =============================================================================

// PaymentStatus is the payment lifecycle state of a session occurrence.
// Transitions between statuses are validated by the billing package;
// nothing else mutates an occurrence's status.
type PaymentStatus string

const (
	StatusUnpaid   PaymentStatus = "unpaid"
	StatusPaid     PaymentStatus = "paid"
	StatusInvoiced PaymentStatus = "invoiced"
	StatusWaived   PaymentStatus = "waived"
)

// KnownStatuses lists every valid status, in lifecycle order.
var KnownStatuses = []PaymentStatus{StatusUnpaid, StatusPaid, StatusInvoiced, StatusWaived}

// IsValid reports whether s is one of the known statuses.
func (s PaymentStatus) IsValid() bool {
	switch s {
	case StatusUnpaid, StatusPaid, StatusInvoiced, StatusWaived:
		return true
	}
	return false
}

// Billable reports whether the occurrence counts toward revenue.
// Unpaid sessions are expected money, not revenue; waived sessions never
// become revenue.
func (s PaymentStatus) Billable() bool {
	return s == StatusPaid || s == StatusInvoiced
}

// =============================================================================
// SESSION OCCURRENCE - One concrete scheduled session
// =============================================================================

// SessionOccurrence is a single scheduled session instance, derived either
// from a recurrence rule (RuleID set) or booked directly (RuleID empty).
type SessionOccurrence struct {
	ID         SessionID
	RuleID     RuleID // empty for one-off bookings
	Interval   TimeInterval
	ResourceID ResourceID
	SubjectID  SubjectID
	Price      decimal.Decimal
	Status     PaymentStatus
}

// IsRecurring reports whether the occurrence was produced by a rule.
func (o SessionOccurrence) IsRecurring() bool { return o.RuleID != "" }

// Hours returns the session duration in decimal hours.
func (o SessionOccurrence) Hours() decimal.Decimal { return o.Interval.DurationHours() }

// =============================================================================
// OCCURRENCE SET - Indexed working set
// =============================================================================

// OccurrenceSet is an id-indexed table of occurrences that preserves
// insertion order. Components reference occurrences by id; the set is the
// only place where status mutations land.
type OccurrenceSet struct {
	order []SessionID
	byID  map[SessionID]*SessionOccurrence
}

func NewOccurrenceSet(occurrences ...SessionOccurrence) *OccurrenceSet {
	s := &OccurrenceSet{byID: make(map[SessionID]*SessionOccurrence, len(occurrences))}
	for _, o := range occurrences {
		s.Add(o)
	}
	return s
}

// Add inserts or replaces an occurrence. Insertion order is kept for new
// ids; replacing an existing id keeps its original position.
func (s *OccurrenceSet) Add(o SessionOccurrence) {
	if _, exists := s.byID[o.ID]; !exists {
		s.order = append(s.order, o.ID)
	}
	copied := o
	s.byID[o.ID] = &copied
}

// Get returns a copy of the occurrence with the given id.
func (s *OccurrenceSet) Get(id SessionID) (SessionOccurrence, bool) {
	o, ok := s.byID[id]
	if !ok {
		return SessionOccurrence{}, false
	}
	return *o, true
}

// Contains reports whether the id is in the set.
func (s *OccurrenceSet) Contains(id SessionID) bool {
	_, ok := s.byID[id]
	return ok
}

// Remove cancels an occurrence, deleting it from the set. This is the only
// way an occurrence leaves the working set.
func (s *OccurrenceSet) Remove(id SessionID) bool {
	if _, ok := s.byID[id]; !ok {
		return false
	}
	delete(s.byID, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// setStatus overwrites the status of an occurrence in place. Unexported:
// callers go through billing's transition validation.
func (s *OccurrenceSet) setStatus(id SessionID, status PaymentStatus) bool {
	o, ok := s.byID[id]
	if !ok {
		return false
	}
	o.Status = status
	return true
}

// SetStatusValidated applies a status change for which the caller has
// already validated the transition. The billing package is the intended
// caller.
func (s *OccurrenceSet) SetStatusValidated(id SessionID, status PaymentStatus) bool {
	return s.setStatus(id, status)
}

// All returns copies of every occurrence in insertion order.
func (s *OccurrenceSet) All() []SessionOccurrence {
	out := make([]SessionOccurrence, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.byID[id])
	}
	return out
}

// Len returns the number of occurrences in the set.
func (s *OccurrenceSet) Len() int { return len(s.order) }

// Clone returns an independent copy of the set.
func (s *OccurrenceSet) Clone() *OccurrenceSet {
	return NewOccurrenceSet(s.All()...)
}
