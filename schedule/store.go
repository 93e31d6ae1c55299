/*
store.go - Persistence interface for rules and session occurrences

PURPOSE:
  Defines the boundary between the computation-only engine and whatever
  the embedding application uses as its source of truth. The engine never
  touches a store itself; the API layer loads occurrences, runs the pure
  operations over them, and writes results back through this interface.

CONCURRENT STATUS CHANGES:
  UpdateStatus is a compare-and-swap: the write only lands if the stored
  status still equals the expected one, otherwise ErrStatusConflict is
  returned. This is the store-side half of the invoice-commit contract -
  two concurrent selections cannot both claim the same occurrence.

IMPLEMENTATIONS:
  - store/sqlite:        Production SQLite
  - schedule/store:      In-memory for testing/dev

SEE ALSO:
  - billing/store.go: Invoice persistence interface
*/
package schedule

import (
	"context"
	"time"
)

// OccurrenceFilter narrows occurrence queries. Zero fields mean "any".
type OccurrenceFilter struct {
	ResourceID ResourceID
	RuleID     RuleID
	Status     PaymentStatus
	From       time.Time // inclusive, matched against interval start
	To         time.Time // exclusive
}

// Matches reports whether the occurrence satisfies the filter.
func (f OccurrenceFilter) Matches(o SessionOccurrence) bool {
	if f.ResourceID != "" && o.ResourceID != f.ResourceID {
		return false
	}
	if f.RuleID != "" && o.RuleID != f.RuleID {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
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

// SessionStore persists rules and session occurrences.
type SessionStore interface {
	// SaveOccurrences inserts occurrences, skipping ids that already
	// exist, and returns how many were actually inserted. Deterministic
	// expansion ids make repeated generation runs idempotent.
	SaveOccurrences(ctx context.Context, occurrences []SessionOccurrence) (int, error)

	// GetOccurrence returns a single occurrence by id.
	// Returns ErrSessionNotFound if absent.
	GetOccurrence(ctx context.Context, id SessionID) (*SessionOccurrence, error)

	// LoadOccurrences returns occurrences matching the filter, ordered by
	// interval start.
	LoadOccurrences(ctx context.Context, filter OccurrenceFilter) ([]SessionOccurrence, error)

	// UpdateStatus applies a status change if and only if the stored
	// status still equals expect. Returns ErrSessionNotFound or
	// ErrStatusConflict otherwise.
	UpdateStatus(ctx context.Context, id SessionID, expect, next PaymentStatus) error

	// DeleteOccurrence removes an occurrence. Explicit cancellation is the
	// only way a session record disappears.
	DeleteOccurrence(ctx context.Context, id SessionID) error

	// SaveRule inserts or replaces a recurrence rule.
	SaveRule(ctx context.Context, rule RecurrenceRule) error

	// GetRule returns a rule by id, or (nil, nil) when absent.
	GetRule(ctx context.Context, id RuleID) (*RecurrenceRule, error)

	// ListRules returns all rules, optionally only active ones.
	ListRules(ctx context.Context, activeOnly bool) ([]RecurrenceRule, error)

	// SetRuleActive toggles whether a rule participates in generation.
	SetRuleActive(ctx context.Context, id RuleID, active bool) error

	// DeleteRule removes a rule definition. Already-generated occurrences
	// are untouched.
	DeleteRule(ctx context.Context, id RuleID) error
}
