// Package store provides SessionStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/schedule-engine/billing"
	"github.com/warp/schedule-engine/schedule"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	occurrences map[schedule.SessionID]schedule.SessionOccurrence
	rules       map[schedule.RuleID]schedule.RecurrenceRule
	invoices    map[string]billing.Invoice
	invoiceIDs  []string
}

func NewMemory() *Memory {
	return &Memory{
		occurrences: make(map[schedule.SessionID]schedule.SessionOccurrence),
		rules:       make(map[schedule.RuleID]schedule.RecurrenceRule),
		invoices:    make(map[string]billing.Invoice),
	}
}

// SaveOccurrences inserts new occurrences, skipping existing ids.
func (m *Memory) SaveOccurrences(_ context.Context, occurrences []schedule.SessionOccurrence) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inserted := 0
	for _, o := range occurrences {
		if _, exists := m.occurrences[o.ID]; exists {
			continue
		}
		m.occurrences[o.ID] = o
		inserted++
	}
	return inserted, nil
}

func (m *Memory) GetOccurrence(_ context.Context, id schedule.SessionID) (*schedule.SessionOccurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	o, ok := m.occurrences[id]
	if !ok {
		return nil, schedule.ErrSessionNotFound
	}
	return &o, nil
}

func (m *Memory) LoadOccurrences(_ context.Context, filter schedule.OccurrenceFilter) ([]schedule.SessionOccurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []schedule.SessionOccurrence
	for _, o := range m.occurrences {
		if filter.Matches(o) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Interval.Start().Equal(out[j].Interval.Start()) {
			return out[i].Interval.Start().Before(out[j].Interval.Start())
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateStatus is a compare-and-swap against the stored status.
func (m *Memory) UpdateStatus(_ context.Context, id schedule.SessionID, expect, next schedule.PaymentStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateStatusLocked(id, expect, next)
}

func (m *Memory) updateStatusLocked(id schedule.SessionID, expect, next schedule.PaymentStatus) error {
	o, ok := m.occurrences[id]
	if !ok {
		return schedule.ErrSessionNotFound
	}
	if o.Status != expect {
		return schedule.ErrStatusConflict
	}
	o.Status = next
	m.occurrences[id] = o
	return nil
}

func (m *Memory) DeleteOccurrence(_ context.Context, id schedule.SessionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.occurrences[id]; !ok {
		return schedule.ErrSessionNotFound
	}
	delete(m.occurrences, id)
	return nil
}

func (m *Memory) SaveRule(_ context.Context, rule schedule.RecurrenceRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[rule.ID] = rule
	return nil
}

func (m *Memory) GetRule(_ context.Context, id schedule.RuleID) (*schedule.RecurrenceRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rules[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *Memory) ListRules(_ context.Context, activeOnly bool) ([]schedule.RecurrenceRule, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []schedule.RecurrenceRule
	for _, r := range m.rules {
		if activeOnly && !r.Active {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) SetRuleActive(_ context.Context, id schedule.RuleID, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rules[id]
	if !ok {
		return schedule.ErrInvalidRule
	}
	r.Active = active
	m.rules[id] = r
	return nil
}

func (m *Memory) DeleteRule(_ context.Context, id schedule.RuleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rules[id]; !ok {
		return schedule.ErrInvalidRule
	}
	delete(m.rules, id)
	return nil
}

// =============================================================================
// INVOICE STORE
// =============================================================================

// CommitInvoice re-validates and flips every listed session under one
// lock, so concurrent commits cannot both claim an occurrence.
func (m *Memory) CommitInvoice(_ context.Context, invoice billing.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	claimed := make(map[schedule.SessionID]bool, len(invoice.SessionIDs))
	for _, id := range invoice.SessionIDs {
		o, ok := m.occurrences[id]
		if !ok {
			return schedule.ErrSessionNotFound
		}
		if o.Status != schedule.StatusUnpaid {
			return &billing.NotUnpaidError{SessionID: id, Status: o.Status}
		}
		// A repeated id fails the same way it would once the first line
		// item had flipped it.
		if claimed[id] {
			return &billing.NotUnpaidError{SessionID: id, Status: schedule.StatusInvoiced}
		}
		claimed[id] = true
	}
	for _, id := range invoice.SessionIDs {
		o := m.occurrences[id]
		o.Status = schedule.StatusInvoiced
		m.occurrences[id] = o
	}

	m.invoices[invoice.ID] = invoice
	m.invoiceIDs = append(m.invoiceIDs, invoice.ID)
	return nil
}

func (m *Memory) GetInvoice(_ context.Context, id string) (*billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	inv, ok := m.invoices[id]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (m *Memory) ListInvoices(_ context.Context) ([]billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]billing.Invoice, 0, len(m.invoiceIDs))
	for _, id := range m.invoiceIDs {
		out = append(out, m.invoices[id])
	}
	return out, nil
}
