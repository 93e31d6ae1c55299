package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/schedule-engine/billing"
	"github.com/warp/schedule-engine/schedule"
	"github.com/warp/schedule-engine/schedule/store"
)

// Interface compliance.
var (
	_ schedule.SessionStore = (*store.Memory)(nil)
	_ billing.InvoiceStore  = (*store.Memory)(nil)
)

func occ(t *testing.T, id string, day int) schedule.SessionOccurrence {
	t.Helper()
	start := time.Date(2025, time.September, day, 9, 0, 0, 0, time.UTC)
	iv, err := schedule.NewInterval(start, start.Add(time.Hour))
	if err != nil {
		t.Fatalf("unexpected interval error: %v", err)
	}
	return schedule.SessionOccurrence{
		ID:         schedule.SessionID(id),
		ResourceID: "tutor-1",
		Interval:   iv,
		Price:      decimal.RequireFromString("60"),
		Status:     schedule.StatusUnpaid,
	}
}

func TestMemory_SaveSkipsExisting(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	n, err := m.SaveOccurrences(ctx, []schedule.SessionOccurrence{occ(t, "s1", 1), occ(t, "s2", 3)})
	if err != nil || n != 2 {
		t.Fatalf("expected 2 inserted, got %d (%v)", n, err)
	}

	n, err = m.SaveOccurrences(ctx, []schedule.SessionOccurrence{occ(t, "s1", 1), occ(t, "s3", 8)})
	if err != nil || n != 1 {
		t.Fatalf("expected 1 inserted on re-save, got %d (%v)", n, err)
	}
}

func TestMemory_UpdateStatus_CAS(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	if _, err := m.SaveOccurrences(ctx, []schedule.SessionOccurrence{occ(t, "s1", 1)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := m.UpdateStatus(ctx, "s1", schedule.StatusUnpaid, schedule.StatusPaid); err != nil {
		t.Fatalf("expected swap to succeed: %v", err)
	}
	if err := m.UpdateStatus(ctx, "s1", schedule.StatusUnpaid, schedule.StatusWaived); !errors.Is(err, schedule.ErrStatusConflict) {
		t.Errorf("stale swap: expected ErrStatusConflict, got %v", err)
	}
	if err := m.UpdateStatus(ctx, "ghost", schedule.StatusUnpaid, schedule.StatusPaid); !errors.Is(err, schedule.ErrSessionNotFound) {
		t.Errorf("missing session: expected ErrSessionNotFound, got %v", err)
	}
}

func TestMemory_LoadOccurrences_Ordered(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	if _, err := m.SaveOccurrences(ctx, []schedule.SessionOccurrence{
		occ(t, "s2", 10), occ(t, "s1", 1), occ(t, "s3", 20),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := m.LoadOccurrences(ctx, schedule.OccurrenceFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0].ID != "s1" || got[2].ID != "s3" {
		t.Errorf("expected chronological order, got %+v", got)
	}
}

func TestMemory_CommitInvoice_AllOrNothing(t *testing.T) {
	// GIVEN: One selected session already invoiced
	// WHEN: Committing an invoice over both
	// THEN: NotUnpaidError and the other session stays unpaid

	m := store.NewMemory()
	ctx := context.Background()

	if _, err := m.SaveOccurrences(ctx, []schedule.SessionOccurrence{occ(t, "s1", 1), occ(t, "s2", 3)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := m.UpdateStatus(ctx, "s2", schedule.StatusUnpaid, schedule.StatusInvoiced); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := m.CommitInvoice(ctx, billing.Invoice{
		ID:          "inv-1",
		SessionIDs:  []schedule.SessionID{"s1", "s2"},
		TotalAmount: decimal.RequireFromString("120"),
		GeneratedAt: time.Now(),
	})

	var nuErr *billing.NotUnpaidError
	if !errors.As(err, &nuErr) {
		t.Fatalf("expected NotUnpaidError, got %v", err)
	}

	got, err := m.GetOccurrence(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != schedule.StatusUnpaid {
		t.Errorf("failed commit must not flip s1, got %s", got.Status)
	}
	if inv, _ := m.GetInvoice(ctx, "inv-1"); inv != nil {
		t.Error("failed commit must not persist the invoice")
	}
}

func TestMemory_CommitInvoice_DuplicateSessionRejected(t *testing.T) {
	// GIVEN: An invoice listing the same unpaid session twice
	// WHEN: Committing it
	// THEN: NotUnpaidError, nothing flips and no invoice is persisted

	m := store.NewMemory()
	ctx := context.Background()

	if _, err := m.SaveOccurrences(ctx, []schedule.SessionOccurrence{occ(t, "s1", 1)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := m.CommitInvoice(ctx, billing.Invoice{
		ID:          "inv-1",
		SessionIDs:  []schedule.SessionID{"s1", "s1"},
		TotalAmount: decimal.RequireFromString("120"),
		GeneratedAt: time.Now(),
	})

	var nuErr *billing.NotUnpaidError
	if !errors.As(err, &nuErr) {
		t.Fatalf("expected NotUnpaidError, got %v", err)
	}
	if nuErr.SessionID != "s1" {
		t.Errorf("expected s1 to block the commit, got %s", nuErr.SessionID)
	}

	got, err := m.GetOccurrence(ctx, "s1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != schedule.StatusUnpaid {
		t.Errorf("failed commit must not flip s1, got %s", got.Status)
	}
	if inv, _ := m.GetInvoice(ctx, "inv-1"); inv != nil {
		t.Error("failed commit must not persist the invoice")
	}
}

func TestMemory_InvoicesListedInCommitOrder(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()

	if _, err := m.SaveOccurrences(ctx, []schedule.SessionOccurrence{occ(t, "s1", 1), occ(t, "s2", 3)}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, id := range []schedule.SessionID{"s1", "s2"} {
		err := m.CommitInvoice(ctx, billing.Invoice{
			ID:          []string{"inv-1", "inv-2"}[i],
			SessionIDs:  []schedule.SessionID{id},
			TotalAmount: decimal.RequireFromString("60"),
			GeneratedAt: time.Now(),
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	invoices, err := m.ListInvoices(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(invoices) != 2 || invoices[0].ID != "inv-1" || invoices[1].ID != "inv-2" {
		t.Errorf("expected commit order, got %+v", invoices)
	}
}
