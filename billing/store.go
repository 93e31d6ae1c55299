package billing

import (
	"context"
)

// InvoiceStore is the embedding application's commit boundary for invoice
// creation. CommitInvoice must behave as a single transaction against the
// backing store: re-validate that every listed session is still Unpaid,
// flip them all to Invoiced, and persist the invoice - or change nothing
// and return a NotUnpaidError. This is what keeps two concurrent
// selections from both invoicing the same occurrence.
type InvoiceStore interface {
	CommitInvoice(ctx context.Context, invoice Invoice) error
	GetInvoice(ctx context.Context, id string) (*Invoice, error)
	ListInvoices(ctx context.Context) ([]Invoice, error)
}
