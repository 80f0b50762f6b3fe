package checkout

import (
	"context"

	"brewpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// InvoiceStore persists invoices and their per-line sale records.
// CreateInvoice and CreateSaleRecord succeed without writing when a row with
// the same id exists, so a call that timed out after committing can be
// repeated.
type InvoiceStore interface {
	CreateInvoice(ctx context.Context, inv *model.Invoice) error
	UpdateInvoice(ctx context.Context, id uuid.UUID, patch model.InvoicePatch) error
	CreateSaleRecord(ctx context.Context, rec *model.SaleRecord) error
	CancelSaleRecords(ctx context.Context, invoiceID uuid.UUID) error
}

// InventoryStore debits and credits ingredient stock.
// A debit that would take stock below zero fails unless allowNegative is set,
// and that refusal is wrapped with Rejected. A call whose ref carries a
// ReferenceID is applied at most once per (reference, ingredient, kind).
type InventoryStore interface {
	DebitIngredient(ctx context.Context, id uuid.UUID, qty decimal.Decimal, allowNegative bool, ref model.StockRef) error
	CreditIngredient(ctx context.Context, id uuid.UUID, qty decimal.Decimal, ref model.StockRef) error
}
