package checkout

import (
	"context"
	"fmt"
	"time"

	"brewpos/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// CreditOutcome is the result of restoring one ingredient.
type CreditOutcome struct {
	IngredientID   uuid.UUID       `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Quantity       decimal.Decimal `json:"quantity"`
	Error          string          `json:"error,omitempty"`
}

// OK reports whether the credit was applied.
func (c CreditOutcome) OK() bool { return c.Error == "" }

// CancelResult reports every external call a cancellation made.
type CancelResult struct {
	Invoice        *model.Invoice  `json:"-"`
	Credits        []CreditOutcome `json:"credits"`
	SaleRecordsErr string          `json:"sale_records_error,omitempty"`
}

// Failed counts the credits that were not applied.
func (r *CancelResult) Failed() int {
	n := 0
	for _, c := range r.Credits {
		if !c.OK() {
			n++
		}
	}
	return n
}

// Canceller voids completed invoices and credits back what they consumed.
type Canceller struct {
	invoices  InvoiceStore
	inventory InventoryStore
	timeout   time.Duration
	now       func() time.Time
}

// NewCanceller wires the stores. A timeout ≤ 0 uses DefaultCallTimeout.
func NewCanceller(invoices InvoiceStore, inventory InventoryStore, timeout time.Duration) *Canceller {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	return &Canceller{invoices: invoices, inventory: inventory, timeout: timeout, now: time.Now}
}

// Cancel marks inv cancelled, then credits each ingredient of its consumption
// (keyed by ingredient id, recipe quantity × line quantity) and cancels its
// sale records. Credits are attempted independently; if any fails the
// returned error wraps ErrPartialRestore and the result says which.
func (c *Canceller) Cancel(ctx context.Context, inv *model.Invoice, reason string) (*CancelResult, error) {
	if inv.Status != model.InvoiceCompleted {
		return nil, ErrAlreadyCancelled
	}

	status := model.InvoiceCancelled
	at := c.now()
	patch := model.InvoicePatch{Status: &status, CancelledAt: &at, CancelReason: &reason}
	if err := c.call(ctx, func(ctx context.Context) error {
		return c.invoices.UpdateInvoice(ctx, inv.ID, patch)
	}); err != nil {
		return nil, fmt.Errorf("cancel invoice %s: %w", inv.Number, err)
	}
	inv.Status = status
	inv.CancelledAt = &at
	inv.CancelReason = &reason

	res := &CancelResult{Invoice: inv}
	id := inv.ID
	ref := model.StockRef{Kind: model.MovementCancelRestore, Reason: "cancel " + inv.Number + ": " + reason, ReferenceID: &id}
	for _, u := range inv.Usage() {
		out := CreditOutcome{IngredientID: u.IngredientID, IngredientName: u.IngredientName, Quantity: u.Quantity}
		if err := c.call(ctx, func(ctx context.Context) error {
			return c.inventory.CreditIngredient(ctx, u.IngredientID, u.Quantity, ref)
		}); err != nil {
			out.Error = err.Error()
			log.Error().Err(err).Str("invoice", inv.Number).Str("ingredient", u.IngredientName).Msg("stock restore failed")
		}
		res.Credits = append(res.Credits, out)
	}

	if err := c.call(ctx, func(ctx context.Context) error {
		return c.invoices.CancelSaleRecords(ctx, inv.ID)
	}); err != nil {
		res.SaleRecordsErr = err.Error()
		log.Error().Err(err).Str("invoice", inv.Number).Msg("sale records not cancelled")
	}

	if n := res.Failed(); n > 0 {
		return res, fmt.Errorf("%w: %d of %d ingredients", ErrPartialRestore, n, len(res.Credits))
	}
	return res, nil
}

func (c *Canceller) call(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return fn(ctx)
}
