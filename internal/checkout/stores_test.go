package checkout_test

import (
	"context"
	"errors"
	"sync"

	"brewpos/internal/checkout"
	"brewpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var errStoreDown = errors.New("store unavailable")

type ledgerEntry struct {
	ID       uuid.UUID
	Ref      uuid.UUID
	Quantity decimal.Decimal // negative = debit
	Kind     string
}

// memStore is an in-memory InvoiceStore + InventoryStore with failure hooks.
// The fail* hooks refuse before writing; the late* hooks write and then
// report a timeout, like a commit racing the call deadline.
type memStore struct {
	mu          sync.Mutex
	invoices    map[uuid.UUID]*model.Invoice
	saleRecords []*model.SaleRecord
	stock       map[uuid.UUID]decimal.Decimal
	ledger      []ledgerEntry

	failInvoice    int // fail the next N CreateInvoice calls
	rejectInvoice  int
	lateInvoice    int
	failDebitOf    map[uuid.UUID]int
	lateDebitOf    map[uuid.UUID]int
	failCreditOf   map[uuid.UUID]int
	failSaleRecord int
	invoiceCalls   int
}

var (
	_ checkout.InvoiceStore   = (*memStore)(nil)
	_ checkout.InventoryStore = (*memStore)(nil)
)

func newMemStore(stock map[uuid.UUID]decimal.Decimal) *memStore {
	return &memStore{
		invoices:     map[uuid.UUID]*model.Invoice{},
		stock:        stock,
		failDebitOf:  map[uuid.UUID]int{},
		lateDebitOf:  map[uuid.UUID]int{},
		failCreditOf: map[uuid.UUID]int{},
	}
}

func (m *memStore) CreateInvoice(_ context.Context, inv *model.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invoiceCalls++
	if m.failInvoice > 0 {
		m.failInvoice--
		return errStoreDown
	}
	if m.rejectInvoice > 0 {
		m.rejectInvoice--
		return checkout.Rejected(errors.New("invoice refused"))
	}
	if _, dup := m.invoices[inv.ID]; !dup {
		cp := *inv
		m.invoices[inv.ID] = &cp
	}
	if m.lateInvoice > 0 {
		m.lateInvoice--
		return context.DeadlineExceeded
	}
	return nil
}

func (m *memStore) UpdateInvoice(_ context.Context, id uuid.UUID, patch model.InvoicePatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invoices[id]
	if !ok {
		return errors.New("invoice not found")
	}
	if patch.Status != nil {
		inv.Status = *patch.Status
	}
	if patch.CancelledAt != nil {
		inv.CancelledAt = patch.CancelledAt
	}
	if patch.CancelReason != nil {
		inv.CancelReason = patch.CancelReason
	}
	return nil
}

func (m *memStore) CreateSaleRecord(_ context.Context, rec *model.SaleRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSaleRecord > 0 {
		m.failSaleRecord--
		return errStoreDown
	}
	for _, r := range m.saleRecords {
		if r.ID == rec.ID {
			return nil
		}
	}
	cp := *rec
	m.saleRecords = append(m.saleRecords, &cp)
	return nil
}

func (m *memStore) CancelSaleRecords(_ context.Context, invoiceID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.saleRecords {
		if r.InvoiceID == invoiceID {
			r.Status = model.InvoiceCancelled
		}
	}
	return nil
}

func (m *memStore) DebitIngredient(_ context.Context, id uuid.UUID, qty decimal.Decimal, allowNegative bool, ref model.StockRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDebitOf[id] > 0 {
		m.failDebitOf[id]--
		return errStoreDown
	}
	if m.recorded(id, ref) {
		return nil
	}
	after := m.stock[id].Sub(qty)
	if after.IsNegative() && !allowNegative {
		return checkout.Rejected(errors.New("insufficient stock"))
	}
	m.stock[id] = after
	m.ledger = append(m.ledger, ledgerEntry{ID: id, Ref: *ref.ReferenceID, Quantity: qty.Neg(), Kind: ref.Kind})
	if m.lateDebitOf[id] > 0 {
		m.lateDebitOf[id]--
		return context.DeadlineExceeded
	}
	return nil
}

func (m *memStore) CreditIngredient(_ context.Context, id uuid.UUID, qty decimal.Decimal, ref model.StockRef) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreditOf[id] > 0 {
		m.failCreditOf[id]--
		return errStoreDown
	}
	if m.recorded(id, ref) {
		return nil
	}
	m.stock[id] = m.stock[id].Add(qty)
	m.ledger = append(m.ledger, ledgerEntry{ID: id, Ref: *ref.ReferenceID, Quantity: qty, Kind: ref.Kind})
	return nil
}

// recorded reports whether the ledger already holds this movement.
func (m *memStore) recorded(id uuid.UUID, ref model.StockRef) bool {
	for _, e := range m.ledger {
		if e.ID == id && e.Ref == *ref.ReferenceID && e.Kind == ref.Kind {
			return true
		}
	}
	return false
}

// net sums ledger quantities per ingredient for the given movement kind.
func (m *memStore) net(kind string) map[uuid.UUID]decimal.Decimal {
	out := map[uuid.UUID]decimal.Decimal{}
	for _, e := range m.ledger {
		if e.Kind == kind {
			out[e.ID] = out[e.ID].Add(e.Quantity)
		}
	}
	return out
}
