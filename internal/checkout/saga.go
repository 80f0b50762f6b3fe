package checkout

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"brewpos/internal/cart"
	"brewpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// StepKind names one external call of a checkout.
type StepKind string

const (
	StepCreateInvoice    StepKind = "create_invoice"
	StepDebitIngredient  StepKind = "debit_ingredient"
	StepCreateSaleRecord StepKind = "create_sale_record"
)

// Step is one recorded unit of work. Done is set once the store accepted it;
// Attempted when the last call failed without a rejection, so the write may
// have committed; Compensated once Abandon reversed it.
type Step struct {
	Kind           StepKind        `json:"kind"`
	IngredientID   uuid.UUID       `json:"ingredient_id,omitempty"`
	IngredientName string          `json:"ingredient_name,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	Line           int             `json:"line"`
	Done           bool            `json:"done"`
	Attempted      bool            `json:"attempted,omitempty"`
	Compensated    bool            `json:"compensated,omitempty"`
}

func (st *Step) touched() bool { return st.Done || st.Attempted }

// Saga is the checkout of one cart: the invoice snapshot plus the ordered
// steps that persist it. Steps run create invoice → debits → sale records.
type Saga struct {
	Invoice model.Invoice `json:"invoice"`
	Steps   []Step        `json:"steps"`
}

// InvoiceNumber formats the human readable invoice number,
// INV-YYYYMMDD-HHMMSS-XXXX with the first four hex digits of the id.
func InvoiceNumber(id uuid.UUID, at time.Time) string {
	return fmt.Sprintf("INV-%s-%s", at.Format("20060102-150405"), strings.ToUpper(id.String()[:4]))
}

// buildSaga snapshots the cart into an invoice and plans its steps.
func buildSaga(c *cart.Cart, method model.PaymentMethod, profileName string, opts Options, id uuid.UUID, now time.Time) *Saga {
	lines := make([]model.InvoiceLine, 0, len(c.Items))
	for _, l := range c.Items {
		lines = append(lines, model.InvoiceLine{
			ProductID:   l.ProductID,
			ProductName: l.ProductName,
			Size:        l.Size,
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.Total(),
			Recipe:      append([]model.RecipeLine(nil), l.Recipe...),
		})
	}
	usage := model.UsageOf(lines)

	inv := model.Invoice{
		ID:                 id,
		Number:             InvoiceNumber(id, now),
		Lines:              lines,
		Consumption:        usage,
		TotalAmount:        c.Total(),
		TotalQuantity:      c.ItemCount(),
		PaymentMethod:      method,
		PaymentProfileName: profileName,
		Status:             model.InvoiceCompleted,
		AllowNegativeStock: opts.AllowNegativeStock,
		CreatedAt:          now,
	}
	if opts.CustomerEmail != "" {
		email := opts.CustomerEmail
		inv.CustomerEmail = &email
	}

	steps := make([]Step, 0, 1+len(usage)+len(lines))
	steps = append(steps, Step{Kind: StepCreateInvoice})
	for _, u := range usage {
		steps = append(steps, Step{
			Kind:           StepDebitIngredient,
			IngredientID:   u.IngredientID,
			IngredientName: u.IngredientName,
			Quantity:       u.Quantity,
		})
	}
	for i := range lines {
		steps = append(steps, Step{Kind: StepCreateSaleRecord, Line: i})
	}
	return &Saga{Invoice: inv, Steps: steps}
}

// Progressed reports whether any step has been applied or may have been.
func (s *Saga) Progressed() bool {
	if s == nil {
		return false
	}
	for _, st := range s.Steps {
		if st.touched() {
			return true
		}
	}
	return false
}

// Compensating reports whether Abandon already reversed part of the saga.
func (s *Saga) Compensating() bool {
	if s == nil {
		return false
	}
	for _, st := range s.Steps {
		if st.Compensated {
			return true
		}
	}
	return false
}

// Pending counts the steps still to run.
func (s *Saga) Pending() int {
	n := 0
	for _, st := range s.Steps {
		if !st.Done {
			n++
		}
	}
	return n
}

func (s *Saga) saleRecord(line int) *model.SaleRecord {
	l := s.Invoice.Lines[line]
	return &model.SaleRecord{
		ID:            SaleRecordID(s.Invoice.ID, line),
		InvoiceID:     s.Invoice.ID,
		ProductID:     l.ProductID,
		ProductName:   l.ProductName,
		Size:          l.Size,
		Quantity:      l.Quantity,
		UnitPrice:     l.UnitPrice,
		LineTotal:     l.LineTotal,
		PaymentMethod: s.Invoice.PaymentMethod,
		Status:        model.InvoiceCompleted,
		CreatedAt:     s.Invoice.CreatedAt,
	}
}

// SaleRecordID derives the id of the sale record of an invoice line, so a
// repeated write of the same line hits the same row.
func SaleRecordID(invoiceID uuid.UUID, line int) uuid.UUID {
	return uuid.NewSHA1(invoiceID, []byte(strconv.Itoa(line)))
}

func (s *Saga) stockRef(kind, reason string) model.StockRef {
	id := s.Invoice.ID
	return model.StockRef{Kind: kind, Reason: reason, ReferenceID: &id}
}
