// Package checkout turns a cart into an invoice, ingredient debits and sale
// records, and reverses completed sales.
package checkout

import (
	"context"
	"errors"
	"time"

	"brewpos/internal/model"
	"brewpos/internal/vietqr"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultCallTimeout bounds each external store call.
const DefaultCallTimeout = 5 * time.Second

// AbandonReason is written on invoices voided by Abandon.
const AbandonReason = "checkout abandoned"

// Options are the per-request settings of a checkout.
type Options struct {
	AllowNegativeStock bool
	CustomerEmail      string
}

// Orchestrator drives the checkout state machine of a Session.
// It is stateless; all progress lives in the Session.
type Orchestrator struct {
	invoices  InvoiceStore
	inventory InventoryStore
	timeout   time.Duration
	now       func() time.Time
	newID     func() uuid.UUID
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option { return func(o *Orchestrator) { o.now = now } }

// WithIDs overrides uuid.New for invoice ids.
func WithIDs(newID func() uuid.UUID) Option { return func(o *Orchestrator) { o.newID = newID } }

// NewOrchestrator wires the stores. A timeout ≤ 0 uses DefaultCallTimeout.
func NewOrchestrator(invoices InvoiceStore, inventory InventoryStore, timeout time.Duration, opts ...Option) *Orchestrator {
	if timeout <= 0 {
		timeout = DefaultCallTimeout
	}
	o := &Orchestrator{
		invoices:  invoices,
		inventory: inventory,
		timeout:   timeout,
		now:       time.Now,
		newID:     uuid.New,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// SubmitCash checks out the cart as a cash sale. A failed cash saga is
// resumed where it stopped.
func (o *Orchestrator) SubmitCash(ctx context.Context, s *Session, opts Options) (*model.Invoice, error) {
	switch {
	case s.State == StateAwaitingConfirmation:
		return nil, ErrPaymentPending
	case s.State == StateFailed && s.Saga.Progressed():
		if err := resumable(s.Saga, model.PaymentCash); err != nil {
			return nil, err
		}
		return o.run(ctx, s)
	}
	if s.Cart == nil || s.Cart.Empty() {
		return nil, ErrEmptyCart
	}
	s.Method = model.PaymentCash
	s.Saga = buildSaga(s.Cart, model.PaymentCash, model.ProfileNotApplicable, opts, o.newID(), o.now())
	return o.run(ctx, s)
}

// SubmitQR builds the transfer payload for the cart total and waits for the
// cashier to confirm payment.
func (o *Orchestrator) SubmitQR(s *Session, profile *model.PaymentProfile) (string, error) {
	if err := s.Editable(); err != nil && !errors.Is(err, ErrPaymentPending) {
		return "", err
	}
	if s.Cart == nil || s.Cart.Empty() {
		return "", ErrEmptyCart
	}
	if profile == nil {
		return "", ErrNoPaymentProfile
	}

	items := make([]vietqr.Item, 0, len(s.Cart.Items))
	for _, l := range s.Cart.Items {
		items = append(items, vietqr.Item{Name: l.ProductName, Size: l.Size, Quantity: l.Quantity})
	}
	payload, err := vietqr.Encode(profile, s.Cart.Total(), vietqr.Describe(items, vietqr.MaxDescriptionLen))
	if err != nil {
		return "", err
	}

	s.Saga = nil
	s.Method = model.PaymentQR
	s.Profile = profile
	s.Payload = payload
	s.LastError = ""
	s.State = StateAwaitingConfirmation
	return payload, nil
}

// ConfirmPaid records a QR sale the cashier attested as paid. A failed QR
// saga is resumed where it stopped.
func (o *Orchestrator) ConfirmPaid(ctx context.Context, s *Session, opts Options) (*model.Invoice, error) {
	if s.State == StateFailed && s.Saga.Progressed() {
		if err := resumable(s.Saga, model.PaymentQR); err != nil {
			return nil, err
		}
		return o.run(ctx, s)
	}
	if s.State != StateAwaitingConfirmation && !(s.State == StateFailed && s.Method == model.PaymentQR && s.Payload != "") {
		return nil, ErrInvalidState
	}
	if s.Profile == nil {
		return nil, ErrNoPaymentProfile
	}
	if s.Cart == nil || s.Cart.Empty() {
		return nil, ErrEmptyCart
	}
	s.Saga = buildSaga(s.Cart, model.PaymentQR, s.Profile.Name, opts, o.newID(), o.now())
	return o.run(ctx, s)
}

// CancelPayment drops a pending QR payload and returns to review.
func (o *Orchestrator) CancelPayment(s *Session) error {
	if s.State != StateAwaitingConfirmation {
		return ErrInvalidState
	}
	s.reset()
	return nil
}

// Abandon gives up on a failed or pending checkout. Applied steps of a failed
// saga are compensated in reverse: sale records cancelled, debits credited
// back and the invoice voided. A step whose call failed in doubt is first
// repeated, which the stores make a no-op if it had committed, and then
// compensated like the others. The cart is kept.
func (o *Orchestrator) Abandon(ctx context.Context, s *Session) error {
	if s.State != StateFailed && s.State != StateAwaitingConfirmation {
		return ErrInvalidState
	}
	if saga := s.Saga; saga.Progressed() {
		if err := o.compensate(ctx, saga); err != nil {
			s.LastError = err.Error()
			return err
		}
		log.Info().Str("invoice", saga.Invoice.Number).Msg("checkout abandoned, applied steps compensated")
	}
	s.reset()
	return nil
}

func (o *Orchestrator) run(ctx context.Context, s *Session) (*model.Invoice, error) {
	saga := s.Saga
	s.State = StateSubmitting
	for i := range saga.Steps {
		st := &saga.Steps[i]
		if st.Done {
			continue
		}
		if err := o.apply(ctx, saga, st); err != nil {
			st.Attempted = !IsRejected(err)
			s.State = StateFailed
			stepErr := &StepError{Step: st.Kind, Ingredient: st.IngredientName, Err: err}
			s.LastError = stepErr.Error()
			log.Warn().Err(err).
				Str("invoice", saga.Invoice.Number).
				Str("step", string(st.Kind)).
				Int("pending", saga.Pending()).
				Msg("checkout step failed")
			return nil, stepErr
		}
		st.Done = true
		st.Attempted = false
	}

	inv := saga.Invoice
	s.Cart.Clear()
	s.Saga = nil
	s.Payload = ""
	s.LastError = ""
	s.LastInvoiceID = &inv.ID
	s.State = StateCompleted
	return &inv, nil
}

func (o *Orchestrator) apply(ctx context.Context, saga *Saga, st *Step) error {
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	switch st.Kind {
	case StepCreateInvoice:
		inv := saga.Invoice
		return o.invoices.CreateInvoice(ctx, &inv)
	case StepDebitIngredient:
		ref := saga.stockRef(model.MovementSale, "sale "+saga.Invoice.Number)
		return o.inventory.DebitIngredient(ctx, st.IngredientID, st.Quantity, saga.Invoice.AllowNegativeStock, ref)
	case StepCreateSaleRecord:
		return o.invoices.CreateSaleRecord(ctx, saga.saleRecord(st.Line))
	default:
		return errors.New("unknown checkout step " + string(st.Kind))
	}
}

func (o *Orchestrator) compensate(ctx context.Context, saga *Saga) error {
	call := func(fn func(context.Context) error) error {
		c, cancel := context.WithTimeout(ctx, o.timeout)
		defer cancel()
		return fn(c)
	}

	if st := &saga.Steps[0]; st.Kind == StepCreateInvoice && !st.Done && st.Attempted {
		if err := o.apply(ctx, saga, st); err != nil {
			return &StepError{Step: StepCreateInvoice, Err: err}
		}
		st.Done = true
	}

	for _, st := range saga.Steps {
		if st.Kind == StepCreateSaleRecord && st.touched() {
			if err := call(func(c context.Context) error {
				return o.invoices.CancelSaleRecords(c, saga.Invoice.ID)
			}); err != nil {
				return &StepError{Step: StepCreateSaleRecord, Err: err}
			}
			break
		}
	}

	for i := len(saga.Steps) - 1; i >= 0; i-- {
		st := &saga.Steps[i]
		if st.Kind != StepDebitIngredient || !st.touched() || st.Compensated {
			continue
		}
		if !st.Done {
			// settle the doubtful debit so the credit below always has one to reverse
			sale := saga.stockRef(model.MovementSale, "sale "+saga.Invoice.Number)
			if err := call(func(c context.Context) error {
				return o.inventory.DebitIngredient(c, st.IngredientID, st.Quantity, true, sale)
			}); err != nil {
				return &StepError{Step: StepDebitIngredient, Ingredient: st.IngredientName, Err: err}
			}
			st.Done = true
		}
		ref := saga.stockRef(model.MovementCheckoutRollback, AbandonReason+" "+saga.Invoice.Number)
		if err := call(func(c context.Context) error {
			return o.inventory.CreditIngredient(c, st.IngredientID, st.Quantity, ref)
		}); err != nil {
			return &StepError{Step: StepDebitIngredient, Ingredient: st.IngredientName, Err: err}
		}
		st.Compensated = true
	}

	if st := saga.Steps[0]; st.Kind == StepCreateInvoice && st.Done {
		status := model.InvoiceCancelled
		at := o.now()
		reason := AbandonReason
		if err := call(func(c context.Context) error {
			return o.invoices.UpdateInvoice(c, saga.Invoice.ID, model.InvoicePatch{
				Status: &status, CancelledAt: &at, CancelReason: &reason,
			})
		}); err != nil {
			return &StepError{Step: StepCreateInvoice, Err: err}
		}
	}
	return nil
}

// resumable refuses to rerun a saga of another payment method or one that
// Abandon has started to reverse.
func resumable(saga *Saga, method model.PaymentMethod) error {
	if saga.Compensating() {
		return ErrAbandonPending
	}
	if saga.Invoice.PaymentMethod != method {
		return ErrCheckoutInFlight
	}
	return nil
}
