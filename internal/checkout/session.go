package checkout

import (
	"time"

	"brewpos/internal/cart"
	"brewpos/internal/model"

	"github.com/google/uuid"
)

// State of a checkout session.
type State string

const (
	StateIdle                 State = "idle"
	StateReviewing            State = "reviewing"
	StateSubmitting           State = "submitting"
	StateAwaitingConfirmation State = "awaiting_confirmation"
	StateCompleted            State = "completed"
	StateFailed               State = "failed"
)

// Session is one terminal's in-progress checkout. It is plain data so the
// service layer can persist it between requests.
type Session struct {
	ID        uuid.UUID             `json:"id"`
	Cart      *cart.Cart            `json:"cart"`
	State     State                 `json:"state"`
	Method    model.PaymentMethod   `json:"method,omitempty"`
	Profile   *model.PaymentProfile `json:"profile,omitempty"`
	Payload   string                `json:"payload,omitempty"`
	Saga      *Saga                 `json:"saga,omitempty"`
	LastError string                `json:"last_error,omitempty"`

	// LastInvoiceID is the invoice of the most recent completed checkout.
	LastInvoiceID *uuid.UUID `json:"last_invoice_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession returns an idle session with an empty cart.
func NewSession(id uuid.UUID, now time.Time) *Session {
	return &Session{ID: id, Cart: cart.New(), State: StateIdle, CreatedAt: now, UpdatedAt: now}
}

// Editable returns nil when the cart may be changed.
func (s *Session) Editable() error {
	switch s.State {
	case StateAwaitingConfirmation:
		return ErrPaymentPending
	case StateSubmitting:
		return ErrCheckoutInFlight
	case StateFailed:
		if s.Saga.Progressed() {
			return ErrCheckoutInFlight
		}
	}
	return nil
}

// Touch re-derives idle/reviewing from the cart after an edit. Sessions that
// are waiting on a payment or a pending saga are left alone.
func (s *Session) Touch() {
	if s.Editable() != nil {
		return
	}
	if s.Cart == nil {
		s.Cart = cart.New()
	}
	if s.State == StateFailed {
		s.Saga = nil
		s.Payload = ""
	}
	if s.Cart.Empty() {
		s.State = StateIdle
	} else {
		s.State = StateReviewing
	}
}

func (s *Session) reset() {
	s.Saga = nil
	s.Payload = ""
	s.Method = ""
	s.LastError = ""
	s.State = ""
	s.Touch()
}
