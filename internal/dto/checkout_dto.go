package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AddItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Size      string `json:"size"       validate:"required"`
}

// SetQuantityRequest: a quantity of zero or less removes the line.
type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type SubmitCashRequest struct {
	// CustomerEmail: optional; when present the receipt PDF is mailed.
	CustomerEmail *string `json:"customer_email" validate:"omitempty,email"`
}

type SubmitQRRequest struct {
	PaymentProfileID string `json:"payment_profile_id" validate:"required,uuid"`
}

type ConfirmPaidRequest struct {
	CustomerEmail *string `json:"customer_email" validate:"omitempty,email"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type CartLineResponse struct {
	Key                string          `json:"key"`
	ProductID          string          `json:"product_id"`
	ProductName        string          `json:"product_name"`
	Size               string          `json:"size"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	Quantity           int             `json:"quantity"`
	LineTotal          decimal.Decimal `json:"line_total"`
	MaxQuantity        *int            `json:"max_quantity"` // null = unlimited
	HasStock           bool            `json:"has_stock"`
	LimitingIngredient string          `json:"limiting_ingredient,omitempty"`
}

type SessionResponse struct {
	ID             string                  `json:"id"`
	State          string                  `json:"state"`
	Items          []CartLineResponse      `json:"items"`
	Total          decimal.Decimal         `json:"total"`
	ItemCount      int                     `json:"item_count"`
	Method         string                  `json:"method,omitempty"`
	PaymentProfile *PaymentProfileResponse `json:"payment_profile,omitempty"`
	Payload        string                  `json:"payload,omitempty"`
	PendingSteps   int                     `json:"pending_steps,omitempty"`
	LastError      string                  `json:"last_error,omitempty"`
	LastInvoiceID  *string                 `json:"last_invoice_id,omitempty"`
}

type CheckoutResponse struct {
	Session SessionResponse `json:"session"`
	Invoice InvoiceResponse `json:"invoice"`
}
