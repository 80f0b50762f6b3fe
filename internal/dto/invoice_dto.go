package dto

import "github.com/shopspring/decimal"

// InvoiceFilter is bound from the query string of GET /v1/invoices.
type InvoiceFilter struct {
	Date   string `form:"date"                 validate:"omitempty,datetime=2006-01-02"` // empty = any day
	Status string `form:"status,default=all"   validate:"omitempty,oneof=completed cancelled all"`
	Method string `form:"method"               validate:"omitempty,oneof=cash qr"`
	Page   int    `form:"page,default=1"       validate:"min=1"`
	Limit  int    `form:"limit,default=50"     validate:"min=1,max=200"`
}

type InvoiceLineResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

type IngredientUsageResponse struct {
	IngredientID   string          `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Unit           string          `json:"unit"`
	Quantity       decimal.Decimal `json:"quantity"`
}

type InvoiceResponse struct {
	ID                 string                    `json:"id"`
	Number             string                    `json:"number"`
	Lines              []InvoiceLineResponse     `json:"lines"`
	Consumption        []IngredientUsageResponse `json:"consumption"`
	TotalAmount        decimal.Decimal           `json:"total_amount"`
	TotalQuantity      int                       `json:"total_quantity"`
	PaymentMethod      string                    `json:"payment_method"`
	PaymentProfileName string                    `json:"payment_profile_name"`
	Status             string                    `json:"status"`
	AllowNegativeStock bool                      `json:"allow_negative_stock"`
	CustomerEmail      *string                   `json:"customer_email,omitempty"`
	CancelledAt        *string                   `json:"cancelled_at,omitempty"`
	CancelReason       *string                   `json:"cancel_reason,omitempty"`
	CreatedAt          string                    `json:"created_at"`
}

type InvoiceListResponse struct {
	Data  []InvoiceResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}

type CancelInvoiceRequest struct {
	Reason string `json:"reason" validate:"required,min=3,max=200"`
}

type CreditResponse struct {
	IngredientID   string          `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Quantity       decimal.Decimal `json:"quantity"`
	Restored       bool            `json:"restored"`
	Error          string          `json:"error,omitempty"`
}

type CancelInvoiceResponse struct {
	Invoice InvoiceResponse  `json:"invoice"`
	Credits []CreditResponse `json:"credits"`
	Partial bool             `json:"partial"`
}
