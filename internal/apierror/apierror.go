// Package apierror provides the error envelopes returned by the API.
// Handlers never put store errors or stack traces in these.
package apierror

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ValidationError wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Validation failed", Fields: fields}
}

// StockError is returned when a cart edit or sale would exceed stock.
type StockError struct {
	Detail     string `json:"detail"`
	Ingredient string `json:"ingredient,omitempty"`
	Available  *int   `json:"available,omitempty"`
}
