package cart

import (
	"errors"
	"fmt"
)

var (
	ErrUnknownSize  = errors.New("size not offered for this product")
	ErrUnpriced     = errors.New("product has no price for this size")
	ErrLineNotFound = errors.New("cart line not found")
	ErrInvalidKey   = errors.New("invalid cart line key")
)

// InsufficientStockError is returned when a product cannot be added because
// an ingredient ran out.
type InsufficientStockError struct {
	Ingredient string
	Available  int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock, limited by %s", e.Ingredient)
}

// QuantityLimitError is returned when a quantity change exceeds the line ceiling.
type QuantityLimitError struct {
	Max        int
	Ingredient string
}

func (e *QuantityLimitError) Error() string {
	if e.Ingredient == "" {
		return fmt.Sprintf("quantity exceeds the available maximum of %d", e.Max)
	}
	return fmt.Sprintf("quantity exceeds the available maximum of %d (limited by %s)", e.Max, e.Ingredient)
}
