package dto

import "github.com/shopspring/decimal"

// ─── Filter ──────────────────────────────────────────────────────────────────

type ProductFilter struct {
	Category string `form:"category"`
	Kind     string `form:"kind"   validate:"omitempty,oneof=simple combo"`
	Name     string `form:"name"`
	Active   string `form:"active"` // "" = active only, "false", "all"
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type RecipeLineRequest struct {
	IngredientID string          `json:"ingredient_id" validate:"required,uuid"`
	Quantity     decimal.Decimal `json:"quantity"      validate:"gt=0"`
}

type ComboComponentRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	Size      string `json:"size"`
}

// ProductRequest creates or replaces a product. Simple products need
// price_by_size and recipe; combos need components and take their prices
// from them.
type ProductRequest struct {
	Name            string                     `json:"name"             validate:"required,min=2,max=120"`
	Category        string                     `json:"category"         validate:"required"`
	Kind            string                     `json:"kind"             validate:"required,oneof=simple combo"`
	Sizes           []string                   `json:"sizes"            validate:"required,min=1,dive,required,max=10"`
	PriceBySize     map[string]decimal.Decimal `json:"price_by_size"`
	Recipe          []RecipeLineRequest        `json:"recipe"           validate:"dive"`
	Components      []ComboComponentRequest    `json:"components"       validate:"dive"`
	DiscountPercent decimal.Decimal            `json:"discount_percent" validate:"min=0,max=50"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type AvailabilityResponse struct {
	MaxProducible      *int   `json:"max_producible"` // null = not limited by stock
	LimitingIngredient string `json:"limiting_ingredient,omitempty"`
	HasStock           bool   `json:"has_stock"`
}

type RecipeLineResponse struct {
	IngredientID   string          `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Unit           string          `json:"unit"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      decimal.Decimal `json:"unit_price"`
}

type ComboComponentResponse struct {
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Size        string `json:"size,omitempty"`
}

type ProductResponse struct {
	ID                  string                     `json:"id"`
	Name                string                     `json:"name"`
	Category            string                     `json:"category"`
	Kind                string                     `json:"kind"`
	Sizes               []string                   `json:"sizes"`
	PriceBySize         map[string]decimal.Decimal `json:"price_by_size"`
	OriginalPriceBySize map[string]decimal.Decimal `json:"original_price_by_size,omitempty"`
	Recipe              []RecipeLineResponse       `json:"recipe,omitempty"`
	Components          []ComboComponentResponse   `json:"components,omitempty"`
	DiscountPercent     decimal.Decimal            `json:"discount_percent"`
	TotalCost           decimal.Decimal            `json:"total_cost"`
	ProfitMargin        decimal.Decimal            `json:"profit_margin"`
	Active              bool                       `json:"active"`
	Availability        *AvailabilityResponse      `json:"availability,omitempty"`
}
