package dto

import "github.com/shopspring/decimal"

type CreateIngredientRequest struct {
	Name      string          `json:"name"       validate:"required,min=2,max=80"`
	Unit      string          `json:"unit"       validate:"required,max=10"`
	UnitPrice decimal.Decimal `json:"unit_price" validate:"min=0"`
	Stock     decimal.Decimal `json:"stock"      validate:"min=0"`
	MinStock  decimal.Decimal `json:"min_stock"  validate:"min=0"`
}

type UpdateIngredientRequest struct {
	Name      *string          `json:"name"       validate:"omitempty,min=2,max=80"`
	Unit      *string          `json:"unit"       validate:"omitempty,max=10"`
	UnitPrice *decimal.Decimal `json:"unit_price"`
	MinStock  *decimal.Decimal `json:"min_stock"`
}

// StockAdjustRequest is used for both stock-in and stock-out.
type StockAdjustRequest struct {
	Quantity decimal.Decimal `json:"quantity" validate:"gt=0"`
	Reason   string          `json:"reason"   validate:"max=200"`
}

type IngredientResponse struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	Stock        decimal.Decimal `json:"stock"`
	MinStock     decimal.Decimal `json:"min_stock"`
	BelowMinimum bool            `json:"below_minimum"`
}

type MovementFilter struct {
	IngredientID string `form:"ingredient_id" validate:"omitempty,uuid"`
	Kind         string `form:"kind"`
	Page         int    `form:"page,default=1"    validate:"min=1"`
	Limit        int    `form:"limit,default=100" validate:"min=1,max=500"`
}

type StockMovementResponse struct {
	ID             string          `json:"id"`
	IngredientID   string          `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name,omitempty"`
	Kind           string          `json:"kind"`
	Quantity       decimal.Decimal `json:"quantity"`
	StockBefore    decimal.Decimal `json:"stock_before"`
	StockAfter     decimal.Decimal `json:"stock_after"`
	Reason         string          `json:"reason,omitempty"`
	ReferenceID    *string         `json:"reference_id,omitempty"`
	CreatedAt      string          `json:"created_at"`
}

type MovementListResponse struct {
	Data  []StockMovementResponse `json:"data"`
	Total int64                   `json:"total"`
	Page  int                     `json:"page"`
	Limit int                     `json:"limit"`
}

type SettingsResponse struct {
	AllowNegativeStock bool `json:"allow_negative_stock"`
}

type UpdateSettingsRequest struct {
	AllowNegativeStock *bool `json:"allow_negative_stock" validate:"required"`
}
