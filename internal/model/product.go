package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductKind discriminates simple products (made from a recipe) from combos
// (made from other products).
type ProductKind string

const (
	KindSimple ProductKind = "simple"
	KindCombo  ProductKind = "combo"
)

// RecipeLine is one ingredient consumption rule of a simple product.
// Unit and UnitPrice are denormalized at authoring time.
type RecipeLine struct {
	IngredientID   uuid.UUID       `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Unit           string          `json:"unit"`
	Quantity       decimal.Decimal `json:"quantity"` // per one unit of product
	UnitPrice      decimal.Decimal `json:"unit_price"`
}

// ComboComponent references a simple product inside a combo.
type ComboComponent struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Size        string    `json:"size"`
}

// Product is a sellable menu item. Recipe is populated for KindSimple,
// Components and DiscountPercent for KindCombo. Use Variant() instead of
// reading the kind-specific fields directly.
type Product struct {
	ID              uuid.UUID                  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name            string                     `gorm:"index;not null"`
	Category        string                     `gorm:"index;not null"`
	Kind            ProductKind                `gorm:"type:varchar(10);not null;default:'simple'"`
	Sizes           []string                   `gorm:"type:jsonb;serializer:json;not null"`
	PriceBySize     map[string]decimal.Decimal `gorm:"type:jsonb;serializer:json;not null"`
	Recipe          []RecipeLine               `gorm:"type:jsonb;serializer:json"`
	Components      []ComboComponent           `gorm:"type:jsonb;serializer:json"`
	DiscountPercent decimal.Decimal            `gorm:"type:decimal(5,2);not null;default:0"`
	// TotalCost and ProfitMargin are derived by the pricing engine on save.
	TotalCost    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	ProfitMargin decimal.Decimal `gorm:"type:decimal(7,2);not null;default:0"`
	Active       bool            `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Variant is the tagged union over product kinds: Simple or Combo.
type Variant interface {
	isVariant()
}

// Simple is a product priced per size and produced from a recipe.
type Simple struct {
	Recipe      []RecipeLine
	PriceBySize map[string]decimal.Decimal
}

// Combo is a product composed of other products, discounted by a percentage.
type Combo struct {
	Components      []ComboComponent
	DiscountPercent decimal.Decimal
}

func (Simple) isVariant() {}
func (Combo) isVariant()  {}

// Variant returns the kind-specific view of the product.
func (p *Product) Variant() Variant {
	if p.Kind == KindCombo {
		return Combo{Components: p.Components, DiscountPercent: p.DiscountPercent}
	}
	return Simple{Recipe: p.Recipe, PriceBySize: p.PriceBySize}
}

// HasSize reports whether size is one of the product's declared sizes.
func (p *Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}
