package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ingredient is a stocked raw material consumed by product recipes.
// Stock only goes below zero through a debit that explicitly allows it.
type Ingredient struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string          `gorm:"uniqueIndex;not null"`
	Unit      string          `gorm:"not null;default:'g'"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Stock     decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	MinStock  decimal.Decimal `gorm:"type:decimal(14,3);not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BelowMinimum reports whether stock dropped under the reorder threshold.
func (i *Ingredient) BelowMinimum() bool {
	return i.Stock.LessThan(i.MinStock)
}
