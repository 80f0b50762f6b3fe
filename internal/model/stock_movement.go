package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Movement kinds.
const (
	MovementSale             = "sale"
	MovementStockIn          = "stock_in"
	MovementStockOut         = "stock_out"
	MovementCancelRestore    = "cancel_restore"
	MovementCheckoutRollback = "checkout_rollback"
)

// StockMovement records every change of an ingredient's stock.
// Rows are immutable; reversals are new rows with the opposite sign.
type StockMovement struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	IngredientID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Kind         string          `gorm:"type:varchar(20);not null"`
	Quantity     decimal.Decimal `gorm:"type:decimal(14,3);not null"` // positive = in, negative = out
	StockBefore  decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	StockAfter   decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	Reason       string
	ReferenceID  *uuid.UUID `gorm:"type:uuid;index"` // invoice id when applicable
	CreatedAt    time.Time

	Ingredient *Ingredient `gorm:"foreignKey:IngredientID"`
}

// TableName keeps the ledger table name stable.
func (StockMovement) TableName() string { return "stock_movements" }

// StockRef describes why a stock change happens; it ends up on the movement row.
type StockRef struct {
	Kind        string
	Reason      string
	ReferenceID *uuid.UUID
}
