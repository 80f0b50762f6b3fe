package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how an invoice was settled.
type PaymentMethod string

const (
	PaymentCash PaymentMethod = "cash"
	PaymentQR   PaymentMethod = "qr"
)

// InvoiceStatus: "completed" | "cancelled"
type InvoiceStatus string

const (
	InvoiceCompleted InvoiceStatus = "completed"
	InvoiceCancelled InvoiceStatus = "cancelled"
)

// ProfileNotApplicable is stored as the profile name of cash invoices.
const ProfileNotApplicable = "N/A"

// InvoiceLine is the frozen snapshot of one cart line at sale time.
type InvoiceLine struct {
	ProductID   uuid.UUID       `json:"product_id"`
	ProductName string          `json:"product_name"`
	Size        string          `json:"size"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	Recipe      []RecipeLine    `json:"recipe,omitempty"`
}

// IngredientUsage is the total quantity of one ingredient a sale consumed.
type IngredientUsage struct {
	IngredientID   uuid.UUID       `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Unit           string          `json:"unit"`
	Quantity       decimal.Decimal `json:"quantity"`
}

// Invoice is the durable record of a sale.
// Consumption is exactly what checkout debited; cancellation credits it back.
type Invoice struct {
	ID                 uuid.UUID         `gorm:"type:uuid;primaryKey"`
	Number             string            `gorm:"type:varchar(40);uniqueIndex;not null"`
	Lines              []InvoiceLine     `gorm:"type:jsonb;serializer:json;not null"`
	Consumption        []IngredientUsage `gorm:"type:jsonb;serializer:json"`
	TotalAmount        decimal.Decimal   `gorm:"type:decimal(14,2);not null"`
	TotalQuantity      int               `gorm:"not null"`
	PaymentMethod      PaymentMethod     `gorm:"type:varchar(10);not null"`
	PaymentProfileName string            `gorm:"not null;default:'N/A'"`
	Status             InvoiceStatus     `gorm:"type:varchar(20);not null;default:'completed';index"`
	AllowNegativeStock bool              `gorm:"not null;default:false"`
	CustomerEmail      *string
	CancelledAt        *time.Time
	CancelReason       *string
	CreatedAt          time.Time `gorm:"index"`
}

// InvoicePatch lists the mutable invoice fields; nil means unchanged.
type InvoicePatch struct {
	Status       *InvoiceStatus
	CancelledAt  *time.Time
	CancelReason *string
}

// Usage returns the ingredient consumption of the invoice. Invoices written
// before Consumption existed fall back to their line recipe snapshots.
func (inv *Invoice) Usage() []IngredientUsage {
	if len(inv.Consumption) > 0 {
		return inv.Consumption
	}
	return UsageOf(inv.Lines)
}

// UsageOf aggregates recipe quantity × line quantity per ingredient, keyed by
// ingredient id, in first-seen recipe order.
func UsageOf(lines []InvoiceLine) []IngredientUsage {
	var out []IngredientUsage
	idx := make(map[uuid.UUID]int)
	for _, l := range lines {
		qty := decimal.NewFromInt(int64(l.Quantity))
		for _, r := range l.Recipe {
			if !r.Quantity.IsPositive() {
				continue
			}
			used := r.Quantity.Mul(qty)
			if i, ok := idx[r.IngredientID]; ok {
				out[i].Quantity = out[i].Quantity.Add(used)
				continue
			}
			idx[r.IngredientID] = len(out)
			out = append(out, IngredientUsage{
				IngredientID:   r.IngredientID,
				IngredientName: r.IngredientName,
				Unit:           r.Unit,
				Quantity:       used,
			})
		}
	}
	return out
}

// SaleRecord is a per-line audit projection of an invoice.
type SaleRecord struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InvoiceID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	ProductID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	ProductName   string          `gorm:"not null"`
	Size          string          `gorm:"type:varchar(10);not null"`
	Quantity      int             `gorm:"not null"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTotal     decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	PaymentMethod PaymentMethod   `gorm:"type:varchar(10);not null"`
	Status        InvoiceStatus   `gorm:"type:varchar(20);not null"`
	CreatedAt     time.Time
}
