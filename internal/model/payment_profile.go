package model

import (
	"time"

	"github.com/google/uuid"
)

// PaymentProfile is a bank account the shop accepts transfers into.
type PaymentProfile struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name          string    `gorm:"uniqueIndex;not null"`
	BankID        string    `gorm:"type:varchar(20);not null"` // NAPAS BIN
	BankName      string    `gorm:"not null"`
	AccountNumber string    `gorm:"type:varchar(30);not null"`
	AccountHolder string    `gorm:"not null"`
	Active        bool      `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
