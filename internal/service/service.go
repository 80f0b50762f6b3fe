package service

import (
	"context"
	"errors"

	"brewpos/internal/pricing"
	"brewpos/internal/worker"
	"brewpos/internal/ws"

	"gorm.io/gorm"
)

// Validation errors raised by the services; handlers answer them with 422.
var (
	ErrInvalidProduct    = errors.New("invalid product definition")
	ErrUnknownIngredient = errors.New("recipe references an unknown ingredient")
	ErrInvalidIngredient = errors.New("invalid ingredient data")
	ErrProductInactive   = errors.New("product is not active")
	ErrProfileInactive   = errors.New("payment profile is not active")
	ErrNoPendingPayment  = errors.New("session has no pending QR payment")
)

// EventPublisher pushes realtime events to terminals. Satisfied by *ws.Hub.
type EventPublisher interface {
	Publish(e ws.Event)
}

// ReceiptQueue schedules receipt rendering. Satisfied by *worker.Dispatcher.
type ReceiptQueue interface {
	EnqueueReceipt(ctx context.Context, payload worker.ReceiptJobPayload) error
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// IsValidation reports whether err is a catalog or payment validation failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidProduct) ||
		errors.Is(err, ErrUnknownIngredient) ||
		errors.Is(err, ErrInvalidIngredient) ||
		errors.Is(err, ErrProductInactive) ||
		errors.Is(err, pricing.ErrUnknownComponent) ||
		errors.Is(err, pricing.ErrInvalidDiscount) ||
		errors.Is(err, ErrProfileInactive)
}
