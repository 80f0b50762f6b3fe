package worker

// receipt_worker.go
// Renders the PDF receipt of a completed (or cancelled) invoice and, when the
// sale carried a customer email, hands the file to the email queue.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"brewpos/internal/infra"
	"brewpos/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ReceiptJobPayload is the job envelope sent to QueueReceipt.
type ReceiptJobPayload struct {
	InvoiceID       string  `json:"invoice_id"`
	CustomerEmail   *string `json:"customer_email,omitempty"`
	TransferPayload string  `json:"transfer_payload,omitempty"`
}

// InvoiceFinder is the read side of the invoice repository.
type InvoiceFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
}

// EmailEnqueuer is satisfied by *Dispatcher.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

// ReceiptWorker processes jobs from QueueReceipt.
type ReceiptWorker struct {
	invoices    InvoiceFinder
	emails      EmailEnqueuer
	storagePath string
	shopName    string
}

// NewReceiptWorker wires the receipt worker. emails may be nil.
func NewReceiptWorker(invoices InvoiceFinder, emails EmailEnqueuer, storagePath, shopName string) *ReceiptWorker {
	return &ReceiptWorker{invoices: invoices, emails: emails, storagePath: storagePath, shopName: shopName}
}

// Process handles a single receipt job:
//  1. Parse ReceiptJobPayload
//  2. Load the invoice
//  3. Render the PDF into the storage path
//  4. Enqueue an email job when a customer email is present
func (w *ReceiptWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReceiptJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Permanent(fmt.Errorf("receipt_worker: invalid payload: %w", err))
	}
	id, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		return Permanent(fmt.Errorf("receipt_worker: invalid invoice_id %q", payload.InvoiceID))
	}

	inv, err := w.invoices.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Permanent(fmt.Errorf("receipt_worker: invoice %s not found", id))
		}
		return fmt.Errorf("receipt_worker: load invoice: %w", err)
	}

	path, err := infra.GenerateReceiptPDF(inv, infra.ReceiptOptions{
		ShopName:        w.shopName,
		TransferPayload: payload.TransferPayload,
	}, w.storagePath)
	if err != nil {
		return fmt.Errorf("receipt_worker: %w", err)
	}
	log.Info().Str("invoice", inv.Number).Str("path", path).Msg("receipt_worker: receipt generated")

	to := payload.CustomerEmail
	if to == nil {
		to = inv.CustomerEmail
	}
	if to == nil || *to == "" || w.emails == nil {
		return nil
	}
	err = w.emails.EnqueueEmail(ctx, EmailJobPayload{
		ToEmail: *to,
		Subject: fmt.Sprintf("%s receipt %s", w.shopName, inv.Number),
		Body:    fmt.Sprintf("Thank you for your order. Total: %s", infra.FormatVND(inv.TotalAmount)),
		PDFPath: path,
	})
	if err != nil {
		// the PDF exists; a retry would only re-render it
		log.Error().Err(err).Str("invoice", inv.Number).Msg("receipt_worker: failed to enqueue email")
	}
	return nil
}
