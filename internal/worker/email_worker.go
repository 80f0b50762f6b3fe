package worker

// email_worker.go
// Sends PDF receipts to customer emails via SMTP.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"brewpos/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail string `json:"to_email"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	PDFPath string `json:"pdf_path"`
}

// ReceiptMailer is satisfied by *infra.Mailer.
type ReceiptMailer interface {
	SendReceipt(to, subject, body, pdfPath string) error
}

// EmailWorker processes email jobs from QueueEmail.
type EmailWorker struct {
	mailer ReceiptMailer
}

// NewEmailWorker creates an EmailWorker with the provided SMTP mailer.
func NewEmailWorker(mailer ReceiptMailer) *EmailWorker {
	return &EmailWorker{mailer: mailer}
}

// Process sends an email with the PDF receipt as attachment.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Permanent(fmt.Errorf("email_worker: invalid payload: %w", err))
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email, skipping")
		return nil
	}

	err := w.mailer.SendReceipt(payload.ToEmail, payload.Subject, payload.Body, payload.PDFPath)
	switch {
	case err == nil:
		log.Info().Str("to", payload.ToEmail).Msg("email_worker: receipt sent")
		return nil
	case errors.Is(err, infra.ErrMailerDisabled):
		log.Warn().Str("to", payload.ToEmail).Msg("email_worker: smtp not configured, dropping email")
		return nil
	default:
		return fmt.Errorf("email_worker: send to %s: %w", payload.ToEmail, err)
	}
}
