package service

import (
	"context"
	"errors"
	"io"
	"time"

	"brewpos/internal/checkout"
	"brewpos/internal/dto"
	"brewpos/internal/infra"
	"brewpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// InvoiceService reads invoices and reverses completed sales.
type InvoiceService interface {
	List(ctx context.Context, filter dto.InvoiceFilter) (*dto.InvoiceListResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error)
	Cancel(ctx context.Context, id uuid.UUID, req dto.CancelInvoiceRequest) (*dto.CancelInvoiceResponse, error)
	// WriteReceipt renders the receipt PDF of an invoice into w.
	WriteReceipt(ctx context.Context, id uuid.UUID, w io.Writer) error
}

type invoiceService struct {
	invoices    repository.InvoiceRepository
	ingredients repository.IngredientRepository
	canceller   *checkout.Canceller
	events      EventPublisher
	shopName    string
}

// NewInvoiceService wires the invoice service. events may be nil.
func NewInvoiceService(
	invoices repository.InvoiceRepository,
	ingredients repository.IngredientRepository,
	events EventPublisher,
	callTimeout time.Duration,
	shopName string,
) InvoiceService {
	return &invoiceService{
		invoices:    invoices,
		ingredients: ingredients,
		canceller:   checkout.NewCanceller(invoices, ingredients, callTimeout),
		events:      events,
		shopName:    shopName,
	}
}

func (s *invoiceService) List(ctx context.Context, filter dto.InvoiceFilter) (*dto.InvoiceListResponse, error) {
	rows, total, err := s.invoices.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := &dto.InvoiceListResponse{
		Data:  make([]dto.InvoiceResponse, 0, len(rows)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range rows {
		out.Data = append(out.Data, invoiceToResponse(&rows[i]))
	}
	return out, nil
}

func (s *invoiceService) Get(ctx context.Context, id uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := invoiceToResponse(inv)
	return &resp, nil
}

// Cancel voids a completed invoice and restores its ingredients. A partial
// restore still returns the response (Partial=true) alongside the error so
// the caller can show which credits failed.
func (s *invoiceService) Cancel(ctx context.Context, id uuid.UUID, req dto.CancelInvoiceRequest) (*dto.CancelInvoiceResponse, error) {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res, err := s.canceller.Cancel(ctx, inv, req.Reason)
	if res == nil {
		return nil, err
	}

	out := &dto.CancelInvoiceResponse{
		Invoice: invoiceToResponse(res.Invoice),
		Credits: make([]dto.CreditResponse, 0, len(res.Credits)),
		Partial: errors.Is(err, checkout.ErrPartialRestore),
	}
	var restored []uuid.UUID
	for _, c := range res.Credits {
		out.Credits = append(out.Credits, dto.CreditResponse{
			IngredientID:   c.IngredientID.String(),
			IngredientName: c.IngredientName,
			Quantity:       c.Quantity,
			Restored:       c.OK(),
			Error:          c.Error,
		})
		if c.OK() {
			restored = append(restored, c.IngredientID)
		}
	}
	log.Info().Str("invoice", inv.Number).Int("credits", len(res.Credits)).Int("failed", res.Failed()).
		Msg("invoice: cancelled")

	if s.events != nil && len(restored) > 0 {
		if items, ferr := s.ingredients.FindByIDs(ctx, restored); ferr == nil {
			publishLevels(s.events, items)
		}
	}
	return out, err
}

func (s *invoiceService) WriteReceipt(ctx context.Context, id uuid.UUID, w io.Writer) error {
	inv, err := s.invoices.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return infra.RenderReceiptPDF(w, inv, infra.ReceiptOptions{ShopName: s.shopName})
}
