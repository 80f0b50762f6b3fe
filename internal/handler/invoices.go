package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"brewpos/internal/checkout"
	"brewpos/internal/dto"
	"brewpos/internal/service"

	"github.com/gin-gonic/gin"
)

type InvoicesHandler struct{ svc service.InvoiceService }

func NewInvoicesHandler(svc service.InvoiceService) *InvoicesHandler {
	return &InvoicesHandler{svc: svc}
}

func (h *InvoicesHandler) List(c *gin.Context) {
	var filter dto.InvoiceFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to list invoices")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InvoicesHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to load invoice")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary Cancel a completed invoice and restore its ingredients
// @Description Returns 207 when the invoice was cancelled but some ingredients could not be restored.
// @Tags invoices
// @Accept json
// @Produce json
// @Param id path string true "Invoice ID"
// @Param body body dto.CancelInvoiceRequest true "Reason"
// @Success 200 {object} dto.CancelInvoiceResponse
// @Success 207 {object} dto.CancelInvoiceResponse
// @Failure 409 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/invoices/{id}/cancel [post]
func (h *InvoicesHandler) Cancel(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelInvoiceRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Cancel(c.Request.Context(), id, req)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, resp)
	case errors.Is(err, checkout.ErrPartialRestore) && resp != nil:
		c.JSON(http.StatusMultiStatus, resp)
	default:
		respondError(c, err, "Failed to cancel invoice")
	}
}

// Receipt streams the receipt PDF. It is rendered into a buffer first so a
// failure can still be answered with a JSON error.
func (h *InvoicesHandler) Receipt(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.WriteReceipt(c.Request.Context(), id, &buf); err != nil {
		respondError(c, err, "Failed to render receipt")
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`inline; filename="receipt-%s.pdf"`, id))
	c.Data(http.StatusOK, "application/pdf", buf.Bytes())
}
