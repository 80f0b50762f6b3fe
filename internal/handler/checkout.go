package handler

import (
	"net/http"

	"brewpos/internal/dto"
	"brewpos/internal/service"

	"github.com/gin-gonic/gin"
)

// CheckoutHandler exposes checkout sessions. Every endpoint answers with the
// session as it is after the call, so the terminal can redraw from it.
type CheckoutHandler struct{ svc service.CheckoutService }

func NewCheckoutHandler(svc service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

// Open godoc
// @Summary Open a checkout session
// @Tags checkout
// @Produce json
// @Success 201 {object} dto.SessionResponse
// @Security BearerAuth
// @Router /v1/sessions [post]
func (h *CheckoutHandler) Open(c *gin.Context) {
	resp, err := h.svc.Open(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to open session")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CheckoutHandler) Get(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to load session")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CheckoutHandler) Close(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.Close(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to close session")
		return
	}
	c.Status(http.StatusNoContent)
}

// ── Cart ─────────────────────────────────────────────────────────────────────

// AddItem godoc
// @Summary Add one unit of a product size to the cart
// @Tags checkout
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body dto.AddItemRequest true "Product and size"
// @Success 200 {object} dto.SessionResponse
// @Failure 409 {object} apierror.StockError
// @Security BearerAuth
// @Router /v1/sessions/{id}/items [post]
func (h *CheckoutHandler) AddItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.AddItemRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AddItem(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "Failed to add item")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CheckoutHandler) SetQuantity(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.SetQuantityRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SetQuantity(c.Request.Context(), id, c.Param("key"), req)
	if err != nil {
		respondError(c, err, "Failed to change quantity")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CheckoutHandler) RemoveItem(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.RemoveItem(c.Request.Context(), id, c.Param("key"))
	if err != nil {
		respondError(c, err, "Failed to remove item")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CheckoutHandler) Clear(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Clear(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to clear cart")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Payment ──────────────────────────────────────────────────────────────────

// SubmitCash godoc
// @Summary Check out the cart as a cash sale, or retry a failed cash checkout
// @Tags checkout
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body dto.SubmitCashRequest false "Optional customer email"
// @Success 201 {object} dto.CheckoutResponse
// @Failure 409 {object} apierror.APIError
// @Failure 502 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/sessions/{id}/cash [post]
func (h *CheckoutHandler) SubmitCash(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.SubmitCashRequest
	if !bindOptional(c, &req) {
		return
	}
	resp, err := h.svc.SubmitCash(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "Checkout failed")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// SubmitQR godoc
// @Summary Build the bank transfer QR payload for the cart total
// @Tags checkout
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body dto.SubmitQRRequest true "Payment profile"
// @Success 200 {object} dto.SessionResponse
// @Security BearerAuth
// @Router /v1/sessions/{id}/qr [post]
func (h *CheckoutHandler) SubmitQR(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.SubmitQRRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.SubmitQR(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "Failed to build QR payment")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CheckoutHandler) ConfirmPaid(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.ConfirmPaidRequest
	if !bindOptional(c, &req) {
		return
	}
	resp, err := h.svc.ConfirmPaid(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "Checkout failed")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CheckoutHandler) CancelPayment(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.CancelPayment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to cancel payment")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CheckoutHandler) Abandon(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.Abandon(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to abandon checkout")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// bindOptional accepts an empty body for requests whose fields are all optional.
func bindOptional(c *gin.Context, req interface{}) bool {
	if c.Request.ContentLength == 0 {
		return runValidation(c, req)
	}
	return bindAndValidate(c, req)
}
