package handler

import (
	"net/http"
	"strconv"

	"brewpos/internal/apierror"
	"brewpos/internal/dto"
	"brewpos/internal/infra"
	"brewpos/internal/service"

	"github.com/gin-gonic/gin"
)

type PaymentsHandler struct{ svc service.PaymentService }

func NewPaymentsHandler(svc service.PaymentService) *PaymentsHandler {
	return &PaymentsHandler{svc: svc}
}

func (h *PaymentsHandler) ListProfiles(c *gin.Context) {
	resp, err := h.svc.ListProfiles(c.Request.Context(), c.Query("all") == "true")
	if err != nil {
		respondError(c, err, "Failed to list payment profiles")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentsHandler) CreateProfile(c *gin.Context) {
	var req dto.CreatePaymentProfileRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateProfile(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to create payment profile")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *PaymentsHandler) DeactivateProfile(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeactivateProfile(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to deactivate payment profile")
		return
	}
	c.Status(http.StatusNoContent)
}

// SessionQR godoc
// @Summary PNG of the pending transfer payload of a session
// @Tags checkout
// @Produce png
// @Param id path string true "Session ID"
// @Param size query int false "Edge length in pixels (64-1024)"
// @Success 200 {file} binary
// @Failure 422 {object} apierror.APIError
// @Security BearerAuth
// @Router /v1/sessions/{id}/qr.png [get]
func (h *PaymentsHandler) SessionQR(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	size := infra.DefaultQRSize
	if s := c.Query("size"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 64 || n > 1024 {
			c.JSON(http.StatusBadRequest, apierror.New("size must be between 64 and 1024"))
			return
		}
		size = n
	}
	png, err := h.svc.SessionQR(c.Request.Context(), id, size)
	if err != nil {
		respondError(c, err, "Failed to render QR code")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", png)
}
