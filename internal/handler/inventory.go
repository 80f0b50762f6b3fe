package handler

import (
	"context"
	"net/http"

	"brewpos/internal/dto"
	"brewpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

func (h *InventoryHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to list ingredients")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Create(c *gin.Context) {
	var req dto.CreateIngredientRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to create ingredient")
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *InventoryHandler) Update(c *gin.Context) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateIngredientRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "Failed to update ingredient")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// StockIn godoc
// @Summary Receive stock for an ingredient
// @Tags inventory
// @Accept json
// @Produce json
// @Param id path string true "Ingredient ID"
// @Param body body dto.StockAdjustRequest true "Quantity and reason"
// @Success 200 {object} dto.IngredientResponse
// @Security BearerAuth
// @Router /v1/ingredients/{id}/stock-in [post]
func (h *InventoryHandler) StockIn(c *gin.Context) {
	h.adjust(c, h.svc.StockIn)
}

// StockOut godoc
// @Summary Write off stock (waste, spillage)
// @Tags inventory
// @Accept json
// @Produce json
// @Param id path string true "Ingredient ID"
// @Param body body dto.StockAdjustRequest true "Quantity and reason"
// @Success 200 {object} dto.IngredientResponse
// @Failure 409 {object} apierror.StockError
// @Security BearerAuth
// @Router /v1/ingredients/{id}/stock-out [post]
func (h *InventoryHandler) StockOut(c *gin.Context) {
	h.adjust(c, h.svc.StockOut)
}

func (h *InventoryHandler) adjust(c *gin.Context, fn func(ctx context.Context, id uuid.UUID, req dto.StockAdjustRequest) (*dto.IngredientResponse, error)) {
	id, ok := paramID(c, "id")
	if !ok {
		return
	}
	var req dto.StockAdjustRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := fn(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err, "Failed to adjust stock")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Alerts(c *gin.Context) {
	resp, err := h.svc.Alerts(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load stock alerts")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Movements(c *gin.Context) {
	var filter dto.MovementFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.Movements(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to list stock movements")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Settings Handler ─────────────────────────────────────────────────────────

type SettingsHandler struct{ svc service.SettingsService }

func NewSettingsHandler(svc service.SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

func (h *SettingsHandler) Get(c *gin.Context) {
	resp, err := h.svc.Get(c.Request.Context())
	if err != nil {
		respondError(c, err, "Failed to load settings")
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SettingsHandler) Update(c *gin.Context) {
	var req dto.UpdateSettingsRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Update(c.Request.Context(), req)
	if err != nil {
		respondError(c, err, "Failed to update settings")
		return
	}
	c.JSON(http.StatusOK, resp)
}
