package service

import (
	"context"
	"fmt"

	"brewpos/internal/dto"
	"brewpos/internal/model"
	"brewpos/internal/repository"
	"brewpos/internal/ws"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// InventoryService defines the contract for ingredient stock management.
type InventoryService interface {
	List(ctx context.Context) ([]dto.IngredientResponse, error)
	Create(ctx context.Context, req dto.CreateIngredientRequest) (*dto.IngredientResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateIngredientRequest) (*dto.IngredientResponse, error)
	StockIn(ctx context.Context, id uuid.UUID, req dto.StockAdjustRequest) (*dto.IngredientResponse, error)
	StockOut(ctx context.Context, id uuid.UUID, req dto.StockAdjustRequest) (*dto.IngredientResponse, error)
	Alerts(ctx context.Context) ([]dto.IngredientResponse, error)
	Movements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error)
}

type inventoryService struct {
	ingredients repository.IngredientRepository
	movements   repository.StockMovementRepository
	settings    repository.SettingsRepository
	events      EventPublisher
}

// NewInventoryService wires the inventory service. events may be nil.
func NewInventoryService(
	ingredients repository.IngredientRepository,
	movements repository.StockMovementRepository,
	settings repository.SettingsRepository,
	events EventPublisher,
) InventoryService {
	return &inventoryService{ingredients: ingredients, movements: movements, settings: settings, events: events}
}

func (s *inventoryService) List(ctx context.Context) ([]dto.IngredientResponse, error) {
	items, err := s.ingredients.List(ctx)
	if err != nil {
		return nil, err
	}
	return ingredientsToResponse(items), nil
}

func (s *inventoryService) Create(ctx context.Context, req dto.CreateIngredientRequest) (*dto.IngredientResponse, error) {
	ing := &model.Ingredient{
		ID:        uuid.New(),
		Name:      req.Name,
		Unit:      req.Unit,
		UnitPrice: req.UnitPrice,
		Stock:     req.Stock,
		MinStock:  req.MinStock,
	}
	if err := s.ingredients.Create(ctx, ing); err != nil {
		return nil, err
	}
	resp := ingredientToResponse(ing)
	return &resp, nil
}

// Update edits descriptive fields. Stock only changes through StockIn/StockOut
// so every change lands in the movement ledger.
func (s *inventoryService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateIngredientRequest) (*dto.IngredientResponse, error) {
	ing, err := s.ingredients.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		ing.Name = *req.Name
	}
	if req.Unit != nil {
		ing.Unit = *req.Unit
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: unit_price must not be negative", ErrInvalidIngredient)
		}
		ing.UnitPrice = *req.UnitPrice
	}
	if req.MinStock != nil {
		if req.MinStock.IsNegative() {
			return nil, fmt.Errorf("%w: min_stock must not be negative", ErrInvalidIngredient)
		}
		ing.MinStock = *req.MinStock
	}
	if err := s.ingredients.Update(ctx, ing); err != nil {
		return nil, err
	}
	resp := ingredientToResponse(ing)
	return &resp, nil
}

func (s *inventoryService) StockIn(ctx context.Context, id uuid.UUID, req dto.StockAdjustRequest) (*dto.IngredientResponse, error) {
	ref := model.StockRef{Kind: model.MovementStockIn, Reason: req.Reason}
	if err := s.ingredients.CreditIngredient(ctx, id, req.Quantity, ref); err != nil {
		return nil, err
	}
	return s.afterAdjust(ctx, id)
}

// StockOut removes stock (waste, spillage). It honours the shop's
// allow-negative setting like a sale does.
func (s *inventoryService) StockOut(ctx context.Context, id uuid.UUID, req dto.StockAdjustRequest) (*dto.IngredientResponse, error) {
	st, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	ref := model.StockRef{Kind: model.MovementStockOut, Reason: req.Reason}
	if err := s.ingredients.DebitIngredient(ctx, id, req.Quantity, st.AllowNegativeStock, ref); err != nil {
		return nil, fmt.Errorf("stock out: %w", err)
	}
	return s.afterAdjust(ctx, id)
}

func (s *inventoryService) afterAdjust(ctx context.Context, id uuid.UUID) (*dto.IngredientResponse, error) {
	ing, err := s.ingredients.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	publishLevels(s.events, []model.Ingredient{*ing})
	log.Info().Str("ingredient", ing.Name).Str("stock", ing.Stock.String()).Msg("inventory: stock adjusted")
	resp := ingredientToResponse(ing)
	return &resp, nil
}

func (s *inventoryService) Alerts(ctx context.Context) ([]dto.IngredientResponse, error) {
	items, err := s.ingredients.BelowMinimum(ctx)
	if err != nil {
		return nil, err
	}
	return ingredientsToResponse(items), nil
}

func (s *inventoryService) Movements(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	f := repository.StockMovementFilter{Kind: filter.Kind, Page: filter.Page, Limit: filter.Limit}
	if filter.IngredientID != "" {
		id, err := uuid.Parse(filter.IngredientID)
		if err != nil {
			return nil, fmt.Errorf("%w: ingredient_id %q", ErrInvalidIngredient, filter.IngredientID)
		}
		f.IngredientID = &id
	}
	rows, total, err := s.movements.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := &dto.MovementListResponse{
		Data:  make([]dto.StockMovementResponse, 0, len(rows)),
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	for i := range rows {
		out.Data = append(out.Data, movementToResponse(&rows[i]))
	}
	return out, nil
}

func ingredientsToResponse(items []model.Ingredient) []dto.IngredientResponse {
	out := make([]dto.IngredientResponse, 0, len(items))
	for i := range items {
		out = append(out, ingredientToResponse(&items[i]))
	}
	return out
}

// publishLevels broadcasts a stock_update, plus a low_stock event for any
// ingredient that is now under its minimum.
func publishLevels(events EventPublisher, items []model.Ingredient) {
	if events == nil || len(items) == 0 {
		return
	}
	levels := make([]ws.StockLevel, 0, len(items))
	var low []ws.StockLevel
	for i := range items {
		l := ws.LevelOf(&items[i])
		levels = append(levels, l)
		if l.BelowMinimum {
			low = append(low, l)
		}
	}
	events.Publish(ws.Event{Type: ws.EventStockUpdate, Data: levels})
	if len(low) > 0 {
		events.Publish(ws.Event{Type: ws.EventLowStock, Data: low})
	}
}
