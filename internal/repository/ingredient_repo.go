package repository

import (
	"context"
	"errors"
	"fmt"

	"brewpos/internal/availability"
	"brewpos/internal/checkout"
	"brewpos/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientStock is returned by a debit that would take stock below zero.
var ErrInsufficientStock = errors.New("insufficient stock")

// IngredientRepository is the ingredient catalog plus the inventory store.
// Debits and credits lock the ingredient row, update it and append a
// StockMovement in one transaction. With a ReferenceID they are idempotent.
type IngredientRepository interface {
	Create(ctx context.Context, ing *model.Ingredient) error
	Update(ctx context.Context, ing *model.Ingredient) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Ingredient, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Ingredient, error)
	List(ctx context.Context) ([]model.Ingredient, error)
	BelowMinimum(ctx context.Context) ([]model.Ingredient, error)

	// StockSnapshot returns current stock for the ids that exist.
	// Unknown ids are simply absent from the result.
	StockSnapshot(ctx context.Context, ids []uuid.UUID) (availability.Snapshot, error)

	DebitIngredient(ctx context.Context, id uuid.UUID, qty decimal.Decimal, allowNegative bool, ref model.StockRef) error
	CreditIngredient(ctx context.Context, id uuid.UUID, qty decimal.Decimal, ref model.StockRef) error

	DB() *gorm.DB
}

type ingredientRepo struct {
	db        *gorm.DB
	movements StockMovementRepository
}

func NewIngredientRepository(db *gorm.DB, movements StockMovementRepository) IngredientRepository {
	return &ingredientRepo{db: db, movements: movements}
}

func (r *ingredientRepo) DB() *gorm.DB { return r.db }

func (r *ingredientRepo) Create(ctx context.Context, ing *model.Ingredient) error {
	return r.db.WithContext(ctx).Create(ing).Error
}

// Update saves descriptive fields only; stock changes go through debit/credit.
func (r *ingredientRepo) Update(ctx context.Context, ing *model.Ingredient) error {
	return r.db.WithContext(ctx).Model(ing).
		Select("name", "unit", "unit_price", "min_stock").
		Updates(ing).Error
}

func (r *ingredientRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Ingredient, error) {
	var ing model.Ingredient
	err := r.db.WithContext(ctx).First(&ing, "id = ?", id).Error
	return &ing, err
}

func (r *ingredientRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Ingredient, error) {
	var out []model.Ingredient
	if len(ids) == 0 {
		return out, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&out).Error
	return out, err
}

func (r *ingredientRepo) List(ctx context.Context) ([]model.Ingredient, error) {
	var out []model.Ingredient
	err := r.db.WithContext(ctx).Order("name ASC").Find(&out).Error
	return out, err
}

func (r *ingredientRepo) BelowMinimum(ctx context.Context) ([]model.Ingredient, error) {
	var out []model.Ingredient
	err := r.db.WithContext(ctx).Where("stock < min_stock").Order("name ASC").Find(&out).Error
	return out, err
}

func (r *ingredientRepo) StockSnapshot(ctx context.Context, ids []uuid.UUID) (availability.Snapshot, error) {
	snap := availability.Snapshot{}
	if len(ids) == 0 {
		return snap, nil
	}
	var rows []struct {
		ID    uuid.UUID
		Stock decimal.Decimal
	}
	err := r.db.WithContext(ctx).Model(&model.Ingredient{}).
		Select("id, stock").Where("id IN ?", ids).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		snap[row.ID] = row.Stock
	}
	return snap, nil
}

func (r *ingredientRepo) DebitIngredient(ctx context.Context, id uuid.UUID, qty decimal.Decimal, allowNegative bool, ref model.StockRef) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.adjust(tx, id, qty.Neg(), allowNegative, ref)
	})
}

func (r *ingredientRepo) CreditIngredient(ctx context.Context, id uuid.UUID, qty decimal.Decimal, ref model.StockRef) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return r.adjust(tx, id, qty, true, ref)
	})
}

// adjust applies delta to the locked ingredient row and records the movement.
// A movement already recorded for the same reference, ingredient and kind
// means an earlier call committed, and nothing is written.
func (r *ingredientRepo) adjust(tx *gorm.DB, id uuid.UUID, delta decimal.Decimal, allowNegative bool, ref model.StockRef) error {
	var ing model.Ingredient
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&ing, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			err = checkout.Rejected(err)
		}
		return fmt.Errorf("ingredient %s: %w", id, err)
	}

	if ref.ReferenceID != nil {
		var seen int64
		err := tx.Model(&model.StockMovement{}).
			Where("reference_id = ? AND ingredient_id = ? AND kind = ?", *ref.ReferenceID, id, ref.Kind).
			Count(&seen).Error
		if err != nil {
			return err
		}
		if seen > 0 {
			log.Debug().Str("ingredient", ing.Name).Str("kind", ref.Kind).Msg("stock movement already recorded")
			return nil
		}
	}

	after := ing.Stock.Add(delta)
	if delta.IsNegative() && after.IsNegative() && !allowNegative {
		return checkout.Rejected(fmt.Errorf("%w: %s has %s %s, needs %s",
			ErrInsufficientStock, ing.Name, ing.Stock.String(), ing.Unit, delta.Neg().String()))
	}

	if err := tx.Model(&model.Ingredient{}).Where("id = ?", id).Update("stock", after).Error; err != nil {
		return err
	}

	return r.movements.CreateTx(tx, &model.StockMovement{
		IngredientID: id,
		Kind:         ref.Kind,
		Quantity:     delta,
		StockBefore:  ing.Stock,
		StockAfter:   after,
		Reason:       ref.Reason,
		ReferenceID:  ref.ReferenceID,
	})
}
