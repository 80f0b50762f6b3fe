package service

import (
	"context"
	"fmt"

	"brewpos/internal/availability"
	"brewpos/internal/dto"
	"brewpos/internal/model"
	"brewpos/internal/pricing"
	"brewpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogService defines the business logic contract for the menu.
type CatalogService interface {
	List(ctx context.Context, filter dto.ProductFilter) ([]dto.ProductResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error)
	Create(ctx context.Context, req dto.ProductRequest) (*dto.ProductResponse, error)
	Update(ctx context.Context, id uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type catalogService struct {
	products    repository.ProductRepository
	ingredients repository.IngredientRepository
	settings    repository.SettingsRepository
}

func NewCatalogService(
	products repository.ProductRepository,
	ingredients repository.IngredientRepository,
	settings repository.SettingsRepository,
) CatalogService {
	return &catalogService{products: products, ingredients: ingredients, settings: settings}
}

// ── Read side ─────────────────────────────────────────────────────────────────

func (s *catalogService) List(ctx context.Context, filter dto.ProductFilter) ([]dto.ProductResponse, error) {
	products, err := s.products.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*model.Product, len(products))
	for i := range products {
		ptrs[i] = &products[i]
	}
	return s.present(ctx, ptrs)
}

func (s *catalogService) Get(ctx context.Context, id uuid.UUID) (*dto.ProductResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out, err := s.present(ctx, []*model.Product{p})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// present quotes each product and attaches its availability against one
// stock snapshot.
func (s *catalogService) present(ctx context.Context, products []*model.Product) ([]dto.ProductResponse, error) {
	resolve, err := s.resolver(ctx, products)
	if err != nil {
		return nil, err
	}
	allowNegative, err := s.allowNegative(ctx)
	if err != nil {
		return nil, err
	}

	var recipes [][]model.RecipeLine
	for _, p := range products {
		recipes = append(recipes, p.Recipe)
	}
	snapshot, err := s.ingredients.StockSnapshot(ctx, availability.IngredientIDs(recipes...))
	if err != nil {
		return nil, err
	}

	out := make([]dto.ProductResponse, 0, len(products))
	for _, p := range products {
		var quote *pricing.Quote
		if q, err := pricing.QuoteProduct(p, resolve); err == nil {
			quote = &q
		} else {
			log.Warn().Err(err).Str("product", p.Name).Msg("catalog: quote failed, showing stored prices")
		}
		resp := productToResponse(p, quote)
		var recipe []model.RecipeLine
		if v, ok := p.Variant().(model.Simple); ok {
			recipe = v.Recipe
		}
		resp.Availability = availabilityToResponse(availability.Compute(recipe, snapshot, allowNegative))
		out = append(out, resp)
	}
	return out, nil
}

// resolver loads every combo component referenced by products that is not
// already in the slice.
func (s *catalogService) resolver(ctx context.Context, products []*model.Product) (pricing.Resolver, error) {
	known := make(map[uuid.UUID]*model.Product, len(products))
	for _, p := range products {
		known[p.ID] = p
	}
	var missing []uuid.UUID
	for _, p := range products {
		for _, c := range p.Components {
			if _, ok := known[c.ProductID]; !ok {
				missing = append(missing, c.ProductID)
			}
		}
	}
	if len(missing) > 0 {
		found, err := s.products.FindByIDs(ctx, missing)
		if err != nil {
			return nil, err
		}
		for i := range found {
			known[found[i].ID] = &found[i]
		}
	}
	return func(id uuid.UUID) (*model.Product, bool) {
		p, ok := known[id]
		return p, ok
	}, nil
}

func (s *catalogService) allowNegative(ctx context.Context) (bool, error) {
	st, err := s.settings.Get(ctx)
	if err != nil {
		return false, err
	}
	return st.AllowNegativeStock, nil
}

// ── Write side ────────────────────────────────────────────────────────────────

func (s *catalogService) Create(ctx context.Context, req dto.ProductRequest) (*dto.ProductResponse, error) {
	p := &model.Product{ID: uuid.New(), Active: true}
	if err := s.build(ctx, p, req); err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, err
	}
	log.Info().Str("product", p.Name).Str("kind", string(p.Kind)).Msg("catalog: product created")
	return s.Get(ctx, p.ID)
}

// Update replaces a product definition. When a simple product changes, every
// combo that contains it is re-quoted in the same transaction.
func (s *catalogService) Update(ctx context.Context, id uuid.UUID, req dto.ProductRequest) (*dto.ProductResponse, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if string(p.Kind) != req.Kind {
		return nil, fmt.Errorf("%w: kind cannot change from %s", ErrInvalidProduct, p.Kind)
	}
	if err := s.build(ctx, p, req); err != nil {
		return nil, err
	}

	var combos []model.Product
	if p.Kind == model.KindSimple {
		if combos, err = s.products.CombosUsing(ctx, p.ID); err != nil {
			return nil, err
		}
	}

	err = runTx(ctx, s.products.DB(), func(tx *gorm.DB) error {
		if err := s.products.UpdateTx(tx, p); err != nil {
			return err
		}
		for i := range combos {
			c := &combos[i]
			if err := s.requote(ctx, c, p); err != nil {
				return fmt.Errorf("re-quote combo %s: %w", c.Name, err)
			}
			if err := s.products.UpdateTx(tx, c); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(combos) > 0 {
		log.Info().Str("product", p.Name).Int("combos", len(combos)).Msg("catalog: dependent combos re-quoted")
	}
	return s.Get(ctx, p.ID)
}

func (s *catalogService) Deactivate(ctx context.Context, id uuid.UUID) error {
	return s.products.SetActive(ctx, id, false)
}

// build validates req and writes it onto p, including the derived pricing.
func (s *catalogService) build(ctx context.Context, p *model.Product, req dto.ProductRequest) error {
	sizes, err := uniqueSizes(req.Sizes)
	if err != nil {
		return err
	}
	p.Name = req.Name
	p.Category = req.Category
	p.Kind = model.ProductKind(req.Kind)
	p.Sizes = sizes

	var resolve pricing.Resolver
	switch p.Kind {
	case model.KindSimple:
		if len(req.Components) > 0 {
			return fmt.Errorf("%w: simple products have no components", ErrInvalidProduct)
		}
		for _, size := range sizes {
			price, ok := req.PriceBySize[size]
			if !ok || !price.IsPositive() {
				return fmt.Errorf("%w: size %s needs a positive price", ErrInvalidProduct, size)
			}
		}
		if len(req.PriceBySize) != len(sizes) {
			return fmt.Errorf("%w: price_by_size has sizes not in sizes", ErrInvalidProduct)
		}
		recipe, err := s.recipe(ctx, req.Recipe)
		if err != nil {
			return err
		}
		p.PriceBySize = req.PriceBySize
		p.Recipe = recipe
		p.Components = nil
		p.DiscountPercent = decimal.Zero

	case model.KindCombo:
		if len(req.Recipe) > 0 {
			return fmt.Errorf("%w: combos take their recipe from components", ErrInvalidProduct)
		}
		if len(req.Components) < 2 {
			return fmt.Errorf("%w: a combo needs at least two components", ErrInvalidProduct)
		}
		if err := pricing.ValidateDiscount(req.DiscountPercent); err != nil {
			return err
		}
		components, r, err := s.components(ctx, p.ID, req.Components)
		if err != nil {
			return err
		}
		p.Components = components
		p.DiscountPercent = req.DiscountPercent
		p.Recipe = nil
		resolve = r

	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidProduct, req.Kind)
	}

	q, err := pricing.QuoteProduct(p, resolve)
	if err != nil {
		return err
	}
	q.Apply(p)
	return nil
}

// recipe resolves ingredient ids and snapshots name, unit and unit price.
func (s *catalogService) recipe(ctx context.Context, lines []dto.RecipeLineRequest) ([]model.RecipeLine, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	ids := make([]uuid.UUID, 0, len(lines))
	seen := make(map[uuid.UUID]bool, len(lines))
	for _, l := range lines {
		id, err := uuid.Parse(l.IngredientID)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownIngredient, l.IngredientID)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: ingredient %s listed twice", ErrInvalidProduct, id)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	found, err := s.ingredients.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*model.Ingredient, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	out := make([]model.RecipeLine, 0, len(lines))
	for i, l := range lines {
		ing, ok := byID[ids[i]]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownIngredient, ids[i])
		}
		out = append(out, model.RecipeLine{
			IngredientID:   ing.ID,
			IngredientName: ing.Name,
			Unit:           ing.Unit,
			Quantity:       l.Quantity,
			UnitPrice:      ing.UnitPrice,
		})
	}
	return out, nil
}

// components resolves combo components. Components must be active simple
// products; a combo may not contain itself or another combo.
func (s *catalogService) components(ctx context.Context, self uuid.UUID, refs []dto.ComboComponentRequest) ([]model.ComboComponent, pricing.Resolver, error) {
	ids := make([]uuid.UUID, 0, len(refs))
	for _, r := range refs {
		id, err := uuid.Parse(r.ProductID)
		if err != nil || id == self {
			return nil, nil, fmt.Errorf("%w: %s", pricing.ErrUnknownComponent, r.ProductID)
		}
		ids = append(ids, id)
	}
	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[uuid.UUID]*model.Product, len(found))
	for i := range found {
		byID[found[i].ID] = &found[i]
	}

	out := make([]model.ComboComponent, 0, len(refs))
	for i, r := range refs {
		c, ok := byID[ids[i]]
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", pricing.ErrUnknownComponent, ids[i])
		}
		if c.Kind != model.KindSimple {
			return nil, nil, fmt.Errorf("%w: component %s is a combo", ErrInvalidProduct, c.Name)
		}
		if !c.Active {
			return nil, nil, fmt.Errorf("%w: %s", ErrProductInactive, c.Name)
		}
		if r.Size != "" && !c.HasSize(r.Size) {
			return nil, nil, fmt.Errorf("%w: %s has no size %s", ErrInvalidProduct, c.Name, r.Size)
		}
		out = append(out, model.ComboComponent{ProductID: c.ID, ProductName: c.Name, Size: r.Size})
	}
	return out, func(id uuid.UUID) (*model.Product, bool) {
		p, ok := byID[id]
		return p, ok
	}, nil
}

// requote recomputes a combo after one of its components changed.
func (s *catalogService) requote(ctx context.Context, combo *model.Product, changed *model.Product) error {
	ids := make([]uuid.UUID, 0, len(combo.Components))
	for _, c := range combo.Components {
		if c.ProductID != changed.ID {
			ids = append(ids, c.ProductID)
		}
	}
	found, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return err
	}
	byID := map[uuid.UUID]*model.Product{changed.ID: changed}
	for i := range found {
		byID[found[i].ID] = &found[i]
	}
	for i := range combo.Components {
		if combo.Components[i].ProductID == changed.ID {
			combo.Components[i].ProductName = changed.Name
		}
	}
	q, err := pricing.QuoteProduct(combo, func(id uuid.UUID) (*model.Product, bool) {
		p, ok := byID[id]
		return p, ok
	})
	if err != nil {
		return err
	}
	q.Apply(combo)
	return nil
}

func uniqueSizes(sizes []string) ([]string, error) {
	if len(sizes) == 0 {
		return nil, fmt.Errorf("%w: at least one size is required", ErrInvalidProduct)
	}
	seen := make(map[string]bool, len(sizes))
	out := make([]string, 0, len(sizes))
	for _, s := range sizes {
		if s == "" || seen[s] {
			return nil, fmt.Errorf("%w: duplicate or empty size %q", ErrInvalidProduct, s)
		}
		seen[s] = true
		out = append(out, s)
	}
	return out, nil
}
