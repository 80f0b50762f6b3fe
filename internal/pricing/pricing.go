// Package pricing computes sale prices, costs and margins for simple and
// combo products. Every function is pure.
package pricing

import (
	"errors"
	"fmt"

	"brewpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxComboDiscount is the highest discount percentage a combo may carry.
var MaxComboDiscount = decimal.NewFromInt(50)

var (
	hundred = decimal.NewFromInt(100)

	ErrUnknownComponent = errors.New("combo component not found")
	ErrInvalidDiscount  = errors.New("combo discount must be between 0 and 50 percent")
)

// Quote is the derived pricing of a product.
type Quote struct {
	PriceBySize map[string]decimal.Decimal
	// OriginalPriceBySize is the undiscounted sum of component prices; combos only.
	OriginalPriceBySize map[string]decimal.Decimal
	TotalCost           decimal.Decimal
	ProfitMargin        decimal.Decimal
}

// Resolver looks up a referenced product by id.
type Resolver func(id uuid.UUID) (*model.Product, bool)

// TotalCost is Σ quantity × unit price over the recipe.
func TotalCost(recipe []model.RecipeLine) decimal.Decimal {
	total := decimal.Zero
	for _, r := range recipe {
		total = total.Add(r.Quantity.Mul(r.UnitPrice))
	}
	return total
}

// ProfitMarginPercent is (avgPrice − cost) / avgPrice × 100 where avgPrice is
// the mean over all declared sizes. Zero when cost is not positive, when no
// size is priced or when the average price is zero.
func ProfitMarginPercent(priceBySize map[string]decimal.Decimal, totalCost decimal.Decimal) decimal.Decimal {
	if len(priceBySize) == 0 || !totalCost.IsPositive() {
		return decimal.Zero
	}
	sum := decimal.Zero
	for _, p := range priceBySize {
		sum = sum.Add(p)
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(priceBySize))))
	if avg.IsZero() {
		return decimal.Zero
	}
	return avg.Sub(totalCost).Div(avg).Mul(hundred)
}

// ComboOriginalPriceBySize sums, for each size, the components' price at that
// size. A component without a price for a size contributes 0.
func ComboOriginalPriceBySize(components []*model.Product, sizes []string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(sizes))
	for _, size := range sizes {
		sum := decimal.Zero
		for _, c := range components {
			if c == nil {
				continue
			}
			if p, ok := c.PriceBySize[size]; ok {
				sum = sum.Add(p)
			}
		}
		out[size] = sum
	}
	return out
}

// ComboFinalPriceBySize applies the discount and rounds half-up to a whole
// currency unit.
func ComboFinalPriceBySize(original map[string]decimal.Decimal, discountPercent decimal.Decimal) map[string]decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(discountPercent.Div(hundred))
	out := make(map[string]decimal.Decimal, len(original))
	for size, p := range original {
		out[size] = p.Mul(factor).Round(0)
	}
	return out
}

// ComboCost is the sum of the components' total costs. It is the same for
// every combo size.
func ComboCost(components []*model.Product) decimal.Decimal {
	total := decimal.Zero
	for _, c := range components {
		if c == nil {
			continue
		}
		total = total.Add(c.TotalCost)
	}
	return total
}

// ValidateDiscount rejects combo discounts outside [0, 50].
func ValidateDiscount(d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(MaxComboDiscount) {
		return ErrInvalidDiscount
	}
	return nil
}

// QuoteProduct derives price, cost and margin for any product variant.
// resolve is only consulted for combos.
func QuoteProduct(p *model.Product, resolve Resolver) (Quote, error) {
	switch v := p.Variant().(type) {
	case model.Simple:
		cost := TotalCost(v.Recipe)
		return Quote{
			PriceBySize:  copyPrices(v.PriceBySize),
			TotalCost:    cost,
			ProfitMargin: ProfitMarginPercent(v.PriceBySize, cost),
		}, nil
	case model.Combo:
		if err := ValidateDiscount(v.DiscountPercent); err != nil {
			return Quote{}, err
		}
		components, err := resolveComponents(v.Components, resolve)
		if err != nil {
			return Quote{}, err
		}
		original := ComboOriginalPriceBySize(components, p.Sizes)
		final := ComboFinalPriceBySize(original, v.DiscountPercent)
		cost := ComboCost(components)
		return Quote{
			PriceBySize:         final,
			OriginalPriceBySize: original,
			TotalCost:           cost,
			ProfitMargin:        ProfitMarginPercent(final, cost),
		}, nil
	default:
		return Quote{}, fmt.Errorf("pricing: unsupported product variant %T", v)
	}
}

// Apply writes the quote's derived fields onto the product.
func (q Quote) Apply(p *model.Product) {
	p.PriceBySize = q.PriceBySize
	p.TotalCost = q.TotalCost
	p.ProfitMargin = q.ProfitMargin.Round(2)
}

func resolveComponents(refs []model.ComboComponent, resolve Resolver) ([]*model.Product, error) {
	out := make([]*model.Product, 0, len(refs))
	for _, ref := range refs {
		if resolve == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, ref.ProductID)
		}
		c, ok := resolve(ref.ProductID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownComponent, ref.ProductID)
		}
		out = append(out, c)
	}
	return out, nil
}

func copyPrices(in map[string]decimal.Decimal) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
