// Package cart holds the in-progress order of one checkout session.
package cart

import (
	"fmt"
	"strings"

	"brewpos/internal/availability"
	"brewpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Key identifies a cart line. Lines with the same key are merged.
type Key struct {
	ProductID uuid.UUID
	Size      string
}

func (k Key) String() string { return k.ProductID.String() + ":" + k.Size }

// ParseKey parses the "<product-id>:<size>" form produced by Key.String.
func ParseKey(s string) (Key, error) {
	id, size, ok := strings.Cut(s, ":")
	if !ok || size == "" {
		return Key{}, ErrInvalidKey
	}
	pid, err := uuid.Parse(id)
	if err != nil {
		return Key{}, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}
	return Key{ProductID: pid, Size: size}, nil
}

// Line is one product/size entry. Name, price and recipe are snapshots taken
// when the line was created.
type Line struct {
	ProductID   uuid.UUID          `json:"product_id"`
	ProductName string             `json:"product_name"`
	Size        string             `json:"size"`
	UnitPrice   decimal.Decimal    `json:"unit_price"`
	Quantity    int                `json:"quantity"`
	MaxQuantity int                `json:"max_quantity"`
	Recipe      []model.RecipeLine `json:"recipe,omitempty"`
	HasStock    bool               `json:"has_stock"`

	// Available is the product's producible quantity at the last stock check,
	// shared by every size of the product.
	Available          int    `json:"available"`
	LimitingIngredient string `json:"limiting_ingredient,omitempty"`
}

// Key returns the line's identity.
func (l *Line) Key() Key { return Key{ProductID: l.ProductID, Size: l.Size} }

// Total is unit price × quantity.
func (l *Line) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is an ordered set of lines, at most one per Key.
type Cart struct {
	Items []*Line `json:"items"`
}

// New returns an empty cart.
func New() *Cart { return &Cart{} }

// RecipeOf returns the recipe snapshot a cart line carries for p.
// Combos carry none: they are not stock constrained and debit nothing.
func RecipeOf(p *model.Product) []model.RecipeLine {
	switch v := p.Variant().(type) {
	case model.Simple:
		out := make([]model.RecipeLine, len(v.Recipe))
		copy(out, v.Recipe)
		return out
	case model.Combo:
		return nil
	default:
		return nil
	}
}

// Add puts one unit of p in the given size into the cart.
//
// Unless allowNegative is set, the product's availability minus what the cart
// already holds for it (all sizes) must leave at least one unit; otherwise an
// *InsufficientStockError names the limiting ingredient and the cart is not
// changed.
func (c *Cart) Add(p *model.Product, size string, stock availability.Snapshot, allowNegative bool) (*Line, error) {
	if !p.HasSize(size) {
		return nil, ErrUnknownSize
	}
	price, ok := p.PriceBySize[size]
	if !ok {
		return nil, ErrUnpriced
	}

	recipe := RecipeOf(p)
	avail := availability.Compute(recipe, stock, false)
	inCart := c.productQuantity(p.ID)

	if !allowNegative && !avail.Unconstrained && remaining(avail.MaxProducible, inCart) <= 0 {
		return nil, &InsufficientStockError{Ingredient: avail.LimitingIngredient, Available: avail.MaxProducible}
	}

	line := c.find(Key{ProductID: p.ID, Size: size})
	if line != nil {
		line.Quantity++
	} else {
		line = &Line{
			ProductID:   p.ID,
			ProductName: p.Name,
			Size:        size,
			UnitPrice:   price,
			Quantity:    1,
			Recipe:      recipe,
		}
		c.Items = append(c.Items, line)
	}

	for _, l := range c.Items {
		if l.ProductID == p.ID {
			l.Available = avail.MaxProducible
			l.LimitingIngredient = avail.LimitingIngredient
		}
	}
	c.refresh(p.ID, allowNegative)
	return line, nil
}

// SetQuantity changes a line's quantity. n ≤ 0 removes the line. Unless
// allowNegative is set, n may not exceed the line's ceiling.
func (c *Cart) SetQuantity(key Key, n int, allowNegative bool) error {
	line := c.find(key)
	if line == nil {
		return ErrLineNotFound
	}
	if n <= 0 {
		c.Remove(key)
		return nil
	}
	if !allowNegative && line.Available != availability.Unlimited {
		ceiling := c.ceiling(line)
		if n > ceiling {
			return &QuantityLimitError{Max: ceiling, Ingredient: line.LimitingIngredient}
		}
	}
	line.Quantity = n
	c.refresh(key.ProductID, allowNegative)
	return nil
}

// Remove deletes the line with the given key. It reports whether a line existed.
func (c *Cart) Remove(key Key) bool {
	for i, l := range c.Items {
		if l.Key() == key {
			c.Items = append(c.Items[:i], c.Items[i+1:]...)
			c.release(key.ProductID)
			return true
		}
	}
	return false
}

// Clear empties the cart.
func (c *Cart) Clear() { c.Items = nil }

// Line returns the line with the given key, or nil.
func (c *Cart) Line(key Key) *Line { return c.find(key) }

// Lines returns the cart lines in insertion order.
func (c *Cart) Lines() []*Line { return c.Items }

// Empty reports whether the cart has no lines.
func (c *Cart) Empty() bool { return len(c.Items) == 0 }

// Total is Σ unit price × quantity.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Items {
		total = total.Add(l.Total())
	}
	return total
}

// ItemCount is Σ quantity.
func (c *Cart) ItemCount() int {
	n := 0
	for _, l := range c.Items {
		n += l.Quantity
	}
	return n
}

func (c *Cart) find(key Key) *Line {
	for _, l := range c.Items {
		if l.Key() == key {
			return l
		}
	}
	return nil
}

func (c *Cart) productQuantity(id uuid.UUID) int {
	n := 0
	for _, l := range c.Items {
		if l.ProductID == id {
			n += l.Quantity
		}
	}
	return n
}

// ceiling is the most units this line may hold given the other sizes of the
// same product already in the cart.
func (c *Cart) ceiling(line *Line) int {
	others := c.productQuantity(line.ProductID) - line.Quantity
	return remaining(line.Available, others)
}

// refresh recomputes MaxQuantity and HasStock for every line of a product.
func (c *Cart) refresh(id uuid.UUID, allowNegative bool) {
	for _, l := range c.Items {
		if l.ProductID != id {
			continue
		}
		ceiling := c.ceiling(l)
		l.HasStock = l.Available == availability.Unlimited || l.Quantity <= ceiling
		if allowNegative || l.Available == availability.Unlimited {
			l.MaxQuantity = availability.Unlimited
		} else {
			l.MaxQuantity = ceiling
		}
	}
}

// release widens the ceilings of a product's remaining lines after one of its
// sizes left the cart. Lines added in allow-negative mode stay unlimited.
func (c *Cart) release(id uuid.UUID) {
	for _, l := range c.Items {
		if l.ProductID != id {
			continue
		}
		ceiling := c.ceiling(l)
		l.HasStock = l.Available == availability.Unlimited || l.Quantity <= ceiling
		if l.MaxQuantity != availability.Unlimited {
			l.MaxQuantity = ceiling
		}
	}
}

func remaining(available, used int) int {
	if available == availability.Unlimited {
		return availability.Unlimited
	}
	if r := available - used; r > 0 {
		return r
	}
	return 0
}
