package cart_test

import (
	"testing"

	"brewpos/internal/availability"
	"brewpos/internal/cart"
	"brewpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var milkID = uuid.New()

func milkTea() *model.Product {
	return &model.Product{
		ID:    uuid.New(),
		Name:  "Milk tea",
		Kind:  model.KindSimple,
		Sizes: []string{"S", "M"},
		PriceBySize: map[string]decimal.Decimal{
			"S": decimal.NewFromInt(20000),
			"M": decimal.NewFromInt(25000),
		},
		Recipe: []model.RecipeLine{
			{IngredientID: milkID, IngredientName: "milk", Unit: "ml", Quantity: decimal.NewFromInt(20)},
		},
	}
}

func stock(milk int64) availability.Snapshot {
	return availability.Snapshot{milkID: decimal.NewFromInt(milk)}
}

func TestAdd_MergesSameKey(t *testing.T) {
	c := cart.New()
	p := milkTea()

	_, err := c.Add(p, "S", stock(100), false)
	require.NoError(t, err)
	line, err := c.Add(p, "S", stock(100), false)
	require.NoError(t, err)

	require.Len(t, c.Items, 1)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, 5, line.MaxQuantity)
	assert.True(t, line.HasStock)
}

func TestAdd_ConstrainedRejectsSixthUnit(t *testing.T) {
	c := cart.New()
	p := milkTea()
	for i := 0; i < 5; i++ {
		_, err := c.Add(p, "S", stock(100), false)
		require.NoError(t, err)
	}

	_, err := c.Add(p, "S", stock(100), false)
	var stockErr *cart.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "milk", stockErr.Ingredient)
	assert.Contains(t, err.Error(), "limited by milk")
	assert.Equal(t, 5, c.ItemCount(), "rejected add must not mutate the cart")
}

func TestAdd_UnconstrainedAcceptsSixthUnitWithoutStock(t *testing.T) {
	c := cart.New()
	p := milkTea()
	var line *cart.Line
	var err error
	for i := 0; i < 6; i++ {
		line, err = c.Add(p, "S", stock(100), true)
		require.NoError(t, err)
	}
	assert.Equal(t, 6, line.Quantity)
	assert.False(t, line.HasStock)
	assert.Equal(t, availability.Unlimited, line.MaxQuantity)
}

func TestAdd_CountsOtherSizesOfSameProduct(t *testing.T) {
	c := cart.New()
	p := milkTea()
	for i := 0; i < 4; i++ {
		_, err := c.Add(p, "S", stock(100), false)
		require.NoError(t, err)
	}
	m, err := c.Add(p, "M", stock(100), false)
	require.NoError(t, err)
	assert.Equal(t, 1, m.MaxQuantity)

	_, err = c.Add(p, "M", stock(100), false)
	assert.Error(t, err)

	s := c.Line(cart.Key{ProductID: p.ID, Size: "S"})
	require.NotNil(t, s)
	assert.Equal(t, 4, s.MaxQuantity, "sibling ceiling must shrink once another size is added")
}

func TestAdd_MissingIngredientFailsClosed(t *testing.T) {
	c := cart.New()
	_, err := c.Add(milkTea(), "S", availability.Snapshot{}, false)
	var stockErr *cart.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, "milk", stockErr.Ingredient)
	assert.True(t, c.Empty())
}

func TestAdd_UnknownSize(t *testing.T) {
	c := cart.New()
	_, err := c.Add(milkTea(), "XL", stock(100), false)
	assert.ErrorIs(t, err, cart.ErrUnknownSize)
}

func TestAdd_ComboIsUnconstrained(t *testing.T) {
	combo := &model.Product{
		ID:          uuid.New(),
		Name:        "Breakfast combo",
		Kind:        model.KindCombo,
		Sizes:       []string{"S"},
		PriceBySize: map[string]decimal.Decimal{"S": decimal.NewFromInt(31500)},
		Components:  []model.ComboComponent{{ProductID: uuid.New(), Size: "S"}},
	}
	c := cart.New()
	line, err := c.Add(combo, "S", availability.Snapshot{}, false)
	require.NoError(t, err)
	assert.Empty(t, line.Recipe)
	assert.True(t, line.HasStock)
	assert.Equal(t, availability.Unlimited, line.MaxQuantity)
}

func TestSetQuantity(t *testing.T) {
	c := cart.New()
	p := milkTea()
	_, err := c.Add(p, "S", stock(100), false)
	require.NoError(t, err)
	key := cart.Key{ProductID: p.ID, Size: "S"}

	require.NoError(t, c.SetQuantity(key, 5, false))
	assert.Equal(t, 5, c.Line(key).Quantity)

	err = c.SetQuantity(key, 6, false)
	var limitErr *cart.QuantityLimitError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 5, limitErr.Max)
	assert.Equal(t, 5, c.Line(key).Quantity)

	require.NoError(t, c.SetQuantity(key, 6, true))
	assert.False(t, c.Line(key).HasStock)

	require.NoError(t, c.SetQuantity(key, 0, false))
	assert.True(t, c.Empty())

	assert.ErrorIs(t, c.SetQuantity(key, 1, false), cart.ErrLineNotFound)
}

func TestRemove_WidensSiblingCeiling(t *testing.T) {
	c := cart.New()
	p := milkTea()
	for i := 0; i < 2; i++ {
		_, err := c.Add(p, "S", stock(100), false)
		require.NoError(t, err)
	}
	_, err := c.Add(p, "M", stock(100), false)
	require.NoError(t, err)

	assert.True(t, c.Remove(cart.Key{ProductID: p.ID, Size: "S"}))
	assert.Equal(t, 5, c.Line(cart.Key{ProductID: p.ID, Size: "M"}).MaxQuantity)
	assert.False(t, c.Remove(cart.Key{ProductID: p.ID, Size: "S"}))
}

func TestTotals(t *testing.T) {
	c := cart.New()
	p := milkTea()
	_, _ = c.Add(p, "S", stock(1000), false)
	_, _ = c.Add(p, "S", stock(1000), false)
	_, _ = c.Add(p, "M", stock(1000), false)

	assert.Equal(t, "65000", c.Total().String())
	assert.Equal(t, 3, c.ItemCount())

	c.Clear()
	assert.True(t, c.Total().IsZero())
	assert.Equal(t, 0, c.ItemCount())
}

func TestParseKey(t *testing.T) {
	id := uuid.New()
	key, err := cart.ParseKey(cart.Key{ProductID: id, Size: "M"}.String())
	require.NoError(t, err)
	assert.Equal(t, cart.Key{ProductID: id, Size: "M"}, key)

	_, err = cart.ParseKey("nope")
	assert.ErrorIs(t, err, cart.ErrInvalidKey)
	_, err = cart.ParseKey("not-a-uuid:S")
	assert.ErrorIs(t, err, cart.ErrInvalidKey)
}
