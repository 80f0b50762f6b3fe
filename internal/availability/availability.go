// Package availability computes how many units of a product can be made
// from the ingredient stock on hand.
package availability

import (
	"math"

	"brewpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Unlimited is the MaxProducible reported when stock does not constrain a product.
const Unlimited = math.MaxInt32

var unlimitedDec = decimal.NewFromInt(Unlimited)

// Snapshot maps ingredient id to current stock.
type Snapshot map[uuid.UUID]decimal.Decimal

// Result of an availability computation.
type Result struct {
	MaxProducible      int    `json:"max_producible"`
	LimitingIngredient string `json:"limiting_ingredient,omitempty"`
	Unconstrained      bool   `json:"unconstrained"`
}

// HasStock reports whether at least one unit can be produced.
func (r Result) HasStock() bool { return r.MaxProducible > 0 }

func unconstrained() Result {
	return Result{MaxProducible: Unlimited, Unconstrained: true}
}

// Compute returns the maximum producible quantity of a recipe against stock.
//
// An empty recipe, or allowNegative, is unconstrained. An ingredient missing
// from the snapshot makes the product unavailable and is reported as the
// limiting ingredient. Lines with a non-positive quantity do not constrain.
// Ties for the minimum go to the earliest line in recipe order.
func Compute(recipe []model.RecipeLine, stock Snapshot, allowNegative bool) Result {
	if len(recipe) == 0 || allowNegative {
		return unconstrained()
	}

	res := unconstrained()
	for _, line := range recipe {
		onHand, ok := stock[line.IngredientID]
		if !ok {
			return Result{MaxProducible: 0, LimitingIngredient: line.IngredientName}
		}
		if !line.Quantity.IsPositive() {
			continue
		}
		n := floorUnits(onHand, line.Quantity)
		if res.Unconstrained || n < res.MaxProducible {
			res = Result{MaxProducible: n, LimitingIngredient: line.IngredientName}
		}
	}
	return res
}

// floorUnits is floor(stock / perUnit), clamped to [0, Unlimited].
func floorUnits(stock, perUnit decimal.Decimal) int {
	if !stock.IsPositive() {
		return 0
	}
	q := stock.Div(perUnit).Floor()
	if q.GreaterThanOrEqual(unlimitedDec) {
		return Unlimited
	}
	return int(q.IntPart())
}

// IngredientIDs lists the distinct ingredient ids referenced by the recipes.
func IngredientIDs(recipes ...[]model.RecipeLine) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	var ids []uuid.UUID
	for _, recipe := range recipes {
		for _, r := range recipe {
			if _, ok := seen[r.IngredientID]; ok {
				continue
			}
			seen[r.IngredientID] = struct{}{}
			ids = append(ids, r.IngredientID)
		}
	}
	return ids
}
