package recipes

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/pkg/db/models"
	"github.com/angelmondragon/larder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
)

// marginPlaces is the precision kept for the margin ratio.
const marginPlaces = 4

// ConsumptionLine is the ingredient demand of a production run.
type ConsumptionLine struct {
	IngredientID     uuid.UUID           `json:"ingredient_id"`
	IngredientName   string              `json:"ingredient_name"`
	Unit             enums.UnitOfMeasure `json:"unit"`
	QuantityPerBatch decimal.Decimal     `json:"quantity_per_batch"`
	QuantityRequired decimal.Decimal     `json:"quantity_required"`
	UnitCost         decimal.Decimal     `json:"unit_cost"`
	LineCost         decimal.Decimal     `json:"line_cost"`
}

// Pricing is the derived cost view of a recipe. Margin is nil when the sale
// price is not positive.
type Pricing struct {
	Cost      decimal.Decimal  `json:"cost"`
	SalePrice decimal.Decimal  `json:"sale_price"`
	Margin    *decimal.Decimal `json:"margin"`
}

// ConsumptionFor computes the ingredient quantities and costs needed to
// produce the given number of batches. It is pure; ingredients must contain
// every ingredient the recipe references.
func ConsumptionFor(recipe models.Recipe, ingredients map[uuid.UUID]models.Ingredient, produced decimal.Decimal) ([]ConsumptionLine, error) {
	if !produced.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "produced quantity must be positive")
	}

	lines := make([]ConsumptionLine, 0, len(recipe.Lines))
	for _, line := range recipe.Lines {
		ingredient, ok := ingredients[line.IngredientID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("ingredient %s not found", line.IngredientID)).
				WithDetails(map[string]any{"ingredient_id": line.IngredientID})
		}
		required := line.QuantityPerBatch.Mul(produced)
		lines = append(lines, ConsumptionLine{
			IngredientID:     ingredient.ID,
			IngredientName:   ingredient.Name,
			Unit:             ingredient.Unit,
			QuantityPerBatch: line.QuantityPerBatch,
			QuantityRequired: required,
			UnitCost:         ingredient.UnitPrice,
			LineCost:         required.Mul(ingredient.UnitPrice),
		})
	}
	return lines, nil
}

// Price derives cost and margin for one batch of the recipe.
func Price(recipe models.Recipe, ingredients map[uuid.UUID]models.Ingredient) (Pricing, error) {
	lines, err := ConsumptionFor(recipe, ingredients, decimal.NewFromInt(1))
	if err != nil {
		return Pricing{}, err
	}

	cost := decimal.Zero
	for _, line := range lines {
		cost = cost.Add(line.LineCost)
	}

	pricing := Pricing{Cost: cost, SalePrice: recipe.SalePrice}
	if recipe.SalePrice.IsPositive() {
		margin := recipe.SalePrice.Sub(cost).Div(recipe.SalePrice).Round(marginPlaces)
		pricing.Margin = &margin
	}
	return pricing, nil
}
