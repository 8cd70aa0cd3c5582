package recipes

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListFilter narrows recipe listings.
type ListFilter struct {
	Category string
	Query    string
}

// CreateRecipeInput describes a new recipe.
type CreateRecipeInput struct {
	Name      string
	Category  string
	SalePrice decimal.Decimal
	Lines     []LineInput
}

// LineInput is one ingredient of a recipe batch.
type LineInput struct {
	IngredientID     uuid.UUID
	QuantityPerBatch decimal.Decimal
}
