package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/api/responses"
	"github.com/angelmondragon/larder-backend/api/validators"
	"github.com/angelmondragon/larder-backend/internal/recipes"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
	"github.com/angelmondragon/larder-backend/pkg/logger"
)

type recipeLineRequest struct {
	IngredientID     string          `json:"ingredient_id" validate:"required,uuid"`
	QuantityPerBatch decimal.Decimal `json:"quantity_per_batch"`
}

type createRecipeRequest struct {
	Name      string              `json:"name" validate:"required"`
	Category  string              `json:"category"`
	SalePrice decimal.Decimal     `json:"sale_price"`
	Lines     []recipeLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (r createRecipeRequest) toInput() (recipes.CreateRecipeInput, error) {
	input := recipes.CreateRecipeInput{
		Name:      r.Name,
		Category:  r.Category,
		SalePrice: r.SalePrice,
		Lines:     make([]recipes.LineInput, 0, len(r.Lines)),
	}
	ids := make([]string, 0, len(r.Lines))
	for _, line := range r.Lines {
		ids = append(ids, line.IngredientID)
	}
	parsed, err := validators.ParseUUIDs("ingredient_id", ids)
	if err != nil {
		return input, err
	}
	for i, line := range r.Lines {
		input.Lines = append(input.Lines, recipes.LineInput{
			IngredientID:     parsed[i],
			QuantityPerBatch: line.QuantityPerBatch,
		})
	}
	return input, nil
}

// CreateRecipe stores a recipe with its batch lines.
func CreateRecipe(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createRecipeRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recipe, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, toRecipeView(*recipe))
	}
}

func ListRecipes(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.List(r.Context(), recipes.ListFilter{
			Category: validators.SanitizeString(r.URL.Query().Get("category"), maxSearchLen),
			Query:    validators.SanitizeString(r.URL.Query().Get("q"), maxSearchLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]recipeView, 0, len(list))
		for _, recipe := range list {
			views = append(views, toRecipeView(recipe))
		}
		responses.WriteSuccess(w, views)
	}
}

// GetRecipe returns the recipe with its cost and margin at current prices.
func GetRecipe(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "recipeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		recipe, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pricing, err := svc.Cost(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view := toRecipeView(*recipe)
		view.Pricing = &pricing
		responses.WriteSuccess(w, view)
	}
}

type consumptionView struct {
	RecipeID  string                    `json:"recipe_id"`
	Quantity  decimal.Decimal           `json:"quantity"`
	Lines     []recipes.ConsumptionLine `json:"lines"`
	TotalCost decimal.Decimal           `json:"total_cost"`
}

// GetConsumption computes ingredient demand for ?quantity= batches.
func GetConsumption(svc recipes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "recipeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantity, err := validators.ParseQueryDecimal(r, "quantity")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if quantity == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "quantity is required"))
			return
		}

		lines, err := svc.Consumption(r.Context(), id, *quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		total := decimal.Zero
		for _, line := range lines {
			total = total.Add(line.LineCost)
		}
		responses.WriteSuccess(w, consumptionView{
			RecipeID:  id.String(),
			Quantity:  *quantity,
			Lines:     lines,
			TotalCost: total,
		})
	}
}
