package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/api/responses"
	"github.com/angelmondragon/larder-backend/api/validators"
	"github.com/angelmondragon/larder-backend/internal/catalog"
	"github.com/angelmondragon/larder-backend/internal/replenishment"
	"github.com/angelmondragon/larder-backend/pkg/logger"
)

// ListDeficits reports every active ingredient below its minimum stock.
func ListDeficits(svc replenishment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids, err := validators.ParseUUIDs("ingredient_id", validators.ParseQueryList(r, "ingredient_id"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		report, err := svc.DeficitsFor(r.Context(), catalog.IngredientFilter{
			Category: validators.SanitizeString(r.URL.Query().Get("category"), maxSearchLen),
			IDs:      ids,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, report)
	}
}

type generateRequest struct {
	IngredientIDs    []string                   `json:"ingredient_ids" validate:"dive,required,uuid"`
	Category         string                     `json:"category"`
	TargetQuantity   *decimal.Decimal           `json:"target_quantity,omitempty"`
	TargetQuantities map[string]decimal.Decimal `json:"target_quantities,omitempty"`
	DryRun           bool                       `json:"dry_run"`
}

func (r generateRequest) toInput() (replenishment.GenerateInput, error) {
	ids, err := validators.ParseUUIDs("ingredient_ids", r.IngredientIDs)
	if err != nil {
		return replenishment.GenerateInput{}, err
	}
	input := replenishment.GenerateInput{
		IngredientIDs:  ids,
		Category:       r.Category,
		TargetQuantity: r.TargetQuantity,
		DryRun:         r.DryRun,
	}
	if len(r.TargetQuantities) > 0 {
		input.TargetQuantities = make(map[uuid.UUID]decimal.Decimal, len(r.TargetQuantities))
		for raw, target := range r.TargetQuantities {
			parsed, err := validators.ParseUUIDs("target_quantities", []string{raw})
			if err != nil {
				return input, err
			}
			input.TargetQuantities[parsed[0]] = target
		}
	}
	return input, nil
}

// GenerateDrafts turns current deficits into draft purchase orders, one per
// preferred supplier. dry_run returns the drafts without persisting them.
func GenerateDrafts(svc replenishment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload generateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.GenerateDrafts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeReplenishment(w, input.DryRun, out)
	}
}

type planRequest struct {
	RecipeID string          `json:"recipe_id" validate:"required,uuid"`
	Batches  decimal.Decimal `json:"batches"`
	DryRun   bool            `json:"dry_run"`
}

// PlanProduction drafts the orders needed before producing a recipe.
func PlanProduction(svc replenishment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload planRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ids, err := validators.ParseUUIDs("recipe_id", []string{payload.RecipeID})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		out, err := svc.PlanProduction(r.Context(), replenishment.PlanInput{
			RecipeID: ids[0],
			Batches:  payload.Batches,
			DryRun:   payload.DryRun,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeReplenishment(w, payload.DryRun, out)
	}
}

func writeReplenishment(w http.ResponseWriter, dryRun bool, out replenishment.GenerateOutput) {
	if !dryRun && len(out.Orders) > 0 {
		responses.WriteCreated(w, toReplenishmentView(out))
		return
	}
	responses.WriteSuccess(w, toReplenishmentView(out))
}
