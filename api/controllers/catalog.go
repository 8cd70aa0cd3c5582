package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/api/responses"
	"github.com/angelmondragon/larder-backend/api/validators"
	"github.com/angelmondragon/larder-backend/internal/catalog"
	"github.com/angelmondragon/larder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
	"github.com/angelmondragon/larder-backend/pkg/logger"
)

const maxSearchLen = 120

type createSupplierRequest struct {
	Name             string `json:"name" validate:"required"`
	ContactName      string `json:"contact_name"`
	Email            string `json:"email" validate:"omitempty,email"`
	Phone            string `json:"phone"`
	LeadTimeDays     int    `json:"lead_time_days" validate:"min=0"`
	PaymentTermsType string `json:"payment_terms_type" validate:"omitempty,oneof=immediate net end_of_month"`
	PaymentTermsDays int    `json:"payment_terms_days" validate:"min=0"`
}

// CreateSupplier registers a supplier.
func CreateSupplier(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createSupplierRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		supplier, err := svc.CreateSupplier(r.Context(), catalog.CreateSupplierInput{
			Name:             payload.Name,
			ContactName:      payload.ContactName,
			Email:            payload.Email,
			Phone:            payload.Phone,
			LeadTimeDays:     payload.LeadTimeDays,
			PaymentTermsType: enums.PaymentTermsType(payload.PaymentTermsType),
			PaymentTermsDays: payload.PaymentTermsDays,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, toSupplierView(*supplier))
	}
}

func ListSuppliers(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly, err := validators.ParseQueryBool(r, "active", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		suppliers, err := svc.ListSuppliers(r.Context(), catalog.SupplierFilter{
			ActiveOnly: activeOnly,
			Query:      validators.SanitizeString(r.URL.Query().Get("q"), maxSearchLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]supplierView, 0, len(suppliers))
		for _, supplier := range suppliers {
			views = append(views, toSupplierView(supplier))
		}
		responses.WriteSuccess(w, views)
	}
}

func GetSupplier(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "supplierId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplier, err := svc.GetSupplier(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toSupplierView(*supplier))
	}
}

type createIngredientRequest struct {
	Name         string          `json:"name" validate:"required"`
	Category     string          `json:"category"`
	Unit         string          `json:"unit" validate:"required"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	MinimumStock decimal.Decimal `json:"minimum_stock"`
	SupplierIDs  []string        `json:"supplier_ids" validate:"dive,required,uuid"`
}

// CreateIngredient registers an ingredient and its ordered supplier list.
func CreateIngredient(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createIngredientRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unit, err := enums.ParseUnitOfMeasure(strings.TrimSpace(payload.Unit))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit"))
			return
		}
		supplierIDs, err := validators.ParseUUIDs("supplier_ids", payload.SupplierIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ingredient, err := svc.CreateIngredient(r.Context(), catalog.CreateIngredientInput{
			Name:         payload.Name,
			Category:     payload.Category,
			Unit:         unit,
			UnitPrice:    payload.UnitPrice,
			MinimumStock: payload.MinimumStock,
			SupplierIDs:  supplierIDs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, toIngredientView(*ingredient))
	}
}

type updateIngredientRequest struct {
	Name         *string          `json:"name,omitempty"`
	Category     *string          `json:"category,omitempty"`
	Unit         *string          `json:"unit,omitempty"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	MinimumStock *decimal.Decimal `json:"minimum_stock,omitempty"`
	SupplierIDs  *[]string        `json:"supplier_ids,omitempty"`
	Active       *bool            `json:"active,omitempty"`
}

// UpdateIngredient patches the fields present in the body.
func UpdateIngredient(svc catalog.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "ingredientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload updateIngredientRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := catalog.UpdateIngredientInput{
			Name:         payload.Name,
			Category:     payload.Category,
			UnitPrice:    payload.UnitPrice,
			MinimumStock: payload.MinimumStock,
			Active:       payload.Active,
		}
		if payload.Unit != nil {
			unit, err := enums.ParseUnitOfMeasure(strings.TrimSpace(*payload.Unit))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid unit"))
				return
			}
			input.Unit = &unit
		}
		if payload.SupplierIDs != nil {
			ids, err := validators.ParseUUIDs("supplier_ids", *payload.SupplierIDs)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.SupplierIDs = &ids
		}

		ingredient, err := svc.UpdateIngredient(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toIngredientView(*ingredient))
	}
}

// ListIngredients returns catalog entries with their current stock.
func ListIngredients(svc catalog.Service, stock StockReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly, err := validators.ParseQueryBool(r, "active", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ingredients, err := svc.ListIngredients(r.Context(), catalog.IngredientFilter{
			Category:   validators.SanitizeString(r.URL.Query().Get("category"), maxSearchLen),
			ActiveOnly: activeOnly,
			Query:      validators.SanitizeString(r.URL.Query().Get("q"), maxSearchLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		views := make([]ingredientView, 0, len(ingredients))
		for _, ingredient := range ingredients {
			views = append(views, toIngredientView(ingredient))
		}
		if stock != nil && len(ingredients) > 0 {
			ids := make([]uuid.UUID, 0, len(ingredients))
			for _, ingredient := range ingredients {
				ids = append(ids, ingredient.ID)
			}
			levels, err := stock.StockLevels(r.Context(), ids)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			for i := range views {
				level := levels[views[i].ID]
				views[i].CurrentStock = &level
			}
		}
		responses.WriteSuccess(w, views)
	}
}

func GetIngredient(svc catalog.Service, stock StockReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "ingredientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ingredient, err := svc.GetIngredient(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		view := toIngredientView(*ingredient)
		if stock != nil {
			current, err := stock.CurrentStock(r.Context(), id)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			view.CurrentStock = &current
		}
		responses.WriteSuccess(w, view)
	}
}
