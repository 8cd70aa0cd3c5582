package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/api/responses"
	"github.com/angelmondragon/larder-backend/api/validators"
	"github.com/angelmondragon/larder-backend/internal/purchasing"
	"github.com/angelmondragon/larder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
	"github.com/angelmondragon/larder-backend/pkg/logger"
	"github.com/angelmondragon/larder-backend/pkg/pagination"
)

type orderLineRequest struct {
	IngredientID string           `json:"ingredient_id" validate:"required,uuid"`
	Quantity     decimal.Decimal  `json:"quantity"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
}

type createOrderRequest struct {
	SupplierID           string             `json:"supplier_id" validate:"required,uuid"`
	OrderDate            *time.Time         `json:"order_date,omitempty"`
	ExpectedDeliveryDate *time.Time         `json:"expected_delivery_date,omitempty"`
	Notes                *string            `json:"notes,omitempty"`
	Lines                []orderLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (r createOrderRequest) toInput() (purchasing.CreateOrderInput, error) {
	ids, err := validators.ParseUUIDs("supplier_id", []string{r.SupplierID})
	if err != nil {
		return purchasing.CreateOrderInput{}, err
	}
	input := purchasing.CreateOrderInput{
		SupplierID:           ids[0],
		OrderDate:            r.OrderDate,
		ExpectedDeliveryDate: r.ExpectedDeliveryDate,
		Notes:                trimmedOrNil(r.Notes),
		Lines:                make([]purchasing.OrderLineInput, 0, len(r.Lines)),
	}
	for _, line := range r.Lines {
		parsed, err := validators.ParseUUIDs("ingredient_id", []string{line.IngredientID})
		if err != nil {
			return input, err
		}
		input.Lines = append(input.Lines, purchasing.OrderLineInput{
			IngredientID: parsed[0],
			Quantity:     line.Quantity,
			UnitPrice:    line.UnitPrice,
		})
	}
	return input, nil
}

// CreatePurchaseOrder stores a manual draft order.
func CreatePurchaseOrder(svc purchasing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.CreateOrder(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, toOrderView(*order))
	}
}

// ListPurchaseOrders pages through orders newest first. It accepts
// supplier_id, status (repeatable or comma separated), limit and cursor.
func ListPurchaseOrders(svc purchasing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		supplierID, err := validators.ParseQueryUUID(r, "supplier_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters := purchasing.OrderFilters{SupplierID: supplierID}
		for _, raw := range validators.ParseQueryList(r, "status") {
			status, err := enums.ParsePurchaseOrderStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			filters.Statuses = append(filters.Statuses, status)
		}

		list, err := svc.ListOrders(r.Context(), filters, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderListView(list))
	}
}

func GetPurchaseOrder(svc purchasing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderView(*order))
	}
}

type transitionRequest struct {
	Status string `json:"status" validate:"required,oneof=draft sent confirmed partially_delivered completed cancelled"`
}

// TransitionPurchaseOrder moves an order to the requested status.
func TransitionPurchaseOrder(svc purchasing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload transitionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParsePurchaseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		order, err := svc.Transition(r.Context(), id, target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderView(*order))
	}
}

type deliveredLineRequest struct {
	IngredientID string          `json:"ingredient_id" validate:"required,uuid"`
	Quantity     decimal.Decimal `json:"quantity"`
	LotNumber    *string         `json:"lot_number,omitempty"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
}

type deliveryRequest struct {
	DeliveryDate *time.Time             `json:"delivery_date,omitempty"`
	Lines        []deliveredLineRequest `json:"lines" validate:"required,min=1,dive"`
}

// RecordDelivery applies received goods to an order and the ledger.
func RecordDelivery(svc purchasing.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload deliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := purchasing.ApplyDeliveryInput{
			OrderID:      id,
			DeliveryDate: payload.DeliveryDate,
			Lines:        make([]purchasing.DeliveredLineInput, 0, len(payload.Lines)),
		}
		for _, line := range payload.Lines {
			parsed, err := validators.ParseUUIDs("ingredient_id", []string{line.IngredientID})
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Lines = append(input.Lines, purchasing.DeliveredLineInput{
				IngredientID: parsed[0],
				Quantity:     line.Quantity,
				LotNumber:    trimmedOrNil(line.LotNumber),
				ExpiresAt:    line.ExpiresAt,
			})
		}

		order, err := svc.ApplyDelivery(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toOrderView(*order))
	}
}
