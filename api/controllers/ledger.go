package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/api/responses"
	"github.com/angelmondragon/larder-backend/api/validators"
	"github.com/angelmondragon/larder-backend/internal/ledger"
	"github.com/angelmondragon/larder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
	"github.com/angelmondragon/larder-backend/pkg/logger"
)

// StockReader derives current stock from the ledger.
type StockReader interface {
	CurrentStock(ctx context.Context, ingredientID uuid.UUID) (decimal.Decimal, error)
	StockLevels(ctx context.Context, ingredientIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

type recordMovementRequest struct {
	Quantity   decimal.Decimal `json:"quantity"`
	Kind       string          `json:"kind" validate:"omitempty,oneof=load unload adjustment"`
	OccurredAt *time.Time      `json:"occurred_at,omitempty"`
	LotNumber  *string         `json:"lot_number,omitempty"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
	Note       *string         `json:"note,omitempty"`
}

func (r recordMovementRequest) toInput(ingredientID uuid.UUID) (ledger.RecordMovementInput, error) {
	input := ledger.RecordMovementInput{
		IngredientID: ingredientID,
		Quantity:     r.Quantity,
		OccurredAt:   r.OccurredAt,
		LotNumber:    trimmedOrNil(r.LotNumber),
		ExpiresAt:    r.ExpiresAt,
		Note:         trimmedOrNil(r.Note),
	}
	if kind := strings.TrimSpace(r.Kind); kind != "" {
		parsed, err := enums.ParseMovementKind(kind)
		if err != nil {
			return input, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid movement kind")
		}
		input.Kind = parsed
	}
	return input, nil
}

// RecordMovement appends a manual stock movement for one ingredient.
func RecordMovement(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ingredientID, err := validators.PathUUID(r, "ingredientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var payload recordMovementRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput(ingredientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movement, err := svc.RecordMovement(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, toMovementView(*movement))
	}
}

// ListMovements returns the ingredient's movements within an optional window.
func ListMovements(svc ledger.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ingredientID, err := validators.PathUUID(r, "ingredientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryTime(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movements, err := svc.MovementsFor(r.Context(), ingredientID, ledger.DateRange{From: from, To: to})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		views := make([]movementView, 0, len(movements))
		for _, movement := range movements {
			views = append(views, toMovementView(movement))
		}
		responses.WriteSuccess(w, views)
	}
}

type stockView struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	CurrentStock decimal.Decimal `json:"current_stock"`
}

func GetStock(svc StockReader, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ingredientID, err := validators.PathUUID(r, "ingredientId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		current, err := svc.CurrentStock(r.Context(), ingredientID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stockView{IngredientID: ingredientID, CurrentStock: current})
	}
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
