package purchasing

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/larder-backend/internal/ledger"
	"github.com/angelmondragon/larder-backend/pkg/db/models"
	"github.com/angelmondragon/larder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
	"github.com/angelmondragon/larder-backend/pkg/outbox"
	"github.com/angelmondragon/larder-backend/pkg/outbox/payloads"
)

// PlanDelivery validates every delivered entry against the order before
// anything is written. It returns the new delivered quantity per line id.
// Repeated entries for one ingredient accumulate.
func PlanDelivery(order models.PurchaseOrder, entries []DeliveredLineInput) (map[uuid.UUID]decimal.Decimal, error) {
	if len(entries) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery requires at least one line")
	}

	delivered := make(map[uuid.UUID]decimal.Decimal, len(order.Lines))
	for _, entry := range entries {
		if entry.IngredientID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id required")
		}
		if !entry.Quantity.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivered quantity must be positive")
		}
		line, ok := order.LineFor(entry.IngredientID)
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeLineNotFound, fmt.Sprintf("order has no line for ingredient %s", entry.IngredientID)).
				WithDetails(map[string]any{"ingredient_id": entry.IngredientID})
		}

		current, seen := delivered[line.ID]
		if !seen {
			current = line.DeliveredQuantity
		}
		next := current.Add(entry.Quantity)
		if next.GreaterThan(line.OrderedQuantity) {
			return nil, pkgerrors.New(pkgerrors.CodeOverDelivery, fmt.Sprintf("delivery exceeds ordered quantity for ingredient %s", entry.IngredientID)).
				WithDetails(map[string]any{
					"ingredient_id": entry.IngredientID,
					"ordered":       line.OrderedQuantity,
					"delivered":     line.DeliveredQuantity,
					"requested":     next.Sub(line.DeliveredQuantity),
				})
		}
		delivered[line.ID] = next
	}
	return delivered, nil
}

// ApplyDelivery reconciles received goods into the order and the stock
// ledger in one transaction. Any invalid entry aborts the whole delivery.
func (s *service) ApplyDelivery(ctx context.Context, input ApplyDeliveryInput) (*models.PurchaseOrder, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	deliveryDate := s.now().UTC()
	if input.DeliveryDate != nil && !input.DeliveryDate.IsZero() {
		deliveryDate = input.DeliveryDate.UTC()
	}

	var (
		result *models.PurchaseOrder
		from   enums.PurchaseOrderStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			return orderLookupError(err)
		}
		from = order.Status
		if !order.Status.AcceptsDeliveries() {
			return pkgerrors.New(pkgerrors.CodeInvalidTransition, fmt.Sprintf("order in status %s cannot receive deliveries", order.Status)).
				WithDetails(map[string]any{"from": order.Status})
		}

		plan, err := PlanDelivery(*order, input.Lines)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		for i := range order.Lines {
			line := &order.Lines[i]
			next, ok := plan[line.ID]
			if !ok {
				continue
			}
			if err := repo.UpdateLineDelivered(ctx, line.ID, next, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update delivered quantity")
			}
			line.DeliveredQuantity = next
			line.UpdatedAt = now
		}

		orderID := order.ID
		delivered := make([]payloads.DeliveredLine, 0, len(input.Lines))
		for _, entry := range input.Lines {
			movement, err := s.ledger.AppendMovement(ctx, tx, ledger.RecordMovementInput{
				IngredientID:    entry.IngredientID,
				Quantity:        entry.Quantity,
				Kind:            enums.MovementKindLoad,
				OccurredAt:      &deliveryDate,
				LotNumber:       entry.LotNumber,
				ExpiresAt:       entry.ExpiresAt,
				Note:            stringPtr("delivery " + order.OrderNumber),
				PurchaseOrderID: &orderID,
			})
			if err != nil {
				return err
			}
			delivered = append(delivered, payloads.DeliveredLine{
				IngredientID: entry.IngredientID,
				Quantity:     entry.Quantity,
				MovementID:   movement.ID,
				LotNumber:    movement.LotNumber,
			})
		}

		next := DeriveStatus(*order)
		if next != order.Status {
			var deliveredAt *time.Time
			if next == enums.PurchaseOrderStatusCompleted {
				deliveredAt = &deliveryDate
			}
			if err := repo.UpdateStatus(ctx, order.ID, next, deliveredAt, now); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update purchase order status")
			}
			order.Status = next
			order.DeliveredAt = deliveredAt
			order.UpdatedAt = now
			if err := s.emitStatusChanged(ctx, tx, *order, from); err != nil {
				return err
			}
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventDeliveryApplied,
			AggregateType: enums.AggregatePurchaseOrder,
			AggregateID:   order.ID,
			Data: payloads.DeliveryAppliedEvent{
				OrderID:      order.ID,
				SupplierID:   order.SupplierID,
				DeliveryDate: deliveryDate,
				Status:       order.Status,
				Lines:        delivered,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit delivery applied")
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncDelivery(string(result.Status))
	logCtx := s.logg.WithOrderID(ctx, result.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"from":  from,
		"to":    result.Status,
		"lines": len(input.Lines),
	})
	s.logg.Info(logCtx, "delivery applied")
	return result, nil
}

func stringPtr(v string) *string {
	return &v
}
