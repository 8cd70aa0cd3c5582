package purchasing

import (
	"fmt"

	"github.com/angelmondragon/larder-backend/pkg/db/models"
	"github.com/angelmondragon/larder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
)

// operatorTransitions lists the status changes an operator may request.
// partially_delivered and completed are only reached through deliveries.
var operatorTransitions = map[enums.PurchaseOrderStatus][]enums.PurchaseOrderStatus{
	enums.PurchaseOrderStatusDraft:     {enums.PurchaseOrderStatusSent, enums.PurchaseOrderStatusCancelled},
	enums.PurchaseOrderStatusSent:      {enums.PurchaseOrderStatusConfirmed, enums.PurchaseOrderStatusCancelled},
	enums.PurchaseOrderStatusConfirmed: {enums.PurchaseOrderStatusCancelled},
}

// CanTransition reports whether an operator may move an order from one
// status to another.
func CanTransition(from, to enums.PurchaseOrderStatus) bool {
	for _, candidate := range operatorTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// ValidateTransition checks the requested target against the order's current
// status and the per-transition preconditions.
func ValidateTransition(order models.PurchaseOrder, target enums.PurchaseOrderStatus) error {
	if !target.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid purchase order status %q", target))
	}
	if !CanTransition(order.Status, target) {
		return invalidTransition(order.Status, target, fmt.Sprintf("cannot move order from %s to %s", order.Status, target))
	}
	if target == enums.PurchaseOrderStatusSent && !hasOrderedQuantity(order) {
		return invalidTransition(order.Status, target, "order needs at least one line with a positive quantity before sending")
	}
	return nil
}

// DeriveStatus recomputes the delivery-driven status of an order. Orders that
// do not accept deliveries keep their status.
func DeriveStatus(order models.PurchaseOrder) enums.PurchaseOrderStatus {
	if !order.Status.AcceptsDeliveries() || len(order.Lines) == 0 {
		return order.Status
	}

	complete := true
	received := false
	for _, line := range order.Lines {
		if !line.DeliveredQuantity.Equal(line.OrderedQuantity) {
			complete = false
		}
		if line.DeliveredQuantity.IsPositive() {
			received = true
		}
	}
	switch {
	case complete:
		return enums.PurchaseOrderStatusCompleted
	case received:
		return enums.PurchaseOrderStatusPartiallyDelivered
	default:
		return order.Status
	}
}

func hasOrderedQuantity(order models.PurchaseOrder) bool {
	for _, line := range order.Lines {
		if line.OrderedQuantity.IsPositive() {
			return true
		}
	}
	return false
}

func invalidTransition(from, to enums.PurchaseOrderStatus, message string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidTransition, message).WithDetails(map[string]any{
		"from": from,
		"to":   to,
	})
}
