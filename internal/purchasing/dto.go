package purchasing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/pkg/db/models"
	"github.com/angelmondragon/larder-backend/pkg/enums"
)

// OrderFilters narrows ListOrders.
type OrderFilters struct {
	SupplierID *uuid.UUID
	Statuses   []enums.PurchaseOrderStatus
}

// OrderList is one cursor page of orders.
type OrderList struct {
	Orders     []models.PurchaseOrder `json:"orders"`
	NextCursor string                 `json:"next_cursor,omitempty"`
}

// CreateOrderInput describes a draft order. OrderDate defaults to now and
// ExpectedDeliveryDate to OrderDate plus the supplier lead time.
type CreateOrderInput struct {
	SupplierID           uuid.UUID
	OrderDate            *time.Time
	ExpectedDeliveryDate *time.Time
	Notes                *string
	Lines                []OrderLineInput
	Generated            bool
}

// OrderLineInput is one ingredient of a draft. A nil UnitPrice takes the
// ingredient's catalog price.
type OrderLineInput struct {
	IngredientID uuid.UUID
	Quantity     decimal.Decimal
	UnitPrice    *decimal.Decimal
}

// ApplyDeliveryInput records goods received against an order. DeliveryDate
// defaults to now.
type ApplyDeliveryInput struct {
	OrderID      uuid.UUID
	DeliveryDate *time.Time
	Lines        []DeliveredLineInput
}

// DeliveredLineInput is one received quantity. The same ingredient may
// appear more than once, for example for two lots.
type DeliveredLineInput struct {
	IngredientID uuid.UUID
	Quantity     decimal.Decimal
	LotNumber    *string
	ExpiresAt    *time.Time
}
