package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/pkg/enums"
)

// PurchaseOrderCreatedEvent is emitted for every new draft order.
type PurchaseOrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	SupplierID  uuid.UUID       `json:"supplier_id"`
	LineCount   int             `json:"line_count"`
	Total       decimal.Decimal `json:"total"`
	Generated   bool            `json:"generated"`
}

// PurchaseOrderStatusChangedEvent records one order status change.
type PurchaseOrderStatusChangedEvent struct {
	OrderID     uuid.UUID                 `json:"order_id"`
	OrderNumber string                    `json:"order_number"`
	SupplierID  uuid.UUID                 `json:"supplier_id"`
	From        enums.PurchaseOrderStatus `json:"from"`
	To          enums.PurchaseOrderStatus `json:"to"`
}

// DeliveryAppliedEvent summarises goods received against an order.
type DeliveryAppliedEvent struct {
	OrderID      uuid.UUID                 `json:"order_id"`
	SupplierID   uuid.UUID                 `json:"supplier_id"`
	DeliveryDate time.Time                 `json:"delivery_date"`
	Status       enums.PurchaseOrderStatus `json:"status"`
	Lines        []DeliveredLine           `json:"lines"`
}

type DeliveredLine struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	Quantity     decimal.Decimal `json:"quantity"`
	MovementID   uuid.UUID       `json:"movement_id"`
	LotNumber    *string         `json:"lot_number,omitempty"`
}

// StockDeficitDetectedEvent alerts operators that an ingredient fell below
// its minimum stock.
type StockDeficitDetectedEvent struct {
	IngredientID   uuid.UUID       `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	CurrentStock   decimal.Decimal `json:"current_stock"`
	MinimumStock   decimal.Decimal `json:"minimum_stock"`
	Shortfall      decimal.Decimal `json:"shortfall"`
	NegativeStock  bool            `json:"negative_stock"`
	DetectedAt     time.Time       `json:"detected_at"`
}
