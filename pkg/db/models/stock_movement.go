package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/pkg/enums"
)

// StockMovement is an immutable, signed quantity change for one ingredient.
type StockMovement struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	IngredientID    uuid.UUID          `gorm:"column:ingredient_id;type:uuid;not null"`
	Quantity        decimal.Decimal    `gorm:"column:quantity;type:numeric(14,3);not null"`
	Kind            enums.MovementKind `gorm:"column:kind;type:text;not null"`
	OccurredAt      time.Time          `gorm:"column:occurred_at;not null"`
	LotNumber       *string            `gorm:"column:lot_number"`
	ExpiresAt       *time.Time         `gorm:"column:expires_at"`
	Note            *string            `gorm:"column:note"`
	PurchaseOrderID *uuid.UUID         `gorm:"column:purchase_order_id;type:uuid"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
}
