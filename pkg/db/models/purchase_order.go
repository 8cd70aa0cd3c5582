package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/pkg/enums"
)

// PurchaseOrder is a supplier order. Orders are never deleted; cancellation
// is a status.
type PurchaseOrder struct {
	ID                   uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber          string                    `gorm:"column:order_number;not null;uniqueIndex:ux_purchase_orders_order_number"`
	SupplierID           uuid.UUID                 `gorm:"column:supplier_id;type:uuid;not null"`
	Status               enums.PurchaseOrderStatus `gorm:"column:status;type:text;not null"`
	OrderDate            time.Time                 `gorm:"column:order_date;not null"`
	ExpectedDeliveryDate time.Time                 `gorm:"column:expected_delivery_date;not null"`
	DeliveredAt          *time.Time                `gorm:"column:delivered_at"`
	Subtotal             decimal.Decimal           `gorm:"column:subtotal;type:numeric(14,2);not null"`
	VATRate              decimal.Decimal           `gorm:"column:vat_rate;type:numeric(5,4);not null"`
	VAT                  decimal.Decimal           `gorm:"column:vat;type:numeric(14,2);not null"`
	Total                decimal.Decimal           `gorm:"column:total;type:numeric(14,2);not null"`
	Notes                *string                   `gorm:"column:notes"`
	Lines                []OrderLine               `gorm:"foreignKey:OrderID;references:ID"`
	CreatedAt            time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt            time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// LineFor returns the line ordering the given ingredient.
func (o *PurchaseOrder) LineFor(ingredientID uuid.UUID) (*OrderLine, bool) {
	for i := range o.Lines {
		if o.Lines[i].IngredientID == ingredientID {
			return &o.Lines[i], true
		}
	}
	return nil, false
}

// OrderLine carries the only mutable field of an order: DeliveredQuantity.
type OrderLine struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderID           uuid.UUID       `gorm:"column:order_id;type:uuid;not null"`
	IngredientID      uuid.UUID       `gorm:"column:ingredient_id;type:uuid;not null"`
	Position          int             `gorm:"column:position;not null"`
	OrderedQuantity   decimal.Decimal `gorm:"column:ordered_quantity;type:numeric(14,3);not null"`
	UnitPrice         decimal.Decimal `gorm:"column:unit_price;type:numeric(12,4);not null"`
	DeliveredQuantity decimal.Decimal `gorm:"column:delivered_quantity;type:numeric(14,3);not null"`
	LineTotal         decimal.Decimal `gorm:"column:line_total;type:numeric(14,2);not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// Outstanding is the quantity still expected from the supplier.
func (l OrderLine) Outstanding() decimal.Decimal {
	return l.OrderedQuantity.Sub(l.DeliveredQuantity)
}
