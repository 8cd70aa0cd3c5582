package controllers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/internal/purchasing"
	"github.com/angelmondragon/larder-backend/internal/recipes"
	"github.com/angelmondragon/larder-backend/internal/replenishment"
	"github.com/angelmondragon/larder-backend/pkg/db/models"
	"github.com/angelmondragon/larder-backend/pkg/enums"
)

type supplierView struct {
	ID               uuid.UUID              `json:"id"`
	Name             string                 `json:"name"`
	ContactName      string                 `json:"contact_name,omitempty"`
	Email            string                 `json:"email,omitempty"`
	Phone            string                 `json:"phone,omitempty"`
	LeadTimeDays     int                    `json:"lead_time_days"`
	PaymentTermsType enums.PaymentTermsType `json:"payment_terms_type"`
	PaymentTermsDays int                    `json:"payment_terms_days"`
	Active           bool                   `json:"active"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

func toSupplierView(s models.Supplier) supplierView {
	return supplierView{
		ID:               s.ID,
		Name:             s.Name,
		ContactName:      s.ContactName,
		Email:            s.Email,
		Phone:            s.Phone,
		LeadTimeDays:     s.LeadTimeDays,
		PaymentTermsType: s.PaymentTermsType,
		PaymentTermsDays: s.PaymentTermsDays,
		Active:           s.Active,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}
}

type ingredientView struct {
	ID           uuid.UUID           `json:"id"`
	Name         string              `json:"name"`
	Category     string              `json:"category,omitempty"`
	Unit         enums.UnitOfMeasure `json:"unit"`
	UnitPrice    decimal.Decimal     `json:"unit_price"`
	MinimumStock decimal.Decimal     `json:"minimum_stock"`
	SupplierIDs  []uuid.UUID         `json:"supplier_ids"`
	Active       bool                `json:"active"`
	CurrentStock *decimal.Decimal    `json:"current_stock,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

func toIngredientView(i models.Ingredient) ingredientView {
	return ingredientView{
		ID:           i.ID,
		Name:         i.Name,
		Category:     i.Category,
		Unit:         i.Unit,
		UnitPrice:    i.UnitPrice,
		MinimumStock: i.MinimumStock,
		SupplierIDs:  i.SupplierIDs(),
		Active:       i.Active,
		CreatedAt:    i.CreatedAt,
		UpdatedAt:    i.UpdatedAt,
	}
}

type movementView struct {
	ID              uuid.UUID          `json:"id"`
	IngredientID    uuid.UUID          `json:"ingredient_id"`
	Quantity        decimal.Decimal    `json:"quantity"`
	Kind            enums.MovementKind `json:"kind"`
	OccurredAt      time.Time          `json:"occurred_at"`
	LotNumber       *string            `json:"lot_number,omitempty"`
	ExpiresAt       *time.Time         `json:"expires_at,omitempty"`
	Note            *string            `json:"note,omitempty"`
	PurchaseOrderID *uuid.UUID         `json:"purchase_order_id,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
}

func toMovementView(m models.StockMovement) movementView {
	return movementView{
		ID:              m.ID,
		IngredientID:    m.IngredientID,
		Quantity:        m.Quantity,
		Kind:            m.Kind,
		OccurredAt:      m.OccurredAt,
		LotNumber:       m.LotNumber,
		ExpiresAt:       m.ExpiresAt,
		Note:            m.Note,
		PurchaseOrderID: m.PurchaseOrderID,
		CreatedAt:       m.CreatedAt,
	}
}

type recipeLineView struct {
	IngredientID     uuid.UUID       `json:"ingredient_id"`
	QuantityPerBatch decimal.Decimal `json:"quantity_per_batch"`
}

type recipeView struct {
	ID        uuid.UUID        `json:"id"`
	Name      string           `json:"name"`
	Category  string           `json:"category,omitempty"`
	SalePrice decimal.Decimal  `json:"sale_price"`
	Lines     []recipeLineView `json:"lines"`
	Pricing   *recipes.Pricing `json:"pricing,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func toRecipeView(r models.Recipe) recipeView {
	view := recipeView{
		ID:        r.ID,
		Name:      r.Name,
		Category:  r.Category,
		SalePrice: r.SalePrice,
		Lines:     make([]recipeLineView, 0, len(r.Lines)),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for _, line := range r.Lines {
		view.Lines = append(view.Lines, recipeLineView{IngredientID: line.IngredientID, QuantityPerBatch: line.QuantityPerBatch})
	}
	return view
}

type orderLineView struct {
	ID                uuid.UUID       `json:"id"`
	IngredientID      uuid.UUID       `json:"ingredient_id"`
	OrderedQuantity   decimal.Decimal `json:"ordered_quantity"`
	DeliveredQuantity decimal.Decimal `json:"delivered_quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	LineTotal         decimal.Decimal `json:"line_total"`
}

type orderView struct {
	ID                   uuid.UUID                 `json:"id"`
	OrderNumber          string                    `json:"order_number"`
	SupplierID           uuid.UUID                 `json:"supplier_id"`
	Status               enums.PurchaseOrderStatus `json:"status"`
	OrderDate            time.Time                 `json:"order_date"`
	ExpectedDeliveryDate time.Time                 `json:"expected_delivery_date"`
	DeliveredAt          *time.Time                `json:"delivered_at,omitempty"`
	Subtotal             decimal.Decimal           `json:"subtotal"`
	VATRate              decimal.Decimal           `json:"vat_rate"`
	VAT                  decimal.Decimal           `json:"vat"`
	Total                decimal.Decimal           `json:"total"`
	Notes                *string                   `json:"notes,omitempty"`
	Lines                []orderLineView           `json:"lines"`
	CreatedAt            time.Time                 `json:"created_at"`
	UpdatedAt            time.Time                 `json:"updated_at"`
}

func toOrderView(o models.PurchaseOrder) orderView {
	view := orderView{
		ID:                   o.ID,
		OrderNumber:          o.OrderNumber,
		SupplierID:           o.SupplierID,
		Status:               o.Status,
		OrderDate:            o.OrderDate,
		ExpectedDeliveryDate: o.ExpectedDeliveryDate,
		DeliveredAt:          o.DeliveredAt,
		Subtotal:             o.Subtotal,
		VATRate:              o.VATRate,
		VAT:                  o.VAT,
		Total:                o.Total,
		Notes:                o.Notes,
		Lines:                make([]orderLineView, 0, len(o.Lines)),
		CreatedAt:            o.CreatedAt,
		UpdatedAt:            o.UpdatedAt,
	}
	for _, line := range o.Lines {
		view.Lines = append(view.Lines, orderLineView{
			ID:                line.ID,
			IngredientID:      line.IngredientID,
			OrderedQuantity:   line.OrderedQuantity,
			DeliveredQuantity: line.DeliveredQuantity,
			UnitPrice:         line.UnitPrice,
			LineTotal:         line.LineTotal,
		})
	}
	return view
}

func toOrderViews(orders []models.PurchaseOrder) []orderView {
	out := make([]orderView, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderView(order))
	}
	return out
}

type orderListView struct {
	Orders     []orderView `json:"orders"`
	NextCursor string      `json:"next_cursor,omitempty"`
}

func toOrderListView(list purchasing.OrderList) orderListView {
	return orderListView{Orders: toOrderViews(list.Orders), NextCursor: list.NextCursor}
}

type replenishmentView struct {
	Deficits []replenishment.Deficit    `json:"deficits"`
	Drafts   []replenishment.DraftOrder `json:"drafts"`
	Orders   []orderView                `json:"orders"`
	Warnings []replenishment.Warning    `json:"warnings"`
}

func toReplenishmentView(out replenishment.GenerateOutput) replenishmentView {
	return replenishmentView{
		Deficits: out.Deficits,
		Drafts:   out.Drafts,
		Orders:   toOrderViews(out.Orders),
		Warnings: out.Warnings,
	}
}
