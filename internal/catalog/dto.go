package catalog

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/pkg/enums"
)

// IngredientFilter narrows ListIngredients.
type IngredientFilter struct {
	Category   string
	ActiveOnly bool
	Query      string
	IDs        []uuid.UUID
}

// SupplierFilter narrows ListSuppliers.
type SupplierFilter struct {
	ActiveOnly bool
	Query      string
}

// CreateSupplierInput carries the operator-provided supplier fields.
type CreateSupplierInput struct {
	Name             string
	ContactName      string
	Email            string
	Phone            string
	LeadTimeDays     int
	PaymentTermsType enums.PaymentTermsType
	PaymentTermsDays int
}

// CreateIngredientInput carries the operator-provided ingredient fields.
// SupplierIDs are kept in order; the first one is preferred.
type CreateIngredientInput struct {
	Name         string
	Category     string
	Unit         enums.UnitOfMeasure
	UnitPrice    decimal.Decimal
	MinimumStock decimal.Decimal
	SupplierIDs  []uuid.UUID
}

// UpdateIngredientInput patches an ingredient. Nil fields are left untouched;
// a non-nil SupplierIDs replaces the whole supplier list.
type UpdateIngredientInput struct {
	Name         *string
	Category     *string
	Unit         *enums.UnitOfMeasure
	UnitPrice    *decimal.Decimal
	MinimumStock *decimal.Decimal
	SupplierIDs  *[]uuid.UUID
	Active       *bool
}
