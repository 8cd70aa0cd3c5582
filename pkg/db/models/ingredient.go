package models

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/pkg/enums"
)

// Ingredient is a stocked raw material owned by the catalog.
type Ingredient struct {
	ID           uuid.UUID            `gorm:"column:id;type:uuid;primaryKey"`
	Name         string               `gorm:"column:name;not null"`
	Category     string               `gorm:"column:category"`
	Unit         enums.UnitOfMeasure  `gorm:"column:unit;type:text;not null"`
	UnitPrice    decimal.Decimal      `gorm:"column:unit_price;type:numeric(12,4);not null"`
	MinimumStock decimal.Decimal      `gorm:"column:minimum_stock;type:numeric(14,3);not null"`
	Active       bool                 `gorm:"column:active;not null"`
	Suppliers    []IngredientSupplier `gorm:"foreignKey:IngredientID;references:ID"`
	CreatedAt    time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

// SupplierIDs returns the primary suppliers in preference order.
func (i Ingredient) SupplierIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(i.Suppliers))
	for _, link := range sortedLinks(i.Suppliers) {
		ids = append(ids, link.SupplierID)
	}
	return ids
}

// PreferredSupplierID returns the first primary supplier, if any.
func (i Ingredient) PreferredSupplierID() (uuid.UUID, bool) {
	ids := i.SupplierIDs()
	if len(ids) == 0 {
		return uuid.Nil, false
	}
	return ids[0], true
}

// IngredientSupplier links an ingredient to one of its primary suppliers.
// Position 0 is the preferred supplier.
type IngredientSupplier struct {
	IngredientID uuid.UUID `gorm:"column:ingredient_id;type:uuid;primaryKey"`
	SupplierID   uuid.UUID `gorm:"column:supplier_id;type:uuid;primaryKey"`
	Position     int       `gorm:"column:position;not null"`
}

func sortedLinks(links []IngredientSupplier) []IngredientSupplier {
	out := make([]IngredientSupplier, len(links))
	copy(out, links)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}
