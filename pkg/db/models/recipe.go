package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Recipe lists the ingredient quantities consumed by one production batch.
type Recipe struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name      string          `gorm:"column:name;not null"`
	Category  string          `gorm:"column:category"`
	SalePrice decimal.Decimal `gorm:"column:sale_price;type:numeric(12,2);not null"`
	Lines     []RecipeLine    `gorm:"foreignKey:RecipeID;references:ID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

type RecipeLine struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	RecipeID         uuid.UUID       `gorm:"column:recipe_id;type:uuid;not null"`
	IngredientID     uuid.UUID       `gorm:"column:ingredient_id;type:uuid;not null"`
	QuantityPerBatch decimal.Decimal `gorm:"column:quantity_per_batch;type:numeric(14,3);not null"`
}
