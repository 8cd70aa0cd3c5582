package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/larder-backend/pkg/db/models"
)

// Repository appends and reads stock movements. Movements are immutable, so
// there is no update or delete.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, movement *models.StockMovement) error
	IngredientExists(ctx context.Context, ingredientID uuid.UUID) (bool, error)
	ListByIngredient(ctx context.Context, ingredientID uuid.UUID, from, to *time.Time) ([]models.StockMovement, error)
	QuantitiesAsOf(ctx context.Context, ingredientIDs []uuid.UUID, asOf time.Time) ([]MovementQuantity, error)
}

// MovementQuantity is the projection summed into stock levels.
type MovementQuantity struct {
	IngredientID uuid.UUID       `gorm:"column:ingredient_id"`
	Quantity     decimal.Decimal `gorm:"column:quantity"`
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

func (r *repository) IngredientExists(ctx context.Context, ingredientID uuid.UUID) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Ingredient{}).
		Where("id = ?", ingredientID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) ListByIngredient(ctx context.Context, ingredientID uuid.UUID, from, to *time.Time) ([]models.StockMovement, error) {
	query := r.db.WithContext(ctx).Where("ingredient_id = ?", ingredientID)
	if from != nil {
		query = query.Where("occurred_at >= ?", from.UTC())
	}
	if to != nil {
		query = query.Where("occurred_at <= ?", to.UTC())
	}

	var movements []models.StockMovement
	if err := query.
		Order("occurred_at ASC").
		Order("created_at ASC").
		Find(&movements).Error; err != nil {
		return nil, err
	}
	return movements, nil
}

func (r *repository) QuantitiesAsOf(ctx context.Context, ingredientIDs []uuid.UUID, asOf time.Time) ([]MovementQuantity, error) {
	if len(ingredientIDs) == 0 {
		return nil, nil
	}
	var rows []MovementQuantity
	if err := r.db.WithContext(ctx).
		Model(&models.StockMovement{}).
		Select("ingredient_id, quantity").
		Where("ingredient_id IN ?", ingredientIDs).
		Where("occurred_at <= ?", asOf.UTC()).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
