package recipes

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/larder-backend/pkg/db/models"
)

// Repository persists recipes and their lines.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, recipe *models.Recipe) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Recipe, error)
	List(ctx context.Context, filter ListFilter) ([]models.Recipe, error)
	FindIngredients(ctx context.Context, ids []uuid.UUID) ([]models.Ingredient, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a recipe repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, recipe *models.Recipe) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(recipe).Error; err != nil {
		return err
	}
	if len(recipe.Lines) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&recipe.Lines).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	var recipe models.Recipe
	if err := r.db.WithContext(ctx).
		Preload("Lines").
		Where("id = ?", id).
		First(&recipe).Error; err != nil {
		return nil, err
	}
	return &recipe, nil
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]models.Recipe, error) {
	query := r.db.WithContext(ctx).Preload("Lines").Model(&models.Recipe{})
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var recipes []models.Recipe
	if err := query.Order("name ASC").Order("id ASC").Find(&recipes).Error; err != nil {
		return nil, err
	}
	return recipes, nil
}

func (r *repository) FindIngredients(ctx context.Context, ids []uuid.UUID) ([]models.Ingredient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var ingredients []models.Ingredient
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}
