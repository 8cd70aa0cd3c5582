package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/larder-backend/pkg/db/models"
)

// Repository persists ingredients, suppliers and the links between them.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSupplier(ctx context.Context, supplier *models.Supplier) error
	FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	FindSuppliersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Supplier, error)
	ListSuppliers(ctx context.Context, filter SupplierFilter) ([]models.Supplier, error)
	CreateIngredient(ctx context.Context, ingredient *models.Ingredient) error
	UpdateIngredient(ctx context.Context, ingredient *models.Ingredient, replaceSuppliers bool) error
	FindIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error)
	ListIngredients(ctx context.Context, filter IngredientFilter) ([]models.Ingredient, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSupplier(ctx context.Context, supplier *models.Supplier) error {
	return r.db.WithContext(ctx).Create(supplier).Error
}

func (r *repository) FindSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&supplier).Error; err != nil {
		return nil, err
	}
	return &supplier, nil
}

func (r *repository) FindSuppliersByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Supplier, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var suppliers []models.Supplier
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (r *repository) ListSuppliers(ctx context.Context, filter SupplierFilter) ([]models.Supplier, error) {
	query := r.db.WithContext(ctx).Model(&models.Supplier{})
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}

	var suppliers []models.Supplier
	if err := query.Order("name ASC").Order("id ASC").Find(&suppliers).Error; err != nil {
		return nil, err
	}
	return suppliers, nil
}

func (r *repository) CreateIngredient(ctx context.Context, ingredient *models.Ingredient) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(ingredient).Error; err != nil {
		return err
	}
	return r.insertLinks(ctx, ingredient)
}

func (r *repository) UpdateIngredient(ctx context.Context, ingredient *models.Ingredient, replaceSuppliers bool) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Save(ingredient).Error; err != nil {
		return err
	}
	if !replaceSuppliers {
		return nil
	}
	if err := r.db.WithContext(ctx).
		Where("ingredient_id = ?", ingredient.ID).
		Delete(&models.IngredientSupplier{}).Error; err != nil {
		return err
	}
	return r.insertLinks(ctx, ingredient)
}

func (r *repository) insertLinks(ctx context.Context, ingredient *models.Ingredient) error {
	if len(ingredient.Suppliers) == 0 {
		return nil
	}
	for i := range ingredient.Suppliers {
		ingredient.Suppliers[i].IngredientID = ingredient.ID
	}
	return r.db.WithContext(ctx).Create(&ingredient.Suppliers).Error
}

func (r *repository) FindIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	var ingredient models.Ingredient
	if err := r.withSuppliers(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&ingredient).Error; err != nil {
		return nil, err
	}
	return &ingredient, nil
}

func (r *repository) ListIngredients(ctx context.Context, filter IngredientFilter) ([]models.Ingredient, error) {
	query := r.withSuppliers(r.db.WithContext(ctx)).Model(&models.Ingredient{})
	if filter.ActiveOnly {
		query = query.Where("active = ?", true)
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		query = query.Where("category = ?", category)
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		query = query.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
	}
	if filter.IDs != nil {
		if len(filter.IDs) == 0 {
			return []models.Ingredient{}, nil
		}
		query = query.Where("id IN ?", filter.IDs)
	}

	var ingredients []models.Ingredient
	if err := query.Order("name ASC").Order("id ASC").Find(&ingredients).Error; err != nil {
		return nil, err
	}
	return ingredients, nil
}

func (r *repository) withSuppliers(db *gorm.DB) *gorm.DB {
	return db.Preload("Suppliers", func(tx *gorm.DB) *gorm.DB {
		return tx.Order("position ASC")
	})
}
