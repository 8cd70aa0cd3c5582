package recipes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/larder-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages recipes and prices them from the current catalog.
type Service interface {
	Create(ctx context.Context, input CreateRecipeInput) (*models.Recipe, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Recipe, error)
	List(ctx context.Context, filter ListFilter) ([]models.Recipe, error)
	Cost(ctx context.Context, id uuid.UUID) (Pricing, error)
	Consumption(ctx context.Context, id uuid.UUID, produced decimal.Decimal) ([]ConsumptionLine, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires the recipe service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("recipes repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) Create(ctx context.Context, input CreateRecipeInput) (*models.Recipe, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipe name required")
	}
	if input.SalePrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale price must be zero or positive")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipe requires at least one ingredient")
	}

	recipe := &models.Recipe{
		ID:        uuid.New(),
		Name:      name,
		Category:  strings.TrimSpace(input.Category),
		SalePrice: input.SalePrice,
	}
	ids := make([]uuid.UUID, 0, len(input.Lines))
	seen := make(map[uuid.UUID]struct{}, len(input.Lines))
	for _, line := range input.Lines {
		if line.IngredientID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id required")
		}
		if _, dup := seen[line.IngredientID]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("ingredient %s listed twice", line.IngredientID))
		}
		if !line.QuantityPerBatch.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity per batch must be positive")
		}
		seen[line.IngredientID] = struct{}{}
		ids = append(ids, line.IngredientID)
		recipe.Lines = append(recipe.Lines, models.RecipeLine{
			ID:               uuid.New(),
			RecipeID:         recipe.ID,
			IngredientID:     line.IngredientID,
			QuantityPerBatch: line.QuantityPerBatch,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		found, err := repo.FindIngredients(ctx, ids)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ingredients")
		}
		if missing := missingIngredient(ids, found); missing != uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("ingredient %s not found", missing))
		}
		if err := repo.Create(ctx, recipe); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create recipe")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return recipe, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Recipe, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipe id required")
	}
	recipe, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "recipe not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load recipe")
	}
	return recipe, nil
}

func (s *service) List(ctx context.Context, filter ListFilter) ([]models.Recipe, error) {
	recipes, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list recipes")
	}
	return recipes, nil
}

func (s *service) Cost(ctx context.Context, id uuid.UUID) (Pricing, error) {
	recipe, ingredients, err := s.load(ctx, id)
	if err != nil {
		return Pricing{}, err
	}
	return Price(*recipe, ingredients)
}

func (s *service) Consumption(ctx context.Context, id uuid.UUID, produced decimal.Decimal) ([]ConsumptionLine, error) {
	recipe, ingredients, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return ConsumptionFor(*recipe, ingredients, produced)
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Recipe, map[uuid.UUID]models.Ingredient, error) {
	recipe, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	ids := make([]uuid.UUID, 0, len(recipe.Lines))
	for _, line := range recipe.Lines {
		ids = append(ids, line.IngredientID)
	}
	found, err := s.repo.FindIngredients(ctx, ids)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load ingredients")
	}
	byID := make(map[uuid.UUID]models.Ingredient, len(found))
	for _, ingredient := range found {
		byID[ingredient.ID] = ingredient
	}
	return recipe, byID, nil
}

func missingIngredient(ids []uuid.UUID, found []models.Ingredient) uuid.UUID {
	known := make(map[uuid.UUID]struct{}, len(found))
	for _, ingredient := range found {
		known[ingredient.ID] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := known[id]; !ok {
			return id
		}
	}
	return uuid.Nil
}
