package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/larder-backend/pkg/db/models"
	"github.com/angelmondragon/larder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the ingredient and supplier catalog the engine reads from.
type Service interface {
	CreateSupplier(ctx context.Context, input CreateSupplierInput) (*models.Supplier, error)
	GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error)
	ListSuppliers(ctx context.Context, filter SupplierFilter) ([]models.Supplier, error)
	SuppliersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Supplier, error)
	CreateIngredient(ctx context.Context, input CreateIngredientInput) (*models.Ingredient, error)
	UpdateIngredient(ctx context.Context, id uuid.UUID, input UpdateIngredientInput) (*models.Ingredient, error)
	GetIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error)
	ListIngredients(ctx context.Context, filter IngredientFilter) ([]models.Ingredient, error)
}

type service struct {
	repo Repository
	tx   txRunner
}

// NewService wires the catalog service.
func NewService(repo Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, tx: tx}, nil
}

func (s *service) CreateSupplier(ctx context.Context, input CreateSupplierInput) (*models.Supplier, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier name required")
	}
	if input.LeadTimeDays < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lead time days must be zero or positive")
	}
	terms := input.PaymentTermsType
	if terms == "" {
		terms = enums.PaymentTermsImmediate
	}
	if !terms.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid payment terms %q", terms))
	}
	if input.PaymentTermsDays < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment terms days must be zero or positive")
	}

	supplier := &models.Supplier{
		ID:               uuid.New(),
		Name:             name,
		ContactName:      strings.TrimSpace(input.ContactName),
		Email:            strings.TrimSpace(input.Email),
		Phone:            strings.TrimSpace(input.Phone),
		LeadTimeDays:     input.LeadTimeDays,
		PaymentTermsType: terms,
		PaymentTermsDays: input.PaymentTermsDays,
		Active:           true,
	}
	if err := s.repo.CreateSupplier(ctx, supplier); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create supplier")
	}
	return supplier, nil
}

func (s *service) GetSupplier(ctx context.Context, id uuid.UUID) (*models.Supplier, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
	}
	supplier, err := s.repo.FindSupplier(ctx, id)
	if err != nil {
		return nil, lookupError(err, "supplier")
	}
	return supplier, nil
}

func (s *service) ListSuppliers(ctx context.Context, filter SupplierFilter) ([]models.Supplier, error) {
	suppliers, err := s.repo.ListSuppliers(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list suppliers")
	}
	return suppliers, nil
}

// SuppliersByID loads the given suppliers keyed by id. Unknown ids are simply
// absent from the result.
func (s *service) SuppliersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Supplier, error) {
	suppliers, err := s.repo.FindSuppliersByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load suppliers")
	}
	out := make(map[uuid.UUID]models.Supplier, len(suppliers))
	for _, supplier := range suppliers {
		out[supplier.ID] = supplier
	}
	return out, nil
}

func (s *service) CreateIngredient(ctx context.Context, input CreateIngredientInput) (*models.Ingredient, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient name required")
	}
	if !input.Unit.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit of measure %q", input.Unit))
	}
	if input.UnitPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit price must be zero or positive")
	}
	if input.MinimumStock.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "minimum stock must be zero or positive")
	}

	ingredient := &models.Ingredient{
		ID:           uuid.New(),
		Name:         name,
		Category:     strings.TrimSpace(input.Category),
		Unit:         input.Unit,
		UnitPrice:    input.UnitPrice,
		MinimumStock: input.MinimumStock,
		Active:       true,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		links, err := supplierLinks(ctx, repo, input.SupplierIDs)
		if err != nil {
			return err
		}
		ingredient.Suppliers = links
		if err := repo.CreateIngredient(ctx, ingredient); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create ingredient")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ingredient, nil
}

func (s *service) UpdateIngredient(ctx context.Context, id uuid.UUID, input UpdateIngredientInput) (*models.Ingredient, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id required")
	}

	var updated *models.Ingredient
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ingredient, err := repo.FindIngredient(ctx, id)
		if err != nil {
			return lookupError(err, "ingredient")
		}

		if input.Name != nil {
			name := strings.TrimSpace(*input.Name)
			if name == "" {
				return pkgerrors.New(pkgerrors.CodeValidation, "ingredient name required")
			}
			ingredient.Name = name
		}
		if input.Category != nil {
			ingredient.Category = strings.TrimSpace(*input.Category)
		}
		if input.Unit != nil {
			if !input.Unit.IsValid() {
				return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid unit of measure %q", *input.Unit))
			}
			ingredient.Unit = *input.Unit
		}
		if input.UnitPrice != nil {
			if input.UnitPrice.IsNegative() {
				return pkgerrors.New(pkgerrors.CodeValidation, "unit price must be zero or positive")
			}
			ingredient.UnitPrice = *input.UnitPrice
		}
		if input.MinimumStock != nil {
			if input.MinimumStock.IsNegative() {
				return pkgerrors.New(pkgerrors.CodeValidation, "minimum stock must be zero or positive")
			}
			ingredient.MinimumStock = *input.MinimumStock
		}
		if input.Active != nil {
			ingredient.Active = *input.Active
		}

		replace := input.SupplierIDs != nil
		if replace {
			links, err := supplierLinks(ctx, repo, *input.SupplierIDs)
			if err != nil {
				return err
			}
			ingredient.Suppliers = links
		}

		if err := repo.UpdateIngredient(ctx, ingredient, replace); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update ingredient")
		}
		updated = ingredient
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) GetIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ingredient id required")
	}
	ingredient, err := s.repo.FindIngredient(ctx, id)
	if err != nil {
		return nil, lookupError(err, "ingredient")
	}
	return ingredient, nil
}

func (s *service) ListIngredients(ctx context.Context, filter IngredientFilter) ([]models.Ingredient, error) {
	if filter.IDs != nil {
		filter.IDs = uniqueIDs(filter.IDs)
	}
	ingredients, err := s.repo.ListIngredients(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ingredients")
	}
	return ingredients, nil
}

// supplierLinks validates the supplier list and converts it into ordered links.
func supplierLinks(ctx context.Context, repo Repository, ids []uuid.UUID) ([]models.IngredientSupplier, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "supplier id required")
		}
		if _, dup := seen[id]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("supplier %s listed twice", id))
		}
		seen[id] = struct{}{}
	}

	found, err := repo.FindSuppliersByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load suppliers")
	}
	if len(found) != len(ids) {
		known := make(map[uuid.UUID]struct{}, len(found))
		for _, supplier := range found {
			known[supplier.ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := known[id]; !ok {
				return nil, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("supplier %s not found", id))
			}
		}
	}

	links := make([]models.IngredientSupplier, 0, len(ids))
	for i, id := range ids {
		links = append(links, models.IngredientSupplier{SupplierID: id, Position: i})
	}
	return links, nil
}

func lookupError(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, what+" not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load "+what)
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
