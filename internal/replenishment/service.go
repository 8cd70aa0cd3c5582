package replenishment

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/internal/catalog"
	"github.com/angelmondragon/larder-backend/internal/purchasing"
	"github.com/angelmondragon/larder-backend/internal/recipes"
	"github.com/angelmondragon/larder-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
	"github.com/angelmondragon/larder-backend/pkg/logger"
	"github.com/angelmondragon/larder-backend/pkg/metrics"
)

// IngredientCatalog is the catalog surface the engine reads.
type IngredientCatalog interface {
	ListIngredients(ctx context.Context, filter catalog.IngredientFilter) ([]models.Ingredient, error)
	SuppliersByID(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Supplier, error)
}

// StockReader returns current stock per ingredient.
type StockReader interface {
	StockLevels(ctx context.Context, ingredientIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error)
}

// ConsumptionCalculator sizes a production run.
type ConsumptionCalculator interface {
	Consumption(ctx context.Context, recipeID uuid.UUID, produced decimal.Decimal) ([]recipes.ConsumptionLine, error)
}

// OrderCreator persists drafts in one transaction.
type OrderCreator interface {
	CreateOrders(ctx context.Context, inputs []purchasing.CreateOrderInput) ([]models.PurchaseOrder, error)
}

// Service runs the threshold monitor and the replenishment generator
// against live catalog and ledger data.
type Service interface {
	DeficitsFor(ctx context.Context, filter catalog.IngredientFilter) (DeficitReport, error)
	GenerateDrafts(ctx context.Context, input GenerateInput) (GenerateOutput, error)
	PlanProduction(ctx context.Context, input PlanInput) (GenerateOutput, error)
}

// GenerateInput selects which deficits become drafts.
type GenerateInput struct {
	IngredientIDs    []uuid.UUID
	Category         string
	TargetQuantity   *decimal.Decimal
	TargetQuantities map[uuid.UUID]decimal.Decimal
	DryRun           bool
}

// PlanInput asks for the drafts needed before producing a recipe.
type PlanInput struct {
	RecipeID uuid.UUID
	Batches  decimal.Decimal
	DryRun   bool
}

// GenerateOutput carries the computed drafts, the persisted orders (empty on
// a dry run) and every warning raised on the way.
type GenerateOutput struct {
	Deficits []Deficit              `json:"deficits"`
	Drafts   []DraftOrder           `json:"drafts"`
	Orders   []models.PurchaseOrder `json:"orders"`
	Warnings []Warning              `json:"warnings"`
}

// ServiceParams groups the replenishment dependencies.
type ServiceParams struct {
	Catalog IngredientCatalog
	Stock   StockReader
	Recipes ConsumptionCalculator
	Orders  OrderCreator
	VATRate decimal.Decimal
	Logger  *logger.Logger
	Metrics *metrics.ReplenishmentMetrics
	Now     func() time.Time
}

type service struct {
	catalog IngredientCatalog
	stock   StockReader
	recipes ConsumptionCalculator
	orders  OrderCreator
	vatRate decimal.Decimal
	logg    *logger.Logger
	metrics *metrics.ReplenishmentMetrics
	now     func() time.Time
}

// NewService wires the replenishment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Catalog == nil {
		return nil, fmt.Errorf("ingredient catalog required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock reader required")
	}
	if params.Recipes == nil {
		return nil, fmt.Errorf("consumption calculator required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("order creator required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.New(logger.Options{ServiceName: "replenishment", Output: io.Discard})
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		catalog: params.Catalog,
		stock:   params.Stock,
		recipes: params.Recipes,
		orders:  params.Orders,
		vatRate: params.VATRate,
		logg:    logg,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

// DeficitsFor runs the monitor over active ingredients, largest shortfall
// first.
func (s *service) DeficitsFor(ctx context.Context, filter catalog.IngredientFilter) (DeficitReport, error) {
	filter.ActiveOnly = true
	ingredients, err := s.catalog.ListIngredients(ctx, filter)
	if err != nil {
		return DeficitReport{}, err
	}
	levels, err := s.stock.StockLevels(ctx, ingredientIDs(ingredients))
	if err != nil {
		return DeficitReport{}, err
	}

	report := Deficits(ingredients, levels)
	SortByShortfall(report.Deficits)
	s.metrics.SetDeficits(len(report.Deficits))
	s.recordWarnings(report.Warnings)
	return report, nil
}

func (s *service) GenerateDrafts(ctx context.Context, input GenerateInput) (GenerateOutput, error) {
	if input.TargetQuantity != nil && input.TargetQuantity.IsNegative() {
		return GenerateOutput{}, pkgerrors.New(pkgerrors.CodeValidation, "target quantity must be zero or positive")
	}
	for _, target := range input.TargetQuantities {
		if target.IsNegative() {
			return GenerateOutput{}, pkgerrors.New(pkgerrors.CodeValidation, "target quantity must be zero or positive")
		}
	}

	filter := catalog.IngredientFilter{Category: input.Category}
	if len(input.IngredientIDs) > 0 {
		filter.IDs = input.IngredientIDs
	}
	report, err := s.DeficitsFor(ctx, filter)
	if err != nil {
		return GenerateOutput{}, err
	}

	opts := Options{
		TargetQuantity:   input.TargetQuantity,
		TargetQuantities: input.TargetQuantities,
	}
	return s.generate(ctx, report, opts, input.DryRun)
}

// PlanProduction drafts what is missing to produce the given batches of a
// recipe. Each ingredient is ordered up to the quantity the run consumes,
// and never below its own minimum-stock shortfall.
func (s *service) PlanProduction(ctx context.Context, input PlanInput) (GenerateOutput, error) {
	if input.RecipeID == uuid.Nil {
		return GenerateOutput{}, pkgerrors.New(pkgerrors.CodeValidation, "recipe id required")
	}
	lines, err := s.recipes.Consumption(ctx, input.RecipeID, input.Batches)
	if err != nil {
		return GenerateOutput{}, err
	}

	required := make(map[uuid.UUID]decimal.Decimal, len(lines))
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		required[line.IngredientID] = line.QuantityRequired
		ids = append(ids, line.IngredientID)
	}
	ingredients, err := s.catalog.ListIngredients(ctx, catalog.IngredientFilter{IDs: ids})
	if err != nil {
		return GenerateOutput{}, err
	}
	levels, err := s.stock.StockLevels(ctx, ids)
	if err != nil {
		return GenerateOutput{}, err
	}

	report := PlanDeficits(ingredients, levels, required)
	SortByShortfall(report.Deficits)
	s.recordWarnings(report.Warnings)

	opts := Options{TargetQuantities: required}
	return s.generate(ctx, report, opts, input.DryRun)
}

// PlanDeficits reports the ingredients a production run would leave short:
// below minimum stock, or with less stock than the run requires.
func PlanDeficits(ingredients []models.Ingredient, stock map[uuid.UUID]decimal.Decimal, required map[uuid.UUID]decimal.Decimal) DeficitReport {
	base := Deficits(ingredients, stock)
	short := make(map[uuid.UUID]struct{}, len(base.Deficits))
	for _, deficit := range base.Deficits {
		short[deficit.IngredientID] = struct{}{}
	}
	for _, ingredient := range ingredients {
		if _, ok := short[ingredient.ID]; ok {
			continue
		}
		need, ok := required[ingredient.ID]
		if !ok || !need.GreaterThan(stock[ingredient.ID]) {
			continue
		}
		base.Deficits = append(base.Deficits, newDeficit(ingredient, stock[ingredient.ID], decimal.Zero))
	}
	return base
}

func (s *service) generate(ctx context.Context, report DeficitReport, opts Options, dryRun bool) (GenerateOutput, error) {
	supplierIDs := make([]uuid.UUID, 0, len(report.Deficits))
	for _, deficit := range report.Deficits {
		if id, ok := deficit.Ingredient.PreferredSupplierID(); ok {
			supplierIDs = append(supplierIDs, id)
		}
	}
	suppliers, err := s.catalog.SuppliersByID(ctx, supplierIDs)
	if err != nil {
		return GenerateOutput{}, err
	}

	opts.Now = s.now()
	opts.VATRate = s.vatRate
	result := Generate(report.Deficits, suppliers, opts)
	s.recordWarnings(result.Warnings)

	out := GenerateOutput{
		Deficits: report.Deficits,
		Drafts:   result.Orders,
		Orders:   []models.PurchaseOrder{},
		Warnings: append(append([]Warning{}, report.Warnings...), result.Warnings...),
	}
	if dryRun || len(result.Orders) == 0 {
		return out, nil
	}

	inputs := make([]purchasing.CreateOrderInput, 0, len(result.Orders))
	for _, draft := range result.Orders {
		orderDate := draft.OrderDate
		expected := draft.ExpectedDeliveryDate
		input := purchasing.CreateOrderInput{
			SupplierID:           draft.SupplierID,
			OrderDate:            &orderDate,
			ExpectedDeliveryDate: &expected,
			Generated:            true,
		}
		for _, line := range draft.Lines {
			price := line.UnitPrice
			input.Lines = append(input.Lines, purchasing.OrderLineInput{
				IngredientID: line.IngredientID,
				Quantity:     line.Quantity,
				UnitPrice:    &price,
			})
		}
		inputs = append(inputs, input)
	}

	orders, err := s.orders.CreateOrders(ctx, inputs)
	if err != nil {
		return GenerateOutput{}, err
	}
	out.Orders = orders

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"deficits": len(report.Deficits),
		"orders":   len(orders),
		"warnings": len(out.Warnings),
	})
	s.logg.Info(logCtx, "replenishment drafts generated")
	return out, nil
}

func (s *service) recordWarnings(warnings []Warning) {
	for _, warning := range warnings {
		s.metrics.IncWarning(string(warning.Type))
	}
}

func ingredientIDs(ingredients []models.Ingredient) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(ingredients))
	for _, ingredient := range ingredients {
		ids = append(ids, ingredient.ID)
	}
	return ids
}
