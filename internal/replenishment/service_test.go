package replenishment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/larder-backend/internal/catalog"
	"github.com/angelmondragon/larder-backend/internal/ledger"
	"github.com/angelmondragon/larder-backend/internal/purchasing"
	"github.com/angelmondragon/larder-backend/internal/recipes"
	"github.com/angelmondragon/larder-backend/pkg/db"
	"github.com/angelmondragon/larder-backend/pkg/db/dbtest"
	"github.com/angelmondragon/larder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
	"github.com/angelmondragon/larder-backend/pkg/outbox"
	"github.com/angelmondragon/larder-backend/pkg/pagination"
)

var fixedNow = time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)

type fixture struct {
	conn       *gorm.DB
	catalog    catalog.Service
	ledger     ledger.Service
	recipes    recipes.Service
	purchasing purchasing.Service
	svc        Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	tx := db.NewFromConn(conn)
	clock := func() time.Time { return fixedNow }

	catalogSvc, err := catalog.NewService(catalog.NewRepository(conn), tx)
	require.NoError(t, err)
	ledgerSvc, err := ledger.NewService(ledger.NewRepository(conn), ledger.WithClock(clock))
	require.NoError(t, err)
	recipeSvc, err := recipes.NewService(recipes.NewRepository(conn), tx)
	require.NoError(t, err)
	purchasingSvc, err := purchasing.NewService(purchasing.ServiceParams{
		Repo:    purchasing.NewRepository(conn),
		Tx:      tx,
		Outbox:  outbox.NewService(outbox.NewRepository(conn), nil),
		Ledger:  ledgerSvc,
		VATRate: d("0.22"),
		Now:     clock,
	})
	require.NoError(t, err)

	svc, err := NewService(ServiceParams{
		Catalog: catalogSvc,
		Stock:   ledgerSvc,
		Recipes: recipeSvc,
		Orders:  purchasingSvc,
		VATRate: d("0.22"),
		Now:     clock,
	})
	require.NoError(t, err)

	return &fixture{
		conn:       conn,
		catalog:    catalogSvc,
		ledger:     ledgerSvc,
		recipes:    recipeSvc,
		purchasing: purchasingSvc,
		svc:        svc,
	}
}

func (f *fixture) newSupplier(t *testing.T, name string, lead int) uuid.UUID {
	t.Helper()
	supplier, err := f.catalog.CreateSupplier(context.Background(), catalog.CreateSupplierInput{Name: name, LeadTimeDays: lead})
	require.NoError(t, err)
	return supplier.ID
}

func (f *fixture) newIngredient(t *testing.T, name, minimum, price string, suppliers ...uuid.UUID) uuid.UUID {
	t.Helper()
	ing, err := f.catalog.CreateIngredient(context.Background(), catalog.CreateIngredientInput{
		Name:         name,
		Unit:         enums.UnitKilogram,
		UnitPrice:    d(price),
		MinimumStock: d(minimum),
		SupplierIDs:  suppliers,
	})
	require.NoError(t, err)
	return ing.ID
}

func (f *fixture) load(t *testing.T, id uuid.UUID, qty string) {
	t.Helper()
	_, err := f.ledger.RecordMovement(context.Background(), ledger.RecordMovementInput{IngredientID: id, Quantity: d(qty)})
	require.NoError(t, err)
}

func (f *fixture) stock(t *testing.T, id uuid.UUID) decimal.Decimal {
	t.Helper()
	qty, err := f.ledger.CurrentStock(context.Background(), id)
	require.NoError(t, err)
	return qty
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestReplenishmentRoundTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mill := f.newSupplier(t, "Mill", 7)
	flour := f.newIngredient(t, "Flour", "50", "1.25", mill)
	f.load(t, flour, "20")

	report, err := f.svc.DeficitsFor(ctx, catalog.IngredientFilter{})
	require.NoError(t, err)
	require.Len(t, report.Deficits, 1)
	assert.True(t, report.Deficits[0].Shortfall.Equal(d("30")))

	out, err := f.svc.GenerateDrafts(ctx, GenerateInput{})
	require.NoError(t, err)
	require.Len(t, out.Drafts, 1)
	require.Len(t, out.Orders, 1)
	assert.Empty(t, out.Warnings)

	order := out.Orders[0]
	assert.Equal(t, enums.PurchaseOrderStatusDraft, order.Status)
	assert.Equal(t, mill, order.SupplierID)
	assert.Equal(t, fixedNow.AddDate(0, 0, 7), order.ExpectedDeliveryDate)
	assert.True(t, order.Subtotal.Equal(d("37.50")), "subtotal %s", order.Subtotal)
	assert.True(t, order.VAT.Equal(d("8.25")), "vat %s", order.VAT)
	assert.True(t, order.Total.Equal(d("45.75")), "total %s", order.Total)
	assert.True(t, order.Total.Equal(out.Drafts[0].Total))

	_, err = f.purchasing.Transition(ctx, order.ID, enums.PurchaseOrderStatusSent)
	require.NoError(t, err)
	_, err = f.purchasing.Transition(ctx, order.ID, enums.PurchaseOrderStatusConfirmed)
	require.NoError(t, err)

	delivered, err := f.purchasing.ApplyDelivery(ctx, purchasing.ApplyDeliveryInput{
		OrderID: order.ID,
		Lines:   []purchasing.DeliveredLineInput{{IngredientID: flour, Quantity: d("30")}},
	})
	require.NoError(t, err)
	assert.Equal(t, enums.PurchaseOrderStatusCompleted, delivered.Status)
	assert.True(t, f.stock(t, flour).Equal(d("50")))

	report, err = f.svc.DeficitsFor(ctx, catalog.IngredientFilter{})
	require.NoError(t, err)
	assert.Empty(t, report.Deficits)
}

func TestGenerateDraftsDryRunPersistsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mill := f.newSupplier(t, "Mill", 1)
	f.newIngredient(t, "Flour", "10", "1", mill)
	f.newIngredient(t, "Saffron", "1", "90")

	out, err := f.svc.GenerateDrafts(ctx, GenerateInput{DryRun: true})
	require.NoError(t, err)
	require.Len(t, out.Drafts, 1)
	assert.Empty(t, out.Orders)
	require.Len(t, out.Warnings, 1)
	assert.Equal(t, enums.ReplenishmentWarningNoSupplier, out.Warnings[0].Type)

	list, err := f.purchasing.ListOrders(ctx, purchasing.OrderFilters{}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, list.Orders)
}

func TestGenerateDraftsScopesToIngredients(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mill := f.newSupplier(t, "Mill", 1)
	flour := f.newIngredient(t, "Flour", "10", "1", mill)
	f.newIngredient(t, "Sugar", "10", "1", mill)

	out, err := f.svc.GenerateDrafts(ctx, GenerateInput{IngredientIDs: []uuid.UUID{flour}})
	require.NoError(t, err)
	require.Len(t, out.Orders, 1)
	require.Len(t, out.Orders[0].Lines, 1)
	assert.Equal(t, flour, out.Orders[0].Lines[0].IngredientID)
}

func TestGenerateDraftsRejectsNegativeTarget(t *testing.T) {
	f := newFixture(t)
	negative := d("-1")

	_, err := f.svc.GenerateDrafts(context.Background(), GenerateInput{TargetQuantity: &negative})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPlanProductionOrdersWhatTheRunConsumes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	mill := f.newSupplier(t, "Mill", 2)
	flour := f.newIngredient(t, "Flour", "0", "1", mill)
	sugar := f.newIngredient(t, "Sugar", "0", "2", mill)
	f.load(t, flour, "3")
	f.load(t, sugar, "50")

	recipe, err := f.recipes.Create(ctx, recipes.CreateRecipeInput{
		Name:      "Bread",
		SalePrice: d("4"),
		Lines: []recipes.LineInput{
			{IngredientID: flour, QuantityPerBatch: d("2")},
			{IngredientID: sugar, QuantityPerBatch: d("0.5")},
		},
	})
	require.NoError(t, err)

	out, err := f.svc.PlanProduction(ctx, PlanInput{RecipeID: recipe.ID, Batches: d("5"), DryRun: true})
	require.NoError(t, err)
	require.Len(t, out.Drafts, 1)
	require.Len(t, out.Drafts[0].Lines, 1)
	line := out.Drafts[0].Lines[0]
	assert.Equal(t, flour, line.IngredientID)
	assert.True(t, line.Quantity.Equal(d("7")), "quantity %s", line.Quantity)

	_, err = f.svc.PlanProduction(ctx, PlanInput{RecipeID: recipe.ID, Batches: decimal.Zero})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.PlanProduction(ctx, PlanInput{RecipeID: uuid.New(), Batches: d("1")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}
