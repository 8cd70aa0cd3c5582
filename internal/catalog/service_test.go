package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/larder-backend/pkg/db"
	"github.com/angelmondragon/larder-backend/pkg/db/dbtest"
	"github.com/angelmondragon/larder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
)

func newTestService(t *testing.T) Service {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), db.NewFromConn(conn))
	require.NoError(t, err)
	return svc
}

func mustSupplier(t *testing.T, svc Service, name string) uuid.UUID {
	t.Helper()
	supplier, err := svc.CreateSupplier(context.Background(), CreateSupplierInput{
		Name:             name,
		LeadTimeDays:     2,
		PaymentTermsType: enums.PaymentTermsNet,
		PaymentTermsDays: 30,
	})
	require.NoError(t, err)
	return supplier.ID
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil)
	require.Error(t, err)

	conn := dbtest.Open(t)
	_, err = NewService(NewRepository(conn), nil)
	require.Error(t, err)
}

func TestCreateSupplierValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	cases := map[string]CreateSupplierInput{
		"missing name":   {Name: "  "},
		"negative lead":  {Name: "Mill", LeadTimeDays: -1},
		"unknown terms":  {Name: "Mill", PaymentTermsType: "weekly"},
		"negative terms": {Name: "Mill", PaymentTermsDays: -5},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateSupplier(ctx, input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestCreateSupplierDefaultsTerms(t *testing.T) {
	svc := newTestService(t)

	supplier, err := svc.CreateSupplier(context.Background(), CreateSupplierInput{Name: " Mill Co "})
	require.NoError(t, err)
	assert.Equal(t, "Mill Co", supplier.Name)
	assert.Equal(t, enums.PaymentTermsImmediate, supplier.PaymentTermsType)
	assert.True(t, supplier.Active)

	loaded, err := svc.GetSupplier(context.Background(), supplier.ID)
	require.NoError(t, err)
	assert.Equal(t, supplier.ID, loaded.ID)
}

func TestGetSupplierNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetSupplier(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateIngredientKeepsSupplierOrder(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	preferred := mustSupplier(t, svc, "Mill")
	backup := mustSupplier(t, svc, "Bakery Wholesale")

	created, err := svc.CreateIngredient(ctx, CreateIngredientInput{
		Name:         "Flour",
		Category:     "dry",
		Unit:         enums.UnitKilogram,
		UnitPrice:    decimal.RequireFromString("1.50"),
		MinimumStock: decimal.NewFromInt(10),
		SupplierIDs:  []uuid.UUID{preferred, backup},
	})
	require.NoError(t, err)

	loaded, err := svc.GetIngredient(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{preferred, backup}, loaded.SupplierIDs())
	first, ok := loaded.PreferredSupplierID()
	require.True(t, ok)
	assert.Equal(t, preferred, first)
	assert.True(t, loaded.UnitPrice.Equal(decimal.RequireFromString("1.5")))
	assert.True(t, loaded.Active)
}

func TestCreateIngredientRejectsUnknownSupplier(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateIngredient(ctx, CreateIngredientInput{
		Name:        "Sugar",
		Unit:        enums.UnitKilogram,
		SupplierIDs: []uuid.UUID{uuid.New()},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	list, err := svc.ListIngredients(ctx, IngredientFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestCreateIngredientValidation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	supplier := mustSupplier(t, svc, "Mill")

	cases := map[string]CreateIngredientInput{
		"missing name":       {Unit: enums.UnitKilogram},
		"bad unit":           {Name: "Salt", Unit: "bushel"},
		"negative price":     {Name: "Salt", Unit: enums.UnitGram, UnitPrice: decimal.NewFromInt(-1)},
		"negative minimum":   {Name: "Salt", Unit: enums.UnitGram, MinimumStock: decimal.NewFromInt(-1)},
		"duplicate supplier": {Name: "Salt", Unit: enums.UnitGram, SupplierIDs: []uuid.UUID{supplier, supplier}},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateIngredient(ctx, input)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
		})
	}
}

func TestUpdateIngredientReplacesSuppliers(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	first := mustSupplier(t, svc, "Dairy One")
	second := mustSupplier(t, svc, "Dairy Two")

	created, err := svc.CreateIngredient(ctx, CreateIngredientInput{
		Name:        "Butter",
		Unit:        enums.UnitKilogram,
		UnitPrice:   decimal.NewFromInt(8),
		SupplierIDs: []uuid.UUID{first},
	})
	require.NoError(t, err)

	minimum := decimal.NewFromInt(4)
	inactive := false
	suppliers := []uuid.UUID{second, first}
	updated, err := svc.UpdateIngredient(ctx, created.ID, UpdateIngredientInput{
		MinimumStock: &minimum,
		Active:       &inactive,
		SupplierIDs:  &suppliers,
	})
	require.NoError(t, err)
	assert.True(t, updated.MinimumStock.Equal(minimum))

	loaded, err := svc.GetIngredient(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{second, first}, loaded.SupplierIDs())
	assert.False(t, loaded.Active)
	assert.Equal(t, "Butter", loaded.Name)
}

func TestUpdateIngredientWithoutSuppliersKeepsLinks(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	supplier := mustSupplier(t, svc, "Mill")

	created, err := svc.CreateIngredient(ctx, CreateIngredientInput{
		Name:        "Flour",
		Unit:        enums.UnitKilogram,
		SupplierIDs: []uuid.UUID{supplier},
	})
	require.NoError(t, err)

	name := "Flour 00"
	_, err = svc.UpdateIngredient(ctx, created.ID, UpdateIngredientInput{Name: &name})
	require.NoError(t, err)

	loaded, err := svc.GetIngredient(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Flour 00", loaded.Name)
	assert.Equal(t, []uuid.UUID{supplier}, loaded.SupplierIDs())
}

func TestUpdateIngredientNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.UpdateIngredient(context.Background(), uuid.New(), UpdateIngredientInput{})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListIngredientsFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	flour, err := svc.CreateIngredient(ctx, CreateIngredientInput{Name: "Flour", Category: "dry", Unit: enums.UnitKilogram})
	require.NoError(t, err)
	_, err = svc.CreateIngredient(ctx, CreateIngredientInput{Name: "Milk", Category: "dairy", Unit: enums.UnitLiter})
	require.NoError(t, err)
	eggs, err := svc.CreateIngredient(ctx, CreateIngredientInput{Name: "Eggs", Category: "dairy", Unit: enums.UnitPiece})
	require.NoError(t, err)
	inactive := false
	_, err = svc.UpdateIngredient(ctx, eggs.ID, UpdateIngredientInput{Active: &inactive})
	require.NoError(t, err)

	dairy, err := svc.ListIngredients(ctx, IngredientFilter{Category: "dairy"})
	require.NoError(t, err)
	assert.Len(t, dairy, 2)

	activeDairy, err := svc.ListIngredients(ctx, IngredientFilter{Category: "dairy", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, activeDairy, 1)
	assert.Equal(t, "Milk", activeDairy[0].Name)

	byQuery, err := svc.ListIngredients(ctx, IngredientFilter{Query: "FLO"})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	assert.Equal(t, flour.ID, byQuery[0].ID)

	byIDs, err := svc.ListIngredients(ctx, IngredientFilter{IDs: []uuid.UUID{flour.ID, flour.ID, eggs.ID}})
	require.NoError(t, err)
	assert.Len(t, byIDs, 2)

	none, err := svc.ListIngredients(ctx, IngredientFilter{IDs: []uuid.UUID{}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSuppliersByIDSkipsUnknown(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	known := mustSupplier(t, svc, "Mill")

	got, err := svc.SuppliersByID(ctx, []uuid.UUID{known, uuid.New(), known})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mill", got[known].Name)
}
