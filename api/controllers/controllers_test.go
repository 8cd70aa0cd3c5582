package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/larder-backend/internal/catalog"
	"github.com/angelmondragon/larder-backend/internal/ledger"
	"github.com/angelmondragon/larder-backend/internal/purchasing"
	"github.com/angelmondragon/larder-backend/internal/recipes"
	"github.com/angelmondragon/larder-backend/internal/replenishment"
	"github.com/angelmondragon/larder-backend/pkg/db/models"
	"github.com/angelmondragon/larder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
	"github.com/angelmondragon/larder-backend/pkg/pagination"
)

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(req.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(buf))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeData(t *testing.T, resp *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data any `json:"data"`
	}{Data: dest}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope.Error.Code
}

type stubCatalog struct {
	catalog.Service
	createIngredientFn func(ctx context.Context, input catalog.CreateIngredientInput) (*models.Ingredient, error)
	getIngredientFn    func(ctx context.Context, id uuid.UUID) (*models.Ingredient, error)
}

func (s stubCatalog) CreateIngredient(ctx context.Context, input catalog.CreateIngredientInput) (*models.Ingredient, error) {
	return s.createIngredientFn(ctx, input)
}

func (s stubCatalog) GetIngredient(ctx context.Context, id uuid.UUID) (*models.Ingredient, error) {
	return s.getIngredientFn(ctx, id)
}

type stubStock struct {
	current decimal.Decimal
}

func (s stubStock) CurrentStock(context.Context, uuid.UUID) (decimal.Decimal, error) {
	return s.current, nil
}

func (s stubStock) StockLevels(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	out := make(map[uuid.UUID]decimal.Decimal, len(ids))
	for _, id := range ids {
		out[id] = s.current
	}
	return out, nil
}

func TestCreateIngredientMapsPayload(t *testing.T) {
	preferred, backup := uuid.New(), uuid.New()
	var got catalog.CreateIngredientInput
	svc := stubCatalog{createIngredientFn: func(_ context.Context, input catalog.CreateIngredientInput) (*models.Ingredient, error) {
		got = input
		return &models.Ingredient{
			ID:        uuid.New(),
			Name:      input.Name,
			Unit:      input.Unit,
			UnitPrice: input.UnitPrice,
			Active:    true,
			Suppliers: []models.IngredientSupplier{
				{SupplierID: backup, Position: 1},
				{SupplierID: preferred, Position: 0},
			},
		}, nil
	}}

	req := jsonRequest(t, http.MethodPost, "/api/v1/ingredients", map[string]any{
		"name":          "Flour",
		"unit":          "kg",
		"unit_price":    "1.25",
		"minimum_stock": "20",
		"supplier_ids":  []string{preferred.String(), backup.String()},
	})
	resp := httptest.NewRecorder()
	CreateIngredient(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, enums.UnitKilogram, got.Unit)
	assert.Equal(t, []uuid.UUID{preferred, backup}, got.SupplierIDs)
	assert.True(t, got.MinimumStock.Equal(decimal.NewFromInt(20)))

	var view ingredientView
	decodeData(t, resp, &view)
	assert.Equal(t, "Flour", view.Name)
	assert.Equal(t, []uuid.UUID{preferred, backup}, view.SupplierIDs)
}

func TestCreateIngredientRejectsUnknownUnit(t *testing.T) {
	svc := stubCatalog{createIngredientFn: func(context.Context, catalog.CreateIngredientInput) (*models.Ingredient, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	req := jsonRequest(t, http.MethodPost, "/api/v1/ingredients", map[string]any{"name": "Flour", "unit": "bushel"})
	resp := httptest.NewRecorder()
	CreateIngredient(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, resp))
}

func TestGetIngredientIncludesCurrentStock(t *testing.T) {
	id := uuid.New()
	svc := stubCatalog{getIngredientFn: func(_ context.Context, got uuid.UUID) (*models.Ingredient, error) {
		require.Equal(t, id, got)
		return &models.Ingredient{ID: id, Name: "Butter", Unit: enums.UnitKilogram}, nil
	}}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "ingredientId", id.String())
	resp := httptest.NewRecorder()
	GetIngredient(svc, stubStock{current: decimal.RequireFromString("3.5")}, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var view ingredientView
	decodeData(t, resp, &view)
	require.NotNil(t, view.CurrentStock)
	assert.True(t, view.CurrentStock.Equal(decimal.RequireFromString("3.5")))
}

func TestGetIngredientNotFound(t *testing.T) {
	svc := stubCatalog{getIngredientFn: func(context.Context, uuid.UUID) (*models.Ingredient, error) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ingredient not found")
	}}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "ingredientId", uuid.NewString())
	resp := httptest.NewRecorder()
	GetIngredient(svc, nil, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

type stubLedger struct {
	ledger.Service
	recorded ledger.RecordMovementInput
	window   ledger.DateRange
}

func (s *stubLedger) RecordMovement(_ context.Context, input ledger.RecordMovementInput) (*models.StockMovement, error) {
	s.recorded = input
	return &models.StockMovement{ID: uuid.New(), IngredientID: input.IngredientID, Quantity: input.Quantity, Kind: input.Kind}, nil
}

func (s *stubLedger) MovementsFor(_ context.Context, _ uuid.UUID, window ledger.DateRange) ([]models.StockMovement, error) {
	s.window = window
	return nil, nil
}

func TestRecordMovementParsesKind(t *testing.T) {
	svc := &stubLedger{}
	id := uuid.New()
	req := jsonRequest(t, http.MethodPost, "/", map[string]any{"quantity": "-2.5", "kind": "unload", "note": "  spoiled  "})
	req = withURLParam(req, "ingredientId", id.String())
	resp := httptest.NewRecorder()
	RecordMovement(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, id, svc.recorded.IngredientID)
	assert.Equal(t, enums.MovementKindUnload, svc.recorded.Kind)
	assert.True(t, svc.recorded.Quantity.Equal(decimal.RequireFromString("-2.5")))
	require.NotNil(t, svc.recorded.Note)
	assert.Equal(t, "spoiled", *svc.recorded.Note)
}

func TestRecordMovementRejectsBadPathID(t *testing.T) {
	req := jsonRequest(t, http.MethodPost, "/", map[string]any{"quantity": "1"})
	req = withURLParam(req, "ingredientId", "not-a-uuid")
	resp := httptest.NewRecorder()
	RecordMovement(&stubLedger{}, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListMovementsPassesWindow(t *testing.T) {
	svc := &stubLedger{}
	req := httptest.NewRequest(http.MethodGet, "/?from=2026-10-01&to=2026-10-31T23:59:59Z", nil)
	req = withURLParam(req, "ingredientId", uuid.NewString())
	resp := httptest.NewRecorder()
	ListMovements(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, svc.window.From)
	require.NotNil(t, svc.window.To)
	assert.Equal(t, 1, svc.window.From.Day())
	assert.Equal(t, 31, svc.window.To.Day())
}

type stubRecipes struct {
	recipes.Service
	recipe  models.Recipe
	pricing recipes.Pricing
}

func (s stubRecipes) Get(context.Context, uuid.UUID) (*models.Recipe, error) {
	recipe := s.recipe
	return &recipe, nil
}

func (s stubRecipes) Cost(context.Context, uuid.UUID) (recipes.Pricing, error) {
	return s.pricing, nil
}

func (s stubRecipes) Consumption(_ context.Context, _ uuid.UUID, produced decimal.Decimal) ([]recipes.ConsumptionLine, error) {
	return []recipes.ConsumptionLine{
		{QuantityRequired: produced.Mul(decimal.NewFromInt(2)), LineCost: decimal.RequireFromString("4.50")},
		{QuantityRequired: produced, LineCost: decimal.RequireFromString("1.25")},
	}, nil
}

func TestGetRecipeIncludesPricing(t *testing.T) {
	margin := decimal.RequireFromString("0.6")
	svc := stubRecipes{
		recipe:  models.Recipe{ID: uuid.New(), Name: "Brioche", SalePrice: decimal.NewFromInt(10)},
		pricing: recipes.Pricing{Cost: decimal.NewFromInt(4), SalePrice: decimal.NewFromInt(10), Margin: &margin},
	}
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "recipeId", svc.recipe.ID.String())
	resp := httptest.NewRecorder()
	GetRecipe(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var view recipeView
	decodeData(t, resp, &view)
	require.NotNil(t, view.Pricing)
	assert.True(t, view.Pricing.Cost.Equal(decimal.NewFromInt(4)))
	require.NotNil(t, view.Pricing.Margin)
	assert.True(t, view.Pricing.Margin.Equal(margin))
}

func TestGetConsumptionSumsCost(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/?quantity=3", nil), "recipeId", uuid.NewString())
	resp := httptest.NewRecorder()
	GetConsumption(stubRecipes{}, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var view consumptionView
	decodeData(t, resp, &view)
	assert.Len(t, view.Lines, 2)
	assert.True(t, view.TotalCost.Equal(decimal.RequireFromString("5.75")))
}

func TestGetConsumptionRequiresQuantity(t *testing.T) {
	req := withURLParam(httptest.NewRequest(http.MethodGet, "/", nil), "recipeId", uuid.NewString())
	resp := httptest.NewRecorder()
	GetConsumption(stubRecipes{}, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

type stubPurchasing struct {
	purchasing.Service
	filters      purchasing.OrderFilters
	params       pagination.Params
	transitionFn func(target enums.PurchaseOrderStatus) (*models.PurchaseOrder, error)
	deliveryFn   func(input purchasing.ApplyDeliveryInput) (*models.PurchaseOrder, error)
}

func (s *stubPurchasing) ListOrders(_ context.Context, filters purchasing.OrderFilters, params pagination.Params) (purchasing.OrderList, error) {
	s.filters = filters
	s.params = params
	return purchasing.OrderList{NextCursor: "next"}, nil
}

func (s *stubPurchasing) Transition(_ context.Context, _ uuid.UUID, target enums.PurchaseOrderStatus) (*models.PurchaseOrder, error) {
	return s.transitionFn(target)
}

func (s *stubPurchasing) ApplyDelivery(_ context.Context, input purchasing.ApplyDeliveryInput) (*models.PurchaseOrder, error) {
	return s.deliveryFn(input)
}

func TestListPurchaseOrdersParsesFilters(t *testing.T) {
	svc := &stubPurchasing{}
	supplierID := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&cursor=abc&status=sent,confirmed&supplier_id="+supplierID.String(), nil)
	resp := httptest.NewRecorder()
	ListPurchaseOrders(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 5, svc.params.Limit)
	assert.Equal(t, "abc", svc.params.Cursor)
	require.NotNil(t, svc.filters.SupplierID)
	assert.Equal(t, supplierID, *svc.filters.SupplierID)
	assert.Equal(t, []enums.PurchaseOrderStatus{enums.PurchaseOrderStatusSent, enums.PurchaseOrderStatusConfirmed}, svc.filters.Statuses)

	var view orderListView
	decodeData(t, resp, &view)
	assert.Equal(t, "next", view.NextCursor)
}

func TestListPurchaseOrdersRejectsUnknownStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?status=shipped", nil)
	resp := httptest.NewRecorder()
	ListPurchaseOrders(&stubPurchasing{}, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTransitionPurchaseOrderMapsInvalidTransition(t *testing.T) {
	svc := &stubPurchasing{transitionFn: func(target enums.PurchaseOrderStatus) (*models.PurchaseOrder, error) {
		assert.Equal(t, enums.PurchaseOrderStatusCompleted, target)
		return nil, pkgerrors.New(pkgerrors.CodeInvalidTransition, "draft cannot move to completed")
	}}
	req := jsonRequest(t, http.MethodPost, "/", map[string]any{"status": "completed"})
	req = withURLParam(req, "orderId", uuid.NewString())
	resp := httptest.NewRecorder()
	TransitionPurchaseOrder(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeInvalidTransition), errorCode(t, resp))
}

func TestRecordDeliveryMapsLines(t *testing.T) {
	ingredientID := uuid.New()
	orderID := uuid.New()
	svc := &stubPurchasing{deliveryFn: func(input purchasing.ApplyDeliveryInput) (*models.PurchaseOrder, error) {
		require.Len(t, input.Lines, 2)
		assert.Equal(t, orderID, input.OrderID)
		assert.Equal(t, ingredientID, input.Lines[1].IngredientID)
		require.NotNil(t, input.Lines[1].LotNumber)
		assert.Equal(t, "L-2", *input.Lines[1].LotNumber)
		return &models.PurchaseOrder{ID: orderID, Status: enums.PurchaseOrderStatusPartiallyDelivered}, nil
	}}
	req := jsonRequest(t, http.MethodPost, "/", map[string]any{
		"lines": []map[string]any{
			{"ingredient_id": ingredientID.String(), "quantity": "10", "lot_number": "L-1"},
			{"ingredient_id": ingredientID.String(), "quantity": "5", "lot_number": "L-2"},
		},
	})
	req = withURLParam(req, "orderId", orderID.String())
	resp := httptest.NewRecorder()
	RecordDelivery(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var view orderView
	decodeData(t, resp, &view)
	assert.Equal(t, enums.PurchaseOrderStatusPartiallyDelivered, view.Status)
}

func TestRecordDeliveryOverDeliveryIsUnprocessable(t *testing.T) {
	svc := &stubPurchasing{deliveryFn: func(purchasing.ApplyDeliveryInput) (*models.PurchaseOrder, error) {
		return nil, pkgerrors.New(pkgerrors.CodeOverDelivery, "delivery exceeds ordered quantity")
	}}
	req := jsonRequest(t, http.MethodPost, "/", map[string]any{
		"lines": []map[string]any{{"ingredient_id": uuid.NewString(), "quantity": "99"}},
	})
	req = withURLParam(req, "orderId", uuid.NewString())
	resp := httptest.NewRecorder()
	RecordDelivery(svc, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

type stubReplenishment struct {
	replenishment.Service
	generated replenishment.GenerateInput
	planned   replenishment.PlanInput
	out       replenishment.GenerateOutput
}

func (s *stubReplenishment) GenerateDrafts(_ context.Context, input replenishment.GenerateInput) (replenishment.GenerateOutput, error) {
	s.generated = input
	return s.out, nil
}

func (s *stubReplenishment) PlanProduction(_ context.Context, input replenishment.PlanInput) (replenishment.GenerateOutput, error) {
	s.planned = input
	return s.out, nil
}

func TestGenerateDraftsDryRunReturnsOK(t *testing.T) {
	ingredientID := uuid.New()
	svc := &stubReplenishment{out: replenishment.GenerateOutput{
		Drafts: []replenishment.DraftOrder{{SupplierName: "Mill", Total: decimal.RequireFromString("45.75")}},
	}}
	req := jsonRequest(t, http.MethodPost, "/", map[string]any{
		"dry_run":           true,
		"target_quantities": map[string]string{ingredientID.String(): "80"},
	})
	resp := httptest.NewRecorder()
	GenerateDrafts(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, svc.generated.DryRun)
	assert.True(t, svc.generated.TargetQuantities[ingredientID].Equal(decimal.NewFromInt(80)))

	var view replenishmentView
	decodeData(t, resp, &view)
	require.Len(t, view.Drafts, 1)
	assert.Equal(t, "Mill", view.Drafts[0].SupplierName)
}

func TestGenerateDraftsPersistedReturnsCreated(t *testing.T) {
	svc := &stubReplenishment{out: replenishment.GenerateOutput{
		Orders: []models.PurchaseOrder{{ID: uuid.New(), Status: enums.PurchaseOrderStatusDraft}},
	}}
	req := jsonRequest(t, http.MethodPost, "/", map[string]any{})
	resp := httptest.NewRecorder()
	GenerateDrafts(svc, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusCreated, resp.Code)
}

func TestPlanProductionParsesBody(t *testing.T) {
	svc := &stubReplenishment{}
	recipeID := uuid.New()
	req := jsonRequest(t, http.MethodPost, "/", map[string]any{"recipe_id": recipeID.String(), "batches": "4", "dry_run": true})
	resp := httptest.NewRecorder()
	PlanProduction(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, recipeID, svc.planned.RecipeID)
	assert.True(t, svc.planned.Batches.Equal(decimal.NewFromInt(4)))
}

func TestPlanProductionRejectsMissingRecipe(t *testing.T) {
	req := jsonRequest(t, http.MethodPost, "/", map[string]any{"batches": "4"})
	resp := httptest.NewRecorder()
	PlanProduction(&stubReplenishment{}, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
