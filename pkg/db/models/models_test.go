package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestIngredientSupplierIDsFollowPosition(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	ing := Ingredient{Suppliers: []IngredientSupplier{
		{SupplierID: second, Position: 1},
		{SupplierID: first, Position: 0},
	}}

	ids := ing.SupplierIDs()
	if len(ids) != 2 || ids[0] != first || ids[1] != second {
		t.Fatalf("unexpected supplier order %v", ids)
	}
	preferred, ok := ing.PreferredSupplierID()
	if !ok || preferred != first {
		t.Fatalf("expected preferred %s, got %s", first, preferred)
	}

	if _, ok := (Ingredient{}).PreferredSupplierID(); ok {
		t.Fatal("ingredient without suppliers has no preferred supplier")
	}
}

func TestPurchaseOrderLineFor(t *testing.T) {
	flour := uuid.New()
	order := &PurchaseOrder{Lines: []OrderLine{{
		IngredientID:      flour,
		OrderedQuantity:   decimal.NewFromInt(10),
		DeliveredQuantity: decimal.NewFromInt(4),
	}}}

	line, ok := order.LineFor(flour)
	if !ok {
		t.Fatal("expected line for flour")
	}
	if !line.Outstanding().Equal(decimal.NewFromInt(6)) {
		t.Fatalf("expected outstanding 6, got %s", line.Outstanding())
	}
	line.DeliveredQuantity = decimal.NewFromInt(10)
	if !order.Lines[0].DeliveredQuantity.Equal(decimal.NewFromInt(10)) {
		t.Fatal("LineFor must return a pointer into the order")
	}
	if _, ok := order.LineFor(uuid.New()); ok {
		t.Fatal("unexpected line for unknown ingredient")
	}
}
