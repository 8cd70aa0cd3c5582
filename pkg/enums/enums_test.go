package enums

import "testing"

func TestParsePurchaseOrderStatus(t *testing.T) {
	for _, status := range validPurchaseOrderStatuses {
		got, err := ParsePurchaseOrderStatus(status.String())
		if err != nil || got != status {
			t.Fatalf("expected %s to parse, got %q err=%v", status, got, err)
		}
	}
	if _, err := ParsePurchaseOrderStatus("shipped"); err == nil {
		t.Fatal("expected unknown status to fail")
	}
}

func TestPurchaseOrderStatusPredicates(t *testing.T) {
	cases := []struct {
		status   PurchaseOrderStatus
		terminal bool
		delivers bool
	}{
		{PurchaseOrderStatusDraft, false, false},
		{PurchaseOrderStatusSent, false, true},
		{PurchaseOrderStatusConfirmed, false, true},
		{PurchaseOrderStatusPartiallyDelivered, false, true},
		{PurchaseOrderStatusCompleted, true, false},
		{PurchaseOrderStatusCancelled, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.status.String(), func(t *testing.T) {
			if tc.status.IsTerminal() != tc.terminal {
				t.Fatalf("IsTerminal mismatch for %s", tc.status)
			}
			if tc.status.AcceptsDeliveries() != tc.delivers {
				t.Fatalf("AcceptsDeliveries mismatch for %s", tc.status)
			}
		})
	}
}

func TestParseMovementKindAndUnit(t *testing.T) {
	if kind, err := ParseMovementKind("adjustment"); err != nil || kind != MovementKindAdjustment {
		t.Fatalf("unexpected kind %q err=%v", kind, err)
	}
	if _, err := ParseMovementKind("transfer"); err == nil {
		t.Fatal("expected transfer to be rejected")
	}
	if unit, err := ParseUnitOfMeasure("kg"); err != nil || unit != UnitKilogram {
		t.Fatalf("unexpected unit %q err=%v", unit, err)
	}
	if UnitOfMeasure("lb").IsValid() {
		t.Fatal("lb is not a supported unit")
	}
}

func TestOutboxEnums(t *testing.T) {
	if !EventDeliveryApplied.IsValid() {
		t.Fatal("delivery_applied should be valid")
	}
	if _, err := ParseOutboxAggregateType("vendor_order"); err == nil {
		t.Fatal("unexpected aggregate accepted")
	}
}
