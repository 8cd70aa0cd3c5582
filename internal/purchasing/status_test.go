package purchasing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/larder-backend/pkg/db/models"
	"github.com/angelmondragon/larder-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/larder-backend/pkg/errors"
)

func line(ordered, delivered string) models.OrderLine {
	return models.OrderLine{
		OrderedQuantity:   decimal.RequireFromString(ordered),
		DeliveredQuantity: decimal.RequireFromString(delivered),
	}
}

func TestCanTransitionTable(t *testing.T) {
	allowed := map[enums.PurchaseOrderStatus][]enums.PurchaseOrderStatus{
		enums.PurchaseOrderStatusDraft:     {enums.PurchaseOrderStatusSent, enums.PurchaseOrderStatusCancelled},
		enums.PurchaseOrderStatusSent:      {enums.PurchaseOrderStatusConfirmed, enums.PurchaseOrderStatusCancelled},
		enums.PurchaseOrderStatusConfirmed: {enums.PurchaseOrderStatusCancelled},
	}
	statuses := []enums.PurchaseOrderStatus{
		enums.PurchaseOrderStatusDraft,
		enums.PurchaseOrderStatusSent,
		enums.PurchaseOrderStatusConfirmed,
		enums.PurchaseOrderStatusPartiallyDelivered,
		enums.PurchaseOrderStatusCompleted,
		enums.PurchaseOrderStatusCancelled,
	}
	for _, from := range statuses {
		for _, to := range statuses {
			want := false
			for _, candidate := range allowed[from] {
				if candidate == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestValidateTransitionRequiresQuantityToSend(t *testing.T) {
	empty := models.PurchaseOrder{Status: enums.PurchaseOrderStatusDraft, Lines: []models.OrderLine{line("0", "0")}}
	err := ValidateTransition(empty, enums.PurchaseOrderStatusSent)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition))

	ready := models.PurchaseOrder{Status: enums.PurchaseOrderStatusDraft, Lines: []models.OrderLine{line("0", "0"), line("2", "0")}}
	assert.NoError(t, ValidateTransition(ready, enums.PurchaseOrderStatusSent))
}

func TestValidateTransitionRejectsDerivedTargets(t *testing.T) {
	order := models.PurchaseOrder{Status: enums.PurchaseOrderStatusConfirmed, Lines: []models.OrderLine{line("1", "0")}}

	for _, target := range []enums.PurchaseOrderStatus{enums.PurchaseOrderStatusPartiallyDelivered, enums.PurchaseOrderStatusCompleted} {
		err := ValidateTransition(order, target)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "target %s", target)
	}

	err := ValidateTransition(order, "archived")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestCancelNotAllowedOnceDeliveryStarted(t *testing.T) {
	for _, status := range []enums.PurchaseOrderStatus{enums.PurchaseOrderStatusPartiallyDelivered, enums.PurchaseOrderStatusCompleted} {
		order := models.PurchaseOrder{Status: status}
		err := ValidateTransition(order, enums.PurchaseOrderStatusCancelled)
		assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidTransition), "from %s", status)
	}
}

func TestDeriveStatus(t *testing.T) {
	cases := []struct {
		name   string
		status enums.PurchaseOrderStatus
		lines  []models.OrderLine
		want   enums.PurchaseOrderStatus
	}{
		{"nothing received keeps sent", enums.PurchaseOrderStatusSent, []models.OrderLine{line("10", "0"), line("5", "0")}, enums.PurchaseOrderStatusSent},
		{"nothing received keeps confirmed", enums.PurchaseOrderStatusConfirmed, []models.OrderLine{line("10", "0")}, enums.PurchaseOrderStatusConfirmed},
		{"one line full", enums.PurchaseOrderStatusConfirmed, []models.OrderLine{line("10", "10"), line("5", "0")}, enums.PurchaseOrderStatusPartiallyDelivered},
		{"partial quantity", enums.PurchaseOrderStatusSent, []models.OrderLine{line("10", "4")}, enums.PurchaseOrderStatusPartiallyDelivered},
		{"all lines full", enums.PurchaseOrderStatusPartiallyDelivered, []models.OrderLine{line("10", "10"), line("5", "5.000")}, enums.PurchaseOrderStatusCompleted},
		{"draft untouched", enums.PurchaseOrderStatusDraft, []models.OrderLine{line("1", "1")}, enums.PurchaseOrderStatusDraft},
		{"cancelled untouched", enums.PurchaseOrderStatusCancelled, []models.OrderLine{line("1", "1")}, enums.PurchaseOrderStatusCancelled},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			order := models.PurchaseOrder{Status: tc.status, Lines: tc.lines}
			assert.Equal(t, tc.want, DeriveStatus(order))
			assert.Equal(t, tc.want, DeriveStatus(order))
		})
	}
}
