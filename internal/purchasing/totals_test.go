package purchasing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotalsAppliesVAT(t *testing.T) {
	rate := decimal.RequireFromString("0.22")
	lines := []decimal.Decimal{
		LineTotal(decimal.RequireFromString("3"), decimal.RequireFromString("1.50")),
		LineTotal(decimal.RequireFromString("2"), decimal.RequireFromString("4.25")),
	}

	totals := ComputeTotals(lines, rate)
	assert.True(t, totals.Subtotal.Equal(decimal.RequireFromString("13")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.VAT.Equal(decimal.RequireFromString("2.86")), "vat %s", totals.VAT)
	assert.True(t, totals.Total.Equal(decimal.RequireFromString("15.86")), "total %s", totals.Total)
	assert.True(t, totals.Total.Equal(totals.Subtotal.Mul(decimal.RequireFromString("1.22")).Round(2)))
}

func TestLineTotalRoundsHalfAwayFromZero(t *testing.T) {
	got := LineTotal(decimal.RequireFromString("0.333"), decimal.RequireFromString("1.5"))
	assert.True(t, got.Equal(decimal.RequireFromString("0.50")), "got %s", got)
}

func TestOrderNumberFormat(t *testing.T) {
	id := uuid.MustParse("0a1b2c3d-4e5f-6789-abcd-ef0123456789")
	got := OrderNumber(time.Date(2026, 10, 19, 23, 0, 0, 0, time.UTC), id)
	assert.Equal(t, "PO-20261019-0A1B2C3D", got)
}
