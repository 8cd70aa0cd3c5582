package purchasing

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// currencyPlaces is the rounding applied to money amounts.
const currencyPlaces = 2

// Totals holds the money amounts of an order.
type Totals struct {
	Subtotal decimal.Decimal
	VATRate  decimal.Decimal
	VAT      decimal.Decimal
	Total    decimal.Decimal
}

// LineTotal prices one order line, rounded half away from zero to cents.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return quantity.Mul(unitPrice).Round(currencyPlaces)
}

// ComputeTotals sums line totals and applies the flat VAT rate.
func ComputeTotals(lineTotals []decimal.Decimal, vatRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, total := range lineTotals {
		subtotal = subtotal.Add(total)
	}
	subtotal = subtotal.Round(currencyPlaces)
	vat := subtotal.Mul(vatRate).Round(currencyPlaces)
	return Totals{
		Subtotal: subtotal,
		VATRate:  vatRate,
		VAT:      vat,
		Total:    subtotal.Add(vat),
	}
}

// OrderNumber formats the human-facing order reference.
func OrderNumber(orderDate time.Time, id uuid.UUID) string {
	hex := strings.ReplaceAll(id.String(), "-", "")
	return fmt.Sprintf("PO-%s-%s", orderDate.UTC().Format("20060102"), strings.ToUpper(hex[:8]))
}
