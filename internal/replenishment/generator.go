package replenishment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/internal/purchasing"
	"github.com/angelmondragon/larder-backend/pkg/db/models"
	"github.com/angelmondragon/larder-backend/pkg/enums"
)

// Options tunes Generate. A target, when present, raises the ordered quantity
// to target minus current stock. TargetQuantities wins over TargetQuantity.
type Options struct {
	TargetQuantity   *decimal.Decimal
	TargetQuantities map[uuid.UUID]decimal.Decimal
	Now              time.Time
	VATRate          decimal.Decimal
}

// DraftOrder is a proposed purchase order for one supplier.
type DraftOrder struct {
	SupplierID           uuid.UUID       `json:"supplier_id"`
	SupplierName         string          `json:"supplier_name"`
	OrderDate            time.Time       `json:"order_date"`
	ExpectedDeliveryDate time.Time       `json:"expected_delivery_date"`
	Lines                []DraftLine     `json:"lines"`
	Subtotal             decimal.Decimal `json:"subtotal"`
	VATRate              decimal.Decimal `json:"vat_rate"`
	VAT                  decimal.Decimal `json:"vat"`
	Total                decimal.Decimal `json:"total"`
}

// DraftLine is one ingredient of a draft order.
type DraftLine struct {
	IngredientID uuid.UUID       `json:"ingredient_id"`
	Name         string          `json:"name"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	LineTotal    decimal.Decimal `json:"line_total"`
}

// GenerationResult holds the drafts plus entries skipped with a warning.
type GenerationResult struct {
	Orders   []DraftOrder `json:"orders"`
	Warnings []Warning    `json:"warnings"`
}

// Generate groups deficits by preferred supplier into draft orders. It is
// pure and never deduplicates against orders that already exist.
func Generate(deficits []Deficit, suppliers map[uuid.UUID]models.Supplier, opts Options) GenerationResult {
	result := GenerationResult{Orders: []DraftOrder{}, Warnings: []Warning{}}
	now := opts.Now.UTC()

	groups := make(map[uuid.UUID]int)
	for _, deficit := range deficits {
		supplierID, ok := deficit.Ingredient.PreferredSupplierID()
		if !ok {
			result.Warnings = append(result.Warnings, noSupplier(deficit, fmt.Sprintf("%s has no supplier", deficit.Name)))
			continue
		}
		supplier, ok := suppliers[supplierID]
		if !ok || !supplier.Active {
			result.Warnings = append(result.Warnings, noSupplier(deficit, fmt.Sprintf("preferred supplier of %s is missing or inactive", deficit.Name)))
			continue
		}

		quantity := quantityToOrder(deficit, opts)
		if !quantity.IsPositive() {
			continue
		}

		idx, ok := groups[supplierID]
		if !ok {
			idx = len(result.Orders)
			groups[supplierID] = idx
			result.Orders = append(result.Orders, DraftOrder{
				SupplierID:           supplier.ID,
				SupplierName:         supplier.Name,
				OrderDate:            now,
				ExpectedDeliveryDate: now.AddDate(0, 0, supplier.LeadTimeDays),
			})
		}
		unitPrice := deficit.Ingredient.UnitPrice
		result.Orders[idx].Lines = append(result.Orders[idx].Lines, DraftLine{
			IngredientID: deficit.IngredientID,
			Name:         deficit.Name,
			Quantity:     quantity,
			UnitPrice:    unitPrice,
			LineTotal:    purchasing.LineTotal(quantity, unitPrice),
		})
	}

	for i := range result.Orders {
		lineTotals := make([]decimal.Decimal, 0, len(result.Orders[i].Lines))
		for _, line := range result.Orders[i].Lines {
			lineTotals = append(lineTotals, line.LineTotal)
		}
		totals := purchasing.ComputeTotals(lineTotals, opts.VATRate)
		result.Orders[i].Subtotal = totals.Subtotal
		result.Orders[i].VATRate = totals.VATRate
		result.Orders[i].VAT = totals.VAT
		result.Orders[i].Total = totals.Total
	}
	return result
}

func quantityToOrder(deficit Deficit, opts Options) decimal.Decimal {
	target, ok := opts.TargetQuantities[deficit.IngredientID]
	if !ok {
		if opts.TargetQuantity == nil {
			return deficit.Shortfall
		}
		target = *opts.TargetQuantity
	}
	return decimal.Max(deficit.Shortfall, target.Sub(deficit.CurrentStock))
}

func noSupplier(deficit Deficit, message string) Warning {
	return Warning{
		Type:         enums.ReplenishmentWarningNoSupplier,
		IngredientID: deficit.IngredientID,
		Message:      message,
	}
}
