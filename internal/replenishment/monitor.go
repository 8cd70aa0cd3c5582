package replenishment

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/larder-backend/pkg/db/models"
	"github.com/angelmondragon/larder-backend/pkg/enums"
)

// Deficit is an ingredient below its minimum stock.
type Deficit struct {
	Ingredient   models.Ingredient `json:"-"`
	IngredientID uuid.UUID         `json:"ingredient_id"`
	Name         string            `json:"name"`
	Unit         string            `json:"unit"`
	CurrentStock decimal.Decimal   `json:"current_stock"`
	MinimumStock decimal.Decimal   `json:"minimum_stock"`
	Shortfall    decimal.Decimal   `json:"shortfall"`
}

// Warning reports a catalog or ledger data gap next to a result.
type Warning struct {
	Type         enums.ReplenishmentWarningType `json:"type"`
	IngredientID uuid.UUID                      `json:"ingredient_id"`
	Message      string                         `json:"message"`
}

// DeficitReport is the monitor output.
type DeficitReport struct {
	Deficits []Deficit `json:"deficits"`
	Warnings []Warning `json:"warnings"`
}

// Deficits compares each ingredient's stock with its minimum. Missing stock
// entries count as zero. The result is unordered; see SortByShortfall.
func Deficits(ingredients []models.Ingredient, stock map[uuid.UUID]decimal.Decimal) DeficitReport {
	report := DeficitReport{Deficits: []Deficit{}, Warnings: []Warning{}}
	for _, ingredient := range ingredients {
		current := stock[ingredient.ID]
		if current.IsNegative() {
			report.Warnings = append(report.Warnings, Warning{
				Type:         enums.ReplenishmentWarningNegativeStock,
				IngredientID: ingredient.ID,
				Message:      fmt.Sprintf("%s has negative stock %s", ingredient.Name, current),
			})
		}
		shortfall := ingredient.MinimumStock.Sub(current)
		if !shortfall.IsPositive() {
			continue
		}
		report.Deficits = append(report.Deficits, newDeficit(ingredient, current, shortfall))
	}
	return report
}

func newDeficit(ingredient models.Ingredient, current, shortfall decimal.Decimal) Deficit {
	return Deficit{
		Ingredient:   ingredient,
		IngredientID: ingredient.ID,
		Name:         ingredient.Name,
		Unit:         string(ingredient.Unit),
		CurrentStock: current,
		MinimumStock: ingredient.MinimumStock,
		Shortfall:    shortfall,
	}
}

// SortByShortfall orders deficits largest shortfall first, then by name.
func SortByShortfall(deficits []Deficit) {
	sort.SliceStable(deficits, func(i, j int) bool {
		if cmp := deficits[i].Shortfall.Cmp(deficits[j].Shortfall); cmp != 0 {
			return cmp > 0
		}
		return deficits[i].Name < deficits[j].Name
	})
}
