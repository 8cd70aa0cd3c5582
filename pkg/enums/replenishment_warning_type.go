package enums

import "fmt"

// ReplenishmentWarningType enumerates data-quality warnings returned next to
// deficit and generation results.
type ReplenishmentWarningType string

const (
	ReplenishmentWarningNegativeStock ReplenishmentWarningType = "NEGATIVE_STOCK"
	ReplenishmentWarningNoSupplier    ReplenishmentWarningType = "NO_SUPPLIER"
)

var validReplenishmentWarningTypes = []ReplenishmentWarningType{
	ReplenishmentWarningNegativeStock,
	ReplenishmentWarningNoSupplier,
}

// String implements fmt.Stringer.
func (w ReplenishmentWarningType) String() string {
	return string(w)
}

// IsValid reports whether the value is known.
func (w ReplenishmentWarningType) IsValid() bool {
	for _, candidate := range validReplenishmentWarningTypes {
		if candidate == w {
			return true
		}
	}
	return false
}

// ParseReplenishmentWarningType converts raw input into a ReplenishmentWarningType.
func ParseReplenishmentWarningType(value string) (ReplenishmentWarningType, error) {
	for _, candidate := range validReplenishmentWarningTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid replenishment warning type %q", value)
}
