package enums

import "fmt"

// UnitOfMeasure is the stocking unit of an ingredient.
type UnitOfMeasure string

const (
	UnitKilogram   UnitOfMeasure = "kg"
	UnitGram       UnitOfMeasure = "g"
	UnitLiter      UnitOfMeasure = "l"
	UnitMilliliter UnitOfMeasure = "ml"
	UnitPiece      UnitOfMeasure = "pcs"
)

var validUnitsOfMeasure = []UnitOfMeasure{
	UnitKilogram,
	UnitGram,
	UnitLiter,
	UnitMilliliter,
	UnitPiece,
}

// String implements fmt.Stringer.
func (u UnitOfMeasure) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UnitOfMeasure.
func (u UnitOfMeasure) IsValid() bool {
	for _, candidate := range validUnitsOfMeasure {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUnitOfMeasure converts raw input into a UnitOfMeasure.
func ParseUnitOfMeasure(value string) (UnitOfMeasure, error) {
	for _, candidate := range validUnitsOfMeasure {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid unit of measure %q", value)
}
