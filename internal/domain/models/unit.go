package models

import "fmt"

// UnitOfMeasurement enumerates the units an inventory amount can be expressed in.
type UnitOfMeasurement string

const (
	UnitCup    UnitOfMeasurement = "CUP"
	UnitGallon UnitOfMeasurement = "GALLON"
	UnitOunce  UnitOfMeasurement = "OUNCE"
	UnitPint   UnitOfMeasurement = "PINT"
	UnitPound  UnitOfMeasurement = "POUND"
	UnitQuart  UnitOfMeasurement = "QUART"
)

var unitAbbreviations = map[UnitOfMeasurement]string{
	UnitCup:    "c",
	UnitGallon: "gal",
	UnitOunce:  "oz",
	UnitPint:   "pt",
	UnitPound:  "lb",
	UnitQuart:  "qt",
}

// Units returns every unit in declaration order.
func Units() []UnitOfMeasurement {
	return []UnitOfMeasurement{UnitCup, UnitGallon, UnitOunce, UnitPint, UnitPound, UnitQuart}
}

// IsValidUnit reports whether candidate is exactly one of the symbolic unit
// names. Abbreviations and other casings are not members.
func IsValidUnit(candidate string) bool {
	_, ok := unitAbbreviations[UnitOfMeasurement(candidate)]
	return ok
}

// ParseUnit converts a symbolic unit name into a UnitOfMeasurement.
func ParseUnit(s string) (UnitOfMeasurement, error) {
	if !IsValidUnit(s) {
		return "", fmt.Errorf("unknown unit of measurement %q", s)
	}
	return UnitOfMeasurement(s), nil
}

// Abbreviation returns the short display form, e.g. "gal" for GALLON.
func (u UnitOfMeasurement) Abbreviation() string {
	return unitAbbreviations[u]
}

func (u UnitOfMeasurement) String() string {
	return string(u)
}
