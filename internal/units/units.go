// Package units provides shared constants and conversion for length units.
// Geometry is computed and stored in metres; other units are for display.
package units

import "strings"

// Unit constants
const (
	M  = "m"
	CM = "cm"
	MM = "mm"
	FT = "ft"
	IN = "in"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{M, CM, MM, FT, IN}

// IsValid checks if the given unit is in the list of valid units
func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString returns a comma-separated string of valid units for error messages
func GetValidUnitsString() string {
	return strings.Join(ValidUnits, ", ")
}

// ConvertLength converts a length in metres to the target units.
func ConvertLength(metres float64, targetUnits string) float64 {
	switch targetUnits {
	case CM:
		return metres * 100
	case MM:
		return metres * 1000
	case FT:
		return metres / 0.3048
	case IN:
		return metres / 0.0254
	default:
		return metres // default to metres if unknown unit
	}
}

// Decimals returns a sensible number of decimal places for printing a
// scan-scale length in unit.
func Decimals(unit string) int {
	switch unit {
	case MM:
		return 1
	case CM, IN:
		return 2
	default:
		return 3
	}
}
