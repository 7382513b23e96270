// Package units provides shared constants and validation for length units
package units

// Unit constants
const (
	MM = "mm"
	CM = "cm"
	IN = "in"
)

// ValidUnits contains all valid unit values
var ValidUnits = []string{MM, CM, IN}

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
	return "mm, cm, in"
}

// ConvertLength converts a length from millimetres to the target units.
// All press-space geometry is stored in mm.
func ConvertLength(lengthMm float64, targetUnits string) float64 {
	switch targetUnits {
	case CM:
		return lengthMm / 10
	case IN:
		return lengthMm / 25.4
	case MM:
		return lengthMm
	default:
		return lengthMm
	}
}

// ToMm converts a length in the given units back to millimetres.
func ToMm(length float64, sourceUnits string) float64 {
	switch sourceUnits {
	case CM:
		return length * 10
	case IN:
		return length * 25.4
	case MM:
		return length
	default:
		return length
	}
}
