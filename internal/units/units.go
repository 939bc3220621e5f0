// Package units provides shared constants and conversions for the units
// used across the navigation stack.
package units

import "math"

// Length unit constants
const (
	Meters = "m"
	Feet   = "ft"
)

// ValidLengthUnits contains all valid length unit values
var ValidLengthUnits = []string{Meters, Feet}

// IsValidLength checks if the given unit is in the list of valid length units
func IsValidLength(unit string) bool {
	for _, validUnit := range ValidLengthUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidLengthUnitsString returns a comma-separated string of valid units for error messages
func GetValidLengthUnitsString() string {
	return "m, ft"
}

// ConvertLength converts a length from meters to the target units
// Device positions and distances are always in meters
func ConvertLength(meters float64, targetUnits string) float64 {
	switch targetUnits {
	case Feet:
		return meters * 3.280839895
	case Meters:
		return meters
	default:
		return meters
	}
}

// DegToRad converts an angle in degrees to radians.
// Gyroscope rates arrive in degrees/second; integration runs in radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180.0
}

// RadToDeg converts an angle in radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180.0 / math.Pi
}
