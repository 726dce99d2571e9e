// Package units converts GPS ground speed for display.
package units

const (
	MPS  = "mps"
	MPH  = "mph"
	KMPH = "kmph"
	KPH  = "kph"
)

var ValidUnits = []string{MPS, MPH, KMPH, KPH}

func IsValid(unit string) bool {
	for _, validUnit := range ValidUnits {
		if unit == validUnit {
			return true
		}
	}
	return false
}

// GetValidUnitsString is for error messages.
func GetValidUnitsString() string {
	return "mps, mph, kmph, kph"
}

// ConvertSpeed converts a ground speed in km/h, as stored, to targetUnits.
// Unknown units leave the value unchanged.
func ConvertSpeed(speedKPH float64, targetUnits string) float64 {
	switch targetUnits {
	case MPS:
		return speedKPH / 3.6
	case MPH:
		return speedKPH / 1.609344
	default:
		return speedKPH
	}
}
