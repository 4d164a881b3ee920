package alerts

import (
	"strconv"
	"strings"
)

// Temperature unit IDs as stored in the temperature_units lookup.
const (
	// UnitFahrenheit is the normalization target.
	UnitFahrenheit int64 = 1
	// UnitCelsius and UnitCelsiusAlt are Celsius variants kept separate in the
	// lookup table; both convert the same way.
	UnitCelsius    int64 = 2
	UnitCelsiusAlt int64 = 3
)

// ToFahrenheit converts a threshold string to Fahrenheit. Non-numeric input
// yields 0 rather than an error; thresholds are a permissive normalization
// boundary. Unit 1 is identity and unknown units return the parsed value
// unchanged.
func ToFahrenheit(value string, unitID int64) float64 {
	v, errParse := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if errParse != nil {
		return 0
	}
	switch unitID {
	case UnitCelsius, UnitCelsiusAlt:
		return v*9/5 + 32
	default:
		return v
	}
}

// ConvertedThresholds returns the Fahrenheit-normalized [low, high] pair for a
// rule, omitting absent values. Callers only invoke this when the rule's alert
// type set includes the temperature type and a temperature unit is chosen.
func ConvertedThresholds(low, high string, unitID int64) []float64 {
	out := make([]float64, 0, 2)
	if strings.TrimSpace(low) != "" {
		out = append(out, ToFahrenheit(low, unitID))
	}
	if strings.TrimSpace(high) != "" {
		out = append(out, ToFahrenheit(high, unitID))
	}
	return out
}
