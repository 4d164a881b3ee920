package alerts

import (
	"math"
	"testing"
)

func TestToFahrenheitCelsius(t *testing.T) {
	cases := []struct {
		value  string
		unitID int64
		want   float64
	}{
		{"0", UnitCelsius, 32},
		{"100", UnitCelsius, 212},
		{"-40", UnitCelsius, -40},
		{"25", UnitCelsiusAlt, 77},
		{"25.5", UnitCelsius, 77.9},
	}
	for _, tc := range cases {
		got := ToFahrenheit(tc.value, tc.unitID)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("ToFahrenheit(%q, %d) = %v, want %v", tc.value, tc.unitID, got, tc.want)
		}
	}
}

func TestToFahrenheitIdentity(t *testing.T) {
	if got := ToFahrenheit("72.5", UnitFahrenheit); got != 72.5 {
		t.Fatalf("fahrenheit input should pass through, got %v", got)
	}
	// Unknown unit IDs are treated as already normalized.
	if got := ToFahrenheit("50", 99); got != 50 {
		t.Fatalf("unknown unit should pass through, got %v", got)
	}
}

func TestToFahrenheitMalformed(t *testing.T) {
	for _, value := range []string{"", "abc", "12,5"} {
		if got := ToFahrenheit(value, UnitCelsius); got != 0 {
			t.Fatalf("ToFahrenheit(%q) = %v, want 0", value, got)
		}
	}
}

func TestConvertedThresholds(t *testing.T) {
	got := ConvertedThresholds("0", "100", UnitCelsius)
	if len(got) != 2 || got[0] != 32 || got[1] != 212 {
		t.Fatalf("unexpected thresholds %v", got)
	}

	got = ConvertedThresholds("", "10", UnitCelsius)
	if len(got) != 1 || got[0] != 50 {
		t.Fatalf("missing low should be omitted, got %v", got)
	}

	got = ConvertedThresholds("", "", UnitCelsius)
	if len(got) != 0 {
		t.Fatalf("empty bounds should yield no thresholds, got %v", got)
	}
}
