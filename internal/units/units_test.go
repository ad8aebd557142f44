package units

import (
	"math"
	"testing"
)

func TestConvertLength(t *testing.T) {
	tests := []struct {
		name     string
		metres   float64
		units    string
		expected float64
	}{
		{"1.5 m to cm", 1.5, CM, 150},
		{"0.05 m to mm", 0.05, MM, 50},
		{"0.3048 m to ft", 0.3048, FT, 1},
		{"0.0254 m to in", 0.0254, IN, 1},
		{"2 m to m", 2, M, 2},
		{"unknown units default to m", 2, "furlong", 2},
		{"negative residual to cm", -0.01, CM, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ConvertLength(tt.metres, tt.units)
			if math.Abs(result-tt.expected) > 1e-9 {
				t.Errorf("ConvertLength(%f, %s) = %f, want %f", tt.metres, tt.units, result, tt.expected)
			}
		})
	}
}

func TestConvertLength_NonFinitePropagates(t *testing.T) {
	if got := ConvertLength(math.Inf(1), CM); !math.IsInf(got, 1) {
		t.Errorf("ConvertLength(+Inf, cm) = %f, want +Inf", got)
	}
	if got := ConvertLength(math.NaN(), FT); !math.IsNaN(got) {
		t.Errorf("ConvertLength(NaN, ft) = %f, want NaN", got)
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected bool
	}{
		{"valid m", M, true},
		{"valid cm", CM, true},
		{"valid mm", MM, true},
		{"valid ft", FT, true},
		{"valid in", IN, true},
		{"invalid unit", "mph", false},
		{"empty string", "", false},
		{"case sensitive", "CM", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsValid(tt.unit)
			if result != tt.expected {
				t.Errorf("IsValid(%s) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestGetValidUnitsString(t *testing.T) {
	if got, want := GetValidUnitsString(), "m, cm, mm, ft, in"; got != want {
		t.Errorf("GetValidUnitsString() = %q, want %q", got, want)
	}
}

func TestDecimals(t *testing.T) {
	for unit, want := range map[string]int{M: 3, FT: 3, CM: 2, IN: 2, MM: 1} {
		if got := Decimals(unit); got != want {
			t.Errorf("Decimals(%s) = %d, want %d", unit, got, want)
		}
	}
}
