package weather

import "testing"

func TestSummary(t *testing.T) {
	tests := []struct {
		temp float64
		p    Precision
		want string
	}{
		{28.4, WholeDegrees, "Clear, 28°C, Humidity 65%"},
		{28.5, WholeDegrees, "Clear, 29°C, Humidity 65%"},
		{-0.3, WholeDegrees, "Clear, 0°C, Humidity 65%"},
		{28.46, OneDecimal, "Clear, 28.5°C, Humidity 65%"},
	}
	for _, tt := range tests {
		got := Summary(Conditions{Condition: "Clear", Temperature: tt.temp, Humidity: 65}, tt.p)
		if got != tt.want {
			t.Errorf("Summary(%v, %v) = %q, want %q", tt.temp, tt.p, got, tt.want)
		}
	}
}

func TestUVCategory(t *testing.T) {
	tests := map[float64]string{
		0:    "Low",
		2.9:  "Low",
		3:    "Moderate",
		6:    "High",
		8:    "Very High",
		10.9: "Very High",
		11:   "Extreme",
	}
	for uvi, want := range tests {
		if got := UVCategory(uvi); got != want {
			t.Errorf("UVCategory(%v) = %q, want %q", uvi, got, want)
		}
	}
}

func TestIcon(t *testing.T) {
	if Icon("Rain") != "🌧️" || Icon("fog") != "🌫️" || Icon("unknown") != "🌡️" {
		t.Error("unexpected icon mapping")
	}
}

func TestParsePrecision(t *testing.T) {
	if ParsePrecision("1") != OneDecimal || ParsePrecision("") != WholeDegrees {
		t.Error("unexpected precision")
	}
}

func TestPlaceName(t *testing.T) {
	if got := (Place{City: "Perth", State: "Western Australia", Country: "AU"}).Name(); got != "Perth, Western Australia, AU" {
		t.Errorf("Name = %q", got)
	}
	if got := (Place{Country: "AU"}).Name(); got != "AU" {
		t.Errorf("Name = %q", got)
	}
}
