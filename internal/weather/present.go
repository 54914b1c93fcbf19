package weather

import (
	"fmt"
	"math"
	"strings"
)

// Precision selects how temperatures are rendered in summaries.
type Precision int

const (
	WholeDegrees Precision = iota
	OneDecimal
)

// ParsePrecision maps "1"/"decimal" to OneDecimal and anything else to WholeDegrees.
func ParsePrecision(s string) Precision {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "decimal", "one":
		return OneDecimal
	default:
		return WholeDegrees
	}
}

// FormatTemperature renders degrees Celsius at the given precision.
func FormatTemperature(celsius float64, p Precision) string {
	if p == OneDecimal {
		return fmt.Sprintf("%.1f°C", celsius)
	}
	// Adding 0 turns a rounded -0 into 0.
	return fmt.Sprintf("%.0f°C", math.Round(celsius)+0)
}

// Summary renders "Clear, 28°C, Humidity 65%".
func Summary(c Conditions, p Precision) string {
	return fmt.Sprintf("%s, %s, Humidity %d%%", c.Condition, FormatTemperature(c.Temperature, p), c.Humidity)
}

// Icon maps an OpenWeather condition group to an emoji.
func Icon(condition string) string {
	switch strings.ToLower(condition) {
	case "clear":
		return "☀️"
	case "clouds":
		return "☁️"
	case "drizzle":
		return "🌦️"
	case "rain":
		return "🌧️"
	case "thunderstorm":
		return "⛈️"
	case "snow":
		return "❄️"
	case "mist", "smoke", "haze", "dust", "fog", "sand", "ash":
		return "🌫️"
	case "squall", "tornado":
		return "🌪️"
	default:
		return "🌡️"
	}
}

// UVCategory buckets a UV index using the WHO scale.
func UVCategory(uvi float64) string {
	switch {
	case uvi < 3:
		return "Low"
	case uvi < 6:
		return "Moderate"
	case uvi < 8:
		return "High"
	case uvi < 11:
		return "Very High"
	default:
		return "Extreme"
	}
}
