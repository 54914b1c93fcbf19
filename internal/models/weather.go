package models

import "time"

// WeatherReport is the result of a successful location/weather fetch.
type WeatherReport struct {
	Summary     string    `json:"summary"`
	Condition   string    `json:"condition"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Temperature float64   `json:"temperature"`
	Humidity    int       `json:"humidity"`
	Place       string    `json:"place,omitempty"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

// ForecastSample is one hourly or daily entry of the richer forecast.
type ForecastSample struct {
	Time        time.Time `json:"time"`
	Condition   string    `json:"condition"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon"`
	Temperature float64   `json:"temperature"`
	Humidity    int       `json:"humidity"`
	UVIndex     float64   `json:"uvIndex"`
	UVCategory  string    `json:"uvCategory"`
}

// Forecast is the richer weather view with hourly and daily samples.
type Forecast struct {
	Current ForecastSample   `json:"current"`
	Hourly  []ForecastSample `json:"hourly"`
	Daily   []ForecastSample `json:"daily"`
}
