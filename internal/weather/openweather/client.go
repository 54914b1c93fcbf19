// Package openweather is the OpenWeather implementation of the weather
// and reverse-geocoding clients.
package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/johnrirwin/fieldreport/internal/models"
	"github.com/johnrirwin/fieldreport/internal/weather"
)

const (
	weatherPath  = "/data/2.5/weather"
	reversePath  = "/geo/1.0/reverse"
	oneCallPath  = "/data/3.0/onecall"
	maxErrorBody = 512
)

// Config holds client settings.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client calls the OpenWeather REST API.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewClient creates a client. An empty BaseURL uses the public API.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openweathermap.org"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type currentResponse struct {
	Weather []condition `json:"weather"`
	Main    struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
}

type reverseEntry struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Country string `json:"country"`
}

type oneCallSample struct {
	Dt       int64           `json:"dt"`
	Temp     json.RawMessage `json:"temp"`
	Humidity int             `json:"humidity"`
	UVI      float64         `json:"uvi"`
	Weather  []condition     `json:"weather"`
}

type oneCallResponse struct {
	Current oneCallSample   `json:"current"`
	Hourly  []oneCallSample `json:"hourly"`
	Daily   []oneCallSample `json:"daily"`
}

// CurrentWeather returns conditions in metric units.
func (c *Client) CurrentWeather(ctx context.Context, at weather.Coordinates) (*weather.Conditions, error) {
	var data currentResponse
	if err := c.get(ctx, weatherPath, at, url.Values{"units": {"metric"}}, &data); err != nil {
		return nil, err
	}

	if len(data.Weather) == 0 {
		return nil, fmt.Errorf("%s: %w: no weather conditions", weatherPath, weather.ErrMalformedResponse)
	}

	return &weather.Conditions{
		Condition:   data.Weather[0].Main,
		Description: titleCase(data.Weather[0].Description),
		Temperature: data.Main.Temp,
		Humidity:    data.Main.Humidity,
	}, nil
}

// ReverseGeocode returns the nearest named place, or nil when there is none.
func (c *Client) ReverseGeocode(ctx context.Context, at weather.Coordinates) (*weather.Place, error) {
	var entries []reverseEntry
	if err := c.get(ctx, reversePath, at, url.Values{"limit": {"1"}}, &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	return &weather.Place{
		City:    entries[0].Name,
		State:   entries[0].State,
		Country: entries[0].Country,
	}, nil
}

// Forecast returns current, hourly and daily samples with UV index.
func (c *Client) Forecast(ctx context.Context, at weather.Coordinates) (*models.Forecast, error) {
	var data oneCallResponse
	params := url.Values{"units": {"metric"}, "exclude": {"minutely,alerts"}}
	if err := c.get(ctx, oneCallPath, at, params, &data); err != nil {
		return nil, err
	}

	out := &models.Forecast{
		Current: c.sample(data.Current),
		Hourly:  make([]models.ForecastSample, 0, len(data.Hourly)),
		Daily:   make([]models.ForecastSample, 0, len(data.Daily)),
	}
	for _, h := range data.Hourly {
		out.Hourly = append(out.Hourly, c.sample(h))
	}
	for _, d := range data.Daily {
		out.Daily = append(out.Daily, c.sample(d))
	}
	return out, nil
}

func (c *Client) sample(s oneCallSample) models.ForecastSample {
	out := models.ForecastSample{
		Time:        time.Unix(s.Dt, 0).UTC(),
		Temperature: sampleTemperature(s.Temp),
		Humidity:    s.Humidity,
		UVIndex:     s.UVI,
		UVCategory:  weather.UVCategory(s.UVI),
	}
	if len(s.Weather) > 0 {
		out.Condition = s.Weather[0].Main
		out.Description = titleCase(s.Weather[0].Description)
	}
	out.Icon = weather.Icon(out.Condition)
	return out
}

// titleCase builds a Caser per call; Casers are not safe to share.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

// sampleTemperature reads a scalar temp (current, hourly) or the "day"
// field of a daily temp object.
func sampleTemperature(raw json.RawMessage) float64 {
	var scalar float64
	if err := json.Unmarshal(raw, &scalar); err == nil {
		return scalar
	}
	var daily struct {
		Day float64 `json:"day"`
	}
	if err := json.Unmarshal(raw, &daily); err == nil {
		return daily.Day
	}
	return 0
}

func (c *Client) get(ctx context.Context, path string, at weather.Coordinates, params url.Values, dst interface{}) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("lat", strconv.FormatFloat(at.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(at.Longitude, 'f', -1, 64))
	q.Set("appid", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &weather.StatusError{Endpoint: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", path, err)
	}
	return nil
}
