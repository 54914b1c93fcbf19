package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/johnrirwin/fieldreport/internal/auth"
	"github.com/johnrirwin/fieldreport/internal/drafts"
	"github.com/johnrirwin/fieldreport/internal/logging"
	"github.com/johnrirwin/fieldreport/internal/models"
	"github.com/johnrirwin/fieldreport/internal/ratelimit"
	"github.com/johnrirwin/fieldreport/internal/weather"
)

const weatherTimeout = 30 * time.Second

// ForecastProvider serves the richer hourly/daily forecast.
type ForecastProvider interface {
	Forecast(ctx context.Context, at weather.Coordinates) (*models.Forecast, error)
}

// WeatherAPI runs the location/weather fetcher for the session's draft.
type WeatherAPI struct {
	fetcher        *weather.Fetcher
	forecast       ForecastProvider
	drafts         *drafts.Manager
	limiter        ratelimit.RateLimiter
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

func NewWeatherAPI(fetcher *weather.Fetcher, forecast ForecastProvider, draftMgr *drafts.Manager, limiter ratelimit.RateLimiter, authMiddleware *auth.Middleware, logger *logging.Logger) *WeatherAPI {
	return &WeatherAPI{
		fetcher:        fetcher,
		forecast:       forecast,
		drafts:         draftMgr,
		limiter:        limiter,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

func (api *WeatherAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/drafts/current/weather", corsMiddleware(api.authMiddleware.RequireAuth(api.handleDraftWeather)))
	mux.HandleFunc("/api/weather/forecast", corsMiddleware(api.authMiddleware.RequireAuth(api.handleForecast)))
}

// handleDraftWeather fetches current conditions and writes the summary into
// the draft's weather field. Query: lat, lon, permission=granted|denied,
// place=1, precision=1, age (seconds since the client's fix).
func (api *WeatherAPI) handleDraftWeather(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	session, _ := auth.SessionFromContext(r.Context())
	if !api.allow(w, session.UserID) {
		return
	}

	q := r.URL.Query()
	req := weather.Request{
		Permission:   weather.StaticPermission(strings.EqualFold(q.Get("permission"), "granted")),
		Location:     weather.DefaultLocationOptions(),
		IncludePlace: q.Get("place") == "1" || strings.EqualFold(q.Get("place"), "true"),
		Precision:    weather.ParsePrecision(q.Get("precision")),
	}
	// Without coordinates the locator stays nil and the fetch fails as
	// location unavailable.
	if at, ok := parseCoordinates(q.Get("lat"), q.Get("lon")); ok {
		locator := weather.StaticLocator{Coordinates: at}
		if age, err := strconv.Atoi(q.Get("age")); err == nil && age > 0 {
			locator.Age = time.Duration(age) * time.Second
		}
		req.Locator = locator
	}

	ctx, cancel := context.WithTimeout(r.Context(), weatherTimeout)
	defer cancel()

	report, err := api.fetcher.Fetch(ctx, req)
	if err != nil {
		respondError(w, api.logger, "Weather fetch failed", err)
		return
	}

	draft, err := api.drafts.Update(r.Context(), session, drafts.KeyWeather, report.Summary)
	if err != nil {
		respondError(w, api.logger, "Failed to store weather on draft", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"weather": report,
		"draft":   draft.View(),
	})
}

func (api *WeatherAPI) handleForecast(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	if api.forecast == nil {
		writeError(w, http.StatusNotImplemented, "not_configured", "Forecasts are not configured.")
		return
	}

	session, _ := auth.SessionFromContext(r.Context())
	if !api.allow(w, session.UserID) {
		return
	}

	at, ok := parseCoordinates(r.URL.Query().Get("lat"), r.URL.Query().Get("lon"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_request", "lat and lon are required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), weatherTimeout)
	defer cancel()

	forecast, err := api.forecast.Forecast(ctx, at)
	if err != nil {
		respondError(w, api.logger, "Forecast fetch failed", weather.RemoteFailure(err))
		return
	}

	writeJSON(w, http.StatusOK, forecast)
}

func (api *WeatherAPI) allow(w http.ResponseWriter, key string) bool {
	if api.limiter == nil || api.limiter.Allow(key) {
		return true
	}
	writeError(w, http.StatusTooManyRequests, "rate_limited", "Please wait a moment before refreshing the weather.")
	return false
}

func parseCoordinates(latRaw, lonRaw string) (weather.Coordinates, bool) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latRaw), 64)
	if err != nil {
		return weather.Coordinates{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonRaw), 64)
	if err != nil {
		return weather.Coordinates{}, false
	}
	return weather.Coordinates{Latitude: lat, Longitude: lon}, true
}
