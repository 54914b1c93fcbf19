package openweather

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnrirwin/fieldreport/internal/cache"
	"github.com/johnrirwin/fieldreport/internal/logging"
	"github.com/johnrirwin/fieldreport/internal/observability"
	"github.com/johnrirwin/fieldreport/internal/weather"
)

var perth = weather.Coordinates{Latitude: -31.95, Longitude: 115.86}

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "k", BaseURL: srv.URL, Timeout: time.Second})
}

func TestCurrentWeather(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, weatherPath, r.URL.Path)
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		assert.Equal(t, "k", r.URL.Query().Get("appid"))
		assert.Equal(t, "-31.95", r.URL.Query().Get("lat"))
		_, _ = w.Write([]byte(`{"weather":[{"main":"Clear","description":"clear sky"}],"main":{"temp":28.2,"humidity":65}}`))
	})

	got, err := client.CurrentWeather(context.Background(), perth)
	require.NoError(t, err)
	assert.Equal(t, "Clear", got.Condition)
	assert.Equal(t, "Clear Sky", got.Description)
	assert.Equal(t, 28.2, got.Temperature)
	assert.Equal(t, 65, got.Humidity)
	assert.Equal(t, "Clear, 28°C, Humidity 65%", weather.Summary(*got, weather.WholeDegrees))
}

func TestCurrentWeather_StatusError(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"cod":401,"message":"Invalid API key"}`, http.StatusUnauthorized)
	})

	_, err := client.CurrentWeather(context.Background(), perth)
	var statusErr *weather.StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.Status)
	assert.Contains(t, statusErr.Body, "Invalid API key")
}

func TestCurrentWeather_EmptyConditions(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"weather":[],"main":{"temp":28.2,"humidity":65}}`))
	})

	got, err := client.CurrentWeather(context.Background(), perth)
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, weather.ErrMalformedResponse)

	fetchErr := weather.RemoteFailure(err)
	assert.Equal(t, weather.KindRemoteService, fetchErr.Kind)
	assert.ErrorIs(t, fetchErr, weather.ErrRemoteService)
}

func TestReverseGeocode(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, reversePath, r.URL.Path)
			assert.Equal(t, "1", r.URL.Query().Get("limit"))
			_, _ = w.Write([]byte(`[{"name":"Perth","state":"Western Australia","country":"AU"}]`))
		})
		place, err := client.ReverseGeocode(context.Background(), perth)
		require.NoError(t, err)
		require.NotNil(t, place)
		assert.Equal(t, "Perth, Western Australia, AU", place.Name())
	})

	t.Run("not found", func(t *testing.T) {
		client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`[]`))
		})
		place, err := client.ReverseGeocode(context.Background(), perth)
		require.NoError(t, err)
		assert.Nil(t, place)
	})
}

func TestForecast(t *testing.T) {
	client := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, oneCallPath, r.URL.Path)
		_, _ = w.Write([]byte(`{
			"current":{"dt":1717425000,"temp":28.2,"humidity":65,"uvi":7.1,"weather":[{"main":"Clear","description":"clear sky"}]},
			"hourly":[{"dt":1717428600,"temp":27.0,"humidity":60,"uvi":5.0,"weather":[{"main":"Clouds","description":"few clouds"}]}],
			"daily":[{"dt":1717466400,"temp":{"day":29.5,"min":18,"max":31},"humidity":50,"uvi":11.2,"weather":[{"main":"Rain","description":"light rain"}]}]
		}`))
	})

	got, err := client.Forecast(context.Background(), perth)
	require.NoError(t, err)

	assert.Equal(t, "High", got.Current.UVCategory)
	assert.Equal(t, "☀️", got.Current.Icon)
	require.Len(t, got.Hourly, 1)
	assert.Equal(t, "Moderate", got.Hourly[0].UVCategory)
	require.Len(t, got.Daily, 1)
	assert.Equal(t, 29.5, got.Daily[0].Temperature)
	assert.Equal(t, "Extreme", got.Daily[0].UVCategory)
	assert.Equal(t, "Light Rain", got.Daily[0].Description)
}

type countingGeocoder struct {
	calls atomic.Int32
	place *weather.Place
}

func (g *countingGeocoder) ReverseGeocode(context.Context, weather.Coordinates) (*weather.Place, error) {
	g.calls.Add(1)
	return g.place, nil
}

func TestCachedGeocoder(t *testing.T) {
	c := cache.NewMemory(time.Minute)
	t.Cleanup(c.Stop)
	metrics := observability.NewMetricsForTesting()

	inner := &countingGeocoder{place: &weather.Place{City: "Perth", Country: "AU"}}
	g := NewCachedGeocoder(inner, c, time.Hour, metrics, nil)

	for i := 0; i < 3; i++ {
		place, err := g.ReverseGeocode(context.Background(), perth)
		require.NoError(t, err)
		assert.Equal(t, "Perth, AU", place.Name())
	}
	// Within ~100 m rounds to the same key.
	_, err := g.ReverseGeocode(context.Background(), weather.Coordinates{Latitude: -31.9501, Longitude: 115.8601})
	require.NoError(t, err)

	assert.Equal(t, int32(1), inner.calls.Load())
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.GeocodeCache.WithLabelValues("miss")))
}

func TestCachedGeocoder_NotFoundIsCached(t *testing.T) {
	c := cache.NewMemory(time.Minute)
	t.Cleanup(c.Stop)

	inner := &countingGeocoder{}
	g := NewCachedGeocoder(inner, c, time.Hour, nil, nil)

	for i := 0; i < 2; i++ {
		place, err := g.ReverseGeocode(context.Background(), perth)
		require.NoError(t, err)
		assert.Nil(t, place)
	}
	assert.Equal(t, int32(1), inner.calls.Load())
}

func TestCachedGeocoder_CacheWriteFailureIsLogged(t *testing.T) {
	c := cache.NewMemory(time.Minute)
	t.Cleanup(c.Stop)
	var logs bytes.Buffer
	logger := logging.NewWithWriter(logging.LevelWarn, &logs)

	inner := &countingGeocoder{place: &weather.Place{City: "Perth", Country: "AU"}}
	g := NewCachedGeocoder(inner, c, time.Hour, nil, logger)

	// NaN cannot be encoded, so the entry never reaches the cache.
	at := weather.Coordinates{Latitude: math.NaN(), Longitude: 115.86}
	for i := 0; i < 2; i++ {
		place, err := g.ReverseGeocode(context.Background(), at)
		require.NoError(t, err)
		assert.Equal(t, "Perth, AU", place.Name())
	}

	assert.Equal(t, int32(2), inner.calls.Load())
	assert.Contains(t, logs.String(), "Failed to cache geocode result")
}
