package openweather

import (
	"context"
	"fmt"
	"time"

	"github.com/johnrirwin/fieldreport/internal/cache"
	"github.com/johnrirwin/fieldreport/internal/logging"
	"github.com/johnrirwin/fieldreport/internal/observability"
	"github.com/johnrirwin/fieldreport/internal/weather"
)

type cachedPlace struct {
	At    weather.Coordinates `json:"at"`
	Found bool                `json:"found"`
	Place weather.Place       `json:"place"`
}

// CachedGeocoder memoizes reverse geocoding by position rounded to about
// 100 m. Not-found answers are cached too.
type CachedGeocoder struct {
	next    weather.Geocoder
	cache   cache.Cache
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *logging.Logger
}

// NewCachedGeocoder wraps next with c.
func NewCachedGeocoder(next weather.Geocoder, c cache.Cache, ttl time.Duration, metrics *observability.Metrics, logger *logging.Logger) *CachedGeocoder {
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &CachedGeocoder{next: next, cache: c, ttl: ttl, metrics: metrics, logger: logger}
}

func geocodeKey(at weather.Coordinates) string {
	return fmt.Sprintf("geocode:%.3f,%.3f", at.Latitude, at.Longitude)
}

func (g *CachedGeocoder) ReverseGeocode(ctx context.Context, at weather.Coordinates) (*weather.Place, error) {
	key := geocodeKey(at)

	var hit cachedPlace
	if cache.GetJSON(g.cache, key, &hit) {
		g.metrics.GeocodeCache.WithLabelValues("hit").Inc()
		if !hit.Found {
			return nil, nil
		}
		return &hit.Place, nil
	}
	g.metrics.GeocodeCache.WithLabelValues("miss").Inc()

	place, err := g.next.ReverseGeocode(ctx, at)
	if err != nil {
		return nil, err
	}

	entry := cachedPlace{At: at, Found: place != nil}
	if place != nil {
		entry.Place = *place
	}
	if err := cache.SetJSON(g.cache, key, entry, g.ttl); err != nil {
		g.logger.Warn("Failed to cache geocode result", logging.WithFields(map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		}))
	}

	return place, nil
}
