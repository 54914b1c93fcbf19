// Package weather fetches current conditions for the device position:
// permission, then location, then weather and place name in parallel.
package weather

import (
	"context"
	"errors"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"

	"github.com/johnrirwin/fieldreport/internal/logging"
	"github.com/johnrirwin/fieldreport/internal/models"
	"github.com/johnrirwin/fieldreport/internal/observability"
)

// State is a step of a single fetch.
type State string

const (
	StateIdle                 State = "idle"
	StateRequestingPermission State = "requesting_permission"
	StateAcquiringLocation    State = "acquiring_location"
	StateFetchingRemoteData   State = "fetching_remote_data"
	StateSucceeded            State = "succeeded"
	StateFailed               State = "failed"
)

// Conditions are the current weather at a position.
type Conditions struct {
	Condition   string
	Description string
	Temperature float64
	Humidity    int
}

// Place is a reverse-geocoded position.
type Place struct {
	City    string
	State   string
	Country string
}

// Name joins the non-empty parts, e.g. "Perth, Western Australia, AU".
func (p Place) Name() string {
	name := ""
	for _, part := range []string{p.City, p.State, p.Country} {
		if part == "" {
			continue
		}
		if name != "" {
			name += ", "
		}
		name += part
	}
	return name
}

// WeatherClient reads current conditions.
type WeatherClient interface {
	CurrentWeather(ctx context.Context, at Coordinates) (*Conditions, error)
}

// Geocoder resolves a position to a place. A nil place means not found.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, at Coordinates) (*Place, error)
}

// Request is one fetch invocation.
type Request struct {
	Permission   PermissionRequester
	Locator      Locator
	Location     LocationOptions
	IncludePlace bool
	Precision    Precision
	// OnTransition, when set, observes every state change.
	OnTransition func(from, to State)
}

// Fetcher runs fetches. It holds no per-fetch state, so concurrent and
// repeated calls are independent.
type Fetcher struct {
	weather  WeatherClient
	geocoder Geocoder
	clock    clockwork.Clock
	metrics  *observability.Metrics
	logger   *logging.Logger
}

// NewFetcher creates a fetcher. geocoder may be nil when place names are
// never requested.
func NewFetcher(weather WeatherClient, geocoder Geocoder, clock clockwork.Clock, metrics *observability.Metrics, logger *logging.Logger) *Fetcher {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if metrics == nil {
		metrics = observability.NewMetricsForTesting()
	}
	return &Fetcher{
		weather:  weather,
		geocoder: geocoder,
		clock:    clock,
		metrics:  metrics,
		logger:   logger,
	}
}

type run struct {
	state        State
	onTransition func(from, to State)
}

func (r *run) to(next State) {
	prev := r.state
	r.state = next
	if r.onTransition != nil {
		r.onTransition(prev, next)
	}
}

// Fetch runs one invocation to Succeeded or Failed. Failures are returned
// as *FetchError. There is no retry; call Fetch again.
func (f *Fetcher) Fetch(ctx context.Context, req Request) (*models.WeatherReport, error) {
	report, err := f.fetch(ctx, req)

	outcome := "success"
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		outcome = string(fetchErr.Kind)
	}
	f.metrics.WeatherFetches.WithLabelValues(outcome).Inc()

	return report, err
}

func (f *Fetcher) fetch(ctx context.Context, req Request) (*models.WeatherReport, error) {
	r := &run{state: StateIdle, onTransition: req.OnTransition}
	fail := func(err *FetchError) (*models.WeatherReport, error) {
		r.to(StateFailed)
		f.logger.Debug("Weather fetch failed", logging.WithFields(map[string]interface{}{
			"kind":   string(err.Kind),
			"status": err.Status,
		}))
		return nil, err
	}

	r.to(StateRequestingPermission)
	if req.Permission == nil {
		return fail(&FetchError{Kind: KindPermissionDenied})
	}
	granted, err := req.Permission.RequestLocationPermission(ctx)
	if err != nil || !granted {
		return fail(&FetchError{Kind: KindPermissionDenied, Err: err})
	}

	r.to(StateAcquiringLocation)
	at, err := f.locate(ctx, req)
	if err != nil {
		return fail(&FetchError{Kind: KindLocationUnavailable, Err: err})
	}

	r.to(StateFetchingRemoteData)
	conditions, place, err := f.remote(ctx, at, req.IncludePlace)
	if err != nil {
		return fail(RemoteFailure(err))
	}

	r.to(StateSucceeded)
	report := &models.WeatherReport{
		Summary:     Summary(*conditions, req.Precision),
		Condition:   conditions.Condition,
		Description: conditions.Description,
		Icon:        Icon(conditions.Condition),
		Temperature: conditions.Temperature,
		Humidity:    conditions.Humidity,
		Latitude:    at.Latitude,
		Longitude:   at.Longitude,
		FetchedAt:   f.clock.Now().UTC(),
	}
	if place != nil {
		report.Place = place.Name()
	}
	return report, nil
}

func (f *Fetcher) locate(ctx context.Context, req Request) (Coordinates, error) {
	if req.Locator == nil {
		return Coordinates{}, errors.New("no locator")
	}
	opts := req.Location
	if opts == (LocationOptions{}) {
		opts = DefaultLocationOptions()
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	return req.Locator.CurrentLocation(ctx, opts)
}

// remote fetches weather and, optionally, the place name concurrently. The
// first failure cancels the other request.
func (f *Fetcher) remote(ctx context.Context, at Coordinates, includePlace bool) (*Conditions, *Place, error) {
	g, gctx := errgroup.WithContext(ctx)

	// Each goroutine writes only its own result; Wait orders the reads.
	var (
		conditions *Conditions
		place      *Place
	)

	g.Go(func() error {
		start := f.clock.Now()
		c, err := f.weather.CurrentWeather(gctx, at)
		f.metrics.WeatherAPI.WithLabelValues("weather").Observe(f.clock.Since(start).Seconds())
		if err != nil {
			return err
		}
		if c == nil {
			return ErrMalformedResponse
		}
		conditions = c
		return nil
	})

	if includePlace && f.geocoder != nil {
		g.Go(func() error {
			start := f.clock.Now()
			p, err := f.geocoder.ReverseGeocode(gctx, at)
			f.metrics.WeatherAPI.WithLabelValues("geocode").Observe(f.clock.Since(start).Seconds())
			if err != nil {
				return err
			}
			place = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return conditions, place, nil
}
