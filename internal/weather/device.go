package weather

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Coordinates is a WGS84 position.
type Coordinates struct {
	Latitude  float64
	Longitude float64
}

// Validate rejects positions outside the valid lat/lon ranges.
func (c Coordinates) Validate() error {
	if c.Latitude < -90 || c.Latitude > 90 || c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("coordinates out of range: %v,%v", c.Latitude, c.Longitude)
	}
	return nil
}

// LocationOptions configure a position request.
type LocationOptions struct {
	HighAccuracy bool
	Timeout      time.Duration
	MaxAge       time.Duration
}

// DefaultLocationOptions asks for a high-accuracy fix within 15s, accepting
// one up to 10s old.
func DefaultLocationOptions() LocationOptions {
	return LocationOptions{
		HighAccuracy: true,
		Timeout:      15 * time.Second,
		MaxAge:       10 * time.Second,
	}
}

// PermissionRequester asks the user for location access.
type PermissionRequester interface {
	RequestLocationPermission(ctx context.Context) (bool, error)
}

// Locator provides the device position.
type Locator interface {
	CurrentLocation(ctx context.Context, opts LocationOptions) (Coordinates, error)
}

// StaticPermission is a permission answer the client already obtained.
type StaticPermission bool

func (p StaticPermission) RequestLocationPermission(context.Context) (bool, error) {
	return bool(p), nil
}

// ErrStaleFix is returned when a reported fix is older than MaxAge.
var ErrStaleFix = errors.New("location fix too old")

// StaticLocator returns coordinates reported by the client. Age is how old
// the client's fix was when it reported it.
type StaticLocator struct {
	Coordinates Coordinates
	Age         time.Duration
}

func (l StaticLocator) CurrentLocation(ctx context.Context, opts LocationOptions) (Coordinates, error) {
	if err := ctx.Err(); err != nil {
		return Coordinates{}, err
	}
	if opts.MaxAge > 0 && l.Age > opts.MaxAge {
		return Coordinates{}, ErrStaleFix
	}
	if err := l.Coordinates.Validate(); err != nil {
		return Coordinates{}, err
	}
	return l.Coordinates, nil
}
