package weather

import (
	"errors"
	"fmt"
	"net/http"
)

// Failure kinds of a fetch.
var (
	ErrPermissionDenied    = errors.New("location permission denied")
	ErrLocationUnavailable = errors.New("location unavailable")
	ErrRemoteService       = errors.New("weather service error")
	ErrSubscriptionOrAuth  = errors.New("weather service rejected credentials")

	// ErrMalformedResponse is returned by clients for a 2xx body that lacks
	// the fields a result needs.
	ErrMalformedResponse = errors.New("malformed weather service response")
)

// Kind names a fetch failure.
type Kind string

const (
	KindPermissionDenied    Kind = "permission_denied"
	KindLocationUnavailable Kind = "location_unavailable"
	KindRemoteService       Kind = "remote_error"
	KindSubscriptionOrAuth  Kind = "auth_error"
)

// FetchError is the terminal Failed state of a fetch. Status is the
// upstream HTTP status for remote failures, zero otherwise.
type FetchError struct {
	Kind   Kind
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	msg := e.sentinel().Error()
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is matches the sentinel for the error's kind. A subscription/auth failure
// is also a remote service failure.
func (e *FetchError) Is(target error) bool {
	if target == e.sentinel() {
		return true
	}
	return e.Kind == KindSubscriptionOrAuth && target == ErrRemoteService
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) sentinel() error {
	switch e.Kind {
	case KindPermissionDenied:
		return ErrPermissionDenied
	case KindLocationUnavailable:
		return ErrLocationUnavailable
	case KindSubscriptionOrAuth:
		return ErrSubscriptionOrAuth
	default:
		return ErrRemoteService
	}
}

// StatusError is returned by weather and geocoding clients for non-2xx responses.
type StatusError struct {
	Endpoint string
	Status   int
	Body     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned %d: %s", e.Endpoint, e.Status, e.Body)
}

// RemoteFailure classifies a weather or geocoding client error.
func RemoteFailure(err error) *FetchError {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		kind := KindRemoteService
		if statusErr.Status == http.StatusUnauthorized || statusErr.Status == http.StatusForbidden {
			kind = KindSubscriptionOrAuth
		}
		return &FetchError{Kind: kind, Status: statusErr.Status, Err: err}
	}
	return &FetchError{Kind: KindRemoteService, Err: err}
}
