package httpapi

import (
	"errors"
	"net/http"

	"github.com/johnrirwin/fieldreport/internal/auth"
	"github.com/johnrirwin/fieldreport/internal/drafts"
	"github.com/johnrirwin/fieldreport/internal/images"
	"github.com/johnrirwin/fieldreport/internal/logging"
	"github.com/johnrirwin/fieldreport/internal/models"
	"github.com/johnrirwin/fieldreport/internal/reports"
	"github.com/johnrirwin/fieldreport/internal/weather"
)

// ActionOpenSettings tells the client to offer a shortcut to system settings.
const ActionOpenSettings = "open_settings"

// ErrorResponse is the body of every API error.
type ErrorResponse struct {
	Code           string `json:"code"`
	Message        string `json:"message"`
	Action         string `json:"action,omitempty"`
	UpstreamStatus int    `json:"upstreamStatus,omitempty"`
}

type apiError struct {
	status int
	body   ErrorResponse
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}

func writeAPIError(w http.ResponseWriter, e apiError) {
	writeJSON(w, e.status, e.body)
}

// classify maps a domain error to its HTTP status and user-facing message.
// ok is false for errors with no user-facing meaning.
func classify(err error) (apiError, bool) {
	switch {
	// Submission
	case errors.Is(err, reports.ErrMissingImage):
		return apiError{http.StatusUnprocessableEntity, ErrorResponse{Code: "missing_image", Message: "Please take or choose a photo first."}}, true
	case errors.Is(err, reports.ErrMissingRequiredField):
		return apiError{http.StatusUnprocessableEntity, ErrorResponse{Code: "missing_field", Message: "Please fill in the title and select a site."}}, true
	case errors.Is(err, reports.ErrSiteNotFound):
		return apiError{http.StatusConflict, ErrorResponse{Code: "site_not_found", Message: "The selected site is no longer available. Please choose another site."}}, true
	case errors.Is(err, reports.ErrUploadFailed):
		return apiError{http.StatusBadGateway, ErrorResponse{Code: "upload_failed", Message: "Failed to upload the photo. Please try again."}}, true
	case errors.Is(err, reports.ErrPersistFailed):
		return apiError{http.StatusServiceUnavailable, ErrorResponse{Code: "persist_failed", Message: "Failed to save the report. Please try again."}}, true

	// Weather
	case errors.Is(err, weather.ErrPermissionDenied):
		return apiError{http.StatusForbidden, ErrorResponse{Code: "permission_denied", Message: "Location permission is needed to fetch the weather.", Action: ActionOpenSettings}}, true
	case errors.Is(err, weather.ErrLocationUnavailable):
		return apiError{http.StatusUnprocessableEntity, ErrorResponse{Code: "location_unavailable", Message: "Unable to determine your location. Please try again."}}, true
	case errors.Is(err, weather.ErrSubscriptionOrAuth):
		return apiError{http.StatusBadGateway, ErrorResponse{Code: "weather_auth_error", Message: "The weather service rejected our credentials.", UpstreamStatus: upstreamStatus(err)}}, true
	case errors.Is(err, weather.ErrRemoteService):
		return apiError{http.StatusBadGateway, ErrorResponse{Code: "weather_unavailable", Message: "Failed to fetch weather data. Please try again.", UpstreamStatus: upstreamStatus(err)}}, true

	// Acquisition
	case errors.Is(err, images.ErrEmptyImage):
		return apiError{http.StatusBadRequest, ErrorResponse{Code: "invalid_image", Message: "Image file is required."}}, true
	case errors.Is(err, images.ErrUnsupportedContentType):
		return apiError{http.StatusUnsupportedMediaType, ErrorResponse{Code: "unsupported_image", Message: "Only JPEG, PNG and WebP images are allowed."}}, true
	case errors.Is(err, images.ErrImageTooLarge):
		return apiError{http.StatusRequestEntityTooLarge, ErrorResponse{Code: "image_too_large", Message: "The image resolution is too large."}}, true
	case errors.Is(err, images.ErrDecodeFailed), errors.Is(err, images.ErrInvalidDimensions):
		return apiError{http.StatusUnprocessableEntity, ErrorResponse{Code: "invalid_image", Message: "The image could not be read."}}, true
	case errors.Is(err, images.ErrInvalidOptions):
		return apiError{http.StatusBadRequest, ErrorResponse{Code: "invalid_options", Message: err.Error()}}, true

	case errors.Is(err, drafts.ErrUnknownField):
		return apiError{http.StatusBadRequest, ErrorResponse{Code: "unknown_field", Message: err.Error()}}, true
	}

	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return apiError{http.StatusBadRequest, ErrorResponse{Code: "invalid_input", Message: validationErr.Message}}, true
	}

	var authErr *auth.AuthError
	if errors.As(err, &authErr) {
		status := http.StatusUnauthorized
		switch authErr.Code {
		case "invalid_input":
			status = http.StatusBadRequest
		case "user_exists":
			status = http.StatusConflict
		case "account_disabled", "wrong_password":
			status = http.StatusForbidden
		case "not_found":
			status = http.StatusNotFound
		}
		return apiError{status, ErrorResponse{Code: authErr.Code, Message: authErr.Message}}, true
	}

	return apiError{}, false
}

func upstreamStatus(err error) int {
	var fe *weather.FetchError
	if errors.As(err, &fe) {
		return fe.Status
	}
	return 0
}

// respondError writes the mapped error, or logs err and writes a generic 500.
func respondError(w http.ResponseWriter, logger *logging.Logger, logMsg string, err error) {
	if e, ok := classify(err); ok {
		writeAPIError(w, e)
		return
	}
	logger.Error(logMsg, logging.WithField("error", err.Error()))
	writeError(w, http.StatusInternalServerError, "internal_error", "Something went wrong. Please try again.")
}
