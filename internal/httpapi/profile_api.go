package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/johnrirwin/fieldreport/internal/auth"
	"github.com/johnrirwin/fieldreport/internal/logging"
	"github.com/johnrirwin/fieldreport/internal/models"
)

// ProfileAPI handles profile HTTP endpoints
type ProfileAPI struct {
	authService    *auth.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

// NewProfileAPI creates a new profile API handler
func NewProfileAPI(authService *auth.Service, authMiddleware *auth.Middleware, logger *logging.Logger) *ProfileAPI {
	return &ProfileAPI{
		authService:    authService,
		authMiddleware: authMiddleware,
		logger:         logger,
	}
}

// RegisterRoutes registers profile routes on the given mux
func (api *ProfileAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/me/profile", corsMiddleware(api.authMiddleware.RequireAuth(api.handleProfile)))
}

// handleProfile handles GET and PUT/PATCH /api/me/profile
func (api *ProfileAPI) handleProfile(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		api.handleGetProfile(w, r)
	case http.MethodPut, http.MethodPatch:
		api.handleUpdateProfile(w, r)
	default:
		methodNotAllowed(w)
	}
}

func (api *ProfileAPI) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	user, err := api.authService.GetUser(r.Context(), auth.GetUserID(r.Context()))
	if err != nil {
		api.logger.Error("Failed to get user", logging.WithField("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "internal_error", "failed to get profile")
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// handleUpdateProfile renames the user and optionally changes the password.
// The response carries new tokens; the caller should replace its old ones.
func (api *ProfileAPI) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var params models.UpdateProfileParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	response, err := api.authService.UpdateProfile(r.Context(), auth.GetUserID(r.Context()), params)
	if err != nil {
		respondError(w, api.logger, "Profile update failed", err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}
