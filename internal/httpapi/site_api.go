package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/johnrirwin/fieldreport/internal/auth"
	"github.com/johnrirwin/fieldreport/internal/logging"
	"github.com/johnrirwin/fieldreport/internal/models"
	"github.com/johnrirwin/fieldreport/internal/reports"
)

// SiteAPI serves site reference data.
type SiteAPI struct {
	reports        *reports.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

func NewSiteAPI(reportsSvc *reports.Service, authMiddleware *auth.Middleware, logger *logging.Logger) *SiteAPI {
	return &SiteAPI{reports: reportsSvc, authMiddleware: authMiddleware, logger: logger}
}

func (api *SiteAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/sites", corsMiddleware(api.authMiddleware.RequireAuth(api.handleSites)))
}

func (api *SiteAPI) handleSites(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		sites, err := api.reports.Sites(r.Context())
		if err != nil {
			respondError(w, api.logger, "Failed to list sites", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"sites": sites,
			"count": len(sites),
		})

	case http.MethodPost:
		var params models.CreateSiteParams
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
			return
		}
		site, err := api.reports.CreateSite(r.Context(), params)
		if err != nil {
			respondError(w, api.logger, "Failed to create site", err)
			return
		}
		writeJSON(w, http.StatusCreated, site)

	default:
		methodNotAllowed(w)
	}
}
