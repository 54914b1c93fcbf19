package httpapi

import (
	"net/http"
	"strconv"

	"github.com/johnrirwin/fieldreport/internal/auth"
	"github.com/johnrirwin/fieldreport/internal/logging"
	"github.com/johnrirwin/fieldreport/internal/reports"
)

// ReportAPI submits drafts and lists history.
type ReportAPI struct {
	reports        *reports.Service
	authMiddleware *auth.Middleware
	logger         *logging.Logger
}

func NewReportAPI(reportsSvc *reports.Service, authMiddleware *auth.Middleware, logger *logging.Logger) *ReportAPI {
	return &ReportAPI{reports: reportsSvc, authMiddleware: authMiddleware, logger: logger}
}

func (api *ReportAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/reports", corsMiddleware(api.authMiddleware.RequireAuth(api.handleReports)))
}

func (api *ReportAPI) handleReports(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())

	switch r.Method {
	case http.MethodGet:
		limit := 0
		if l := r.URL.Query().Get("limit"); l != "" {
			if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
				limit = parsed
			}
		}
		history, err := api.reports.History(r.Context(), session, limit)
		if err != nil {
			respondError(w, api.logger, "Failed to load history", err)
			return
		}
		writeJSON(w, http.StatusOK, history)

	case http.MethodPost:
		report, err := api.reports.SubmitDraft(r.Context(), session)
		if err != nil {
			respondError(w, api.logger, "Report submission failed", err)
			return
		}
		writeJSON(w, http.StatusCreated, report)

	default:
		methodNotAllowed(w)
	}
}
