package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/johnrirwin/fieldreport/internal/auth"
	"github.com/johnrirwin/fieldreport/internal/drafts"
	"github.com/johnrirwin/fieldreport/internal/images"
	"github.com/johnrirwin/fieldreport/internal/logging"
	"github.com/johnrirwin/fieldreport/internal/models"
	"github.com/johnrirwin/fieldreport/internal/observability"
)

const acquireTimeout = 30 * time.Second

// DraftAPI exposes the session's report draft and photo acquisition.
type DraftAPI struct {
	drafts         *drafts.Manager
	images         *images.Service
	authMiddleware *auth.Middleware
	metrics        *observability.Metrics
	maxUploadBytes int64
	logger         *logging.Logger
}

func NewDraftAPI(draftMgr *drafts.Manager, imageSvc *images.Service, authMiddleware *auth.Middleware, metrics *observability.Metrics, maxUploadBytes int64, logger *logging.Logger) *DraftAPI {
	return &DraftAPI{
		drafts:         draftMgr,
		images:         imageSvc,
		authMiddleware: authMiddleware,
		metrics:        metrics,
		maxUploadBytes: maxUploadBytes,
		logger:         logger,
	}
}

func (api *DraftAPI) RegisterRoutes(mux *http.ServeMux, corsMiddleware func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("/api/drafts/current", corsMiddleware(api.authMiddleware.RequireAuth(api.handleDraft)))
	mux.HandleFunc("/api/drafts/current/image", corsMiddleware(api.authMiddleware.RequireAuth(api.handleImage)))
}

type draftResponse struct {
	Draft          models.DraftView `json:"draft"`
	WeatherOptions []string         `json:"weatherOptions"`
}

func newDraftResponse(d *models.ReportDraft) draftResponse {
	return draftResponse{Draft: d.View(), WeatherOptions: models.WeatherOptions}
}

func (api *DraftAPI) handleDraft(w http.ResponseWriter, r *http.Request) {
	session, _ := auth.SessionFromContext(r.Context())

	var (
		draft *models.ReportDraft
		err   error
	)

	switch r.Method {
	case http.MethodGet:
		draft, err = api.drafts.Current(r.Context(), session)

	case http.MethodPatch:
		var params models.UpdateDraftParams
		if decodeErr := json.NewDecoder(r.Body).Decode(&params); decodeErr != nil {
			writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
			return
		}
		draft, err = api.drafts.Update(r.Context(), session, params.Key, params.Value)

	case http.MethodDelete:
		draft, err = api.drafts.Reset(r.Context(), session)

	default:
		methodNotAllowed(w)
		return
	}

	if err != nil {
		respondError(w, api.logger, "Draft operation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, newDraftResponse(draft))
}

func (api *DraftAPI) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}

	session, _ := auth.SessionFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, api.maxUploadBytes)
	if err := r.ParseMultipartForm(api.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "image_too_large", "Image is too large.")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid_request", "Invalid upload payload.")
		return
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_image", "Image file is required.")
		return
	}
	defer file.Close()

	source, err := images.ParseSource(strings.TrimSpace(r.FormValue("source")))
	if err != nil {
		respondError(w, api.logger, "Invalid capture source", err)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_image", "Failed to read image.")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), acquireTimeout)
	defer cancel()

	result, err := api.images.Acquire(ctx, session, images.AcquireRequest{
		FileName: header.Filename,
		Data:     data,
		Source:   source,
	})
	if err != nil {
		respondError(w, api.logger, "Image acquisition failed", err)
		return
	}

	api.metrics.ImagesAcquired.WithLabelValues(string(result.Moderation.Status)).Inc()
	writeJSON(w, http.StatusOK, result)
}
