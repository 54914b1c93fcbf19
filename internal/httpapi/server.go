package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/johnrirwin/fieldreport/internal/auth"
	"github.com/johnrirwin/fieldreport/internal/drafts"
	"github.com/johnrirwin/fieldreport/internal/images"
	"github.com/johnrirwin/fieldreport/internal/logging"
	"github.com/johnrirwin/fieldreport/internal/observability"
	"github.com/johnrirwin/fieldreport/internal/ratelimit"
	"github.com/johnrirwin/fieldreport/internal/reports"
	"github.com/johnrirwin/fieldreport/internal/weather"
)

const defaultMaxUploadBytes = 10 * 1024 * 1024

// Deps are the services the HTTP API exposes. Forecast and Blobs are optional.
type Deps struct {
	Auth           *auth.Service
	AuthMiddleware *auth.Middleware
	Drafts         *drafts.Manager
	Images         *images.Service
	Reports        *reports.Service
	Weather        *weather.Fetcher
	Forecast       ForecastProvider
	WeatherLimiter ratelimit.RateLimiter
	Metrics        *observability.Metrics
	// Blobs serves in-memory uploads under /blobs/ when no object store is configured.
	Blobs          http.Handler
	MaxUploadBytes int64
}

type Server struct {
	deps   Deps
	logger *logging.Logger
	server *http.Server
}

func New(deps Deps, logger *logging.Logger) *Server {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = defaultMaxUploadBytes
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NewMetricsForTesting()
	}
	return &Server{deps: deps, logger: logger}
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	d := s.deps

	authAPI := NewAuthAPI(d.Auth, d.AuthMiddleware, s.logger)
	authAPI.RegisterRoutes(mux, s.corsMiddleware)

	profileAPI := NewProfileAPI(d.Auth, d.AuthMiddleware, s.logger)
	profileAPI.RegisterRoutes(mux, s.corsMiddleware)

	siteAPI := NewSiteAPI(d.Reports, d.AuthMiddleware, s.logger)
	siteAPI.RegisterRoutes(mux, s.corsMiddleware)

	draftAPI := NewDraftAPI(d.Drafts, d.Images, d.AuthMiddleware, d.Metrics, d.MaxUploadBytes, s.logger)
	draftAPI.RegisterRoutes(mux, s.corsMiddleware)

	weatherAPI := NewWeatherAPI(d.Weather, d.Forecast, d.Drafts, d.WeatherLimiter, d.AuthMiddleware, s.logger)
	weatherAPI.RegisterRoutes(mux, s.corsMiddleware)

	reportAPI := NewReportAPI(d.Reports, d.AuthMiddleware, s.logger)
	reportAPI.RegisterRoutes(mux, s.corsMiddleware)

	if d.Blobs != nil {
		mux.Handle("/blobs/", http.StripPrefix("/blobs/", d.Blobs))
	}

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		// Submissions may upload for up to the submit timeout.
		WriteTimeout: 90 * time.Second,
	}

	s.logger.Info("HTTP API server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next(w, r)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func methodNotAllowed(w http.ResponseWriter) {
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}
