package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/johnrirwin/fieldreport/internal/auth"
	"github.com/johnrirwin/fieldreport/internal/blob"
	"github.com/johnrirwin/fieldreport/internal/cache"
	"github.com/johnrirwin/fieldreport/internal/config"
	"github.com/johnrirwin/fieldreport/internal/database"
	"github.com/johnrirwin/fieldreport/internal/drafts"
	"github.com/johnrirwin/fieldreport/internal/events"
	"github.com/johnrirwin/fieldreport/internal/httpapi"
	"github.com/johnrirwin/fieldreport/internal/images"
	"github.com/johnrirwin/fieldreport/internal/logging"
	"github.com/johnrirwin/fieldreport/internal/moderation"
	"github.com/johnrirwin/fieldreport/internal/observability"
	"github.com/johnrirwin/fieldreport/internal/ratelimit"
	"github.com/johnrirwin/fieldreport/internal/reports"
	"github.com/johnrirwin/fieldreport/internal/weather"
	"github.com/johnrirwin/fieldreport/internal/weather/openweather"
)

const redisPrefix = "fieldreport:"

// App holds all application dependencies
type App struct {
	Config         *config.Config
	Logger         *logging.Logger
	Clock          clockwork.Clock
	Metrics        *observability.Metrics
	Cache          cache.Cache
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	Drafts         *drafts.Manager
	Images         *images.Service
	Reports        *reports.Service
	Weather        *weather.Fetcher
	HTTPServer     *httpapi.Server

	db             *database.DB
	redis          *redis.Client
	blobs          blob.Store
	blobHandler    http.Handler
	events         events.Publisher
	weatherLimiter ratelimit.RateLimiter
	forecast       httpapi.ForecastProvider
	reportStore    reports.ReportStore
	siteStore      reports.SiteStore
	userRepo       auth.UserRepository
}

// New creates and initializes a new App instance. Every backing service
// that is unreachable degrades to its in-memory counterpart.
func New(cfg *config.Config) (*App, error) {
	app := &App{
		Config: cfg,
		Clock:  clockwork.NewRealClock(),
	}

	app.Logger = logging.New(logging.ParseLevel(cfg.Logging.Level))
	app.Metrics = observability.NewMetrics()

	ctx := context.Background()

	app.initCache()
	app.initDatabaseServices(ctx)
	app.initBlobStore(ctx)
	app.initEvents()
	app.initAuth()
	app.initDrafts()
	app.initImages(ctx)
	app.initReports()
	app.initWeather()
	app.initServers()

	return app, nil
}

// Run starts the HTTP server and blocks until it stops.
func (a *App) Run(ctx context.Context) error {
	a.Logger.Info("Starting HTTP server", logging.WithField("addr", a.Config.Server.HTTPAddr))

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.HTTPServer.Start(a.Config.Server.HTTPAddr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown gracefully shuts down the application
func (a *App) Shutdown(ctx context.Context) error {
	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	if a.events != nil {
		if err := a.events.Close(); err != nil {
			a.Logger.Error("Event publisher close error", logging.WithField("error", err.Error()))
		}
	}

	if closer, ok := a.Cache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			a.Logger.Error("Cache close error", logging.WithField("error", err.Error()))
		}
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.Logger.Error("Database close error", logging.WithField("error", err.Error()))
		}
	}

	return nil
}

func (a *App) initCache() {
	cfg := a.Config.Cache
	switch cfg.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", cfg.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:   cfg.RedisAddr,
			Prefix: redisPrefix + "cache:",
		}, cfg.TTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			a.Cache = cache.NewMemory(cfg.TTL)
			return
		}
		a.redis = redisCache.Client()
		a.Cache = redisCache
	default:
		a.Logger.Info("Using in-memory cache backend")
		a.Cache = cache.NewMemory(cfg.TTL)
	}
}

func (a *App) initDatabaseServices(ctx context.Context) {
	dbConfig := database.Config{
		Host:     a.Config.Database.Host,
		Port:     a.Config.Database.Port,
		User:     a.Config.Database.User,
		Password: a.Config.Database.Password,
		Database: a.Config.Database.Database,
		SSLMode:  a.Config.Database.SSLMode,
	}

	db, err := database.New(dbConfig)
	if err != nil {
		a.Logger.Warn("Failed to connect to PostgreSQL, using in-memory stores", logging.WithField("error", err.Error()))
		a.useMemoryStores()
		return
	}

	a.Logger.Info("Connected to PostgreSQL")
	if err := db.Migrate(ctx); err != nil {
		a.Logger.Warn("Failed to run migrations, using in-memory stores", logging.WithField("error", err.Error()))
		_ = db.Close()
		a.useMemoryStores()
		return
	}

	a.db = db
	a.userRepo = database.NewUserStore(db)
	a.siteStore = database.NewSiteStore(db)
	a.reportStore = database.NewReportStore(db)
}

func (a *App) useMemoryStores() {
	a.userRepo = auth.NewMemoryUserRepository()
	a.siteStore = reports.NewMemorySiteStore()
	a.reportStore = reports.NewMemoryReportStore()
}

func (a *App) initBlobStore(ctx context.Context) {
	cfg := a.Config.Storage
	if cfg.Endpoint != "" {
		store, err := blob.NewMinioStore(ctx, cfg)
		if err == nil {
			a.Logger.Info("Using MinIO blob store", logging.WithFields(map[string]interface{}{
				"endpoint": cfg.Endpoint,
				"bucket":   cfg.Bucket,
			}))
			a.blobs = store
			return
		}
		a.Logger.Warn("Failed to initialize MinIO, using in-memory blob store", logging.WithField("error", err.Error()))
	}

	baseURL := cfg.PublicBaseURL
	if baseURL == "" {
		baseURL = localBaseURL(a.Config.Server.HTTPAddr) + "/blobs"
	}
	store := blob.NewMemoryStore(baseURL)
	a.blobs = store
	a.blobHandler = store
	a.Logger.Info("Using in-memory blob store", logging.WithField("baseUrl", baseURL))
}

func localBaseURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		return "http://localhost" + addr
	}
	return "http://" + addr
}

func (a *App) initEvents() {
	cfg := a.Config.Events
	if !cfg.Enabled {
		a.events = events.Noop{}
		return
	}
	a.Logger.Info("Publishing report events to Kafka", logging.WithFields(map[string]interface{}{
		"brokers": strings.Join(cfg.Brokers, ","),
		"topic":   cfg.Topic,
	}))
	a.events = events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
}

func (a *App) initAuth() {
	a.AuthService = auth.NewServiceWithClock(a.userRepo, a.Config.Auth, a.Clock, a.Logger)
	a.AuthMiddleware = auth.NewMiddleware(a.AuthService)
	a.Logger.Info("Authentication service initialized")
}

func (a *App) initDrafts() {
	ttl := a.Config.Capture.DraftTTL

	var store drafts.Store
	if a.redis != nil {
		store = drafts.NewRedisStoreWithPrefix(a.redis, ttl, redisPrefix+"draft:")
	} else {
		store = drafts.NewInMemoryStore(ttl)
	}
	a.Drafts = drafts.NewManager(store, a.Clock)
}

func (a *App) initImages(ctx context.Context) {
	// Declared as the interface so a disabled moderator stays a true nil.
	var moderator images.Moderator
	svc, err := moderation.NewFromConfig(ctx, a.Config.Moderation)
	switch {
	case err != nil:
		a.Logger.Warn("Image moderation unavailable, approving all images", logging.WithField("error", err.Error()))
	case svc != nil:
		moderator = svc
		a.Logger.Info("Image moderation enabled", logging.WithField("region", a.Config.Moderation.AWSRegion))
	}

	a.Images = images.NewService(moderator, a.Drafts, a.Config.Moderation.Timeout, a.Logger).
		WithCaptureDefaults(a.Config.Capture.TargetSize, a.Config.Capture.JPEGQuality).
		WithMaxPixels(a.Config.Capture.MaxPixels)
}

func (a *App) initReports() {
	a.Reports = reports.NewService(reports.Deps{
		Reports: a.reportStore,
		Sites:   a.siteStore,
		Blobs:   a.blobs,
		Drafts:  a.Drafts,
		Cache:   a.Cache,
		Events:  a.events,
		Metrics: a.Metrics,
		Clock:   a.Clock,
		Logger:  a.Logger,
	}, reports.Options{
		UploadPrefix:   a.Config.Storage.UploadPrefix,
		SiteCacheTTL:   a.Config.Cache.TTL,
		SubmitTimeout:  a.Config.Capture.SubmitTimeout,
		PublishTimeout: a.Config.Events.PublishTimeout,
	})
}

func (a *App) initWeather() {
	cfg := a.Config.Weather
	if cfg.APIKey == "" {
		a.Logger.Warn("OPENWEATHER_API_KEY not set, weather lookups will fail upstream")
	}

	client := openweather.NewClient(openweather.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Timeout: cfg.Timeout,
	})
	geocoder := openweather.NewCachedGeocoder(client, a.Cache, cfg.GeocodeCacheTTL, a.Metrics, a.Logger)

	a.Weather = weather.NewFetcher(client, geocoder, a.Clock, a.Metrics, a.Logger)
	a.forecast = client

	if a.redis != nil {
		a.weatherLimiter = ratelimit.NewRedis(a.redis, a.Config.Server.WeatherLimit, redisPrefix+"ratelimit:weather:")
	} else {
		a.weatherLimiter = ratelimit.New(a.Config.Server.WeatherLimit)
	}
}

func (a *App) initServers() {
	a.HTTPServer = httpapi.New(httpapi.Deps{
		Auth:           a.AuthService,
		AuthMiddleware: a.AuthMiddleware,
		Drafts:         a.Drafts,
		Images:         a.Images,
		Reports:        a.Reports,
		Weather:        a.Weather,
		Forecast:       a.forecast,
		WeatherLimiter: a.weatherLimiter,
		Metrics:        a.Metrics,
		Blobs:          a.blobHandler,
		MaxUploadBytes: a.Config.Server.MaxUploadBytes,
	}, a.Logger)
}
