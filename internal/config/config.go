package config

import (
	"flag"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Cache      CacheConfig
	Database   DatabaseConfig
	Logging    LoggingConfig
	Auth       AuthConfig
	Storage    StorageConfig
	Weather    WeatherConfig
	Events     EventsConfig
	Moderation ModerationConfig
	Capture    CaptureConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	HTTPAddr       string
	WeatherLimit   time.Duration
	MaxUploadBytes int64
}

// CacheConfig holds cache configuration
type CacheConfig struct {
	Backend   string // "memory" or "redis"
	TTL       time.Duration
	RedisAddr string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// StorageConfig holds blob storage configuration. An empty Endpoint selects
// the in-memory store.
type StorageConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	UseSSL        bool
	PublicBaseURL string
	PresignExpiry time.Duration
	UploadPrefix  string
}

// WeatherConfig holds OpenWeather settings.
type WeatherConfig struct {
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
	GeocodeCacheTTL time.Duration
}

// EventsConfig holds Kafka publishing settings.
type EventsConfig struct {
	Enabled        bool
	Brokers        []string
	Topic          string
	PublishTimeout time.Duration
}

// ModerationConfig holds image moderation settings.
type ModerationConfig struct {
	Enabled          bool
	AWSRegion        string
	RejectConfidence float64
	Timeout          time.Duration
}

// CaptureConfig holds capture-session settings.
type CaptureConfig struct {
	TargetSize    int
	JPEGQuality   float64
	MaxPixels     int
	DraftTTL      time.Duration
	SubmitTimeout time.Duration
}

// Load parses flags and environment variables to build configuration
func Load() *Config {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cfg := &Config{}

	httpAddr := flag.String("http", ":8080", "HTTP server address")
	cacheTTL := flag.Duration("cache-ttl", 30*time.Minute, "TTL for cached sites and geocode results")
	cacheBackend := flag.String("cache-backend", "memory", "Cache backend: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	weatherLimit := flag.Duration("weather-limit", 2*time.Second, "Minimum delay between weather lookups per user")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	dbHost := flag.String("db-host", "localhost", "PostgreSQL host")
	dbPort := flag.Int("db-port", 5432, "PostgreSQL port")
	dbUser := flag.String("db-user", "postgres", "PostgreSQL user")
	dbPassword := flag.String("db-password", "postgres", "PostgreSQL password")
	dbName := flag.String("db-name", "fieldreport", "PostgreSQL database name")
	dbSSLMode := flag.String("db-sslmode", "disable", "PostgreSQL SSL mode")

	flag.Parse()

	applyEnvOverrides(httpAddr, cacheTTL, cacheBackend, redisAddr, weatherLimit, logLevel, dbHost, dbPort, dbUser, dbPassword, dbName, dbSSLMode)

	cfg.Server = ServerConfig{
		HTTPAddr:       *httpAddr,
		WeatherLimit:   *weatherLimit,
		MaxUploadBytes: parseInt64Env("MAX_UPLOAD_BYTES", 10*1024*1024),
	}

	cfg.Cache = CacheConfig{
		Backend:   *cacheBackend,
		TTL:       *cacheTTL,
		RedisAddr: *redisAddr,
	}

	cfg.Database = DatabaseConfig{
		Host:     *dbHost,
		Port:     *dbPort,
		User:     *dbUser,
		Password: *dbPassword,
		Database: *dbName,
		SSLMode:  *dbSSLMode,
	}

	cfg.Logging = LoggingConfig{
		Level: *logLevel,
	}

	cfg.Auth = loadAuthConfig()
	cfg.Storage = loadStorageConfig()
	cfg.Weather = loadWeatherConfig()
	cfg.Events = loadEventsConfig()
	cfg.Moderation = loadModerationConfig()
	cfg.Capture = loadCaptureConfig()

	return cfg
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:       getEnvOrDefault("AUTH_JWT_SECRET", "change-me-in-production"),
		JWTIssuer:       getEnvOrDefault("AUTH_JWT_ISSUER", "fieldreport"),
		JWTAudience:     getEnvOrDefault("AUTH_JWT_AUDIENCE", "fieldreport-users"),
		AccessTokenTTL:  parseDurationEnv("AUTH_ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL: parseDurationEnv("AUTH_REFRESH_TOKEN_TTL", 7*24*time.Hour),
	}
}

func loadStorageConfig() StorageConfig {
	return StorageConfig{
		Endpoint:      os.Getenv("STORAGE_ENDPOINT"),
		AccessKey:     getEnvOrDefault("STORAGE_ACCESS_KEY", "minioadmin"),
		SecretKey:     getEnvOrDefault("STORAGE_SECRET_KEY", "minioadmin"),
		Bucket:        getEnvOrDefault("STORAGE_BUCKET", "fieldreport"),
		Region:        getEnvOrDefault("STORAGE_REGION", "us-east-1"),
		UseSSL:        parseBoolEnv("STORAGE_USE_SSL", false),
		PublicBaseURL: os.Getenv("STORAGE_PUBLIC_BASE_URL"),
		PresignExpiry: parseDurationEnv("STORAGE_PRESIGN_EXPIRY", 7*24*time.Hour),
		UploadPrefix:  getEnvOrDefault("STORAGE_UPLOAD_PREFIX", "reports"),
	}
}

func loadWeatherConfig() WeatherConfig {
	return WeatherConfig{
		APIKey:          os.Getenv("OPENWEATHER_API_KEY"),
		BaseURL:         getEnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"),
		Timeout:         parseDurationEnv("OPENWEATHER_TIMEOUT", 10*time.Second),
		GeocodeCacheTTL: parseDurationEnv("GEOCODE_CACHE_TTL", 24*time.Hour),
	}
}

func loadEventsConfig() EventsConfig {
	var brokers []string
	for _, b := range strings.Split(os.Getenv("KAFKA_BROKERS"), ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}

	enabled := len(brokers) > 0
	if v := os.Getenv("EVENTS_ENABLED"); v != "" {
		enabled = v == "true" || v == "1"
	}

	return EventsConfig{
		Enabled:        enabled && len(brokers) > 0,
		Brokers:        brokers,
		Topic:          getEnvOrDefault("KAFKA_REPORTS_TOPIC", "field-reports"),
		PublishTimeout: parseDurationEnv("EVENTS_PUBLISH_TIMEOUT", 5*time.Second),
	}
}

func loadModerationConfig() ModerationConfig {
	rejectConfidence := 70.0
	if v := os.Getenv("MODERATION_REJECT_CONFIDENCE"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			rejectConfidence = parsed
		}
	}

	enabled := false
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("IMAGE_MODERATION_ENABLED"))); v == "true" || v == "1" {
		enabled = true
	}

	return ModerationConfig{
		Enabled:          enabled,
		AWSRegion:        os.Getenv("AWS_REGION"),
		RejectConfidence: rejectConfidence,
		Timeout:          parseDurationEnv("MODERATION_TIMEOUT", 5*time.Second),
	}
}

func loadCaptureConfig() CaptureConfig {
	size := 512
	if v := os.Getenv("CAPTURE_TARGET_SIZE"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			size = parsed
		}
	}

	quality := 0.8
	if v := os.Getenv("CAPTURE_JPEG_QUALITY"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 && parsed <= 1 {
			quality = parsed
		}
	}

	maxPixels := 50_000_000
	if v := os.Getenv("CAPTURE_MAX_PIXELS"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			maxPixels = parsed
		}
	}

	return CaptureConfig{
		TargetSize:    size,
		JPEGQuality:   quality,
		MaxPixels:     maxPixels,
		DraftTTL:      parseDurationEnv("DRAFT_TTL", 24*time.Hour),
		SubmitTimeout: parseDurationEnv("SUBMIT_TIMEOUT", 60*time.Second),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return defaultValue
}

func parseInt64Env(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func applyEnvOverrides(
	httpAddr *string,
	cacheTTL *time.Duration,
	cacheBackend *string,
	redisAddr *string,
	weatherLimit *time.Duration,
	logLevel *string,
	dbHost *string,
	dbPort *int,
	dbUser *string,
	dbPassword *string,
	dbName *string,
	dbSSLMode *string,
) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		*httpAddr = v
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*cacheTTL = d
		}
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		*cacheBackend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		*redisAddr = v
	}
	if v := os.Getenv("WEATHER_LIMIT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*weatherLimit = d
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		*logLevel = v
	}
	if v := os.Getenv("DB_HOST"); v != "" {
		*dbHost = v
	}
	if v := os.Getenv("DB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			*dbPort = p
		}
	}
	if v := os.Getenv("DB_USER"); v != "" {
		*dbUser = v
	}
	if v := os.Getenv("DB_PASSWORD"); v != "" {
		*dbPassword = v
	}
	if v := os.Getenv("DB_NAME"); v != "" {
		*dbName = v
	}
	if v := os.Getenv("DB_SSLMODE"); v != "" {
		*dbSSLMode = v
	}
}
