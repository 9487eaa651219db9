package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	CORS        CORSConfig
	Log         LogConfig
	ReportCards ReportCardsConfig
	Eligibility EligibilityConfig
	Sharing     SharingConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ReportCardsConfig tunes the batch generation pipeline.
type ReportCardsConfig struct {
	StorageDir        string
	SignedURLSecret   string
	SignedURLTTL      time.Duration
	ResultTTL         time.Duration
	CleanupInterval   time.Duration
	WorkerConcurrency int
	WorkerRetries     int
	RenderDPI         int
	DefaultVariant    string
}

// EligibilityConfig governs roster fact caching.
type EligibilityConfig struct {
	CacheTTL time.Duration
}

// SharingConfig governs public share link issuance.
type SharingConfig struct {
	PublicBaseURL    string
	DefaultExpiryHrs int
	MaxBulkSelection int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.ReportCards = ReportCardsConfig{
		StorageDir:        v.GetString("REPORTCARDS_STORAGE_DIR"),
		SignedURLSecret:   v.GetString("REPORTCARDS_SIGNED_URL_SECRET"),
		SignedURLTTL:      parseDuration(v.GetString("REPORTCARDS_SIGNED_URL_TTL"), 24*time.Hour),
		ResultTTL:         parseDuration(v.GetString("REPORTCARDS_RESULT_TTL"), 48*time.Hour),
		CleanupInterval:   parseDuration(v.GetString("REPORTCARDS_CLEANUP_INTERVAL"), time.Hour),
		WorkerConcurrency: v.GetInt("REPORTCARDS_WORKER_CONCURRENCY"),
		WorkerRetries:     v.GetInt("REPORTCARDS_WORKER_RETRIES"),
		RenderDPI:         v.GetInt("REPORTCARDS_RENDER_DPI"),
		DefaultVariant:    v.GetString("REPORTCARDS_DEFAULT_VARIANT"),
	}

	cfg.Eligibility = EligibilityConfig{
		CacheTTL: parseDuration(v.GetString("ELIGIBILITY_CACHE_TTL"), 10*time.Minute),
	}

	cfg.Sharing = SharingConfig{
		PublicBaseURL:    v.GetString("SHARE_PUBLIC_BASE_URL"),
		DefaultExpiryHrs: v.GetInt("SHARE_DEFAULT_EXPIRY_HOURS"),
		MaxBulkSelection: v.GetInt("SHARE_MAX_BULK_SELECTION"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "reportcards")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("REPORTCARDS_STORAGE_DIR", "./artifacts")
	v.SetDefault("REPORTCARDS_SIGNED_URL_SECRET", "dev_reportcards_secret")
	v.SetDefault("REPORTCARDS_SIGNED_URL_TTL", "24h")
	v.SetDefault("REPORTCARDS_RESULT_TTL", "48h")
	v.SetDefault("REPORTCARDS_CLEANUP_INTERVAL", "1h")
	v.SetDefault("REPORTCARDS_WORKER_CONCURRENCY", 1)
	v.SetDefault("REPORTCARDS_WORKER_RETRIES", 2)
	v.SetDefault("REPORTCARDS_RENDER_DPI", 96)
	v.SetDefault("REPORTCARDS_DEFAULT_VARIANT", "classic")

	v.SetDefault("ELIGIBILITY_CACHE_TTL", "10m")

	v.SetDefault("SHARE_PUBLIC_BASE_URL", "http://localhost:8080")
	v.SetDefault("SHARE_DEFAULT_EXPIRY_HOURS", 72)
	v.SetDefault("SHARE_MAX_BULK_SELECTION", 200)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
