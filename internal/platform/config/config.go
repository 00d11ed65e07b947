// Package config loads service configuration from the environment (and an
// optional .env file), the same viper+godotenv shape the rest of the
// gogotex backend uses for its services.
package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/gogotex/submission-compile/internal/platform/logger"
)

// Config holds application configuration for the submission-compile service.
type Config struct {
	Server     ServerConfig
	Compile    CompileConfig
	Storage    StorageConfig
	Scorecard  ScorecardConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Watermark  WatermarkConfig
	Auth       AuthConfig
	Outcome    OutcomeStoreConfig
}

// OutcomeStoreConfig governs durable persistence of outcome metadata (§6).
// An empty MongoURI falls back to an in-memory store, fine for a single
// instance or local development.
type OutcomeStoreConfig struct {
	MongoURI string
	Database string
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// CompileConfig governs the compilation driver's per-request budget and
// engine-iteration bound (§4.6, §5 of the specification).
type CompileConfig struct {
	MaxTimeBudget         time.Duration
	MaxLatexRuns          int
	MaxConcurrentRequests int
	TexliveRoot           string
	ResolverScriptPath    string
	AddonTreeRoot         string
}

type StorageConfig struct {
	Backend   string // "minio" | "supabase" | "memory"
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// Supabase-specific
	ProjectURL string
	ServiceKey string
}

type ScorecardConfig struct {
	DBPath string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// RateLimitConfig controls the per-request-IP/subject rate limiter guarding
// /convert/ and /stamp/.
type RateLimitConfig struct {
	Enabled       bool
	RPS           float64
	Burst         int
	UseRedis      bool
	WindowSeconds int
}

type WatermarkConfig struct {
	DefaultText string
	DefaultLink string
}

// AuthConfig governs the optional bearer-token guard on the conversion
// endpoints. Disabled by default: most deployments of this service sit
// behind an internal network boundary.
type AuthConfig struct {
	Enabled      bool
	OIDCIssuer   string
	OIDCClientID string
	JWTSecret    string
}

// Load reads configuration from the environment and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")

	viper.SetDefault("MAX_TIME_BUDGET_SECONDS", 300)
	viper.SetDefault("MAX_LATEX_RUNS", 5)
	viper.SetDefault("MAX_CONCURRENT_REQUESTS", 4)

	viper.SetDefault("STORAGE_BACKEND", "memory")
	viper.SetDefault("STORAGE_BUCKET", "submission-outcomes")
	viper.SetDefault("MINIO_USE_SSL", false)

	viper.SetDefault("SCORECARD_DB_PATH", "./scorecard.db")

	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 5)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_USE_REDIS", false)
	viper.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 1)

	viper.SetDefault("OUTCOME_MONGODB_DATABASE", "submission_compile")

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 60 * time.Second,
		},
		Compile: CompileConfig{
			MaxTimeBudget:         time.Duration(viper.GetInt("MAX_TIME_BUDGET_SECONDS")) * time.Second,
			MaxLatexRuns:          viper.GetInt("MAX_LATEX_RUNS"),
			MaxConcurrentRequests: viper.GetInt("MAX_CONCURRENT_REQUESTS"),
			TexliveRoot:           viper.GetString("TEXLIVE_ROOT"),
			ResolverScriptPath:    viper.GetString("KPSEWHICH_RESOLVER_PATH"),
			AddonTreeRoot:         viper.GetString("TEXMF_ADDON_TREE"),
		},
		Storage: StorageConfig{
			Backend:    viper.GetString("STORAGE_BACKEND"),
			Endpoint:   viper.GetString("MINIO_ENDPOINT"),
			AccessKey:  viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey:  viper.GetString("MINIO_SECRET_KEY"),
			UseSSL:     viper.GetBool("MINIO_USE_SSL"),
			Bucket:     viper.GetString("STORAGE_BUCKET"),
			ProjectURL: viper.GetString("SUPABASE_PROJECT_URL"),
			ServiceKey: viper.GetString("SUPABASE_SERVICE_KEY"),
		},
		Scorecard: ScorecardConfig{
			DBPath: viper.GetString("SCORECARD_DB_PATH"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       0,
		},
		RateLimit: RateLimitConfig{
			Enabled:       viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:           viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:         viper.GetInt("RATE_LIMIT_BURST"),
			UseRedis:      viper.GetBool("RATE_LIMIT_USE_REDIS"),
			WindowSeconds: viper.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Watermark: WatermarkConfig{
			DefaultText: viper.GetString("WATERMARK_DEFAULT_TEXT"),
			DefaultLink: viper.GetString("WATERMARK_DEFAULT_LINK"),
		},
		Auth: AuthConfig{
			Enabled:      viper.GetBool("AUTH_ENABLED"),
			OIDCIssuer:   viper.GetString("OIDC_ISSUER"),
			OIDCClientID: viper.GetString("OIDC_CLIENT_ID"),
			JWTSecret:    os.Getenv("JWT_SECRET"),
		},
		Outcome: OutcomeStoreConfig{
			MongoURI: viper.GetString("OUTCOME_MONGODB_URI"),
			Database: viper.GetString("OUTCOME_MONGODB_DATABASE"),
		},
	}

	if cfg.Auth.Enabled && cfg.Auth.JWTSecret == "" && cfg.Auth.OIDCIssuer == "" {
		logger.Warnf("AUTH_ENABLED is set but neither JWT_SECRET nor OIDC_ISSUER is configured")
	}

	return cfg, nil
}
