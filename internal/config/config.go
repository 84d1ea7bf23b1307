package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_PORT"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
// `required:"true"` makes an environment variable mandatory.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // e.g., development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`      // e.g., debug, info, warn, error
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Upstream   UpstreamConfig
	Cache      CacheConfig
	Session    SessionConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	RateLimit  RateLimitConfig
	Format     FormatConfig
	LayoutFile string `envconfig:"LAYOUT_FILE"` // Empty means the embedded default home layout
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"15s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
// Only the health and reflection services are exposed on this port.
type GrpcServerConfig struct {
	Port string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
}

// UpstreamConfig describes the marketplace REST API this storefront fronts.
type UpstreamConfig struct {
	BaseURL   string        `envconfig:"UPSTREAM_BASE_URL" required:"true"`
	Timeout   time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"30s"`
	LoginPath string        `envconfig:"LOGIN_PATH" default:"/login"`
}

// CacheConfig holds staleness windows for the per-session query cache.
type CacheConfig struct {
	StaleTime         time.Duration `envconfig:"CACHE_STALE_TIME" default:"60s"`
	WishlistStaleTime time.Duration `envconfig:"CACHE_WISHLIST_STALE_TIME" default:"10m"`
	Retry             int           `envconfig:"CACHE_RETRY" default:"3"`
}

// SessionConfig controls browser sessions and their workspaces.
type SessionConfig struct {
	Backend       string        `envconfig:"SESSION_BACKEND" default:"memory"` // memory, postgres or redis
	CookieName    string        `envconfig:"SESSION_COOKIE_NAME" default:"storefront_sid"`
	CookieSecure  bool          `envconfig:"SESSION_COOKIE_SECURE" default:"false"`
	IdleTTL       time.Duration `envconfig:"SESSION_IDLE_TTL" default:"30m"`
	MaxWorkspaces int           `envconfig:"SESSION_MAX_WORKSPACES" default:"10000"`
}

// PostgresConfig holds PostgreSQL connection details for the postgres session backend.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	DBName   string `envconfig:"POSTGRES_DBNAME"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName)
}

// RedisConfig holds the Redis URL for the redis session backend.
type RedisConfig struct {
	URL string `envconfig:"REDIS_URL" default:"redis://localhost:6379"`
}

// RateLimitConfig bounds requests per client key on the HTTP surface.
type RateLimitConfig struct {
	RequestsPerSecond int `envconfig:"RATE_LIMIT_RPS" default:"20"`
	Burst             int `envconfig:"RATE_LIMIT_BURST" default:"40"`
}

// FormatConfig holds display settings for prices and images.
type FormatConfig struct {
	Locale           string `envconfig:"FORMAT_LOCALE" default:"en-IN"`
	CurrencySymbol   string `envconfig:"FORMAT_CURRENCY_SYMBOL" default:"₹"`
	UploadPrefix     string `envconfig:"FORMAT_UPLOAD_PREFIX" default:"/uploads"`
	PlaceholderImage string `envconfig:"FORMAT_PLACEHOLDER_IMAGE" default:"/images/placeholder.png"`
}

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logrus.WithField("app_env", cfg.AppEnv).Debug("Configuration loaded successfully")
	return &cfg, nil
}

func (c *Config) validate() error {
	switch strings.ToLower(c.Session.Backend) {
	case "memory", "redis":
	case "postgres":
		if c.Postgres.User == "" || c.Postgres.DBName == "" {
			return fmt.Errorf("config: SESSION_BACKEND=postgres requires POSTGRES_USER and POSTGRES_DBNAME")
		}
	default:
		return fmt.Errorf("config: unknown SESSION_BACKEND %q", c.Session.Backend)
	}
	if !strings.HasPrefix(c.Upstream.BaseURL, "http://") && !strings.HasPrefix(c.Upstream.BaseURL, "https://") {
		return fmt.Errorf("config: UPSTREAM_BASE_URL must be an absolute http(s) URL")
	}
	if c.Cache.StaleTime < 0 || c.Cache.WishlistStaleTime < 0 {
		return fmt.Errorf("config: cache stale times must not be negative")
	}
	return nil
}

// IsDevelopment reports whether the service runs with APP_ENV=development.
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(c.AppEnv, "development")
}
