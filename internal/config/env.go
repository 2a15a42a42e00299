package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

const Production = "production"

type DatabaseOptions struct {
	Host     string `env:"DB_HOST" envDefault:"127.0.0.1"`
	Port     string `env:"DB_PORT" envDefault:"3306"`
	User     string `env:"DB_USER" envDefault:"root"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME" envDefault:"crms_admin"`
}

type SessionOptions struct {
	Secret       string        `env:"SESSION_SECRET"`
	TTL          time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	Cookie       string        `env:"SESSION_COOKIE" envDefault:"crms_session"`
	CookieSecure bool          `env:"SESSION_COOKIE_SECURE" envDefault:"false"`
	// Backend access tokens stay server-side, keyed by the session id.
	Store    string `env:"SESSION_STORE" envDefault:"memory"` // memory or redis
	RedisURL string `env:"SESSION_REDIS_URL"`
}

func (s SessionOptions) Validate() error {
	if s.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if s.Store != "memory" && s.Store != "redis" {
		return fmt.Errorf("session store must be 'memory' or 'redis', got '%s'", s.Store)
	}
	if s.Store == "redis" && s.RedisURL == "" {
		return fmt.Errorf("SESSION_REDIS_URL is required when SESSION_STORE is 'redis'")
	}
	return nil
}

type AuthOptions struct {
	Mode string `env:"AUTH_MODE" envDefault:"backend"` // backend or local
	// Local mode signs in a single administrator against a bcrypt hash.
	LocalUsername     string   `env:"LOCAL_ADMIN_USERNAME" envDefault:"admin"`
	LocalPasswordHash string   `env:"LOCAL_ADMIN_PASSWORD_HASH"`
	LocalPermissions  []string `env:"LOCAL_ADMIN_PERMISSIONS" envSeparator:"," envDefault:"user-management"`
	// Bearer token attached to backend calls made by the local administrator.
	LocalBackendToken string `env:"LOCAL_ADMIN_BACKEND_TOKEN"`
	// Permissions granting access to /api/user-management. Empty disables the check.
	UserManagementPermissions []string `env:"USER_MANAGEMENT_PERMISSIONS" envSeparator:","`
}

type RateLimitOptions struct {
	Enabled  bool   `env:"RATE_LIMIT_ENABLED" envDefault:"true"`
	Login    string `env:"RATE_LIMIT_LOGIN" envDefault:"10-M"`
	Storage  string `env:"RATE_LIMIT_STORAGE" envDefault:"memory"` // memory or redis
	RedisURL string `env:"RATE_LIMIT_REDIS_URL"`
}

func (r RateLimitOptions) Validate() error {
	if r.Storage != "memory" && r.Storage != "redis" {
		return fmt.Errorf("rate limit storage must be 'memory' or 'redis', got '%s'", r.Storage)
	}
	if r.Storage == "redis" && r.RedisURL == "" {
		return fmt.Errorf("rate limit redis url is required when storage is 'redis'")
	}
	return nil
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/metrics"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	Endpoint    string `env:"OTEL_ENDPOINT" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"crms-frontend"`
}

type Env struct {
	Database      DatabaseOptions
	Session       SessionOptions
	Auth          AuthOptions
	RateLimit     RateLimitOptions
	Prometheus    PrometheusOptions
	OpenTelemetry OpenTelemetryOptions

	AppAddr         string        `env:"APP_ADDR" envDefault:":8080"`
	GinMode         string        `env:"GIN_MODE"`
	GoAppEnv        string        `env:"GO_APP_ENV" envDefault:"development"`
	BackendBaseURL  string        `env:"BACKEND_API_BASE_URL" envDefault:"http://localhost:8081/api"`
	BackendTimeout  time.Duration `env:"BACKEND_TIMEOUT" envDefault:"15s"`
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT" envDefault:"text"`
	RequestIDHeader string        `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	PageSize        int           `env:"PAGE_SIZE" envDefault:"10"`
	MaxPageSize     int           `env:"MAX_PAGE_SIZE" envDefault:"100"`
	BulkDeleteMax   int           `env:"BULK_DELETE_MAX" envDefault:"50"`
	ExportMaxRows   int           `env:"EXPORT_MAX_ROWS" envDefault:"5000"`
	AuditEnabled    bool          `env:"AUDIT_ENABLED" envDefault:"false"`
}

// LoadEnvFiles loads the dotenv files that exist; missing ones are skipped.
func LoadEnvFiles(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// LoadEnv reads .env/.env.local and the process environment.
func LoadEnv() (Env, error) {
	if _, err := LoadEnvFiles(".env", ".env.local"); err != nil {
		return Env{}, errors.Wrap(err, "load env files")
	}
	return ParseEnv(env.Options{})
}

// ParseEnv parses the configuration with explicit options (tests pass Environment).
func ParseEnv(opts env.Options) (Env, error) {
	var cfg Env
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Env{}, errors.Wrap(err, "parse env")
	}
	cfg.BackendBaseURL = strings.TrimRight(strings.TrimSpace(cfg.BackendBaseURL), "/")
	if err := cfg.Validate(); err != nil {
		return Env{}, err
	}
	return cfg, nil
}

func (e Env) IsProduction() bool {
	return e.GoAppEnv == Production
}

// Validate rejects inconsistent settings.
func (e Env) Validate() error {
	if e.BackendBaseURL == "" {
		return errors.New("BACKEND_API_BASE_URL is required")
	}
	if e.PageSize <= 0 || e.MaxPageSize <= 0 {
		return fmt.Errorf("page sizes must be positive, got PAGE_SIZE=%d MAX_PAGE_SIZE=%d", e.PageSize, e.MaxPageSize)
	}
	if e.PageSize > e.MaxPageSize {
		return fmt.Errorf("PAGE_SIZE %d exceeds MAX_PAGE_SIZE %d", e.PageSize, e.MaxPageSize)
	}
	if e.BulkDeleteMax <= 0 {
		return fmt.Errorf("BULK_DELETE_MAX must be positive, got %d", e.BulkDeleteMax)
	}
	if e.ExportMaxRows <= 0 {
		return fmt.Errorf("EXPORT_MAX_ROWS must be positive, got %d", e.ExportMaxRows)
	}
	if e.IsProduction() && strings.TrimSpace(e.Session.Secret) == "" {
		return errors.New("SESSION_SECRET is required in production")
	}
	if err := e.Session.Validate(); err != nil {
		return err
	}
	switch e.Auth.Mode {
	case "backend":
	case "local":
		if strings.TrimSpace(e.Auth.LocalPasswordHash) == "" {
			return errors.New("LOCAL_ADMIN_PASSWORD_HASH is required when AUTH_MODE is 'local'")
		}
		if strings.TrimSpace(e.Auth.LocalBackendToken) == "" {
			return errors.New("LOCAL_ADMIN_BACKEND_TOKEN is required when AUTH_MODE is 'local'")
		}
	default:
		return fmt.Errorf("AUTH_MODE must be 'backend' or 'local', got '%s'", e.Auth.Mode)
	}
	if e.LogFormat != "text" && e.LogFormat != "json" {
		return fmt.Errorf("LOG_FORMAT must be 'text' or 'json', got '%s'", e.LogFormat)
	}
	return e.RateLimit.Validate()
}

// SessionSecret falls back to a fixed development key outside production.
func (e Env) SessionSecret() []byte {
	if s := strings.TrimSpace(e.Session.Secret); s != "" {
		return []byte(s)
	}
	return []byte("crms-development-secret")
}
