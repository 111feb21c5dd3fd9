package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Session store backends.
const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Hijack policy presets.
const (
	HijackLenient = "lenient"
	HijackStrict  = "strict"
	HijackCustom  = "custom"
)

// Config holds all configuration for the auth module.
type Config struct {
	// Session store
	SessionStore string `env:"SESSION_STORE" envDefault:"mongo"`
	MongoDBURI   string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017"`
	DatabaseName string `env:"DATABASE_NAME" envDefault:"secure_auth"`
	PostgresURL  string `env:"POSTGRES_URL"`

	// JWT
	JWTSecretKey string        `env:"JWT_SECRET_KEY,required"`
	JWTIssuer    string        `env:"JWT_ISSUER" envDefault:"secure-auth"`
	TokenTTL     time.Duration `env:"TOKEN_TTL" envDefault:"168h"`

	// Session lifecycle
	SessionTTL            time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	MaxConcurrentSessions int           `env:"MAX_CONCURRENT_SESSIONS" envDefault:"5"`
	HistoryLimit          int           `env:"HISTORY_LIMIT" envDefault:"50"`
	RecordRetention       time.Duration `env:"SESSION_RECORD_RETENTION" envDefault:"0s"`
	PurgeInterval         time.Duration `env:"SESSION_PURGE_INTERVAL" envDefault:"1h"`

	// Hijack detection
	HijackPolicy     string `env:"HIJACK_POLICY" envDefault:"lenient"`
	HijackExpression string `env:"HIJACK_EXPRESSION"`

	// Geolocation
	GeoEnabled  bool          `env:"GEO_ENABLED" envDefault:"false"`
	GeoBaseURL  string        `env:"GEO_BASE_URL" envDefault:"http://ip-api.com"`
	GeoTimeout  time.Duration `env:"GEO_TIMEOUT" envDefault:"1500ms"`
	GeoCacheTTL time.Duration `env:"GEO_CACHE_TTL" envDefault:"24h"`

	// Redis, used for the geolocation cache when RedisAddr is set
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	RedisTLS      bool   `env:"REDIS_TLS" envDefault:"false"`

	// HTTP
	TrustProxyHeaders bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
	BcryptCost        int           `env:"BCRYPT_COST" envDefault:"10"`
	CORSAllowOrigins  string        `env:"CORS_ALLOW_ORIGINS" envDefault:"*"`
	LoginRateLimit    int           `env:"LOGIN_RATE_LIMIT" envDefault:"20"`
	LoginRateWindow   time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"15m"`

	// Logging
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT" envDefault:"text"`
	LogBackend string `env:"LOG_BACKEND" envDefault:"logrus"`
}

// LoadConfig loads configuration from environment variables and validates it.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate normalizes enum-like fields and rejects inconsistent settings.
func (c *Config) Validate() error {
	c.SessionStore = strings.ToLower(strings.TrimSpace(c.SessionStore))
	c.HijackPolicy = strings.ToLower(strings.TrimSpace(c.HijackPolicy))

	if c.JWTSecretKey == "" {
		return errors.New("jwt_secret_key is required")
	}
	if c.JWTIssuer == "" {
		return errors.New("jwt_issuer cannot be empty")
	}
	if c.TokenTTL <= 0 {
		return errors.New("token_ttl must be positive")
	}
	if c.SessionTTL <= 0 {
		return errors.New("session_ttl must be positive")
	}
	if c.MaxConcurrentSessions < 1 {
		return errors.New("max_concurrent_sessions must be at least 1")
	}
	if c.HistoryLimit < 1 {
		return errors.New("history_limit must be at least 1")
	}
	if c.LoginRateLimit < 1 || c.LoginRateWindow <= 0 {
		return errors.New("login rate limit and window must be positive")
	}
	if c.RecordRetention < 0 {
		return errors.New("session_record_retention cannot be negative")
	}

	switch c.SessionStore {
	case StoreMongo:
		if c.MongoDBURI == "" {
			return errors.New("mongodb_uri is required for the mongo session store")
		}
	case StorePostgres:
		if c.PostgresURL == "" {
			return errors.New("postgres_url is required for the postgres session store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown session_store %q", c.SessionStore)
	}

	switch c.HijackPolicy {
	case HijackLenient, HijackStrict:
	case HijackCustom:
		if strings.TrimSpace(c.HijackExpression) == "" {
			return errors.New("hijack_expression is required when hijack_policy is custom")
		}
	default:
		return fmt.Errorf("unknown hijack_policy %q", c.HijackPolicy)
	}

	if c.GeoEnabled {
		if c.GeoBaseURL == "" {
			return errors.New("geo_base_url is required when geolocation is enabled")
		}
		if c.GeoTimeout <= 0 {
			return errors.New("geo_timeout must be positive")
		}
	}
	return nil
}

// Policy returns the immutable session policy derived from c.
func (c *Config) Policy() SessionPolicy {
	return SessionPolicy{
		maxConcurrent: c.MaxConcurrentSessions,
		sessionTTL:    c.SessionTTL,
		historyLimit:  c.HistoryLimit,
		hijackMode:    c.HijackPolicy,
		hijackExpr:    c.HijackExpression,
		geoTimeout:    c.GeoTimeout,
	}
}
