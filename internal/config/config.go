package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Store         StoreConfig
	Identity      IdentityConfig
	Retry         RetryConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// StoreConfig selects the record store backend
type StoreConfig struct {
	Backend string // postgres, memory
}

// IdentityConfig configures credential verification and tenant derivation.
// The identity provider is external; only its verification material and the
// claim layout are configured here.
type IdentityConfig struct {
	Issuer        string
	Audience      string
	JWTSecret     string // HS256 shared secret; RS256 uses PublicKeyFile
	PublicKeyFile string
	TenantClaim   string
	RoleClaim     string
	CookieName    string

	// TenantPolicy selects how the tenant id is derived from verified
	// claims: "claim" (default) or "email_domain".
	TenantPolicy string
	// DomainMap maps email domains to tenant ids for the email_domain
	// policy, e.g. "acme.pt=acme,globex.com=globex".
	DomainMap map[string]string
}

// RetryConfig bounds repository retries of transient store failures
type RetryConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "vendasol"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "vendasol"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Store: StoreConfig{
			Backend: getEnv("STORE_BACKEND", "postgres"),
		},
		Identity: IdentityConfig{
			Issuer:        getEnv("IDENTITY_ISSUER", ""),
			Audience:      getEnv("IDENTITY_AUDIENCE", "vendasol"),
			JWTSecret:     getEnv("IDENTITY_JWT_SECRET", ""),
			PublicKeyFile: getEnv("IDENTITY_PUBLIC_KEY_FILE", ""),
			TenantClaim:   getEnv("IDENTITY_TENANT_CLAIM", "tenant"),
			RoleClaim:     getEnv("IDENTITY_ROLE_CLAIM", "role"),
			CookieName:    getEnv("IDENTITY_COOKIE_NAME", "vendasol_session"),
			TenantPolicy:  getEnv("IDENTITY_TENANT_POLICY", "claim"),
			DomainMap:     parseMap("IDENTITY_DOMAIN_MAP"),
		},
		Retry: RetryConfig{
			MaxRetries:      parseInt("STORE_RETRY_MAX", 3),
			InitialInterval: parseDuration("STORE_RETRY_INITIAL_INTERVAL", "50ms"),
			MaxInterval:     parseDuration("STORE_RETRY_MAX_INTERVAL", "1s"),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "vendasol"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: float64(parseInt("RATELIMIT_RPS", 10)),
			Burst:             parseInt("RATELIMIT_BURST", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Identity.JWTSecret == "" && c.Identity.PublicKeyFile == "" {
		return fmt.Errorf("IDENTITY_JWT_SECRET or IDENTITY_PUBLIC_KEY_FILE is required")
	}
	if c.Identity.JWTSecret != "" && c.Identity.PublicKeyFile != "" {
		return fmt.Errorf("IDENTITY_JWT_SECRET and IDENTITY_PUBLIC_KEY_FILE are mutually exclusive")
	}
	switch c.Identity.TenantPolicy {
	case "claim":
	case "email_domain":
		if len(c.Identity.DomainMap) == 0 {
			return fmt.Errorf("IDENTITY_DOMAIN_MAP is required for the email_domain policy")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_TENANT_POLICY %q", c.Identity.TenantPolicy)
	}
	switch c.Store.Backend {
	case "postgres":
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for the postgres backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.Store.Backend)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		// Fallback to default
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}

// parseMap reads "k1=v1,k2=v2" pairs; malformed entries are skipped.
func parseMap(key string) map[string]string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
