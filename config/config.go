package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// minProductionSecretLength is the shortest HS256 secret accepted in production
const minProductionSecretLength = 32

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	AuditDatabase *DatabaseConfig // Optional: separate DB for audit logs. When nil, audit uses main DB.
	Auth          AuthConfig
	PolicyCache   PolicyCacheConfig
	Audit         AuditConfig
	Booking       BookingConfig
	CORS          CORSConfig
	Observability ObservabilityConfig
	Environment   string
	Version       string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	TLS             struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
	InitSchema       bool
}

// AuthConfig holds bearer token settings. Tokens are HS256 signed with Secret.
type AuthConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TokenTTL time.Duration
	// DevTokens enables the token issuing endpoint. Never enabled in production.
	DevTokens bool
}

// PolicyCacheConfig sizes the active-policy cache
type PolicyCacheConfig struct {
	MaxSize         int
	TTL             time.Duration
	CleanupInterval time.Duration
}

// AuditConfig sizes the asynchronous audit writer
type AuditConfig struct {
	BufferSize   int
	Workers      int
	WriteTimeout time.Duration
}

// BookingConfig holds booking defaults
type BookingConfig struct {
	DefaultCurrency string
}

// CORSConfig lists the browser origins allowed to call the API
type CORSConfig struct {
	AllowedOrigins []string
	MaxAge         int
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string // json or console
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	// .env is optional; real environment variables win
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Version:     getEnv("APP_VERSION", "dev"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			TLS: struct {
				Enabled  bool
				CertFile string
				KeyFile  string
			}{
				Enabled:  getEnvAsBool("TLS_ENABLED", false),
				CertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
				KeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),
			},
		},
		Database:      loadDatabaseConfig(),
		AuditDatabase: loadAuditDatabaseConfig(),
		Auth: AuthConfig{
			Secret:    getEnv("JWT_SECRET", ""),
			Issuer:    getEnv("JWT_ISSUER", "travel-control-plane"),
			Audience:  getEnv("JWT_AUDIENCE", "travel-api"),
			TokenTTL:  getEnvAsDuration("JWT_TTL", 12*time.Hour),
			DevTokens: getEnvAsBool("AUTH_DEV_TOKENS", false),
		},
		PolicyCache: PolicyCacheConfig{
			MaxSize:         getEnvAsInt("POLICY_CACHE_SIZE", 1000),
			TTL:             getEnvAsDuration("POLICY_CACHE_TTL", 5*time.Minute),
			CleanupInterval: getEnvAsDuration("POLICY_CACHE_CLEANUP_INTERVAL", time.Minute),
		},
		Audit: AuditConfig{
			BufferSize:   getEnvAsInt("AUDIT_BUFFER_SIZE", 10000),
			Workers:      getEnvAsInt("AUDIT_WORKERS", 5),
			WriteTimeout: getEnvAsDuration("AUDIT_WRITE_TIMEOUT", 5*time.Second),
		},
		Booking: BookingConfig{
			DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", "USD")),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
			MaxAge:         getEnvAsInt("CORS_MAX_AGE", 300),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	// Database validation (DATABASE_URL or DB_* vars)
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.Auth.Secret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive")
	}
	if c.IsProduction() {
		if len(c.Auth.Secret) < minProductionSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d bytes in production", minProductionSecretLength)
		}
		if c.Auth.DevTokens {
			return fmt.Errorf("AUTH_DEV_TOKENS cannot be enabled in production")
		}
	}

	if c.PolicyCache.MaxSize <= 0 {
		return fmt.Errorf("POLICY_CACHE_SIZE must be positive")
	}
	if c.PolicyCache.CleanupInterval <= 0 {
		return fmt.Errorf("POLICY_CACHE_CLEANUP_INTERVAL must be positive")
	}
	if c.Audit.BufferSize <= 0 || c.Audit.Workers <= 0 {
		return fmt.Errorf("audit buffer size and workers must be positive")
	}
	if len(c.Booking.DefaultCurrency) != 3 {
		return fmt.Errorf("DEFAULT_CURRENCY must be a 3-letter ISO 4217 code, got %q", c.Booking.DefaultCurrency)
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	initSchema := getEnvAsBool("DB_INIT_SCHEMA", true)
	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			ConnectionString: dbURL,
			MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			InitSchema:       initSchema,
		}
	}
	return DatabaseConfig{
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            getEnvAsInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "travel"),
		Password:        getEnv("DB_PASSWORD", "travel_password"),
		Database:        getEnv("DB_NAME", "travel"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		InitSchema:      initSchema,
	}
}

// loadAuditDatabaseConfig loads audit DB config from DATABASE_URL_AUDIT.
// Returns nil when not set (audit uses main DB).
func loadAuditDatabaseConfig() *DatabaseConfig {
	dbURL := getEnv("DATABASE_URL_AUDIT", "")
	if dbURL == "" {
		return nil
	}
	return &DatabaseConfig{
		ConnectionString: dbURL,
		MaxOpenConns:     getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:     getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime:  getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		InitSchema:       getEnvAsBool("DB_INIT_SCHEMA", true),
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsSlice splits a comma-separated variable, dropping empty entries
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
