package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/upb/catalog-inventory/internal/auth"
)

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Audit         AuditConfig
	Observability ObservabilityConfig
	CORS          CORSConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// Supported values of DatabaseConfig.Driver
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	Driver           string // postgres or memory
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
	AutoMigrate      bool
}

// AuthConfig holds token and credential settings
type AuthConfig struct {
	JWTSecret           string
	TokenTTL            time.Duration
	RefreshMinRemaining time.Duration
	BcryptCost          int
	LoginMaxFailures    int // 0 disables the login throttle
	LoginFailureWindow  time.Duration
}

// AuditConfig holds audit worker pool settings
type AuditConfig struct {
	BufferSize  int
	WorkerCount int
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
}

// CORSConfig holds allowed CORS origins
type CORSConfig struct {
	AllowedOrigins []string
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	environment := getEnv("ENVIRONMENT", "development")
	env := &envParser{}

	cfg := &Config{
		Environment: environment,
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            env.port(),
			ReadTimeout:     env.getDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    env.getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: env.getDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Database: loadDatabaseConfig(env, environment),
		Auth: AuthConfig{
			JWTSecret:           getEnv("JWT_SECRET", ""),
			TokenTTL:            env.getDuration("JWT_TTL", 24*time.Hour),
			RefreshMinRemaining: env.getDuration("JWT_REFRESH_MIN_REMAINING", auth.DefaultRefreshMinRemaining),
			BcryptCost:          env.getInt("BCRYPT_COST", bcrypt.DefaultCost),
			LoginMaxFailures:    env.getInt("LOGIN_MAX_FAILURES", 5),
			LoginFailureWindow:  env.getDuration("LOGIN_FAILURE_WINDOW", 15*time.Minute),
		},
		Audit: AuditConfig{
			BufferSize:  env.getInt("AUDIT_BUFFER_SIZE", 1000),
			WorkerCount: env.getInt("AUDIT_WORKER_COUNT", 2),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: env.getBool("METRICS_ENABLED", true),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:*"}),
		},
	}

	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// NewForCLI loads the subset of configuration the admin CLI needs: the
// database and the bcrypt cost. No signing secret is required.
func NewForCLI() (*Config, error) {
	_ = godotenv.Load(".env")

	environment := getEnv("ENVIRONMENT", "development")
	env := &envParser{}
	cfg := &Config{
		Environment: environment,
		Database:    loadDatabaseConfig(env, environment),
		Auth: AuthConfig{
			BcryptCost: env.getInt("BCRYPT_COST", bcrypt.DefaultCost),
		},
	}
	if err := env.Err(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.Database.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if cfg.Auth.BcryptCost < bcrypt.MinCost || cfg.Auth.BcryptCost > bcrypt.MaxCost {
		return nil, fmt.Errorf("config validation failed: BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}

	if err := c.Auth.Validate(); err != nil {
		return err
	}

	if c.Audit.BufferSize <= 0 || c.Audit.WorkerCount <= 0 {
		return fmt.Errorf("audit buffer size and worker count must be positive")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// Validate checks the database settings. The memory driver needs none.
func (c *DatabaseConfig) Validate() error {
	switch c.Driver {
	case DriverMemory:
		return nil
	case DriverPostgres, "":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Driver)
	}

	// DATABASE_URL or DB_* vars
	if c.ConnectionString == "" && c.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.ConnectionString == "" {
		if c.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}
	return nil
}

// IsMemory reports whether the in-memory store is selected
func (c *DatabaseConfig) IsMemory() bool {
	return c.Driver == DriverMemory
}

// Validate checks the auth settings. The server must not start with a
// missing or weak signing secret.
func (a *AuthConfig) Validate() error {
	if a.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if len(a.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", auth.MinSecretLength)
	}
	if a.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be positive, got %s", a.TokenTTL)
	}
	if a.RefreshMinRemaining < 0 || a.RefreshMinRemaining >= a.TokenTTL {
		return fmt.Errorf("JWT_REFRESH_MIN_REMAINING must be in [0, JWT_TTL), got %s", a.RefreshMinRemaining)
	}
	if a.BcryptCost < bcrypt.MinCost || a.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if a.LoginMaxFailures < 0 {
		return fmt.Errorf("LOGIN_MAX_FAILURES must not be negative")
	}
	if a.LoginMaxFailures > 0 && a.LoginFailureWindow <= 0 {
		return fmt.Errorf("LOGIN_FAILURE_WINDOW must be positive when the login throttle is enabled")
	}
	return nil
}

// CodecConfig builds the immutable token codec configuration.
func (a *AuthConfig) CodecConfig() (auth.CodecConfig, error) {
	key, err := auth.NewSigningKey(a.JWTSecret)
	if err != nil {
		return auth.CodecConfig{}, err
	}
	return auth.CodecConfig{Key: key, TTL: a.TokenTTL}, nil
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
func loadDatabaseConfig(env *envParser, environment string) DatabaseConfig {
	autoMigrate := env.getBool("DB_AUTO_MIGRATE", environment == "development" || environment == "dev")
	driver := strings.ToLower(getEnv("DB_DRIVER", DriverPostgres))

	dbURL := getEnv("DATABASE_URL", "")
	if dbURL != "" {
		return DatabaseConfig{
			Driver:           driver,
			ConnectionString: dbURL,
			MaxOpenConns:     env.getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:     env.getInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime:  env.getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
			AutoMigrate:      autoMigrate,
		}
	}
	return DatabaseConfig{
		Driver:          driver,
		Host:            getEnv("DB_HOST", "localhost"),
		Port:            env.getInt("DB_PORT", 5432),
		User:            getEnv("DB_USER", "inventory"),
		Password:        getEnv("DB_PASSWORD", "inventory"),
		Database:        getEnv("DB_NAME", "catalog_inventory"),
		SSLMode:         getEnv("DB_SSLMODE", "disable"),
		MaxOpenConns:    env.getInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    env.getInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: env.getDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		AutoMigrate:     autoMigrate,
	}
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// envParser reads typed settings and keeps every value that failed to
// parse, so a typo fails startup instead of silently using the default.
type envParser struct {
	errs []error
}

// Err returns all parse failures, or nil
func (p *envParser) Err() error {
	return errors.Join(p.errs...)
}

func (p *envParser) invalid(key, value, want string, err error) {
	p.errs = append(p.errs, fmt.Errorf("%s=%q is not a valid %s: %w", key, value, want, err))
}

func (p *envParser) getInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		p.invalid(key, valueStr, "integer", err)
		return defaultValue
	}
	return value
}

func (p *envParser) getBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		p.invalid(key, valueStr, "boolean", err)
		return defaultValue
	}
	return value
}

// getDuration requires a unit, so JWT_TTL=15 is an error rather than 15ns.
func (p *envParser) getDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		p.invalid(key, valueStr, "duration (e.g. 15m, 24h)", err)
		return defaultValue
	}
	return value
}

// port returns the server port from PORT or SERVER_PORT (default: 8080)
func (p *envParser) port() int {
	if os.Getenv("PORT") != "" {
		return p.getInt("PORT", 8080)
	}
	return p.getInt("SERVER_PORT", 8080)
}

func getEnvAsList(key string, defaultValue []string) []string {
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
