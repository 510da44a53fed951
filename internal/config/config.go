package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config is the full runtime configuration of the soundshelf server.
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Security SecurityConfig
	CORS     CORSConfig
	Logging  LoggingConfig
	Catalog  CatalogConfig
}

// DatabaseConfig holds the Postgres connection and pool settings. URL wins
// over the individual DB_* parts when both are set.
type DatabaseConfig struct {
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// ConnectWait bounds how long startup keeps pinging an unreachable database.
	ConnectWait time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int
	Host            string
	ShutdownTimeout time.Duration
}

// Addr is the listen address for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// SecurityConfig holds token signing settings.
type SecurityConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// CatalogConfig holds switches for catalog normalisation.
type CatalogConfig struct {
	// DurationMillisHeuristic divides durations between 10000 and 1000000 by
	// 1000 on save. On by default to match stored data.
	DurationMillisHeuristic bool
	// SeedDemo inserts a demo uploader, album and songs on startup.
	SeedDemo bool
}

var defaultOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// Load reads configuration from environment variables, after applying any
// .env file found in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	loaders := []struct {
		section string
		load    func() error
	}{
		{"database", cfg.loadDatabase},
		{"server", cfg.loadServer},
		{"security", cfg.loadSecurity},
		{"catalog", cfg.loadCatalog},
	}
	for _, l := range loaders {
		if err := l.load(); err != nil {
			return nil, fmt.Errorf("load %s config: %w", l.section, err)
		}
	}

	cfg.CORS.AllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = append([]string(nil), defaultOrigins...)
	}
	cfg.Logging.Level = getEnvOrDefault("LOG_LEVEL", "info")
	cfg.Logging.Format = getEnvOrDefault("LOG_FORMAT", "json")

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) loadDatabase() error {
	db := &c.Database
	var err error

	if db.Port, err = envInt("DB_PORT", 5432); err != nil {
		return err
	}
	if db.MaxOpenConns, err = envInt("DB_MAX_OPEN_CONNS", 20); err != nil {
		return err
	}
	if db.MaxIdleConns, err = envInt("DB_MAX_IDLE_CONNS", 5); err != nil {
		return err
	}
	if db.ConnMaxLifetime, err = envDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute); err != nil {
		return err
	}
	if db.ConnectWait, err = envDuration("DB_CONNECT_WAIT", 30*time.Second); err != nil {
		return err
	}

	db.URL = os.Getenv("DATABASE_URL")
	if db.URL != "" {
		return nil
	}

	db.Host = getEnvOrDefault("DB_HOST", "localhost")
	db.User = os.Getenv("DB_USER")
	db.Password = os.Getenv("DB_PASSWORD")
	db.Name = os.Getenv("DB_NAME")
	db.SSLMode = getEnvOrDefault("DB_SSLMODE", "disable")

	if db.User == "" || db.Name == "" {
		return nil
	}
	dsn := url.URL{
		Scheme:   "postgresql",
		User:     url.UserPassword(db.User, db.Password),
		Host:     fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:     "/" + db.Name,
		RawQuery: url.Values{"sslmode": {db.SSLMode}}.Encode(),
	}
	db.URL = dsn.String()
	return nil
}

func (c *Config) loadServer() error {
	var err error
	if c.Server.Port, err = envInt("PORT", 8080); err != nil {
		return err
	}
	c.Server.Host = getEnvOrDefault("HOST", "0.0.0.0")
	c.Server.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", 30*time.Second)
	return err
}

func (c *Config) loadSecurity() error {
	c.Security.JWTSecret = os.Getenv("JWT_SECRET")

	var err error
	c.Security.TokenTTL, err = envDuration("TOKEN_TTL", 24*time.Hour)
	return err
}

func (c *Config) loadCatalog() error {
	var err error
	if c.Catalog.DurationMillisHeuristic, err = envBool("DURATION_MS_HEURISTIC", true); err != nil {
		return err
	}
	c.Catalog.SeedDemo, err = envBool("SEED_DEMO", false)
	return err
}

// Validate reports every missing or out-of-range setting at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Database.URL == "" {
		problems = append(problems, "DATABASE_URL is required (or DB_USER and DB_NAME)")
	}
	if c.Database.MaxOpenConns < 0 || c.Database.MaxIdleConns < 0 {
		problems = append(problems, "DB_MAX_OPEN_CONNS and DB_MAX_IDLE_CONNS must not be negative")
	}

	if len(c.Security.JWTSecret) < 16 {
		problems = append(problems, "JWT_SECRET must be at least 16 characters")
	}
	if c.Security.TokenTTL <= 0 {
		problems = append(problems, "TOKEN_TTL must be positive")
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		problems = append(problems, "PORT must be between 1 and 65535")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, "LOG_LEVEL must be one of: debug, info, warn, error")
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		problems = append(problems, "LOG_FORMAT must be one of: json, text")
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(problems, "\n  - "))
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or a default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, def int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
