package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the service configuration read from the environment.
type Config struct {
	Server   ServerConfig
	Logger   LoggerConfig
	Backend  BackendConfig
	Postgres PostgresConfig
	Odoo     OdooConfig
	JWT      JWTConfig
	Import   ImportConfig
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	AppEnv          string
	HTTPPort        string
	ShutdownTimeout time.Duration
}

// LoggerConfig holds the minimum log level.
type LoggerConfig struct {
	Level string
}

// Backend kinds accepted in BACKEND.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendOdoo     = "odoo"
)

// BackendConfig selects the storage backend.
type BackendConfig struct {
	Kind string
}

// PostgresConfig holds the PostgreSQL connection settings.
type PostgresConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// DSN returns the lib/pq connection string.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode)
}

// OdooConfig holds the Odoo XML-RPC connection settings.
type OdooConfig struct {
	URL           string
	DB            string
	Username      string
	Password      string
	SkipTLSVerify bool
	AuthTimeout   time.Duration
}

// JWTConfig holds the bearer token verification settings.
type JWTConfig struct {
	SecretKey string
	Issuer    string
}

// ImportConfig holds the importer defaults.
type ImportConfig struct {
	DefaultQuantity float64
}

// LoadEnv reads the configuration from the environment, using defaults for unset keys.
func LoadEnv() *Config {
	return &Config{
		Server: ServerConfig{
			AppEnv:          getEnv("APP_ENV", "development"),
			HTTPPort:        getEnv("HTTP_PORT", ":8080"),
			ShutdownTimeout: getEnvDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Logger: LoggerConfig{
			Level: getEnv("LOGGER_LEVEL", "info"),
		},
		Backend: BackendConfig{
			Kind: strings.ToLower(getEnv("BACKEND", BackendMemory)),
		},
		Postgres: PostgresConfig{
			Host:            getEnv("POSTGRES_HOST", "localhost"),
			Port:            getEnv("POSTGRES_PORT", "5432"),
			User:            getEnv("POSTGRES_USER", "salelink"),
			Password:        getEnv("POSTGRES_PASSWORD", "salelink"),
			DBName:          getEnv("POSTGRES_DB", "salelink"),
			SSLMode:         getEnv("POSTGRES_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("POSTGRES_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvInt("POSTGRES_CONN_MAX_LIFETIME", 300),
		},
		Odoo: OdooConfig{
			URL:           getEnv("ODOO_URL", "http://localhost:8069"),
			DB:            getEnv("ODOO_DB", "odoo"),
			Username:      getEnv("ODOO_USERNAME", "admin"),
			Password:      getEnv("ODOO_PASSWORD", "admin"),
			SkipTLSVerify: getEnvBool("ODOO_SKIP_TLS_VERIFY", false),
			AuthTimeout:   getEnvDuration("ODOO_AUTH_TIMEOUT", 6*time.Hour),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", "your-secret-key-change-this-in-prod"),
			Issuer:    getEnv("JWT_ISSUER", ""),
		},
		Import: ImportConfig{
			DefaultQuantity: getEnvFloat("IMPORT_DEFAULT_QUANTITY", 1),
		},
	}
}

// Validate reports settings the service cannot start with.
func (c *Config) Validate() error {
	switch c.Backend.Kind {
	case BackendMemory, BackendPostgres, BackendOdoo:
	default:
		return fmt.Errorf("config: unknown BACKEND %q", c.Backend.Kind)
	}
	if c.JWT.SecretKey == "" {
		return fmt.Errorf("config: JWT_SECRET_KEY is empty")
	}
	if c.Import.DefaultQuantity <= 0 {
		return fmt.Errorf("config: IMPORT_DEFAULT_QUANTITY must be positive, got %v", c.Import.DefaultQuantity)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
