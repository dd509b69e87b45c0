package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppName string `env:"APP_NAME" envDefault:"zChat Live API"`
	Env     string `env:"APP_ENV" envDefault:"development"`
	Host    string `env:"HTTP_HOST" envDefault:"0.0.0.0"`
	Port    int    `env:"HTTP_PORT" envDefault:"8000"`

	DBDriver  string `env:"DB_DRIVER" envDefault:"sqlite"`
	SQLiteDSN string `env:"SQLITE_DSN" envDefault:"file:zchat.db?_pragma=busy_timeout(5000)"`
	Postgres  PostgresConfig

	JWTSecret           string `env:"JWT_SECRET"`
	AccessTokenMinutes  int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES" envDefault:"1440"`
	RefreshTokenMinutes int    `env:"REFRESH_TOKEN_EXPIRE_MINUTES" envDefault:"10080"`

	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://localhost:5173"`

	MaxConnections int           `env:"WS_MAX_CONNECTIONS" envDefault:"1000"`
	WriteTimeout   time.Duration `env:"WS_WRITE_TIMEOUT" envDefault:"10s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	OTELEnabled  bool   `env:"OTEL_ENABLED" envDefault:"true"`
	OTELEndpoint string `env:"OTEL_ENDPOINT"`
}

type PostgresConfig struct {
	Host     string `env:"POSTGRES_HOST" envDefault:"localhost"`
	Port     string `env:"POSTGRES_PORT" envDefault:"5432"`
	User     string `env:"POSTGRES_USER" envDefault:"postgres"`
	Password string `env:"POSTGRES_PASSWORD" envDefault:"postgres"`
	DB       string `env:"POSTGRES_DB" envDefault:"zchat"`
}

// Load reads an optional .env file and then parses the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the process environment only.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	for i := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(cfg.CORSOrigins[i])
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.AccessTokenMinutes <= 0 || cfg.RefreshTokenMinutes <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive")
	}
	if cfg.RefreshTokenMinutes < cfg.AccessTokenMinutes {
		return nil, fmt.Errorf("REFRESH_TOKEN_EXPIRE_MINUTES must not be shorter than ACCESS_TOKEN_EXPIRE_MINUTES")
	}
	switch cfg.DBDriver {
	case "sqlite", "postgres":
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.MaxConnections <= 0 {
		return nil, fmt.Errorf("WS_MAX_CONNECTIONS must be positive, got %d", cfg.MaxConnections)
	}
	return cfg, nil
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenMinutes) * time.Minute
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenMinutes) * time.Minute
}

func (c *Config) HTTPAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production") || strings.EqualFold(c.Env, "prod")
}

// PostgresURL renders the pgx connection string.
func (c *Config) PostgresURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.Postgres.User, c.Postgres.Password),
		Host:     fmt.Sprintf("%s:%s", c.Postgres.Host, c.Postgres.Port),
		Path:     c.Postgres.DB,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
