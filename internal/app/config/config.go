// Package config はアプリケーション設定を環境変数と .env から読み込みます。
package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// devJWTSecret は JWT_SECRET 未設定時の開発用シークレットです。本番では必ず上書きすること。
const devJWTSecret = "dev-only-insecure-secret"

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQL    = "sql"
	BackendRedis  = "redis"
)

type Config struct {
	HTTP     HTTPConfig
	Token    TokenConfig
	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
}

type HTTPConfig struct {
	Addr         string
	StaticDir    string
	CookieSecure bool
	// LoginRateLimit is the number of login attempts allowed per client and window. 0 disables it.
	LoginRateLimit  int
	LoginRateWindow time.Duration
}

type TokenConfig struct {
	Secret string
	TTL    time.Duration
}

type StoreConfig struct {
	Backend string
	// CacheTTL applies when the SQL backend is fronted by Redis.
	CacheTTL time.Duration
}

type DatabaseConfig struct {
	Driver        string
	Host          string
	Port          string
	User          string
	Password      string
	Name          string
	SSLMode       string
	SQLitePath    string
	RunMigrations bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

// Load reads .env when present and builds the configuration from the environment.
// Malformed numeric, duration and boolean values fall back to their defaults.
func Load() (*Config, error) {
	// ローカル開発用。存在しなくてもエラーにしない
	_ = godotenv.Load()

	cfg := &Config{
		HTTP: HTTPConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			StaticDir:       getEnv("STATIC_DIR", "static"),
			CookieSecure:    getEnvAsBool("COOKIE_SECURE", false),
			LoginRateLimit:  getEnvAsInt("LOGIN_RATE_LIMIT", 10),
			LoginRateWindow: getEnvAsDuration("LOGIN_RATE_WINDOW", time.Minute),
		},
		Token: TokenConfig{
			Secret: getEnv("JWT_SECRET", ""),
			TTL:    getEnvAsDuration("TOKEN_TTL", 24*time.Hour),
		},
		Store: StoreConfig{
			Backend:  getEnv("STORE_BACKEND", BackendMemory),
			CacheTTL: getEnvAsDuration("CACHE_TTL", 5*time.Minute),
		},
		Database: DatabaseConfig{
			Driver:        getEnv("DB_DRIVER", "postgres"),
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", ""),
			Password:      getEnv("DB_PASSWORD", ""),
			Name:          getEnv("DB_NAME", "accounts"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			SQLitePath:    getEnv("SQLITE_PATH", "accounts.db"),
			RunMigrations: getEnvAsBool("RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
	}

	if cfg.Token.Secret == "" {
		slog.Warn("JWT_SECRET is not set; using the development secret")
		cfg.Token.Secret = devJWTSecret
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
