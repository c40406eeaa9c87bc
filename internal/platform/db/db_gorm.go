// Package db はGORMによるデータベース接続を提供します。
package db

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// retryInterval は接続リトライの間隔です。
var retryInterval = 3 * time.Second

// ErrUnsupportedDriver is returned by Open for drivers other than postgres and sqlite.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Config はデータベース接続設定です。
type Config struct {
	Driver     string // "postgres" or "sqlite"
	Host       string
	Port       string
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
	// ConnectTimeout はPostgreSQLへの接続リトライを打ち切るまでの時間です。
	ConnectTimeout time.Duration
}

// Opener はDSNからDBを開く関数です。テストで差し替えます。
type Opener func(dsn string) (*gorm.DB, error)

// BuildDSN はPostgreSQL用のDSN文字列を生成します。
func BuildDSN(cfg Config) string {
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, sslmode)
}

// gormConfig は全ドライバ共通の設定です。
// TranslateError により一意制約違反は gorm.ErrDuplicatedKey として返ります。
func gormConfig() *gorm.Config {
	return &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	}
}

// ConnectWithRetry はopenerが成功するかtimeoutに達するまで接続を再試行します。
func ConnectWithRetry(dsn string, timeout time.Duration, opener Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for {
		db, err := opener(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().Add(retryInterval).After(deadline) {
			return nil, fmt.Errorf("db connect failed after %s: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying", "error", err, "retry_in", retryInterval)
		time.Sleep(retryInterval)
	}
}

// Open はcfg.Driverに応じてデータベースに接続します。
func Open(cfg Config) (*gorm.DB, error) {
	switch cfg.Driver {
	case "postgres", "":
		timeout := cfg.ConnectTimeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		db, err := ConnectWithRetry(BuildDSN(cfg), timeout, func(dsn string) (*gorm.DB, error) {
			return gorm.Open(postgres.Open(dsn), gormConfig())
		})
		if err != nil {
			return nil, err
		}
		slog.Info("database connection successful", "driver", "postgres", "host", cfg.Host, "name", cfg.Name)
		return db, nil

	case "sqlite":
		db, err := gorm.Open(sqlite.Open(cfg.SQLitePath), gormConfig())
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite: %w", err)
		}
		// SQLiteは書き込みが単一接続に限られ、:memory: は接続ごとに別DBになる
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
		slog.Info("database connection successful", "driver", "sqlite", "path", cfg.SQLitePath)
		return db, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}
