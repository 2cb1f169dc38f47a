package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"crashscraper/internal/pkg/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect selects the SQL flavour used by migrations and repositories.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DriverName returns the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == DialectSQLite {
		return "sqlite3"
	}
	return "pgx"
}

// ParseDialect maps DB_DRIVER values ("pgx", "postgres", "sqlite3", "sqlite")
// to a Dialect. An empty value defaults to PostgreSQL.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "pgx", "postgres", "postgresql":
		return DialectPostgres, nil
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	default:
		return "", fmt.Errorf("unsupported DB_DRIVER %q", s)
	}
}

// ConnectionConfig holds database connection pool configuration.
type ConnectionConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DefaultConnectionConfig returns the default connection pool configuration.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 1 * time.Hour,
		ConnMaxIdleTime: 30 * time.Minute,
	}
}

// OpenFromEnv opens the store described by DB_DRIVER and DATABASE_URL.
// Failing to reach the store at startup is the only pipeline-fatal error, so
// callers are expected to exit on a non-nil error.
func OpenFromEnv(ctx context.Context) (*sql.DB, Dialect, error) {
	dialect, err := ParseDialect(os.Getenv("DB_DRIVER"))
	if err != nil {
		return nil, "", err
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return nil, "", fmt.Errorf("DATABASE_URL not set")
	}
	db, err := Open(ctx, dialect, dsn, getConnectionConfigFromEnv())
	if err != nil {
		return nil, "", err
	}
	return db, dialect, nil
}

// Open creates and configures a connection pool and verifies it with a ping.
func Open(ctx context.Context, dialect Dialect, dsn string, cfg ConnectionConfig) (*sql.DB, error) {
	db, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}

	// SQLite は単一ライターのため接続数を1に制限
	if dialect == DialectSQLite {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	slog.Info("database connection pool configured",
		slog.String("dialect", string(dialect)),
		slog.Int("max_open_conns", cfg.MaxOpenConns),
		slog.Int("max_idle_conns", cfg.MaxIdleConns),
		slog.Duration("conn_max_lifetime", cfg.ConnMaxLifetime))

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	slog.Info("database connection established successfully")
	return db, nil
}

// getConnectionConfigFromEnv reads connection pool configuration from
// environment variables. Invalid values keep the default with a warning.
func getConnectionConfigFromEnv() ConnectionConfig {
	cfg := DefaultConnectionConfig()
	positive := func(v int) error { return config.ValidateIntRange(v, 1, 1000) }

	warn := func(warnings []string) {
		for _, w := range warnings {
			slog.Warn("database configuration fallback applied", slog.String("warning", w))
		}
	}

	maxOpen := config.LoadEnvInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns, positive)
	maxIdle := config.LoadEnvInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns, positive)
	lifetime := config.LoadEnvDuration("DB_CONN_MAX_LIFETIME", cfg.ConnMaxLifetime, config.ValidatePositiveDuration)
	idleTime := config.LoadEnvDuration("DB_CONN_MAX_IDLE_TIME", cfg.ConnMaxIdleTime, config.ValidatePositiveDuration)
	warn(maxOpen.Warnings)
	warn(maxIdle.Warnings)
	warn(lifetime.Warnings)
	warn(idleTime.Warnings)

	cfg.MaxOpenConns = maxOpen.Value
	cfg.MaxIdleConns = maxIdle.Value
	cfg.ConnMaxLifetime = lifetime.Value
	cfg.ConnMaxIdleTime = idleTime.Value
	return cfg
}
