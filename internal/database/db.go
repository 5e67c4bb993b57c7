package database

import (
	"context"
	"fmt"
	"time"

	"github.com/ducminhle1904/whale-tracker/internal/logger"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer is the slice of the pool the repository writes through
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool   *pgxpool.Pool
	logger *logger.Logger
}

// Connect opens and pings a pool for databaseURL
func Connect(ctx context.Context, databaseURL string, log *logger.Logger) (*DB, error) {
	if log == nil {
		log = logger.Nop()
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Info("connected to PostgreSQL database %s", poolConfig.ConnConfig.Database)
	return &DB{Pool: pool, logger: log.With("database")}, nil
}

// Close closes the pool
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		db.logger.Info("database connection closed")
	}
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS closed_positions (
		id UUID PRIMARY KEY,
		symbol VARCHAR(20) NOT NULL,
		side VARCHAR(5) NOT NULL,
		entry_price DECIMAL(20, 8) NOT NULL,
		exit_price DECIMAL(20, 8) NOT NULL,
		quantity DECIMAL(20, 8) NOT NULL,
		stop_loss DECIMAL(20, 8),
		take_profit DECIMAL(20, 8),
		confidence DECIMAL(6, 4),
		realized_pnl DECIMAL(20, 8) NOT NULL,
		return_pct DECIMAL(10, 4),
		close_reason VARCHAR(20) NOT NULL,
		opened_at TIMESTAMPTZ NOT NULL,
		closed_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE INDEX IF NOT EXISTS idx_closed_positions_symbol ON closed_positions(symbol)`,
	`CREATE INDEX IF NOT EXISTS idx_closed_positions_closed_at ON closed_positions(closed_at)`,

	`CREATE TABLE IF NOT EXISTS whale_alerts (
		id BIGSERIAL PRIMARY KEY,
		symbol VARCHAR(20) NOT NULL,
		kind VARCHAR(30) NOT NULL,
		severity VARCHAR(10) NOT NULL,
		message TEXT NOT NULL,
		magnitude DECIMAL(20, 8),
		direction SMALLINT,
		alerted_at TIMESTAMPTZ NOT NULL,
		UNIQUE (symbol, kind, alerted_at)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_whale_alerts_symbol ON whale_alerts(symbol)`,

	`CREATE TABLE IF NOT EXISTS risk_decisions (
		id BIGSERIAL PRIMARY KEY,
		symbol VARCHAR(20) NOT NULL,
		side VARCHAR(5) NOT NULL,
		approved BOOLEAN NOT NULL,
		reason VARCHAR(40),
		quantity DECIMAL(20, 8),
		notional DECIMAL(20, 8),
		risk_reward DECIMAL(10, 4),
		confidence DECIMAL(6, 4),
		decided_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_risk_decisions_decided_at ON risk_decisions(decided_at)`,
}

// RunMigrations creates the history tables
func RunMigrations(ctx context.Context, db Execer) error {
	for _, migration := range migrations {
		if _, err := db.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
