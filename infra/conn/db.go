package conn

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/mstgnz/vrpay/infra/config"
	"github.com/mstgnz/vrpay/infra/logger"

	_ "github.com/lib/pq"
)

const (
	connectAttempts = 5
	retryDelay      = 2 * time.Second
)

// PostgresDSN builds a connection string from the DB_* environment variables
func PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		config.GetEnv("DB_HOST", "localhost"),
		config.GetEnv("DB_PORT", "5432"),
		config.GetEnv("DB_USER", "postgres"),
		config.GetEnv("DB_PASS", ""),
		config.GetEnv("DB_NAME", "vrpay"),
		config.GetEnv("DB_SSLMODE", "disable"),
		config.GetEnv("DB_ZONE", "UTC"),
	)
}

// OpenPostgres opens a postgres pool and pings it, retrying while the server comes up
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	var lastErr error

	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}

		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		db.SetConnMaxIdleTime(2 * time.Minute)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			logger.Info("Postgres connected", logger.LogContext{Fields: map[string]any{"attempt": attempt}})
			return db, nil
		}

		lastErr = err
		db.Close()
		logger.Warn(fmt.Sprintf("Postgres ping failed (attempt %d/%d): %v", attempt, connectAttempts, err))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}

	return nil, fmt.Errorf("failed to connect to postgres after %d attempts: %w", connectAttempts, lastErr)
}
