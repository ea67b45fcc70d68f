// Package storage persists payments, gateway responses and webhooks in
// SQLite or PostgreSQL.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/mstgnz/vrpay/infra/config"
	"github.com/mstgnz/vrpay/infra/conn"
	"github.com/mstgnz/vrpay/infra/logger"
	"github.com/mstgnz/vrpay/provider"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	maxRetries = 3
)

// SQLStore implements provider.Store on database/sql
type SQLStore struct {
	db      *sql.DB
	driver  string
	path    string
	writeMu sync.Mutex
	now     func() time.Time
}

// Open creates the store selected by STORAGE_DRIVER
func Open(ctx context.Context, cfg *config.AppConfig) (*SQLStore, error) {
	switch cfg.StorageDriver {
	case "", DriverSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case DriverPostgres:
		return NewPostgresStore(ctx, conn.PostgresDSN())
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// NewSQLiteStore opens a SQLite database tuned for several processes
func NewSQLiteStore(dbPath string) (*SQLStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000&_timeout=20000&_txlock=immediate&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(0)

	s := &SQLStore{db: db, driver: DriverSQLite, path: dbPath, now: time.Now}

	if err := s.initSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	s.optimizeForMultiProcess()

	logger.Info("SQLite storage initialized", logger.LogContext{Fields: map[string]any{"path": dbPath}})
	return s, nil
}

// NewPostgresStore connects to PostgreSQL and creates the schema
func NewPostgresStore(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := conn.OpenPostgres(ctx, dsn)
	if err != nil {
		return nil, err
	}

	s := &SQLStore{db: db, driver: DriverPostgres, now: time.Now}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("PostgreSQL storage initialized")
	return s, nil
}

func (s *SQLStore) initSchema(ctx context.Context) error {
	statements := sqliteSchema
	if s.driver == DriverPostgres {
		statements = postgresSchema
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLStore) optimizeForMultiProcess() {
	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		"PRAGMA cache_size = 1000;",
		"PRAGMA busy_timeout = 30000;",
		"PRAGMA temp_store = memory;",
		"PRAGMA mmap_size = 268435456;",
		"PRAGMA optimize;",
	}

	for _, pragma := range pragmas {
		if _, err := s.db.Exec(pragma); err != nil {
			logger.Warn(fmt.Sprintf("Failed to execute %s: %v", pragma, err))
		}
	}
}

// rebind rewrites ? placeholders to $n for PostgreSQL
func (s *SQLStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// write runs a statement under the SQLite writer lock and retries on SQLITE_BUSY
func (s *SQLStore) write(ctx context.Context, operation func() error) error {
	if s.driver == DriverSQLite {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}
		if !isBusy(err) {
			return err
		}

		lastErr = err
		if attempt < maxRetries {
			// 10ms, 20ms, 40ms
			backoff := time.Duration(10*(1<<attempt)) * time.Millisecond
			logger.Debug(fmt.Sprintf("SQLite busy, retrying in %v (attempt %d/%d)", backoff, attempt+1, maxRetries+1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return fmt.Errorf("operation failed after %d retries, last error: %w", maxRetries+1, lastErr)
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return strings.Contains(err.Error(), "database is locked")
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

// Ping checks the database connection
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Stats returns row counts of the tables
func (s *SQLStore) Stats(ctx context.Context) (map[string]any, error) {
	stats := map[string]any{"driver": s.driver}

	for _, table := range []string{"payments", "gateway_responses", "webhooks"} {
		var count int64
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		stats[table] = count
	}

	if s.path != "" {
		if fileInfo, err := os.Stat(s.path); err == nil {
			stats["db_size_bytes"] = fileInfo.Size()
		}
	}

	return stats, nil
}

var _ provider.Store = (*SQLStore)(nil)
