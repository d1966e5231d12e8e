package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const defaultDBName = "taskflow.db"

const (
	DefaultPoolSize       = 10
	DefaultMaxOverflow    = 10
	DefaultRecycleTime    = 15 * time.Minute
	DefaultAcquireTimeout = 30 * time.Second
)

// Config controls the connection pool. PoolSize connections are kept idle and
// reused; up to MaxOverflow more may be opened under load. Connections older
// than RecycleTime are discarded instead of reused. AcquireTimeout bounds how
// long a caller blocks waiting for a free connection when the pool is
// exhausted.
type Config struct {
	Path           string
	PoolSize       int
	MaxOverflow    int
	RecycleTime    time.Duration
	AcquireTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.PoolSize <= 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.MaxOverflow < 0 {
		c.MaxOverflow = DefaultMaxOverflow
	}
	if c.RecycleTime <= 0 {
		c.RecycleTime = DefaultRecycleTime
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = DefaultAcquireTimeout
	}
	return c
}

func dbPath(path string) string {
	if path == "" {
		return filepath.Join(".", defaultDBName)
	}
	return path
}

// EnsureDir creates the parent directory of the database file if missing.
func EnsureDir(path string) error {
	return os.MkdirAll(filepath.Dir(dbPath(path)), 0o755)
}

// Open opens the SQLite database with foreign keys on and applies the pool
// bounds. Open is called once at process start; closing the returned *sql.DB
// drains the pool at shutdown.
func Open(cfg Config) (*sql.DB, error) {
	cfg = cfg.withDefaults()
	if err := EnsureDir(cfg.Path); err != nil {
		return nil, err
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=foreign_keys(1)", dbPath(cfg.Path))
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	conn.SetMaxOpenConns(cfg.PoolSize + cfg.MaxOverflow)
	conn.SetMaxIdleConns(cfg.PoolSize)
	conn.SetConnMaxLifetime(cfg.RecycleTime)
	return conn, nil
}

// Path returns the effective database file path for the config.
func Path(cfg Config) string {
	return dbPath(cfg.Path)
}

// WithTx runs fn inside one transaction bound to one pooled connection.
// Acquisition waits at most acquireTimeout before failing, so pool
// exhaustion blocks bounded callers instead of hanging them. The transaction
// commits when fn returns nil and rolls back otherwise. The connection is
// released back to the pool in every case; a rollback failure is reported
// alongside fn's error, not swallowed.
func WithTx(ctx context.Context, conn *sql.DB, acquireTimeout time.Duration, fn func(tx *sql.Tx) error) error {
	if acquireTimeout <= 0 {
		acquireTimeout = DefaultAcquireTimeout
	}
	acquireCtx, cancel := context.WithTimeout(ctx, acquireTimeout)
	c, err := conn.Conn(acquireCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("acquire connection: %w", err)
	}
	defer c.Close()

	tx, err := c.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
		}
		return err
	}
	return tx.Commit()
}
