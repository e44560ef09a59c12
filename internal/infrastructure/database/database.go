package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

const (
	dirPermissions  = 0750
	filePermissions = 0600

	// openPingTimeout bounds the connectivity check inside Open.
	openPingTimeout = 5 * time.Second
)

// DB is the single SQLite file backing gardend. Discovery announcements,
// paired devices, device configurations, and dashboard users all live in
// one database so the controller has nothing else to back up.
//
// DB embeds *sql.DB; repositories receive the embedded handle directly.
type DB struct {
	*sql.DB
	path string
}

// Config maps the database section of config.yaml.
type Config struct {
	// Path to the SQLite file. Parent directories are created on first run.
	Path string

	// WALMode enables write-ahead logging so dashboard reads do not block
	// behind node announce writes.
	WALMode bool

	// BusyTimeout in seconds before a locked database turns into an error.
	BusyTimeout int
}

// Open opens (creating if necessary) the controller database and verifies
// it responds before returning.
//
// The pool is pinned to one connection: SQLite has a single writer, and a
// second pooled connection only manufactures SQLITE_BUSY under load.
func Open(cfg Config) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.Path), dirPermissions); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	// Pragmas ride on the DSN, see github.com/mattn/go-sqlite3.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_foreign_keys=on", cfg.Path, cfg.BusyTimeout*1000)
	if cfg.WALMode {
		dsn += "&_journal_mode=WAL&_synchronous=NORMAL"
	}

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), openPingTimeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close() //nolint:errcheck // cleanup on error path
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	// Device Wi-Fi credentials live in this file; keep it owner-only.
	// Chmod can fail before the first write creates the file.
	_ = os.Chmod(cfg.Path, filePermissions) //nolint:errcheck // file may not exist yet

	return &DB{DB: sqlDB, path: cfg.Path}, nil
}

// Close shuts the database down. Safe to call on a partially initialised DB.
func (db *DB) Close() error {
	if db.DB == nil {
		return nil
	}
	if err := db.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

// Path returns the filesystem path of the database file.
func (db *DB) Path() string {
	return db.path
}

// HealthCheck runs a trivial query to confirm the database still answers.
// Wired into the /health endpoint.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
