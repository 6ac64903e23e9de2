package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver

	"gif-share/internal/logging"
	"gif-share/internal/metrics"
)

// Default timeout for database operations
const defaultTimeout = 5 * time.Second

// Database manages all database operations for the gif-share server.
type Database struct {
	db     *sql.DB
	dbPath string
	mu     sync.RWMutex
}

// New creates a new Database instance.
// dbPath must be the full path to the database FILE (e.g.
// "/database/gifshare.db") and the parent directory must already exist
// and be writable. Use startup.LoadConfig() to validate directories first.
func New(ctx context.Context, dbPath string) (*Database, error) {
	logging.Info("Database path: %s", dbPath)

	if err := diagnoseDatabasePermissions(dbPath); err != nil {
		logging.Warn("Database permission diagnostics: %v", err)
	}

	// WAL mode plus busy_timeout to avoid "database is locked" errors.
	// foreign_keys must be on for the delete cascades on gif_tags,
	// favorites, and sessions.
	connStr := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_busy_timeout=5000&_foreign_keys=on", dbPath)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after ping failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(time.Hour)

	d := &Database{
		db:     db,
		dbPath: dbPath,
	}

	if err := d.initialize(ctx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			logging.Error("failed to close database after initialization failure: %v", closeErr)
		}
		return nil, fmt.Errorf("failed to initialize database schema: %w", err)
	}

	logging.Info("Database initialized successfully at %s", dbPath)
	return d, nil
}

func (d *Database) initialize(ctx context.Context) error {
	schema := `
	-- Accounts
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT NOT NULL,
		show_sensitive INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	-- Sessions
	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		token TEXT NOT NULL UNIQUE,
		expires_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_token ON sessions(token);
	CREATE INDEX IF NOT EXISTS idx_sessions_expires ON sessions(expires_at);

	-- Gifs
	CREATE TABLE IF NOT EXISTS gifs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		uploader_id INTEGER NOT NULL,
		filename TEXT NOT NULL,
		storage_path TEXT NOT NULL UNIQUE,
		preview_path TEXT NOT NULL,
		file_size INTEGER NOT NULL DEFAULT 0,
		width INTEGER NOT NULL DEFAULT 0,
		height INTEGER NOT NULL DEFAULT 0,
		favorite_count INTEGER NOT NULL DEFAULT 0,
		view_count INTEGER NOT NULL DEFAULT 0,
		uploaded_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		FOREIGN KEY (uploader_id) REFERENCES accounts(id)
	);

	CREATE INDEX IF NOT EXISTS idx_gifs_uploader ON gifs(uploader_id);
	CREATE INDEX IF NOT EXISTS idx_gifs_uploaded_at ON gifs(uploaded_at);
	CREATE INDEX IF NOT EXISTS idx_gifs_favorite_count ON gifs(favorite_count);

	-- Tags
	CREATE TABLE IF NOT EXISTS tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE COLLATE NOCASE,
		usage_count INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_tags_name ON tags(name COLLATE NOCASE);

	-- Gif-Tag associations
	CREATE TABLE IF NOT EXISTS gif_tags (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		gif_id INTEGER NOT NULL,
		tag_id INTEGER NOT NULL,
		added_by INTEGER NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		FOREIGN KEY (gif_id) REFERENCES gifs(id) ON DELETE CASCADE,
		FOREIGN KEY (tag_id) REFERENCES tags(id),
		FOREIGN KEY (added_by) REFERENCES accounts(id),
		UNIQUE(gif_id, tag_id)
	);

	CREATE INDEX IF NOT EXISTS idx_gif_tags_gif ON gif_tags(gif_id);
	CREATE INDEX IF NOT EXISTS idx_gif_tags_tag ON gif_tags(tag_id);

	-- Favorites
	CREATE TABLE IF NOT EXISTS favorites (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		account_id INTEGER NOT NULL,
		gif_id INTEGER NOT NULL,
		created_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now')),
		FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE,
		FOREIGN KEY (gif_id) REFERENCES gifs(id) ON DELETE CASCADE,
		UNIQUE(account_id, gif_id)
	);

	CREATE INDEX IF NOT EXISTS idx_favorites_gif ON favorites(gif_id);
	CREATE INDEX IF NOT EXISTS idx_favorites_account ON favorites(account_id);
	`

	_, err := d.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping verifies the database is reachable.
func (d *Database) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()
	return d.db.PingContext(ctx)
}

// withTx runs fn inside a transaction, committing on nil error and
// rolling back otherwise. All multi-statement mutations go through here
// so counters and relation rows never interleave partial effects.
func (d *Database) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	start := time.Now()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(time.Since(start).Seconds())
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback also failed: %w", rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		metrics.DBTransactionDuration.WithLabelValues("rollback").Observe(time.Since(start).Seconds())
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	metrics.DBTransactionDuration.WithLabelValues("commit").Observe(time.Since(start).Seconds())
	return nil
}

// recordQuery records database query metrics
func recordQuery(operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(duration)
}

// observeQuery starts a query observation and returns the completion
// callback. Usage: done := observeQuery("op"); ...; done(err)
func observeQuery(operation string) func(error) {
	start := time.Now()
	return func(err error) {
		recordQuery(operation, start, err)
	}
}

// GetStats returns point-in-time library statistics for the metrics
// collector.
func (d *Database) GetStats() metrics.Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	stats := metrics.Stats{
		DBOpenConns: d.db.Stats().OpenConnections,
	}

	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM gifs").Scan(&stats.TotalGifs); err != nil {
		logging.Debug("stats: gif count failed: %v", err)
	}
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tags").Scan(&stats.TotalTags); err != nil {
		logging.Debug("stats: tag count failed: %v", err)
	}
	if err := d.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE expires_at > strftime('%s', 'now')",
	).Scan(&stats.ActiveSessions); err != nil {
		logging.Debug("stats: session count failed: %v", err)
	}

	return stats
}

// Vacuum optimizes the database.
func (d *Database) Vacuum() error {
	done := observeQuery("vacuum")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "VACUUM")
	done(err)
	return err
}

// diagnoseDatabasePermissions checks database directory and file permissions
func diagnoseDatabasePermissions(dbPath string) error {
	dir := filepath.Dir(dbPath)

	dirInfo, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot stat database directory: %w", err)
	}

	logging.Debug("Database directory: %s (mode: %v)", dir, dirInfo.Mode())

	testFile := filepath.Join(dir, ".perm-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o600); err != nil {
		return fmt.Errorf("database directory not writable: %w", err)
	}
	_ = os.Remove(testFile)

	if dbInfo, err := os.Stat(dbPath); err == nil {
		logging.Debug("Database file exists: %s (mode: %v, size: %d bytes)", dbPath, dbInfo.Mode(), dbInfo.Size())
		if dbInfo.Mode().Perm()&0o200 == 0 {
			logging.Warn("Database file is read-only! Mode: %v", dbInfo.Mode())
		}
	}

	// WAL sidecar files with wrong permissions cause write failures that
	// are hard to diagnose later, so check and repair them up front.
	for _, suffix := range []string{"-wal", "-shm"} {
		sidecar := dbPath + suffix
		info, err := os.Stat(sidecar)
		if err != nil {
			continue
		}
		logging.Debug("Sidecar file exists: %s (mode: %v, size: %d bytes)", sidecar, info.Mode(), info.Size())
		if info.Mode().Perm()&0o200 == 0 {
			logging.Warn("Sidecar file %s is read-only! Mode: %v", sidecar, info.Mode())
			if chmodErr := os.Chmod(sidecar, 0o600); chmodErr != nil {
				logging.Error("Failed to fix permissions on %s: %v", sidecar, chmodErr)
			} else {
				logging.Info("Fixed permissions on %s", sidecar)
			}
		}
	}

	return nil
}
