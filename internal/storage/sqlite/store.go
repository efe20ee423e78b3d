// Package sqlite implements the storage interface using SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	sqlite3 "github.com/ncruces/go-sqlite3"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/tetratelabs/wazero"
)

// Store implements storage.Storage using SQLite
type Store struct {
	db     *sql.DB
	dbPath string
	closed atomic.Bool
}

// setupWASMCache configures WASM compilation caching to reduce SQLite
// startup time. Falls back to an in-memory cache if the cache directory
// cannot be created.
func setupWASMCache() {
	var cache wazero.CompilationCache
	if userCache, err := os.UserCacheDir(); err == nil {
		dir := filepath.Join(userCache, "warepick", "wasm")
		if c, err := wazero.NewCompilationCacheWithDir(dir); err == nil {
			cache = c
		}
	}
	if cache == nil {
		cache = wazero.NewCompilationCache()
	}
	sqlite3.RuntimeConfig = wazero.NewRuntimeConfig().WithCompilationCache(cache)
}

func init() {
	setupWASMCache()
}

// New opens (creating if needed) a SQLite database at path and ensures
// the schema exists. Use ":memory:" for an ephemeral database.
func New(path string) (*Store, error) {
	// For :memory: databases, use shared cache so multiple connections
	// see the same data. WAL does not work with shared in-memory
	// databases, so those stay in DELETE journal mode.
	var connStr string
	if path == ":memory:" {
		connStr = "file:memdb?mode=memory&cache=shared&_pragma=journal_mode(DELETE)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_time_format=sqlite"
	} else if strings.HasPrefix(path, "file:") {
		connStr = path
		if !strings.Contains(path, "_pragma=foreign_keys") {
			connStr += "&_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_time_format=sqlite"
		}
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		connStr = "file:" + path + "?_pragma=foreign_keys(ON)&_pragma=busy_timeout(30000)&_time_format=sqlite"
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite in-memory databases are isolated per connection by
	// default. Force a single connection so every caller sees the
	// same data.
	isInMemory := path == ":memory:" ||
		(strings.HasPrefix(path, "file:") && strings.Contains(path, "mode=memory"))
	if isInMemory {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	} else {
		// WAL supports 1 writer + N readers. Cap the pool to keep
		// goroutines from piling up on write-lock contention.
		db.SetMaxOpenConns(runtime.NumCPU() + 1)
		db.SetMaxIdleConns(2)
		db.SetConnMaxLifetime(0)
	}

	if !isInMemory {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	absPath := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		absPath, err = filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("failed to get absolute path: %w", err)
		}
	}

	return &Store{db: db, dbPath: absPath}, nil
}

// Close closes the database connection. It checkpoints the WAL so that
// writes are not stranded between process invocations.
func (s *Store) Close() error {
	s.closed.Store(true)
	_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	return s.db.Close()
}

// Path returns the database path
func (s *Store) Path() string {
	return s.dbPath
}

// IsClosed returns true if Close() has been called on this store
func (s *Store) IsClosed() bool {
	return s.closed.Load()
}

// Ping verifies the database is reachable. Used by readiness checks.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
