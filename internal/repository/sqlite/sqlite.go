// Package sqlite implements the repository interfaces on SQLite.
//
// The driver is modernc.org/sqlite — a pure Go translation of SQLite, so no
// C toolchain is needed and ":memory:" databases make repository tests cheap.
// WAL mode lets concurrent readers proceed while a write is in flight, which
// matters because every request may hit the database.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	// Registers the "sqlite" driver with database/sql at init time.
	_ "modernc.org/sqlite"
)

// DB wraps the sql.DB pool. The repository methods live on UserStore and
// PostStore, both views over the same pool, so user and post operations can
// share one connection and one set of migrations.
type DB struct {
	conn *sql.DB
}

// UserStore implements repository.UserRepository over the shared pool.
type UserStore struct {
	db *DB
}

// PostStore implements repository.PostRepository over the shared pool.
type PostStore struct {
	db *DB
}

// Users returns the user repository view.
func (db *DB) Users() *UserStore {
	return &UserStore{db: db}
}

// Posts returns the post repository view.
func (db *DB) Posts() *PostStore {
	return &PostStore{db: db}
}

// New opens the database at dbPath (":memory:" for tests), configures
// pragmas, and runs migrations.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Surface a bad path or permissions now, not on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the connection pool. Defer it wherever New is called.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the three relations. CREATE TABLE IF NOT EXISTS keeps this
// safe to run on an existing file.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL UNIQUE,
			identity_hash TEXT NOT NULL UNIQUE,
			avatar_url    TEXT NOT NULL DEFAULT '',
			created_at    DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS posts (
			id         TEXT PRIMARY KEY,
			title      TEXT NOT NULL,
			content    TEXT NOT NULL,
			username   TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			like_count INTEGER NOT NULL DEFAULT 0,
			category   TEXT NOT NULL DEFAULT 'General'
		);
		CREATE INDEX IF NOT EXISTS idx_posts_username   ON posts(username);
		CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating posts table: %w", err)
	}

	// Composite primary key is the duplicate-like guard: the second INSERT
	// for the same (username, post_id) fails at the constraint, inside the
	// like transaction.
	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS likes (
			username TEXT NOT NULL,
			post_id  TEXT NOT NULL,
			PRIMARY KEY (username, post_id)
		);
	`)
	if err != nil {
		return fmt.Errorf("creating likes table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure from
// the driver. modernc.org/sqlite does not export a typed error for this, so
// we match the stable constraint message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
