// Package sqlite stores the aggregates in SQLite. Each aggregate is kept as a
// JSON document next to the columns that filters and sorts need.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
)

// Adapter owns the connection. Users, Songs and Playlists hand out the
// repositories that share it.
type Adapter struct {
	db *sql.DB
}

// NewAdapter creates a connection and runs the schema migration
func NewAdapter(storagePath string) (*Adapter, error) {
	dsn := storagePath
	if !strings.Contains(dsn, "?") {
		dsn += "?_foreign_keys=on&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite db: %w", err)
	}
	if storagePath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping sqlite db: %w", err)
	}

	adapter := &Adapter{db: db}
	if err := adapter.migrate(); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return adapter, nil
}

// Close ensures the DB connection is closed gracefully
func (a *Adapter) Close() error {
	return a.db.Close()
}

func (a *Adapter) Users() *UserRepository         { return &UserRepository{db: a.db} }
func (a *Adapter) Songs() *SongRepository         { return &SongRepository{db: a.db} }
func (a *Adapter) Playlists() *PlaylistRepository { return &PlaylistRepository{db: a.db} }

func (a *Adapter) migrate() error {
	query := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		username TEXT NOT NULL COLLATE NOCASE UNIQUE,
		email TEXT NOT NULL COLLATE NOCASE UNIQUE,
		password_hash TEXT NOT NULL DEFAULT '',
		display_name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		is_active INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		version INTEGER NOT NULL,
		doc TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS songs (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		artist TEXT NOT NULL,
		album TEXT NOT NULL DEFAULT '',
		genre TEXT NOT NULL,
		mood TEXT NOT NULL DEFAULT '',
		uploaded_by TEXT NOT NULL DEFAULT '',
		is_active INTEGER NOT NULL,
		is_featured INTEGER NOT NULL,
		play_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		version INTEGER NOT NULL,
		doc TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS songs_play_count ON songs(play_count);

	CREATE TABLE IF NOT EXISTS playlists (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		is_public INTEGER NOT NULL,
		is_featured INTEGER NOT NULL,
		play_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		version INTEGER NOT NULL,
		doc TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS playlists_owner ON playlists(owner);

	CREATE TABLE IF NOT EXISTS playlist_members (
		playlist_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		PRIMARY KEY (playlist_id, user_id),
		FOREIGN KEY(playlist_id) REFERENCES playlists(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS playlist_members_user ON playlist_members(user_id);
	`
	_, err := a.db.Exec(query)
	return err
}

// failure classifies a driver error. Anything that is not a missing row or
// a constraint hit means the database itself is unusable.
func failure(op string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows), errors.Is(err, domain.ErrNotFound):
		return fmt.Errorf("failed to %s: %w", op, domain.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("failed to %s: %w", op, domain.ErrAlreadyExists)
	default:
		return fmt.Errorf("failed to %s: %w: %w", op, domain.ErrUnavailable, err)
	}
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique || se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// insert writes a new row. cols and vals line up; doc and version are
// appended.
func insert(ctx context.Context, db execer, table string, cols []string, vals []any, doc any, version int64) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", table, err)
	}
	cols = append(cols, "version", "doc")
	vals = append(vals, version, string(b))
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(cols, ", "), placeholders(len(cols)))
	if _, err := db.ExecContext(ctx, q, vals...); err != nil {
		return failure("insert into "+table, err)
	}
	return nil
}

// update rewrites the row if it is still at version and bumps the version.
func update(ctx context.Context, db execer, table, id string, cols []string, vals []any, doc any, version int64) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", table, err)
	}
	sets := make([]string, 0, len(cols)+2)
	for _, c := range cols {
		sets = append(sets, c+" = ?")
	}
	sets = append(sets, "version = ?", "doc = ?")
	vals = append(vals, version+1, string(b), id, version)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE id = ? AND version = ?", table, strings.Join(sets, ", "))
	res, err := db.ExecContext(ctx, q, vals...)
	if err != nil {
		return failure("update "+table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return failure("update "+table, err)
	}
	if n == 1 {
		return nil
	}
	var exists int
	err = db.QueryRowContext(ctx, fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", table), id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return failure("update "+table, err)
	}
	return domain.ErrConflict
}

func remove(ctx context.Context, db execer, table, id string) error {
	res, err := db.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s WHERE id = ?", table), id)
	if err != nil {
		return failure("delete from "+table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func unixNano(t time.Time) int64 { return t.UnixNano() }

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
