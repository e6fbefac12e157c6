// Package postgres stores the aggregates in PostgreSQL as JSONB documents
// with the filterable fields promoted to columns.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
)

// DB is implemented by *pgxpool.Pool and by pgxmock in tests.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Adapter struct {
	db   DB
	pool *pgxpool.Pool
}

// Open connects, pings and migrates.
func Open(ctx context.Context, databaseURL string) (*Adapter, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: failed to ping: %w: %w", domain.ErrUnavailable, err)
	}
	a := &Adapter{db: pool, pool: pool}
	if err := a.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: migration failed: %w", err)
	}
	return a, nil
}

// New wraps an existing connection without migrating.
func New(db DB) *Adapter {
	return &Adapter{db: db}
}

func (a *Adapter) Close() error {
	if a.pool != nil {
		a.pool.Close()
	}
	return nil
}

func (a *Adapter) Users() *UserRepository         { return &UserRepository{db: a.db} }
func (a *Adapter) Songs() *SongRepository         { return &SongRepository{db: a.db} }
func (a *Adapter) Playlists() *PlaylistRepository { return &PlaylistRepository{db: a.db} }

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL,
	email TEXT NOT NULL,
	password_hash TEXT NOT NULL DEFAULT '',
	display_name TEXT NOT NULL DEFAULT '',
	role TEXT NOT NULL,
	is_active BOOLEAN NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	version BIGINT NOT NULL,
	doc JSONB NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_username_key ON users (LOWER(username));
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (LOWER(email));

CREATE TABLE IF NOT EXISTS songs (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	artist TEXT NOT NULL,
	album TEXT NOT NULL DEFAULT '',
	genre TEXT NOT NULL,
	mood TEXT NOT NULL DEFAULT '',
	uploaded_by TEXT NOT NULL DEFAULT '',
	is_active BOOLEAN NOT NULL,
	is_featured BOOLEAN NOT NULL,
	play_count BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	version BIGINT NOT NULL,
	doc JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS songs_play_count ON songs (play_count DESC);

CREATE TABLE IF NOT EXISTS playlists (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	owner TEXT NOT NULL,
	members TEXT[] NOT NULL DEFAULT '{}',
	category TEXT NOT NULL DEFAULT '',
	is_public BOOLEAN NOT NULL,
	is_featured BOOLEAN NOT NULL,
	play_count BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	version BIGINT NOT NULL,
	doc JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS playlists_members ON playlists USING GIN (members);
`

func (a *Adapter) Migrate(ctx context.Context) error {
	if _, err := a.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("postgres: failed to apply schema: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// failure classifies a driver error.
func failure(op string, err error) error {
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return fmt.Errorf("postgres: %s: %w", op, domain.ErrNotFound)
	case isUniqueViolation(err):
		return fmt.Errorf("postgres: %s: %w", op, domain.ErrAlreadyExists)
	default:
		return fmt.Errorf("postgres: %s: %w: %w", op, domain.ErrUnavailable, err)
	}
}
