package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func setupMock(t *testing.T) (*Adapter, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		mock.Close()
	})
	return New(mock), mock
}

func anyArgs(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = pgxmock.AnyArg()
	}
	return out
}

func docBytes(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestSongRepository_GetByID(t *testing.T) {
	a, mock := setupMock(t)
	ctx := context.Background()
	s := domain.Song{ID: "s1", Title: "One", Artist: "A", Genre: domain.GenreRock, Duration: 180, CreatedAt: t0}

	mock.ExpectQuery("SELECT version, doc FROM songs WHERE id = \\$1").
		WithArgs("s1").
		WillReturnRows(pgxmock.NewRows([]string{"version", "doc"}).AddRow(int64(3), docBytes(t, s)))
	mock.ExpectQuery("SELECT version, doc FROM songs WHERE id = \\$1").
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	got, err := a.Songs().GetByID(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
	assert.Equal(t, 180, got.Duration)
	assert.True(t, got.CreatedAt.Equal(t0))

	_, err = a.Songs().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSongRepository_UpdateOutcomes(t *testing.T) {
	s := domain.Song{ID: "s1", Title: "One", Artist: "A", Genre: domain.GenreRock, Version: 2}
	// ten promoted columns, then version, doc, id and the expected version
	const updateArgs = 14

	tests := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name: "saved",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("UPDATE songs SET .* WHERE id = \\$13 AND version = \\$14").
					WithArgs(anyArgs(updateArgs)...).
					WillReturnResult(pgxmock.NewResult("UPDATE", 1))
			},
		},
		{
			name: "stale version",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("UPDATE songs SET").
					WithArgs(anyArgs(updateArgs)...).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
				mock.ExpectQuery("SELECT EXISTS").
					WithArgs("s1").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
			},
			wantErr: domain.ErrConflict,
		},
		{
			name: "deleted meanwhile",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("UPDATE songs SET").
					WithArgs(anyArgs(updateArgs)...).
					WillReturnResult(pgxmock.NewResult("UPDATE", 0))
				mock.ExpectQuery("SELECT EXISTS").
					WithArgs("s1").
					WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
			},
			wantErr: domain.ErrNotFound,
		},
		{
			name: "connection lost",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectExec("UPDATE songs SET").
					WithArgs(anyArgs(updateArgs)...).
					WillReturnError(errors.New("conn closed"))
			},
			wantErr: domain.ErrUnavailable,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a, mock := setupMock(t)
			tc.setup(mock)
			saved, err := a.Songs().Update(context.Background(), s)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(3), saved.Version)
		})
	}
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	a, mock := setupMock(t)
	u, err := domain.NewUser("u1", "dj_max", "max@example.com", "hash", t0)
	require.NoError(t, err)
	u.Version = 1

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})

	err = a.Users().Create(context.Background(), *u)
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
}

func TestUserRepository_GetByEmailKeepsHash(t *testing.T) {
	a, mock := setupMock(t)
	u := domain.User{ID: "u1", Username: "dj_max", Email: "max@example.com", Role: domain.RoleUser, IsActive: true}

	mock.ExpectQuery("SELECT version, doc, password_hash FROM users WHERE LOWER\\(email\\) = LOWER\\(\\$1\\)").
		WithArgs("MAX@example.com").
		WillReturnRows(pgxmock.NewRows([]string{"version", "doc", "password_hash"}).AddRow(int64(1), docBytes(t, u), "$2a$hash"))

	got, err := a.Users().GetByEmail(context.Background(), "MAX@example.com")
	require.NoError(t, err)
	assert.Equal(t, "$2a$hash", got.PasswordHash)
	assert.Equal(t, "dj_max", got.Username)
}

func TestPlaylistRepository_ListAndCountMember(t *testing.T) {
	a, mock := setupMock(t)
	ctx := context.Background()
	p := domain.Playlist{ID: "p1", Name: "Mix", Owner: "A", CreatedAt: t0}
	f := ports.PlaylistFilter{Member: "A", Text: "m_x"}

	mock.ExpectQuery(`SELECT version, doc FROM playlists WHERE \$1 = ANY\(members\) AND \(name ILIKE \$2 OR description ILIKE \$2\) ORDER BY play_count DESC, created_at DESC, id ASC LIMIT \$3 OFFSET \$4`).
		WithArgs("A", `%m\_x%`, 5, 0).
		WillReturnRows(pgxmock.NewRows([]string{"version", "doc"}).AddRow(int64(4), docBytes(t, p)))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM playlists WHERE \$1 = ANY\(members\)`).
		WithArgs("A", `%m\_x%`).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(1))

	got, err := a.Playlists().List(ctx, f, ports.ListQuery{Sort: ports.SortPopular, Limit: 5})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(4), got[0].Version)

	n, err := a.Playlists().Count(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestPlaylistRepository_CreateStoresMembers(t *testing.T) {
	a, mock := setupMock(t)
	p, err := domain.NewPlaylist("p1", "Mix", "A", t0)
	require.NoError(t, err)
	require.NoError(t, p.AddCollaborator("B", domain.CollaboratorEditor, t0))
	p.Version = 1

	args := anyArgs(12)
	args[0] = "p1"
	args[4] = []string{"A", "B"}
	mock.ExpectExec("INSERT INTO playlists \\(id, name, description, owner, members").
		WithArgs(args...).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, a.Playlists().Create(context.Background(), *p))
}

func TestPlaylistRepository_DeleteMissing(t *testing.T) {
	a, mock := setupMock(t)
	mock.ExpectExec("DELETE FROM playlists WHERE id = \\$1").
		WithArgs("gone").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := a.Playlists().Delete(context.Background(), "gone")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
