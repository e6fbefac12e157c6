package sqlite

import (
	"context"
	"database/sql"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

// PlaylistRepository mirrors owner and collaborators into playlist_members
// so membership can be filtered without opening the document.
type PlaylistRepository struct {
	db *sql.DB
}

func scanPlaylist(s scanner) (domain.Playlist, error) {
	var p domain.Playlist
	var version int64
	if err := decode(s, &p, &version); err != nil {
		return domain.Playlist{}, err
	}
	p.Version = version
	return p, nil
}

func playlistColumns(p domain.Playlist) ([]string, []any) {
	return []string{"name", "description", "owner", "category", "is_public", "is_featured", "play_count", "created_at"},
		[]any{p.Name, p.Description, p.Owner, p.Category, boolInt(p.IsPublic), boolInt(p.IsFeatured), p.PlayCount, unixNano(p.CreatedAt)}
}

func (r *PlaylistRepository) GetByID(ctx context.Context, id string) (domain.Playlist, error) {
	p, err := scanPlaylist(r.db.QueryRowContext(ctx, "SELECT "+docCols+" FROM playlists WHERE id = ?", id))
	if err != nil {
		return domain.Playlist{}, failure("load playlist", err)
	}
	return p, nil
}

func (r *PlaylistRepository) Create(ctx context.Context, p domain.Playlist) error {
	return r.inTx(ctx, p, func(tx *sql.Tx) error {
		cols, vals := playlistColumns(p)
		return insert(ctx, tx, "playlists", append([]string{"id"}, cols...), append([]any{p.ID}, vals...), p, p.Version)
	})
}

func (r *PlaylistRepository) Update(ctx context.Context, p domain.Playlist) (domain.Playlist, error) {
	err := r.inTx(ctx, p, func(tx *sql.Tx) error {
		cols, vals := playlistColumns(p)
		return update(ctx, tx, "playlists", p.ID, cols, vals, p, p.Version)
	})
	if err != nil {
		return domain.Playlist{}, err
	}
	p.Version++
	return p, nil
}

// inTx runs write and then resets the membership links in one transaction.
func (r *PlaylistRepository) inTx(ctx context.Context, p domain.Playlist, write func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return failure("begin transaction", err)
	}
	defer tx.Rollback()

	if err := write(tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM playlist_members WHERE playlist_id = ?", p.ID); err != nil {
		return failure("clear members", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO playlist_members (playlist_id, user_id) VALUES (?, ?)
		ON CONFLICT(playlist_id, user_id) DO NOTHING
	`)
	if err != nil {
		return failure("prepare members", err)
	}
	defer stmt.Close()

	members := []string{p.Owner}
	for _, c := range p.Collaborators {
		members = append(members, c.UserID)
	}
	for _, m := range members {
		if _, err := stmt.ExecContext(ctx, p.ID, m); err != nil {
			return failure("link member "+m, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return failure("commit transaction", err)
	}
	return nil
}

func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	return remove(ctx, r.db, "playlists", id)
}

func playlistWhere(f ports.PlaylistFilter) where {
	var w where
	if f.PublicOnly {
		w.add("is_public = 1")
	}
	if f.FeaturedOnly {
		w.add("is_featured = 1")
	}
	if f.Owner != "" {
		w.add("owner = ?", f.Owner)
	}
	if f.Category != "" {
		w.add("category = ?", f.Category)
	}
	if f.Member != "" {
		w.add("id IN (SELECT playlist_id FROM playlist_members WHERE user_id = ?)", f.Member)
	}
	w.contains(f.Text, "name", "description")
	return w
}

func (r *PlaylistRepository) List(ctx context.Context, f ports.PlaylistFilter, q ports.ListQuery) ([]domain.Playlist, error) {
	return selectDocs(ctx, r.db, "playlists", playlistWhere(f), orderBy(q.Normalize().Sort, "name"), q, docCols, scanPlaylist)
}

func (r *PlaylistRepository) Count(ctx context.Context, f ports.PlaylistFilter) (int, error) {
	return count(ctx, r.db, "playlists", playlistWhere(f))
}
