package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

// PlaylistRepository denormalizes owner and collaborators into the members
// array for the membership filter.
type PlaylistRepository struct {
	db DB
}

func scanPlaylist(row pgx.Row) (domain.Playlist, error) {
	var p domain.Playlist
	var version int64
	if err := decode(row, &p, &version); err != nil {
		return domain.Playlist{}, err
	}
	p.Version = version
	return p, nil
}

func members(p domain.Playlist) []string {
	out := []string{p.Owner}
	for _, c := range p.Collaborators {
		out = append(out, c.UserID)
	}
	return out
}

func playlistColumns(p domain.Playlist) ([]string, []any) {
	return []string{"name", "description", "owner", "members", "category", "is_public", "is_featured", "play_count", "created_at"},
		[]any{p.Name, p.Description, p.Owner, members(p), p.Category, p.IsPublic, p.IsFeatured, p.PlayCount, p.CreatedAt}
}

func (r *PlaylistRepository) GetByID(ctx context.Context, id string) (domain.Playlist, error) {
	p, err := scanPlaylist(r.db.QueryRow(ctx, "SELECT "+docCols+" FROM playlists WHERE id = $1", id))
	if err != nil {
		return domain.Playlist{}, failure("load playlist", err)
	}
	return p, nil
}

func (r *PlaylistRepository) Create(ctx context.Context, p domain.Playlist) error {
	cols, vals := playlistColumns(p)
	return insert(ctx, r.db, "playlists", append([]string{"id"}, cols...), append([]any{p.ID}, vals...), p, p.Version)
}

func (r *PlaylistRepository) Update(ctx context.Context, p domain.Playlist) (domain.Playlist, error) {
	cols, vals := playlistColumns(p)
	if err := update(ctx, r.db, "playlists", p.ID, cols, vals, p, p.Version); err != nil {
		return domain.Playlist{}, err
	}
	p.Version++
	return p, nil
}

func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	return remove(ctx, r.db, "playlists", id)
}

func playlistWhere(f ports.PlaylistFilter) where {
	var w where
	if f.PublicOnly {
		w.add("is_public")
	}
	if f.FeaturedOnly {
		w.add("is_featured")
	}
	if f.Owner != "" {
		w.add("owner = " + w.arg(f.Owner))
	}
	if f.Category != "" {
		w.add("category = " + w.arg(f.Category))
	}
	if f.Member != "" {
		w.add(w.arg(f.Member) + " = ANY(members)")
	}
	w.contains(f.Text, "name", "description")
	return w
}

func (r *PlaylistRepository) List(ctx context.Context, f ports.PlaylistFilter, q ports.ListQuery) ([]domain.Playlist, error) {
	return selectDocs(ctx, r.db, "playlists", docCols, playlistWhere(f), orderBy(q.Normalize().Sort, "name"), q, scanPlaylist)
}

func (r *PlaylistRepository) Count(ctx context.Context, f ports.PlaylistFilter) (int, error) {
	return count(ctx, r.db, "playlists", playlistWhere(f))
}
