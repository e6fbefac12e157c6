package sqlite

import (
	"context"
	"database/sql"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

type SongRepository struct {
	db *sql.DB
}

const docCols = "version, doc"

func scanSong(s scanner) (domain.Song, error) {
	var song domain.Song
	var version int64
	if err := decode(s, &song, &version); err != nil {
		return domain.Song{}, err
	}
	song.Version = version
	return song, nil
}

func songColumns(s domain.Song) ([]string, []any) {
	return []string{"title", "artist", "album", "genre", "mood", "uploaded_by", "is_active", "is_featured", "play_count", "created_at"},
		[]any{s.Title, s.Artist, s.Album, string(s.Genre), string(s.Mood), s.UploadedBy, boolInt(s.IsActive), boolInt(s.IsFeatured), s.PlayCount, unixNano(s.CreatedAt)}
}

func (r *SongRepository) GetByID(ctx context.Context, id string) (domain.Song, error) {
	song, err := scanSong(r.db.QueryRowContext(ctx, "SELECT "+docCols+" FROM songs WHERE id = ?", id))
	if err != nil {
		return domain.Song{}, failure("load song", err)
	}
	return song, nil
}

// GetMany returns the songs that exist, in the order of ids.
func (r *SongRepository) GetMany(ctx context.Context, ids []string) ([]domain.Song, error) {
	if len(ids) == 0 {
		return []domain.Song{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, "SELECT "+docCols+" FROM songs WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, failure("load songs", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Song, len(ids))
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, failure("scan song", err)
		}
		byID[song.ID] = song
	}
	if err := rows.Err(); err != nil {
		return nil, failure("iterate songs", err)
	}
	out := make([]domain.Song, 0, len(byID))
	for _, id := range ids {
		if song, ok := byID[id]; ok {
			out = append(out, song)
		}
	}
	return out, nil
}

func (r *SongRepository) Create(ctx context.Context, s domain.Song) error {
	cols, vals := songColumns(s)
	return insert(ctx, r.db, "songs", append([]string{"id"}, cols...), append([]any{s.ID}, vals...), s, s.Version)
}

func (r *SongRepository) Update(ctx context.Context, s domain.Song) (domain.Song, error) {
	cols, vals := songColumns(s)
	if err := update(ctx, r.db, "songs", s.ID, cols, vals, s, s.Version); err != nil {
		return domain.Song{}, err
	}
	s.Version++
	return s, nil
}

func songWhere(f ports.SongFilter) where {
	var w where
	if f.ActiveOnly {
		w.add("is_active = 1")
	}
	if f.FeaturedOnly {
		w.add("is_featured = 1")
	}
	if f.Genre != "" {
		w.add("genre = ?", string(f.Genre))
	}
	if f.Mood != "" {
		w.add("mood = ?", string(f.Mood))
	}
	if f.Artist != "" {
		w.add("artist = ? COLLATE NOCASE", f.Artist)
	}
	if f.UploadedBy != "" {
		w.add("uploaded_by = ?", f.UploadedBy)
	}
	w.contains(f.Text, "title", "artist", "album")
	return w
}

func (r *SongRepository) List(ctx context.Context, f ports.SongFilter, q ports.ListQuery) ([]domain.Song, error) {
	return selectDocs(ctx, r.db, "songs", songWhere(f), orderBy(q.Normalize().Sort, "title"), q, docCols, scanSong)
}

func (r *SongRepository) Count(ctx context.Context, f ports.SongFilter) (int, error) {
	return count(ctx, r.db, "songs", songWhere(f))
}
