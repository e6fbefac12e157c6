package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

type SongRepository struct {
	db DB
}

const docCols = "version, doc"

func scanSong(row pgx.Row) (domain.Song, error) {
	var s domain.Song
	var version int64
	if err := decode(row, &s, &version); err != nil {
		return domain.Song{}, err
	}
	s.Version = version
	return s, nil
}

func songColumns(s domain.Song) ([]string, []any) {
	return []string{"title", "artist", "album", "genre", "mood", "uploaded_by", "is_active", "is_featured", "play_count", "created_at"},
		[]any{s.Title, s.Artist, s.Album, string(s.Genre), string(s.Mood), s.UploadedBy, s.IsActive, s.IsFeatured, s.PlayCount, s.CreatedAt}
}

func (r *SongRepository) GetByID(ctx context.Context, id string) (domain.Song, error) {
	s, err := scanSong(r.db.QueryRow(ctx, "SELECT "+docCols+" FROM songs WHERE id = $1", id))
	if err != nil {
		return domain.Song{}, failure("load song", err)
	}
	return s, nil
}

// GetMany keeps the order of ids and skips the ones that do not exist.
func (r *SongRepository) GetMany(ctx context.Context, ids []string) ([]domain.Song, error) {
	if len(ids) == 0 {
		return []domain.Song{}, nil
	}
	rows, err := r.db.Query(ctx, "SELECT "+docCols+" FROM songs WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, failure("load songs", err)
	}
	defer rows.Close()

	byID := make(map[string]domain.Song, len(ids))
	for rows.Next() {
		s, err := scanSong(rows)
		if err != nil {
			return nil, failure("scan song", err)
		}
		byID[s.ID] = s
	}
	if err := rows.Err(); err != nil {
		return nil, failure("load songs", err)
	}
	out := make([]domain.Song, 0, len(byID))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
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
		w.add("is_active")
	}
	if f.FeaturedOnly {
		w.add("is_featured")
	}
	if f.Genre != "" {
		w.add("genre = " + w.arg(string(f.Genre)))
	}
	if f.Mood != "" {
		w.add("mood = " + w.arg(string(f.Mood)))
	}
	if f.Artist != "" {
		w.add("LOWER(artist) = LOWER(" + w.arg(f.Artist) + ")")
	}
	if f.UploadedBy != "" {
		w.add("uploaded_by = " + w.arg(f.UploadedBy))
	}
	w.contains(f.Text, "title", "artist", "album")
	return w
}

func (r *SongRepository) List(ctx context.Context, f ports.SongFilter, q ports.ListQuery) ([]domain.Song, error) {
	return selectDocs(ctx, r.db, "songs", docCols, songWhere(f), orderBy(q.Normalize().Sort, "title"), q, scanSong)
}

func (r *SongRepository) Count(ctx context.Context, f ports.SongFilter) (int, error) {
	return count(ctx, r.db, "songs", songWhere(f))
}
