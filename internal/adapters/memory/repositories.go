package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"
	"time"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

type UserRepository struct{ t *table[domain.User] }

func NewUserRepository() *UserRepository {
	return &UserRepository{t: newTable(
		func(u domain.User) string { return u.ID },
		func(u *domain.User) *int64 { return &u.Version },
		domain.User.Clone,
	)}
}

func sameIdentity(u domain.User) func(domain.User) bool {
	return func(e domain.User) bool {
		return strings.EqualFold(e.Username, u.Username) || strings.EqualFold(e.Email, u.Email)
	}
}

func (r *UserRepository) GetByID(_ context.Context, id string) (domain.User, error) {
	return r.t.get(id)
}

func (r *UserRepository) GetByUsername(_ context.Context, username string) (domain.User, error) {
	found := r.t.filter(func(u domain.User) bool { return strings.EqualFold(u.Username, username) })
	if len(found) == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	return found[0], nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (domain.User, error) {
	found := r.t.filter(func(u domain.User) bool { return strings.EqualFold(u.Email, email) })
	if len(found) == 0 {
		return domain.User{}, domain.ErrNotFound
	}
	return found[0], nil
}

func (r *UserRepository) Create(_ context.Context, u domain.User) error {
	return r.t.create(u, sameIdentity(u))
}

func (r *UserRepository) Update(_ context.Context, u domain.User) (domain.User, error) {
	return r.t.update(u, sameIdentity(u))
}

func matchUser(f ports.UserFilter) func(domain.User) bool {
	text := strings.ToLower(f.Text)
	return func(u domain.User) bool {
		if f.Role != "" && u.Role != f.Role {
			return false
		}
		if f.ActiveOnly && !u.IsActive {
			return false
		}
		if text != "" && !containsAny(text, u.Username, u.Email, u.DisplayName) {
			return false
		}
		return true
	}
}

func (r *UserRepository) List(_ context.Context, f ports.UserFilter, q ports.ListQuery) ([]domain.User, error) {
	q = q.Normalize()
	users := r.t.filter(matchUser(f))
	slices.SortStableFunc(users, func(a, b domain.User) int {
		if q.Sort == ports.SortTitle {
			return cmp.Compare(strings.ToLower(a.Username), strings.ToLower(b.Username))
		}
		return byTime(a.CreatedAt, b.CreatedAt, q.Sort)
	})
	return page(users, q), nil
}

func (r *UserRepository) Count(_ context.Context, f ports.UserFilter) (int, error) {
	return len(r.t.filter(matchUser(f))), nil
}

type SongRepository struct{ t *table[domain.Song] }

func NewSongRepository() *SongRepository {
	return &SongRepository{t: newTable(
		func(s domain.Song) string { return s.ID },
		func(s *domain.Song) *int64 { return &s.Version },
		domain.Song.Clone,
	)}
}

func (r *SongRepository) GetByID(_ context.Context, id string) (domain.Song, error) {
	return r.t.get(id)
}

func (r *SongRepository) GetMany(_ context.Context, ids []string) ([]domain.Song, error) {
	out := make([]domain.Song, 0, len(ids))
	for _, id := range ids {
		if s, err := r.t.get(id); err == nil {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *SongRepository) Create(_ context.Context, s domain.Song) error {
	return r.t.create(s, nil)
}

func (r *SongRepository) Update(_ context.Context, s domain.Song) (domain.Song, error) {
	return r.t.update(s, nil)
}

func matchSong(f ports.SongFilter) func(domain.Song) bool {
	text := strings.ToLower(f.Text)
	return func(s domain.Song) bool {
		switch {
		case f.ActiveOnly && !s.IsActive,
			f.FeaturedOnly && !s.IsFeatured,
			f.Genre != "" && s.Genre != f.Genre,
			f.Mood != "" && s.Mood != f.Mood,
			f.Artist != "" && !strings.EqualFold(s.Artist, f.Artist),
			f.UploadedBy != "" && s.UploadedBy != f.UploadedBy:
			return false
		}
		return text == "" || containsAny(text, s.Title, s.Artist, s.Album)
	}
}

func (r *SongRepository) List(_ context.Context, f ports.SongFilter, q ports.ListQuery) ([]domain.Song, error) {
	q = q.Normalize()
	songs := r.t.filter(matchSong(f))
	slices.SortStableFunc(songs, func(a, b domain.Song) int {
		switch q.Sort {
		case ports.SortPopular:
			if c := cmp.Compare(b.PlayCount, a.PlayCount); c != 0 {
				return c
			}
		case ports.SortTitle:
			return cmp.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
		}
		return byTime(a.CreatedAt, b.CreatedAt, q.Sort)
	})
	return page(songs, q), nil
}

func (r *SongRepository) Count(_ context.Context, f ports.SongFilter) (int, error) {
	return len(r.t.filter(matchSong(f))), nil
}

type PlaylistRepository struct{ t *table[domain.Playlist] }

func NewPlaylistRepository() *PlaylistRepository {
	return &PlaylistRepository{t: newTable(
		func(p domain.Playlist) string { return p.ID },
		func(p *domain.Playlist) *int64 { return &p.Version },
		domain.Playlist.Clone,
	)}
}

func (r *PlaylistRepository) GetByID(_ context.Context, id string) (domain.Playlist, error) {
	return r.t.get(id)
}

func (r *PlaylistRepository) Create(_ context.Context, p domain.Playlist) error {
	return r.t.create(p, nil)
}

func (r *PlaylistRepository) Update(_ context.Context, p domain.Playlist) (domain.Playlist, error) {
	return r.t.update(p, nil)
}

func (r *PlaylistRepository) Delete(_ context.Context, id string) error {
	return r.t.delete(id)
}

func matchPlaylist(f ports.PlaylistFilter) func(domain.Playlist) bool {
	text := strings.ToLower(f.Text)
	return func(p domain.Playlist) bool {
		switch {
		case f.PublicOnly && !p.IsPublic,
			f.FeaturedOnly && !p.IsFeatured,
			f.Owner != "" && p.Owner != f.Owner,
			f.Category != "" && p.Category != f.Category:
			return false
		}
		if f.Member != "" {
			if _, ok := p.Collaborator(f.Member); p.Owner != f.Member && !ok {
				return false
			}
		}
		return text == "" || containsAny(text, p.Name, p.Description)
	}
}

func (r *PlaylistRepository) List(_ context.Context, f ports.PlaylistFilter, q ports.ListQuery) ([]domain.Playlist, error) {
	q = q.Normalize()
	lists := r.t.filter(matchPlaylist(f))
	slices.SortStableFunc(lists, func(a, b domain.Playlist) int {
		switch q.Sort {
		case ports.SortPopular:
			if c := cmp.Compare(b.PlayCount, a.PlayCount); c != 0 {
				return c
			}
		case ports.SortTitle:
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		}
		return byTime(a.CreatedAt, b.CreatedAt, q.Sort)
	})
	return page(lists, q), nil
}

func (r *PlaylistRepository) Count(_ context.Context, f ports.PlaylistFilter) (int, error) {
	return len(r.t.filter(matchPlaylist(f))), nil
}

func byTime(a, b time.Time, sort ports.SortOrder) int {
	if sort == ports.SortOldest {
		return a.Compare(b)
	}
	return b.Compare(a)
}

func containsAny(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
