package ports

import (
	"context"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
)

// SortOrder names the orderings every repository understands.
type SortOrder string

const (
	SortNewest  SortOrder = "newest"  // created_at desc
	SortOldest  SortOrder = "oldest"  // created_at asc
	SortPopular SortOrder = "popular" // play_count desc, then newest
	SortTitle   SortOrder = "title"   // title or name asc
)

const (
	DefaultLimit = 20
	MaxLimit     = 100
)

type ListQuery struct {
	Sort   SortOrder
	Limit  int
	Offset int
}

// Normalize clamps the window and defaults the sort.
func (q ListQuery) Normalize() ListQuery {
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	switch q.Sort {
	case SortNewest, SortOldest, SortPopular, SortTitle:
	default:
		q.Sort = SortNewest
	}
	return q
}

// SongFilter narrows song listings. Text matches title, artist and album.
type SongFilter struct {
	Text         string
	Genre        domain.Genre
	Mood         domain.Mood
	Artist       string
	UploadedBy   string
	ActiveOnly   bool
	FeaturedOnly bool
}

// PlaylistFilter narrows playlist listings. Text matches name and
// description. Member selects playlists owned by or shared with a user.
type PlaylistFilter struct {
	Text         string
	Owner        string
	Member       string
	Category     string
	PublicOnly   bool
	FeaturedOnly bool
}

type UserFilter struct {
	Text       string
	Role       domain.Role
	ActiveOnly bool
}

// Repositories return domain.ErrNotFound for unknown ids, domain.ErrAlreadyExists
// for unique violations and domain.ErrConflict when Update finds a stored
// version different from the one passed in. A successful Update returns the
// aggregate with its new version.

type UserRepository interface {
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByUsername(ctx context.Context, username string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	Create(ctx context.Context, u domain.User) error
	Update(ctx context.Context, u domain.User) (domain.User, error)
	List(ctx context.Context, f UserFilter, q ListQuery) ([]domain.User, error)
	Count(ctx context.Context, f UserFilter) (int, error)
}

type SongRepository interface {
	GetByID(ctx context.Context, id string) (domain.Song, error)
	// GetMany skips ids that do not exist.
	GetMany(ctx context.Context, ids []string) ([]domain.Song, error)
	Create(ctx context.Context, s domain.Song) error
	Update(ctx context.Context, s domain.Song) (domain.Song, error)
	List(ctx context.Context, f SongFilter, q ListQuery) ([]domain.Song, error)
	Count(ctx context.Context, f SongFilter) (int, error)
}

type PlaylistRepository interface {
	GetByID(ctx context.Context, id string) (domain.Playlist, error)
	Create(ctx context.Context, p domain.Playlist) error
	Update(ctx context.Context, p domain.Playlist) (domain.Playlist, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f PlaylistFilter, q ListQuery) ([]domain.Playlist, error)
	Count(ctx context.Context, f PlaylistFilter) (int, error)
}
