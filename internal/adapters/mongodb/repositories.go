package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

func userKey(u *domain.User) (string, *int64)         { return u.ID, &u.Version }
func songKey(s *domain.Song) (string, *int64)         { return s.ID, &s.Version }
func playlistKey(p *domain.Playlist) (string, *int64) { return p.ID, &p.Version }

type UserRepository struct {
	c *collection[domain.User]
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	return r.c.get(ctx, id)
}

// GetByUsername relies on the caseless collation for case-insensitive
// matching.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.c.findOne(ctx, bson.D{{Key: "username", Value: username}})
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.c.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (r *UserRepository) Create(ctx context.Context, u domain.User) error {
	return r.c.create(ctx, u)
}

func (r *UserRepository) Update(ctx context.Context, u domain.User) (domain.User, error) {
	return r.c.update(ctx, u)
}

func userFilter(f ports.UserFilter) bson.D {
	var fl filter
	if f.Role != "" {
		fl.eq("role", f.Role)
	}
	if f.ActiveOnly {
		fl.eq("is_active", true)
	}
	fl.contains(f.Text, "username", "email", "display_name")
	return fl.doc()
}

func (r *UserRepository) List(ctx context.Context, f ports.UserFilter, q ports.ListQuery) ([]domain.User, error) {
	if q.Sort == ports.SortPopular {
		q.Sort = ports.SortNewest
	}
	return r.c.list(ctx, userFilter(f), q, "username")
}

func (r *UserRepository) Count(ctx context.Context, f ports.UserFilter) (int, error) {
	return r.c.count(ctx, userFilter(f))
}

type SongRepository struct {
	c *collection[domain.Song]
}

func (r *SongRepository) GetByID(ctx context.Context, id string) (domain.Song, error) {
	return r.c.get(ctx, id)
}

// GetMany keeps the order of ids and skips missing songs.
func (r *SongRepository) GetMany(ctx context.Context, ids []string) ([]domain.Song, error) {
	if len(ids) == 0 {
		return []domain.Song{}, nil
	}
	cur, err := r.c.coll.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return nil, failure("load songs", err)
	}
	var found []domain.Song
	if err := cur.All(ctx, &found); err != nil {
		return nil, failure("decode songs", err)
	}
	byID := make(map[string]domain.Song, len(found))
	for _, s := range found {
		byID[s.ID] = s
	}
	out := make([]domain.Song, 0, len(found))
	for _, id := range ids {
		if s, ok := byID[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *SongRepository) Create(ctx context.Context, s domain.Song) error {
	return r.c.create(ctx, s)
}

func (r *SongRepository) Update(ctx context.Context, s domain.Song) (domain.Song, error) {
	return r.c.update(ctx, s)
}

func songFilter(f ports.SongFilter) bson.D {
	var fl filter
	if f.ActiveOnly {
		fl.eq("is_active", true)
	}
	if f.FeaturedOnly {
		fl.eq("is_featured", true)
	}
	if f.Genre != "" {
		fl.eq("genre", f.Genre)
	}
	if f.Mood != "" {
		fl.eq("mood", f.Mood)
	}
	if f.Artist != "" {
		fl.eq("artist", f.Artist)
	}
	if f.UploadedBy != "" {
		fl.eq("uploaded_by", f.UploadedBy)
	}
	fl.contains(f.Text, "title", "artist", "album")
	return fl.doc()
}

func (r *SongRepository) List(ctx context.Context, f ports.SongFilter, q ports.ListQuery) ([]domain.Song, error) {
	return r.c.list(ctx, songFilter(f), q, "title")
}

func (r *SongRepository) Count(ctx context.Context, f ports.SongFilter) (int, error) {
	return r.c.count(ctx, songFilter(f))
}

type PlaylistRepository struct {
	c *collection[domain.Playlist]
}

func (r *PlaylistRepository) GetByID(ctx context.Context, id string) (domain.Playlist, error) {
	return r.c.get(ctx, id)
}

func (r *PlaylistRepository) Create(ctx context.Context, p domain.Playlist) error {
	return r.c.create(ctx, p)
}

func (r *PlaylistRepository) Update(ctx context.Context, p domain.Playlist) (domain.Playlist, error) {
	return r.c.update(ctx, p)
}

func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	return r.c.delete(ctx, id)
}

func playlistFilter(f ports.PlaylistFilter) bson.D {
	var fl filter
	if f.PublicOnly {
		fl.eq("is_public", true)
	}
	if f.FeaturedOnly {
		fl.eq("is_featured", true)
	}
	if f.Owner != "" {
		fl.eq("owner", f.Owner)
	}
	if f.Category != "" {
		fl.eq("category", f.Category)
	}
	if f.Member != "" {
		fl.add(bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: "owner", Value: f.Member}},
			bson.D{{Key: "collaborators.user_id", Value: f.Member}},
		}}})
	}
	fl.contains(f.Text, "name", "description")
	return fl.doc()
}

func (r *PlaylistRepository) List(ctx context.Context, f ports.PlaylistFilter, q ports.ListQuery) ([]domain.Playlist, error) {
	return r.c.list(ctx, playlistFilter(f), q, "name")
}

func (r *PlaylistRepository) Count(ctx context.Context, f ports.PlaylistFilter) (int, error) {
	return r.c.count(ctx, playlistFilter(f))
}
