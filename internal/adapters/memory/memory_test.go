package memory

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

var t0 = time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

func TestSongRepository_VersionedUpdate(t *testing.T) {
	ctx := context.Background()
	repo := NewSongRepository()
	s := domain.Song{ID: "s1", Title: "One", Artist: "A", Version: 1}
	if err := repo.Create(ctx, s); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, s); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("duplicate create: %v", err)
	}

	a, _ := repo.GetByID(ctx, "s1")
	b, _ := repo.GetByID(ctx, "s1")
	a.IncrementPlayCount()
	saved, err := repo.Update(ctx, a)
	if err != nil {
		t.Fatalf("first update: %v", err)
	}
	if saved.Version != 2 {
		t.Fatalf("version after update: %d", saved.Version)
	}
	b.ToggleLike("u1")
	if _, err := repo.Update(ctx, b); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("stale update: expected conflict, got %v", err)
	}
	got, _ := repo.GetByID(ctx, "s1")
	if got.PlayCount != 1 || len(got.Likes) != 0 {
		t.Fatalf("stale write leaked: %+v", got)
	}
}

func TestSongRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewSongRepository()
	_ = repo.Create(ctx, domain.Song{ID: "s1", Likes: []string{"a"}})
	got, _ := repo.GetByID(ctx, "s1")
	got.Likes[0] = "mutated"
	again, _ := repo.GetByID(ctx, "s1")
	if again.Likes[0] != "a" {
		t.Fatalf("repository handed out shared state")
	}
}

func TestSongRepository_ListFilterSort(t *testing.T) {
	ctx := context.Background()
	repo := NewSongRepository()
	songs := []domain.Song{
		{ID: "1", Title: "Blue Sky", Artist: "Ana", Genre: domain.GenrePop, IsActive: true, PlayCount: 5, CreatedAt: t0},
		{ID: "2", Title: "Red Sun", Artist: "Bo", Genre: domain.GenreRock, IsActive: true, PlayCount: 50, CreatedAt: t0.Add(time.Hour)},
		{ID: "3", Title: "Green Sea", Artist: "Ana", Genre: domain.GenrePop, IsActive: false, PlayCount: 500, CreatedAt: t0.Add(2 * time.Hour)},
		{ID: "4", Title: "Sky High", Artist: "Cy", Genre: domain.GenrePop, IsActive: true, IsFeatured: true, CreatedAt: t0.Add(3 * time.Hour)},
	}
	for _, s := range songs {
		if err := repo.Create(ctx, s); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter ports.SongFilter
		query  ports.ListQuery
		want   []string
	}{
		{name: "trending", filter: ports.SongFilter{ActiveOnly: true}, query: ports.ListQuery{Sort: ports.SortPopular, Limit: 2}, want: []string{"2", "1"}},
		{name: "featured", filter: ports.SongFilter{ActiveOnly: true, FeaturedOnly: true}, want: []string{"4"}},
		{name: "text search", filter: ports.SongFilter{Text: "sky"}, query: ports.ListQuery{Sort: ports.SortOldest}, want: []string{"1", "4"}},
		{name: "genre", filter: ports.SongFilter{Genre: domain.GenrePop}, query: ports.ListQuery{Sort: ports.SortTitle}, want: []string{"1", "3", "4"}},
		{name: "offset past end", query: ports.ListQuery{Offset: 10}, want: []string{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := repo.List(ctx, tc.filter, tc.query)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			ids := make([]string, len(got))
			for i, s := range got {
				ids[i] = s.ID
			}
			if len(ids) != len(tc.want) {
				t.Fatalf("got %v, want %v", ids, tc.want)
			}
			for i := range ids {
				if ids[i] != tc.want[i] {
					t.Fatalf("got %v, want %v", ids, tc.want)
				}
			}
		})
	}
}

func TestUserRepository_Unique(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()
	if err := repo.Create(ctx, domain.User{ID: "u1", Username: "ana", Email: "ana@x.io"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Create(ctx, domain.User{ID: "u2", Username: "ANA", Email: "other@x.io"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("username clash: %v", err)
	}
	if err := repo.Create(ctx, domain.User{ID: "u3", Username: "bo", Email: "ana@x.io"}); !errors.Is(err, domain.ErrAlreadyExists) {
		t.Fatalf("email clash: %v", err)
	}
	u, err := repo.GetByEmail(ctx, "ANA@x.io")
	if err != nil || u.ID != "u1" {
		t.Fatalf("lookup by email: %v %+v", err, u)
	}
}

func TestPlaylistRepository_MemberFilter(t *testing.T) {
	ctx := context.Background()
	repo := NewPlaylistRepository()
	_ = repo.Create(ctx, domain.Playlist{ID: "p1", Owner: "a", CreatedAt: t0})
	_ = repo.Create(ctx, domain.Playlist{ID: "p2", Owner: "b", Collaborators: []domain.Collaborator{{UserID: "a", Role: domain.CollaboratorViewer}}, CreatedAt: t0.Add(time.Hour)})
	_ = repo.Create(ctx, domain.Playlist{ID: "p3", Owner: "b", CreatedAt: t0.Add(2 * time.Hour)})

	got, _ := repo.List(ctx, ports.PlaylistFilter{Member: "a"}, ports.ListQuery{})
	if len(got) != 2 || got[0].ID != "p2" || got[1].ID != "p1" {
		t.Fatalf("member listing: %+v", got)
	}
	if n, _ := repo.Count(ctx, ports.PlaylistFilter{Owner: "b"}); n != 2 {
		t.Fatalf("count: %d", n)
	}
	if err := repo.Delete(ctx, "p1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, "p1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get after delete: %v", err)
	}
}

func TestSessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()
	now := t0
	store.now = func() time.Time { return now }

	_ = store.Create(ctx, ports.Session{ID: "s1", UserID: "u1", ExpiresAt: t0.Add(time.Hour)})
	_ = store.Create(ctx, ports.Session{ID: "s2", UserID: "u1", ExpiresAt: t0.Add(time.Hour)})
	if _, err := store.Get(ctx, "s1"); err != nil {
		t.Fatalf("fresh session: %v", err)
	}
	now = t0.Add(2 * time.Hour)
	if _, err := store.Get(ctx, "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expired session: %v", err)
	}
	now = t0
	_ = store.DeleteForUser(ctx, "u1")
	if _, err := store.Get(ctx, "s2"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("revoked session: %v", err)
	}
}

func TestEventLog_KeepsMostRecent(t *testing.T) {
	ctx := context.Background()
	events := NewEventLog(nil)
	for i := range eventLogCapacity + 5 {
		_ = events.Publish(ctx, domain.Event{Type: domain.EventSongPlayed, SubjectID: strconv.Itoa(i)})
	}

	got := events.Events()
	if len(got) != eventLogCapacity {
		t.Fatalf("retained %d events, want %d", len(got), eventLogCapacity)
	}
	if got[0].SubjectID != "5" || got[len(got)-1].SubjectID != strconv.Itoa(eventLogCapacity+4) {
		t.Fatalf("window = %s..%s", got[0].SubjectID, got[len(got)-1].SubjectID)
	}
}
