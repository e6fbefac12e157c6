package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/adapters/memory"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/policy"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/logger"
)

func init() {
	BcryptCost = bcrypt.MinCost
}

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fixture struct {
	deps      Deps
	users     *memory.UserRepository
	songs     *memory.SongRepository
	playlists *memory.PlaylistRepository
	sessions  *memory.SessionStore
	events    *memory.EventLog
	media     *fakeMedia
	queue     *fakeQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:     memory.NewUserRepository(),
		songs:     memory.NewSongRepository(),
		playlists: memory.NewPlaylistRepository(),
		sessions:  memory.NewSessionStore(),
		events:    memory.NewEventLog(nil),
		media:     newFakeMedia(),
		queue:     &fakeQueue{},
	}
	n := 0
	f.deps = Deps{
		Users:     f.users,
		Songs:     f.songs,
		Playlists: f.playlists,
		Sessions:  f.sessions,
		Media:     f.media,
		Events:    f.events,
		Analysis:  f.queue,
		Log:       logger.NewTestLogger(),
		Now:       func() time.Time { return t0 },
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%04d", n)
		},
	}
	return f
}

func (f *fixture) addUser(t *testing.T, id string, mutate ...func(*domain.User)) policy.Actor {
	t.Helper()
	u, err := domain.NewUser(id, "user_"+id, id+"@example.com", "", t0)
	require.NoError(t, err)
	for _, m := range mutate {
		m(u)
	}
	u.Version = 1
	require.NoError(t, f.users.Create(context.Background(), *u))
	return policy.ActorFor(*u)
}

func (f *fixture) addSong(t *testing.T, id string, duration int, mutate ...func(*domain.Song)) domain.Song {
	t.Helper()
	s := domain.Song{ID: id, Title: "Song " + id, Artist: "Artist", Genre: domain.GenrePop, Duration: duration, IsActive: true, FilePath: "audio/" + id + ".mp3", CreatedAt: t0, Version: 1}
	for _, m := range mutate {
		m(&s)
	}
	require.NoError(t, f.songs.Create(context.Background(), s))
	return s
}

func asAdmin(u *domain.User)   { u.Role = domain.RoleAdmin }
func asPremium(u *domain.User) { u.Subscription = domain.Subscription{Type: domain.PlanPremium, Active: true} }

type fakeMedia struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newFakeMedia() *fakeMedia { return &fakeMedia{files: make(map[string][]byte)} }

func (m *fakeMedia) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[key] = b
	return nil
}

type nopSeekCloser struct{ *bytes.Reader }

func (nopSeekCloser) Close() error { return nil }

func (m *fakeMedia) Open(_ context.Context, key string) (io.ReadSeekCloser, ports.MediaInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.files[key]
	if !ok {
		return nil, ports.MediaInfo{}, domain.ErrNotFound
	}
	return nopSeekCloser{bytes.NewReader(b)}, ports.MediaInfo{Key: key, Size: int64(len(b))}, nil
}

func (m *fakeMedia) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
	return nil
}

func (m *fakeMedia) has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[key]
	return ok
}

type fakeQueue struct {
	jobs []string
}

func (q *fakeQueue) Submit(songID, _ string) bool {
	q.jobs = append(q.jobs, songID)
	return true
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, e domain.Event) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}
