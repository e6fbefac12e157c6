package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return mr, rdb
}

func TestSessionStore_Lifecycle(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setupRedis(t)
	store := NewSessionStore(rdb)
	now := time.Now()

	sess := ports.Session{ID: "s1", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	require.NoError(t, store.Create(ctx, sess))

	got, err := store.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.True(t, mr.TTL(sessionPrefix+"s1") > 59*time.Minute)

	require.NoError(t, store.Delete(ctx, "s1"))
	_, err = store.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, store.Delete(ctx, "s1"), "deleting twice is fine")

	_, err = store.Get(ctx, "never")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSessionStore_Expiry(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setupRedis(t)
	store := NewSessionStore(rdb)
	now := time.Now()

	require.NoError(t, store.Create(ctx, ports.Session{ID: "s1", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Minute)}))
	mr.FastForward(2 * time.Minute)

	_, err := store.Get(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	err = store.Create(ctx, ports.Session{ID: "s2", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(-time.Second)})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSessionStore_DeleteForUser(t *testing.T) {
	ctx := context.Background()
	_, rdb := setupRedis(t)
	store := NewSessionStore(rdb)
	now := time.Now()

	for _, s := range []ports.Session{
		{ID: "a1", UserID: "A", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
		{ID: "a2", UserID: "A", CreatedAt: now, ExpiresAt: now.Add(2 * time.Hour)},
		{ID: "b1", UserID: "B", CreatedAt: now, ExpiresAt: now.Add(time.Hour)},
	} {
		require.NoError(t, store.Create(ctx, s))
	}

	require.NoError(t, store.DeleteForUser(ctx, "A"))
	for _, id := range []string{"a1", "a2"} {
		_, err := store.Get(ctx, id)
		assert.ErrorIs(t, err, domain.ErrNotFound, id)
	}
	_, err := store.Get(ctx, "b1")
	assert.NoError(t, err)
}

func TestPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	_, rdb := setupRedis(t)

	sub := rdb.Subscribe(ctx, "test.events")
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	pub := NewPublisher(rdb, "test.events")
	ev := domain.Event{Type: domain.EventSongPlayed, SubjectID: "s1", ActorID: "u1", At: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, pub.Publish(ctx, ev))

	select {
	case msg := <-sub.Channel():
		var got domain.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, ev, got)
	case <-time.After(2 * time.Second):
		t.Fatal("event not received")
	}
}

func TestPublisher_Unavailable(t *testing.T) {
	mr, rdb := setupRedis(t)
	mr.Close()
	err := NewPublisher(rdb, "").Publish(context.Background(), domain.Event{Type: domain.EventSongLiked})
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}
