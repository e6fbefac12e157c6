// Package redis keeps sessions in Redis and publishes domain events on a
// pub/sub channel.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

const (
	sessionPrefix     = "session:"
	userSessionPrefix = "user_sessions:"
)

// SessionStore expires sessions with Redis TTLs and indexes them per user so
// they can be revoked together.
type SessionStore struct {
	rdb *redis.Client
	now func() time.Time
}

func NewSessionStore(rdb *redis.Client) *SessionStore {
	return &SessionStore{rdb: rdb, now: time.Now}
}

func (s *SessionStore) Create(ctx context.Context, sess ports.Session) error {
	ttl := sess.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return &domain.ValidationError{Field: "expiresAt", Reason: "must be in the future"}
	}
	b, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redis: failed to encode session: %w", err)
	}
	userKey := userSessionPrefix + sess.UserID
	// The per-user index lives as long as its longest session.
	current, err := s.rdb.PTTL(ctx, userKey).Result()
	if err != nil {
		return unavailable("create session", err)
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, sessionPrefix+sess.ID, b, ttl)
		p.SAdd(ctx, userKey, sess.ID)
		if ttl > current {
			p.PExpire(ctx, userKey, ttl)
		}
		return nil
	})
	if err != nil {
		return unavailable("create session", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, id string) (ports.Session, error) {
	b, err := s.rdb.Get(ctx, sessionPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return ports.Session{}, domain.ErrNotFound
	}
	if err != nil {
		return ports.Session{}, unavailable("get session", err)
	}
	var sess ports.Session
	if err := json.Unmarshal(b, &sess); err != nil {
		return ports.Session{}, fmt.Errorf("redis: failed to decode session: %w", err)
	}
	if !s.now().Before(sess.ExpiresAt) {
		return ports.Session{}, domain.ErrNotFound
	}
	return sess, nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	sess, err := s.Get(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, sessionPrefix+id)
		p.SRem(ctx, userSessionPrefix+sess.UserID, id)
		return nil
	})
	if err != nil {
		return unavailable("delete session", err)
	}
	return nil
}

func (s *SessionStore) DeleteForUser(ctx context.Context, userID string) error {
	userKey := userSessionPrefix + userID
	ids, err := s.rdb.SMembers(ctx, userKey).Result()
	if err != nil {
		return unavailable("list user sessions", err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, sessionPrefix+id)
	}
	keys = append(keys, userKey)
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return unavailable("delete user sessions", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return fmt.Errorf("redis: failed to %s: %w: %w", op, domain.ErrUnavailable, err)
}
