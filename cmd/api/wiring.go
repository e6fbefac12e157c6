package main

import (
	"context"
	"fmt"
	"log/slog"

	goredis "github.com/redis/go-redis/v9"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/adapters/kafka"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/adapters/media"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/adapters/memory"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/adapters/mongodb"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/adapters/postgres"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/adapters/redis"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/adapters/sqlite"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/config"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

// closeStack releases adapters in reverse order of opening.
type closeStack []func() error

func (c *closeStack) push(fn func() error) { *c = append(*c, fn) }

func (c *closeStack) closeAll(log *slog.Logger) {
	for i := len(*c) - 1; i >= 0; i-- {
		if err := (*c)[i](); err != nil {
			log.Warn("close failed", "error", err)
		}
	}
}

type repositories struct {
	users     ports.UserRepository
	songs     ports.SongRepository
	playlists ports.PlaylistRepository
}

func openStorage(ctx context.Context, cfg *config.Config, closers *closeStack) (repositories, error) {
	switch cfg.StorageDriver {
	case "sqlite":
		db, err := sqlite.NewAdapter(cfg.SQLitePath)
		if err != nil {
			return repositories{}, fmt.Errorf("failed to initialize sqlite: %w", err)
		}
		closers.push(db.Close)
		return repositories{db.Users(), db.Songs(), db.Playlists()}, nil
	case "postgres":
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return repositories{}, fmt.Errorf("failed to initialize postgres: %w", err)
		}
		closers.push(db.Close)
		return repositories{db.Users(), db.Songs(), db.Playlists()}, nil
	case "mongo", "mongodb":
		db, err := mongodb.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return repositories{}, fmt.Errorf("failed to initialize mongo: %w", err)
		}
		closers.push(func() error { return db.Close(context.Background()) })
		return repositories{db.Users(), db.Songs(), db.Playlists()}, nil
	case "memory":
		return repositories{memory.NewUserRepository(), memory.NewSongRepository(), memory.NewPlaylistRepository()}, nil
	}
	return repositories{}, fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver)
}

// redisConn opens one client on first use and shares it between the session
// store and the event publisher.
type redisConn struct {
	cfg     *config.Config
	closers *closeStack
	client  *goredis.Client
}

func (c *redisConn) get(ctx context.Context) (*goredis.Client, error) {
	if c.client != nil {
		return c.client, nil
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:     c.cfg.RedisAddr,
		Password: c.cfg.RedisPassword,
		DB:       c.cfg.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis at %s: %w", c.cfg.RedisAddr, err)
	}
	c.closers.push(rdb.Close)
	c.client = rdb
	return rdb, nil
}

func openSessions(ctx context.Context, cfg *config.Config, rc *redisConn) (ports.SessionStore, error) {
	switch cfg.SessionDriver {
	case "redis":
		rdb, err := rc.get(ctx)
		if err != nil {
			return nil, err
		}
		return redis.NewSessionStore(rdb), nil
	case "memory":
		return memory.NewSessionStore(), nil
	}
	return nil, fmt.Errorf("unknown session driver: %s", cfg.SessionDriver)
}

func openEvents(ctx context.Context, cfg *config.Config, log *slog.Logger, rc *redisConn, closers *closeStack) (ports.EventPublisher, error) {
	switch cfg.EventsDriver {
	case "log":
		return memory.NewEventLog(log), nil
	case "redis":
		rdb, err := rc.get(ctx)
		if err != nil {
			return nil, err
		}
		return redis.NewPublisher(rdb, redis.DefaultChannel), nil
	case "kafka":
		p := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		closers.push(p.Close)
		return p, nil
	}
	return nil, fmt.Errorf("unknown events driver: %s", cfg.EventsDriver)
}

func openMedia(ctx context.Context, cfg *config.Config) (ports.MediaStore, error) {
	switch cfg.MediaDriver {
	case "disk":
		return media.NewDiskStore(cfg.MediaDir)
	case "minio":
		return media.NewMinioStore(ctx, media.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
		})
	}
	return nil, fmt.Errorf("unknown media driver: %s", cfg.MediaDriver)
}
