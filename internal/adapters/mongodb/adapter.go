// Package mongodb stores each aggregate as a document in its own collection.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
)

// caseless compares strings ignoring case for lookups, unique indexes and
// title sorting.
var caseless = &options.Collation{Locale: "en", Strength: 2}

type Adapter struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials uri, pings and ensures the indexes exist.
func Connect(ctx context.Context, uri, database string) (*Adapter, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(10*time.Second))
	if err != nil {
		return nil, fmt.Errorf("mongo: failed to connect: %w: %w", domain.ErrUnavailable, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo: failed to ping: %w: %w", domain.ErrUnavailable, err)
	}
	a := &Adapter{client: client, db: client.Database(database)}
	if err := a.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return a, nil
}

func (a *Adapter) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}

func (a *Adapter) Users() *UserRepository {
	return &UserRepository{c: newCollection(a.db.Collection("users"), userKey)}
}

func (a *Adapter) Songs() *SongRepository {
	return &SongRepository{c: newCollection(a.db.Collection("songs"), songKey)}
}

func (a *Adapter) Playlists() *PlaylistRepository {
	return &PlaylistRepository{c: newCollection(a.db.Collection("playlists"), playlistKey)}
}

func (a *Adapter) ensureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseless)},
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetCollation(caseless)},
		},
		"songs": {
			{Keys: bson.D{{Key: "is_active", Value: 1}, {Key: "play_count", Value: -1}}},
			{Keys: bson.D{{Key: "genre", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
		"playlists": {
			{Keys: bson.D{{Key: "owner", Value: 1}}},
			{Keys: bson.D{{Key: "collaborators.user_id", Value: 1}}},
			{Keys: bson.D{{Key: "is_public", Value: 1}, {Key: "play_count", Value: -1}}},
		},
	}
	for name, models := range indexes {
		if _, err := a.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongo: failed to create %s indexes: %w", name, err)
		}
	}
	return nil
}

func failure(op string, err error) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("mongo: %s: %w", op, domain.ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("mongo: %s: %w", op, domain.ErrAlreadyExists)
	default:
		return fmt.Errorf("mongo: %s: %w: %w", op, domain.ErrUnavailable, err)
	}
}
