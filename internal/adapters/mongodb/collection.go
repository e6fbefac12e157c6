package mongodb

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

// keyFunc exposes the id and version of an aggregate.
type keyFunc[T any] func(*T) (id string, version *int64)

// collection holds the versioned document operations shared by every
// repository.
type collection[T any] struct {
	coll *mongo.Collection
	key  keyFunc[T]
}

func newCollection[T any](coll *mongo.Collection, key keyFunc[T]) *collection[T] {
	return &collection[T]{coll: coll, key: key}
}

func (c *collection[T]) findOne(ctx context.Context, filter bson.D) (T, error) {
	var v T
	err := c.coll.FindOne(ctx, filter, options.FindOne().SetCollation(caseless)).Decode(&v)
	if err != nil {
		return v, failure("find "+c.coll.Name(), err)
	}
	return v, nil
}

func (c *collection[T]) get(ctx context.Context, id string) (T, error) {
	return c.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (c *collection[T]) create(ctx context.Context, v T) error {
	if _, err := c.coll.InsertOne(ctx, v); err != nil {
		return failure("insert "+c.coll.Name(), err)
	}
	return nil
}

// update replaces the document only if the stored version still matches.
func (c *collection[T]) update(ctx context.Context, v T) (T, error) {
	id, version := c.key(&v)
	expected := *version
	*version = expected + 1
	res, err := c.coll.ReplaceOne(ctx, bson.D{{Key: "_id", Value: id}, {Key: "version", Value: expected}}, v)
	if err != nil {
		var zero T
		return zero, failure("update "+c.coll.Name(), err)
	}
	if res.MatchedCount == 1 {
		return v, nil
	}
	var zero T
	n, err := c.coll.CountDocuments(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return zero, failure("update "+c.coll.Name(), err)
	}
	if n == 0 {
		return zero, fmt.Errorf("mongo: update %s: %w", c.coll.Name(), domain.ErrNotFound)
	}
	return zero, fmt.Errorf("mongo: update %s: %w", c.coll.Name(), domain.ErrConflict)
}

func (c *collection[T]) delete(ctx context.Context, id string) error {
	res, err := c.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return failure("delete "+c.coll.Name(), err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("mongo: delete %s: %w", c.coll.Name(), domain.ErrNotFound)
	}
	return nil
}

func (c *collection[T]) list(ctx context.Context, filter bson.D, q ports.ListQuery, titleField string) ([]T, error) {
	q = q.Normalize()
	opts := options.Find().
		SetSort(sortFor(q.Sort, titleField)).
		SetSkip(int64(q.Offset)).
		SetLimit(int64(q.Limit)).
		SetCollation(caseless)
	cur, err := c.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, failure("list "+c.coll.Name(), err)
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, failure("decode "+c.coll.Name(), err)
	}
	return out, nil
}

func (c *collection[T]) count(ctx context.Context, filter bson.D) (int, error) {
	n, err := c.coll.CountDocuments(ctx, filter, options.Count().SetCollation(caseless))
	if err != nil {
		return 0, failure("count "+c.coll.Name(), err)
	}
	return int(n), nil
}

func sortFor(sort ports.SortOrder, titleField string) bson.D {
	switch sort {
	case ports.SortOldest:
		return bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}
	case ports.SortPopular:
		return bson.D{{Key: "play_count", Value: -1}, {Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	case ports.SortTitle:
		return bson.D{{Key: titleField, Value: 1}, {Key: "_id", Value: 1}}
	default:
		return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
	}
}

// filter collects conditions that all have to hold.
type filter []bson.D

func (f *filter) eq(field string, v any) { *f = append(*f, bson.D{{Key: field, Value: v}}) }

func (f *filter) add(cond bson.D) { *f = append(*f, cond) }

// contains matches text literally and case-insensitively in any field.
func (f *filter) contains(text string, fields ...string) {
	if text == "" {
		return
	}
	re := primitive.Regex{Pattern: regexp.QuoteMeta(text), Options: "i"}
	or := bson.A{}
	for _, field := range fields {
		or = append(or, bson.D{{Key: field, Value: re}})
	}
	f.add(bson.D{{Key: "$or", Value: or}})
}

func (f filter) doc() bson.D {
	switch len(f) {
	case 0:
		return bson.D{}
	case 1:
		return f[0]
	}
	all := bson.A{}
	for _, c := range f {
		all = append(all, c)
	}
	return bson.D{{Key: "$and", Value: all}}
}
