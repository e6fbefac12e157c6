// Package memory keeps aggregates in process memory. It backs development
// runs and the service tests, and follows the same contract as the
// database adapters: copies in and out, version-checked updates.
package memory

import (
	"slices"
	"sync"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

type record interface {
	domain.User | domain.Song | domain.Playlist
}

type table[T record] struct {
	mu      sync.RWMutex
	rows    map[string]T
	order   []string
	key     func(T) string
	version func(*T) *int64
	clone   func(T) T
}

func newTable[T record](key func(T) string, version func(*T) *int64, clone func(T) T) *table[T] {
	return &table[T]{rows: make(map[string]T), key: key, version: version, clone: clone}
}

func (t *table[T]) get(id string) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, domain.ErrNotFound
	}
	return t.clone(v), nil
}

func (t *table[T]) create(v T, unique func(existing T) bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.key(v)
	if _, ok := t.rows[id]; ok {
		return domain.ErrAlreadyExists
	}
	if unique != nil {
		for _, existing := range t.rows {
			if unique(existing) {
				return domain.ErrAlreadyExists
			}
		}
	}
	t.rows[id] = t.clone(v)
	t.order = append(t.order, id)
	return nil
}

func (t *table[T]) update(v T, unique func(existing T) bool) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	var zero T
	id := t.key(v)
	stored, ok := t.rows[id]
	if !ok {
		return zero, domain.ErrNotFound
	}
	if *t.version(&stored) != *t.version(&v) {
		return zero, domain.ErrConflict
	}
	if unique != nil {
		for otherID, existing := range t.rows {
			if otherID != id && unique(existing) {
				return zero, domain.ErrAlreadyExists
			}
		}
	}
	v = t.clone(v)
	*t.version(&v)++
	t.rows[id] = v
	return t.clone(v), nil
}

func (t *table[T]) delete(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return domain.ErrNotFound
	}
	delete(t.rows, id)
	t.order = slices.DeleteFunc(t.order, func(v string) bool { return v == id })
	return nil
}

// filter returns matching copies in insertion order.
func (t *table[T]) filter(match func(T) bool) []T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []T
	for _, id := range t.order {
		v := t.rows[id]
		if match(v) {
			out = append(out, t.clone(v))
		}
	}
	return out
}

func page[T any](items []T, q ports.ListQuery) []T {
	if q.Offset >= len(items) {
		return []T{}
	}
	end := min(q.Offset+q.Limit, len(items))
	return items[q.Offset:end]
}
