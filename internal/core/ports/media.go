package ports

import (
	"context"
	"io"
	"time"
)

type MediaInfo struct {
	Key         string
	Size        int64
	ContentType string
	ModTime     time.Time
}

// MediaStore holds uploaded audio and images under opaque keys.
// Open returns domain.ErrNotFound for unknown keys.
type MediaStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadSeekCloser, MediaInfo, error)
	Delete(ctx context.Context, key string) error
}
