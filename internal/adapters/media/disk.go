package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/ports"
)

// DiskStore keeps media under a root directory. Writes land in a temporary
// file first so readers never see a partial upload.
type DiskStore struct {
	root string
}

func NewDiskStore(root string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("media: failed to create %s: %w", root, err)
	}
	return &DiskStore{root: root}, nil
}

func (s *DiskStore) path(key string) (string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, filepath.FromSlash(k)), nil
}

func (s *DiskStore) Put(ctx context.Context, key string, r io.Reader, size int64, _ string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("media: failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(p), ".upload-*")
	if err != nil {
		return fmt.Errorf("media: failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, readerWithContext(ctx, r))
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("media: failed to write %s: %w", key, err)
	}
	if size >= 0 && n != size {
		return &domain.ValidationError{Field: "file", Reason: fmt.Sprintf("expected %d bytes, received %d", size, n)}
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("media: failed to store %s: %w", key, err)
	}
	return nil
}

func (s *DiskStore) Open(_ context.Context, key string) (io.ReadSeekCloser, ports.MediaInfo, error) {
	p, err := s.path(key)
	if err != nil {
		return nil, ports.MediaInfo{}, err
	}
	f, err := os.Open(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ports.MediaInfo{}, fmt.Errorf("media: %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, ports.MediaInfo{}, fmt.Errorf("media: failed to open %s: %w", key, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ports.MediaInfo{}, fmt.Errorf("media: failed to stat %s: %w", key, err)
	}
	info := ports.MediaInfo{
		Key:         key,
		Size:        st.Size(),
		ContentType: contentTypeFor(key),
		ModTime:     st.ModTime(),
	}
	return f, info, nil
}

func (s *DiskStore) Delete(_ context.Context, key string) error {
	p, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("media: failed to delete %s: %w", key, err)
	}
	return nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// readerWithContext stops a long copy once ctx is done.
func readerWithContext(ctx context.Context, r io.Reader) io.Reader {
	return ctxReader{ctx: ctx, r: r}
}
