package media

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
)

func TestCleanKey(t *testing.T) {
	tests := []struct {
		key     string
		wantErr bool
	}{
		{key: "audio/s1.mp3"},
		{key: "covers/s1.png"},
		{key: "", wantErr: true},
		{key: "../etc/passwd", wantErr: true},
		{key: "audio/../../x", wantErr: true},
		{key: "/abs/path", wantErr: true},
		{key: "audio//s1.mp3", wantErr: true},
		{key: `audio\s1.mp3`, wantErr: true},
		{key: "..", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.key, func(t *testing.T) {
			_, err := cleanKey(tc.key)
			if tc.wantErr {
				assert.ErrorIs(t, err, domain.ErrValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestDiskStore_PutOpenDelete(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewDiskStore(root)
	require.NoError(t, err)

	body := "fake mp3 bytes"
	require.NoError(t, s.Put(ctx, "audio/s1.mp3", strings.NewReader(body), int64(len(body)), "audio/mpeg"))

	f, info, err := s.Open(ctx, "audio/s1.mp3")
	require.NoError(t, err)
	assert.Equal(t, int64(len(body)), info.Size)
	assert.Equal(t, "audio/mpeg", info.ContentType)

	_, err = f.Seek(5, io.SeekStart)
	require.NoError(t, err)
	rest, err := io.ReadAll(f)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	assert.Equal(t, body[5:], string(rest))

	require.NoError(t, s.Delete(ctx, "audio/s1.mp3"))
	require.NoError(t, s.Delete(ctx, "audio/s1.mp3"), "deleting a missing key is fine")
	_, _, err = s.Open(ctx, "audio/s1.mp3")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDiskStore_RejectsShortAndTraversal(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s, err := NewDiskStore(root)
	require.NoError(t, err)

	err = s.Put(ctx, "audio/short.mp3", strings.NewReader("abc"), 10, "audio/mpeg")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, statErr := os.Stat(filepath.Join(root, "audio", "short.mp3"))
	assert.True(t, os.IsNotExist(statErr), "truncated upload must not be visible")

	err = s.Put(ctx, "../outside.mp3", strings.NewReader("x"), 1, "audio/mpeg")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestDiskStore_CancelledUpload(t *testing.T) {
	root := t.TempDir()
	s, err := NewDiskStore(root)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = s.Put(ctx, "audio/c.mp3", strings.NewReader("data"), -1, "audio/mpeg")
	assert.ErrorIs(t, err, context.Canceled)
}

// TestMinioStore_Integration runs when MINIO_ENDPOINT points at a server.
func TestMinioStore_Integration(t *testing.T) {
	endpoint := os.Getenv("MINIO_ENDPOINT")
	if endpoint == "" {
		t.Skip("MINIO_ENDPOINT not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := NewMinioStore(ctx, MinioConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
		SecretKey: os.Getenv("MINIO_SECRET_KEY"),
		Bucket:    "tuneforge-test",
	})
	require.NoError(t, err)

	require.NoError(t, s.Put(ctx, "audio/it.mp3", strings.NewReader("abc"), 3, "audio/mpeg"))
	obj, info, err := s.Open(ctx, "audio/it.mp3")
	require.NoError(t, err)
	defer obj.Close()
	assert.Equal(t, int64(3), info.Size)

	require.NoError(t, s.Delete(ctx, "audio/it.mp3"))
	_, _, err = s.Open(ctx, "audio/it.mp3")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
