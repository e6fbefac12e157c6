// Package media stores uploaded audio and cover images on local disk or in an
// S3-compatible bucket.
package media

import (
	"mime"
	"path"
	"strings"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
)

// cleanKey rejects keys that could escape the store root.
func cleanKey(key string) (string, error) {
	if key == "" || strings.ContainsRune(key, '\\') || strings.ContainsRune(key, 0) {
		return "", &domain.ValidationError{Field: "key", Reason: "is not a valid media key"}
	}
	c := path.Clean(key)
	if path.IsAbs(c) || c == "." || c == ".." || strings.HasPrefix(c, "../") || c != key {
		return "", &domain.ValidationError{Field: "key", Reason: "is not a valid media key"}
	}
	return c, nil
}

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".m4a":  "audio/mp4",
	".aac":  "audio/aac",
}

// contentTypeFor guesses from the extension. The system mime table often lacks
// audio types.
func contentTypeFor(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if t, ok := audioTypes[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		return t
	}
	return "application/octet-stream"
}
