package object

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
)

// ObjectStore saves and retrieves blobs by key.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) (int64, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// ErrInvalidKey is returned for empty, absolute or traversing keys.
var ErrInvalidKey = errors.New("invalid storage key")

// CleanKey normalizes a slash-separated key and rejects traversal.
func CleanKey(key string) (string, error) {
	k := strings.TrimSpace(key)
	if k == "" || strings.HasPrefix(k, "/") || strings.Contains(k, "\\") {
		return "", ErrInvalidKey
	}
	k = path.Clean(k)
	if k == "." || k == ".." || strings.HasPrefix(k, "../") {
		return "", ErrInvalidKey
	}
	return k, nil
}
