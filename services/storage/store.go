// Package storage keeps uploaded files outside the database. Callers hold only
// the key returned by Put.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"github.com/tech-arch1tect/seminary/internal/apperr"
)

var (
	ErrNotFound   = apperr.NotFound("file not found")
	ErrInvalidKey = errors.New("invalid storage key")
)

type Store interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// CleanKey normalizes a slash separated key and rejects keys that escape the
// store root.
func CleanKey(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean("/" + key)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(key, "/") {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}
