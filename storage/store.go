// Package storage keeps menu item images either on local disk or in S3.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrEmptyKey = errors.New("storage: empty object key")

// Store persists binary objects under string keys.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, contentType string) error
	URL(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}
