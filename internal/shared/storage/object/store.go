package object

import (
	"context"
	"errors"
	"io"
)

// ErrInvalidKey is returned for keys that would escape the store's root.
var ErrInvalidKey = errors.New("invalid storage key")

// Object describes a stored blob.
type Object struct {
	Key         string
	Size        int64
	ContentType string
}

// Store keeps uploaded resume sources and their extracted text.
type Store interface {
	// Put writes r at key, replacing whatever was there.
	Put(ctx context.Context, key, contentType string, r io.Reader) (Object, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes key; a missing key is not an error.
	Delete(ctx context.Context, key string) error
}
