package storage

import (
	"context"
	"errors"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("storage: store closed")

// KeyValueStore persists opaque values per owner and key.
// Get reports found=false for a missing key; that is not an error.
type KeyValueStore interface {
	Get(ctx context.Context, owner, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, owner, key string, value []byte) error
	Close() error
}

// OwnerLister enumerates the owners that have a value stored under key.
type OwnerLister interface {
	Owners(ctx context.Context, key string) ([]string, error)
}
