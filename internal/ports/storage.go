package ports

import (
	"context"
	"errors"
)

// ErrStorageUnavailable is returned by a backend when no durable storage exists
// in the current execution context
var ErrStorageUnavailable = errors.New("durable storage unavailable")

// KeyValueBackend is the durable byte store underneath the record tables.
// Get reports a missing key with found == false and a nil error.
type KeyValueBackend interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}
