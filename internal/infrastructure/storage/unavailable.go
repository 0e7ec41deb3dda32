package storage

import (
	"context"

	"marketplace-session-layer/internal/ports"
)

// Unavailable stands in when no durable storage exists; every call fails
// with ports.ErrStorageUnavailable
type Unavailable struct{}

var _ ports.KeyValueBackend = Unavailable{}

func (Unavailable) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, ports.ErrStorageUnavailable
}

func (Unavailable) Set(context.Context, string, []byte) error {
	return ports.ErrStorageUnavailable
}

func (Unavailable) Delete(context.Context, string) error {
	return ports.ErrStorageUnavailable
}

func (Unavailable) Close() error { return nil }
