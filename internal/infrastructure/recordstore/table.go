package recordstore

import (
	"context"

	"marketplace-session-layer/internal/domain"
)

// Table is one store-id keyed record table
type Table[T any] struct {
	store  *Store
	name   string
	encode func(map[string]T) ([]byte, error)
	decode func([]byte) (map[string]T, error)
}

func newTable[T any](store *Store, name string, encode func(map[string]T) ([]byte, error), decode func([]byte) (map[string]T, error)) *Table[T] {
	return &Table[T]{store: store, name: name, encode: encode, decode: decode}
}

// Name returns the table name
func (t *Table[T]) Name() string {
	return t.name
}

// GetAll returns every record of the client's table. The map is never nil.
func (t *Table[T]) GetAll(ctx context.Context) map[string]T {
	return t.read(ctx)
}

// Get returns the record stored for storeID
func (t *Table[T]) Get(ctx context.Context, storeID string) (T, bool) {
	record, ok := t.read(ctx)[storeID]
	return record, ok
}

// Set creates or overwrites the record for storeID. It reports whether the
// table reached the backend.
func (t *Table[T]) Set(ctx context.Context, storeID string, record T) bool {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	records := t.read(ctx)
	records[storeID] = record
	return t.write(ctx, records)
}

// Remove drops the record for storeID. It reports whether a record was
// removed and the table written; removing an absent key leaves the table
// untouched and returns false.
func (t *Table[T]) Remove(ctx context.Context, storeID string) bool {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	records := t.read(ctx)
	if _, ok := records[storeID]; !ok {
		return false
	}
	delete(records, storeID)
	return t.write(ctx, records)
}

// Clear drops the client's whole table and reports whether the backend
// accepted the delete
func (t *Table[T]) Clear(ctx context.Context) bool {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	clientID := domain.GetClientIDFromContext(ctx)
	if err := t.store.backend.Delete(ctx, t.key(clientID)); err != nil {
		t.store.fault(t.name, clientID, "clear", err)
		return false
	}
	return true
}

func (t *Table[T]) read(ctx context.Context) map[string]T {
	clientID := domain.GetClientIDFromContext(ctx)

	data, found, err := t.store.backend.Get(ctx, t.key(clientID))
	if err != nil {
		t.store.fault(t.name, clientID, "read", err)
		return make(map[string]T)
	}
	if !found || len(data) == 0 {
		return make(map[string]T)
	}

	records, err := t.decode(data)
	if err != nil {
		t.store.corrupt(t.name, clientID, err)
		return make(map[string]T)
	}
	return records
}

func (t *Table[T]) write(ctx context.Context, records map[string]T) bool {
	clientID := domain.GetClientIDFromContext(ctx)

	data, err := t.encode(records)
	if err != nil {
		t.store.fault(t.name, clientID, "encode", err)
		return false
	}
	if err := t.store.backend.Set(ctx, t.key(clientID), data); err != nil {
		t.store.fault(t.name, clientID, "write", err)
		return false
	}
	return true
}

func (t *Table[T]) key(clientID string) string {
	return clientID + ":" + t.name
}
