package ports

import "context"

// RecordTable is one client-scoped table of records keyed by store id.
// Implementations recover storage faults themselves; none of these calls fail.
// Mutations report whether the change reached durable storage.
type RecordTable[T any] interface {
	GetAll(ctx context.Context) map[string]T
	Get(ctx context.Context, storeID string) (T, bool)
	Set(ctx context.Context, storeID string, record T) bool
	Remove(ctx context.Context, storeID string) bool
	Clear(ctx context.Context) bool
}
