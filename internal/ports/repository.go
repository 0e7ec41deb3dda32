package ports

import (
	"context"

	"marketplace-session-layer/internal/domain"
)

// DirectoryRepository defines the interface for store directory persistence.
// The directory is stored and replaced as a whole.
type DirectoryRepository interface {
	Load(ctx context.Context) ([]domain.StoreConfig, error)
	Save(ctx context.Context, stores []domain.StoreConfig) error
}
