package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/ports"

	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
)

// directoryFile is the TOML layout:
//
//	[[stores]]
//	base_url = "https://shop.example.com"
//	platform = "shopify"
type directoryFile struct {
	Stores []domain.StoreConfig `toml:"stores"`
}

// FileDirectoryRepository implements DirectoryRepository on a TOML file
type FileDirectoryRepository struct {
	path   string
	logger zerolog.Logger
}

// NewFileDirectoryRepository creates a repository backed by the file at path
func NewFileDirectoryRepository(path string, logger zerolog.Logger) ports.DirectoryRepository {
	return &FileDirectoryRepository{
		path:   path,
		logger: logger,
	}
}

// Load reads the directory. A missing file is an empty directory, and so is
// a file that does not parse.
func (r *FileDirectoryRepository) Load(_ context.Context) ([]domain.StoreConfig, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []domain.StoreConfig{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read store directory: %w", err)
	}

	var file directoryFile
	if err := toml.Unmarshal(data, &file); err != nil {
		r.logger.Warn().Err(err).Str("path", r.path).Msg("Ignoring unparseable store directory")
		return []domain.StoreConfig{}, nil
	}
	if file.Stores == nil {
		return []domain.StoreConfig{}, nil
	}
	return file.Stores, nil
}

// Save writes the whole directory atomically
func (r *FileDirectoryRepository) Save(_ context.Context, stores []domain.StoreConfig) error {
	data, err := toml.Marshal(directoryFile{Stores: stores})
	if err != nil {
		return fmt.Errorf("failed to encode store directory: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".stores-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write store directory: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write store directory: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace store directory: %w", err)
	}

	r.logger.Debug().Str("path", r.path).Int("stores", len(stores)).Msg("Saved store directory")
	return nil
}
