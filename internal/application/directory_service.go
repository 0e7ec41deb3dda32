package application

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/ports"

	"github.com/rs/zerolog"
)

// DirectoryService owns the ordered store directory. Every mutation is
// validated in full before anything is persisted.
type DirectoryService struct {
	repo   ports.DirectoryRepository
	logger zerolog.Logger

	mu     sync.RWMutex
	stores []domain.StoreConfig
}

// NewDirectoryService creates a new directory service with an empty directory.
// Call Init to load the persisted one.
func NewDirectoryService(repo ports.DirectoryRepository, logger zerolog.Logger) *DirectoryService {
	return &DirectoryService{
		repo:   repo,
		logger: logger,
		stores: []domain.StoreConfig{},
	}
}

// Init loads the persisted directory. When it is empty and seed is not, the
// directory is replaced by seed.
func (s *DirectoryService) Init(ctx context.Context, seed []domain.StoreConfig) error {
	stores, err := s.repo.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load store directory: %w", err)
	}

	if len(stores) == 0 && len(seed) > 0 {
		s.logger.Info().Int("stores", len(seed)).Msg("Seeding empty store directory")
		return s.Save(ctx, seed)
	}

	s.mu.Lock()
	s.stores = domain.CloneStores(stores)
	s.mu.Unlock()

	s.logger.Info().Int("stores", len(stores)).Msg("Loaded store directory")
	return nil
}

// List returns a copy of the directory in order
func (s *DirectoryService) List(_ context.Context) []domain.StoreConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.CloneStores(s.stores)
}

// Get returns the entry at index
func (s *DirectoryService) Get(_ context.Context, index int) (domain.StoreConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if index < 0 || index >= len(s.stores) {
		return domain.StoreConfig{}, domain.ErrStoreIndexOutOfRange
	}
	return s.stores[index], nil
}

// Len returns the number of directory entries
func (s *DirectoryService) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stores)
}

// Save replaces the whole directory. Every entry is validated against the
// ones before it, so a list with repeated URLs is rejected.
func (s *DirectoryService) Save(ctx context.Context, stores []domain.StoreConfig) error {
	next := make([]domain.StoreConfig, 0, len(stores))
	for i, entry := range stores {
		entry = normalizeStore(entry)
		if err := domain.ValidateStore(entry, next, -1); err != nil {
			return fmt.Errorf("store %d: %w", i, err)
		}
		next = append(next, entry)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, next)
}

// Add appends entry to the directory
func (s *DirectoryService) Add(ctx context.Context, entry domain.StoreConfig) (domain.StoreConfig, error) {
	entry = normalizeStore(entry)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := domain.ValidateStore(entry, s.stores, -1); err != nil {
		return domain.StoreConfig{}, err
	}

	next := append(domain.CloneStores(s.stores), entry)
	if err := s.commit(ctx, next); err != nil {
		return domain.StoreConfig{}, err
	}

	s.logger.Info().
		Str("baseUrl", entry.BaseURL).
		Str("platform", string(entry.Platform)).
		Msg("Added store to directory")
	return entry, nil
}

// Update replaces the entry at index in place
func (s *DirectoryService) Update(ctx context.Context, index int, entry domain.StoreConfig) (domain.StoreConfig, error) {
	entry = normalizeStore(entry)

	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.stores) {
		return domain.StoreConfig{}, domain.ErrStoreIndexOutOfRange
	}
	if err := domain.ValidateStore(entry, s.stores, index); err != nil {
		return domain.StoreConfig{}, err
	}

	next := domain.CloneStores(s.stores)
	next[index] = entry
	if err := s.commit(ctx, next); err != nil {
		return domain.StoreConfig{}, err
	}

	s.logger.Info().
		Int("index", index).
		Str("baseUrl", entry.BaseURL).
		Msg("Updated store in directory")
	return entry, nil
}

// Remove deletes the entry at index
func (s *DirectoryService) Remove(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.stores) {
		return domain.ErrStoreIndexOutOfRange
	}

	removed := s.stores[index]
	next := make([]domain.StoreConfig, 0, len(s.stores)-1)
	next = append(next, s.stores[:index]...)
	next = append(next, s.stores[index+1:]...)
	if err := s.commit(ctx, next); err != nil {
		return err
	}

	s.logger.Info().
		Int("index", index).
		Str("baseUrl", removed.BaseURL).
		Msg("Removed store from directory")
	return nil
}

// ApplyIdentity writes remotely resolved identity back into the directory:
// a store id is filled in where the entry has none, and remote logo hints
// replace local ones. It reports whether the directory changed.
func (s *DirectoryService) ApplyIdentity(ctx context.Context, view []domain.ReconciledEntry) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := domain.CloneStores(s.stores)
	changed := false
	for _, resolved := range view {
		for i := range next {
			if next[i].BaseURL != resolved.BaseURL {
				continue
			}
			if next[i].StoreID == "" && resolved.StoreID != "" {
				next[i].StoreID = resolved.StoreID
				changed = true
			}
			if resolved.LogoIcon != "" && next[i].LogoIcon != resolved.LogoIcon {
				next[i].LogoIcon = resolved.LogoIcon
				changed = true
			}
			if resolved.LogoColor != "" && next[i].LogoColor != resolved.LogoColor {
				next[i].LogoColor = resolved.LogoColor
				changed = true
			}
			break
		}
	}

	if !changed {
		return false, nil
	}
	if err := s.commit(ctx, next); err != nil {
		return false, err
	}

	s.logger.Info().Msg("Applied remote store identity to directory")
	return true, nil
}

// commit persists next and swaps it in. Caller holds mu.
func (s *DirectoryService) commit(ctx context.Context, next []domain.StoreConfig) error {
	if err := s.repo.Save(ctx, next); err != nil {
		s.logger.Error().Err(err).Msg("Failed to save store directory")
		return fmt.Errorf("failed to save store directory: %w", err)
	}
	s.stores = next
	return nil
}

func normalizeStore(entry domain.StoreConfig) domain.StoreConfig {
	entry.StoreID = strings.TrimSpace(entry.StoreID)
	entry.BaseURL = strings.TrimSpace(entry.BaseURL)
	entry.Platform = domain.Platform(strings.ToLower(strings.TrimSpace(string(entry.Platform))))
	entry.DisplayName = strings.TrimSpace(entry.DisplayName)
	return entry
}

// ParseStoreSeed parses the comma separated "url|platform[|name]" seed list
func ParseStoreSeed(raw string) ([]domain.StoreConfig, error) {
	var stores []domain.StoreConfig
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}

		parts := strings.Split(item, "|")
		if len(parts) < 2 || len(parts) > 3 {
			return nil, fmt.Errorf("invalid store seed %q: expected url|platform[|name]", item)
		}

		store := domain.StoreConfig{
			BaseURL:  strings.TrimSpace(parts[0]),
			Platform: domain.Platform(strings.TrimSpace(parts[1])),
		}
		if len(parts) == 3 {
			store.DisplayName = strings.TrimSpace(parts[2])
		}
		stores = append(stores, store)
	}
	return stores, nil
}
