// Package recordstore persists the per-client cart and session tables.
//
// Each table is one JSON document per client in a ports.KeyValueBackend,
// keyed "<clientID>:<table>". Storage faults never reach callers: when the
// backend is unavailable reads return an empty mapping and writes do nothing,
// and a document that does not decode is read as empty until the next write
// replaces it.
package recordstore

import (
	"context"
	"errors"
	"sync"

	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/infrastructure/metrics"
	"marketplace-session-layer/internal/ports"

	"github.com/rs/zerolog"
)

const (
	CartsTable    = "carts"
	SessionsTable = "sessions"
)

// Store owns the cart and session tables
type Store struct {
	backend ports.KeyValueBackend
	logger  zerolog.Logger
	metrics *metrics.Metrics

	// writes are read-modify-write over a whole table
	mu sync.Mutex

	carts    *Table[domain.CartRecord]
	sessions *Table[domain.SessionRecord]
}

// Open builds the store over backend and probes the default client's tables
// so an unavailable or corrupt backend is reported once at startup.
func Open(ctx context.Context, backend ports.KeyValueBackend, logger zerolog.Logger, m *metrics.Metrics) *Store {
	s := &Store{
		backend: backend,
		logger:  logger.With().Str("component", "recordstore").Logger(),
		metrics: m,
	}
	s.carts = newTable(s, CartsTable, encodeCarts, decodeCarts)
	s.sessions = newTable(s, SessionsTable, encodeSessions, decodeSessions)

	probeCtx := domain.WithClientID(ctx, domain.DefaultClientID)
	carts := s.carts.GetAll(probeCtx)
	sessions := s.sessions.GetAll(probeCtx)
	s.logger.Info().
		Int("carts", len(carts)).
		Int("sessions", len(sessions)).
		Msg("Record store opened")

	return s
}

// Carts returns the cart table
func (s *Store) Carts() *Table[domain.CartRecord] {
	return s.carts
}

// Sessions returns the session table
func (s *Store) Sessions() *Table[domain.SessionRecord] {
	return s.sessions
}

// Close flushes and releases the backend
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to close record backend")
		return err
	}
	s.logger.Info().Msg("Record store closed")
	return nil
}

func (s *Store) fault(table, clientID, op string, err error) {
	kind := "io"
	if errors.Is(err, ports.ErrStorageUnavailable) {
		kind = "unavailable"
		// expected in contexts without storage; keep the log quiet
		s.logger.Debug().Str("table", table).Str("clientId", clientID).Str("op", op).Msg("Storage unavailable")
	} else {
		s.logger.Warn().Err(err).Str("table", table).Str("clientId", clientID).Str("op", op).Msg("Record storage fault")
	}
	s.metrics.RecordStoreFault(table, kind)
}

func (s *Store) corrupt(table, clientID string, err error) {
	s.logger.Warn().Err(err).Str("table", table).Str("clientId", clientID).Msg("Discarding malformed record table")
	s.metrics.RecordStoreFault(table, "corrupt")
}
