package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/ports"

	"github.com/rs/zerolog"
)

// SessionService keeps the credential each store issued to the client
type SessionService struct {
	sessions ports.RecordTable[domain.SessionRecord]
	notifier ports.ChangeNotifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(
	sessions ports.RecordTable[domain.SessionRecord],
	notifier ports.ChangeNotifier,
	logger zerolog.Logger,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// SessionInput represents input for recording a session
type SessionInput struct {
	Token        string `json:"token"`
	Email        string `json:"email,omitempty"`
	UserID       string `json:"userId,omitempty"`
	ActiveCartID string `json:"activeCartId,omitempty"`
}

// SetSession creates or replaces the session record for storeID
func (s *SessionService) SetSession(ctx context.Context, storeID string, input SessionInput) (domain.SessionRecord, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return domain.SessionRecord{}, fmt.Errorf("%w: store id is required", domain.ErrInvalidRecord)
	}
	if strings.TrimSpace(input.Token) == "" {
		return domain.SessionRecord{}, fmt.Errorf("%w: token is required", domain.ErrInvalidRecord)
	}

	record := domain.SessionRecord{
		Token:        input.Token,
		Email:        strings.TrimSpace(input.Email),
		UserID:       strings.TrimSpace(input.UserID),
		ActiveCartID: strings.TrimSpace(input.ActiveCartID),
		SavedAt:      stamp(s.now),
	}
	if !s.sessions.Set(ctx, storeID, record) {
		return domain.SessionRecord{}, fmt.Errorf("failed to record session for %s: %w", storeID, domain.ErrRecordNotPersisted)
	}

	s.notifier.Publish(domain.ChangeEvent{
		Topic:        domain.TopicSessionUpdated,
		ClientID:     domain.GetClientIDFromContext(ctx),
		StoreID:      storeID,
		Email:        record.Email,
		UserID:       record.UserID,
		ActiveCartID: record.ActiveCartID,
		OccurredAt:   record.SavedAt,
	})

	s.logger.Info().
		Str("clientId", domain.GetClientIDFromContext(ctx)).
		Str("storeId", storeID).
		Msg("Session recorded")

	return record, nil
}

// GetSession returns the session record for storeID
func (s *SessionService) GetSession(ctx context.Context, storeID string) (domain.SessionRecord, bool) {
	return s.sessions.Get(ctx, storeID)
}

// ListSessions returns every session record of the client
func (s *SessionService) ListSessions(ctx context.Context) map[string]domain.SessionRecord {
	return s.sessions.GetAll(ctx)
}

// RemoveSession drops the session record for storeID. It publishes only
// when a record was removed and the table written.
func (s *SessionService) RemoveSession(ctx context.Context, storeID string) bool {
	if !s.sessions.Remove(ctx, storeID) {
		return false
	}

	s.notifier.Publish(domain.ChangeEvent{
		Topic:      domain.TopicSessionUpdated,
		ClientID:   domain.GetClientIDFromContext(ctx),
		StoreID:    storeID,
		Removed:    true,
		OccurredAt: stamp(s.now),
	})

	s.logger.Info().
		Str("clientId", domain.GetClientIDFromContext(ctx)).
		Str("storeId", storeID).
		Msg("Session removed")
	return true
}
