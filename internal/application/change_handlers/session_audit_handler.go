package change_handlers

import (
	"context"

	"marketplace-session-layer/internal/domain"

	"github.com/rs/zerolog"
)

// SessionAuditHandler logs session changes. Tokens never reach the event,
// and the email is only logged at debug level.
type SessionAuditHandler struct {
	logger zerolog.Logger
}

// NewSessionAuditHandler creates a new session audit handler
func NewSessionAuditHandler(logger zerolog.Logger) *SessionAuditHandler {
	return &SessionAuditHandler{
		logger: logger,
	}
}

func (h *SessionAuditHandler) Topic() domain.Topic {
	return domain.TopicSessionUpdated
}

// Handle logs one session change
func (h *SessionAuditHandler) Handle(_ context.Context, event domain.ChangeEvent) error {
	switch {
	case event.Cleared:
		h.logger.Info().Str("clientId", event.ClientID).Msg("All sessions cleared")
	case event.Removed:
		h.logger.Info().Str("clientId", event.ClientID).Str("storeId", event.StoreID).Msg("Session dropped")
	default:
		h.logger.Info().
			Str("clientId", event.ClientID).
			Str("storeId", event.StoreID).
			Str("userId", event.UserID).
			Bool("hasActiveCart", event.ActiveCartID != "").
			Msg("Session recorded")
		h.logger.Debug().Str("storeId", event.StoreID).Str("email", event.Email).Msg("Session identity")
	}
	return nil
}
