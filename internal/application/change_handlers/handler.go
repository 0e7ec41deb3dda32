package change_handlers

import (
	"context"

	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/ports"

	"github.com/rs/zerolog"
)

// Handler reacts to change events of one topic
type Handler interface {
	Topic() domain.Topic
	Handle(ctx context.Context, event domain.ChangeEvent) error
}

// Register subscribes every handler to its topic. Handler errors are logged.
// The event's client id is restored into the context the handler runs with.
func Register(notifier ports.ChangeNotifier, logger zerolog.Logger, handlers ...Handler) []ports.Subscription {
	subs := make([]ports.Subscription, 0, len(handlers))
	for _, h := range handlers {
		h := h
		subs = append(subs, notifier.Subscribe(h.Topic(), func(event domain.ChangeEvent) {
			ctx := domain.WithClientID(context.Background(), event.ClientID)
			if err := h.Handle(ctx, event); err != nil {
				logger.Error().
					Err(err).
					Str("topic", string(event.Topic)).
					Str("storeId", event.StoreID).
					Msg("Failed to handle change event")
			}
		}))
	}
	return subs
}
