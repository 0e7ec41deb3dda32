package pubsub

import (
	"context"
	"sync"

	"marketplace-session-layer/internal/domain"
	"marketplace-session-layer/internal/infrastructure/metrics"
	"marketplace-session-layer/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const channelBuffer = 10

// Subscription is a handler registration returned by Subscribe
type Subscription struct {
	ID    string
	Topic domain.Topic

	ps   *ChangePubSub
	once sync.Once
}

// Unsubscribe removes the handler. Calling it more than once is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.ps.removeHandler(s.Topic, s.ID)
	})
}

// ChangeEventChannel represents a streaming subscription
type ChangeEventChannel struct {
	ID     string
	Filter *ChangeEventFilter
	Events chan domain.ChangeEvent
	Done   chan struct{}
	ctx    context.Context
	cancel context.CancelFunc
}

// ChangeEventFilter filters change events
type ChangeEventFilter struct {
	Topics   []domain.Topic // Filter by topics
	ClientID string         // Filter by client
	StoreID  string         // Filter by store
}

type handlerEntry struct {
	id      string
	handler ports.ChangeHandler
}

// ChangePubSub broadcasts cart and session changes to in-process subscribers
type ChangePubSub struct {
	mu       sync.RWMutex
	handlers map[domain.Topic][]handlerEntry
	channels map[string]*ChangeEventChannel
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

var _ ports.ChangeNotifier = (*ChangePubSub)(nil)

// NewChangePubSub creates a new change pub/sub system
func NewChangePubSub(logger zerolog.Logger, m *metrics.Metrics) *ChangePubSub {
	return &ChangePubSub{
		handlers: make(map[domain.Topic][]handlerEntry),
		channels: make(map[string]*ChangeEventChannel),
		logger:   logger.With().Str("component", "pubsub").Logger(),
		metrics:  m,
	}
}

// Subscribe registers handler for topic. Handlers run synchronously inside
// Publish in registration order.
func (ps *ChangePubSub) Subscribe(topic domain.Topic, handler ports.ChangeHandler) ports.Subscription {
	sub := &Subscription{ID: uuid.NewString(), Topic: topic, ps: ps}

	ps.mu.Lock()
	ps.handlers[topic] = append(ps.handlers[topic], handlerEntry{id: sub.ID, handler: handler})
	ps.mu.Unlock()

	ps.logger.Debug().
		Str("subscriptionId", sub.ID).
		Str("topic", string(topic)).
		Msg("Change handler subscribed")

	return sub
}

func (ps *ChangePubSub) removeHandler(topic domain.Topic, id string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	current := ps.handlers[topic]
	kept := make([]handlerEntry, 0, len(current))
	for _, h := range current {
		if h.id != id {
			kept = append(kept, h)
		}
	}
	if len(kept) == 0 {
		delete(ps.handlers, topic)
	} else {
		ps.handlers[topic] = kept
	}

	ps.logger.Debug().
		Str("subscriptionId", id).
		Str("topic", string(topic)).
		Msg("Change handler unsubscribed")
}

// SubscribeChannel creates a buffered streaming subscription that lives until
// ctx is done
func (ps *ChangePubSub) SubscribeChannel(ctx context.Context, filter *ChangeEventFilter) *ChangeEventChannel {
	id := uuid.NewString()
	subCtx, cancel := context.WithCancel(ctx)

	channel := &ChangeEventChannel{
		ID:     id,
		Filter: filter,
		Events: make(chan domain.ChangeEvent, channelBuffer),
		Done:   make(chan struct{}),
		ctx:    subCtx,
		cancel: cancel,
	}

	ps.mu.Lock()
	ps.channels[id] = channel
	ps.mu.Unlock()

	ps.logger.Info().
		Str("channelId", id).
		Interface("filter", filter).
		Msg("Change stream subscription created")

	go func() {
		<-subCtx.Done()
		ps.UnsubscribeChannel(id)
	}()

	return channel
}

// UnsubscribeChannel removes a streaming subscription
func (ps *ChangePubSub) UnsubscribeChannel(channelID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	channel, exists := ps.channels[channelID]
	if !exists {
		return
	}

	close(channel.Events)
	close(channel.Done)
	channel.cancel()
	delete(ps.channels, channelID)

	ps.logger.Info().
		Str("channelId", channelID).
		Msg("Change stream subscription removed")
}

// Publish delivers event to every handler of its topic, then to matching
// streams. A panicking handler does not stop delivery to the others.
func (ps *ChangePubSub) Publish(event domain.ChangeEvent) {
	ps.mu.RLock()
	handlers := make([]handlerEntry, len(ps.handlers[event.Topic]))
	copy(handlers, ps.handlers[event.Topic])
	ps.mu.RUnlock()

	ps.metrics.EventPublished(string(event.Topic))

	for _, h := range handlers {
		ps.deliver(h, event)
	}

	ps.broadcast(event)

	if len(handlers) > 0 {
		ps.logger.Debug().
			Str("topic", string(event.Topic)).
			Str("storeId", event.StoreID).
			Int("subscribers", len(handlers)).
			Msg("Published change event to subscribers")
	}
}

func (ps *ChangePubSub) deliver(h handlerEntry, event domain.ChangeEvent) {
	defer func() {
		if r := recover(); r != nil {
			ps.logger.Error().
				Interface("panic", r).
				Str("subscriptionId", h.id).
				Str("topic", string(event.Topic)).
				Msg("Change handler panicked")
			ps.metrics.HandlerPanic(string(event.Topic))
		}
	}()
	h.handler(event)
}

func (ps *ChangePubSub) broadcast(event domain.ChangeEvent) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, channel := range ps.channels {
		if !ps.matchesFilter(event, channel.Filter) {
			continue
		}
		select {
		case channel.Events <- event:
		case <-channel.ctx.Done():
			// being removed
		default:
			ps.logger.Warn().
				Str("channelId", channel.ID).
				Msg("Channel buffer full, dropping event")
		}
	}
}

// matchesFilter checks if an event matches the subscription filter
func (ps *ChangePubSub) matchesFilter(event domain.ChangeEvent, filter *ChangeEventFilter) bool {
	if filter == nil {
		return true
	}

	if len(filter.Topics) > 0 {
		topicMatch := false
		for _, topic := range filter.Topics {
			if event.Topic == topic {
				topicMatch = true
				break
			}
		}
		if !topicMatch {
			return false
		}
	}

	if filter.ClientID != "" && event.ClientID != filter.ClientID {
		return false
	}
	if filter.StoreID != "" && event.StoreID != filter.StoreID {
		return false
	}

	return true
}

// GetStats returns pub/sub statistics
func (ps *ChangePubSub) GetStats() map[string]interface{} {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	handlers := 0
	for _, hs := range ps.handlers {
		handlers += len(hs)
	}

	return map[string]interface{}{
		"active_handlers":      handlers,
		"active_subscriptions": len(ps.channels),
	}
}
