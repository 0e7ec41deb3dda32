package ports

import "marketplace-session-layer/internal/domain"

// ChangeHandler receives change events for one topic
type ChangeHandler func(event domain.ChangeEvent)

// Subscription is the handle returned by Subscribe
type Subscription interface {
	Unsubscribe()
}

// ChangeNotifier broadcasts record store mutations to in-process subscribers
type ChangeNotifier interface {
	Publish(event domain.ChangeEvent)
	Subscribe(topic domain.Topic, handler ChangeHandler) Subscription
}
