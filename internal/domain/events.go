package domain

import "time"

// Topic names a change notification channel
type Topic string

const (
	TopicCartUpdated    Topic = "cart-updated"
	TopicSessionUpdated Topic = "session-updated"
)

// ChangeEvent is published after a cart or session record was written or removed
type ChangeEvent struct {
	Topic        Topic     `json:"topic"`
	ClientID     string    `json:"clientId"`
	StoreID      string    `json:"storeId"`
	CartID       string    `json:"cartId,omitempty"`
	StoreName    string    `json:"storeName,omitempty"`
	Email        string    `json:"email,omitempty"`
	UserID       string    `json:"userId,omitempty"`
	ActiveCartID string    `json:"activeCartId,omitempty"`
	Removed      bool      `json:"removed,omitempty"`
	Cleared      bool      `json:"cleared,omitempty"` // every record of the client's table was dropped
	OccurredAt   time.Time `json:"occurredAt"`
}
