package recordstore

import (
	"encoding/json"
	"fmt"
	"time"

	"marketplace-session-layer/internal/domain"
)

// Persisted layouts. Timestamps are epoch milliseconds.

type cartEntry struct {
	CartID    *string `json:"cartId"`
	CreatedAt int64   `json:"createdAt"`
	StoreName string  `json:"storeName,omitempty"`
}

type sessionEntry struct {
	Token        *string `json:"token"`
	Email        string  `json:"email,omitempty"`
	UserID       string  `json:"userId,omitempty"`
	ActiveCartID string  `json:"activeCartId,omitempty"`
	SavedAt      int64   `json:"savedAt"`
}

func encodeCarts(records map[string]domain.CartRecord) ([]byte, error) {
	entries := make(map[string]cartEntry, len(records))
	for storeID, r := range records {
		cartID := r.CartID
		entries[storeID] = cartEntry{
			CartID:    &cartID,
			CreatedAt: toMillis(r.CreatedAt),
			StoreName: r.StoreName,
		}
	}
	return json.Marshal(entries)
}

func decodeCarts(data []byte) (map[string]domain.CartRecord, error) {
	var entries map[string]cartEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode carts: %w", err)
	}

	records := make(map[string]domain.CartRecord, len(entries))
	for storeID, e := range entries {
		if e.CartID == nil {
			return nil, fmt.Errorf("decode carts: entry %q has no cartId", storeID)
		}
		records[storeID] = domain.CartRecord{
			CartID:    *e.CartID,
			CreatedAt: fromMillis(e.CreatedAt),
			StoreName: e.StoreName,
		}
	}
	return records, nil
}

func encodeSessions(records map[string]domain.SessionRecord) ([]byte, error) {
	entries := make(map[string]sessionEntry, len(records))
	for storeID, r := range records {
		token := r.Token
		entries[storeID] = sessionEntry{
			Token:        &token,
			Email:        r.Email,
			UserID:       r.UserID,
			ActiveCartID: r.ActiveCartID,
			SavedAt:      toMillis(r.SavedAt),
		}
	}
	return json.Marshal(entries)
}

func decodeSessions(data []byte) (map[string]domain.SessionRecord, error) {
	var entries map[string]sessionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode sessions: %w", err)
	}

	records := make(map[string]domain.SessionRecord, len(entries))
	for storeID, e := range entries {
		if e.Token == nil {
			return nil, fmt.Errorf("decode sessions: entry %q has no token", storeID)
		}
		records[storeID] = domain.SessionRecord{
			Token:        *e.Token,
			Email:        e.Email,
			UserID:       e.UserID,
			ActiveCartID: e.ActiveCartID,
			SavedAt:      fromMillis(e.SavedAt),
		}
	}
	return records, nil
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
