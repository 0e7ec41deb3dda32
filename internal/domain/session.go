package domain

import "time"

// CartRecord is the locally persisted pointer to a store's active cart
type CartRecord struct {
	CartID    string    `json:"cartId"`
	CreatedAt time.Time `json:"createdAt"`
	StoreName string    `json:"storeName,omitempty"`
}

// SessionRecord holds the credential a store issued to this client
type SessionRecord struct {
	Token        string    `json:"token"`
	Email        string    `json:"email,omitempty"`
	UserID       string    `json:"userId,omitempty"`
	ActiveCartID string    `json:"activeCartId,omitempty"`
	SavedAt      time.Time `json:"savedAt"`
}

// RemoteCartInfo is what a store's API reports about itself and the client's cart.
// Empty fields are absent.
type RemoteCartInfo struct {
	StoreID   string   `json:"storeId,omitempty"`
	StoreName string   `json:"storeName,omitempty"`
	LogoIcon  string   `json:"logoIcon,omitempty"`
	LogoColor string   `json:"logoColor,omitempty"`
	BaseURL   string   `json:"baseUrl,omitempty"`
	Platform  Platform `json:"platform,omitempty"`
	CartID    string   `json:"cartId,omitempty"`
}

// ReconciledEntry is one row of the display view: a directory entry joined
// with whatever the matching remote record supplied
type ReconciledEntry struct {
	StoreID     string   `json:"storeId"`
	BaseURL     string   `json:"baseUrl"`
	Platform    Platform `json:"platform"`
	DisplayName string   `json:"displayName"`
	LogoIcon    string   `json:"logoIcon,omitempty"`
	LogoColor   string   `json:"logoColor,omitempty"`
	CartID      string   `json:"cartId,omitempty"`
	HasCart     bool     `json:"hasCart"`
}
