package domain

import (
	"context"
	"strings"
)

// contextKey is a type for context keys to avoid collisions
type contextKey string

const clientIDKey contextKey = "client_id"

// DefaultClientID scopes records when no client id was supplied
const DefaultClientID = "default"

// WithClientID stores the browsing-context identifier in ctx
func WithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey, strings.TrimSpace(clientID))
}

// GetClientIDFromContext returns the client id, or DefaultClientID when unset
func GetClientIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return DefaultClientID
	}
	if id, ok := ctx.Value(clientIDKey).(string); ok && id != "" {
		return id
	}
	return DefaultClientID
}
