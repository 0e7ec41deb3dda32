package middleware

import (
	"net/http"
	"strings"
	"time"

	"marketplace-session-layer/internal/domain"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// ClientIDHeader carries the browsing-context id records are scoped to
const ClientIDHeader = "X-Client-ID"

const maxClientIDLength = 128

// SecurityHeadersMiddleware sets conservative response headers
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			next.ServeHTTP(w, r)
		})
	}
}

// ClientIDMiddleware puts the X-Client-ID header (or the default client) in
// the request context
func ClientIDMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientID := strings.TrimSpace(r.Header.Get(ClientIDHeader))
			if len(clientID) > maxClientIDLength || strings.ContainsAny(clientID, ":/\\") {
				logger.Warn().Str("clientId", clientID).Msg("Rejected malformed client id")
				http.Error(w, "invalid "+ClientIDHeader+" header", http.StatusBadRequest)
				return
			}
			if clientID == "" {
				clientID = domain.DefaultClientID
			}

			ctx := domain.WithClientID(r.Context(), clientID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AuditLoggingMiddleware logs one structured line per request
func AuditLoggingMiddleware(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			event := logger.Info()
			if status >= http.StatusInternalServerError {
				event = logger.Error()
			}
			event.
				Str("requestId", chimiddleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Str("clientId", domain.GetClientIDFromContext(r.Context())).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		})
	}
}
