package middleware

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/finsight/internal/api"
)

const SessionIDKey contextKey = "session_id"

const sessionIDHeader = "X-Session-ID"

// RequireSession rejects requests without a session identifier. Sessions
// are the sole isolation boundary: every document and query is scoped to
// the session that created it.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(sessionIDHeader)
		if sessionID == "" {
			api.Error(w, http.StatusBadRequest, "X-Session-ID header is required")
			return
		}

		ctx := context.WithValue(r.Context(), SessionIDKey, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetSessionID returns the session ID from context.
func GetSessionID(ctx context.Context) string {
	sessionID, _ := ctx.Value(SessionIDKey).(string)
	return sessionID
}
