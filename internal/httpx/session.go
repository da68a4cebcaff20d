package httpx

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

// sessionCookie names the anonymous cart-session cookie.
const sessionCookie = "storefront_session"

// ctxKey is an unexported type for context keys in this package, so they
// cannot collide with keys from other packages.
type ctxKey string

const ctxKeySessionID ctxKey = "session_id"

// WithSession ensures every request carries a session ID: an existing cookie
// is reused only when its value parses as a uuid, anything else is replaced
// with a fresh one. The ID keys the cart store; accepting arbitrary
// client-chosen values would let a caller pick its own cart key.
func WithSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionID string

		if c, err := r.Cookie(sessionCookie); err == nil {
			if _, parseErr := uuid.Parse(c.Value); parseErr == nil {
				sessionID = c.Value
			}
		}
		if sessionID == "" {
			sessionID = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    sessionID,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}

		ctx := context.WithValue(r.Context(), ctxKeySessionID, sessionID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionID extracts the session ID placed by WithSession. Comma-ok keeps
// handlers safe when the middleware is absent (direct handler tests).
func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKeySessionID).(string)
	return id
}
