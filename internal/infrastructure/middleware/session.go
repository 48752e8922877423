package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// SessionHeader lets API clients without cookies address their form state
const SessionHeader = "X-Session-ID"

// SessionMiddleware assigns every browser a session ID held in a cookie.
// The header takes precedence so scripted clients can pick their own ID.
func SessionMiddleware(cookieName string, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sessionID := r.Header.Get(SessionHeader)

			if sessionID == "" {
				if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
					sessionID = c.Value
				}
			}

			if sessionID == "" {
				sessionID = uuid.New().String()
			}

			if r.Header.Get(SessionHeader) == "" {
				http.SetCookie(w, &http.Cookie{
					Name:     cookieName,
					Value:    sessionID,
					Path:     "/",
					MaxAge:   int(ttl.Seconds()),
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, sessionID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSessionID retrieves the session ID from context
func GetSessionID(ctx context.Context) string {
	sessionID, ok := ctx.Value(sessionIDKey).(string)
	if !ok {
		return ""
	}
	return sessionID
}
