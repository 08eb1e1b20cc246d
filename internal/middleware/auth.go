package middleware

import (
	"context"
	"net/http"

	"github.com/HammerMeetNail/rideparty/internal/handlers"
	"github.com/HammerMeetNail/rideparty/internal/logging"
	"github.com/HammerMeetNail/rideparty/internal/models"
)

const sessionCookieName = "session_token"

// SessionValidator resolves a session token to its profile.
type SessionValidator interface {
	ValidateSession(ctx context.Context, token string) (*models.Profile, error)
}

type AuthMiddleware struct {
	sessions SessionValidator
}

func NewAuthMiddleware(sessions SessionValidator) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// Authenticate validates the session and adds the profile to the context if
// valid. Does not reject unauthenticated requests.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.sessions.ValidateSession(r.Context(), cookie.Value)
		if err != nil {
			logging.Debug("Session rejected", logging.Fields{"error": err})
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(handlers.SetUserInContext(r.Context(), user)))
	})
}

// RequireAuth rejects unauthenticated requests with 401.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handlers.GetUserFromContext(r.Context()) == nil {
			writeJSONError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuthFunc is RequireAuth for a handler function.
func (m *AuthMiddleware) RequireAuthFunc(fn http.HandlerFunc) http.Handler {
	return m.RequireAuth(fn)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
