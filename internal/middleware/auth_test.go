package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/rideparty/internal/handlers"
	"github.com/HammerMeetNail/rideparty/internal/models"
)

type fakeSessions struct {
	validateFunc func(ctx context.Context, token string) (*models.Profile, error)
	calls        int
}

func (f *fakeSessions) ValidateSession(ctx context.Context, token string) (*models.Profile, error) {
	f.calls++
	return f.validateFunc(ctx, token)
}

func TestAuthMiddleware_Authenticate(t *testing.T) {
	user := &models.Profile{ID: uuid.New(), Name: "Riley"}

	tests := []struct {
		name      string
		cookie    string
		validate  func(ctx context.Context, token string) (*models.Profile, error)
		wantUser  bool
		wantCalls int
	}{
		{
			name:      "no cookie",
			wantCalls: 0,
		},
		{
			name:   "valid session",
			cookie: "good",
			validate: func(ctx context.Context, token string) (*models.Profile, error) {
				if token != "good" {
					t.Fatalf("unexpected token %q", token)
				}
				return user, nil
			},
			wantUser:  true,
			wantCalls: 1,
		},
		{
			name:   "rejected session",
			cookie: "stale",
			validate: func(ctx context.Context, token string) (*models.Profile, error) {
				return nil, errors.New("session expired")
			},
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := &fakeSessions{validateFunc: tt.validate}
			var got *models.Profile
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = handlers.GetUserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			})

			req := httptest.NewRequest(http.MethodGet, "/api/parties", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: tt.cookie})
			}
			rr := httptest.NewRecorder()
			NewAuthMiddleware(sessions).Authenticate(next).ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Fatalf("expected request to continue, got %d", rr.Code)
			}
			if sessions.calls != tt.wantCalls {
				t.Fatalf("expected %d validate calls, got %d", tt.wantCalls, sessions.calls)
			}
			if tt.wantUser && (got == nil || got.ID != user.ID) {
				t.Fatalf("expected user in context, got %+v", got)
			}
			if !tt.wantUser && got != nil {
				t.Fatalf("expected no user, got %+v", got)
			}
		})
	}
}

func TestAuthMiddleware_RequireAuth(t *testing.T) {
	am := NewAuthMiddleware(nil)

	t.Run("anonymous", func(t *testing.T) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not be called")
		})
		rr := httptest.NewRecorder()
		am.RequireAuth(next).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/api/parties", nil))

		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", rr.Code)
		}
		if rr.Body.String() != `{"error":"Authentication required"}` {
			t.Fatalf("unexpected body %s", rr.Body.String())
		}
	})

	t.Run("authenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/parties", nil)
		req = req.WithContext(handlers.SetUserInContext(req.Context(), &models.Profile{ID: uuid.New()}))
		rr := httptest.NewRecorder()
		am.RequireAuthFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}).ServeHTTP(rr, req)

		if rr.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", rr.Code)
		}
	})
}
