package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/rideparty/internal/models"
	"github.com/HammerMeetNail/rideparty/internal/notify"
	"github.com/HammerMeetNail/rideparty/internal/services"
	"github.com/HammerMeetNail/rideparty/internal/testutil"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		errMsg   string
	}{
		{name: "valid password", password: "SecurePass123"},
		{name: "exactly 8 characters", password: "Secure1a"},
		{name: "at max length 72 bytes", password: "Aa1" + strings.Repeat("x", 69)},
		{name: "unicode characters", password: "Sécure1Pass"},
		{name: "too short", password: "Pass1", errMsg: "password must be at least 8 characters"},
		{name: "too long", password: "Aa1" + strings.Repeat("x", 70), errMsg: "password must be at most 72 bytes"},
		{name: "no uppercase", password: "securepass123", errMsg: "password must contain at least one uppercase letter, one lowercase letter, and one digit"},
		{name: "no digit", password: "SecurePassword", errMsg: "password must contain at least one uppercase letter, one lowercase letter, and one digit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validatePassword(tt.password)
			if tt.errMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || err.Error() != tt.errMsg {
				t.Fatalf("expected error %q, got %v", tt.errMsg, err)
			}
		})
	}
}

func TestAuthHandler_Register_Validation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		message string
	}{
		{"invalid body", "{", "Invalid request body"},
		{"invalid email", `{"email":"nope","password":"SecurePass123","name":"Sam"}`, "email must be a valid email address"},
		{"missing name", `{"email":"sam@example.com","password":"SecurePass123"}`, "name is required"},
		{"short name", `{"email":"sam@example.com","password":"SecurePass123","name":" S "}`, "name must be at least 2"},
		{"weak password", `{"email":"sam@example.com","password":"weak","name":"Sam"}`, "password must be at least 8 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := &mockProfileService{CreateFunc: func(ctx context.Context, params models.CreateProfileParams) (*models.Profile, error) {
				t.Fatal("Create should not be called")
				return nil, nil
			}}
			handler := NewAuthHandler(profiles, &mockAuthService{}, nil, false)

			rr := httptest.NewRecorder()
			handler.Register(rr, testutil.NewTestRequest(http.MethodPost, "/api/auth/register", tt.body))

			assertErrorResponse(t, rr, http.StatusBadRequest, tt.message)
		})
	}
}

func TestAuthHandler_Register_Success(t *testing.T) {
	created := testutil.NewStudent("Sam", "State")
	profiles := &mockProfileService{
		CreateFunc: func(ctx context.Context, params models.CreateProfileParams) (*models.Profile, error) {
			if params.Email != "sam@example.com" {
				t.Fatalf("expected normalized email, got %q", params.Email)
			}
			if params.PasswordHash != "hashed_password" {
				t.Fatalf("unexpected password hash: %s", params.PasswordHash)
			}
			if params.University == nil || *params.University != "State" {
				t.Fatalf("expected university to be passed through, got %v", params.University)
			}
			return created, nil
		},
	}
	auth := &mockAuthService{
		HashPasswordFunc: func(password string) (string, error) {
			return "hashed_password", nil
		},
		CreateSessionFunc: func(ctx context.Context, userID uuid.UUID) (string, error) {
			if userID != created.ID {
				t.Fatalf("unexpected user id: %s", userID)
			}
			return "session-token", nil
		},
	}
	handler := NewAuthHandler(profiles, auth, nil, false)

	req := testutil.NewTestRequestWithJSON(t, http.MethodPost, "/api/auth/register", RegisterRequest{
		Email:      "  Sam@Example.com ",
		Password:   "SecurePass123",
		Name:       "Sam",
		University: testutil.Ptr("State"),
	})
	rr := httptest.NewRecorder()
	handler.Register(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusCreated)
	var response AuthResponse
	testutil.DecodeJSON(t, rr, &response)
	if response.User == nil || response.User.ID != created.ID {
		t.Fatalf("expected returned user %s", created.ID)
	}
	cookie := findCookie(rr, sessionCookieName)
	if cookie == nil || cookie.Value != "session-token" {
		t.Fatalf("expected session cookie, got %+v", cookie)
	}
}

func TestAuthHandler_Register_Failures(t *testing.T) {
	body := `{"email":"sam@example.com","password":"SecurePass123","name":"Sam"}`
	tests := []struct {
		name    string
		auth    *mockAuthService
		create  error
		status  int
		message string
	}{
		{
			name:    "hash error",
			auth:    &mockAuthService{HashPasswordFunc: func(string) (string, error) { return "", errors.New("hash error") }},
			status:  http.StatusInternalServerError,
			message: "Internal server error",
		},
		{
			name:    "duplicate email",
			auth:    &mockAuthService{},
			create:  services.ErrEmailAlreadyExists,
			status:  http.StatusConflict,
			message: "Email already registered",
		},
		{
			name:    "create error",
			auth:    &mockAuthService{},
			create:  errors.New("db down"),
			status:  http.StatusInternalServerError,
			message: "Internal server error",
		},
		{
			name: "session error",
			auth: &mockAuthService{CreateSessionFunc: func(context.Context, uuid.UUID) (string, error) {
				return "", errors.New("redis down")
			}},
			status:  http.StatusInternalServerError,
			message: "Internal server error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := &mockProfileService{CreateFunc: func(ctx context.Context, params models.CreateProfileParams) (*models.Profile, error) {
				if tt.create != nil {
					return nil, tt.create
				}
				return testutil.NewProfile("Sam"), nil
			}}
			handler := NewAuthHandler(profiles, tt.auth, nil, false)

			rr := httptest.NewRecorder()
			handler.Register(rr, testutil.NewTestRequest(http.MethodPost, "/api/auth/register", body))

			assertErrorResponse(t, rr, tt.status, tt.message)
		})
	}
}

func TestAuthHandler_Login(t *testing.T) {
	user := testutil.NewProfile("Sam")
	user.PasswordHash = "stored-hash"

	tests := []struct {
		name    string
		body    string
		lookup  error
		verify  bool
		session error
		status  int
		message string
	}{
		{name: "invalid body", body: "{", status: http.StatusBadRequest, message: "Invalid request body"},
		{name: "unknown email", body: `{"email":"x@example.com","password":"p"}`, lookup: services.ErrUserNotFound, status: http.StatusUnauthorized, message: "Invalid email or password"},
		{name: "lookup error", body: `{"email":"x@example.com","password":"p"}`, lookup: errors.New("db"), status: http.StatusInternalServerError, message: "Internal server error"},
		{name: "wrong password", body: `{"email":"x@example.com","password":"p"}`, status: http.StatusUnauthorized, message: "Invalid email or password"},
		{name: "session error", body: `{"email":"x@example.com","password":"p"}`, verify: true, session: errors.New("redis"), status: http.StatusInternalServerError, message: "Internal server error"},
		{name: "success", body: `{"email":" X@example.com","password":"p"}`, verify: true, status: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profiles := &mockProfileService{GetByEmailFunc: func(ctx context.Context, email string) (*models.Profile, error) {
				if email != "x@example.com" {
					t.Fatalf("expected normalized email, got %q", email)
				}
				if tt.lookup != nil {
					return nil, tt.lookup
				}
				return user, nil
			}}
			auth := &mockAuthService{
				VerifyPasswordFunc: func(hash, password string) bool {
					if hash != "stored-hash" {
						t.Fatalf("unexpected hash %q", hash)
					}
					return tt.verify
				},
				CreateSessionFunc: func(ctx context.Context, userID uuid.UUID) (string, error) {
					return "tok", tt.session
				},
			}
			handler := NewAuthHandler(profiles, auth, nil, false)

			rr := httptest.NewRecorder()
			handler.Login(rr, testutil.NewTestRequest(http.MethodPost, "/api/auth/login", tt.body))

			if tt.message != "" {
				assertErrorResponse(t, rr, tt.status, tt.message)
				return
			}
			testutil.AssertStatusCode(t, rr, tt.status)
			var response AuthResponse
			testutil.DecodeJSON(t, rr, &response)
			if response.User == nil || response.User.ID != user.ID {
				t.Fatalf("expected user %s in response", user.ID)
			}
			if findCookie(rr, sessionCookieName) == nil {
				t.Fatal("expected session cookie")
			}
		})
	}
}

func TestAuthHandler_Logout_ClearsSessionAndNotifications(t *testing.T) {
	user := testutil.NewProfile("Sam")
	registry := notify.NewRegistry(10)
	registry.For(user.ID).Add(models.Notification{ID: "n1", Message: "hello"})

	var deleted string
	auth := &mockAuthService{DeleteSessionFunc: func(ctx context.Context, token string) error {
		deleted = token
		return nil
	}}
	handler := NewAuthHandler(nil, auth, registry, false)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "tok"})
	req = req.WithContext(SetUserInContext(req.Context(), user))
	rr := httptest.NewRecorder()
	handler.Logout(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	if deleted != "tok" {
		t.Fatalf("expected session tok to be deleted, got %q", deleted)
	}
	if registry.For(user.ID).Len() != 0 {
		t.Fatal("expected notifications to be dropped on logout")
	}
	cookie := findCookie(rr, sessionCookieName)
	if cookie == nil || cookie.MaxAge != -1 {
		t.Fatalf("expected cleared cookie, got %+v", cookie)
	}
}

func TestAuthHandler_Logout_NoCookie(t *testing.T) {
	handler := NewAuthHandler(nil, nil, nil, false)

	rr := httptest.NewRecorder()
	handler.Logout(rr, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	testutil.AssertJSONContains(t, rr.Body.Bytes(), "message", "Logged out successfully")
}

func TestAuthHandler_Me(t *testing.T) {
	handler := NewAuthHandler(nil, nil, nil, false)

	rr := httptest.NewRecorder()
	handler.Me(rr, httptest.NewRequest(http.MethodGet, "/api/auth/me", nil))
	assertErrorResponse(t, rr, http.StatusUnauthorized, "Not authenticated")

	user := testutil.NewProfile("Sam")
	req := httptest.NewRequest(http.MethodGet, "/api/auth/me", nil)
	req = req.WithContext(SetUserInContext(req.Context(), user))
	rr = httptest.NewRecorder()
	handler.Me(rr, req)

	testutil.AssertStatusCode(t, rr, http.StatusOK)
	var response AuthResponse
	testutil.DecodeJSON(t, rr, &response)
	if response.User == nil || response.User.Email != user.Email {
		t.Fatalf("expected user %q, got %+v", user.Email, response.User)
	}
}

func TestAuthHandler_SessionCookie(t *testing.T) {
	for _, secure := range []bool{true, false} {
		handler := NewAuthHandler(nil, nil, nil, secure)

		rr := httptest.NewRecorder()
		handler.setSessionCookie(rr, "test_token")

		cookie := findCookie(rr, sessionCookieName)
		if cookie == nil {
			t.Fatal("expected session cookie to be set")
		}
		if cookie.Secure != secure {
			t.Errorf("expected Secure=%v, got %v", secure, cookie.Secure)
		}
		if !cookie.HttpOnly {
			t.Error("expected HttpOnly flag to be true")
		}
		if cookie.SameSite != http.SameSiteStrictMode {
			t.Errorf("expected SameSite=Strict, got %v", cookie.SameSite)
		}
	}
}
