package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/HammerMeetNail/rideparty/internal/logging"
	"github.com/HammerMeetNail/rideparty/internal/models"
	"github.com/HammerMeetNail/rideparty/internal/notify"
	"github.com/HammerMeetNail/rideparty/internal/services"
)

const (
	sessionCookieName = "session_token"
	cookieMaxAge      = 30 * 24 * 60 * 60 // 30 days in seconds
)

type AuthHandler struct {
	profileService services.ProfileServiceInterface
	authService    services.AuthServiceInterface
	notifications  *notify.Registry
	validate       *validator.Validate
	secure         bool // Use secure cookies (HTTPS only)
}

func NewAuthHandler(profileService services.ProfileServiceInterface, authService services.AuthServiceInterface, notifications *notify.Registry, secure bool) *AuthHandler {
	return &AuthHandler{
		profileService: profileService,
		authService:    authService,
		notifications:  notifications,
		validate:       services.NewValidator(),
		secure:         secure,
	}
}

type RegisterRequest struct {
	Email      string  `json:"email" validate:"required,email,max=254"`
	Password   string  `json:"password" validate:"required"`
	Name       string  `json:"name" validate:"required,min=2,max=100"`
	Gender     *string `json:"gender" validate:"omitempty,max=32"`
	University *string `json:"university" validate:"omitempty,max=120"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User    *models.Profile `json:"user,omitempty"`
	Message string          `json:"message,omitempty"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	req.Name = strings.TrimSpace(req.Name)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, services.DescribeValidation(err))
		return
	}
	if err := validatePassword(req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	passwordHash, err := h.authService.HashPassword(req.Password)
	if err != nil {
		logging.Error("Hashing password failed", logging.Fields{"error": err})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	profile, err := h.profileService.Create(r.Context(), models.CreateProfileParams{
		Email:        req.Email,
		PasswordHash: passwordHash,
		Name:         req.Name,
		Gender:       req.Gender,
		University:   req.University,
	})
	if errors.Is(err, services.ErrEmailAlreadyExists) {
		writeError(w, http.StatusConflict, "Email already registered")
		return
	}
	if err != nil {
		logging.Error("Creating profile failed", logging.Fields{"error": err})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := h.authService.CreateSession(r.Context(), profile.ID)
	if err != nil {
		logging.Error("Creating session failed", logging.Fields{"error": err})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusCreated, AuthResponse{User: profile})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req.Email = strings.TrimSpace(strings.ToLower(req.Email))

	profile, err := h.profileService.GetByEmail(r.Context(), req.Email)
	if errors.Is(err, services.ErrUserNotFound) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if err != nil {
		logging.Error("Loading profile failed", logging.Fields{"error": err})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	if !h.authService.VerifyPassword(profile.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.authService.CreateSession(r.Context(), profile.ID)
	if err != nil {
		logging.Error("Creating session failed", logging.Fields{"error": err})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	h.setSessionCookie(w, token)
	writeJSON(w, http.StatusOK, AuthResponse{User: profile})
}

// Logout ends the session and forgets the user's in-memory notifications.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(sessionCookieName)
	if err == nil && cookie.Value != "" {
		_ = h.authService.DeleteSession(r.Context(), cookie.Value)
	}
	if user := GetUserFromContext(r.Context()); user != nil && h.notifications != nil {
		h.notifications.Drop(user.ID)
	}

	h.clearSessionCookie(w)
	writeJSON(w, http.StatusOK, AuthResponse{Message: "Logged out successfully"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{User: user})
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   cookieMaxAge,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Unix(0, 0),
	})
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return errors.New("password must be at least 8 characters")
	}
	if len([]byte(password)) > 72 {
		return errors.New("password must be at most 72 bytes")
	}

	var hasUpper, hasLower, hasDigit bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			hasUpper = true
		case unicode.IsLower(c):
			hasLower = true
		case unicode.IsDigit(c):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return errors.New("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
