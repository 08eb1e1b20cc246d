package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/HammerMeetNail/rideparty/internal/logging"
	"github.com/HammerMeetNail/rideparty/internal/models"
)

const (
	bcryptCost       = 12
	sessionDuration  = 30 * 24 * time.Hour
	sessionKeyPrefix = "session:"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionExpired     = errors.New("session expired")
)

// AuthService issues and resolves cookie sessions. Postgres is the source of
// truth; Redis caches token hash to user id with a sliding expiry.
type AuthService struct {
	db    DBConn
	redis RedisClient
	now   func() time.Time
}

func NewAuthService(db DBConn, redis RedisClient) *AuthService {
	return &AuthService{db: db, redis: redis, now: time.Now}
}

func (s *AuthService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hashing password: %w", err)
	}
	return string(hash), nil
}

func (s *AuthService) VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// newSessionToken returns a random hex token and the hash stored for it.
func newSessionToken() (token, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("generating session token: %w", err)
	}
	token = hex.EncodeToString(b)
	return token, hashSessionToken(token), nil
}

func hashSessionToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (s *AuthService) CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	token, tokenHash, err := newSessionToken()
	if err != nil {
		return "", err
	}

	if _, err := s.db.Exec(ctx,
		`INSERT INTO sessions (user_id, token_hash, expires_at) VALUES ($1, $2, $3)`,
		userID, tokenHash, s.now().Add(sessionDuration),
	); err != nil {
		return "", fmt.Errorf("creating session: %w", err)
	}

	s.cacheSession(ctx, tokenHash, userID)
	return token, nil
}

func (s *AuthService) cacheSession(ctx context.Context, tokenHash string, userID uuid.UUID) {
	if err := s.redis.Set(ctx, sessionKeyPrefix+tokenHash, userID.String(), sessionDuration); err != nil {
		logging.Warn("Session cache write failed", logging.Fields{"error": err})
	}
}

func (s *AuthService) ValidateSession(ctx context.Context, token string) (*models.Profile, error) {
	tokenHash := hashSessionToken(token)
	key := sessionKeyPrefix + tokenHash

	if cached, err := s.redis.Get(ctx, key); err == nil && cached != "" {
		userID, err := uuid.Parse(cached)
		if err != nil {
			return nil, fmt.Errorf("parsing cached session: %w", err)
		}
		_ = s.redis.Expire(ctx, key, sessionDuration)
		return s.profile(ctx, userID)
	}

	var (
		sessionID uuid.UUID
		userID    uuid.UUID
		expiresAt time.Time
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, user_id, expires_at FROM sessions WHERE token_hash = $1`,
		tokenHash,
	).Scan(&sessionID, &userID, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if s.now().After(expiresAt) {
		if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, sessionID); err != nil {
			logging.Warn("Expired session cleanup failed", logging.Fields{"error": err, "session_id": sessionID.String()})
		}
		return nil, ErrSessionExpired
	}

	s.cacheSession(ctx, tokenHash, userID)
	return s.profile(ctx, userID)
}

func (s *AuthService) DeleteSession(ctx context.Context, token string) error {
	tokenHash := hashSessionToken(token)

	if err := s.redis.Del(ctx, sessionKeyPrefix+tokenHash); err != nil {
		logging.Warn("Session cache delete failed", logging.Fields{"error": err})
	}

	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE token_hash = $1`, tokenHash); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

func (s *AuthService) profile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	p, err := scanProfile(s.db.QueryRow(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id = $1", id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting session profile: %w", err)
	}
	return p, nil
}
