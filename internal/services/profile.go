package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/rideparty/internal/models"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailAlreadyExists = errors.New("email already exists")
)

const profileColumns = `id, email, password_hash, name, nickname, avatar_url, gender, university,
	show_university, show_gender, points, phone, show_phone, created_at, updated_at`

type ProfileService struct {
	db DBConn
}

func NewProfileService(db DBConn) *ProfileService {
	return &ProfileService{db: db}
}

func scanProfile(row Row) (*models.Profile, error) {
	p := &models.Profile{}
	err := row.Scan(
		&p.ID, &p.Email, &p.PasswordHash, &p.Name, &p.Nickname, &p.AvatarURL, &p.Gender, &p.University,
		&p.ShowUniversity, &p.ShowGender, &p.Points, &p.Phone, &p.ShowPhone, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProfileService) Create(ctx context.Context, params models.CreateProfileParams) (*models.Profile, error) {
	email := strings.ToLower(strings.TrimSpace(params.Email))

	var exists bool
	err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM profiles WHERE email = $1)", email).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking email existence: %w", err)
	}
	if exists {
		return nil, ErrEmailAlreadyExists
	}

	profile, err := scanProfile(s.db.QueryRow(ctx,
		`INSERT INTO profiles (email, password_hash, name, gender, university)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+profileColumns,
		email, params.PasswordHash, params.Name, params.Gender, params.University,
	))
	if isUniqueViolation(err) {
		return nil, ErrEmailAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("creating profile: %w", err)
	}
	return profile, nil
}

func (s *ProfileService) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	profile, err := scanProfile(s.db.QueryRow(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id = $1", id,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile by id: %w", err)
	}
	return profile, nil
}

func (s *ProfileService) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	profile, err := scanProfile(s.db.QueryRow(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE email = $1",
		strings.ToLower(strings.TrimSpace(email)),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting profile by email: %w", err)
	}
	return profile, nil
}

// GetSummaries loads public summaries for the given ids in one query.
// Unknown ids are simply absent from the result.
func (s *ProfileService) GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProfileSummary, error) {
	result := make(map[uuid.UUID]models.ProfileSummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.Query(ctx,
		"SELECT "+profileColumns+" FROM profiles WHERE id = ANY($1)", ids,
	)
	if err != nil {
		return nil, fmt.Errorf("loading profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning profile: %w", err)
		}
		result[p.ID] = p.Summary()
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profiles: %w", err)
	}
	return result, nil
}
