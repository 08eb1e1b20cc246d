package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/rideparty/internal/models"
)

var (
	ErrFriendshipNotFound     = errors.New("friendship not found")
	ErrFriendshipExists       = errors.New("friendship already exists")
	ErrCannotFriendSelf       = errors.New("cannot send friend request to yourself")
	ErrFriendshipNotPending   = errors.New("friendship is not pending")
	ErrNotFriendshipRecipient = errors.New("only the recipient can accept")
)

const friendshipColumns = `id, user_id, friend_id, status, created_at`

// FriendService manages the friend graph that gates friends-only parties. A
// pair of users has at most one friendships row, in either direction.
type FriendService struct {
	db DBConn
}

func NewFriendService(db DBConn) *FriendService {
	return &FriendService{db: db}
}

func scanFriendship(row Row) (*models.Friendship, error) {
	f := &models.Friendship{}
	if err := row.Scan(&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.CreatedAt); err != nil {
		return nil, err
	}
	return f, nil
}

// SendRequest inserts a pending friendship. The pair index makes a second
// request in either direction a no-op, reported as ErrFriendshipExists.
func (s *FriendService) SendRequest(ctx context.Context, userID, friendID uuid.UUID) (*models.Friendship, error) {
	if userID == friendID {
		return nil, ErrCannotFriendSelf
	}

	f, err := scanFriendship(s.db.QueryRow(ctx,
		`INSERT INTO friendships (user_id, friend_id, status)
		 VALUES ($1, $2, 'pending')
		 ON CONFLICT DO NOTHING
		 RETURNING `+friendshipColumns,
		userID, friendID,
	))
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return nil, ErrFriendshipExists
	}
	if err != nil {
		return nil, fmt.Errorf("creating friendship: %w", err)
	}
	return f, nil
}

// AcceptRequest flips a pending request addressed to userID. When the guarded
// update matches nothing, the row is loaded to report why.
func (s *FriendService) AcceptRequest(ctx context.Context, userID, friendshipID uuid.UUID) (*models.Friendship, error) {
	f, err := scanFriendship(s.db.QueryRow(ctx,
		`UPDATE friendships SET status = 'accepted'
		 WHERE id = $1 AND friend_id = $2 AND status = 'pending'
		 RETURNING `+friendshipColumns,
		friendshipID, userID,
	))
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("accepting friendship: %w", err)
	}

	existing, err := scanFriendship(s.db.QueryRow(ctx,
		`SELECT `+friendshipColumns+` FROM friendships WHERE id = $1`, friendshipID,
	))
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, ErrFriendshipNotFound
	case err != nil:
		return nil, fmt.Errorf("getting friendship: %w", err)
	case existing.FriendID != userID:
		return nil, ErrNotFriendshipRecipient
	default:
		return nil, ErrFriendshipNotPending
	}
}

func (s *FriendService) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.FriendWithProfile, error) {
	rows, err := s.db.Query(ctx,
		`SELECT f.id, f.user_id, f.friend_id, f.status, f.created_at, p.name
		 FROM friendships f
		 JOIN profiles p ON p.id = CASE WHEN f.user_id = $1 THEN f.friend_id ELSE f.user_id END
		 WHERE $1 IN (f.user_id, f.friend_id) AND f.status = 'accepted'
		 ORDER BY p.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	defer rows.Close()

	friends := []models.FriendWithProfile{}
	for rows.Next() {
		var f models.FriendWithProfile
		if err := rows.Scan(&f.ID, &f.UserID, &f.FriendID, &f.Status, &f.CreatedAt, &f.FriendName); err != nil {
			return nil, fmt.Errorf("scanning friend: %w", err)
		}
		friends = append(friends, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating friends: %w", err)
	}
	return friends, nil
}

// IsFriend reports whether the two users have an accepted friendship.
func (s *FriendService) IsFriend(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error) {
	var ok bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM friendships
			WHERE LEAST(user_id, friend_id) = LEAST($1::uuid, $2::uuid)
			  AND GREATEST(user_id, friend_id) = GREATEST($1::uuid, $2::uuid)
			  AND status = 'accepted'
		)`,
		userID, otherUserID,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("checking friendship: %w", err)
	}
	return ok, nil
}
