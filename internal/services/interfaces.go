package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/rideparty/internal/models"
)

// ProfileServiceInterface defines the contract for profile operations.
type ProfileServiceInterface interface {
	Create(ctx context.Context, params models.CreateProfileParams) (*models.Profile, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProfileSummary, error)
}

// ProfileReader is the slice of profile access the membership code needs.
type ProfileReader interface {
	GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProfileSummary, error)
}

// AuthServiceInterface defines the contract for authentication operations.
type AuthServiceInterface interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hash, password string) bool
	CreateSession(ctx context.Context, userID uuid.UUID) (token string, err error)
	ValidateSession(ctx context.Context, token string) (*models.Profile, error)
	DeleteSession(ctx context.Context, token string) error
}

// PartyServiceInterface defines the contract for host-side party operations.
type PartyServiceInterface interface {
	Create(ctx context.Context, hostID uuid.UUID, params models.CreatePartyParams) (*models.Party, error)
	Get(ctx context.Context, partyID uuid.UUID) (*models.Party, error)
	ListActive(ctx context.Context) ([]models.Party, error)
	ExtendExpiry(ctx context.Context, hostID, partyID uuid.UUID, minutes int) (*models.Party, error)
	Cancel(ctx context.Context, hostID, partyID uuid.UUID) error
}

// PartyReader is the slice of party access the membership code needs.
type PartyReader interface {
	Get(ctx context.Context, partyID uuid.UUID) (*models.Party, error)
	GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.PartySummary, error)
}

// PartyMemberServiceInterface defines the contract for membership operations.
type PartyMemberServiceInterface interface {
	JoinParty(ctx context.Context, userID, partyID uuid.UUID, pickupNotes *string) (*models.PartyMember, error)
	LeaveParty(ctx context.Context, userID, partyID uuid.UUID) error
	GetPartyMembers(ctx context.Context, partyID uuid.UUID) ([]models.PartyMember, error)
	GetPartyMemberCount(ctx context.Context, partyID uuid.UUID) (int, error)
	IsUserMember(ctx context.Context, userID, partyID uuid.UUID) (bool, error)
	KickMember(ctx context.Context, hostID, partyID, memberUserID uuid.UUID) error
	RequestToJoin(ctx context.Context, userID, partyID uuid.UUID, message *string) (*models.PartyRequest, error)
	GetPendingRequestsForHost(ctx context.Context, hostID uuid.UUID) ([]models.PendingRequest, error)
	ApproveRequest(ctx context.Context, hostID, requestID, partyID, requesterID uuid.UUID) (*models.PartyMember, error)
	DeclineRequest(ctx context.Context, hostID, requestID uuid.UUID) error
}

// FriendServiceInterface defines the contract for friendship operations.
type FriendServiceInterface interface {
	SendRequest(ctx context.Context, userID, friendID uuid.UUID) (*models.Friendship, error)
	AcceptRequest(ctx context.Context, userID, friendshipID uuid.UUID) (*models.Friendship, error)
	ListFriends(ctx context.Context, userID uuid.UUID) ([]models.FriendWithProfile, error)
	IsFriend(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error)
}

// FriendChecker is a lightweight interface for friends-only gating.
type FriendChecker interface {
	IsFriend(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error)
}

// ChangePublisher sends change events to realtime subscribers.
type ChangePublisher interface {
	Publish(ctx context.Context, event models.ChangeEvent) error
}
