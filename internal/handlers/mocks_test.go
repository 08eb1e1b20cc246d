package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/rideparty/internal/models"
)

type mockProfileService struct {
	CreateFunc       func(ctx context.Context, params models.CreateProfileParams) (*models.Profile, error)
	GetByIDFunc      func(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByEmailFunc   func(ctx context.Context, email string) (*models.Profile, error)
	GetSummariesFunc func(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProfileSummary, error)
}

func (m *mockProfileService) Create(ctx context.Context, params models.CreateProfileParams) (*models.Profile, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}

func (m *mockProfileService) GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, nil
}

func (m *mockProfileService) GetByEmail(ctx context.Context, email string) (*models.Profile, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, nil
}

func (m *mockProfileService) GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProfileSummary, error) {
	if m.GetSummariesFunc != nil {
		return m.GetSummariesFunc(ctx, ids)
	}
	return map[uuid.UUID]models.ProfileSummary{}, nil
}

type mockAuthService struct {
	HashPasswordFunc    func(password string) (string, error)
	VerifyPasswordFunc  func(hash, password string) bool
	CreateSessionFunc   func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateSessionFunc func(ctx context.Context, token string) (*models.Profile, error)
	DeleteSessionFunc   func(ctx context.Context, token string) error
}

func (m *mockAuthService) HashPassword(password string) (string, error) {
	if m.HashPasswordFunc != nil {
		return m.HashPasswordFunc(password)
	}
	return "hashed", nil
}

func (m *mockAuthService) VerifyPassword(hash, password string) bool {
	if m.VerifyPasswordFunc != nil {
		return m.VerifyPasswordFunc(hash, password)
	}
	return false
}

func (m *mockAuthService) CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, userID)
	}
	return "token", nil
}

func (m *mockAuthService) ValidateSession(ctx context.Context, token string) (*models.Profile, error) {
	if m.ValidateSessionFunc != nil {
		return m.ValidateSessionFunc(ctx, token)
	}
	return nil, nil
}

func (m *mockAuthService) DeleteSession(ctx context.Context, token string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, token)
	}
	return nil
}

type mockPartyService struct {
	CreateFunc       func(ctx context.Context, hostID uuid.UUID, params models.CreatePartyParams) (*models.Party, error)
	GetFunc          func(ctx context.Context, partyID uuid.UUID) (*models.Party, error)
	ListActiveFunc   func(ctx context.Context) ([]models.Party, error)
	ExtendExpiryFunc func(ctx context.Context, hostID, partyID uuid.UUID, minutes int) (*models.Party, error)
	CancelFunc       func(ctx context.Context, hostID, partyID uuid.UUID) error
}

func (m *mockPartyService) Create(ctx context.Context, hostID uuid.UUID, params models.CreatePartyParams) (*models.Party, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, hostID, params)
	}
	return nil, nil
}

func (m *mockPartyService) Get(ctx context.Context, partyID uuid.UUID) (*models.Party, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, partyID)
	}
	return nil, nil
}

func (m *mockPartyService) ListActive(ctx context.Context) ([]models.Party, error) {
	if m.ListActiveFunc != nil {
		return m.ListActiveFunc(ctx)
	}
	return nil, nil
}

func (m *mockPartyService) ExtendExpiry(ctx context.Context, hostID, partyID uuid.UUID, minutes int) (*models.Party, error) {
	if m.ExtendExpiryFunc != nil {
		return m.ExtendExpiryFunc(ctx, hostID, partyID, minutes)
	}
	return nil, nil
}

func (m *mockPartyService) Cancel(ctx context.Context, hostID, partyID uuid.UUID) error {
	if m.CancelFunc != nil {
		return m.CancelFunc(ctx, hostID, partyID)
	}
	return nil
}

type mockMemberService struct {
	JoinPartyFunc                 func(ctx context.Context, userID, partyID uuid.UUID, pickupNotes *string) (*models.PartyMember, error)
	LeavePartyFunc                func(ctx context.Context, userID, partyID uuid.UUID) error
	GetPartyMembersFunc           func(ctx context.Context, partyID uuid.UUID) ([]models.PartyMember, error)
	GetPartyMemberCountFunc       func(ctx context.Context, partyID uuid.UUID) (int, error)
	IsUserMemberFunc              func(ctx context.Context, userID, partyID uuid.UUID) (bool, error)
	KickMemberFunc                func(ctx context.Context, hostID, partyID, memberUserID uuid.UUID) error
	RequestToJoinFunc             func(ctx context.Context, userID, partyID uuid.UUID, message *string) (*models.PartyRequest, error)
	GetPendingRequestsForHostFunc func(ctx context.Context, hostID uuid.UUID) ([]models.PendingRequest, error)
	ApproveRequestFunc            func(ctx context.Context, hostID, requestID, partyID, requesterID uuid.UUID) (*models.PartyMember, error)
	DeclineRequestFunc            func(ctx context.Context, hostID, requestID uuid.UUID) error
}

func (m *mockMemberService) JoinParty(ctx context.Context, userID, partyID uuid.UUID, pickupNotes *string) (*models.PartyMember, error) {
	if m.JoinPartyFunc != nil {
		return m.JoinPartyFunc(ctx, userID, partyID, pickupNotes)
	}
	return nil, nil
}

func (m *mockMemberService) LeaveParty(ctx context.Context, userID, partyID uuid.UUID) error {
	if m.LeavePartyFunc != nil {
		return m.LeavePartyFunc(ctx, userID, partyID)
	}
	return nil
}

func (m *mockMemberService) GetPartyMembers(ctx context.Context, partyID uuid.UUID) ([]models.PartyMember, error) {
	if m.GetPartyMembersFunc != nil {
		return m.GetPartyMembersFunc(ctx, partyID)
	}
	return nil, nil
}

func (m *mockMemberService) GetPartyMemberCount(ctx context.Context, partyID uuid.UUID) (int, error) {
	if m.GetPartyMemberCountFunc != nil {
		return m.GetPartyMemberCountFunc(ctx, partyID)
	}
	return 0, nil
}

func (m *mockMemberService) IsUserMember(ctx context.Context, userID, partyID uuid.UUID) (bool, error) {
	if m.IsUserMemberFunc != nil {
		return m.IsUserMemberFunc(ctx, userID, partyID)
	}
	return false, nil
}

func (m *mockMemberService) KickMember(ctx context.Context, hostID, partyID, memberUserID uuid.UUID) error {
	if m.KickMemberFunc != nil {
		return m.KickMemberFunc(ctx, hostID, partyID, memberUserID)
	}
	return nil
}

func (m *mockMemberService) RequestToJoin(ctx context.Context, userID, partyID uuid.UUID, message *string) (*models.PartyRequest, error) {
	if m.RequestToJoinFunc != nil {
		return m.RequestToJoinFunc(ctx, userID, partyID, message)
	}
	return nil, nil
}

func (m *mockMemberService) GetPendingRequestsForHost(ctx context.Context, hostID uuid.UUID) ([]models.PendingRequest, error) {
	if m.GetPendingRequestsForHostFunc != nil {
		return m.GetPendingRequestsForHostFunc(ctx, hostID)
	}
	return nil, nil
}

func (m *mockMemberService) ApproveRequest(ctx context.Context, hostID, requestID, partyID, requesterID uuid.UUID) (*models.PartyMember, error) {
	if m.ApproveRequestFunc != nil {
		return m.ApproveRequestFunc(ctx, hostID, requestID, partyID, requesterID)
	}
	return nil, nil
}

func (m *mockMemberService) DeclineRequest(ctx context.Context, hostID, requestID uuid.UUID) error {
	if m.DeclineRequestFunc != nil {
		return m.DeclineRequestFunc(ctx, hostID, requestID)
	}
	return nil
}

type mockFriendService struct {
	SendRequestFunc   func(ctx context.Context, userID, friendID uuid.UUID) (*models.Friendship, error)
	AcceptRequestFunc func(ctx context.Context, userID, friendshipID uuid.UUID) (*models.Friendship, error)
	ListFriendsFunc   func(ctx context.Context, userID uuid.UUID) ([]models.FriendWithProfile, error)
	IsFriendFunc      func(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error)
}

func (m *mockFriendService) SendRequest(ctx context.Context, userID, friendID uuid.UUID) (*models.Friendship, error) {
	if m.SendRequestFunc != nil {
		return m.SendRequestFunc(ctx, userID, friendID)
	}
	return nil, nil
}

func (m *mockFriendService) AcceptRequest(ctx context.Context, userID, friendshipID uuid.UUID) (*models.Friendship, error) {
	if m.AcceptRequestFunc != nil {
		return m.AcceptRequestFunc(ctx, userID, friendshipID)
	}
	return nil, nil
}

func (m *mockFriendService) ListFriends(ctx context.Context, userID uuid.UUID) ([]models.FriendWithProfile, error) {
	if m.ListFriendsFunc != nil {
		return m.ListFriendsFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockFriendService) IsFriend(ctx context.Context, userID, otherUserID uuid.UUID) (bool, error) {
	if m.IsFriendFunc != nil {
		return m.IsFriendFunc(ctx, userID, otherUserID)
	}
	return false, nil
}

type mockWebsocketServer struct {
	served []uuid.UUID
}

func (m *mockWebsocketServer) ServeWS(w http.ResponseWriter, r *http.Request, userID uuid.UUID) {
	m.served = append(m.served, userID)
	w.WriteHeader(http.StatusSwitchingProtocols)
}
