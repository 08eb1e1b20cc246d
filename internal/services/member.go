package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/rideparty/internal/logging"
	"github.com/HammerMeetNail/rideparty/internal/metrics"
	"github.com/HammerMeetNail/rideparty/internal/models"
)

var (
	ErrNotAuthenticated  = errors.New("not authenticated")
	ErrEligibilityCheck  = errors.New("eligibility check failed")
	ErrCannotJoin        = errors.New("cannot join this party (full, expired, or already a member)")
	ErrApprovalRequired  = errors.New("party requires host approval")
	ErrJoinFailed        = errors.New("failed to join party")
	ErrAlreadyMember     = errors.New("already a member of this party")
	ErrMemberNotFound    = errors.New("member not found")
	ErrRequestExists     = errors.New("join request already pending")
	ErrRequestNotFound   = errors.New("join request not found")
	ErrRequestMismatch   = errors.New("join request belongs to another user")
	ErrRequestNotPending = errors.New("join request is no longer pending")
)

var timeNow = time.Now

const memberColumns = `id::text, party_id, user_id, status, joined_at, left_at, pickup_notes, contact_shared`

const requestColumns = `id, party_id, user_id, created_at, status, message`

// pendingRequestArgNames are the argument names get_pending_requests_for_host
// has been deployed under, in the order they are tried. A positional call
// follows them.
var pendingRequestArgNames = []string{"host_id", "p_host_id", "host_user_id", "p_user_id", "user_id"}

type PartyMemberService struct {
	db       DBConn
	parties  PartyReader
	profiles ProfileReader
	friends  FriendChecker
	events   ChangePublisher
}

func NewPartyMemberService(db DBConn, parties PartyReader, profiles ProfileReader, friends FriendChecker, events ChangePublisher) *PartyMemberService {
	return &PartyMemberService{
		db:       db,
		parties:  parties,
		profiles: profiles,
		friends:  friends,
		events:   events,
	}
}

func scanMember(row Row) (*models.PartyMember, error) {
	m := &models.PartyMember{}
	err := row.Scan(&m.ID, &m.PartyID, &m.UserID, &m.Status, &m.JoinedAt, &m.LeftAt, &m.PickupNotes, &m.ContactShared)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func scanRequests(rows Rows) ([]models.PartyRequest, error) {
	defer rows.Close()

	var requests []models.PartyRequest
	for rows.Next() {
		var r models.PartyRequest
		if err := rows.Scan(&r.ID, &r.PartyID, &r.UserID, &r.CreatedAt, &r.Status, &r.Message); err != nil {
			return nil, fmt.Errorf("scanning request: %w", err)
		}
		requests = append(requests, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating requests: %w", err)
	}
	return requests, nil
}

// JoinParty adds the caller to a party after the store-side eligibility
// check. Friends-only parties require the caller to be friends with the
// host; everyone else must go through a join request.
func (s *PartyMemberService) JoinParty(ctx context.Context, userID, partyID uuid.UUID, pickupNotes *string) (member *models.PartyMember, err error) {
	defer func() { metrics.RecordMembership("join", err) }()

	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	if err := s.checkEligible(ctx, partyID, userID); err != nil {
		return nil, err
	}

	party, err := s.parties.Get(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if party.IsFriendsOnly {
		isFriend, err := s.friends.IsFriend(ctx, userID, party.HostID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrEligibilityCheck, err)
		}
		if !isFriend {
			return nil, ErrApprovalRequired
		}
	}

	member, err = s.insertMember(ctx, partyID, userID, pickupNotes)
	if err != nil {
		return nil, err
	}
	s.attachProfile(ctx, member)
	return member, nil
}

// LeaveParty moves the caller's joined row to left. A call that matches no
// row still succeeds.
func (s *PartyMemberService) LeaveParty(ctx context.Context, userID, partyID uuid.UUID) (err error) {
	defer func() { metrics.RecordMembership("leave", err) }()

	if userID == uuid.Nil {
		return ErrNotAuthenticated
	}

	tag, err := s.db.Exec(ctx,
		`UPDATE party_members SET status = 'left', left_at = NOW()
		 WHERE party_id = $1 AND user_id = $2 AND status = 'joined'`,
		partyID, userID,
	)
	if err != nil {
		return fmt.Errorf("leaving party: %w", err)
	}
	if tag.RowsAffected() == 0 {
		logging.Debug("Leave matched no membership", logging.Fields{"party_id": partyID.String(), "user_id": userID.String()})
	}
	return nil
}

// GetPartyMembers returns joined members oldest first. The host always
// leads the list; when they have no membership row one is synthesized.
func (s *PartyMemberService) GetPartyMembers(ctx context.Context, partyID uuid.UUID) ([]models.PartyMember, error) {
	party, err := s.parties.Get(ctx, partyID)
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+memberColumns+` FROM party_members
		 WHERE party_id = $1 AND status = 'joined'
		 ORDER BY joined_at ASC`,
		partyID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	defer rows.Close()

	members := []models.PartyMember{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning member: %w", err)
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating members: %w", err)
	}

	members = withHost(members, party)

	ids := make([]uuid.UUID, len(members))
	for i := range members {
		ids[i] = members[i].UserID
	}
	summaries, err := s.profiles.GetSummaries(ctx, ids)
	if err != nil {
		logging.Warn("Member profiles unavailable", logging.Fields{"error": err, "party_id": partyID.String()})
		return members, nil
	}
	for i := range members {
		if p, ok := summaries[members[i].UserID]; ok {
			members[i].Profile = &p
		}
	}
	return members, nil
}

// withHost marks the host's row, or prepends a synthesized host entry
// dated at party creation when the host has no joined row.
func withHost(members []models.PartyMember, party *models.Party) []models.PartyMember {
	for i := range members {
		if members[i].UserID == party.HostID {
			members[i].IsHost = true
			return members
		}
	}

	host := models.PartyMember{
		ID:       models.HostMemberID(party.ID),
		PartyID:  party.ID,
		UserID:   party.HostID,
		Status:   models.MemberStatusJoined,
		JoinedAt: party.CreatedAt,
		IsHost:   true,
	}
	return append([]models.PartyMember{host}, members...)
}

func (s *PartyMemberService) GetPartyMemberCount(ctx context.Context, partyID uuid.UUID) (int, error) {
	var count int
	if err := s.db.QueryRow(ctx, `SELECT get_party_member_count($1)`, partyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting members: %w", err)
	}
	return count, nil
}

func (s *PartyMemberService) IsUserMember(ctx context.Context, userID, partyID uuid.UUID) (bool, error) {
	if userID == uuid.Nil {
		return false, ErrNotAuthenticated
	}

	var id string
	err := s.db.QueryRow(ctx,
		`SELECT id::text FROM party_members
		 WHERE party_id = $1 AND user_id = $2 AND status = 'joined'
		 LIMIT 1`,
		partyID, userID,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking membership: %w", err)
	}
	return true, nil
}

// KickMember removes a member on the host's behalf. The host check here is
// advisory; the stored functions and the guarded update enforce it.
func (s *PartyMemberService) KickMember(ctx context.Context, hostID, partyID, memberUserID uuid.UUID) (err error) {
	defer func() { metrics.RecordMembership("kick", err) }()

	if hostID == uuid.Nil {
		return ErrNotAuthenticated
	}

	party, err := s.parties.Get(ctx, partyID)
	switch {
	case err == nil && party.HostID != hostID:
		return ErrNotPartyHost
	case err != nil:
		logging.Warn("Host pre-check failed, continuing", logging.Fields{"error": err, "party_id": partyID.String()})
	}

	chain := []strategy{
		{
			name: "kick_party_member",
			run: func(ctx context.Context) error {
				_, err := s.db.Exec(ctx, `SELECT kick_party_member($1, $2, $3)`, partyID, memberUserID, hostID)
				return err
			},
			next: isSignatureMismatch,
		},
		{name: "kick_party_member_uuid", run: func(ctx context.Context) error {
			_, err := s.db.Exec(ctx, `SELECT kick_party_member_uuid($1::uuid, $2::uuid, $3::uuid)`, partyID, memberUserID, hostID)
			return err
		}},
		{name: "direct_update", run: func(ctx context.Context) error {
			tag, err := s.db.Exec(ctx,
				`UPDATE party_members m SET status = 'kicked', left_at = NOW()
				 FROM parties p
				 WHERE m.party_id = $1 AND m.user_id = $2 AND m.status = 'joined'
				   AND p.id = m.party_id AND p.host_id = $3`,
				partyID, memberUserID, hostID,
			)
			if err != nil {
				return err
			}
			if tag.RowsAffected() == 0 {
				return ErrMemberNotFound
			}
			return nil
		}},
	}

	// The uuid overload is only worth trying when the primary call could not
	// be resolved. After it, anything but an authorization or missing-member
	// answer falls through to the direct update.
	_, err = runStrategies(ctx, "kick", chain, func(err error) bool {
		return !isInsufficientPrivilege(err) && !isNoDataFound(err)
	})
	switch {
	case err == nil:
	case isInsufficientPrivilege(err):
		return ErrNotPartyHost
	case isNoDataFound(err), errors.Is(err, ErrMemberNotFound):
		return ErrMemberNotFound
	default:
		return fmt.Errorf("kicking member: %w", err)
	}

	s.publish(ctx, models.ChangeEvent{
		Type:    models.ChangeMemberKicked,
		Table:   models.TableMembers,
		PartyID: partyID,
		UserIDs: []uuid.UUID{memberUserID},
	})
	return nil
}

// RequestToJoin records a pending request for a gated party and tells the
// host through the change feed.
func (s *PartyMemberService) RequestToJoin(ctx context.Context, userID, partyID uuid.UUID, message *string) (req *models.PartyRequest, err error) {
	defer func() { metrics.RecordMembership("request", err) }()

	if userID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	party, err := s.parties.Get(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if party.HostID == userID {
		return nil, ErrCannotJoin
	}
	if !party.IsActive || party.Ended(timeNow()) {
		return nil, ErrPartyInactive
	}

	member, err := s.IsUserMember(ctx, userID, partyID)
	if err != nil {
		return nil, err
	}
	if member {
		return nil, ErrAlreadyMember
	}

	req = &models.PartyRequest{}
	err = s.db.QueryRow(ctx,
		`INSERT INTO party_requests (party_id, user_id, status, message)
		 VALUES ($1, $2, 'pending', $3)
		 RETURNING `+requestColumns,
		partyID, userID, message,
	).Scan(&req.ID, &req.PartyID, &req.UserID, &req.CreatedAt, &req.Status, &req.Message)
	if isUniqueViolation(err) {
		return nil, ErrRequestExists
	}
	if err != nil {
		return nil, fmt.Errorf("creating join request: %w", err)
	}

	s.publish(ctx, models.ChangeEvent{
		Type:    models.ChangeRequestInsert,
		Table:   models.TableRequests,
		PartyID: partyID,
		Record:  req,
	})
	return req, nil
}

// GetPendingRequestsForHost lists pending requests across the host's
// active parties, enriched with requester and party summaries.
func (s *PartyMemberService) GetPendingRequestsForHost(ctx context.Context, hostID uuid.UUID) ([]models.PendingRequest, error) {
	if hostID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	var requests []models.PartyRequest
	viaRPC := func(call string) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			rows, err := s.db.Query(ctx, `SELECT `+requestColumns+` FROM `+call, hostID)
			if err != nil {
				return err
			}
			found, err := scanRequests(rows)
			if err != nil {
				return err
			}
			requests = found
			return nil
		}
	}

	chain := make([]strategy, 0, len(pendingRequestArgNames)+2)
	for _, name := range pendingRequestArgNames {
		chain = append(chain, strategy{
			name: "rpc_" + name,
			run:  viaRPC(fmt.Sprintf("get_pending_requests_for_host(%s => $1)", name)),
		})
	}
	chain = append(chain,
		strategy{name: "rpc_positional", run: viaRPC("get_pending_requests_for_host($1)")},
		strategy{name: "manual", run: func(ctx context.Context) error {
			found, err := s.pendingRequestsManual(ctx, hostID)
			if err != nil {
				return err
			}
			requests = found
			return nil
		}},
	)

	if _, err := runStrategies(ctx, "pending_requests", chain, func(error) bool { return true }); err != nil {
		return nil, fmt.Errorf("loading pending requests: %w", err)
	}

	return s.enrichRequests(ctx, requests), nil
}

func (s *PartyMemberService) pendingRequestsManual(ctx context.Context, hostID uuid.UUID) ([]models.PartyRequest, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM parties WHERE host_id = $1 AND is_active`, hostID)
	if err != nil {
		return nil, fmt.Errorf("listing host parties: %w", err)
	}
	var partyIDs []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning host party: %w", err)
		}
		partyIDs = append(partyIDs, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating host parties: %w", err)
	}
	if len(partyIDs) == 0 {
		return nil, nil
	}

	reqRows, err := s.db.Query(ctx,
		`SELECT `+requestColumns+` FROM party_requests
		 WHERE party_id = ANY($1) AND status = 'pending'
		 ORDER BY created_at ASC`,
		partyIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("listing pending requests: %w", err)
	}
	return scanRequests(reqRows)
}

// enrichRequests attaches requester and party summaries. Lookup failures
// leave the fields empty.
func (s *PartyMemberService) enrichRequests(ctx context.Context, requests []models.PartyRequest) []models.PendingRequest {
	out := make([]models.PendingRequest, len(requests))
	if len(requests) == 0 {
		return out
	}

	userIDs := make([]uuid.UUID, 0, len(requests))
	partyIDs := make([]uuid.UUID, 0, len(requests))
	for i, r := range requests {
		out[i].PartyRequest = r
		userIDs = append(userIDs, r.UserID)
		partyIDs = append(partyIDs, r.PartyID)
	}

	profiles, err := s.profiles.GetSummaries(ctx, userIDs)
	if err != nil {
		logging.Warn("Requester profiles unavailable", logging.Fields{"error": err})
	}
	parties, err := s.parties.GetSummaries(ctx, partyIDs)
	if err != nil {
		logging.Warn("Request party summaries unavailable", logging.Fields{"error": err})
	}

	for i := range out {
		if p, ok := profiles[out[i].UserID]; ok {
			out[i].Requester = &p
		}
		if ps, ok := parties[out[i].PartyID]; ok {
			out[i].Party = &ps
		}
	}
	return out
}

// ApproveRequest admits the requester of a pending request on a party the
// caller hosts. The membership insert is the success signal; a failed
// request status update is only logged.
func (s *PartyMemberService) ApproveRequest(ctx context.Context, hostID, requestID, partyID, requesterID uuid.UUID) (member *models.PartyMember, err error) {
	defer func() { metrics.RecordMembership("approve", err) }()

	if hostID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}

	party, err := s.parties.Get(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if party.HostID != hostID {
		return nil, ErrNotPartyHost
	}

	if err := s.checkPendingRequest(ctx, requestID, partyID, requesterID); err != nil {
		return nil, err
	}

	if err := s.checkEligible(ctx, partyID, requesterID); err != nil {
		return nil, err
	}

	member, err = s.insertMember(ctx, partyID, requesterID, nil)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(ctx,
		`UPDATE party_requests SET status = 'accepted', responded_at = NOW()
		 WHERE id = $1 AND party_id = $2 AND user_id = $3 AND status = 'pending'`,
		requestID, partyID, requesterID,
	)
	if err != nil {
		logging.Warn("Marking request accepted failed", logging.Fields{"error": err, "request_id": requestID.String()})
	}

	s.publish(ctx, models.ChangeEvent{
		Type:    models.ChangeRequestUpdate,
		Table:   models.TableRequests,
		PartyID: partyID,
		Record: &models.PartyRequest{
			ID:      requestID,
			PartyID: partyID,
			UserID:  requesterID,
			Status:  models.RequestStatusAccepted,
		},
		OldStatus: models.RequestStatusPending,
	})

	s.attachProfile(ctx, member)
	return member, nil
}

func (s *PartyMemberService) checkPendingRequest(ctx context.Context, requestID, partyID, requesterID uuid.UUID) error {
	var (
		userID uuid.UUID
		status models.RequestStatus
	)
	err := s.db.QueryRow(ctx,
		`SELECT user_id, status FROM party_requests WHERE id = $1 AND party_id = $2`,
		requestID, partyID,
	).Scan(&userID, &status)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return ErrRequestNotFound
	case err != nil:
		return fmt.Errorf("loading join request: %w", err)
	case userID != requesterID:
		return ErrRequestMismatch
	case status != models.RequestStatusPending:
		return ErrRequestNotPending
	}
	return nil
}

// DeclineRequest marks a pending request declined. The update is scoped to
// parties the caller hosts; matching nothing is not an error.
func (s *PartyMemberService) DeclineRequest(ctx context.Context, hostID, requestID uuid.UUID) (err error) {
	defer func() { metrics.RecordMembership("decline", err) }()

	if hostID == uuid.Nil {
		return ErrNotAuthenticated
	}

	var partyID, requesterID uuid.UUID
	err = s.db.QueryRow(ctx,
		`UPDATE party_requests r SET status = 'declined', responded_at = NOW()
		 FROM parties p
		 WHERE r.id = $1 AND p.id = r.party_id AND p.host_id = $2
		 RETURNING r.party_id, r.user_id`,
		requestID, hostID,
	).Scan(&partyID, &requesterID)
	if errors.Is(err, pgx.ErrNoRows) {
		logging.Debug("Decline matched no request", logging.Fields{"request_id": requestID.String()})
		return nil
	}
	if err != nil {
		return fmt.Errorf("declining request: %w", err)
	}

	s.publish(ctx, models.ChangeEvent{
		Type:    models.ChangeRequestUpdate,
		Table:   models.TableRequests,
		PartyID: partyID,
		Record: &models.PartyRequest{
			ID:      requestID,
			PartyID: partyID,
			UserID:  requesterID,
			Status:  models.RequestStatusDeclined,
		},
		OldStatus: models.RequestStatusPending,
	})
	return nil
}

func (s *PartyMemberService) checkEligible(ctx context.Context, partyID, userID uuid.UUID) error {
	var canJoin bool
	err := s.db.QueryRow(ctx, `SELECT can_user_join_party($1, $2)`, partyID, userID).Scan(&canJoin)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEligibilityCheck, err)
	}
	if !canJoin {
		return ErrCannotJoin
	}
	return nil
}

func (s *PartyMemberService) insertMember(ctx context.Context, partyID, userID uuid.UUID, pickupNotes *string) (*models.PartyMember, error) {
	member, err := scanMember(s.db.QueryRow(ctx,
		`INSERT INTO party_members (party_id, user_id, status, pickup_notes)
		 VALUES ($1, $2, 'joined', $3)
		 RETURNING `+memberColumns,
		partyID, userID, pickupNotes,
	))
	if isUniqueViolation(err) {
		return nil, ErrAlreadyMember
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJoinFailed, err)
	}
	return member, nil
}

// attachProfile is best effort; the member is valid without it.
func (s *PartyMemberService) attachProfile(ctx context.Context, member *models.PartyMember) {
	summaries, err := s.profiles.GetSummaries(ctx, []uuid.UUID{member.UserID})
	if err != nil {
		logging.Warn("Joiner profile unavailable", logging.Fields{"error": err, "user_id": member.UserID.String()})
		return
	}
	if p, ok := summaries[member.UserID]; ok {
		member.Profile = &p
	}
}

func (s *PartyMemberService) publish(ctx context.Context, event models.ChangeEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logging.Warn("Publishing change event failed", logging.Fields{"error": err, "type": string(event.Type)})
	}
}
