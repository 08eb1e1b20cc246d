package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/rideparty/internal/logging"
	"github.com/HammerMeetNail/rideparty/internal/models"
)

var (
	ErrPartyNotFound     = errors.New("party not found")
	ErrPartyInactive     = errors.New("party is no longer active")
	ErrInvalidParty      = errors.New("invalid party")
	ErrInvalidExtension  = errors.New("invalid expiry extension")
	ErrActivePartyExists = errors.New("you already host an active party")
	ErrNotPartyHost      = errors.New("only the party host can do that")
)

const activePartiesKey = "parties:active"

// partySelect joins the host profile so listings carry host summary fields.
const partySelect = `SELECT p.id, p.host_id, p.party_size, p.created_at, p.updated_at, p.expires_at,
	p.meetup_point, p.destination, p.is_friends_only, p.is_gender_only, p.display_university,
	p.host_comments, p.ride_options, p.is_active,
	COALESCE(NULLIF(h.nickname, ''), h.name),
	CASE WHEN h.show_university THEN h.university END,
	get_party_member_count(p.id)
	FROM parties p
	JOIN profiles h ON h.id = p.host_id`

type PartyOptions struct {
	CacheTTL           time.Duration
	MaxExtendMinutes   int
	MaxDurationMinutes int
}

type PartyService struct {
	db       DBConn
	cache    RedisClient
	events   ChangePublisher
	validate *validator.Validate
	opts     PartyOptions
}

func NewPartyService(db DBConn, cache RedisClient, events ChangePublisher, opts PartyOptions) *PartyService {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 15 * time.Second
	}
	if opts.MaxExtendMinutes <= 0 {
		opts.MaxExtendMinutes = 60
	}
	if opts.MaxDurationMinutes <= 0 {
		opts.MaxDurationMinutes = 180
	}
	return &PartyService{
		db:       db,
		cache:    cache,
		events:   events,
		validate: NewValidator(),
		opts:     opts,
	}
}

func scanParty(row Row) (*models.Party, error) {
	p := &models.Party{}
	err := row.Scan(
		&p.ID, &p.HostID, &p.PartySize, &p.CreatedAt, &p.UpdatedAt, &p.ExpiresAt,
		&p.MeetupPoint, &p.Destination, &p.IsFriendsOnly, &p.IsGenderOnly, &p.DisplayUniversity,
		&p.HostComments, &p.RideOptions, &p.IsActive,
		&p.HostName, &p.HostUniversity, &p.MemberCount,
	)
	if err != nil {
		return nil, err
	}
	if p.RideOptions == nil {
		p.RideOptions = []string{}
	}
	return p, nil
}

func (s *PartyService) Create(ctx context.Context, hostID uuid.UUID, params models.CreatePartyParams) (*models.Party, error) {
	if hostID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	if err := s.validate.Struct(params); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidParty, DescribeValidation(err))
	}
	if params.DurationMinutes > s.opts.MaxDurationMinutes {
		return nil, fmt.Errorf("%w: duration_minutes must be at most %d", ErrInvalidParty, s.opts.MaxDurationMinutes)
	}

	var hosting bool
	err := s.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM parties WHERE host_id = $1 AND is_active AND expires_at > NOW())`,
		hostID,
	).Scan(&hosting)
	if err != nil {
		return nil, fmt.Errorf("checking active parties: %w", err)
	}
	if hosting {
		return nil, ErrActivePartyExists
	}

	rideOptions := params.RideOptions
	if rideOptions == nil {
		rideOptions = []string{}
	}

	var id uuid.UUID
	err = s.db.QueryRow(ctx,
		`INSERT INTO parties (host_id, party_size, expires_at, meetup_point, destination,
		                      is_friends_only, is_gender_only, display_university, host_comments, ride_options)
		 VALUES ($1, $2, NOW() + make_interval(mins => $3), $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id`,
		hostID, params.PartySize, params.DurationMinutes, params.MeetupPoint, params.Destination,
		params.IsFriendsOnly, params.IsGenderOnly, params.DisplayUniversity, params.HostComments, rideOptions,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("creating party: %w", err)
	}

	s.invalidate(ctx)
	return s.Get(ctx, id)
}

func (s *PartyService) Get(ctx context.Context, partyID uuid.UUID) (*models.Party, error) {
	party, err := scanParty(s.db.QueryRow(ctx, partySelect+" WHERE p.id = $1", partyID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPartyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting party: %w", err)
	}
	return party, nil
}

// GetSummaries loads destination/meetup/expiry for the given parties.
func (s *PartyService) GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.PartySummary, error) {
	result := make(map[uuid.UUID]models.PartySummary, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, host_id, destination, meetup_point, expires_at FROM parties WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("loading party summaries: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ps models.PartySummary
		if err := rows.Scan(&ps.ID, &ps.HostID, &ps.Destination, &ps.MeetupPoint, &ps.ExpiresAt); err != nil {
			return nil, fmt.Errorf("scanning party summary: %w", err)
		}
		result[ps.ID] = ps
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating party summaries: %w", err)
	}
	return result, nil
}

// ListActive returns active, unexpired parties ordered by soonest expiry.
// The list is cached briefly; cache failures fall through to the database.
func (s *PartyService) ListActive(ctx context.Context) ([]models.Party, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, activePartiesKey)
		switch {
		case err == nil:
			var parties []models.Party
			if jsonErr := json.Unmarshal([]byte(cached), &parties); jsonErr == nil {
				return parties, nil
			}
			logging.Warn("Discarding unreadable party cache entry")
		case !errors.Is(err, redis.Nil):
			logging.Warn("Party cache read failed", logging.Fields{"error": err})
		}
	}

	rows, err := s.db.Query(ctx,
		partySelect+` WHERE p.is_active AND p.expires_at > NOW() ORDER BY p.expires_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing active parties: %w", err)
	}
	defer rows.Close()

	parties := []models.Party{}
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning party: %w", err)
		}
		parties = append(parties, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating parties: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(parties); err == nil {
			if err := s.cache.Set(ctx, activePartiesKey, data, s.opts.CacheTTL); err != nil {
				logging.Warn("Party cache write failed", logging.Fields{"error": err})
			}
		}
	}
	return parties, nil
}

func (s *PartyService) ExtendExpiry(ctx context.Context, hostID, partyID uuid.UUID, minutes int) (*models.Party, error) {
	if minutes < 1 || minutes > s.opts.MaxExtendMinutes {
		return nil, fmt.Errorf("%w: minutes must be between 1 and %d", ErrInvalidExtension, s.opts.MaxExtendMinutes)
	}

	party, err := s.hostedActiveParty(ctx, hostID, partyID)
	if err != nil {
		return nil, err
	}

	_, err = s.db.Exec(ctx,
		`UPDATE parties SET expires_at = expires_at + make_interval(mins => $3), updated_at = NOW()
		 WHERE id = $1 AND host_id = $2`,
		party.ID, hostID, minutes,
	)
	if err != nil {
		return nil, fmt.Errorf("extending party: %w", err)
	}

	s.invalidate(ctx)
	return s.Get(ctx, partyID)
}

func (s *PartyService) Cancel(ctx context.Context, hostID, partyID uuid.UUID) error {
	party, err := s.hostedActiveParty(ctx, hostID, partyID)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx,
		`UPDATE parties SET is_active = false, updated_at = NOW() WHERE id = $1 AND host_id = $2`,
		party.ID, hostID,
	)
	if err != nil {
		return fmt.Errorf("cancelling party: %w", err)
	}
	s.invalidate(ctx)

	s.announce(ctx, models.ChangePartyCancelled, party.ID, false)
	return nil
}

// DeactivateExpired marks every party past its expiry inactive and
// announces each one. It returns the ids of the parties it ended.
func (s *PartyService) DeactivateExpired(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.db.Query(ctx,
		`UPDATE parties SET is_active = false, updated_at = NOW()
		 WHERE is_active AND expires_at <= NOW()
		 RETURNING id`,
	)
	if err != nil {
		return nil, fmt.Errorf("deactivating expired parties: %w", err)
	}

	var ended []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning expired party: %w", err)
		}
		ended = append(ended, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating expired parties: %w", err)
	}

	if len(ended) == 0 {
		return nil, nil
	}
	s.invalidate(ctx)

	for _, id := range ended {
		s.announce(ctx, models.ChangePartyEnded, id, true)
	}
	return ended, nil
}

func (s *PartyService) hostedActiveParty(ctx context.Context, hostID, partyID uuid.UUID) (*models.Party, error) {
	if hostID == uuid.Nil {
		return nil, ErrNotAuthenticated
	}
	party, err := s.Get(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if party.HostID != hostID {
		return nil, ErrNotPartyHost
	}
	if !party.IsActive || party.Ended(timeNow()) {
		return nil, ErrPartyInactive
	}
	return party, nil
}

// announce publishes a party-level event to everyone currently joined.
// The host is included when includeHost is set.
func (s *PartyService) announce(ctx context.Context, eventType models.ChangeEventType, partyID uuid.UUID, includeHost bool) {
	if s.events == nil {
		return
	}

	query := `SELECT user_id FROM party_members WHERE party_id = $1 AND status = 'joined'`
	if includeHost {
		query += ` UNION SELECT host_id FROM parties WHERE id = $1`
	}

	rows, err := s.db.Query(ctx, query, partyID)
	if err != nil {
		logging.Warn("Loading party audience failed", logging.Fields{"error": err, "party_id": partyID.String()})
		return
	}
	var users []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			logging.Warn("Scanning party audience failed", logging.Fields{"error": err})
			continue
		}
		users = append(users, id)
	}
	rows.Close()

	event := models.ChangeEvent{
		Type:    eventType,
		Table:   models.TableParties,
		PartyID: partyID,
		UserIDs: users,
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logging.Warn("Publishing party event failed", logging.Fields{"error": err, "party_id": partyID.String(), "type": string(eventType)})
	}
}

func (s *PartyService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, activePartiesKey); err != nil {
		logging.Warn("Party cache invalidation failed", logging.Fields{"error": err})
	}
}
