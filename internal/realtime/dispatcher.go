package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/rideparty/internal/logging"
	"github.com/HammerMeetNail/rideparty/internal/metrics"
	"github.com/HammerMeetNail/rideparty/internal/models"
	"github.com/HammerMeetNail/rideparty/internal/notify"
)

var ErrMalformedEvent = errors.New("malformed change event")

type PartyLookup interface {
	Get(ctx context.Context, partyID uuid.UUID) (*models.Party, error)
}

type ProfileLookup interface {
	GetSummaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.ProfileSummary, error)
}

type Pusher interface {
	Push(userID uuid.UUID, msg Message)
}

// NotificationPush is the data of a notification frame.
type NotificationPush struct {
	Notification models.Notification `json:"notification"`
	UnreadCount  int                 `json:"unread_count"`
}

// Dispatcher turns change events into per-user notifications. Each event is
// handled on its own: lookups are not batched or cached.
type Dispatcher struct {
	parties  PartyLookup
	profiles ProfileLookup
	registry *notify.Registry
	pusher   Pusher
}

func NewDispatcher(parties PartyLookup, profiles ProfileLookup, registry *notify.Registry, pusher Pusher) *Dispatcher {
	return &Dispatcher{
		parties:  parties,
		profiles: profiles,
		registry: registry,
		pusher:   pusher,
	}
}

// Run handles messages until ctx is done or the subscription closes.
func (d *Dispatcher) Run(ctx context.Context, messages <-chan *redis.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				logging.Warn("Change feed subscription closed")
				return
			}
			if err := d.Handle(ctx, []byte(msg.Payload)); err != nil {
				logging.Warn("Change event not handled", logging.Fields{"error": err, "channel": msg.Channel})
			}
		}
	}
}

// Handle decodes one change event and notifies the users it concerns.
func (d *Dispatcher) Handle(ctx context.Context, payload []byte) error {
	var event models.ChangeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		metrics.RecordChangeEvent("unknown", "invalid")
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}

	var err error
	switch event.Type {
	case models.ChangeRequestInsert:
		err = d.requestInserted(ctx, event)
	case models.ChangeRequestUpdate:
		err = d.requestUpdated(ctx, event)
	case models.ChangePartyCancelled, models.ChangePartyEnded, models.ChangeMemberKicked:
		d.partyChanged(ctx, event)
	default:
		metrics.RecordChangeEvent(string(event.Type), "ignored")
		return nil
	}

	if err != nil {
		metrics.RecordChangeEvent(string(event.Type), "error")
		return err
	}
	metrics.RecordChangeEvent(string(event.Type), "handled")
	return nil
}

// requestInserted tells the party host about a new join request.
func (d *Dispatcher) requestInserted(ctx context.Context, event models.ChangeEvent) error {
	req := event.Record
	if req == nil {
		return fmt.Errorf("%w: request insert without record", ErrMalformedEvent)
	}
	if req.Status != "" && req.Status != models.RequestStatusPending {
		return nil
	}

	party, err := d.parties.Get(ctx, req.PartyID)
	if err != nil {
		return fmt.Errorf("loading party for request: %w", err)
	}

	id := "join-request:" + req.ID.String()
	if d.registry.For(party.HostID).Has(id) {
		return nil
	}

	name := d.displayName(ctx, req.UserID)
	d.deliver(party.HostID, models.Notification{
		ID:      id,
		Message: fmt.Sprintf("%s wants to join your ride to %s", name, party.Destination),
		Type:    models.NotificationJoinRequest,
		Href:    "/dashboard?party=" + party.ID.String(),
		Metadata: map[string]string{
			"request_id":     req.ID.String(),
			"party_id":       party.ID.String(),
			"requester_id":   req.UserID.String(),
			"requester_name": name,
		},
	})
	return nil
}

// requestUpdated tells the requester their request was answered.
func (d *Dispatcher) requestUpdated(ctx context.Context, event models.ChangeEvent) error {
	req := event.Record
	if req == nil {
		return fmt.Errorf("%w: request update without record", ErrMalformedEvent)
	}

	var (
		id      string
		kind    models.NotificationType
		outcome string
	)
	switch req.Status {
	case models.RequestStatusAccepted:
		id, kind, outcome = "request-accepted:", models.NotificationSuccess, "accepted"
	case models.RequestStatusDeclined:
		id, kind, outcome = "request-declined:", models.NotificationError, "declined"
	default:
		return nil
	}
	id += req.ID.String()

	if d.registry.For(req.UserID).Has(id) {
		return nil
	}

	n := models.Notification{
		ID:      id,
		Message: fmt.Sprintf("Your request to join %s was %s", d.rideLabel(ctx, req.PartyID), outcome),
		Type:    kind,
		Metadata: map[string]string{
			"request_id": req.ID.String(),
			"party_id":   req.PartyID.String(),
		},
	}
	if req.Status == models.RequestStatusAccepted {
		n.Href = "/dashboard?party=" + req.PartyID.String()
	}
	d.deliver(req.UserID, n)
	return nil
}

// partyChanged notifies every user listed on a party-level event.
func (d *Dispatcher) partyChanged(ctx context.Context, event models.ChangeEvent) {
	var prefix, format string
	kind := models.NotificationInfo
	switch event.Type {
	case models.ChangePartyCancelled:
		prefix, format = "party-cancelled:", "The host cancelled %s"
	case models.ChangePartyEnded:
		prefix, format = "party-ended:", "%s has ended"
	case models.ChangeMemberKicked:
		prefix, format, kind = "member-kicked:", "You were removed from %s", models.NotificationError
	}
	id := prefix + event.PartyID.String()

	var label string
	for _, userID := range event.UserIDs {
		if d.registry.For(userID).Has(id) {
			continue
		}
		if label == "" {
			label = d.rideLabel(ctx, event.PartyID)
		}
		d.deliver(userID, models.Notification{
			ID:       id,
			Message:  capitalize(fmt.Sprintf(format, label)),
			Type:     kind,
			Metadata: map[string]string{"party_id": event.PartyID.String()},
		})
	}
}

func (d *Dispatcher) deliver(userID uuid.UUID, n models.Notification) {
	store := d.registry.For(userID)
	if !store.Add(n) {
		return
	}
	metrics.RecordNotification(string(n.Type))

	// Add fills in the timestamp; push the stored copy.
	for _, stored := range store.List() {
		if stored.ID == n.ID {
			n = stored
			break
		}
	}
	d.pusher.Push(userID, Message{
		Type: MessageTypeNotification,
		Data: NotificationPush{Notification: n, UnreadCount: store.UnreadCount()},
	})
}

func (d *Dispatcher) displayName(ctx context.Context, userID uuid.UUID) string {
	summaries, err := d.profiles.GetSummaries(ctx, []uuid.UUID{userID})
	if err != nil {
		logging.Warn("Requester profile unavailable", logging.Fields{"error": err, "user_id": userID.String()})
	}
	return summaries[userID].DisplayName()
}

// rideLabel names a party by destination, falling back to a generic label
// when the party cannot be loaded.
func (d *Dispatcher) rideLabel(ctx context.Context, partyID uuid.UUID) string {
	party, err := d.parties.Get(ctx, partyID)
	if err != nil || party.Destination == "" {
		if err != nil {
			logging.Debug("Party lookup for notification failed", logging.Fields{"error": err, "party_id": partyID.String()})
		}
		return "the ride"
	}
	return "the ride to " + party.Destination
}

func capitalize(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
