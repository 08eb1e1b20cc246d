package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/rideparty/internal/models"
)

func TestEventPublisher_Publish(t *testing.T) {
	client := &fakeMessagePublisher{}
	pub := NewEventPublisher(client, "rideparty:changes")
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	pub.now = func() time.Time { return fixed }

	partyID := uuid.New()
	err := pub.Publish(context.Background(), models.ChangeEvent{
		Type:    models.ChangePartyEnded,
		Table:   models.TableParties,
		PartyID: partyID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if client.channel != "rideparty:changes" {
		t.Fatalf("unexpected channel %q", client.channel)
	}

	data, ok := client.payload.([]byte)
	if !ok {
		t.Fatalf("expected []byte payload, got %T", client.payload)
	}
	var decoded models.ChangeEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decoding payload: %v", err)
	}
	if decoded.PartyID != partyID || decoded.Type != models.ChangePartyEnded {
		t.Fatalf("unexpected event %+v", decoded)
	}
	if !decoded.OccurredAt.Equal(fixed) {
		t.Fatalf("expected occurred_at stamped, got %v", decoded.OccurredAt)
	}
}

func TestEventPublisher_PublishError(t *testing.T) {
	client := &fakeMessagePublisher{err: errors.New("redis down")}
	pub := NewEventPublisher(client, "c")
	if err := pub.Publish(context.Background(), models.ChangeEvent{Type: models.ChangeMemberKicked}); err == nil {
		t.Fatal("expected error")
	}
}
