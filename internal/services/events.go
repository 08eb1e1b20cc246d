package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HammerMeetNail/rideparty/internal/models"
)

// EventPublisher writes change events onto the realtime channel.
type EventPublisher struct {
	client  MessagePublisher
	channel string
	now     func() time.Time
}

func NewEventPublisher(client MessagePublisher, channel string) *EventPublisher {
	return &EventPublisher{client: client, channel: channel, now: time.Now}
}

func (p *EventPublisher) Publish(ctx context.Context, event models.ChangeEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = p.now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding change event: %w", err)
	}
	if err := p.client.Publish(ctx, p.channel, payload); err != nil {
		return fmt.Errorf("publishing change event: %w", err)
	}
	return nil
}
