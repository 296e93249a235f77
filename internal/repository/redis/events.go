package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"simora-backend/internal/domain"
)

// ConfigChannel is the pub/sub channel carrying notification config changes
const ConfigChannel = "notifications:config:changed"

// PreferenceChannel returns the per-user pub/sub channel for preference changes
func PreferenceChannel(userID uuid.UUID) string {
	return fmt.Sprintf("notifications:prefs:%s:changed", userID)
}

// EventPublisher publishes realtime change events over Redis Pub/Sub
type EventPublisher struct {
	client *redis.Client
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// PublishConfigChanged announces an insert/update/delete of a notification config
func (p *EventPublisher) PublishConfigChanged(ctx context.Context, action, key string) error {
	event := domain.ChangeEvent{
		Action:    action,
		Key:       key,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	if err := p.client.Publish(ctx, ConfigChannel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish config change: %w", err)
	}

	return nil
}

// PublishPreferenceChanged announces an update to a user's preference record
func (p *EventPublisher) PublishPreferenceChanged(ctx context.Context, userID uuid.UUID, action string) error {
	event := domain.ChangeEvent{
		Action:    action,
		UserID:    userID,
		Timestamp: time.Now(),
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal change event: %w", err)
	}

	if err := p.client.Publish(ctx, PreferenceChannel(userID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish preference change: %w", err)
	}

	return nil
}
