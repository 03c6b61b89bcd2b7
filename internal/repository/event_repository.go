package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/amodvardhan/project-pipeline/internal/models"
)

// EventRepository publishes lifecycle events on Redis pub/sub. Each event
// type gets its own channel: <prefix>.<type>.
type EventRepository struct {
	client redis.UniversalClient
	prefix string
}

// NewEventRepository constructs the publisher.
func NewEventRepository(client redis.UniversalClient, prefix string) *EventRepository {
	if prefix == "" {
		prefix = "pipeline"
	}
	return &EventRepository{client: client, prefix: prefix}
}

// Channel returns the channel name used for events of the given type.
func (r *EventRepository) Channel(eventType models.LifecycleEventType) string {
	return r.prefix + "." + string(eventType)
}

// Publish encodes the event as JSON and publishes it.
func (r *EventRepository) Publish(ctx context.Context, event models.LifecycleEvent) error {
	if r.client == nil {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", event.ID, err)
	}
	if err := r.client.Publish(ctx, r.Channel(event.Type), payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
