package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/lawbid/lawbid_backend/internal/apperrors"
	"github.com/lawbid/lawbid_backend/internal/core/domain"
	"github.com/lawbid/lawbid_backend/internal/core/ports/realtime"
)

// RedisBroadcaster fans domain events out over Redis pub/sub. Each request has
// its own channel so websocket gateways can subscribe per conversation.
type RedisBroadcaster struct {
	client *redis.Client
}

// NewRedisBroadcaster connects to Redis and verifies the connection before
// returning the broadcaster.
func NewRedisBroadcaster(ctx context.Context, addr string) (*RedisBroadcaster, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: redis ping %s: %v", apperrors.ErrExternal, addr, err)
	}
	return &RedisBroadcaster{client: client}, nil
}

var _ realtime.Broadcaster = (*RedisBroadcaster)(nil)

// Publish marshals the event and publishes it on the given channel.
func (b *RedisBroadcaster) Publish(ctx context.Context, channel string, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventID, err)
	}
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("%w: publish to %s: %v", apperrors.ErrExternal, channel, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (b *RedisBroadcaster) Close() error {
	return b.client.Close()
}
