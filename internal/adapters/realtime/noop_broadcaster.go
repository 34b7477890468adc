package realtime

import (
	"context"

	"github.com/lawbid/lawbid_backend/internal/core/domain"
	"github.com/lawbid/lawbid_backend/internal/core/ports/realtime"
)

// NoopBroadcaster discards every event. Used when no Redis address is
// configured, typically in local development and tests.
type NoopBroadcaster struct{}

// NewNoopBroadcaster creates a broadcaster that drops all events.
func NewNoopBroadcaster() *NoopBroadcaster {
	return &NoopBroadcaster{}
}

var _ realtime.Broadcaster = (*NoopBroadcaster)(nil)

// Publish is a no-op.
func (b *NoopBroadcaster) Publish(context.Context, string, domain.Event) error {
	return nil
}
