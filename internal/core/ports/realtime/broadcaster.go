// Package realtime defines the event fan-out capability the engine calls
// after each committed mutation. Publishing is fire-and-forget: a publish
// failure is logged by the caller, never retried, and never rolls back the
// already-committed mutation.
package realtime

import (
	"context"

	"github.com/lawbid/lawbid_backend/internal/core/domain"
)

// Broadcaster fans lifecycle events out to subscribers of a request channel.
// The channel identifier is the requestID. Delivery is at-most-once and
// non-durable; events for one channel are published in commit order.
type Broadcaster interface {
	Publish(ctx context.Context, channel string, event domain.Event) error
}
