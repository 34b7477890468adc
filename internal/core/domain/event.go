package domain

import "time"

// EventType names a lifecycle event emitted after a committed mutation.
type EventType string

const (
	EventBidSubmitted     EventType = "bid.submitted"
	EventBidUpdated       EventType = "bid.updated"
	EventBidAccepted      EventType = "bid.accepted"
	EventRequestCancelled EventType = "request.cancelled"
	EventPaymentCaptured  EventType = "payment.captured"
	EventEscrowReleased   EventType = "escrow.released"
	EventPaymentRefunded  EventType = "payment.refunded"
)

// Event is the fan-out payload published to the request's channel. Delivery
// is at-most-once and best effort; correctness never depends on it.
type Event struct {
	EventID    string         `json:"eventID"`
	Type       EventType      `json:"type"`
	RequestID  string         `json:"requestID"`
	OccurredAt time.Time      `json:"occurredAt"`
	Payload    map[string]any `json:"payload,omitempty"`
}
