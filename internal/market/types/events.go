package types

// Event types for the market engine.
// All event types use lowercase with underscore separator (module_action format).
const (
	// Listing events
	EventTypeListingRegistered  = "market_listing_registered"
	EventTypeListingUpdated     = "market_listing_updated"
	EventTypeListingDeactivated = "market_listing_deactivated"

	// Request events
	EventTypeRequestCreated   = "market_request_created"
	EventTypeRequestCompleted = "market_request_completed"
	EventTypeRequestConfirmed = "market_request_confirmed"
	EventTypeRequestCancelled = "market_request_cancelled"
	EventTypeTimeoutClaimed   = "market_timeout_claimed"

	// Settlement events
	EventTypeValueReleased = "market_value_released"
	EventTypeValueRefunded = "market_value_refunded"

	// Reputation events
	EventTypeReputationUpdated = "market_reputation_updated"

	// Administrative events
	EventTypePaused            = "market_paused"
	EventTypeUnpaused          = "market_unpaused"
	EventTypeEmergencyWithdraw = "market_emergency_withdraw"
)

// Event attribute keys, lowercase with underscore separator.
const (
	AttributeKeyListingID   = "listing_id"
	AttributeKeyRequestID   = "request_id"
	AttributeKeyOwner       = "owner"
	AttributeKeyBuyer       = "buyer"
	AttributeKeyProvider    = "provider"
	AttributeKeyPrice       = "price"
	AttributeKeyAmount      = "amount"
	AttributeKeyActive      = "active"
	AttributeKeyStatus      = "status"
	AttributeKeyRating      = "rating"
	AttributeKeyAverage     = "average"
	AttributeKeyRatingCount = "rating_count"
	AttributeKeySettlements = "settlements"
	AttributeKeyCaller      = "caller"
	AttributeKeyRecipient   = "recipient"
	AttributeKeyReason      = "reason"
	AttributeKeyTimestamp   = "timestamp"
)

// Attribute is a single key/value pair attached to an event.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event is a structured notification emitted by the engine on every committed
// mutation. Downstream indexers treat the stream as the sole refresh signal.
type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

// NewAttribute constructs an event attribute.
func NewAttribute(key, value string) Attribute {
	return Attribute{Key: key, Value: value}
}

// NewEvent constructs an event with the given type and attributes.
func NewEvent(eventType string, attrs ...Attribute) Event {
	return Event{Type: eventType, Attributes: attrs}
}

// Attribute returns the value for key, if present.
func (e Event) Attribute(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// EventManager buffers events during a single engine operation. The buffer is
// published only when the operation commits; an aborted operation drops it,
// so a failed call never becomes visible downstream.
type EventManager struct {
	events []Event
}

// NewEventManager returns an empty per-operation event buffer.
func NewEventManager() *EventManager {
	return &EventManager{}
}

// EmitEvent appends an event to the buffer.
func (em *EventManager) EmitEvent(event Event) {
	em.events = append(em.events, event)
}

// Events returns the buffered events.
func (em *EventManager) Events() []Event {
	return em.events
}
