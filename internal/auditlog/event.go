package auditlog

import "time"

// Topic is the pubsub topic audit events are published on.
const Topic = "audit_events"

// Event names emitted by the integration services.
const (
	EventConnectionEstablished = "integration.connection.established"
	EventConnectionRemoved     = "integration.connection.removed"
	EventTokenRefreshed        = "integration.token.refreshed"
	EventCustomerMapped        = "integration.customer.mapped"
	EventSyncCompleted         = "integration.sync.completed"
	EventSyncFailed            = "integration.sync.failed"
)

// Event is an immutable record of something that happened to a tenant's
// provider integration.
type Event struct {
	ID             string                 `json:"id"`
	EventName      string                 `json:"event_name"`
	OrganizationID string                 `json:"organization_id"`
	UserID         string                 `json:"user_id,omitempty"`
	Timestamp      time.Time              `json:"timestamp"`
	Details        map[string]interface{} `json:"details,omitempty"`
}
