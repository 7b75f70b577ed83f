package events

import (
	"context"
	"time"
)

// Topics for platform events.
const (
	TopicTenantEvents   = "admin.tenant-events"
	TopicUserEvents     = "admin.user-events"
	TopicTemplateEvents = "admin.template-events"
	TopicAuthzDenials   = "admin.authz-denials"
)

// Event types.
const (
	TypeTenantCreated     = "tenant.created"
	TypeTenantUpdated     = "tenant.updated"
	TypeTenantDeleted     = "tenant.deleted"
	TypeUserCreated       = "user.created"
	TypeUserUpdated       = "user.updated"
	TypeUserDeleted       = "user.deleted"
	TypeTemplatesArchived = "template.archived"
	TypeAuthzDenied       = "authz.denied"
)

// Event is the envelope published to Kafka. TenantID doubles as the
// partition key so per-tenant ordering holds.
type Event struct {
	ID         string                 `json:"id"`
	Type       string                 `json:"type"`
	TenantID   string                 `json:"tenant_id,omitempty"`
	ActorID    string                 `json:"actor_id,omitempty"`
	ResourceID string                 `json:"resource_id,omitempty"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Publisher emits platform events. Implementations must be non-blocking
// from the caller's perspective; a slow broker must not stall a request.
type Publisher interface {
	Publish(ctx context.Context, topic string, event Event) error
	Close()
}

// NopPublisher discards all events. Used when Kafka is disabled.
type NopPublisher struct{}

// NewNopPublisher creates a publisher that drops everything.
func NewNopPublisher() *NopPublisher { return &NopPublisher{} }

// Publish implements Publisher.
func (p *NopPublisher) Publish(ctx context.Context, topic string, event Event) error {
	return nil
}

// Close implements Publisher.
func (p *NopPublisher) Close() {}
