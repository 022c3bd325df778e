package auditlog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/complytrack/complytrack/internal/logger"
	"github.com/complytrack/complytrack/internal/pubsub"
	"github.com/complytrack/complytrack/internal/types"
)

// Publisher records audit events. Publishing is fire and forget: a failed
// publish must never fail the operation that produced the event.
type Publisher interface {
	Publish(ctx context.Context, eventName string, details map[string]interface{})
	Close() error
}

type auditPublisher struct {
	pubSub pubsub.PubSub
	logger *logger.Logger
}

// NewPublisher creates a pubsub-backed audit publisher
func NewPublisher(pubSub pubsub.PubSub, logger *logger.Logger) Publisher {
	return &auditPublisher{
		pubSub: pubSub,
		logger: logger,
	}
}

func (p *auditPublisher) Publish(ctx context.Context, eventName string, details map[string]interface{}) {
	event := &Event{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_AUDIT_EVENT),
		EventName:      eventName,
		OrganizationID: types.GetOrganizationID(ctx),
		UserID:         types.GetUserID(ctx),
		Timestamp:      time.Now().UTC(),
		Details:        details,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Errorw("failed to marshal audit event",
			"error", err,
			"event_name", eventName,
			"organization_id", event.OrganizationID,
		)
		return
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("organization_id", event.OrganizationID)
	msg.Metadata.Set("event_name", eventName)

	if err := p.pubSub.Publish(ctx, Topic, msg); err != nil {
		p.logger.Errorw("failed to publish audit event",
			"error", err,
			"event_id", event.ID,
			"event_name", eventName,
			"organization_id", event.OrganizationID,
		)
		return
	}

	p.logger.Debugw("published audit event",
		"event_id", event.ID,
		"event_name", eventName,
		"organization_id", event.OrganizationID,
	)
}

// Close closes the underlying pubsub
func (p *auditPublisher) Close() error {
	return p.pubSub.Close()
}
