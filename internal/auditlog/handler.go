package auditlog

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/complytrack/complytrack/internal/logger"
	"github.com/complytrack/complytrack/internal/pubsub"
)

// Handler consumes audit events and writes them to the structured log.
// It is the default sink; durable sinks can replace it by subscribing
// to the same topic.
type Handler struct {
	pubSub pubsub.Subscriber
	logger *logger.Logger
}

// NewHandler creates a log-backed audit event handler
func NewHandler(pubSub pubsub.PubSub, logger *logger.Logger) *Handler {
	return &Handler{
		pubSub: pubSub,
		logger: logger,
	}
}

// Start subscribes to the audit topic and consumes events until the
// context is cancelled.
func (h *Handler) Start(ctx context.Context) error {
	messages, err := h.pubSub.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			h.processMessage(msg)
		}
	}()

	return nil
}

func (h *Handler) processMessage(msg *message.Message) {
	defer msg.Ack()

	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		h.logger.Errorw("failed to unmarshal audit event",
			"error", err,
			"message_uuid", msg.UUID,
		)
		return
	}

	h.logger.Infow("audit event",
		"event_id", event.ID,
		"event_name", event.EventName,
		"organization_id", event.OrganizationID,
		"user_id", event.UserID,
		"timestamp", event.Timestamp,
		"details", event.Details,
	)
}
