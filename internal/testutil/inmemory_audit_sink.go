package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/complytrack/complytrack/internal/auditlog"
	"github.com/complytrack/complytrack/internal/types"
)

// InMemoryAuditSink implements auditlog.Publisher, recording events for
// assertions instead of publishing them.
type InMemoryAuditSink struct {
	mu     sync.Mutex
	events []auditlog.Event
}

func NewInMemoryAuditSink() *InMemoryAuditSink {
	return &InMemoryAuditSink{}
}

func (s *InMemoryAuditSink) Publish(ctx context.Context, eventName string, details map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events = append(s.events, auditlog.Event{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_AUDIT_EVENT),
		EventName:      eventName,
		OrganizationID: types.GetOrganizationID(ctx),
		UserID:         types.GetUserID(ctx),
		Timestamp:      time.Now().UTC(),
		Details:        details,
	})
}

func (s *InMemoryAuditSink) Close() error {
	return nil
}

// Events returns a copy of the recorded events
func (s *InMemoryAuditSink) Events() []auditlog.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]auditlog.Event, len(s.events))
	copy(out, s.events)
	return out
}

// EventNames returns the recorded event names in publication order
func (s *InMemoryAuditSink) EventNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.events))
	for _, e := range s.events {
		names = append(names, e.EventName)
	}
	return names
}
