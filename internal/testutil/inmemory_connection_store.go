package testutil

import (
	"context"

	"github.com/complytrack/complytrack/internal/domain/connection"
	ierr "github.com/complytrack/complytrack/internal/errors"
)

// InMemoryConnectionStore implements connection.Repository for tests
type InMemoryConnectionStore struct {
	*InMemoryStore[*connection.Connection]
}

func NewInMemoryConnectionStore() *InMemoryConnectionStore {
	return &InMemoryConnectionStore{
		InMemoryStore: NewInMemoryStore[*connection.Connection](),
	}
}

func (s *InMemoryConnectionStore) Create(ctx context.Context, conn *connection.Connection) error {
	if conn == nil {
		return ierr.NewError("connection cannot be nil").Mark(ierr.ErrValidation)
	}
	// copy to avoid aliasing with the caller's pointer
	stored := *conn
	if err := s.InMemoryStore.Create(ctx, conn.ID, &stored); err != nil {
		return ierr.WithError(err).
			WithHint("connection already exists").
			Mark(ierr.ErrAlreadyExists)
	}
	return nil
}

func (s *InMemoryConnectionStore) Get(ctx context.Context, id string) (*connection.Connection, error) {
	conn, err := s.InMemoryStore.Get(ctx, id)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("connection not found").
			Mark(ierr.ErrNotFound)
	}
	out := *conn
	return &out, nil
}

func (s *InMemoryConnectionStore) GetByOrganization(ctx context.Context, organizationID string) (*connection.Connection, error) {
	matches, _ := s.InMemoryStore.List(ctx, organizationID,
		func(_ context.Context, c *connection.Connection, filter interface{}) bool {
			return c.OrganizationID == filter.(string)
		}, nil)
	if len(matches) == 0 {
		return nil, ierr.NewError("connection not found").
			WithHint("connection not found").
			Mark(ierr.ErrNotFound)
	}
	out := *matches[0]
	return &out, nil
}

func (s *InMemoryConnectionStore) Update(ctx context.Context, conn *connection.Connection) error {
	stored := *conn
	if err := s.InMemoryStore.Update(ctx, conn.ID, &stored); err != nil {
		return ierr.WithError(err).
			WithHint("connection not found").
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (s *InMemoryConnectionStore) DeleteByOrganization(ctx context.Context, organizationID string) error {
	s.InMemoryStore.DeleteWhere(ctx, organizationID,
		func(_ context.Context, c *connection.Connection, filter interface{}) bool {
			return c.OrganizationID == filter.(string)
		})
	return nil
}
