package testutil

import (
	"context"

	"github.com/complytrack/complytrack/internal/domain/settings"
	ierr "github.com/complytrack/complytrack/internal/errors"
)

// InMemorySettingsStore implements settings.Repository for tests
type InMemorySettingsStore struct {
	store *InMemoryStore[*settings.IntegrationSettings]
}

func NewInMemorySettingsStore() *InMemorySettingsStore {
	return &InMemorySettingsStore{
		store: NewInMemoryStore[*settings.IntegrationSettings](),
	}
}

func (s *InMemorySettingsStore) Upsert(ctx context.Context, item *settings.IntegrationSettings) error {
	stored := *item
	s.store.Set(ctx, item.OrganizationID, &stored)
	return nil
}

func (s *InMemorySettingsStore) GetByOrganization(ctx context.Context, organizationID string) (*settings.IntegrationSettings, error) {
	item, err := s.store.Get(ctx, organizationID)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("integration settings not found").
			Mark(ierr.ErrNotFound)
	}
	out := *item
	return &out, nil
}

func (s *InMemorySettingsStore) DeleteByOrganization(ctx context.Context, organizationID string) error {
	_ = s.store.Delete(ctx, organizationID)
	return nil
}
