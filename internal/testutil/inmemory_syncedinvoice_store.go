package testutil

import (
	"context"

	"github.com/complytrack/complytrack/internal/domain/syncedinvoice"
	ierr "github.com/complytrack/complytrack/internal/errors"
)

// InMemoryInvoiceStore implements syncedinvoice.Repository for tests.
// Items are keyed by the natural (organization_id, provider_invoice_id)
// key so upsert semantics match the postgres repository.
type InMemoryInvoiceStore struct {
	store *InMemoryStore[*syncedinvoice.SyncedInvoice]

	// FailFor makes Upsert fail for specific doc numbers, used to exercise
	// the continue-on-error batch path.
	FailFor map[string]error
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		store:   NewInMemoryStore[*syncedinvoice.SyncedInvoice](),
		FailFor: make(map[string]error),
	}
}

func naturalKey(organizationID, providerInvoiceID string) string {
	return organizationID + "/" + providerInvoiceID
}

func (s *InMemoryInvoiceStore) Upsert(ctx context.Context, invoice *syncedinvoice.SyncedInvoice) error {
	if err, ok := s.FailFor[invoice.DocNumber]; ok {
		return err
	}
	stored := *invoice
	s.store.Set(ctx, naturalKey(invoice.OrganizationID, invoice.ProviderInvoiceID), &stored)
	return nil
}

func (s *InMemoryInvoiceStore) GetByProviderInvoiceID(ctx context.Context, organizationID, providerInvoiceID string) (*syncedinvoice.SyncedInvoice, error) {
	inv, err := s.store.Get(ctx, naturalKey(organizationID, providerInvoiceID))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("synced invoice not found").
			Mark(ierr.ErrNotFound)
	}
	out := *inv
	return &out, nil
}

func (s *InMemoryInvoiceStore) ListByOrganization(ctx context.Context, organizationID string) ([]*syncedinvoice.SyncedInvoice, error) {
	return s.store.List(ctx, organizationID,
		func(_ context.Context, inv *syncedinvoice.SyncedInvoice, filter interface{}) bool {
			return inv.OrganizationID == filter.(string)
		},
		func(i, j *syncedinvoice.SyncedInvoice) bool {
			return i.TransactionDate.After(j.TransactionDate)
		})
}

func (s *InMemoryInvoiceStore) DeleteByOrganization(ctx context.Context, organizationID string) error {
	s.store.DeleteWhere(ctx, organizationID,
		func(_ context.Context, inv *syncedinvoice.SyncedInvoice, filter interface{}) bool {
			return inv.OrganizationID == filter.(string)
		})
	return nil
}
