package syncedinvoice

import "context"

// Repository defines the interface for synced invoice data operations
type Repository interface {
	// Upsert inserts the invoice or overwrites the existing row with the
	// same (organization_id, provider_invoice_id) key.
	Upsert(ctx context.Context, invoice *SyncedInvoice) error
	GetByProviderInvoiceID(ctx context.Context, organizationID, providerInvoiceID string) (*SyncedInvoice, error)
	ListByOrganization(ctx context.Context, organizationID string) ([]*SyncedInvoice, error)
	DeleteByOrganization(ctx context.Context, organizationID string) error
}
