package postgres

import (
	"context"

	"github.com/complytrack/complytrack/internal/domain/syncedinvoice"
	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/logger"
	"github.com/complytrack/complytrack/internal/postgres"
	"github.com/samber/lo"
)

type syncedInvoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSyncedInvoiceRepository(db *postgres.DB, logger *logger.Logger) syncedinvoice.Repository {
	return &syncedInvoiceRepository{db: db, logger: logger}
}

// Upsert overwrites all mutable fields on conflict of the natural key, so a
// re-sync fully replaces the cached copy.
func (r *syncedInvoiceRepository) Upsert(ctx context.Context, invoice *syncedinvoice.SyncedInvoice) error {
	query := `
	INSERT INTO synced_invoices (
		id, organization_id, provider_invoice_id,
		doc_number, customer_id, customer_name,
		total_amount, balance, currency_code,
		transaction_date, due_date, email_status, private_note,
		sync_token, raw_payload, last_synced_at,
		created_at, updated_at, created_by, updated_by
	) VALUES (
		:id, :organization_id, :provider_invoice_id,
		:doc_number, :customer_id, :customer_name,
		:total_amount, :balance, :currency_code,
		:transaction_date, :due_date, :email_status, :private_note,
		:sync_token, :raw_payload, :last_synced_at,
		:created_at, :updated_at, :created_by, :updated_by
	)
	ON CONFLICT (organization_id, provider_invoice_id) DO UPDATE SET
		doc_number = EXCLUDED.doc_number,
		customer_id = EXCLUDED.customer_id,
		customer_name = EXCLUDED.customer_name,
		total_amount = EXCLUDED.total_amount,
		balance = EXCLUDED.balance,
		currency_code = EXCLUDED.currency_code,
		transaction_date = EXCLUDED.transaction_date,
		due_date = EXCLUDED.due_date,
		email_status = EXCLUDED.email_status,
		private_note = EXCLUDED.private_note,
		sync_token = EXCLUDED.sync_token,
		raw_payload = EXCLUDED.raw_payload,
		last_synced_at = EXCLUDED.last_synced_at,
		updated_at = EXCLUDED.updated_at,
		updated_by = EXCLUDED.updated_by`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, invoice); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to upsert synced invoice").
			WithReportableDetails(map[string]interface{}{
				"provider_invoice_id": invoice.ProviderInvoiceID,
				"doc_number":          invoice.DocNumber,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *syncedInvoiceRepository) GetByProviderInvoiceID(ctx context.Context, organizationID, providerInvoiceID string) (*syncedinvoice.SyncedInvoice, error) {
	query := `SELECT * FROM synced_invoices WHERE organization_id = $1 AND provider_invoice_id = $2`

	var invoice syncedinvoice.SyncedInvoice
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &invoice, query, organizationID, providerInvoiceID); err != nil {
		return nil, wrapGetErr(err, "synced invoice")
	}
	return &invoice, nil
}

func (r *syncedInvoiceRepository) ListByOrganization(ctx context.Context, organizationID string) ([]*syncedinvoice.SyncedInvoice, error) {
	query := `SELECT * FROM synced_invoices WHERE organization_id = $1 ORDER BY transaction_date DESC`

	var invoices []syncedinvoice.SyncedInvoice
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &invoices, query, organizationID); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list synced invoices").
			Mark(ierr.ErrDatabase)
	}

	return lo.Map(invoices, func(inv syncedinvoice.SyncedInvoice, _ int) *syncedinvoice.SyncedInvoice {
		return &inv
	}), nil
}

func (r *syncedInvoiceRepository) DeleteByOrganization(ctx context.Context, organizationID string) error {
	query := `DELETE FROM synced_invoices WHERE organization_id = $1`

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, organizationID); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete synced invoices").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
