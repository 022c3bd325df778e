package quickbooks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/complytrack/complytrack/internal/domain/connection"
	"github.com/complytrack/complytrack/internal/domain/syncedinvoice"
	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/logger"
	"github.com/complytrack/complytrack/internal/types"
)

const (
	customerSearchLimit = 50
	invoiceFetchLimit   = 500

	providerDateLayout = "2006-01-02"
)

// SyncError records a single invoice that failed to persist during a sync
// run without aborting the batch.
type SyncError struct {
	DocNumber string `json:"doc_number"`
	Message   string `json:"message"`
}

// SyncResult is the outcome of one sync run
type SyncResult struct {
	SyncedCount int         `json:"synced_count"`
	Errors      []SyncError `json:"errors,omitempty"`
}

// SyncEngine orchestrates customer search, customer mapping and invoice
// synchronization for one organization at a time. Callers serialize
// invocations per organization.
type SyncEngine struct {
	api            *ApiClient
	config         ConfigProvider
	connectionRepo connection.Repository
	invoiceRepo    syncedinvoice.Repository
	logger         *logger.Logger
}

// NewSyncEngine creates a new SyncEngine
func NewSyncEngine(
	api *ApiClient,
	config ConfigProvider,
	connectionRepo connection.Repository,
	invoiceRepo syncedinvoice.Repository,
	logger *logger.Logger,
) *SyncEngine {
	return &SyncEngine{
		api:            api,
		config:         config,
		connectionRepo: connectionRepo,
		invoiceRepo:    invoiceRepo,
		logger:         logger,
	}
}

// SearchCustomers queries provider customers by display or company name.
// An empty term returns the first page unrestricted.
func (e *SyncEngine) SearchCustomers(ctx context.Context, organizationID, term string) ([]Customer, error) {
	conn, cfg, err := e.connectedContext(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM Customer"
	if term != "" {
		escaped := EscapeQueryValue(term)
		query += fmt.Sprintf(" WHERE DisplayName LIKE '%%%s%%' OR CompanyName LIKE '%%%s%%'", escaped, escaped)
	}
	query += fmt.Sprintf(" MAXRESULTS %d", customerSearchLimit)

	body, err := e.api.Query(ctx, cfg, conn, query)
	if err != nil {
		return nil, err
	}

	var result customerQueryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to parse provider customer query response").
			Mark(ierr.ErrProvider)
	}

	return result.QueryResponse.Customer, nil
}

// GetCustomer reads a single provider customer by id
func (e *SyncEngine) GetCustomer(ctx context.Context, organizationID, customerID string) (*Customer, error) {
	conn, cfg, err := e.connectedContext(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	body, err := e.api.Get(ctx, cfg, conn, "customer/"+customerID, nil)
	if err != nil {
		return nil, err
	}

	var result customerReadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to parse provider customer response").
			Mark(ierr.ErrProvider)
	}

	return &result.Customer, nil
}

// MapCustomer links the organization to a provider customer. The customer
// record is fetched so the stored display name reflects the provider's
// current value. Mapping never triggers a sync by itself.
func (e *SyncEngine) MapCustomer(ctx context.Context, organizationID, customerID string) (*connection.Connection, error) {
	customer, err := e.GetCustomer(ctx, organizationID, customerID)
	if err != nil {
		return nil, err
	}

	conn, err := e.getConnection(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	conn.MappedCustomerID = customer.ID
	conn.MappedCustomerName = customer.DisplayName
	conn.UpdatedAt = time.Now().UTC()
	conn.UpdatedBy = types.GetUserID(ctx)

	if err := e.connectionRepo.Update(ctx, conn); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to persist customer mapping").
			Mark(ierr.ErrDatabase)
	}

	e.logger.Infow("mapped provider customer to organization",
		"organization_id", organizationID,
		"customer_id", customer.ID,
		"customer_name", customer.DisplayName,
	)

	return conn, nil
}

// FetchInvoicesForCustomer fetches the customer's invoices newest first
func (e *SyncEngine) FetchInvoicesForCustomer(ctx context.Context, organizationID, customerID string) ([]FetchedInvoice, error) {
	conn, cfg, err := e.connectedContext(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	return e.fetchInvoices(ctx, cfg, conn, customerID)
}

// fetchInvoices operates on an already-loaded connection so token rotations
// during the call stay visible to the caller's subsequent writes.
func (e *SyncEngine) fetchInvoices(ctx context.Context, cfg *ProviderConfig, conn *connection.Connection, customerID string) ([]FetchedInvoice, error) {
	query := fmt.Sprintf(
		"SELECT * FROM Invoice WHERE CustomerRef = '%s' ORDERBY TxnDate DESC MAXRESULTS %d",
		EscapeQueryValue(customerID), invoiceFetchLimit,
	)

	body, err := e.api.Query(ctx, cfg, conn, query)
	if err != nil {
		return nil, err
	}

	var result invoiceQueryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to parse provider invoice query response").
			Mark(ierr.ErrProvider)
	}

	fetched := make([]FetchedInvoice, 0, len(result.QueryResponse.Invoice))
	for _, raw := range result.QueryResponse.Invoice {
		var inv Invoice
		if err := json.Unmarshal(raw, &inv); err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to parse provider invoice document").
				Mark(ierr.ErrProvider)
		}
		fetched = append(fetched, FetchedInvoice{Invoice: inv, Raw: raw})
	}

	return fetched, nil
}

// SyncInvoices fetches the mapped customer's invoices and upserts them one
// by one. A row that fails to persist is recorded and skipped; the batch
// continues. Only a failure of the fetch itself marks the connection
// errored and aborts before lastSyncAt is touched.
func (e *SyncEngine) SyncInvoices(ctx context.Context, organizationID string) (*SyncResult, error) {
	conn, err := e.getConnection(ctx, organizationID)
	if err != nil {
		return nil, err
	}
	if !conn.IsCustomerMapped() {
		return nil, ierr.NewError("no provider customer mapped").
			WithHint("Map a provider customer to this organization before syncing invoices").
			Mark(ierr.ErrCustomerNotMapped)
	}

	cfg, err := e.config.Resolve(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	fetched, err := e.fetchInvoices(ctx, cfg, conn, conn.MappedCustomerID)
	if err != nil {
		// A terminal refresh failure has already persisted token_expired;
		// overwriting it with error would hide the re-auth requirement.
		if !ierr.IsRefreshTokenInvalid(err) {
			if stErr := conn.SetStatus(types.ConnectionStatusError, err.Error()); stErr != nil {
				e.logger.Errorw("rejected status transition after fetch failure",
					"organization_id", organizationID,
					"status", conn.Status,
					"error", stErr,
				)
			} else if updateErr := e.connectionRepo.Update(ctx, conn); updateErr != nil {
				e.logger.Errorw("failed to persist error status after fetch failure",
					"organization_id", organizationID,
					"error", updateErr,
				)
			}
		}
		return nil, err
	}

	result := &SyncResult{}
	now := time.Now().UTC()

	for _, f := range fetched {
		record, err := e.toSyncedInvoice(ctx, organizationID, f, now)
		if err == nil {
			err = e.invoiceRepo.Upsert(ctx, record)
		}
		if err != nil {
			e.logger.Warnw("failed to upsert invoice, continuing",
				"organization_id", organizationID,
				"doc_number", f.Invoice.DocNumber,
				"error", err,
			)
			result.Errors = append(result.Errors, SyncError{
				DocNumber: f.Invoice.DocNumber,
				Message:   err.Error(),
			})
			continue
		}
		result.SyncedCount++
	}

	conn.LastSyncAt = &now
	if err := conn.SetStatus(types.ConnectionStatusConnected, ""); err != nil {
		return nil, err
	}
	conn.UpdatedBy = types.GetUserID(ctx)
	if err := e.connectionRepo.Update(ctx, conn); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to persist sync completion").
			Mark(ierr.ErrDatabase)
	}

	e.logger.Infow("invoice sync completed",
		"organization_id", organizationID,
		"synced_count", result.SyncedCount,
		"error_count", len(result.Errors),
	)

	return result, nil
}

func (e *SyncEngine) toSyncedInvoice(ctx context.Context, organizationID string, f FetchedInvoice, syncedAt time.Time) (*syncedinvoice.SyncedInvoice, error) {
	inv := f.Invoice

	txnDate, err := time.Parse(providerDateLayout, inv.TxnDate)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Invoice %s has an invalid transaction date %q", inv.DocNumber, inv.TxnDate).
			Mark(ierr.ErrValidation)
	}

	var dueDate *time.Time
	if inv.DueDate != "" {
		d, err := time.Parse(providerDateLayout, inv.DueDate)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHintf("Invoice %s has an invalid due date %q", inv.DocNumber, inv.DueDate).
				Mark(ierr.ErrValidation)
		}
		dueDate = &d
	}

	return &syncedinvoice.SyncedInvoice{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SYNCED_INVOICE),
		OrganizationID:    organizationID,
		ProviderInvoiceID: inv.ID,
		DocNumber:         inv.DocNumber,
		CustomerID:        inv.CustomerRef.Value,
		CustomerName:      inv.CustomerRef.Name,
		TotalAmount:       inv.TotalAmt,
		Balance:           inv.Balance,
		CurrencyCode:      inv.CurrencyRef.Value,
		TransactionDate:   txnDate,
		DueDate:           dueDate,
		EmailStatus:       inv.EmailStatus,
		PrivateNote:       inv.PrivateNote,
		SyncToken:         inv.SyncToken,
		RawPayload:        f.Raw,
		LastSyncedAt:      syncedAt,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}, nil
}

func (e *SyncEngine) getConnection(ctx context.Context, organizationID string) (*connection.Connection, error) {
	conn, err := e.connectionRepo.GetByOrganization(ctx, organizationID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil, ierr.NewError("provider not connected").
				WithHint("Connect the organization to the accounting provider first").
				WithReportableDetails(map[string]interface{}{
					"organization_id": organizationID,
				}).
				Mark(ierr.ErrNotConnected)
		}
		return nil, err
	}
	return conn, nil
}

func (e *SyncEngine) connectedContext(ctx context.Context, organizationID string) (*connection.Connection, *ProviderConfig, error) {
	conn, err := e.getConnection(ctx, organizationID)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := e.config.Resolve(ctx, organizationID)
	if err != nil {
		return nil, nil, err
	}
	return conn, cfg, nil
}
