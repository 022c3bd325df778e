package testutil

import (
	"context"
	"encoding/json"
	"time"

	"github.com/complytrack/complytrack/internal/domain/syncedinvoice"
	"github.com/complytrack/complytrack/internal/types"
	"github.com/shopspring/decimal"
)

// NewSyncedInvoiceFixture builds a plausible synced invoice record for tests
func NewSyncedInvoiceFixture(ctx context.Context, organizationID, providerInvoiceID, docNumber string) *syncedinvoice.SyncedInvoice {
	now := time.Now().UTC()
	dueDate := now.Add(30 * 24 * time.Hour)

	return &syncedinvoice.SyncedInvoice{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SYNCED_INVOICE),
		OrganizationID:    organizationID,
		ProviderInvoiceID: providerInvoiceID,
		DocNumber:         docNumber,
		CustomerID:        "cust-1",
		CustomerName:      "Acme Corp",
		TotalAmount:       decimal.NewFromInt(1500),
		Balance:           decimal.NewFromInt(750),
		CurrencyCode:      "USD",
		TransactionDate:   now.Add(-24 * time.Hour),
		DueDate:           &dueDate,
		RawPayload:        json.RawMessage(`{}`),
		LastSyncedAt:      now,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}
}
