package syncedinvoice

import (
	"encoding/json"
	"time"

	"github.com/complytrack/complytrack/internal/types"
	"github.com/shopspring/decimal"
)

// SyncedInvoice is a local copy of a provider invoice. Rows are keyed by
// (organization_id, provider_invoice_id) so re-syncs overwrite in place.
type SyncedInvoice struct {
	ID                string `db:"id" json:"id"`
	OrganizationID    string `db:"organization_id" json:"organization_id"`
	ProviderInvoiceID string `db:"provider_invoice_id" json:"provider_invoice_id"`

	DocNumber       string          `db:"doc_number" json:"doc_number"`
	CustomerID      string          `db:"customer_id" json:"customer_id"`
	CustomerName    string          `db:"customer_name" json:"customer_name"`
	TotalAmount     decimal.Decimal `db:"total_amount" json:"total_amount"`
	Balance         decimal.Decimal `db:"balance" json:"balance"`
	CurrencyCode    string          `db:"currency_code" json:"currency_code"`
	TransactionDate time.Time       `db:"transaction_date" json:"transaction_date"`
	DueDate         *time.Time      `db:"due_date" json:"due_date,omitempty"`
	EmailStatus     string          `db:"email_status" json:"email_status,omitempty"`
	PrivateNote     string          `db:"private_note" json:"private_note,omitempty"`

	// SyncToken is the provider's optimistic concurrency token, kept so a
	// future write-back path can detect stale copies.
	SyncToken string `db:"sync_token" json:"sync_token"`

	// RawPayload preserves the provider document exactly as received.
	RawPayload json.RawMessage `db:"raw_payload" json:"raw_payload,omitempty"`

	LastSyncedAt time.Time `db:"last_synced_at" json:"last_synced_at"`

	types.BaseModel
}

// IsPaid reports whether the invoice carries no outstanding balance.
func (s *SyncedInvoice) IsPaid() bool {
	return s.Balance.IsZero()
}

// IsOverdue reports whether the invoice is unpaid past its due date.
func (s *SyncedInvoice) IsOverdue(now time.Time) bool {
	if s.DueDate == nil || s.IsPaid() {
		return false
	}
	return now.After(*s.DueDate)
}
