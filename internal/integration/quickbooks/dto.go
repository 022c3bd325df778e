package quickbooks

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// TokenResponse is the OAuth token endpoint response. The refresh token TTL
// arrives under different keys depending on the grant type, so both are
// mapped and RefreshTokenTTL picks whichever was set.
type TokenResponse struct {
	AccessToken            string `json:"access_token"`
	RefreshToken           string `json:"refresh_token"`
	TokenType              string `json:"token_type"`
	ExpiresIn              int    `json:"expires_in"`
	XRefreshTokenExpiresIn int    `json:"x_refresh_token_expires_in"`
	RefreshTokenExpiresIn  int    `json:"refresh_token_expires_in"`
}

// RefreshTokenTTL returns the refresh token lifetime in seconds
func (t *TokenResponse) RefreshTokenTTL() int {
	if t.XRefreshTokenExpiresIn > 0 {
		return t.XRefreshTokenExpiresIn
	}
	return t.RefreshTokenExpiresIn
}

// Ref is the provider's generic entity reference
type Ref struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

// Customer is the subset of the provider customer entity the system uses
type Customer struct {
	ID           string `json:"Id"`
	DisplayName  string `json:"DisplayName"`
	CompanyName  string `json:"CompanyName,omitempty"`
	Active       bool   `json:"Active"`
	PrimaryEmail *struct {
		Address string `json:"Address"`
	} `json:"PrimaryEmailAddr,omitempty"`
}

// Invoice is the subset of the provider invoice entity the system uses.
// Dates arrive as yyyy-mm-dd strings.
type Invoice struct {
	ID          string          `json:"Id"`
	DocNumber   string          `json:"DocNumber"`
	SyncToken   string          `json:"SyncToken"`
	TxnDate     string          `json:"TxnDate"`
	DueDate     string          `json:"DueDate,omitempty"`
	TotalAmt    decimal.Decimal `json:"TotalAmt"`
	Balance     decimal.Decimal `json:"Balance"`
	EmailStatus string          `json:"EmailStatus,omitempty"`
	PrivateNote string          `json:"PrivateNote,omitempty"`
	CustomerRef Ref             `json:"CustomerRef"`
	CurrencyRef Ref             `json:"CurrencyRef"`
}

// FetchedInvoice pairs the parsed invoice with the raw provider document,
// which is persisted verbatim for audit.
type FetchedInvoice struct {
	Invoice Invoice
	Raw     json.RawMessage
}

type customerQueryResponse struct {
	QueryResponse struct {
		Customer []Customer `json:"Customer"`
	} `json:"QueryResponse"`
}

type customerReadResponse struct {
	Customer Customer `json:"Customer"`
}

type invoiceQueryResponse struct {
	QueryResponse struct {
		Invoice []json.RawMessage `json:"Invoice"`
	} `json:"QueryResponse"`
}

// fault is the provider's structured error envelope
type fault struct {
	Fault struct {
		Type  string `json:"type"`
		Error []struct {
			Detail  string `json:"Detail"`
			Code    string `json:"code"`
			Element string `json:"element,omitempty"`
		} `json:"Error"`
	} `json:"fault"`
}
