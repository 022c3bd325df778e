package connection

import (
	"time"

	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/types"
)

// Connection represents a tenant's link to the accounting provider.
// Token fields hold ciphertext at rest; the service layer decrypts them
// before use and re-encrypts before persisting.
type Connection struct {
	ID             string `db:"id" json:"id"`
	OrganizationID string `db:"organization_id" json:"organization_id"`

	// RealmID is the provider-side company identifier captured during
	// the OAuth callback.
	RealmID string `db:"realm_id" json:"realm_id"`

	AccessToken           string    `db:"access_token" json:"-"`
	RefreshToken          string    `db:"refresh_token" json:"-"`
	AccessTokenExpiresAt  time.Time `db:"access_token_expires_at" json:"access_token_expires_at"`
	RefreshTokenExpiresAt time.Time `db:"refresh_token_expires_at" json:"refresh_token_expires_at"`

	// MappedCustomerID links the organization to a provider customer.
	// Empty until an explicit mapping is made.
	MappedCustomerID   string `db:"mapped_customer_id" json:"mapped_customer_id,omitempty"`
	MappedCustomerName string `db:"mapped_customer_name" json:"mapped_customer_name,omitempty"`

	Status       types.ConnectionStatus `db:"status" json:"status"`
	LastSyncAt   *time.Time             `db:"last_sync_at" json:"last_sync_at,omitempty"`
	ErrorMessage string                 `db:"error_message" json:"error_message,omitempty"`

	types.BaseModel
}

// IsCustomerMapped reports whether the organization has been linked to a
// provider customer.
func (c *Connection) IsCustomerMapped() bool {
	return c.MappedCustomerID != ""
}

// SetStatus transitions the connection to the given status, clearing the
// error message when the connection becomes healthy again. Moves the
// transition table forbids are rejected and leave the connection untouched.
func (c *Connection) SetStatus(status types.ConnectionStatus, errMsg string) error {
	if !c.Status.CanTransition(status) {
		return ierr.NewErrorf("invalid connection status transition: %s -> %s", c.Status, status).
			WithHint("The connection is not in a state that allows this transition").
			Mark(ierr.ErrInvalidOperation)
	}

	c.Status = status
	c.ErrorMessage = errMsg
	if status == types.ConnectionStatusConnected {
		c.ErrorMessage = ""
	}
	c.UpdatedAt = time.Now().UTC()
	return nil
}
