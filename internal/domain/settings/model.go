package settings

import (
	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/types"
)

// IntegrationSettings holds per-organization provider credentials. When a
// row exists it takes precedence over the process-level configuration.
// ClientSecret is ciphertext at rest.
type IntegrationSettings struct {
	ID             string                    `db:"id" json:"id"`
	OrganizationID string                    `db:"organization_id" json:"organization_id"`
	ClientID       string                    `db:"client_id" json:"client_id"`
	ClientSecret   string                    `db:"client_secret" json:"-"`
	RedirectURI    string                    `db:"redirect_uri" json:"redirect_uri,omitempty"`
	Environment    types.ProviderEnvironment `db:"environment" json:"environment"`

	types.BaseModel
}

// Validate checks that the settings are complete enough to drive an OAuth flow
func (s *IntegrationSettings) Validate() error {
	if s.ClientID == "" {
		return ierr.NewError("client_id is required").
			WithHint("Provide the provider application's client id").
			Mark(ierr.ErrValidation)
	}
	if s.ClientSecret == "" {
		return ierr.NewError("client_secret is required").
			WithHint("Provide the provider application's client secret").
			Mark(ierr.ErrValidation)
	}
	if err := s.Environment.Validate(); err != nil {
		return err
	}
	return nil
}
