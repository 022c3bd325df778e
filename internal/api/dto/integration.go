package dto

import (
	"github.com/complytrack/complytrack/internal/types"
	"github.com/complytrack/complytrack/internal/validator"
)

// CallbackRequest is the provider's OAuth redirect payload
type CallbackRequest struct {
	Code    string `form:"code" json:"code" validate:"required"`
	State   string `form:"state" json:"state" validate:"required"`
	RealmID string `form:"realmId" json:"realm_id" validate:"required"`
}

func (r *CallbackRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// MapCustomerRequest links a provider customer to the organization
type MapCustomerRequest struct {
	CustomerID string `json:"customer_id" validate:"required"`
}

func (r *MapCustomerRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// UpdateSettingsRequest carries per-tenant provider credentials
type UpdateSettingsRequest struct {
	ClientID     string                    `json:"client_id" validate:"required"`
	ClientSecret string                    `json:"client_secret" validate:"required"`
	RedirectURI  string                    `json:"redirect_uri,omitempty"`
	Environment  types.ProviderEnvironment `json:"environment" validate:"required"`
}

func (r *UpdateSettingsRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// SettingsResponse never echoes the client secret
type SettingsResponse struct {
	OrganizationID string                    `json:"organization_id"`
	ClientID       string                    `json:"client_id"`
	RedirectURI    string                    `json:"redirect_uri,omitempty"`
	Environment    types.ProviderEnvironment `json:"environment"`
}
