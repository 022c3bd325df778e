package quickbooks

import (
	"context"

	"github.com/complytrack/complytrack/internal/types"
)

const (
	// OAuth endpoints are environment-independent
	authorizationEndpoint = "https://appcenter.intuit.com/connect/oauth2"
	tokenEndpoint         = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"
	revokeEndpoint        = "https://developer.api.intuit.com/v2/oauth2/tokens/revoke"

	accountingScope = "com.intuit.quickbooks.accounting"

	sandboxBaseURL    = "https://sandbox-quickbooks.api.intuit.com"
	productionBaseURL = "https://quickbooks.api.intuit.com"

	// minorVersion pins the response schema of the data API
	minorVersion = "70"
)

// ProviderConfig is the resolved OAuth application configuration for one
// organization. Settings precedence is handled by the caller; this struct
// always carries plaintext credentials.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Environment  types.ProviderEnvironment
}

// ConfigProvider resolves the provider configuration for an organization
type ConfigProvider interface {
	Resolve(ctx context.Context, organizationID string) (*ProviderConfig, error)
}

// apiBaseURL returns the data API base URL for the given environment
func apiBaseURL(env types.ProviderEnvironment) string {
	if env == types.ProviderEnvironmentSandbox {
		return sandboxBaseURL
	}
	return productionBaseURL
}
