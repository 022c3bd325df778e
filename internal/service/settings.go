package service

import (
	"context"
	"strings"

	"github.com/complytrack/complytrack/internal/domain/settings"
	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/integration/quickbooks"
	"github.com/complytrack/complytrack/internal/types"
)

const callbackPath = "/v1/integrations/quickbooks/callback"

// SettingsService resolves and manages per-organization provider
// credentials. Resolution precedence: stored per-tenant settings, then
// process configuration, then an auto-detected redirect URI.
type SettingsService interface {
	quickbooks.ConfigProvider

	UpdateSettings(ctx context.Context, organizationID string, req *UpdateSettingsRequest) (*settings.IntegrationSettings, error)
	GetSettings(ctx context.Context, organizationID string) (*settings.IntegrationSettings, error)
	DeleteSettings(ctx context.Context, organizationID string) error
}

// UpdateSettingsRequest carries new per-tenant provider credentials
type UpdateSettingsRequest struct {
	ClientID     string                    `json:"client_id" validate:"required"`
	ClientSecret string                    `json:"client_secret" validate:"required"`
	RedirectURI  string                    `json:"redirect_uri,omitempty"`
	Environment  types.ProviderEnvironment `json:"environment" validate:"required"`
}

type settingsService struct {
	ServiceParams
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(params ServiceParams) SettingsService {
	return &settingsService{ServiceParams: params}
}

// Resolve returns the effective provider configuration for an organization
// with plaintext credentials.
func (s *settingsService) Resolve(ctx context.Context, organizationID string) (*quickbooks.ProviderConfig, error) {
	stored, err := s.SettingsRepo.GetByOrganization(ctx, organizationID)
	if err != nil && !ierr.IsNotFound(err) {
		return nil, err
	}

	cfg := &quickbooks.ProviderConfig{
		ClientID:     s.Config.QuickBooks.ClientID,
		ClientSecret: s.Config.QuickBooks.ClientSecret,
		RedirectURI:  s.Config.QuickBooks.RedirectURI,
		Environment:  s.Config.QuickBooks.Environment,
	}

	if stored != nil {
		secret, err := s.Encryption.Decrypt(stored.ClientSecret)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("Failed to decrypt stored client secret").
				Mark(ierr.ErrInternal)
		}
		cfg.ClientID = stored.ClientID
		cfg.ClientSecret = secret
		cfg.Environment = stored.Environment
		if stored.RedirectURI != "" {
			cfg.RedirectURI = stored.RedirectURI
		}
	}

	if cfg.RedirectURI == "" {
		cfg.RedirectURI = strings.TrimSuffix(s.Config.Server.BaseURL, "/") + callbackPath
	}

	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, ierr.NewError("provider credentials not configured").
			WithHint("Configure client id and secret via settings or environment").
			Mark(ierr.ErrValidation)
	}

	return cfg, nil
}

func (s *settingsService) UpdateSettings(ctx context.Context, organizationID string, req *UpdateSettingsRequest) (*settings.IntegrationSettings, error) {
	if err := req.Environment.Validate(); err != nil {
		return nil, err
	}

	encryptedSecret, err := s.Encryption.Encrypt(req.ClientSecret)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encrypt client secret").
			Mark(ierr.ErrInternal)
	}

	item := &settings.IntegrationSettings{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SETTINGS),
		OrganizationID: organizationID,
		ClientID:       req.ClientID,
		ClientSecret:   encryptedSecret,
		RedirectURI:    req.RedirectURI,
		Environment:    req.Environment,
		BaseModel:      types.GetDefaultBaseModel(ctx),
	}

	if err := s.SettingsRepo.Upsert(ctx, item); err != nil {
		return nil, err
	}

	s.Logger.Infow("updated integration settings",
		"organization_id", organizationID,
		"environment", req.Environment,
	)

	return item, nil
}

func (s *settingsService) GetSettings(ctx context.Context, organizationID string) (*settings.IntegrationSettings, error) {
	return s.SettingsRepo.GetByOrganization(ctx, organizationID)
}

func (s *settingsService) DeleteSettings(ctx context.Context, organizationID string) error {
	return s.SettingsRepo.DeleteByOrganization(ctx, organizationID)
}
