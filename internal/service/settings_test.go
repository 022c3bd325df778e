package service

import (
	"testing"

	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/testutil"
	"github.com/complytrack/complytrack/internal/types"
	"github.com/stretchr/testify/suite"
)

type SettingsServiceSuite struct {
	testutil.BaseServiceTestSuite
	service SettingsService
}

func TestSettingsService(t *testing.T) {
	suite.Run(t, new(SettingsServiceSuite))
}

func (s *SettingsServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	stores := s.GetStores()
	params := ServiceParams{
		Logger:         s.GetLogger(),
		Config:         s.GetConfig(),
		DB:             s.GetTxManager(),
		Cache:          s.GetCache(),
		OrgLock:        s.GetOrgLock(),
		HTTPClient:     s.GetHTTPClient(),
		Encryption:     s.GetEncryption(),
		AuditLog:       s.GetAuditSink(),
		ConnectionRepo: stores.ConnectionRepo,
		InvoiceRepo:    stores.InvoiceRepo,
		SettingsRepo:   stores.SettingsRepo,
	}
	s.service = NewSettingsService(params)
}

func (s *SettingsServiceSuite) TestResolveFromEnvironmentConfig() {
	cfg := s.GetConfig()
	cfg.QuickBooks.ClientID = "env-client"
	cfg.QuickBooks.ClientSecret = "env-secret"
	cfg.QuickBooks.RedirectURI = "https://env.example.com/callback"

	resolved, err := s.service.Resolve(s.GetContext(), testutil.TestOrganizationID)
	s.NoError(err)
	s.Equal("env-client", resolved.ClientID)
	s.Equal("env-secret", resolved.ClientSecret)
	s.Equal("https://env.example.com/callback", resolved.RedirectURI)
	s.Equal(types.ProviderEnvironmentSandbox, resolved.Environment)
}

func (s *SettingsServiceSuite) TestResolveStoredSettingsTakePrecedence() {
	cfg := s.GetConfig()
	cfg.QuickBooks.ClientID = "env-client"
	cfg.QuickBooks.ClientSecret = "env-secret"

	_, err := s.service.UpdateSettings(s.GetContext(), testutil.TestOrganizationID, &UpdateSettingsRequest{
		ClientID:     "tenant-client",
		ClientSecret: "tenant-secret",
		Environment:  types.ProviderEnvironmentProduction,
	})
	s.Require().NoError(err)

	resolved, err := s.service.Resolve(s.GetContext(), testutil.TestOrganizationID)
	s.NoError(err)
	s.Equal("tenant-client", resolved.ClientID)
	s.Equal("tenant-secret", resolved.ClientSecret)
	s.Equal(types.ProviderEnvironmentProduction, resolved.Environment)
}

func (s *SettingsServiceSuite) TestResolveDerivesRedirectURIFromBaseURL() {
	cfg := s.GetConfig()
	cfg.QuickBooks.ClientID = "env-client"
	cfg.QuickBooks.ClientSecret = "env-secret"
	cfg.QuickBooks.RedirectURI = ""
	cfg.Server.BaseURL = "https://app.example.com/"

	resolved, err := s.service.Resolve(s.GetContext(), testutil.TestOrganizationID)
	s.NoError(err)
	s.Equal("https://app.example.com/v1/integrations/quickbooks/callback", resolved.RedirectURI)
}

func (s *SettingsServiceSuite) TestResolveWithoutCredentials() {
	_, err := s.service.Resolve(s.GetContext(), testutil.TestOrganizationID)
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrValidation))
}

func (s *SettingsServiceSuite) TestUpdateSettingsEncryptsSecretAtRest() {
	_, err := s.service.UpdateSettings(s.GetContext(), testutil.TestOrganizationID, &UpdateSettingsRequest{
		ClientID:     "tenant-client",
		ClientSecret: "tenant-secret",
		Environment:  types.ProviderEnvironmentSandbox,
	})
	s.Require().NoError(err)

	stored, err := s.GetStores().SettingsRepo.GetByOrganization(s.GetContext(), testutil.TestOrganizationID)
	s.NoError(err)
	s.NotEqual("tenant-secret", stored.ClientSecret)

	plain, err := s.GetEncryption().Decrypt(stored.ClientSecret)
	s.NoError(err)
	s.Equal("tenant-secret", plain)
}

func (s *SettingsServiceSuite) TestUpdateSettingsReplacesPrevious() {
	_, err := s.service.UpdateSettings(s.GetContext(), testutil.TestOrganizationID, &UpdateSettingsRequest{
		ClientID:     "first-client",
		ClientSecret: "first-secret",
		Environment:  types.ProviderEnvironmentSandbox,
	})
	s.Require().NoError(err)

	_, err = s.service.UpdateSettings(s.GetContext(), testutil.TestOrganizationID, &UpdateSettingsRequest{
		ClientID:     "second-client",
		ClientSecret: "second-secret",
		Environment:  types.ProviderEnvironmentSandbox,
	})
	s.Require().NoError(err)

	stored, err := s.GetStores().SettingsRepo.GetByOrganization(s.GetContext(), testutil.TestOrganizationID)
	s.NoError(err)
	s.Equal("second-client", stored.ClientID)
}

func (s *SettingsServiceSuite) TestUpdateSettingsRejectsUnknownEnvironment() {
	_, err := s.service.UpdateSettings(s.GetContext(), testutil.TestOrganizationID, &UpdateSettingsRequest{
		ClientID:     "tenant-client",
		ClientSecret: "tenant-secret",
		Environment:  types.ProviderEnvironment("staging"),
	})
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrValidation))
}

func (s *SettingsServiceSuite) TestDeleteSettingsFallsBackToEnvironment() {
	cfg := s.GetConfig()
	cfg.QuickBooks.ClientID = "env-client"
	cfg.QuickBooks.ClientSecret = "env-secret"

	_, err := s.service.UpdateSettings(s.GetContext(), testutil.TestOrganizationID, &UpdateSettingsRequest{
		ClientID:     "tenant-client",
		ClientSecret: "tenant-secret",
		Environment:  types.ProviderEnvironmentProduction,
	})
	s.Require().NoError(err)

	s.Require().NoError(s.service.DeleteSettings(s.GetContext(), testutil.TestOrganizationID))

	resolved, err := s.service.Resolve(s.GetContext(), testutil.TestOrganizationID)
	s.NoError(err)
	s.Equal("env-client", resolved.ClientID)
}
