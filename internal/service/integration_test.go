package service

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/complytrack/complytrack/internal/auditlog"
	"github.com/complytrack/complytrack/internal/cache"
	"github.com/complytrack/complytrack/internal/domain/connection"
	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/testutil"
	"github.com/complytrack/complytrack/internal/types"
	"github.com/stretchr/testify/suite"
)

type IntegrationServiceSuite struct {
	testutil.BaseServiceTestSuite
	service  IntegrationService
	settings SettingsService
}

func TestIntegrationService(t *testing.T) {
	suite.Run(t, new(IntegrationServiceSuite))
}

func (s *IntegrationServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()

	cfg := s.GetConfig()
	cfg.QuickBooks.ClientID = "client-id"
	cfg.QuickBooks.ClientSecret = "client-secret"
	cfg.QuickBooks.RedirectURI = "https://app.example.com/v1/integrations/quickbooks/callback"

	stores := s.GetStores()
	params := ServiceParams{
		Logger:         s.GetLogger(),
		Config:         cfg,
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

	s.settings = NewSettingsService(params)
	s.service = NewIntegrationService(params, s.settings)
}

func (s *IntegrationServiceSuite) registerTokenExchange() {
	s.GetHTTPClient().RegisterResponse("tokens/bearer", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body: []byte(`{
			"access_token": "access-plain",
			"refresh_token": "refresh-plain",
			"expires_in": 3600,
			"x_refresh_token_expires_in": 8640000
		}`),
	})
}

// connect initiates the flow and returns the issued state
func (s *IntegrationServiceSuite) connect() string {
	resp, err := s.service.Connect(s.GetContext(), testutil.TestOrganizationID)
	s.Require().NoError(err)

	parsed, err := url.Parse(resp.AuthorizationURL)
	s.Require().NoError(err)
	state := parsed.Query().Get("state")
	s.Require().NotEmpty(state)
	return state
}

// establish runs the full connect + callback flow
func (s *IntegrationServiceSuite) establish(realmID string) *connection.Connection {
	state := s.connect()
	s.registerTokenExchange()

	conn, err := s.service.Callback(s.GetContext(), testutil.TestOrganizationID, "auth-code", state, realmID)
	s.Require().NoError(err)
	return conn
}

func (s *IntegrationServiceSuite) TestConnectStoresState() {
	state := s.connect()

	stateKey := cache.GenerateKey(cache.PrefixOAuthState, testutil.TestOrganizationID)
	cached, found := s.GetCache().Get(s.GetContext(), stateKey)
	s.True(found)
	s.Equal(state, cached.(string))
}

func (s *IntegrationServiceSuite) TestCallbackRejectsMismatchedState() {
	s.connect()
	s.registerTokenExchange()

	_, err := s.service.Callback(s.GetContext(), testutil.TestOrganizationID, "auth-code", "forged-state", "realm-1")
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrInvalidState))

	// the code is never exchanged on a state mismatch
	s.Equal(0, s.GetHTTPClient().CallCount("tokens/bearer"))

	_, err = s.GetStores().ConnectionRepo.GetByOrganization(s.GetContext(), testutil.TestOrganizationID)
	s.True(ierr.IsNotFound(err))
}

func (s *IntegrationServiceSuite) TestCallbackRejectsCorruptedStateEntry() {
	s.registerTokenExchange()

	stateKey := cache.GenerateKey(cache.PrefixOAuthState, testutil.TestOrganizationID)
	s.GetCache().Set(s.GetContext(), stateKey, 12345, time.Minute)

	_, err := s.service.Callback(s.GetContext(), testutil.TestOrganizationID, "auth-code", "some-state", "realm-1")
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrInvalidState))
	s.Equal(0, s.GetHTTPClient().CallCount("tokens/bearer"))
}

func (s *IntegrationServiceSuite) TestCallbackEstablishesConnection() {
	conn := s.establish("realm-1")

	s.Equal("realm-1", conn.RealmID)
	s.Equal(types.ConnectionStatusConnected, conn.Status)
	s.True(conn.AccessTokenExpiresAt.After(time.Now().UTC()))

	// tokens are encrypted at rest
	s.NotEqual("access-plain", conn.AccessToken)
	access, err := s.GetEncryption().Decrypt(conn.AccessToken)
	s.NoError(err)
	s.Equal("access-plain", access)
	refresh, err := s.GetEncryption().Decrypt(conn.RefreshToken)
	s.NoError(err)
	s.Equal("refresh-plain", refresh)

	s.Contains(s.GetAuditSink().EventNames(), auditlog.EventConnectionEstablished)
}

func (s *IntegrationServiceSuite) TestCallbackStateIsSingleUse() {
	state := s.connect()
	s.registerTokenExchange()

	_, err := s.service.Callback(s.GetContext(), testutil.TestOrganizationID, "auth-code", state, "realm-1")
	s.Require().NoError(err)

	_, err = s.service.Callback(s.GetContext(), testutil.TestOrganizationID, "auth-code", state, "realm-1")
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrInvalidState))
}

func (s *IntegrationServiceSuite) TestReauthorizationUpdatesExistingConnection() {
	first := s.establish("realm-1")
	second := s.establish("realm-2")

	// one connection per organization, updated in place
	s.Equal(first.ID, second.ID)
	s.Equal("realm-2", second.RealmID)

	stored, err := s.GetStores().ConnectionRepo.GetByOrganization(s.GetContext(), testutil.TestOrganizationID)
	s.NoError(err)
	s.Equal(first.ID, stored.ID)
	s.Equal("realm-2", stored.RealmID)
}

func (s *IntegrationServiceSuite) TestDisconnectRemovesConnectionAndInvoices() {
	s.establish("realm-1")
	s.Require().NoError(s.GetStores().InvoiceRepo.Upsert(s.GetContext(), testutil.NewSyncedInvoiceFixture(s.GetContext(), testutil.TestOrganizationID, "inv-1", "1001")))

	s.GetHTTPClient().RegisterResponse("tokens/revoke", testutil.MockResponse{
		StatusCode: http.StatusOK,
	})

	err := s.service.Disconnect(s.GetContext(), testutil.TestOrganizationID)
	s.NoError(err)

	_, err = s.GetStores().ConnectionRepo.GetByOrganization(s.GetContext(), testutil.TestOrganizationID)
	s.True(ierr.IsNotFound(err))

	invoices, err := s.GetStores().InvoiceRepo.ListByOrganization(s.GetContext(), testutil.TestOrganizationID)
	s.NoError(err)
	s.Empty(invoices)

	// both deletes ran under one transaction
	s.Equal(1, s.GetTxManager().Calls())

	s.Contains(s.GetAuditSink().EventNames(), auditlog.EventConnectionRemoved)
}

func (s *IntegrationServiceSuite) TestDisconnectProceedsWhenRevocationFails() {
	s.establish("realm-1")
	s.GetHTTPClient().RegisterResponse("tokens/revoke", testutil.MockResponse{
		StatusCode: http.StatusInternalServerError,
	})

	err := s.service.Disconnect(s.GetContext(), testutil.TestOrganizationID)
	s.NoError(err)

	_, err = s.GetStores().ConnectionRepo.GetByOrganization(s.GetContext(), testutil.TestOrganizationID)
	s.True(ierr.IsNotFound(err))
}

func (s *IntegrationServiceSuite) TestDisconnectWithoutConnection() {
	err := s.service.Disconnect(s.GetContext(), testutil.TestOrganizationID)
	s.Error(err)
	s.True(ierr.IsNotConnected(err))
}

func (s *IntegrationServiceSuite) TestStatusWhenDisconnected() {
	status, err := s.service.Status(s.GetContext(), testutil.TestOrganizationID)
	s.NoError(err)
	s.Equal(types.ConnectionStatusDisconnected, status.Status)
	s.Equal(0, s.GetHTTPClient().TotalCalls())
}

func (s *IntegrationServiceSuite) TestStatusReflectsStoredState() {
	s.establish("realm-1")
	calls := s.GetHTTPClient().TotalCalls()

	status, err := s.service.Status(s.GetContext(), testutil.TestOrganizationID)
	s.NoError(err)
	s.Equal(types.ConnectionStatusConnected, status.Status)
	s.Equal("realm-1", status.RealmID)

	// status is served from storage, never from the provider
	s.Equal(calls, s.GetHTTPClient().TotalCalls())
}

func (s *IntegrationServiceSuite) TestListInvoicesServesStoredCopies() {
	s.Require().NoError(s.GetStores().InvoiceRepo.Upsert(s.GetContext(), testutil.NewSyncedInvoiceFixture(s.GetContext(), testutil.TestOrganizationID, "inv-1", "1001")))

	invoices, err := s.service.ListInvoices(s.GetContext(), testutil.TestOrganizationID)
	s.NoError(err)
	s.Len(invoices, 1)
	s.Equal(0, s.GetHTTPClient().TotalCalls())
}

func (s *IntegrationServiceSuite) TestSyncPublishesAuditEvents() {
	conn := s.establish("realm-1")
	conn.MappedCustomerID = "cust-1"
	conn.MappedCustomerName = "Acme Corp"
	s.Require().NoError(s.GetStores().ConnectionRepo.Update(s.GetContext(), conn))

	s.GetHTTPClient().RegisterResponse("FROM+Invoice", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body: []byte(`{"QueryResponse":{"Invoice":[{
			"Id": "inv-1",
			"DocNumber": "1001",
			"TxnDate": "2026-08-01",
			"TotalAmt": 100.00,
			"Balance": 0,
			"CustomerRef": {"value": "cust-1", "name": "Acme Corp"},
			"CurrencyRef": {"value": "USD"}
		}]}}`),
	})

	result, err := s.service.Sync(s.GetContext(), testutil.TestOrganizationID)
	s.NoError(err)
	s.Equal(1, result.SyncedCount)
	s.Contains(s.GetAuditSink().EventNames(), auditlog.EventSyncCompleted)
}

func (s *IntegrationServiceSuite) TestSyncWithoutMappedCustomerPublishesFailure() {
	s.establish("realm-1")

	_, err := s.service.Sync(s.GetContext(), testutil.TestOrganizationID)
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrCustomerNotMapped))
	s.Contains(s.GetAuditSink().EventNames(), auditlog.EventSyncFailed)
}
