package quickbooks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/complytrack/complytrack/internal/config"
	"github.com/complytrack/complytrack/internal/domain/connection"
	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/logger"
	"github.com/complytrack/complytrack/internal/security"
	"github.com/complytrack/complytrack/internal/testutil"
	"github.com/complytrack/complytrack/internal/types"
	"github.com/stretchr/testify/suite"
)

// staticConfigProvider resolves the same provider config for every
// organization.
type staticConfigProvider struct {
	cfg *ProviderConfig
}

func (p *staticConfigProvider) Resolve(ctx context.Context, organizationID string) (*ProviderConfig, error) {
	return p.cfg, nil
}

type SyncEngineSuite struct {
	suite.Suite
	ctx         context.Context
	httpClient  *testutil.MockHTTPClient
	connStore   *testutil.InMemoryConnectionStore
	invoiceRepo *testutil.InMemoryInvoiceStore
	encryption  security.EncryptionService
	engine      *SyncEngine
}

func TestSyncEngine(t *testing.T) {
	suite.Run(t, new(SyncEngineSuite))
}

func (s *SyncEngineSuite) SetupTest() {
	s.ctx = testutil.SetupContext()
	s.httpClient = testutil.NewMockHTTPClient()
	s.connStore = testutil.NewInMemoryConnectionStore()
	s.invoiceRepo = testutil.NewInMemoryInvoiceStore()

	log := logger.GetLogger()
	enc, err := security.NewEncryptionService(config.GetDefaultConfig(), log)
	s.Require().NoError(err)
	s.encryption = enc

	providerCfg := &ProviderConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.example.com/v1/integrations/quickbooks/callback",
		Environment:  types.ProviderEnvironmentSandbox,
	}

	tokens := NewTokenService(s.httpClient, log)
	api := NewApiClient(tokens, s.httpClient, s.connStore, s.encryption, testutil.NewInMemoryAuditSink(), log)
	s.engine = NewSyncEngine(api, &staticConfigProvider{cfg: providerCfg}, s.connStore, s.invoiceRepo, log)
}

func (s *SyncEngineSuite) newConnection(mappedCustomerID string) *connection.Connection {
	encryptedAccess, err := s.encryption.Encrypt("access-plain")
	s.Require().NoError(err)
	encryptedRefresh, err := s.encryption.Encrypt("refresh-plain")
	s.Require().NoError(err)

	conn := &connection.Connection{
		ID:                    types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CONNECTION),
		OrganizationID:        testutil.TestOrganizationID,
		RealmID:               "realm-1",
		AccessToken:           encryptedAccess,
		RefreshToken:          encryptedRefresh,
		AccessTokenExpiresAt:  time.Now().UTC().Add(time.Hour),
		RefreshTokenExpiresAt: time.Now().UTC().Add(100 * 24 * time.Hour),
		MappedCustomerID:      mappedCustomerID,
		Status:                types.ConnectionStatusConnected,
		BaseModel:             types.GetDefaultBaseModel(s.ctx),
	}
	s.Require().NoError(s.connStore.Create(s.ctx, conn))
	return conn
}

func invoiceJSON(id, docNumber, txnDate, balance string) string {
	return fmt.Sprintf(`{
		"Id": %q,
		"DocNumber": %q,
		"SyncToken": "0",
		"TxnDate": %q,
		"DueDate": "2026-09-15",
		"TotalAmt": 1500.00,
		"Balance": %s,
		"CustomerRef": {"value": "cust-1", "name": "Acme Corp"},
		"CurrencyRef": {"value": "USD"}
	}`, id, docNumber, txnDate, balance)
}

func (s *SyncEngineSuite) registerInvoiceQuery(invoices ...string) {
	body := `{"QueryResponse":{"Invoice":[`
	for i, inv := range invoices {
		if i > 0 {
			body += ","
		}
		body += inv
	}
	body += `]}}`

	s.httpClient.RegisterResponse("FROM+Invoice", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(body),
	})
}

func (s *SyncEngineSuite) TestSearchCustomers() {
	s.newConnection("")
	s.httpClient.RegisterResponse("FROM+Customer", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body: []byte(`{"QueryResponse":{"Customer":[
			{"Id":"1","DisplayName":"Acme Corp","CompanyName":"Acme Corporation","Active":true},
			{"Id":"2","DisplayName":"Beta LLC","Active":true}
		]}}`),
	})

	customers, err := s.engine.SearchCustomers(s.ctx, testutil.TestOrganizationID, "Acme")
	s.NoError(err)
	s.Require().Len(customers, 2)
	s.Equal("Acme Corp", customers[0].DisplayName)

	req := s.httpClient.Requests[len(s.httpClient.Requests)-1]
	rawQuery, err := url.QueryUnescape(req.URL)
	s.NoError(err)
	s.Contains(rawQuery, "DisplayName LIKE '%Acme%'")
	s.Contains(rawQuery, "MAXRESULTS 50")
}

func (s *SyncEngineSuite) TestSearchCustomersEscapesQuotes() {
	s.newConnection("")
	s.httpClient.RegisterResponse("FROM+Customer", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"QueryResponse":{}}`),
	})

	_, err := s.engine.SearchCustomers(s.ctx, testutil.TestOrganizationID, "O'Brien")
	s.NoError(err)

	req := s.httpClient.Requests[len(s.httpClient.Requests)-1]
	rawQuery, err := url.QueryUnescape(req.URL)
	s.NoError(err)
	s.Contains(rawQuery, `O\'Brien`)
}

func (s *SyncEngineSuite) TestSearchCustomersWithoutConnection() {
	_, err := s.engine.SearchCustomers(s.ctx, testutil.TestOrganizationID, "Acme")
	s.Error(err)
	s.True(ierr.IsNotConnected(err))
	s.Equal(0, s.httpClient.TotalCalls())
}

func (s *SyncEngineSuite) TestMapCustomer() {
	s.newConnection("")
	s.httpClient.RegisterResponse("customer/cust-1", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body:       []byte(`{"Customer":{"Id":"cust-1","DisplayName":"Acme Corp"}}`),
	})

	conn, err := s.engine.MapCustomer(s.ctx, testutil.TestOrganizationID, "cust-1")
	s.NoError(err)
	s.Equal("cust-1", conn.MappedCustomerID)
	s.Equal("Acme Corp", conn.MappedCustomerName)

	stored, err := s.connStore.GetByOrganization(s.ctx, testutil.TestOrganizationID)
	s.NoError(err)
	s.Equal("cust-1", stored.MappedCustomerID)
	s.Equal("Acme Corp", stored.MappedCustomerName)
}

func (s *SyncEngineSuite) TestSyncInvoices() {
	s.newConnection("cust-1")
	s.registerInvoiceQuery(
		invoiceJSON("inv-1", "1001", "2026-08-01", "0"),
		invoiceJSON("inv-2", "1002", "2026-08-05", "750.00"),
		invoiceJSON("inv-3", "1003", "2026-08-10", "1500.00"),
	)

	result, err := s.engine.SyncInvoices(s.ctx, testutil.TestOrganizationID)
	s.NoError(err)
	s.Equal(3, result.SyncedCount)
	s.Empty(result.Errors)

	invoices, err := s.invoiceRepo.ListByOrganization(s.ctx, testutil.TestOrganizationID)
	s.NoError(err)
	s.Len(invoices, 3)

	stored, err := s.connStore.GetByOrganization(s.ctx, testutil.TestOrganizationID)
	s.NoError(err)
	s.NotNil(stored.LastSyncAt)
	s.Equal(types.ConnectionStatusConnected, stored.Status)
}

func (s *SyncEngineSuite) TestSyncContinuesPastFailingInvoice() {
	s.newConnection("cust-1")
	s.registerInvoiceQuery(
		invoiceJSON("inv-1", "1001", "2026-08-01", "0"),
		invoiceJSON("inv-2", "1002", "2026-08-02", "100.00"),
		invoiceJSON("inv-3", "1003", "2026-08-03", "200.00"),
		invoiceJSON("inv-4", "1004", "2026-08-04", "300.00"),
		invoiceJSON("inv-5", "1005", "2026-08-05", "400.00"),
	)
	s.invoiceRepo.FailFor["1003"] = fmt.Errorf("constraint violation")

	result, err := s.engine.SyncInvoices(s.ctx, testutil.TestOrganizationID)
	s.NoError(err)
	s.Equal(4, result.SyncedCount)
	s.Require().Len(result.Errors, 1)
	s.Equal("1003", result.Errors[0].DocNumber)
	s.Contains(result.Errors[0].Message, "constraint violation")

	// a partial batch still counts as a completed run
	stored, err := s.connStore.GetByOrganization(s.ctx, testutil.TestOrganizationID)
	s.NoError(err)
	s.NotNil(stored.LastSyncAt)
	s.Equal(types.ConnectionStatusConnected, stored.Status)
}

func (s *SyncEngineSuite) TestSyncUpsertOverwrites() {
	s.newConnection("cust-1")

	s.registerInvoiceQuery(invoiceJSON("inv-1", "1001", "2026-08-01", "1500.00"))
	_, err := s.engine.SyncInvoices(s.ctx, testutil.TestOrganizationID)
	s.NoError(err)

	// the invoice got partially paid before the next run
	s.registerInvoiceQuery(invoiceJSON("inv-1", "1001", "2026-08-01", "500.00"))
	_, err = s.engine.SyncInvoices(s.ctx, testutil.TestOrganizationID)
	s.NoError(err)

	invoices, err := s.invoiceRepo.ListByOrganization(s.ctx, testutil.TestOrganizationID)
	s.NoError(err)
	s.Require().Len(invoices, 1)
	s.Equal("500", invoices[0].Balance.String())
}

func (s *SyncEngineSuite) TestSyncWithoutMappedCustomer() {
	s.newConnection("")

	_, err := s.engine.SyncInvoices(s.ctx, testutil.TestOrganizationID)
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrCustomerNotMapped))

	// fails before any provider traffic
	s.Equal(0, s.httpClient.TotalCalls())
}

func (s *SyncEngineSuite) TestSyncWithoutConnection() {
	_, err := s.engine.SyncInvoices(s.ctx, testutil.TestOrganizationID)
	s.Error(err)
	s.True(ierr.IsNotConnected(err))
}

func (s *SyncEngineSuite) TestSyncFetchFailureMarksConnectionErrored() {
	conn := s.newConnection("cust-1")
	priorSync := conn.LastSyncAt
	s.httpClient.RegisterResponse("FROM+Invoice", testutil.MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       []byte(`{"Fault":{"Error":[{"Detail":"internal error","code":"500"}]}}`),
	})

	_, err := s.engine.SyncInvoices(s.ctx, testutil.TestOrganizationID)
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrProvider))

	stored, err := s.connStore.GetByOrganization(s.ctx, testutil.TestOrganizationID)
	s.NoError(err)
	s.Equal(types.ConnectionStatusError, stored.Status)
	s.NotEmpty(stored.ErrorMessage)
	s.Equal(priorSync, stored.LastSyncAt)
}

func (s *SyncEngineSuite) TestSyncRefreshRejectionKeepsTokenExpired() {
	conn := s.newConnection("cust-1")
	conn.AccessTokenExpiresAt = time.Now().UTC().Add(-time.Minute)
	s.Require().NoError(s.connStore.Update(s.ctx, conn))

	s.httpClient.RegisterResponse("tokens/bearer", testutil.MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"error":"invalid_grant"}`),
	})

	_, err := s.engine.SyncInvoices(s.ctx, testutil.TestOrganizationID)
	s.Error(err)
	s.True(ierr.IsRefreshTokenInvalid(err))

	// the failed refresh already recorded token_expired; the sync must not
	// overwrite it with error and hide the re-auth requirement
	stored, err := s.connStore.GetByOrganization(s.ctx, testutil.TestOrganizationID)
	s.NoError(err)
	s.Equal(types.ConnectionStatusTokenExpired, stored.Status)
	s.Equal(0, s.httpClient.CallCount("FROM+Invoice"))
}

func (s *SyncEngineSuite) TestFetchInvoicesOrdering() {
	s.newConnection("cust-1")
	s.registerInvoiceQuery(invoiceJSON("inv-1", "1001", "2026-08-10", "0"))

	fetched, err := s.engine.FetchInvoicesForCustomer(s.ctx, testutil.TestOrganizationID, "cust-1")
	s.NoError(err)
	s.Require().Len(fetched, 1)
	s.Equal("1001", fetched[0].Invoice.DocNumber)

	req := s.httpClient.Requests[len(s.httpClient.Requests)-1]
	rawQuery, err := url.QueryUnescape(req.URL)
	s.NoError(err)
	s.Contains(rawQuery, "ORDERBY TxnDate DESC")
	s.Contains(rawQuery, "MAXRESULTS 500")
	s.Contains(rawQuery, "CustomerRef = 'cust-1'")
}
