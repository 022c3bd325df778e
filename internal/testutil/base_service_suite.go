package testutil

import (
	"context"

	"github.com/complytrack/complytrack/internal/cache"
	"github.com/complytrack/complytrack/internal/config"
	"github.com/complytrack/complytrack/internal/lock"
	"github.com/complytrack/complytrack/internal/logger"
	"github.com/complytrack/complytrack/internal/security"
	"github.com/stretchr/testify/suite"
)

// Stores bundles the in-memory repositories used by service tests
type Stores struct {
	ConnectionRepo *InMemoryConnectionStore
	InvoiceRepo    *InMemoryInvoiceStore
	SettingsRepo   *InMemorySettingsStore
}

// BaseServiceTestSuite provides common test setup: in-memory stores, mock
// http client, encryption and a test identity context.
type BaseServiceTestSuite struct {
	suite.Suite

	ctx        context.Context
	cfg        *config.Configuration
	log        *logger.Logger
	stores     Stores
	httpClient *MockHTTPClient
	encryption security.EncryptionService
	cacheStore cache.Cache
	orgLock    *lock.KeyedMutex
	auditSink  *InMemoryAuditSink
	txManager  *InMemoryTxManager
}

func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.cfg = config.GetDefaultConfig()
	s.log = logger.GetLogger()

	s.stores = Stores{
		ConnectionRepo: NewInMemoryConnectionStore(),
		InvoiceRepo:    NewInMemoryInvoiceStore(),
		SettingsRepo:   NewInMemorySettingsStore(),
	}
	s.httpClient = NewMockHTTPClient()
	s.cacheStore = cache.NewInMemoryCache()
	s.orgLock = lock.NewKeyedMutex()
	s.auditSink = NewInMemoryAuditSink()
	s.txManager = NewInMemoryTxManager()

	enc, err := security.NewEncryptionService(s.cfg, s.log)
	s.Require().NoError(err)
	s.encryption = enc
}

func (s *BaseServiceTestSuite) GetContext() context.Context       { return s.ctx }
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration  { return s.cfg }
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger         { return s.log }
func (s *BaseServiceTestSuite) GetStores() Stores                 { return s.stores }
func (s *BaseServiceTestSuite) GetHTTPClient() *MockHTTPClient    { return s.httpClient }
func (s *BaseServiceTestSuite) GetCache() cache.Cache             { return s.cacheStore }
func (s *BaseServiceTestSuite) GetOrgLock() *lock.KeyedMutex      { return s.orgLock }
func (s *BaseServiceTestSuite) GetAuditSink() *InMemoryAuditSink  { return s.auditSink }
func (s *BaseServiceTestSuite) GetTxManager() *InMemoryTxManager  { return s.txManager }
func (s *BaseServiceTestSuite) GetEncryption() security.EncryptionService {
	return s.encryption
}

// ClearStores resets all in-memory repositories
func (s *BaseServiceTestSuite) ClearStores() {
	s.stores.ConnectionRepo = NewInMemoryConnectionStore()
	s.stores.InvoiceRepo = NewInMemoryInvoiceStore()
	s.stores.SettingsRepo = NewInMemorySettingsStore()
	s.httpClient.Clear()
}
