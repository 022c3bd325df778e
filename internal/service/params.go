package service

import (
	"github.com/complytrack/complytrack/internal/auditlog"
	"github.com/complytrack/complytrack/internal/cache"
	"github.com/complytrack/complytrack/internal/config"
	"github.com/complytrack/complytrack/internal/domain/connection"
	"github.com/complytrack/complytrack/internal/domain/settings"
	"github.com/complytrack/complytrack/internal/domain/syncedinvoice"
	"github.com/complytrack/complytrack/internal/httpclient"
	"github.com/complytrack/complytrack/internal/lock"
	"github.com/complytrack/complytrack/internal/logger"
	"github.com/complytrack/complytrack/internal/postgres"
	"github.com/complytrack/complytrack/internal/security"
)

// ServiceParams bundles the dependencies shared by all services
type ServiceParams struct {
	Logger     *logger.Logger
	Config     *config.Configuration
	DB         postgres.TxManager
	Cache      cache.Cache
	OrgLock    *lock.KeyedMutex
	HTTPClient httpclient.Client
	Encryption security.EncryptionService
	AuditLog   auditlog.Publisher

	// Repositories
	ConnectionRepo connection.Repository
	InvoiceRepo    syncedinvoice.Repository
	SettingsRepo   settings.Repository
}

// NewServiceParams assembles the shared dependency bundle
func NewServiceParams(
	logger *logger.Logger,
	cfg *config.Configuration,
	db *postgres.DB,
	cacheStore cache.Cache,
	orgLock *lock.KeyedMutex,
	httpClient httpclient.Client,
	encryption security.EncryptionService,
	auditLog auditlog.Publisher,
	connectionRepo connection.Repository,
	invoiceRepo syncedinvoice.Repository,
	settingsRepo settings.Repository,
) ServiceParams {
	return ServiceParams{
		Logger:         logger,
		Config:         cfg,
		DB:             db,
		Cache:          cacheStore,
		OrgLock:        orgLock,
		HTTPClient:     httpClient,
		Encryption:     encryption,
		AuditLog:       auditLog,
		ConnectionRepo: connectionRepo,
		InvoiceRepo:    invoiceRepo,
		SettingsRepo:   settingsRepo,
	}
}
