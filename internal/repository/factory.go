package repository

import (
	"github.com/complytrack/complytrack/internal/domain/connection"
	"github.com/complytrack/complytrack/internal/domain/settings"
	"github.com/complytrack/complytrack/internal/domain/syncedinvoice"
	"github.com/complytrack/complytrack/internal/logger"
	"github.com/complytrack/complytrack/internal/postgres"
	postgresRepo "github.com/complytrack/complytrack/internal/repository/postgres"
)

func NewConnectionRepository(db *postgres.DB, logger *logger.Logger) connection.Repository {
	return postgresRepo.NewConnectionRepository(db, logger)
}

func NewSyncedInvoiceRepository(db *postgres.DB, logger *logger.Logger) syncedinvoice.Repository {
	return postgresRepo.NewSyncedInvoiceRepository(db, logger)
}

func NewSettingsRepository(db *postgres.DB, logger *logger.Logger) settings.Repository {
	return postgresRepo.NewSettingsRepository(db, logger)
}
