package postgres

import (
	"context"

	"github.com/complytrack/complytrack/internal/domain/settings"
	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/logger"
	"github.com/complytrack/complytrack/internal/postgres"
)

type settingsRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewSettingsRepository(db *postgres.DB, logger *logger.Logger) settings.Repository {
	return &settingsRepository{db: db, logger: logger}
}

func (r *settingsRepository) Upsert(ctx context.Context, s *settings.IntegrationSettings) error {
	query := `
	INSERT INTO integration_settings (
		id, organization_id, client_id, client_secret, redirect_uri, environment,
		created_at, updated_at, created_by, updated_by
	) VALUES (
		:id, :organization_id, :client_id, :client_secret, :redirect_uri, :environment,
		:created_at, :updated_at, :created_by, :updated_by
	)
	ON CONFLICT (organization_id) DO UPDATE SET
		client_id = EXCLUDED.client_id,
		client_secret = EXCLUDED.client_secret,
		redirect_uri = EXCLUDED.redirect_uri,
		environment = EXCLUDED.environment,
		updated_at = EXCLUDED.updated_at,
		updated_by = EXCLUDED.updated_by`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, s); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to save integration settings").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *settingsRepository) GetByOrganization(ctx context.Context, organizationID string) (*settings.IntegrationSettings, error) {
	query := `SELECT * FROM integration_settings WHERE organization_id = $1`

	var s settings.IntegrationSettings
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &s, query, organizationID); err != nil {
		return nil, wrapGetErr(err, "integration settings")
	}
	return &s, nil
}

func (r *settingsRepository) DeleteByOrganization(ctx context.Context, organizationID string) error {
	query := `DELETE FROM integration_settings WHERE organization_id = $1`

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, organizationID); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete integration settings").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
