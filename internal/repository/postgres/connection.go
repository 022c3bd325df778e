package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/complytrack/complytrack/internal/domain/connection"
	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/logger"
	"github.com/complytrack/complytrack/internal/postgres"
)

type connectionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewConnectionRepository(db *postgres.DB, logger *logger.Logger) connection.Repository {
	return &connectionRepository{db: db, logger: logger}
}

func (r *connectionRepository) Create(ctx context.Context, conn *connection.Connection) error {
	query := `
	INSERT INTO connections (
		id, organization_id, realm_id,
		access_token, refresh_token, access_token_expires_at, refresh_token_expires_at,
		mapped_customer_id, mapped_customer_name, status, last_sync_at, error_message,
		created_at, updated_at, created_by, updated_by
	) VALUES (
		:id, :organization_id, :realm_id,
		:access_token, :refresh_token, :access_token_expires_at, :refresh_token_expires_at,
		:mapped_customer_id, :mapped_customer_name, :status, :last_sync_at, :error_message,
		:created_at, :updated_at, :created_by, :updated_by
	)`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, conn); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to create connection").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *connectionRepository) Get(ctx context.Context, id string) (*connection.Connection, error) {
	query := `SELECT * FROM connections WHERE id = $1`

	var conn connection.Connection
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &conn, query, id); err != nil {
		return nil, wrapGetErr(err, "connection")
	}
	return &conn, nil
}

func (r *connectionRepository) GetByOrganization(ctx context.Context, organizationID string) (*connection.Connection, error) {
	query := `SELECT * FROM connections WHERE organization_id = $1`

	var conn connection.Connection
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &conn, query, organizationID); err != nil {
		return nil, wrapGetErr(err, "connection")
	}
	return &conn, nil
}

func (r *connectionRepository) Update(ctx context.Context, conn *connection.Connection) error {
	query := `
	UPDATE connections SET
		realm_id = :realm_id,
		access_token = :access_token,
		refresh_token = :refresh_token,
		access_token_expires_at = :access_token_expires_at,
		refresh_token_expires_at = :refresh_token_expires_at,
		mapped_customer_id = :mapped_customer_id,
		mapped_customer_name = :mapped_customer_name,
		status = :status,
		last_sync_at = :last_sync_at,
		error_message = :error_message,
		updated_at = :updated_at,
		updated_by = :updated_by
	WHERE id = :id`

	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, conn); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to update connection").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *connectionRepository) DeleteByOrganization(ctx context.Context, organizationID string) error {
	query := `DELETE FROM connections WHERE organization_id = $1`

	if _, err := r.db.GetQuerier(ctx).ExecContext(ctx, query, organizationID); err != nil {
		return ierr.WithError(err).
			WithHint("Failed to delete connection").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func wrapGetErr(err error, resource string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ierr.WithError(err).
			WithHintf("%s not found", resource).
			Mark(ierr.ErrNotFound)
	}
	return ierr.WithError(err).
		WithHintf("Failed to load %s", resource).
		Mark(ierr.ErrDatabase)
}
