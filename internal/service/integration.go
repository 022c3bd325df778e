package service

import (
	"context"
	"time"

	"github.com/complytrack/complytrack/internal/auditlog"
	"github.com/complytrack/complytrack/internal/cache"
	"github.com/complytrack/complytrack/internal/domain/connection"
	"github.com/complytrack/complytrack/internal/domain/syncedinvoice"
	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/integration/quickbooks"
	"github.com/complytrack/complytrack/internal/types"
)

// oauthStateTTL bounds how long an issued authorization URL stays valid
const oauthStateTTL = 10 * time.Minute

// IntegrationService exposes the provider integration operations to the
// rest of the application. Every token-mutating or sync operation runs
// under the organization's lock so at most one in-flight token mutation
// exists per tenant; different tenants proceed in parallel.
type IntegrationService interface {
	Connect(ctx context.Context, organizationID string) (*ConnectResponse, error)
	Callback(ctx context.Context, organizationID, code, state, realmID string) (*connection.Connection, error)
	Disconnect(ctx context.Context, organizationID string) error
	Status(ctx context.Context, organizationID string) (*StatusResponse, error)
	SearchCustomers(ctx context.Context, organizationID, term string) ([]quickbooks.Customer, error)
	MapCustomer(ctx context.Context, organizationID, customerID string) (*connection.Connection, error)
	ListInvoices(ctx context.Context, organizationID string) ([]*syncedinvoice.SyncedInvoice, error)
	Sync(ctx context.Context, organizationID string) (*quickbooks.SyncResult, error)
}

// ConnectResponse carries the authorization URL the user must visit
type ConnectResponse struct {
	AuthorizationURL string `json:"authorization_url"`
}

// StatusResponse reflects the stored connection state. It is served from
// the database only; no live provider call is made.
type StatusResponse struct {
	Status             types.ConnectionStatus `json:"status"`
	RealmID            string                 `json:"realm_id,omitempty"`
	MappedCustomerID   string                 `json:"mapped_customer_id,omitempty"`
	MappedCustomerName string                 `json:"mapped_customer_name,omitempty"`
	LastSyncAt         *time.Time             `json:"last_sync_at,omitempty"`
	ErrorMessage       string                 `json:"error_message,omitempty"`
}

type integrationService struct {
	ServiceParams

	settings SettingsService
	tokens   *quickbooks.TokenService
	engine   *quickbooks.SyncEngine
}

// NewIntegrationService wires the token service, api client and sync engine
// behind the application-facing operations.
func NewIntegrationService(params ServiceParams, settingsService SettingsService) IntegrationService {
	tokens := quickbooks.NewTokenService(params.HTTPClient, params.Logger)
	api := quickbooks.NewApiClient(tokens, params.HTTPClient, params.ConnectionRepo, params.Encryption, params.AuditLog, params.Logger)
	engine := quickbooks.NewSyncEngine(api, settingsService, params.ConnectionRepo, params.InvoiceRepo, params.Logger)

	return &integrationService{
		ServiceParams: params,
		settings:      settingsService,
		tokens:        tokens,
		engine:        engine,
	}
}

// Connect produces the provider authorization URL and parks the CSRF state
// until the callback arrives.
func (s *integrationService) Connect(ctx context.Context, organizationID string) (*ConnectResponse, error) {
	cfg, err := s.settings.Resolve(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	authURL, state, err := s.tokens.GenerateAuthURL(cfg)
	if err != nil {
		return nil, err
	}

	stateKey := cache.GenerateKey(cache.PrefixOAuthState, organizationID)
	s.Cache.Set(ctx, stateKey, state, oauthStateTTL)

	s.Logger.Infow("initiated provider authorization",
		"organization_id", organizationID,
		"environment", cfg.Environment,
	)

	return &ConnectResponse{AuthorizationURL: authURL}, nil
}

// Callback completes the authorization flow. The state must match the one
// issued for this organization exactly; the check is mandatory and happens
// before any other processing.
func (s *integrationService) Callback(ctx context.Context, organizationID, code, state, realmID string) (*connection.Connection, error) {
	s.OrgLock.Lock(organizationID)
	defer s.OrgLock.Unlock(organizationID)

	stateKey := cache.GenerateKey(cache.PrefixOAuthState, organizationID)
	issued, found := s.Cache.Get(ctx, stateKey)
	issuedState, ok := issued.(string)
	if !found || !ok || issuedState != state {
		return nil, ierr.NewError("oauth state mismatch").
			WithHint("The callback state does not match the one issued. Restart the connection flow.").
			Mark(ierr.ErrInvalidState)
	}
	s.Cache.Delete(ctx, stateKey)

	cfg, err := s.settings.Resolve(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.ExchangeCode(ctx, cfg, code)
	if err != nil {
		return nil, err
	}

	encryptedAccess, err := s.Encryption.Encrypt(token.AccessToken)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encrypt access token").
			Mark(ierr.ErrInternal)
	}
	encryptedRefresh, err := s.Encryption.Encrypt(token.RefreshToken)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to encrypt refresh token").
			Mark(ierr.ErrInternal)
	}

	accessExpiry := s.tokens.CalculateExpiryDate(token.ExpiresIn)
	refreshExpiry := s.tokens.CalculateExpiryDate(token.RefreshTokenTTL())

	// One connection per organization: a re-authorization updates the
	// existing record instead of creating a duplicate.
	conn, err := s.ConnectionRepo.GetByOrganization(ctx, organizationID)
	switch {
	case err == nil:
		conn.RealmID = realmID
		conn.AccessToken = encryptedAccess
		conn.RefreshToken = encryptedRefresh
		conn.AccessTokenExpiresAt = accessExpiry
		conn.RefreshTokenExpiresAt = refreshExpiry
		if err := conn.SetStatus(types.ConnectionStatusConnected, ""); err != nil {
			return nil, err
		}
		conn.UpdatedBy = types.GetUserID(ctx)
		if err := s.ConnectionRepo.Update(ctx, conn); err != nil {
			return nil, err
		}
	case ierr.IsNotFound(err):
		conn = &connection.Connection{
			ID:                    types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CONNECTION),
			OrganizationID:        organizationID,
			RealmID:               realmID,
			AccessToken:           encryptedAccess,
			RefreshToken:          encryptedRefresh,
			AccessTokenExpiresAt:  accessExpiry,
			RefreshTokenExpiresAt: refreshExpiry,
			Status:                types.ConnectionStatusConnected,
			BaseModel:             types.GetDefaultBaseModel(ctx),
		}
		if err := s.ConnectionRepo.Create(ctx, conn); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	s.AuditLog.Publish(ctx, auditlog.EventConnectionEstablished, map[string]interface{}{
		"realm_id": realmID,
	})

	s.Logger.Infow("provider connection established",
		"organization_id", organizationID,
		"realm_id", realmID,
	)

	return conn, nil
}

// Disconnect revokes the tokens best-effort and removes the connection and
// its cached invoices. Revocation failures never block local cleanup.
func (s *integrationService) Disconnect(ctx context.Context, organizationID string) error {
	s.OrgLock.Lock(organizationID)
	defer s.OrgLock.Unlock(organizationID)

	conn, err := s.ConnectionRepo.GetByOrganization(ctx, organizationID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return ierr.NewError("provider not connected").
				WithHint("There is no connection to disconnect").
				Mark(ierr.ErrNotConnected)
		}
		return err
	}

	if cfg, err := s.settings.Resolve(ctx, organizationID); err == nil {
		if refreshToken, err := s.Encryption.Decrypt(conn.RefreshToken); err == nil {
			if err := s.tokens.Revoke(ctx, cfg, refreshToken); err != nil {
				s.Logger.Warnw("token revocation failed, proceeding with local cleanup",
					"organization_id", organizationID,
					"error", err,
				)
			}
		}
	}

	// Invoice copies and the connection disappear together or not at all.
	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.InvoiceRepo.DeleteByOrganization(ctx, organizationID); err != nil {
			return err
		}
		return s.ConnectionRepo.DeleteByOrganization(ctx, organizationID)
	})
	if err != nil {
		return err
	}

	s.AuditLog.Publish(ctx, auditlog.EventConnectionRemoved, map[string]interface{}{
		"realm_id": conn.RealmID,
	})

	s.Logger.Infow("provider connection removed",
		"organization_id", organizationID,
		"realm_id", conn.RealmID,
	)

	return nil
}

// Status reports the stored connection state without any provider call
func (s *integrationService) Status(ctx context.Context, organizationID string) (*StatusResponse, error) {
	conn, err := s.ConnectionRepo.GetByOrganization(ctx, organizationID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return &StatusResponse{Status: types.ConnectionStatusDisconnected}, nil
		}
		return nil, err
	}

	return &StatusResponse{
		Status:             conn.Status,
		RealmID:            conn.RealmID,
		MappedCustomerID:   conn.MappedCustomerID,
		MappedCustomerName: conn.MappedCustomerName,
		LastSyncAt:         conn.LastSyncAt,
		ErrorMessage:       conn.ErrorMessage,
	}, nil
}

func (s *integrationService) SearchCustomers(ctx context.Context, organizationID, term string) ([]quickbooks.Customer, error) {
	s.OrgLock.Lock(organizationID)
	defer s.OrgLock.Unlock(organizationID)

	return s.engine.SearchCustomers(ctx, organizationID, term)
}

func (s *integrationService) MapCustomer(ctx context.Context, organizationID, customerID string) (*connection.Connection, error) {
	s.OrgLock.Lock(organizationID)
	defer s.OrgLock.Unlock(organizationID)

	conn, err := s.engine.MapCustomer(ctx, organizationID, customerID)
	if err != nil {
		return nil, err
	}

	s.AuditLog.Publish(ctx, auditlog.EventCustomerMapped, map[string]interface{}{
		"customer_id":   conn.MappedCustomerID,
		"customer_name": conn.MappedCustomerName,
	})

	return conn, nil
}

// ListInvoices serves the cached invoice copies; it never calls the provider
func (s *integrationService) ListInvoices(ctx context.Context, organizationID string) ([]*syncedinvoice.SyncedInvoice, error) {
	return s.InvoiceRepo.ListByOrganization(ctx, organizationID)
}

func (s *integrationService) Sync(ctx context.Context, organizationID string) (*quickbooks.SyncResult, error) {
	s.OrgLock.Lock(organizationID)
	defer s.OrgLock.Unlock(organizationID)

	result, err := s.engine.SyncInvoices(ctx, organizationID)
	if err != nil {
		s.AuditLog.Publish(ctx, auditlog.EventSyncFailed, map[string]interface{}{
			"error": err.Error(),
		})
		return nil, err
	}

	s.AuditLog.Publish(ctx, auditlog.EventSyncCompleted, map[string]interface{}{
		"synced_count": result.SyncedCount,
		"error_count":  len(result.Errors),
	})

	return result, nil
}
