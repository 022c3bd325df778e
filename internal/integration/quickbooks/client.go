package quickbooks

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/complytrack/complytrack/internal/auditlog"
	"github.com/complytrack/complytrack/internal/domain/connection"
	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/httpclient"
	"github.com/complytrack/complytrack/internal/logger"
	"github.com/complytrack/complytrack/internal/security"
	"github.com/complytrack/complytrack/internal/types"
)

// defaultRetryAfter is assumed when the provider rate-limits without a
// Retry-After header.
const defaultRetryAfter = 60 * time.Second

// maxAuthRetries bounds the reactive refresh path: a 401 despite a freshly
// validated token triggers exactly one refresh and retry, never more.
const maxAuthRetries = 1

// RateLimitError carries the provider's backoff hint. The client never
// retries rate-limited calls itself; backoff is the caller's decision.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("provider rate limit exceeded, retry after %s", e.RetryAfter)
}

// RetryAfterHint extracts the backoff hint from a rate limit error
func RetryAfterHint(err error) (time.Duration, bool) {
	var rle *RateLimitError
	if ierr.As(err, &rle) {
		return rle.RetryAfter, true
	}
	return 0, false
}

// ApiClient performs authenticated calls against the provider's data API.
// It owns token validity: a proactive refresh before each call and at most
// one reactive refresh when the provider rejects a token mid-call. Callers
// must serialize invocations per organization; the client assumes no other
// token mutation for the same connection is in flight.
type ApiClient struct {
	tokens         *TokenService
	client         httpclient.Client
	connectionRepo connection.Repository
	encryption     security.EncryptionService
	audit          auditlog.Publisher
	logger         *logger.Logger
}

// NewApiClient creates a new ApiClient
func NewApiClient(
	tokens *TokenService,
	client httpclient.Client,
	connectionRepo connection.Repository,
	encryption security.EncryptionService,
	audit auditlog.Publisher,
	logger *logger.Logger,
) *ApiClient {
	return &ApiClient{
		tokens:         tokens,
		client:         client,
		connectionRepo: connectionRepo,
		encryption:     encryption,
		audit:          audit,
		logger:         logger,
	}
}

// EnsureValidToken returns a usable plaintext access token, refreshing it
// first when it is within the expiry margin. Rotated tokens are persisted
// before the method returns. A terminal refresh failure persists status
// token_expired and is surfaced to the caller.
func (c *ApiClient) EnsureValidToken(ctx context.Context, cfg *ProviderConfig, conn *connection.Connection) (string, error) {
	if !c.tokens.IsTokenExpired(conn.AccessTokenExpiresAt) {
		accessToken, err := c.encryption.Decrypt(conn.AccessToken)
		if err != nil {
			return "", ierr.WithError(err).
				WithHint("Failed to decrypt stored access token").
				Mark(ierr.ErrInternal)
		}
		return accessToken, nil
	}

	c.logger.Debugw("access token within expiry margin, refreshing",
		"organization_id", conn.OrganizationID,
		"expires_at", conn.AccessTokenExpiresAt,
	)

	return c.refreshAndPersist(ctx, cfg, conn)
}

// refreshAndPersist refreshes the token pair unconditionally and writes the
// rotated tokens back to the connection. Both the proactive and the
// reactive (401 recovery) paths funnel through here.
func (c *ApiClient) refreshAndPersist(ctx context.Context, cfg *ProviderConfig, conn *connection.Connection) (string, error) {
	refreshToken, err := c.encryption.Decrypt(conn.RefreshToken)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to decrypt stored refresh token").
			Mark(ierr.ErrInternal)
	}

	token, err := c.tokens.Refresh(ctx, cfg, refreshToken)
	if err != nil {
		if ierr.IsRefreshTokenInvalid(err) {
			if stErr := conn.SetStatus(types.ConnectionStatusTokenExpired, "refresh token invalid or expired, re-authentication required"); stErr != nil {
				c.logger.Errorw("rejected status transition to token_expired",
					"organization_id", conn.OrganizationID,
					"status", conn.Status,
					"error", stErr,
				)
			} else if updateErr := c.connectionRepo.Update(ctx, conn); updateErr != nil {
				c.logger.Errorw("failed to persist token_expired status",
					"organization_id", conn.OrganizationID,
					"error", updateErr,
				)
			}
		}
		return "", err
	}

	encryptedAccess, err := c.encryption.Encrypt(token.AccessToken)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to encrypt new access token").
			Mark(ierr.ErrInternal)
	}
	encryptedRefresh, err := c.encryption.Encrypt(token.RefreshToken)
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to encrypt new refresh token").
			Mark(ierr.ErrInternal)
	}

	conn.AccessToken = encryptedAccess
	conn.RefreshToken = encryptedRefresh
	conn.AccessTokenExpiresAt = c.tokens.CalculateExpiryDate(token.ExpiresIn)
	if ttl := token.RefreshTokenTTL(); ttl > 0 {
		conn.RefreshTokenExpiresAt = c.tokens.CalculateExpiryDate(ttl)
	}
	if err := conn.SetStatus(types.ConnectionStatusConnected, ""); err != nil {
		return "", err
	}
	conn.UpdatedBy = types.GetUserID(ctx)

	if err := c.connectionRepo.Update(ctx, conn); err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to persist refreshed tokens").
			Mark(ierr.ErrDatabase)
	}

	c.audit.Publish(ctx, auditlog.EventTokenRefreshed, map[string]interface{}{
		"realm_id":                conn.RealmID,
		"access_token_expires_at": conn.AccessTokenExpiresAt,
	})

	c.logger.Debugw("refreshed and persisted provider tokens",
		"organization_id", conn.OrganizationID,
		"access_token_expires_at", conn.AccessTokenExpiresAt,
	)

	return token.AccessToken, nil
}

// Get issues an authenticated GET against a realm-scoped data API endpoint
func (c *ApiClient) Get(ctx context.Context, cfg *ProviderConfig, conn *connection.Connection, endpoint string, params url.Values) ([]byte, error) {
	query := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	query.Set("minorversion", minorVersion)

	fullURL := fmt.Sprintf("%s/v3/company/%s/%s?%s",
		apiBaseURL(cfg.Environment), url.PathEscape(conn.RealmID), endpoint, query.Encode())

	return c.do(ctx, cfg, conn, fullURL, 0)
}

// Query runs a filter-language query against the data API
func (c *ApiClient) Query(ctx context.Context, cfg *ProviderConfig, conn *connection.Connection, query string) ([]byte, error) {
	fullURL := fmt.Sprintf("%s/v3/company/%s/query?minorversion=%s&query=%s",
		apiBaseURL(cfg.Environment), url.PathEscape(conn.RealmID), minorVersion, url.QueryEscape(query))

	return c.do(ctx, cfg, conn, fullURL, 0)
}

func (c *ApiClient) do(ctx context.Context, cfg *ProviderConfig, conn *connection.Connection, fullURL string, attempt int) ([]byte, error) {
	accessToken, err := c.EnsureValidToken(ctx, cfg, conn)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Send(ctx, &httpclient.Request{
		Method: http.MethodGet,
		URL:    fullURL,
		Headers: map[string]string{
			"Authorization": "Bearer " + accessToken,
			"Accept":        "application/json",
		},
	})
	if err != nil {
		// Transport failures and timeouts are transient provider errors,
		// never token invalidation.
		return nil, ierr.WithError(err).
			WithHint("Provider request failed before a response was received").
			Mark(ierr.ErrProvider)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return resp.Body, nil

	case resp.StatusCode == http.StatusUnauthorized:
		if attempt < maxAuthRetries {
			c.logger.Warnw("provider rejected a just-validated token, refreshing once",
				"organization_id", conn.OrganizationID,
				"attempt", attempt+1,
			)
			if _, err := c.refreshAndPersist(ctx, cfg, conn); err != nil {
				return nil, err
			}
			return c.do(ctx, cfg, conn, fullURL, attempt+1)
		}

		if stErr := conn.SetStatus(types.ConnectionStatusError, "provider rejected credentials after token refresh"); stErr != nil {
			c.logger.Errorw("rejected status transition to error",
				"organization_id", conn.OrganizationID,
				"status", conn.Status,
				"error", stErr,
			)
		} else if updateErr := c.connectionRepo.Update(ctx, conn); updateErr != nil {
			c.logger.Errorw("failed to persist error status",
				"organization_id", conn.OrganizationID,
				"error", updateErr,
			)
		}
		return nil, ierr.NewError("provider authentication failed").
			WithHint("The provider rejected the access token even after a refresh").
			WithReportableDetails(map[string]interface{}{
				"status_code": resp.StatusCode,
			}).
			Mark(ierr.ErrAuthenticationFailed)

	case resp.StatusCode == http.StatusTooManyRequests:
		retryAfter := parseRetryAfter(resp.Headers)
		return nil, ierr.WithError(&RateLimitError{RetryAfter: retryAfter}).
			WithHintf("Provider rate limit exceeded, retry after %s", retryAfter).
			WithReportableDetails(map[string]interface{}{
				"retry_after_seconds": int(retryAfter.Seconds()),
			}).
			Mark(ierr.ErrRateLimitExceeded)

	default:
		return nil, c.parseErrorResponse(resp)
	}
}

// parseErrorResponse extracts the provider's structured fault detail when
// present and wraps it as a provider error.
func (c *ApiClient) parseErrorResponse(resp *httpclient.Response) error {
	var f fault
	if err := json.Unmarshal(resp.Body, &f); err == nil && len(f.Fault.Error) > 0 {
		errorCode := f.Fault.Error[0].Code
		errorDetail := f.Fault.Error[0].Detail

		return ierr.NewError("provider API error").
			WithHint(errorDetail).
			WithReportableDetails(map[string]interface{}{
				"status_code": resp.StatusCode,
				"code":        errorCode,
				"detail":      errorDetail,
			}).
			Mark(ierr.ErrProvider)
	}

	return ierr.NewError("provider API error").
		WithHintf("Provider returned HTTP %d", resp.StatusCode).
		WithReportableDetails(map[string]interface{}{
			"status_code": resp.StatusCode,
		}).
		Mark(ierr.ErrProvider)
}

func parseRetryAfter(headers map[string]string) time.Duration {
	if v, ok := headers["Retry-After"]; ok {
		if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRetryAfter
}

// EscapeQueryValue escapes single quotes in values interpolated into the
// provider's filter language.
func EscapeQueryValue(value string) string {
	return strings.ReplaceAll(value, "'", "\\'")
}
