package quickbooks

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/httpclient"
	"github.com/complytrack/complytrack/internal/logger"
)

// expiryMargin is subtracted from the access token lifetime so a token is
// never used if it could expire mid-flight.
const expiryMargin = 5 * time.Minute

// TokenService implements the OAuth2 authorization-code and refresh-token
// flows against the provider. It is stateless; persistence of the returned
// tokens is the caller's responsibility.
type TokenService struct {
	client httpclient.Client
	logger *logger.Logger
}

// NewTokenService creates a new TokenService
func NewTokenService(client httpclient.Client, logger *logger.Logger) *TokenService {
	return &TokenService{
		client: client,
		logger: logger,
	}
}

// GenerateAuthURL builds the provider authorization URL along with a fresh
// CSRF state token (32 random bytes, hex encoded). The caller must persist
// the state and reject any callback whose state does not match exactly.
func (s *TokenService) GenerateAuthURL(cfg *ProviderConfig) (string, string, error) {
	state, err := generateSecureRandomHex(32)
	if err != nil {
		return "", "", err
	}

	params := url.Values{}
	params.Set("client_id", cfg.ClientID)
	params.Set("redirect_uri", cfg.RedirectURI)
	params.Set("response_type", "code")
	params.Set("scope", accountingScope)
	params.Set("state", state)

	return fmt.Sprintf("%s?%s", authorizationEndpoint, params.Encode()), state, nil
}

// ExchangeCode exchanges an authorization code for tokens. Authorization
// codes are single-use and expire within seconds, so a failed exchange is
// never retried.
func (s *TokenService) ExchangeCode(ctx context.Context, cfg *ProviderConfig, code string) (*TokenResponse, error) {
	data := url.Values{}
	data.Set("grant_type", "authorization_code")
	data.Set("code", code)
	data.Set("redirect_uri", cfg.RedirectURI)

	resp, err := s.postToken(ctx, cfg, tokenEndpoint, data)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Network error connecting to the provider OAuth endpoint").
			Mark(ierr.ErrAuthExchangeFailed)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, ierr.NewError("authorization code exchange failed").
			WithHint("The authorization code may have already been used or has expired. Please re-authenticate.").
			WithReportableDetails(map[string]interface{}{
				"status_code": resp.StatusCode,
				"response":    truncate(string(resp.Body), 512),
			}).
			Mark(ierr.ErrAuthExchangeFailed)
	}

	return s.parseTokenResponse(resp.Body)
}

// Refresh exchanges a refresh token for a new token pair. A 4xx response
// means the refresh token itself is invalid or expired; this is terminal
// and the connection must go through the full authorization flow again.
func (s *TokenService) Refresh(ctx context.Context, cfg *ProviderConfig, refreshToken string) (*TokenResponse, error) {
	if refreshToken == "" {
		return nil, ierr.NewError("refresh token not available").
			WithHint("Re-authenticate with the provider to obtain a new refresh token").
			Mark(ierr.ErrRefreshTokenInvalid)
	}

	data := url.Values{}
	data.Set("grant_type", "refresh_token")
	data.Set("refresh_token", refreshToken)

	resp, err := s.postToken(ctx, cfg, tokenEndpoint, data)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Network error connecting to the provider OAuth endpoint").
			Mark(ierr.ErrProvider)
	}

	if resp.StatusCode >= 400 && resp.StatusCode < 500 {
		s.logger.Warnw("refresh token rejected by provider",
			"status_code", resp.StatusCode,
			"response", truncate(string(resp.Body), 256),
		)
		return nil, ierr.NewError("refresh token invalid or expired").
			WithHint("The refresh token has expired. The user must re-authenticate with the provider.").
			WithReportableDetails(map[string]interface{}{
				"status_code": resp.StatusCode,
			}).
			Mark(ierr.ErrRefreshTokenInvalid)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, ierr.NewError("token refresh failed").
			WithHintf("Provider OAuth endpoint returned status %d", resp.StatusCode).
			Mark(ierr.ErrProvider)
	}

	return s.parseTokenResponse(resp.Body)
}

// Revoke invalidates the refresh token on the provider side. It is best
// effort: callers log failures and proceed with local cleanup.
func (s *TokenService) Revoke(ctx context.Context, cfg *ProviderConfig, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	data := url.Values{}
	data.Set("token", refreshToken)

	resp, err := s.postToken(ctx, cfg, revokeEndpoint, data)
	if err != nil {
		return ierr.WithError(err).
			WithHint("Network error connecting to the provider revoke endpoint").
			Mark(ierr.ErrProvider)
	}

	if resp.StatusCode >= 300 {
		return ierr.NewError("token revocation failed").
			WithHintf("Provider revoke endpoint returned status %d", resp.StatusCode).
			Mark(ierr.ErrProvider)
	}

	return nil
}

// IsTokenExpired reports whether the access token should be refreshed
// before use.
func (s *TokenService) IsTokenExpired(expiresAt time.Time) bool {
	return !time.Now().UTC().Before(expiresAt.Add(-expiryMargin))
}

// CalculateExpiryDate converts a provider TTL into an absolute timestamp
func (s *TokenService) CalculateExpiryDate(ttlSeconds int) time.Time {
	return time.Now().UTC().Add(time.Duration(ttlSeconds) * time.Second)
}

func (s *TokenService) postToken(ctx context.Context, cfg *ProviderConfig, endpoint string, data url.Values) (*httpclient.Response, error) {
	auth := base64.StdEncoding.EncodeToString([]byte(cfg.ClientID + ":" + cfg.ClientSecret))

	return s.client.Send(ctx, &httpclient.Request{
		Method: http.MethodPost,
		URL:    endpoint,
		Headers: map[string]string{
			"Authorization": "Basic " + auth,
			"Accept":        "application/json",
			"Content-Type":  "application/x-www-form-urlencoded",
		},
		Body: []byte(data.Encode()),
	})
}

func (s *TokenService) parseTokenResponse(body []byte) (*TokenResponse, error) {
	var token TokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Provider returned an invalid token response").
			Mark(ierr.ErrProvider)
	}
	if token.AccessToken == "" {
		return nil, ierr.NewError("token response missing access_token").
			Mark(ierr.ErrProvider)
	}
	return &token, nil
}

func generateSecureRandomHex(byteLength int) (string, error) {
	bytes := make([]byte, byteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to generate secure random token").
			Mark(ierr.ErrInternal)
	}
	return hex.EncodeToString(bytes), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return strings.ToValidUTF8(s[:max], "")
}
