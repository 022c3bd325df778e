package quickbooks

import (
	"context"
	"net/http"
	"net/url"
	"testing"
	"time"

	ierr "github.com/complytrack/complytrack/internal/errors"
	"github.com/complytrack/complytrack/internal/logger"
	"github.com/complytrack/complytrack/internal/testutil"
	"github.com/complytrack/complytrack/internal/types"
	"github.com/stretchr/testify/suite"
)

type TokenServiceSuite struct {
	suite.Suite
	ctx     context.Context
	client  *testutil.MockHTTPClient
	service *TokenService
	cfg     *ProviderConfig
}

func TestTokenService(t *testing.T) {
	suite.Run(t, new(TokenServiceSuite))
}

func (s *TokenServiceSuite) SetupTest() {
	s.ctx = testutil.SetupContext()
	s.client = testutil.NewMockHTTPClient()
	s.service = NewTokenService(s.client, logger.GetLogger())
	s.cfg = &ProviderConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURI:  "https://app.example.com/v1/integrations/quickbooks/callback",
		Environment:  types.ProviderEnvironmentSandbox,
	}
}

func (s *TokenServiceSuite) TestGenerateAuthURL() {
	authURL, state, err := s.service.GenerateAuthURL(s.cfg)
	s.NoError(err)

	// 32 random bytes hex encoded
	s.Len(state, 64)

	parsed, err := url.Parse(authURL)
	s.NoError(err)
	s.Equal("appcenter.intuit.com", parsed.Host)

	q := parsed.Query()
	s.Equal("client-id", q.Get("client_id"))
	s.Equal(s.cfg.RedirectURI, q.Get("redirect_uri"))
	s.Equal("code", q.Get("response_type"))
	s.Equal(accountingScope, q.Get("scope"))
	s.Equal(state, q.Get("state"))
}

func (s *TokenServiceSuite) TestGenerateAuthURLStatesAreUnique() {
	_, state1, err := s.service.GenerateAuthURL(s.cfg)
	s.NoError(err)
	_, state2, err := s.service.GenerateAuthURL(s.cfg)
	s.NoError(err)
	s.NotEqual(state1, state2)
}

func (s *TokenServiceSuite) TestExchangeCode() {
	s.client.RegisterResponse("tokens/bearer", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body: []byte(`{
			"access_token": "new-access",
			"refresh_token": "new-refresh",
			"expires_in": 3600,
			"x_refresh_token_expires_in": 8640000
		}`),
	})

	token, err := s.service.ExchangeCode(s.ctx, s.cfg, "auth-code")
	s.NoError(err)
	s.Equal("new-access", token.AccessToken)
	s.Equal("new-refresh", token.RefreshToken)
	s.Equal(3600, token.ExpiresIn)
	s.Equal(8640000, token.RefreshTokenTTL())

	// exchange uses Basic auth with the client credentials
	s.Require().Len(s.client.Requests, 1)
	req := s.client.Requests[0]
	s.Contains(req.Headers["Authorization"], "Basic ")
	s.Equal("application/x-www-form-urlencoded", req.Headers["Content-Type"])

	form, err := url.ParseQuery(string(req.Body))
	s.NoError(err)
	s.Equal("authorization_code", form.Get("grant_type"))
	s.Equal("auth-code", form.Get("code"))
	s.Equal(s.cfg.RedirectURI, form.Get("redirect_uri"))
}

func (s *TokenServiceSuite) TestExchangeCodeFailureIsNotRetried() {
	s.client.RegisterResponse("tokens/bearer", testutil.MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"error":"invalid_grant"}`),
	})

	_, err := s.service.ExchangeCode(s.ctx, s.cfg, "stale-code")
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrAuthExchangeFailed))
	s.Equal(1, s.client.TotalCalls())
}

func (s *TokenServiceSuite) TestRefresh() {
	s.client.RegisterResponse("tokens/bearer", testutil.MockResponse{
		StatusCode: http.StatusOK,
		Body: []byte(`{
			"access_token": "rotated-access",
			"refresh_token": "rotated-refresh",
			"expires_in": 3600,
			"refresh_token_expires_in": 8640000
		}`),
	})

	token, err := s.service.Refresh(s.ctx, s.cfg, "old-refresh")
	s.NoError(err)
	s.Equal("rotated-access", token.AccessToken)
	s.Equal("rotated-refresh", token.RefreshToken)
	s.Equal(8640000, token.RefreshTokenTTL())

	form, err := url.ParseQuery(string(s.client.Requests[0].Body))
	s.NoError(err)
	s.Equal("refresh_token", form.Get("grant_type"))
	s.Equal("old-refresh", form.Get("refresh_token"))
}

func (s *TokenServiceSuite) TestRefreshRejected4xxIsTerminal() {
	s.client.RegisterResponse("tokens/bearer", testutil.MockResponse{
		StatusCode: http.StatusBadRequest,
		Body:       []byte(`{"error":"invalid_grant"}`),
	})

	_, err := s.service.Refresh(s.ctx, s.cfg, "expired-refresh")
	s.Error(err)
	s.True(ierr.IsRefreshTokenInvalid(err))
}

func (s *TokenServiceSuite) TestRefreshServerErrorIsProviderError() {
	s.client.RegisterResponse("tokens/bearer", testutil.MockResponse{
		StatusCode: http.StatusBadGateway,
		Body:       []byte("upstream unavailable"),
	})

	_, err := s.service.Refresh(s.ctx, s.cfg, "refresh")
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrProvider))
	s.False(ierr.IsRefreshTokenInvalid(err))
}

func (s *TokenServiceSuite) TestRefreshWithoutToken() {
	_, err := s.service.Refresh(s.ctx, s.cfg, "")
	s.Error(err)
	s.True(ierr.IsRefreshTokenInvalid(err))
	s.Equal(0, s.client.TotalCalls())
}

func (s *TokenServiceSuite) TestRevoke() {
	s.client.RegisterResponse("tokens/revoke", testutil.MockResponse{
		StatusCode: http.StatusOK,
	})

	err := s.service.Revoke(s.ctx, s.cfg, "refresh-token")
	s.NoError(err)

	form, err := url.ParseQuery(string(s.client.Requests[0].Body))
	s.NoError(err)
	s.Equal("refresh-token", form.Get("token"))
}

func (s *TokenServiceSuite) TestRevokeFailureReturnsError() {
	s.client.RegisterResponse("tokens/revoke", testutil.MockResponse{
		StatusCode: http.StatusInternalServerError,
	})

	err := s.service.Revoke(s.ctx, s.cfg, "refresh-token")
	s.Error(err)
	s.True(ierr.Is(err, ierr.ErrProvider))
}

func (s *TokenServiceSuite) TestIsTokenExpired() {
	now := time.Now().UTC()

	// well in the future
	s.False(s.service.IsTokenExpired(now.Add(time.Hour)))

	// inside the 5 minute proactive margin
	s.True(s.service.IsTokenExpired(now.Add(4 * time.Minute)))
	s.True(s.service.IsTokenExpired(now.Add(time.Second)))

	// already expired
	s.True(s.service.IsTokenExpired(now.Add(-time.Minute)))
}

func (s *TokenServiceSuite) TestCalculateExpiryDate() {
	before := time.Now().UTC()
	expiry := s.service.CalculateExpiryDate(3600)
	after := time.Now().UTC()

	s.True(!expiry.Before(before.Add(time.Hour)))
	s.True(!expiry.After(after.Add(time.Hour)))
}
