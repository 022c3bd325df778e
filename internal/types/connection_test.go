package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConnectionStatusValidate(t *testing.T) {
	assert.NoError(t, ConnectionStatusConnected.Validate())
	assert.NoError(t, ConnectionStatusTokenExpired.Validate())
	assert.NoError(t, ConnectionStatusError.Validate())
	assert.NoError(t, ConnectionStatusDisconnected.Validate())
	assert.Error(t, ConnectionStatus("pending").Validate())
}

func TestConnectionStatusCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    ConnectionStatus
		to      ConnectionStatus
		allowed bool
	}{
		{"connected stays connected on refresh", ConnectionStatusConnected, ConnectionStatusConnected, true},
		{"connected to token_expired on terminal refresh failure", ConnectionStatusConnected, ConnectionStatusTokenExpired, true},
		{"connected to error on API failure", ConnectionStatusConnected, ConnectionStatusError, true},
		{"connected to disconnected", ConnectionStatusConnected, ConnectionStatusDisconnected, true},
		{"token_expired recovers only via reauthorization", ConnectionStatusTokenExpired, ConnectionStatusConnected, true},
		{"token_expired stays put on repeated refresh failure", ConnectionStatusTokenExpired, ConnectionStatusTokenExpired, true},
		{"token_expired cannot degrade to error", ConnectionStatusTokenExpired, ConnectionStatusError, false},
		{"error recovers on next successful call", ConnectionStatusError, ConnectionStatusConnected, true},
		{"error to token_expired", ConnectionStatusError, ConnectionStatusTokenExpired, true},
		{"disconnected is terminal", ConnectionStatusDisconnected, ConnectionStatusConnected, false},
		{"disconnected never expires", ConnectionStatusDisconnected, ConnectionStatusTokenExpired, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransition(tt.to))
		})
	}
}

func TestProviderEnvironmentValidate(t *testing.T) {
	assert.NoError(t, ProviderEnvironmentSandbox.Validate())
	assert.NoError(t, ProviderEnvironmentProduction.Validate())
	assert.Error(t, ProviderEnvironment("staging").Validate())
}
