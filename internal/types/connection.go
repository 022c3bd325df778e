package types

import (
	ierr "github.com/complytrack/complytrack/internal/errors"
)

// ConnectionStatus is the lifecycle state of a provider connection.
// disconnected is terminal: the record is deleted rather than kept around.
type ConnectionStatus string

const (
	ConnectionStatusConnected    ConnectionStatus = "connected"
	ConnectionStatusTokenExpired ConnectionStatus = "token_expired"
	ConnectionStatusError        ConnectionStatus = "error"
	ConnectionStatusDisconnected ConnectionStatus = "disconnected"
)

func (s ConnectionStatus) String() string {
	return string(s)
}

func (s ConnectionStatus) Validate() error {
	switch s {
	case ConnectionStatusConnected,
		ConnectionStatusTokenExpired,
		ConnectionStatusError,
		ConnectionStatusDisconnected:
		return nil
	default:
		return ierr.NewErrorf("invalid connection status: %s", s).
			WithHint("Status must be one of connected, token_expired, error, disconnected").
			Mark(ierr.ErrValidation)
	}
}

// connectionTransitions encodes the allowed status transitions:
//
//	connected     -> connected (refresh ok), token_expired (refresh fails
//	                 terminally), error (other API failure), disconnected
//	token_expired -> connected (full reauthorization), token_expired
//	                 (repeated refresh failure), disconnected
//	error         -> connected (next successful call), token_expired,
//	                 error, disconnected
//
// disconnected has no outgoing edges; the record is removed.
var connectionTransitions = map[ConnectionStatus][]ConnectionStatus{
	ConnectionStatusConnected: {
		ConnectionStatusConnected,
		ConnectionStatusTokenExpired,
		ConnectionStatusError,
		ConnectionStatusDisconnected,
	},
	ConnectionStatusTokenExpired: {
		ConnectionStatusConnected,
		ConnectionStatusTokenExpired,
		ConnectionStatusDisconnected,
	},
	ConnectionStatusError: {
		ConnectionStatusConnected,
		ConnectionStatusTokenExpired,
		ConnectionStatusError,
		ConnectionStatusDisconnected,
	},
	ConnectionStatusDisconnected: {},
}

// CanTransition reports whether the status machine allows moving from s to target.
func (s ConnectionStatus) CanTransition(target ConnectionStatus) bool {
	for _, allowed := range connectionTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// ProviderEnvironment selects the provider base URLs
type ProviderEnvironment string

const (
	ProviderEnvironmentSandbox    ProviderEnvironment = "sandbox"
	ProviderEnvironmentProduction ProviderEnvironment = "production"
)

func (e ProviderEnvironment) Validate() error {
	switch e {
	case ProviderEnvironmentSandbox, ProviderEnvironmentProduction:
		return nil
	default:
		return ierr.NewErrorf("invalid provider environment: %s", e).
			WithHint("Environment must be sandbox or production").
			Mark(ierr.ErrValidation)
	}
}
