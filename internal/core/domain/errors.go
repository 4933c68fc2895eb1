package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrInvalidState indicates the OAuth state is unknown, already consumed or expired
	ErrInvalidState = errors.New("invalid state")

	// ErrProviderExchange indicates the identity provider rejected or failed the code exchange
	ErrProviderExchange = errors.New("provider exchange failed")

	// ErrUnauthenticated indicates the session cookie is missing, unknown or deleted
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrSessionNotFound indicates the session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrUnknownProvider indicates the provider is not configured
	ErrUnknownProvider = errors.New("unknown provider")

	// ErrProviderNotReady indicates the provider has not completed discovery
	ErrProviderNotReady = errors.New("provider not ready")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")
)

// ProviderExchangeError carries the provider and cause of a failed code exchange.
// It matches ErrProviderExchange with errors.Is.
type ProviderExchangeError struct {
	Provider ProviderType
	Err      error
}

func (e *ProviderExchangeError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrProviderExchange, e.Provider, e.Err)
}

func (e *ProviderExchangeError) Is(target error) bool {
	return target == ErrProviderExchange
}

func (e *ProviderExchangeError) Unwrap() error {
	return e.Err
}
