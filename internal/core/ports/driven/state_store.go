package driven

import (
	"context"

	"github.com/custodia-labs/avatar-auth/internal/core/domain"
)

// StateStore manages OAuth flow state for CSRF protection.
// States are single-use and expire after domain.StateTTL.
type StateStore interface {
	// Issue stores a new state for the given redirect target and returns its value.
	Issue(ctx context.Context, returnTo string, provider domain.ProviderType) (string, error)

	// Consume atomically retrieves and deletes the state.
	// At most one caller succeeds for a given value.
	// Returns domain.ErrInvalidState if the state doesn't exist or has expired.
	Consume(ctx context.Context, value string) (*domain.StateToken, error)

	// Sweep removes expired states and returns how many were removed.
	Sweep(ctx context.Context) (int, error)
}
