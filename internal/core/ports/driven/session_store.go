package driven

import (
	"context"

	"github.com/custodia-labs/avatar-auth/internal/core/domain"
)

// SessionStore handles session records keyed by an opaque session ID
type SessionStore interface {
	// Create stores a new session for user and returns its ID
	Create(ctx context.Context, user domain.User) (string, error)

	// Get retrieves a session by ID.
	// Returns domain.ErrSessionNotFound if absent.
	Get(ctx context.Context, id string) (*domain.SessionRecord, error)

	// Delete deletes a session. Deleting an unknown ID is not an error.
	Delete(ctx context.Context, id string) error
}
