package domain

// User is the identity attached to a session.
// It is the only part of a session returned to the browser.
type User struct {
	Name     string       `json:"name"`
	Email    string       `json:"email"`
	Provider ProviderType `json:"provider"`
}

// NewUserFromClaims builds a User from verified provider claims.
// The name prefers the full name, then the given name, then a provider placeholder.
// Email is passed through unmodified and is mandatory.
func NewUserFromClaims(provider ProviderType, claims *Claims) (*User, error) {
	if claims == nil || claims.Email == "" {
		return nil, ErrInvalidInput
	}

	name := claims.Name
	if name == "" {
		name = claims.GivenName
	}
	if name == "" {
		name = provider.PlaceholderName()
	}

	return &User{
		Name:     name,
		Email:    claims.Email,
		Provider: provider,
	}, nil
}
