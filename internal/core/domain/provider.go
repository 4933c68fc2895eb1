package domain

// ProviderType identifies an identity provider
type ProviderType string

const (
	ProviderGoogle  ProviderType = "google"
	ProviderAzureAD ProviderType = "azuread"
)

// SupportedProviders returns the closed set of identity providers
func SupportedProviders() []ProviderType {
	return []ProviderType{
		ProviderGoogle,
		ProviderAzureAD,
	}
}

// ParseProviderType returns the provider for a route segment
func ParseProviderType(s string) (ProviderType, error) {
	for _, p := range SupportedProviders() {
		if string(p) == s {
			return p, nil
		}
	}
	return "", ErrUnknownProvider
}

// DisplayName returns a human readable provider name
func (p ProviderType) DisplayName() string {
	switch p {
	case ProviderGoogle:
		return "Google"
	case ProviderAzureAD:
		return "Azure AD"
	default:
		return string(p)
	}
}

// PlaceholderName is used when the provider asserts no name for the user
func (p ProviderType) PlaceholderName() string {
	return p.DisplayName() + " User"
}

// Claims are identity attributes asserted by a provider in a verified ID token
type Claims struct {
	Subject   string `json:"sub"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	GivenName string `json:"given_name"`
}
