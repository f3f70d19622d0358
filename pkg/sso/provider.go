package sso

import (
	"context"
	"fmt"

	"github.com/elearnhq/elearn/pkg/auth"
)

// Provider is one external identity provider using the authorization code
// flow with PKCE.
type Provider interface {
	// Name returns the provider name used in routes
	Name() ProviderName

	// AuthCodeURL builds the provider's consent URL for state. The S256
	// challenge is derived from verifier.
	AuthCodeURL(state, verifier string) string

	// Exchange trades the callback code for a verified profile
	Exchange(ctx context.Context, code, verifier string) (auth.Profile, error)

	// ValidateConfig validates the provider configuration
	ValidateConfig() error
}

// CreateProvider creates a provider instance from configuration. OIDC
// providers perform discovery against the issuer.
func CreateProvider(ctx context.Context, config *ProviderConfig) (Provider, error) {
	if !config.Enabled {
		return nil, fmt.Errorf("provider %s is disabled", config.ProviderName)
	}

	switch config.ProviderType {
	case ProviderTypeOAuth2:
		if config.OAuth2Config == nil {
			return nil, fmt.Errorf("OAuth2 config is required for OAuth2 provider")
		}
		return NewOAuth2Provider(config)

	case ProviderTypeOIDC:
		if config.OIDCConfig == nil {
			return nil, fmt.Errorf("OIDC config is required for OIDC provider")
		}
		return NewOIDCProvider(ctx, config)

	default:
		return nil, fmt.Errorf("unsupported provider type: %s", config.ProviderType)
	}
}

// GetPresetConfig returns preset configuration for well-known providers
func GetPresetConfig(providerName ProviderName) (*ProviderConfig, error) {
	switch providerName {
	case ProviderGoogle:
		return &ProviderConfig{
			ProviderType: ProviderTypeOIDC,
			ProviderName: ProviderGoogle,
			Enabled:      true,
			AttributeMapping: AttributeMap{
				UserID:   "sub",
				Email:    "email",
				FullName: "name",
				Picture:  "picture",
			},
			OIDCConfig: &OIDCConfig{
				IssuerURL: "https://accounts.google.com",
				Scopes:    []string{"openid", "profile", "email"},
			},
		}, nil

	default:
		return nil, fmt.Errorf("no preset configuration for provider: %s", providerName)
	}
}

// GoogleConfig fills the Google preset with client credentials.
func GoogleConfig(clientID, clientSecret, redirectURL string) *ProviderConfig {
	cfg, _ := GetPresetConfig(ProviderGoogle)
	cfg.OIDCConfig.ClientID = clientID
	cfg.OIDCConfig.ClientSecret = clientSecret
	cfg.OIDCConfig.RedirectURL = redirectURL
	return cfg
}

// GenericOAuth2Config describes a plain OAuth2 provider whose userinfo
// endpoint answers with GitHub-style fields (id, email, name, avatar_url).
func GenericOAuth2Config(clientID, clientSecret, authURL, tokenURL, userInfoURL, redirectURL string, scopes []string) *ProviderConfig {
	return &ProviderConfig{
		ProviderType: ProviderTypeOAuth2,
		ProviderName: ProviderGenericOAuth2,
		Enabled:      true,
		OAuth2Config: &OAuth2Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			AuthURL:      authURL,
			TokenURL:     tokenURL,
			UserInfoURL:  userInfoURL,
			Scopes:       scopes,
			RedirectURL:  redirectURL,
		},
		AttributeMapping: AttributeMap{UserID: "id", Email: "email", FullName: "name", Picture: "avatar_url"},
	}
}
