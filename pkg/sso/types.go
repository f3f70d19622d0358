package sso

import (
	"fmt"
	"strings"

	"github.com/elearnhq/elearn/pkg/auth"
)

// ProviderType represents the protocol a provider speaks
type ProviderType string

const (
	ProviderTypeOAuth2 ProviderType = "oauth2"
	ProviderTypeOIDC   ProviderType = "oidc"
)

// ProviderName identifies a provider in routes and on stored accounts.
type ProviderName string

const (
	ProviderGoogle        ProviderName = "google"
	ProviderGenericOAuth2 ProviderName = "generic_oauth2"
)

// ProviderConfig represents one login provider
type ProviderConfig struct {
	ProviderType     ProviderType  `json:"provider_type" yaml:"provider_type"`
	ProviderName     ProviderName  `json:"provider_name" yaml:"provider_name"`
	Enabled          bool          `json:"enabled" yaml:"enabled"`
	OAuth2Config     *OAuth2Config `json:"oauth2_config,omitempty" yaml:"oauth2_config,omitempty"`
	OIDCConfig       *OIDCConfig   `json:"oidc_config,omitempty" yaml:"oidc_config,omitempty"`
	AttributeMapping AttributeMap  `json:"attribute_mapping" yaml:"attribute_mapping"`
}

// OAuth2Config holds OAuth2 configuration
type OAuth2Config struct {
	ClientID     string   `json:"client_id" yaml:"client_id"`
	ClientSecret string   `json:"-" yaml:"client_secret"`
	AuthURL      string   `json:"auth_url" yaml:"auth_url"`
	TokenURL     string   `json:"token_url" yaml:"token_url"`
	UserInfoURL  string   `json:"user_info_url" yaml:"user_info_url"`
	Scopes       []string `json:"scopes" yaml:"scopes"`
	RedirectURL  string   `json:"redirect_url" yaml:"redirect_url"`
}

// OIDCConfig holds OpenID Connect configuration
type OIDCConfig struct {
	ClientID        string   `json:"client_id" yaml:"client_id"`
	ClientSecret    string   `json:"-" yaml:"client_secret"`
	IssuerURL       string   `json:"issuer_url" yaml:"issuer_url"` // Discovery endpoint
	RedirectURL     string   `json:"redirect_url" yaml:"redirect_url"`
	Scopes          []string `json:"scopes" yaml:"scopes"`
	SkipIssuerCheck bool     `json:"skip_issuer_check,omitempty" yaml:"skip_issuer_check,omitempty"`
}

// AttributeMap names the claims that carry each profile field.
type AttributeMap struct {
	UserID   string `json:"user_id" yaml:"user_id"`
	Email    string `json:"email" yaml:"email"`
	FullName string `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	Picture  string `json:"picture,omitempty" yaml:"picture,omitempty"`
}

// profileFromClaims maps raw provider claims onto an auth.Profile. Emails may
// arrive as a single string or a list. An email the provider marks unverified
// is dropped; one with no verification claim is kept but not trusted for
// linking.
func profileFromClaims(provider ProviderName, claims map[string]interface{}, mapping AttributeMap) (auth.Profile, error) {
	verified, present := emailVerified(claims)
	profile := auth.Profile{
		Provider:      string(provider),
		ExternalID:    getStringValue(claims, mapping.UserID),
		EmailVerified: verified,
		DisplayName:   getStringValue(claims, mapping.FullName),
		PhotoURL:      getStringValue(claims, mapping.Picture),
	}
	if profile.ExternalID == "" {
		// GitHub-style providers send numeric ids
		if n, ok := claims[mapping.UserID].(float64); ok {
			profile.ExternalID = fmt.Sprintf("%.0f", n)
		}
	}
	switch email := getStringValue(claims, mapping.Email); {
	case present && !verified:
	case email != "":
		profile.Emails = []string{email}
	default:
		profile.Emails = getArrayValue(claims, mapping.Email)
	}

	if profile.ExternalID == "" {
		return auth.Profile{}, fmt.Errorf("missing user ID in %s response", provider)
	}
	return profile, nil
}

// emailVerified reads the email_verified claim. Some providers send it as a
// string.
func emailVerified(claims map[string]interface{}) (verified, present bool) {
	switch v := claims["email_verified"].(type) {
	case bool:
		return v, true
	case string:
		return strings.EqualFold(v, "true"), true
	}
	return false, false
}

func getStringValue(data map[string]interface{}, key string) string {
	if key == "" {
		return ""
	}
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getArrayValue(data map[string]interface{}, key string) []string {
	if key == "" {
		return nil
	}
	if val, ok := data[key]; ok {
		if arr, ok := val.([]interface{}); ok {
			result := make([]string, 0, len(arr))
			for _, item := range arr {
				if str, ok := item.(string); ok {
					result = append(result, str)
				}
			}
			return result
		}
	}
	return nil
}
