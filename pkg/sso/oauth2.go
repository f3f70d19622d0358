package sso

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/observability"
)

// OAuth2Provider implements plain OAuth2 login against a userinfo endpoint
type OAuth2Provider struct {
	config       *ProviderConfig
	oauth2Config *oauth2.Config
}

// NewOAuth2Provider creates a new OAuth2 provider
func NewOAuth2Provider(config *ProviderConfig) (*OAuth2Provider, error) {
	if config.OAuth2Config == nil {
		return nil, fmt.Errorf("OAuth2 config is required")
	}

	p := &OAuth2Provider{
		config: config,
		oauth2Config: &oauth2.Config{
			ClientID:     config.OAuth2Config.ClientID,
			ClientSecret: config.OAuth2Config.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:  config.OAuth2Config.AuthURL,
				TokenURL: config.OAuth2Config.TokenURL,
			},
			RedirectURL: config.OAuth2Config.RedirectURL,
			Scopes:      config.OAuth2Config.Scopes,
		},
	}
	if err := p.ValidateConfig(); err != nil {
		return nil, err
	}
	return p, nil
}

// Name returns the provider name
func (p *OAuth2Provider) Name() ProviderName {
	return p.config.ProviderName
}

// AuthCodeURL builds the authorization URL with PKCE parameters.
func (p *OAuth2Provider) AuthCodeURL(state, verifier string) string {
	return p.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOnline, oauth2.S256ChallengeOption(verifier))
}

// Exchange trades the code for a token and reads the userinfo document.
func (p *OAuth2Provider) Exchange(ctx context.Context, code, verifier string) (auth.Profile, error) {
	ctx, span := observability.Tracer().Start(ctx, "sso.oauth2.Exchange")
	defer span.End()

	if code == "" {
		return auth.Profile{}, fmt.Errorf("missing authorization code")
	}

	token, err := p.oauth2Config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return auth.Profile{}, fmt.Errorf("failed to exchange token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.OAuth2Config.UserInfoURL, nil)
	if err != nil {
		return auth.Profile{}, fmt.Errorf("failed to build user info request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.oauth2Config.Client(ctx, token).Do(req)
	if err != nil {
		return auth.Profile{}, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return auth.Profile{}, fmt.Errorf("user info request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var userInfo map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return auth.Profile{}, fmt.Errorf("failed to decode user info: %w", err)
	}

	return profileFromClaims(p.config.ProviderName, userInfo, p.config.AttributeMapping)
}

// ValidateConfig validates the OAuth2 configuration
func (p *OAuth2Provider) ValidateConfig() error {
	if p.config.OAuth2Config == nil {
		return fmt.Errorf("OAuth2 config is required")
	}

	cfg := p.config.OAuth2Config

	if cfg.ClientID == "" {
		return fmt.Errorf("client_id is required")
	}
	if cfg.ClientSecret == "" {
		return fmt.Errorf("client_secret is required")
	}
	if cfg.AuthURL == "" {
		return fmt.Errorf("auth_url is required")
	}
	if cfg.TokenURL == "" {
		return fmt.Errorf("token_url is required")
	}
	if cfg.UserInfoURL == "" {
		return fmt.Errorf("user_info_url is required")
	}
	if cfg.RedirectURL == "" {
		return fmt.Errorf("redirect_url is required")
	}
	if len(cfg.Scopes) == 0 {
		return fmt.Errorf("scopes are required")
	}
	if p.config.AttributeMapping.UserID == "" {
		return fmt.Errorf("attribute_mapping.user_id is required")
	}

	return nil
}
