package sso

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGenericOAuth2Server(t *testing.T, userInfoStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "good-code", r.PostForm.Get("code"))
		assert.Equal(t, "the-verifier", r.PostForm.Get("code_verifier"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"access_token": "at-1", "token_type": "bearer"})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
		if userInfoStatus != http.StatusOK {
			w.WriteHeader(userInfoStatus)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"id":         42,
			"email":      "dev@example.com",
			"name":       "Dev",
			"avatar_url": "https://cdn.example.com/dev.png",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func genericConfig(base string) *ProviderConfig {
	return &ProviderConfig{
		ProviderType: ProviderTypeOAuth2,
		ProviderName: ProviderGenericOAuth2,
		Enabled:      true,
		OAuth2Config: &OAuth2Config{
			ClientID:     "client",
			ClientSecret: "secret",
			AuthURL:      base + "/authorize",
			TokenURL:     base + "/token",
			UserInfoURL:  base + "/userinfo",
			Scopes:       []string{"user:email"},
			RedirectURL:  "https://api.example.com/auth/generic_oauth2/callback",
		},
		AttributeMapping: AttributeMap{UserID: "id", Email: "email", FullName: "name", Picture: "avatar_url"},
	}
}

func TestOAuth2Provider_AuthCodeURL(t *testing.T) {
	p, err := NewOAuth2Provider(genericConfig("https://provider.example.com"))
	require.NoError(t, err)

	u, err := url.Parse(p.AuthCodeURL("state-1", "the-verifier"))
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "state-1", q.Get("state"))
	assert.Equal(t, "S256", q.Get("code_challenge_method"))
	assert.NotEmpty(t, q.Get("code_challenge"))
	assert.NotEqual(t, "the-verifier", q.Get("code_challenge"))
	assert.Equal(t, "client", q.Get("client_id"))
}

func TestOAuth2Provider_Exchange(t *testing.T) {
	srv := newGenericOAuth2Server(t, http.StatusOK)
	p, err := CreateProvider(context.Background(), genericConfig(srv.URL))
	require.NoError(t, err)

	profile, err := p.Exchange(context.Background(), "good-code", "the-verifier")
	require.NoError(t, err)
	assert.Equal(t, "42", profile.ExternalID)
	assert.Equal(t, []string{"dev@example.com"}, profile.Emails)
	assert.Equal(t, "Dev", profile.DisplayName)
	assert.Equal(t, "https://cdn.example.com/dev.png", profile.PhotoURL)
	assert.Equal(t, string(ProviderGenericOAuth2), profile.Provider)
	assert.False(t, profile.EmailVerified, "userinfo without email_verified is not trusted")
	assert.Equal(t, "generic_oauth2:42", profile.ExternalKey())
}

func TestOAuth2Provider_ExchangeFailures(t *testing.T) {
	srv := newGenericOAuth2Server(t, http.StatusUnauthorized)
	p, err := NewOAuth2Provider(genericConfig(srv.URL))
	require.NoError(t, err)

	_, err = p.Exchange(context.Background(), "", "the-verifier")
	assert.ErrorContains(t, err, "missing authorization code")

	_, err = p.Exchange(context.Background(), "good-code", "the-verifier")
	assert.ErrorContains(t, err, "status 401")
}

func TestOAuth2Provider_ValidateConfig(t *testing.T) {
	cfg := genericConfig("https://provider.example.com")
	cfg.OAuth2Config.UserInfoURL = ""
	_, err := NewOAuth2Provider(cfg)
	assert.ErrorContains(t, err, "user_info_url is required")

	cfg = genericConfig("https://provider.example.com")
	cfg.AttributeMapping.UserID = ""
	_, err = NewOAuth2Provider(cfg)
	assert.ErrorContains(t, err, "attribute_mapping.user_id is required")
}
