package sso

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const testIssuer = "https://issuer.example.com"

type oidcFixture struct {
	key     *rsa.PrivateKey
	idToken string
	server  *httptest.Server
}

func (f *oidcFixture) sign(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	base := jwt.MapClaims{
		"iss": testIssuer,
		"aud": "client",
		"sub": "google-sub-1",
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour).Unix(),
	}
	for k, v := range claims {
		base[k] = v
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, base).SignedString(key)
	require.NoError(t, err)
	return signed
}

func newOIDCFixture(t *testing.T) (*oidcFixture, *OIDCProvider) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	f := &oidcFixture{key: key}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-verifier", r.PostForm.Get("code_verifier"))
		body := map[string]string{"access_token": "at-1", "token_type": "bearer"}
		if f.idToken != "" {
			body["id_token"] = f.idToken
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(f.server.Close)

	cfg := GoogleConfig("client", "secret", "https://api.example.com/auth/google/callback")
	cfg.OIDCConfig.IssuerURL = testIssuer
	verifier := oidc.NewVerifier(testIssuer,
		&oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}},
		&oidc.Config{ClientID: "client"})
	p := newOIDCProvider(cfg, oauth2.Endpoint{
		AuthURL:  f.server.URL + "/authorize",
		TokenURL: f.server.URL + "/token",
	}, verifier)
	return f, p
}

func TestOIDCProvider_Exchange(t *testing.T) {
	f, p := newOIDCFixture(t)
	f.idToken = f.sign(t, f.key, jwt.MapClaims{
		"email":          "Ada@Example.com",
		"email_verified": true,
		"name":           "Ada Lovelace",
		"picture":        "https://lh3.example.com/ada.png",
	})

	profile, err := p.Exchange(context.Background(), "code", "the-verifier")
	require.NoError(t, err)
	assert.Equal(t, "google", profile.Provider)
	assert.Equal(t, "google-sub-1", profile.ExternalID)
	assert.Equal(t, "ada@example.com", profile.PrimaryEmail())
	assert.Equal(t, "Ada Lovelace", profile.DisplayName)
	assert.Equal(t, "https://lh3.example.com/ada.png", profile.PhotoURL)
	assert.True(t, profile.EmailVerified)
	assert.Equal(t, "google-sub-1", profile.ExternalKey())
}

func TestOIDCProvider_UnverifiedEmailDropped(t *testing.T) {
	f, p := newOIDCFixture(t)
	f.idToken = f.sign(t, f.key, jwt.MapClaims{
		"email":          "ada@example.com",
		"email_verified": false,
	})

	profile, err := p.Exchange(context.Background(), "code", "the-verifier")
	require.NoError(t, err)
	assert.Empty(t, profile.PrimaryEmail())
	assert.False(t, profile.EmailVerified)
}

func TestOIDCProvider_ExchangeFailures(t *testing.T) {
	t.Run("missing id_token", func(t *testing.T) {
		_, p := newOIDCFixture(t)
		_, err := p.Exchange(context.Background(), "code", "the-verifier")
		assert.ErrorContains(t, err, "missing id_token")
	})

	t.Run("foreign signature", func(t *testing.T) {
		f, p := newOIDCFixture(t)
		other, err := rsa.GenerateKey(rand.Reader, 2048)
		require.NoError(t, err)
		f.idToken = f.sign(t, other, jwt.MapClaims{"email": "ada@example.com"})

		_, err = p.Exchange(context.Background(), "code", "the-verifier")
		assert.ErrorContains(t, err, "failed to verify ID token")
	})

	t.Run("wrong audience", func(t *testing.T) {
		f, p := newOIDCFixture(t)
		f.idToken = f.sign(t, f.key, jwt.MapClaims{"aud": "someone-else"})

		_, err := p.Exchange(context.Background(), "code", "the-verifier")
		assert.ErrorContains(t, err, "failed to verify ID token")
	})

	t.Run("missing code", func(t *testing.T) {
		_, p := newOIDCFixture(t)
		_, err := p.Exchange(context.Background(), "", "the-verifier")
		assert.ErrorContains(t, err, "missing authorization code")
	})
}
