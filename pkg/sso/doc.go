// Package sso implements browser login through external identity providers.
//
// # Overview
//
// A provider login is an authorization code flow with PKCE:
//
//	GET /auth/google           -> 302 to the provider, state cookie set
//	GET /auth/google/callback  -> code exchanged, profile resolved to an
//	                              account, 302 to the frontend with ?token=
//
// Any failure redirects to the frontend login page carrying only
// error=oauth_failed or error=invalid_state. Details are logged, never sent
// to the browser.
//
// # Providers
//
// OIDC providers (Google) are verified through discovery and ID token
// validation. Plain OAuth2 providers read a userinfo endpoint.
//
//	cfg := sso.GoogleConfig(clientID, clientSecret, redirectURL)
//	google, err := sso.CreateProvider(ctx, cfg)
//
// # State
//
// The state value and its PKCE verifier live in a StateStore. Redis is used
// when configured so any replica can complete the flow; otherwise an
// in-memory expirable LRU.
//
// # Related Packages
//
//   - pkg/auth: account resolution and token issuance
package sso
