package sso

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/oauth2"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/observability"
)

// Redirect error codes. The browser never sees more detail than this.
const (
	ErrorCodeOAuthFailed  = "oauth_failed"
	ErrorCodeInvalidState = "invalid_state"
)

const stateCookieName = "oauth_state"

// CallbackService turns a verified provider profile into a session.
type CallbackService interface {
	HandleProviderCallback(ctx context.Context, p auth.Profile) (*auth.LoginResult, error)
}

// HandlersConfig controls where the browser lands after a flow.
type HandlersConfig struct {
	FrontendURL   string
	SuccessPath   string
	FailurePath   string
	StateTTL      time.Duration
	SecureCookies bool
}

func (c HandlersConfig) withDefaults() HandlersConfig {
	if c.SuccessPath == "" {
		c.SuccessPath = "/auth/callback"
	}
	if c.FailurePath == "" {
		c.FailurePath = "/login"
	}
	if c.StateTTL <= 0 {
		c.StateTTL = 10 * time.Minute
	}
	return c
}

// Handlers serves the browser side of provider login:
// GET /auth/{provider} redirects to the provider and
// GET /auth/{provider}/callback finishes the flow.
type Handlers struct {
	providers []Provider
	states    StateStore
	service   CallbackService
	config    HandlersConfig
}

// NewHandlers creates a new SSO handlers instance
func NewHandlers(service CallbackService, states StateStore, config HandlersConfig, providers ...Provider) *Handlers {
	return &Handlers{
		providers: providers,
		states:    states,
		service:   service,
		config:    config.withDefaults(),
	}
}

// RegisterRoutes registers one login and one callback route per provider
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	for _, p := range h.providers {
		base := "/auth/" + string(p.Name())
		router.HandleFunc(base, h.initiateLogin(p)).Methods(http.MethodGet)
		router.HandleFunc(base+"/callback", h.handleCallback(p)).Methods(http.MethodGet)
	}
}

func (h *Handlers) initiateLogin(p Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := observability.FromContext(r.Context()).WithField("provider", string(p.Name()))

		state := uuid.NewString()
		verifier := oauth2.GenerateVerifier()
		if err := h.states.Save(r.Context(), state, verifier); err != nil {
			logger.WithError(err).Error("failed to save oauth state")
			h.fail(w, r, ErrorCodeOAuthFailed)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Value:    state,
			Path:     "/auth/" + string(p.Name()),
			MaxAge:   int(h.config.StateTTL.Seconds()),
			HttpOnly: true,
			Secure:   h.config.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, p.AuthCodeURL(state, verifier), http.StatusFound)
	}
}

func (h *Handlers) handleCallback(p Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logger := observability.FromContext(ctx).WithField("provider", string(p.Name()))
		query := r.URL.Query()

		http.SetCookie(w, &http.Cookie{
			Name:     stateCookieName,
			Path:     "/auth/" + string(p.Name()),
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   h.config.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})

		if providerErr := query.Get("error"); providerErr != "" {
			logger.WithField("provider_error", providerErr).Warn("provider rejected login")
			h.fail(w, r, ErrorCodeOAuthFailed)
			return
		}

		state := query.Get("state")
		cookie, err := r.Cookie(stateCookieName)
		if state == "" || err != nil || cookie.Value != state {
			logger.Warn("oauth state mismatch")
			h.fail(w, r, ErrorCodeInvalidState)
			return
		}

		verifier, err := h.states.Consume(ctx, state)
		if errors.Is(err, ErrStateNotFound) {
			logger.Warn("oauth state expired or reused")
			h.fail(w, r, ErrorCodeInvalidState)
			return
		}
		if err != nil {
			logger.WithError(err).Error("failed to load oauth state")
			h.fail(w, r, ErrorCodeOAuthFailed)
			return
		}

		profile, err := p.Exchange(ctx, query.Get("code"), verifier)
		if err != nil {
			logger.WithError(err).Warn("provider exchange failed")
			h.fail(w, r, ErrorCodeOAuthFailed)
			return
		}

		result, err := h.service.HandleProviderCallback(ctx, profile)
		if err != nil {
			logger.WithError(err).Warn("provider login failed")
			h.fail(w, r, ErrorCodeOAuthFailed)
			return
		}

		logger.WithField("user_id", result.User.ID).
			WithField("link_path", string(result.LinkPath)).
			Info("provider login succeeded")
		h.redirect(w, r, h.config.SuccessPath, url.Values{"token": {result.Token}})
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, code string) {
	h.redirect(w, r, h.config.FailurePath, url.Values{"error": {code}})
}

func (h *Handlers) redirect(w http.ResponseWriter, r *http.Request, path string, params url.Values) {
	http.Redirect(w, r, h.config.FrontendURL+path+"?"+params.Encode(), http.StatusFound)
}
