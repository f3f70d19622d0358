package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/httputil"
	"github.com/elearnhq/elearn/pkg/middleware"
	"github.com/elearnhq/elearn/pkg/observability"
)

// Messages shown to API callers for password login failures.
const (
	msgUserNotFound       = "No account found with this email"
	msgInvalidAccountType = "This account signs in with Google; use Google login instead"
	msgInvalidCredentials = "Invalid email or password"
	msgEmailTaken         = "Email already exists"
)

// Authenticator is the slice of auth.Service the handlers call.
type Authenticator interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.User, error)
	Login(ctx context.Context, email, password string) (*auth.LoginResult, error)
}

// AuthHandlers serves password signup, login and the current-user lookup.
type AuthHandlers struct {
	service Authenticator
	users   UserReader
	logger  *observability.Logger
}

// NewAuthHandlers creates a new auth handlers instance
func NewAuthHandlers(service Authenticator, users UserReader, logger *observability.Logger) *AuthHandlers {
	return &AuthHandlers{service: service, users: users, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	FullName string `json:"fullName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// register handles POST /auth/register
func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w,
		httputil.RequireNonEmpty(req.Email, "email"),
		httputil.RequireNonEmpty(req.Password, "password"),
		httputil.RequireNonEmpty(strings.TrimSpace(req.FullName), "fullName"),
	) {
		return
	}

	user, err := h.service.Register(r.Context(), auth.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		FullName: req.FullName,
	})
	switch {
	case err == nil:
		httputil.WriteCreated(w, "User registered successfully", user)
	case errors.Is(err, auth.ErrInvalidInput):
		httputil.WriteValidationError(w, inputMessage(err))
	case errors.Is(err, auth.ErrConflict):
		httputil.WriteConflict(w, msgEmailTaken)
	default:
		observability.FromContext(r.Context()).WithError(err).Error("registration failed")
		httputil.WriteInternalError(w)
	}
}

// login handles POST /auth/login
func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.ValidateAll(w,
		httputil.RequireNonEmpty(req.Email, "email"),
		httputil.RequireNonEmpty(req.Password, "password"),
	) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		httputil.WriteSuccess(w, "Login successful", result)
	case errors.Is(err, auth.ErrUserNotFound):
		httputil.WriteUnauthorized(w, msgUserNotFound)
	case errors.Is(err, auth.ErrInvalidAccountType):
		httputil.WriteUnauthorized(w, msgInvalidAccountType)
	case errors.Is(err, auth.ErrInvalidCredentials):
		httputil.WriteUnauthorized(w, msgInvalidCredentials)
	case errors.Is(err, auth.ErrInvalidInput):
		httputil.WriteValidationError(w, inputMessage(err))
	default:
		observability.FromContext(r.Context()).WithError(err).Error("login failed")
		httputil.WriteInternalError(w)
	}
}

// me handles GET /auth/me
func (h *AuthHandlers) me(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetAuthContext(r)
	if caller == nil {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	user, err := h.users.FindByID(r.Context(), caller.UserID)
	if errors.Is(err, auth.ErrUserNotFound) {
		// token outlived the account
		httputil.WriteUnauthorized(w, "Account no longer exists")
		return
	}
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to load current user")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, "User retrieved", user)
}

func inputMessage(err error) string {
	return strings.TrimPrefix(err.Error(), auth.ErrInvalidInput.Error()+": ")
}
