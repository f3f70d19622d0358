package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/contextkeys"
	"github.com/elearnhq/elearn/pkg/httputil"
)

// AuthContext is the identity carried by a verified session token.
type AuthContext struct {
	UserID   string
	Email    string
	Role     auth.Role
	FullName string
	Claims   *auth.Claims
}

// IsAdmin reports whether the caller has the ADMIN role.
func (a *AuthContext) IsAdmin() bool {
	return a != nil && a.Role == auth.RoleAdmin
}

// HasRole reports whether the caller holds any of roles.
func (a *AuthContext) HasRole(roles ...auth.Role) bool {
	if a == nil {
		return false
	}
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

// TokenVerifier verifies session tokens. *auth.TokenIssuer satisfies it.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthMiddleware provides authentication middleware
type AuthMiddleware struct {
	verifier TokenVerifier
	optional bool // If true, allow requests without auth
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(verifier TokenVerifier, optional bool) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		optional: optional,
	}
}

// Handler verifies the "Authorization: Bearer <token>" header and stores an
// AuthContext in the request context.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			if m.optional {
				next.ServeHTTP(w, r)
				return
			}
			httputil.WriteUnauthorized(w, "Missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
			httputil.WriteUnauthorized(w, "Invalid authorization header format")
			return
		}

		claims, err := m.verifier.Verify(strings.TrimSpace(parts[1]))
		if err != nil {
			if errors.Is(err, auth.ErrTokenExpired) {
				httputil.WriteUnauthorized(w, "Token expired")
				return
			}
			httputil.WriteUnauthorized(w, "Invalid token")
			return
		}

		authCtx := &AuthContext{
			UserID:   claims.UserID,
			Email:    claims.Email,
			Role:     claims.Role,
			FullName: claims.FullName,
			Claims:   claims,
		}
		ctx := contextkeys.WithAuth(r.Context(), authCtx)
		ctx = contextkeys.WithUserID(ctx, claims.UserID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetAuthContext extracts auth context from request
func GetAuthContext(r *http.Request) *AuthContext {
	return AuthFromContext(r.Context())
}

// AuthFromContext returns the AuthContext stored by AuthMiddleware, or nil.
func AuthFromContext(ctx context.Context) *AuthContext {
	authCtx, _ := ctx.Value(contextkeys.AuthKey).(*AuthContext)
	return authCtx
}

// RequireRole rejects callers that hold none of roles.
func RequireRole(roles ...auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := GetAuthContext(r)
			if authCtx == nil {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}
			if !authCtx.HasRole(roles...) {
				httputil.WriteForbidden(w, "Insufficient role permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
