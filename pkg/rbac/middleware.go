package rbac

import (
	"net/http"

	"github.com/elearnhq/elearn/pkg/httputil"
	"github.com/elearnhq/elearn/pkg/middleware"
	"github.com/elearnhq/elearn/pkg/observability"
)

// PermissionMiddleware gates routes on checker decisions.
type PermissionMiddleware struct {
	checker *Checker
}

// NewPermissionMiddleware creates a new permission middleware
func NewPermissionMiddleware(checker *Checker) *PermissionMiddleware {
	return &PermissionMiddleware{checker: checker}
}

// RequirePermission requires a fixed action on resource.
func (pm *PermissionMiddleware) RequirePermission(resource Resource, action Action) func(http.Handler) http.Handler {
	return pm.require(resource, func(*http.Request) Action { return action })
}

// RequireResource derives the action from the HTTP method: POST is create,
// PUT and PATCH update, DELETE delete, anything else read.
func (pm *PermissionMiddleware) RequireResource(resource Resource) func(http.Handler) http.Handler {
	return pm.require(resource, func(r *http.Request) Action { return ActionForMethod(r.Method) })
}

func (pm *PermissionMiddleware) require(resource Resource, actionFor func(*http.Request) Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authCtx := middleware.GetAuthContext(r)
			if authCtx == nil {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}

			action := actionFor(r)
			allowed, err := pm.checker.Allowed(r.Context(), authCtx.Role, resource, action)
			if err != nil {
				observability.FromContext(r.Context()).WithError(err).
					WithField("resource", string(resource)).
					Error("permission check failed")
				httputil.WriteInternalError(w)
				return
			}
			if !allowed {
				httputil.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
