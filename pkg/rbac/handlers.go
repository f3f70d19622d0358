package rbac

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/httputil"
	"github.com/elearnhq/elearn/pkg/middleware"
	"github.com/elearnhq/elearn/pkg/observability"
)

// Handlers exposes effective permissions over HTTP.
type Handlers struct {
	checker *Checker
}

// NewHandlers creates RBAC handlers.
func NewHandlers(checker *Checker) *Handlers {
	return &Handlers{checker: checker}
}

// RegisterRoutes registers RBAC routes on an authenticated router.
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/rbac/me", h.myPermissions).Methods(http.MethodGet)
	router.Handle("/rbac/roles/{role}/permissions",
		middleware.RequireRole(auth.RoleAdmin)(http.HandlerFunc(h.rolePermissions))).Methods(http.MethodGet)
}

type permissionsResponse struct {
	Role        auth.Role    `json:"role"`
	Permissions []Permission `json:"permissions"`
}

func (h *Handlers) myPermissions(w http.ResponseWriter, r *http.Request) {
	authCtx := middleware.GetAuthContext(r)
	if authCtx == nil {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	h.writePermissions(w, r, authCtx.Role)
}

func (h *Handlers) rolePermissions(w http.ResponseWriter, r *http.Request) {
	role := auth.Role(mux.Vars(r)["role"])
	if !role.Valid() {
		httputil.WriteBadRequest(w, "Unknown role")
		return
	}
	h.writePermissions(w, r, role)
}

func (h *Handlers) writePermissions(w http.ResponseWriter, r *http.Request, role auth.Role) {
	perms, err := h.checker.EffectivePermissions(r.Context(), role)
	if err != nil {
		observability.FromContext(r.Context()).WithError(err).Error("failed to load permissions")
		httputil.WriteInternalError(w)
		return
	}
	httputil.WriteSuccess(w, "Permissions retrieved", permissionsResponse{Role: role, Permissions: perms})
}
