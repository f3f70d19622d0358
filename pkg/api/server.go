package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/catalog"
	"github.com/elearnhq/elearn/pkg/httputil"
	"github.com/elearnhq/elearn/pkg/middleware"
	"github.com/elearnhq/elearn/pkg/observability"
	"github.com/elearnhq/elearn/pkg/rbac"
	"github.com/elearnhq/elearn/pkg/sso"
)

// UserReader loads the caller's account for /auth/me.
type UserReader interface {
	FindByID(ctx context.Context, id string) (*auth.User, error)
}

// RouteRegistrar is an interface for types that can register routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// Config controls the HTTP surface.
type Config struct {
	CORSOrigins []string
	// MaxBodyBytes caps request bodies; uploads need room for a 5MB image.
	MaxBodyBytes int64
	LoginLimit   *middleware.RateLimitConfig
	// TrustedProxies may report the client address in X-Forwarded-For.
	TrustedProxies []string
}

// Deps are the collaborators the server routes to. Auth, Users, Catalog and
// Checker are required; the rest switch features on when present.
type Deps struct {
	Auth    *auth.Service
	Users   UserReader
	Catalog *catalog.Catalog
	Checker *rbac.Checker

	SSO          *sso.Handlers
	Stats        StatsReader
	LoginLimiter middleware.Limiter

	Logger        *observability.Logger
	HandlerLogger *logrus.Logger
	Metrics       *observability.Metrics
}

// Server represents our API server
type Server struct {
	router  *mux.Router
	handler http.Handler
	logger  *observability.Logger
}

// NewServer wires every route and the middleware chain.
func NewServer(cfg Config, deps Deps) (*Server, error) {
	if deps.Auth == nil || deps.Users == nil || deps.Catalog == nil || deps.Checker == nil {
		return nil, errors.New("api: auth service, user reader, catalog and checker are required")
	}
	if deps.Logger == nil {
		deps.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if deps.HandlerLogger == nil {
		deps.HandlerLogger = logrus.StandardLogger()
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 6 << 20
	}
	if cfg.LoginLimit == nil {
		cfg.LoginLimit = middleware.LoginRateLimitConfig()
	}
	if deps.LoginLimiter == nil {
		deps.LoginLimiter = middleware.NewRateLimiter(cfg.LoginLimit)
	}

	s := &Server{router: mux.NewRouter(), logger: deps.Logger}
	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "Route not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteErrorMessage(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	if deps.Metrics != nil {
		s.router.Use(observability.HTTPMetricsMiddleware(deps.Metrics))
	}

	authMW := middleware.NewAuthMiddleware(deps.Auth.Tokens(), false)
	perms := rbac.NewPermissionMiddleware(deps.Checker)

	authHandlers := NewAuthHandlers(deps.Auth, deps.Users, deps.Logger)
	clientIP, err := middleware.NewClientIPResolver(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("api: %w", err)
	}
	loginLimit := middleware.NewRateLimitMiddleware(deps.LoginLimiter, cfg.LoginLimit, "login", deps.Metrics)
	loginLimit.SetClientIPResolver(clientIP)
	s.router.HandleFunc("/auth/register", authHandlers.register).Methods(http.MethodPost)
	s.router.Handle("/auth/login", loginLimit.Handler(http.HandlerFunc(authHandlers.login))).Methods(http.MethodPost)
	s.router.Handle("/auth/me", authMW.Handler(http.HandlerFunc(authHandlers.me))).Methods(http.MethodGet)

	if deps.SSO != nil {
		deps.SSO.RegisterRoutes(s.router)
	}

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.Use(authMW.Handler)
	catalog.NewHandlers(deps.Catalog, perms, deps.HandlerLogger).RegisterRoutes(v1)
	rbac.NewHandlers(deps.Checker).RegisterRoutes(v1)
	if deps.Stats != nil {
		stats := NewStatsHandlers(deps.Stats, deps.Logger)
		v1.Handle("/admin/stats",
			perms.RequirePermission(rbac.ResourceStats, rbac.ActionRead)(http.HandlerFunc(stats.latest))).
			Methods(http.MethodGet)
		v1.Handle("/admin/stats/{day}",
			perms.RequirePermission(rbac.ResourceStats, rbac.ActionRead)(http.HandlerFunc(stats.day))).
			Methods(http.MethodGet)
	}

	s.handler = httputil.Chain(
		httputil.RequestIDMiddleware(deps.Logger),
		httputil.LoggingMiddleware,
		httputil.RecoveryMiddleware,
		httputil.CORSMiddleware(cfg.CORSOrigins),
		httputil.MaxBytesMiddleware(cfg.MaxBodyBytes),
	)(s.router)
	return s, nil
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Router exposes the underlying router, for wrapping with otelhttp or adding
// routes in tests.
func (s *Server) Router() *mux.Router {
	return s.router
}

// RegisterRoutes registers routes from a RouteRegistrar
func (s *Server) RegisterRoutes(registrar RouteRegistrar) {
	registrar.RegisterRoutes(s.router)
}
