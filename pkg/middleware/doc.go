// Package middleware provides HTTP middleware for authentication, role checks
// and rate limiting.
//
// # Authentication
//
// AuthMiddleware verifies "Authorization: Bearer <jwt>" with the auth token
// issuer and stores an *AuthContext in the request context:
//
//	authMW := middleware.NewAuthMiddleware(authService.Tokens(), false)
//	router.Use(authMW.Handler)
//	authCtx := middleware.GetAuthContext(r)
//
// # Role Checks
//
//	admin.Use(middleware.RequireRole(auth.RoleAdmin))
//
// # Rate Limiting
//
// RateLimiter is an in-process token bucket; DistributedRateLimiter keeps a
// fixed window counter in Redis so all instances share the budget. Both
// satisfy Limiter and plug into RateLimitMiddleware:
//
//	limiter := middleware.NewDistributedRateLimiter(redisClient, middleware.LoginRateLimitConfig(), "ratelimit:login")
//	mw := middleware.NewRateLimitMiddleware(limiter, middleware.LoginRateLimitConfig(), "login", metrics)
//
// Limiter errors fail open by default.
package middleware
