// Package api assembles the HTTP surface of the e-learning backend.
//
// # Routes
//
// Public:
//
//	POST /auth/register          password signup
//	POST /auth/login             password login, rate limited per client
//	GET  /auth/{provider}        start an OAuth login (see package sso)
//	GET  /auth/{provider}/callback
//
// Bearer token required:
//
//	GET  /auth/me
//	/api/v1/{resource}           catalog CRUD, gated by RBAC (see package catalog)
//	GET  /api/v1/rbac/me
//	GET  /api/v1/admin/stats     daily platform summary
//
// Every JSON body uses the httputil envelope. Login failures carry a readable
// message; store failures are logged and answered with an opaque 500.
//
// # Usage
//
//	server, err := api.NewServer(api.Config{CORSOrigins: origins}, api.Deps{
//		Auth:    authService,
//		Users:   userStore,
//		Catalog: catalog.New(conn),
//		Checker: checker,
//		Logger:  logger,
//	})
//	http.ListenAndServe(":8080", server)
package api
