// Package rbac decides which catalog actions each role may perform.
//
// Grants come from two places: a YAML policy file shipped with the
// deployment, and rows in the permissions table managed through the API.
// ADMIN bypasses every check.
//
//	checker := rbac.NewChecker(policy, rbac.NewStore(conn), rbac.CheckerConfig{}, metrics)
//	ok, err := checker.Allowed(ctx, auth.RoleInstructor, rbac.ResourceChapters, rbac.ActionUpdate)
//
// Stored grants are cached per role in an expiring LRU. Writers of the
// permissions table call InvalidateRole; PolicyWatcher swaps the policy when
// the file changes on disk.
//
// # Middleware
//
//	pm := rbac.NewPermissionMiddleware(checker)
//	chapters.Use(pm.RequireResource(rbac.ResourceChapters))
//	router.Handle("/wallets/{id}/adjust", pm.RequirePermission(rbac.ResourceWallets, rbac.ActionAdjust)(h))
package rbac
