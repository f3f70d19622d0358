// Package catalog implements the e-learning resources: chapters, levels,
// notes, permission grants, wallets, feedback, citizen id confirmations,
// learner enrollments and instructor transactions.
//
// Every service method is a single SQL statement against the shared
// connection manager and returns ErrNotFound, ErrConflict or an error
// wrapping ErrInvalid for the expected failure cases. Anything else is a
// store failure.
//
//	c := catalog.New(conn, catalog.WithMetrics(metrics), catalog.WithRoleCache(checker))
//	ch, err := c.Chapters.Create(ctx, catalog.CreateChapter{CourseID: id, Title: "Intro"})
//
// Handlers mounts the REST routes behind RBAC checks. Rows owned by a user
// (notes, wallets, confirmations, enrollments, transactions) are only
// visible to their owner and to admins.
package catalog
