package catalog

import (
	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/observability"
	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

// RoleCache is told when stored grants for a role change.
type RoleCache interface {
	InvalidateRole(role auth.Role)
}

// Catalog bundles the resource services over one connection.
type Catalog struct {
	Chapters               *Chapters
	Levels                 *Levels
	Notes                  *Notes
	Permissions            *Permissions
	Wallets                *Wallets
	Feedback               *FeedbackService
	CitizenIDs             *CitizenIDs
	LearnerCourses         *LearnerCourses
	InstructorTransactions *InstructorTransactions
}

type options struct {
	metrics   *observability.Metrics
	documents sqlstore.DocumentStore
	roleCache RoleCache
}

// Option configures New.
type Option func(*options)

// WithMetrics records storage operations.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithDocuments enables citizen id image uploads.
func WithDocuments(d sqlstore.DocumentStore) Option {
	return func(o *options) { o.documents = d }
}

// WithRoleCache invalidates cached grants whenever a permission row changes.
func WithRoleCache(c RoleCache) Option {
	return func(o *options) { o.roleCache = c }
}

// New creates every resource service.
func New(conn *sqlstore.ConnectionManager, opts ...Option) *Catalog {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	s := newStore(conn, o.metrics)
	return &Catalog{
		Chapters:               &Chapters{store: s},
		Levels:                 &Levels{store: s},
		Notes:                  &Notes{store: s},
		Permissions:            &Permissions{store: s, cache: o.roleCache},
		Wallets:                &Wallets{store: s},
		Feedback:               &FeedbackService{store: s},
		CitizenIDs:             &CitizenIDs{store: s, documents: o.documents},
		LearnerCourses:         &LearnerCourses{store: s},
		InstructorTransactions: &InstructorTransactions{store: s},
	}
}
