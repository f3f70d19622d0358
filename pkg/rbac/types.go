package rbac

import (
	"fmt"

	"github.com/elearnhq/elearn/pkg/auth"
)

// Resource names a catalog collection that can be guarded.
type Resource string

const (
	ResourceChapters               Resource = "chapters"
	ResourceLevels                 Resource = "levels"
	ResourceNotes                  Resource = "notes"
	ResourcePermissions            Resource = "permissions"
	ResourceWallets                Resource = "wallets"
	ResourceFeedback               Resource = "feedback"
	ResourceCitizenIDs             Resource = "citizen-ids"
	ResourceLearnerCourses         Resource = "learner-courses"
	ResourceInstructorTransactions Resource = "instructor-transactions"
	ResourceStats                  Resource = "stats"
)

// Resources lists every guarded resource.
var Resources = []Resource{
	ResourceChapters,
	ResourceLevels,
	ResourceNotes,
	ResourcePermissions,
	ResourceWallets,
	ResourceFeedback,
	ResourceCitizenIDs,
	ResourceLearnerCourses,
	ResourceInstructorTransactions,
	ResourceStats,
}

// Valid reports whether r is a known resource.
func (r Resource) Valid() bool {
	for _, known := range Resources {
		if r == known {
			return true
		}
	}
	return false
}

// Action represents an action that can be performed on a resource
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionReview Action = "review"
	ActionAdjust Action = "adjust"
	ActionUpload Action = "upload"

	// ActionAll in a policy grants every action on the resource.
	ActionAll Action = "*"
)

// Actions lists every concrete action.
var Actions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete, ActionReview, ActionAdjust, ActionUpload}

// Valid reports whether a is a known action or the wildcard.
func (a Action) Valid() bool {
	if a == ActionAll {
		return true
	}
	for _, known := range Actions {
		if a == known {
			return true
		}
	}
	return false
}

// Permission represents a specific permission (resource + action)
type Permission struct {
	Resource Resource `json:"resource" yaml:"resource"`
	Action   Action   `json:"action" yaml:"action"`
}

// String returns a string representation of the permission
func (p Permission) String() string {
	return string(p.Resource) + ":" + string(p.Action)
}

// Validate rejects unknown resources and actions.
func (p Permission) Validate() error {
	if !p.Resource.Valid() {
		return fmt.Errorf("unknown resource %q", p.Resource)
	}
	if !p.Action.Valid() || p.Action == ActionAll {
		return fmt.Errorf("unknown action %q", p.Action)
	}
	return nil
}

// ActionForMethod maps an HTTP method onto the CRUD action it performs.
func ActionForMethod(method string) Action {
	switch method {
	case "POST":
		return ActionCreate
	case "PUT", "PATCH":
		return ActionUpdate
	case "DELETE":
		return ActionDelete
	default:
		return ActionRead
	}
}

// bypass reports whether role skips every check.
func bypass(role auth.Role) bool {
	return role == auth.RoleAdmin
}
