package rbac

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/elearnhq/elearn/pkg/auth"
)

// Grant gives a role some actions on one resource.
type Grant struct {
	Resource Resource `yaml:"resource"`
	Actions  []Action `yaml:"actions"`
}

// Policy is the static role to permission mapping loaded from YAML:
//
//	roles:
//	  INSTRUCTOR:
//	    - resource: chapters
//	      actions: [create, read, update, delete]
type Policy struct {
	Roles map[auth.Role][]Grant `yaml:"roles"`
}

// ParsePolicy decodes and validates a YAML policy document.
func ParsePolicy(data []byte) (*Policy, error) {
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// LoadPolicy reads a policy file from disk.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy %s: %w", path, err)
	}
	return ParsePolicy(data)
}

// Validate rejects unknown roles, resources and actions.
func (p *Policy) Validate() error {
	for role, grants := range p.Roles {
		if !role.Valid() {
			return fmt.Errorf("policy: unknown role %q", role)
		}
		for _, g := range grants {
			if !g.Resource.Valid() {
				return fmt.Errorf("policy: role %s: unknown resource %q", role, g.Resource)
			}
			for _, a := range g.Actions {
				if !a.Valid() {
					return fmt.Errorf("policy: role %s: resource %s: unknown action %q", role, g.Resource, a)
				}
			}
		}
	}
	return nil
}

// Allows reports whether the policy grants action on resource to role.
func (p *Policy) Allows(role auth.Role, resource Resource, action Action) bool {
	if p == nil {
		return false
	}
	for _, g := range p.Roles[role] {
		if g.Resource != resource {
			continue
		}
		for _, a := range g.Actions {
			if a == action || a == ActionAll {
				return true
			}
		}
	}
	return false
}

// Permissions expands the grants for role into concrete permissions.
func (p *Policy) Permissions(role auth.Role) []Permission {
	if p == nil {
		return nil
	}
	var perms []Permission
	for _, g := range p.Roles[role] {
		for _, a := range g.Actions {
			if a == ActionAll {
				for _, concrete := range Actions {
					perms = append(perms, Permission{Resource: g.Resource, Action: concrete})
				}
				continue
			}
			perms = append(perms, Permission{Resource: g.Resource, Action: a})
		}
	}
	return perms
}

// DefaultPolicy is used when no policy file is configured.
func DefaultPolicy() *Policy {
	return &Policy{Roles: map[auth.Role][]Grant{
		auth.RoleLearner: {
			{Resource: ResourceChapters, Actions: []Action{ActionRead}},
			{Resource: ResourceLevels, Actions: []Action{ActionRead}},
			{Resource: ResourceNotes, Actions: []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}},
			{Resource: ResourceFeedback, Actions: []Action{ActionCreate, ActionRead}},
			{Resource: ResourceLearnerCourses, Actions: []Action{ActionCreate, ActionRead, ActionUpdate}},
			{Resource: ResourceWallets, Actions: []Action{ActionRead}},
			{Resource: ResourceCitizenIDs, Actions: []Action{ActionCreate, ActionRead, ActionUpload}},
		},
		auth.RoleInstructor: {
			{Resource: ResourceChapters, Actions: []Action{ActionAll}},
			{Resource: ResourceLevels, Actions: []Action{ActionRead}},
			{Resource: ResourceNotes, Actions: []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}},
			{Resource: ResourceFeedback, Actions: []Action{ActionRead}},
			{Resource: ResourceLearnerCourses, Actions: []Action{ActionRead}},
			{Resource: ResourceWallets, Actions: []Action{ActionRead}},
			{Resource: ResourceCitizenIDs, Actions: []Action{ActionCreate, ActionRead, ActionUpload}},
			{Resource: ResourceInstructorTransactions, Actions: []Action{ActionRead}},
		},
	}}
}
