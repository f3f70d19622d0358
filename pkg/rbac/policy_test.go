package rbac

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elearnhq/elearn/pkg/auth"
)

const samplePolicy = `
roles:
  LEARNER:
    - resource: notes
      actions: [create, read]
  INSTRUCTOR:
    - resource: chapters
      actions: ["*"]
`

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy([]byte(samplePolicy))
	require.NoError(t, err)

	assert.True(t, p.Allows(auth.RoleLearner, ResourceNotes, ActionCreate))
	assert.False(t, p.Allows(auth.RoleLearner, ResourceNotes, ActionDelete))
	assert.True(t, p.Allows(auth.RoleInstructor, ResourceChapters, ActionDelete), "wildcard")
	assert.False(t, p.Allows(auth.RoleInstructor, ResourceNotes, ActionRead))
	assert.False(t, p.Allows(auth.RoleAdmin, ResourceNotes, ActionRead), "policy itself has no admin bypass")
}

func TestParsePolicy_Rejects(t *testing.T) {
	tests := map[string]string{
		"bad yaml":         "roles: [",
		"unknown role":     "roles:\n  ROOT:\n    - resource: notes\n      actions: [read]\n",
		"unknown resource": "roles:\n  LEARNER:\n    - resource: courses\n      actions: [read]\n",
		"unknown action":   "roles:\n  LEARNER:\n    - resource: notes\n      actions: [publish]\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePolicy([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadPolicy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(samplePolicy), 0o600))

	p, err := LoadPolicy(path)
	require.NoError(t, err)
	assert.Len(t, p.Roles, 2)

	_, err = LoadPolicy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestPolicy_PermissionsExpandsWildcard(t *testing.T) {
	p, err := ParsePolicy([]byte(samplePolicy))
	require.NoError(t, err)

	perms := p.Permissions(auth.RoleInstructor)
	assert.Len(t, perms, len(Actions))
	for _, perm := range perms {
		assert.Equal(t, ResourceChapters, perm.Resource)
		assert.NotEqual(t, ActionAll, perm.Action)
	}
}

func TestDefaultPolicy_IsValid(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())
	assert.True(t, p.Allows(auth.RoleLearner, ResourceNotes, ActionCreate))
	assert.False(t, p.Allows(auth.RoleLearner, ResourceChapters, ActionCreate))
	assert.True(t, p.Allows(auth.RoleInstructor, ResourceChapters, ActionCreate))
	assert.False(t, p.Allows(auth.RoleInstructor, ResourceWallets, ActionAdjust))
}

func TestActionForMethod(t *testing.T) {
	assert.Equal(t, ActionCreate, ActionForMethod("POST"))
	assert.Equal(t, ActionUpdate, ActionForMethod("PUT"))
	assert.Equal(t, ActionUpdate, ActionForMethod("PATCH"))
	assert.Equal(t, ActionDelete, ActionForMethod("DELETE"))
	assert.Equal(t, ActionRead, ActionForMethod("GET"))
}

func TestPermission_Validate(t *testing.T) {
	assert.NoError(t, Permission{Resource: ResourceWallets, Action: ActionAdjust}.Validate())
	assert.Error(t, Permission{Resource: "courses", Action: ActionRead}.Validate())
	assert.Error(t, Permission{Resource: ResourceWallets, Action: ActionAll}.Validate())
}
