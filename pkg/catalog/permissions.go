package catalog

import (
	"context"
	"time"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/rbac"
	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

// PermissionGrant is one stored (role, resource, action) row. Grants add to
// the policy file; they never remove access.
type PermissionGrant struct {
	ID        string        `json:"id"`
	Role      auth.Role     `json:"role"`
	Resource  rbac.Resource `json:"resource"`
	Action    rbac.Action   `json:"action"`
	CreatedAt time.Time     `json:"createdAt"`
}

// CreatePermission is the input for Permissions.Create.
type CreatePermission struct {
	Role     auth.Role     `json:"role"`
	Resource rbac.Resource `json:"resource"`
	Action   rbac.Action   `json:"action"`
}

// Validate rejects unknown roles, resources and actions.
func (in CreatePermission) Validate() error {
	if !in.Role.Valid() {
		return invalid("unknown role %q", in.Role)
	}
	if err := (rbac.Permission{Resource: in.Resource, Action: in.Action}).Validate(); err != nil {
		return invalid("%s", err.Error())
	}
	return nil
}

// UpdatePermission changes the non-nil fields.
type UpdatePermission struct {
	Role     *auth.Role     `json:"role"`
	Resource *rbac.Resource `json:"resource"`
	Action   *rbac.Action   `json:"action"`
}

// Validate rejects unknown values.
func (in UpdatePermission) Validate() error {
	if in.Role != nil && !in.Role.Valid() {
		return invalid("unknown role %q", *in.Role)
	}
	if in.Resource != nil && !in.Resource.Valid() {
		return invalid("unknown resource %q", *in.Resource)
	}
	if in.Action != nil && (!in.Action.Valid() || *in.Action == rbac.ActionAll) {
		return invalid("unknown action %q", *in.Action)
	}
	return nil
}

const permissionColumns = `id, role, resource, action, created_at`

func scanPermission(row scanner) (*PermissionGrant, error) {
	var p PermissionGrant
	if err := row.Scan(&p.ID, &p.Role, &p.Resource, &p.Action, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// Permissions manages the permissions table and keeps the RBAC cache in step
// with it.
type Permissions struct {
	*store
	cache RoleCache
}

func (p *Permissions) invalidate(roles ...auth.Role) {
	if p.cache == nil {
		return
	}
	for _, r := range roles {
		p.cache.InvalidateRole(r)
	}
}

// Create inserts a grant. A duplicate grant is ErrConflict.
func (p *Permissions) Create(ctx context.Context, in CreatePermission) (*PermissionGrant, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	grant, err := one(ctx, p.store, "permissions", "Create", `
		INSERT INTO permissions (`+permissionColumns+`)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+permissionColumns,
		[]interface{}{p.newID(), string(in.Role), string(in.Resource), string(in.Action), p.now()},
		scanPermission)
	if err != nil {
		return nil, err
	}
	p.invalidate(grant.Role)
	return grant, nil
}

// Get loads a grant by id.
func (p *Permissions) Get(ctx context.Context, id string) (*PermissionGrant, error) {
	return one(ctx, p.store, "permissions", "Get",
		`SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, []interface{}{id}, scanPermission)
}

// List returns grants ordered by role, resource and action. ParentID filters
// by role.
func (p *Permissions) List(ctx context.Context, lp ListParams) ([]*PermissionGrant, error) {
	f := &filter{}
	f.eq("role", lp.ParentID)
	return list(ctx, p.store, "permissions", permissionColumns, "role, resource, action", f, lp, scanPermission)
}

// Update applies the non-nil fields of in. The grant may move to another
// role, so every role's cache entry is dropped.
func (p *Permissions) Update(ctx context.Context, id string, in UpdatePermission) (*PermissionGrant, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	var role, resource, action *string
	if in.Role != nil {
		role = strPtr(string(*in.Role))
	}
	if in.Resource != nil {
		resource = strPtr(string(*in.Resource))
	}
	if in.Action != nil {
		action = strPtr(string(*in.Action))
	}
	grant, err := one(ctx, p.store, "permissions", "Update", `
		UPDATE permissions
		SET role = COALESCE($1, role),
			resource = COALESCE($2, resource),
			action = COALESCE($3, action)
		WHERE id = $4
		RETURNING `+permissionColumns,
		[]interface{}{sqlstore.NullString(role), sqlstore.NullString(resource), sqlstore.NullString(action), id},
		scanPermission)
	if err != nil {
		return nil, err
	}
	p.invalidate(auth.RoleLearner, auth.RoleInstructor, auth.RoleAdmin)
	return grant, nil
}

// Delete removes a grant.
func (p *Permissions) Delete(ctx context.Context, id string) (err error) {
	ctx, done := p.track(ctx, "permissions", "Delete")
	defer done(&err)

	var role string
	err = p.conn.Primary().QueryRowContext(ctx,
		`DELETE FROM permissions WHERE id = $1 RETURNING role`, id).Scan(&role)
	if err != nil {
		return classify(err, "delete from permissions")
	}
	p.invalidate(auth.Role(role))
	return nil
}

func strPtr(s string) *string {
	return &s
}
