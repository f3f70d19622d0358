package rbac

import (
	"context"
	"fmt"

	"github.com/elearnhq/elearn/pkg/auth"
	"github.com/elearnhq/elearn/pkg/storage/sqlstore"
)

// PermissionSource supplies grants stored outside the policy file.
type PermissionSource interface {
	PermissionsForRole(ctx context.Context, role auth.Role) ([]Permission, error)
}

// Store reads role grants from the permissions table.
type Store struct {
	conn *sqlstore.ConnectionManager
}

// NewStore creates a new RBAC store
func NewStore(conn *sqlstore.ConnectionManager) *Store {
	return &Store{conn: conn}
}

// PermissionsForRole returns every (resource, action) row granted to role.
func (s *Store) PermissionsForRole(ctx context.Context, role auth.Role) ([]Permission, error) {
	rows, err := s.conn.Replica().QueryContext(ctx,
		`SELECT resource, action FROM permissions WHERE role = $1 ORDER BY resource, action`, string(role))
	if err != nil {
		return nil, fmt.Errorf("failed to query permissions: %w", err)
	}
	defer rows.Close()

	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.Resource, &p.Action); err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}
