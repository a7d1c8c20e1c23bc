// Copyright 2026 The OpenTrusty Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/opentrusty/rbac-core/id"
	"github.com/opentrusty/rbac-core/role"
)

// RoleRepository implements role.Repository against the rbac_roles,
// rbac_role_permissions and rbac_user_roles tables.
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository.
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create inserts a new tenant-scoped role.
func (r *RoleRepository) Create(ctx context.Context, tenantID, roleID, name string) (*role.Role, error) {
	now := time.Now()
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO rbac_roles (id, tenant_id, name, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`, roleID, tenantID, name, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return &role.Role{ID: roleID, TenantID: tenantID, Name: name, CreatedAt: now, UpdatedAt: now}, nil
}

// GetByID retrieves a role scoped to a tenant.
func (r *RoleRepository) GetByID(ctx context.Context, tenantID, roleID string) (*role.Role, error) {
	var ro role.Role
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, deleted_at, created_at, updated_at
		FROM rbac_roles
		WHERE id = $1 AND tenant_id = $2
	`, roleID, tenantID).Scan(&ro.ID, &ro.TenantID, &ro.Name, &ro.DeletedAt, &ro.CreatedAt, &ro.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, role.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &ro, nil
}

// GetByName retrieves a role by its tenant-unique name.
func (r *RoleRepository) GetByName(ctx context.Context, tenantID, name string) (*role.Role, error) {
	var ro role.Role
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, name, deleted_at, created_at, updated_at
		FROM rbac_roles
		WHERE tenant_id = $1 AND name = $2
	`, tenantID, name).Scan(&ro.ID, &ro.TenantID, &ro.Name, &ro.DeletedAt, &ro.CreatedAt, &ro.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, role.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role by name: %w", err)
	}
	return &ro, nil
}

// List returns every role defined for a tenant, including soft-deleted ones.
func (r *RoleRepository) List(ctx context.Context, tenantID string) ([]*role.Role, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, tenant_id, name, deleted_at, created_at, updated_at
		FROM rbac_roles
		WHERE tenant_id = $1
		ORDER BY name ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*role.Role
	for rows.Next() {
		var ro role.Role
		if err := rows.Scan(&ro.ID, &ro.TenantID, &ro.Name, &ro.DeletedAt, &ro.CreatedAt, &ro.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &ro)
	}
	return roles, rows.Err()
}

// SoftDelete marks a role as deleted without removing its grant history.
func (r *RoleRepository) SoftDelete(ctx context.Context, tenantID, roleID string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE rbac_roles SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND tenant_id = $2 AND deleted_at IS NULL
	`, roleID, tenantID)
	if err != nil {
		return fmt.Errorf("failed to soft delete role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return role.ErrRoleNotFound
	}
	return nil
}

// GrantPermission upserts a RolePermission edge. allowed=false records a
// tombstone that suppresses the permission for this role's holders.
func (r *RoleRepository) GrantPermission(ctx context.Context, roleID, permissionID string, allowed bool) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO rbac_role_permissions (id, role_id, permission_id, allowed, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT (role_id, permission_id) DO UPDATE SET allowed = $4
	`, id.NewUUIDv7(), roleID, permissionID, allowed)
	if err != nil {
		return fmt.Errorf("failed to grant permission: %w", err)
	}
	return nil
}

// RevokePermission removes a RolePermission edge entirely.
func (r *RoleRepository) RevokePermission(ctx context.Context, roleID, permissionID string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM rbac_role_permissions WHERE role_id = $1 AND permission_id = $2
	`, roleID, permissionID)
	if err != nil {
		return fmt.Errorf("failed to revoke permission: %w", err)
	}
	return nil
}

// AssignUser grants a role to a user.
func (r *RoleRepository) AssignUser(ctx context.Context, userID, roleID, grantedBy string) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO rbac_user_roles (id, user_id, role_id, granted_at, granted_by)
		VALUES ($1, $2, $3, NOW(), $4)
		ON CONFLICT (user_id, role_id) DO NOTHING
	`, id.NewUUIDv7(), userID, roleID, nullableUUID(grantedBy))
	if err != nil {
		return fmt.Errorf("failed to assign role: %w", err)
	}
	return nil
}

// UnassignUser revokes a role from a user.
func (r *RoleRepository) UnassignUser(ctx context.Context, userID, roleID string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM rbac_user_roles WHERE user_id = $1 AND role_id = $2
	`, userID, roleID)
	if err != nil {
		return fmt.Errorf("failed to unassign role: %w", err)
	}
	return nil
}

// ListForUser returns the non-deleted roles a user holds in a tenant.
func (r *RoleRepository) ListForUser(ctx context.Context, tenantID, userID string) ([]*role.Role, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT r.id, r.tenant_id, r.name, r.deleted_at, r.created_at, r.updated_at
		FROM rbac_roles r
		JOIN rbac_user_roles ur ON ur.role_id = r.id
		WHERE r.tenant_id = $1 AND ur.user_id = $2 AND r.deleted_at IS NULL
		ORDER BY r.name ASC
	`, tenantID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles for user: %w", err)
	}
	defer rows.Close()

	var roles []*role.Role
	for rows.Next() {
		var ro role.Role
		if err := rows.Scan(&ro.ID, &ro.TenantID, &ro.Name, &ro.DeletedAt, &ro.CreatedAt, &ro.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, &ro)
	}
	return roles, rows.Err()
}

// DeleteByTenantID cascades a tenant deletion to its roles, role
// permissions and user-role assignments.
func (r *RoleRepository) DeleteByTenantID(ctx context.Context, tenantID string) error {
	_, err := r.db.pool.Exec(ctx, `DELETE FROM rbac_roles WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete tenant roles: %w", err)
	}
	return nil
}

func nullableUUID(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
