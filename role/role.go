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

// Package role models the tenant-scoped bundles of permissions that
// users are assigned, and the negative-grant (tombstone) mechanism that
// lets one role suppress a permission another role on the same user
// would otherwise grant.
package role

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrRoleNotFound      = errors.New("role not found")
	ErrRoleAlreadyExists = errors.New("role already exists")
	ErrRoleSoftDeleted   = errors.New("role is soft-deleted")
)

// Role is a named bundle of permissions, scoped to a tenant.
//
// Purpose: Grantable unit assigned to users via UserRole.
// Domain: Authz
// Invariants: unique on (tenant_id, name). Soft-deleted roles are excluded
// from permission resolution (see policy.Store.UserPermissionTuples).
type Role struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	Name      string     `json:"name"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Deleted reports whether the role has been soft-deleted.
func (r *Role) Deleted() bool {
	return r.DeletedAt != nil
}

// RolePermission is a grant edge between a Role and a Permission.
//
// Purpose: Associates a role with the permissions it bundles.
// Domain: Authz
// Invariants: unique on (role_id, permission_id). Allowed=false is a
// tombstone: it removes an otherwise-granted permission rather than
// granting one, so that a lower-priority role cannot re-introduce a
// permission an administrator explicitly revoked from a specific role.
type RolePermission struct {
	ID           string    `json:"id"`
	RoleID       string    `json:"role_id"`
	PermissionID string    `json:"permission_id"`
	Allowed      bool      `json:"allowed"`
	CreatedAt    time.Time `json:"created_at"`
}

// UserRole assigns a Role to a User.
//
// Purpose: Grant edge between a principal and a role bundle.
// Domain: Authz
// Invariants: unique on (user_id, role_id).
type UserRole struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	RoleID    string    `json:"role_id"`
	GrantedAt time.Time `json:"granted_at"`
	GrantedBy string    `json:"granted_by"`
}

// Repository defines the interface for role persistence.
//
// Purpose: Abstraction for managing role definition storage.
// Domain: Authz
type Repository interface {
	Create(ctx context.Context, tenantID, roleID, name string) (*Role, error)
	GetByID(ctx context.Context, tenantID, id string) (*Role, error)
	GetByName(ctx context.Context, tenantID, name string) (*Role, error)
	List(ctx context.Context, tenantID string) ([]*Role, error)
	SoftDelete(ctx context.Context, tenantID, id string) error

	// GrantPermission upserts a RolePermission edge (allowed true grants,
	// allowed false tombstones).
	GrantPermission(ctx context.Context, roleID, permissionID string, allowed bool) error
	RevokePermission(ctx context.Context, roleID, permissionID string) error

	// AssignUser / UnassignUser manage the UserRole edge.
	AssignUser(ctx context.Context, userID, roleID, grantedBy string) error
	UnassignUser(ctx context.Context, userID, roleID string) error
	ListForUser(ctx context.Context, tenantID, userID string) ([]*Role, error)

	// DeleteByTenantID cascades a tenant deletion to its roles, role
	// permissions, and user-role assignments.
	DeleteByTenantID(ctx context.Context, tenantID string) error
}
