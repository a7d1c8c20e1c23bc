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
	"github.com/opentrusty/rbac-core/policy"
)

// EndpointRepository implements endpoint.Repository (which embeds
// policy.Store): the catalog C6 writes through, and the resolver (C2)
// and decision engine (C3) read through on the hot request path.
type EndpointRepository struct {
	db *DB
}

// NewEndpointRepository creates a new endpoint catalog repository.
func NewEndpointRepository(db *DB) *EndpointRepository {
	return &EndpointRepository{db: db}
}

// ResolveEndpoint returns the ApiEndpoint whose canonical path exactly matches.
func (r *EndpointRepository) ResolveEndpoint(ctx context.Context, path string) (*policy.ApiEndpoint, error) {
	var ep policy.ApiEndpoint
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, path, module_code, submodule_code, created_at, updated_at
		FROM api_endpoints WHERE path = $1
	`, path).Scan(&ep.ID, &ep.Path, &ep.ModuleCode, &ep.SubModuleCode, &ep.CreatedAt, &ep.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to resolve endpoint: %w", err)
	}
	return &ep, nil
}

// ListEndpoints returns every registered endpoint.
func (r *EndpointRepository) ListEndpoints(ctx context.Context) ([]*policy.ApiEndpoint, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, path, module_code, submodule_code, created_at, updated_at FROM api_endpoints
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []*policy.ApiEndpoint
	for rows.Next() {
		var ep policy.ApiEndpoint
		if err := rows.Scan(&ep.ID, &ep.Path, &ep.ModuleCode, &ep.SubModuleCode, &ep.CreatedAt, &ep.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan endpoint: %w", err)
		}
		endpoints = append(endpoints, &ep)
	}
	return endpoints, rows.Err()
}

// FindOperation returns the operation for (endpoint, method), or nil.
func (r *EndpointRepository) FindOperation(ctx context.Context, endpointID, httpMethod string) (*policy.ApiOperation, error) {
	var op policy.ApiOperation
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, endpoint_id, http_method, action_code, enabled, created_at, updated_at
		FROM api_operations WHERE endpoint_id = $1 AND http_method = $2
	`, endpointID, httpMethod).Scan(&op.ID, &op.EndpointID, &op.HTTPMethod, &op.ActionCode, &op.Enabled, &op.CreatedAt, &op.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find operation: %w", err)
	}
	return &op, nil
}

// TenantModuleLookup returns the subscription for (tenant, module, submodule).
func (r *EndpointRepository) TenantModuleLookup(ctx context.Context, tenantID, moduleCode string, subModuleCode *string) (*policy.TenantModule, error) {
	var tm policy.TenantModule
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, tenant_id, module_code, submodule_code, enabled, expiration_date, created_at, updated_at
		FROM tenant_modules
		WHERE tenant_id = $1 AND module_code = $2 AND COALESCE(submodule_code, '') = COALESCE($3, '')
		AND EXISTS (SELECT 1 FROM tenants t WHERE t.id = tenant_modules.tenant_id AND t.status = 'active')
	`, tenantID, moduleCode, subModuleCode).Scan(&tm.ID, &tm.TenantID, &tm.ModuleCode, &tm.SubModuleCode, &tm.Enabled, &tm.ExpirationDate, &tm.CreatedAt, &tm.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up tenant module: %w", err)
	}
	return &tm, nil
}

// TenantOverrideDisabled reports whether a disabling TenantApiOverride exists.
func (r *EndpointRepository) TenantOverrideDisabled(ctx context.Context, tenantID, apiOperationID string) (bool, error) {
	var disabled bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT NOT enabled FROM tenant_api_overrides WHERE tenant_id = $1 AND api_operation_id = $2
	`, tenantID, apiOperationID).Scan(&disabled)
	if err != nil {
		if err == pgx.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("failed to check tenant override: %w", err)
	}
	return disabled, nil
}

// UserBlocked reports whether a UserApiBlock row exists.
func (r *EndpointRepository) UserBlocked(ctx context.Context, tenantID, userID, apiOperationID string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM user_api_blocks
			WHERE tenant_id = $1 AND user_id = $2 AND api_operation_id = $3
		)
	`, tenantID, userID, apiOperationID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user block: %w", err)
	}
	return exists, nil
}

// UserPermissionTuples returns the denormalized permission set the user
// holds through any non-deleted role, honoring RolePermission tombstones:
// an allowed=false row from any of the user's roles suppresses that
// permission entirely, even when another of their roles grants it.
func (r *EndpointRepository) UserPermissionTuples(ctx context.Context, tenantID, userID string) ([]policy.PermissionTuple, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT DISTINCT tm.module_code, tm.submodule_code, p.action_code
		FROM rbac_user_roles ur
		JOIN users u ON u.id = ur.user_id AND u.deleted_at IS NULL
		JOIN rbac_roles r ON r.id = ur.role_id AND r.deleted_at IS NULL
		JOIN rbac_role_permissions rp ON rp.role_id = r.id AND rp.allowed = TRUE
		JOIN permissions p ON p.id = rp.permission_id
		JOIN tenant_modules tm ON tm.id = p.tenant_module_id
		WHERE ur.user_id = $1 AND p.tenant_id = $2
		AND NOT EXISTS (
			SELECT 1
			FROM rbac_user_roles ur2
			JOIN rbac_roles r2 ON r2.id = ur2.role_id AND r2.deleted_at IS NULL
			JOIN rbac_role_permissions rp2 ON rp2.role_id = r2.id AND rp2.allowed = FALSE
			WHERE ur2.user_id = ur.user_id AND rp2.permission_id = p.id
		)
	`, userID, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user permission tuples: %w", err)
	}
	defer rows.Close()

	var tuples []policy.PermissionTuple
	for rows.Next() {
		var t policy.PermissionTuple
		if err := rows.Scan(&t.ModuleCode, &t.SubModuleCode, &t.ActionCode); err != nil {
			return nil, fmt.Errorf("failed to scan permission tuple: %w", err)
		}
		tuples = append(tuples, t)
	}
	return tuples, rows.Err()
}

// UpsertEndpoint creates the endpoint by path if absent, or updates its
// module/submodule if they changed.
func (r *EndpointRepository) UpsertEndpoint(ctx context.Context, path, moduleCode string, subModuleCode *string) (*policy.ApiEndpoint, bool, error) {
	existing, err := r.ResolveEndpoint(ctx, path)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		sameSub := (existing.SubModuleCode == nil && subModuleCode == nil) ||
			(existing.SubModuleCode != nil && subModuleCode != nil && *existing.SubModuleCode == *subModuleCode)
		if existing.ModuleCode == moduleCode && sameSub {
			return existing, false, nil
		}
		_, err := r.db.pool.Exec(ctx, `
			UPDATE api_endpoints SET module_code = $2, submodule_code = $3, updated_at = NOW()
			WHERE id = $1
		`, existing.ID, moduleCode, subModuleCode)
		if err != nil {
			return nil, false, fmt.Errorf("failed to update endpoint: %w", err)
		}
		existing.ModuleCode = moduleCode
		existing.SubModuleCode = subModuleCode
		return existing, false, nil
	}

	now := time.Now()
	epID := id.NewUUIDv7()
	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO api_endpoints (id, path, module_code, submodule_code, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
	`, epID, path, moduleCode, subModuleCode, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create endpoint: %w", err)
	}
	return &policy.ApiEndpoint{ID: epID, Path: path, ModuleCode: moduleCode, SubModuleCode: subModuleCode, CreatedAt: now, UpdatedAt: now}, true, nil
}

// UpsertOperation creates the operation by (endpoint, method) if absent,
// leaving existing enabled/action_code values intact on an update.
func (r *EndpointRepository) UpsertOperation(ctx context.Context, endpointID, httpMethod, defaultActionCode string) (*policy.ApiOperation, bool, error) {
	existing, err := r.FindOperation(ctx, endpointID, httpMethod)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}

	now := time.Now()
	opID := id.NewUUIDv7()
	_, err = r.db.pool.Exec(ctx, `
		INSERT INTO api_operations (id, endpoint_id, http_method, action_code, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $5)
	`, opID, endpointID, httpMethod, defaultActionCode, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create operation: %w", err)
	}
	return &policy.ApiOperation{ID: opID, EndpointID: endpointID, HTTPMethod: httpMethod, ActionCode: defaultActionCode, Enabled: true, CreatedAt: now, UpdatedAt: now}, true, nil
}

// SetOperationEnabled toggles an operation's global enabled flag (layer L2).
func (r *EndpointRepository) SetOperationEnabled(ctx context.Context, operationID string, enabled bool) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE api_operations SET enabled = $2, updated_at = NOW() WHERE id = $1
	`, operationID, enabled)
	if err != nil {
		return fmt.Errorf("failed to set operation enabled: %w", err)
	}
	if result.RowsAffected() == 0 {
		return policy.ErrOperationNotFound
	}
	return nil
}

// SetTenantOverride creates or updates the TenantApiOverride row for
// (tenant, operation).
func (r *EndpointRepository) SetTenantOverride(ctx context.Context, tenantID, apiOperationID string, enabled bool) (*policy.TenantApiOverride, error) {
	now := time.Now()
	var override policy.TenantApiOverride
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO tenant_api_overrides (id, tenant_id, api_operation_id, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (tenant_id, api_operation_id)
		DO UPDATE SET enabled = $4, updated_at = $5
		RETURNING id, tenant_id, api_operation_id, enabled, created_at, updated_at
	`, id.NewUUIDv7(), tenantID, apiOperationID, enabled, now).Scan(
		&override.ID, &override.TenantID, &override.ApiOperationID, &override.Enabled, &override.CreatedAt, &override.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to set tenant override: %w", err)
	}
	return &override, nil
}

// ClearTenantOverride removes the TenantApiOverride row for (tenant, operation).
func (r *EndpointRepository) ClearTenantOverride(ctx context.Context, tenantID, apiOperationID string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM tenant_api_overrides WHERE tenant_id = $1 AND api_operation_id = $2
	`, tenantID, apiOperationID)
	if err != nil {
		return fmt.Errorf("failed to clear tenant override: %w", err)
	}
	return nil
}

// BlockUser creates a UserApiBlock row, denying the user the operation
// regardless of any role grant (layer L5).
func (r *EndpointRepository) BlockUser(ctx context.Context, tenantID, userID, apiOperationID, reason string) (*policy.UserApiBlock, error) {
	var block policy.UserApiBlock
	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO user_api_blocks (id, tenant_id, user_id, api_operation_id, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, user_id, api_operation_id) DO UPDATE SET reason = $5
		RETURNING id, tenant_id, user_id, api_operation_id, reason, created_at
	`, id.NewUUIDv7(), tenantID, userID, apiOperationID, reason, time.Now()).Scan(
		&block.ID, &block.TenantID, &block.UserID, &block.ApiOperationID, &block.Reason, &block.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to block user: %w", err)
	}
	return &block, nil
}

// UnblockUser removes the UserApiBlock row for (tenant, user, operation), if any.
func (r *EndpointRepository) UnblockUser(ctx context.Context, tenantID, userID, apiOperationID string) error {
	_, err := r.db.pool.Exec(ctx, `
		DELETE FROM user_api_blocks WHERE tenant_id = $1 AND user_id = $2 AND api_operation_id = $3
	`, tenantID, userID, apiOperationID)
	if err != nil {
		return fmt.Errorf("failed to unblock user: %w", err)
	}
	return nil
}

// SetOperationAction sets the explicit action code required by an operation.
func (r *EndpointRepository) SetOperationAction(ctx context.Context, operationID, actionCode string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE api_operations SET action_code = $2, updated_at = NOW() WHERE id = $1
	`, operationID, actionCode)
	if err != nil {
		return fmt.Errorf("failed to set operation action: %w", err)
	}
	if result.RowsAffected() == 0 {
		return policy.ErrOperationNotFound
	}
	return nil
}
