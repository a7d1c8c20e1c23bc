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
	"github.com/opentrusty/rbac-core/tenant"
)

// TenantRepository implements tenant.Repository.
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new tenant repository.
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

// Create creates a new tenant.
func (r *TenantRepository) Create(ctx context.Context, t *tenant.Tenant) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO tenants (id, name, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, t.ID, t.Name, t.Status, t.CreatedAt, t.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by ID.
func (r *TenantRepository) GetByID(ctx context.Context, id string) (*tenant.Tenant, error) {
	var t tenant.Tenant

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, status, created_at, updated_at
		FROM tenants
		WHERE id = $1 AND deleted_at IS NULL
	`, id).Scan(&t.ID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return &t, nil
}

// GetByName retrieves a tenant by name.
func (r *TenantRepository) GetByName(ctx context.Context, name string) (*tenant.Tenant, error) {
	var t tenant.Tenant

	err := r.db.pool.QueryRow(ctx, `
		SELECT id, name, status, created_at, updated_at
		FROM tenants
		WHERE name = $1 AND deleted_at IS NULL
	`, name).Scan(&t.ID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt)

	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, tenant.ErrTenantNotFound
		}
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}

	return &t, nil
}

// Update updates a tenant's mutable fields.
func (r *TenantRepository) Update(ctx context.Context, t *tenant.Tenant) error {
	t.UpdatedAt = time.Now()
	result, err := r.db.pool.Exec(ctx, `
		UPDATE tenants SET name = $2, status = $3, updated_at = $4
		WHERE id = $1 AND deleted_at IS NULL
	`, t.ID, t.Name, t.Status, t.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to update tenant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// Delete soft-deletes a tenant.
func (r *TenantRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE tenants SET deleted_at = $2
		WHERE id = $1 AND deleted_at IS NULL
	`, id, time.Now())

	if err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}
	if result.RowsAffected() == 0 {
		return tenant.ErrTenantNotFound
	}
	return nil
}

// List lists tenants, newest first.
func (r *TenantRepository) List(ctx context.Context, limit, offset int) ([]*tenant.Tenant, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, status, created_at, updated_at
		FROM tenants
		WHERE deleted_at IS NULL
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []*tenant.Tenant
	for rows.Next() {
		var t tenant.Tenant
		if err := rows.Scan(&t.ID, &t.Name, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		tenants = append(tenants, &t)
	}
	return tenants, rows.Err()
}

// SubscriptionRepository implements tenant.SubscriptionRepository against
// the tenant_modules table, the subscription edge layers L3/L3a/L3b read.
type SubscriptionRepository struct {
	db *DB
}

// NewSubscriptionRepository creates a new tenant module subscription repository.
func NewSubscriptionRepository(db *DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// Subscribe upserts a tenant's subscription to a (module, submodule?) pair.
func (r *SubscriptionRepository) Subscribe(ctx context.Context, tenantID, moduleCode string, subModuleCode *string, expiresAt *time.Time) (*policy.TenantModule, error) {
	tmID := id.NewUUIDv7()
	now := time.Now()

	err := r.db.pool.QueryRow(ctx, `
		INSERT INTO tenant_modules (id, tenant_id, module_code, submodule_code, enabled, expiration_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, $5, $6, $6)
		ON CONFLICT (tenant_id, module_code, COALESCE(submodule_code, ''))
		DO UPDATE SET expiration_date = $5, updated_at = $6
		RETURNING id
	`, tmID, tenantID, moduleCode, subModuleCode, expiresAt, now).Scan(&tmID)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe tenant module: %w", err)
	}

	return &policy.TenantModule{
		ID:             tmID,
		TenantID:       tenantID,
		ModuleCode:     moduleCode,
		SubModuleCode:  subModuleCode,
		Enabled:        true,
		ExpirationDate: expiresAt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// SetEnabled toggles a tenant module subscription's enabled flag (layer L3a).
func (r *SubscriptionRepository) SetEnabled(ctx context.Context, tenantModuleID string, enabled bool) error {
	result, err := r.db.pool.Exec(ctx, `
		UPDATE tenant_modules SET enabled = $2, updated_at = NOW() WHERE id = $1
	`, tenantModuleID, enabled)
	if err != nil {
		return fmt.Errorf("failed to set tenant module enabled: %w", err)
	}
	if result.RowsAffected() == 0 {
		return policy.ErrModuleNotFound
	}
	return nil
}

// Unsubscribe removes a tenant's subscription to a module/submodule.
func (r *SubscriptionRepository) Unsubscribe(ctx context.Context, tenantModuleID string) error {
	_, err := r.db.pool.Exec(ctx, `DELETE FROM tenant_modules WHERE id = $1`, tenantModuleID)
	if err != nil {
		return fmt.Errorf("failed to unsubscribe tenant module: %w", err)
	}
	return nil
}

// ListForTenant returns every module/submodule subscription a tenant holds.
func (r *SubscriptionRepository) ListForTenant(ctx context.Context, tenantID string) ([]*policy.TenantModule, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, tenant_id, module_code, submodule_code, enabled, expiration_date, created_at, updated_at
		FROM tenant_modules
		WHERE tenant_id = $1
		ORDER BY module_code ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenant modules: %w", err)
	}
	defer rows.Close()

	var subs []*policy.TenantModule
	for rows.Next() {
		var tm policy.TenantModule
		if err := rows.Scan(&tm.ID, &tm.TenantID, &tm.ModuleCode, &tm.SubModuleCode, &tm.Enabled, &tm.ExpirationDate, &tm.CreatedAt, &tm.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tenant module: %w", err)
		}
		subs = append(subs, &tm)
	}
	return subs, rows.Err()
}

// DeleteByTenantID cascades a tenant deletion to its module subscriptions.
func (r *SubscriptionRepository) DeleteByTenantID(ctx context.Context, tenantID string) error {
	_, err := r.db.pool.Exec(ctx, `DELETE FROM tenant_modules WHERE tenant_id = $1`, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete tenant modules: %w", err)
	}
	return nil
}
