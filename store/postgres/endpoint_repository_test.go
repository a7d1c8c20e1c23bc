// Copyright 2026 The OpenTrusty Authors
// SPDX-License-Identifier: MIT

package postgres

import (
	"context"
	"testing"

	"github.com/opentrusty/rbac-core/id"
	"github.com/opentrusty/rbac-core/policy"
	"github.com/opentrusty/rbac-core/tenant"
	"github.com/opentrusty/rbac-core/user"
)

func TestEndpointRepository_CatalogLifecycle(t *testing.T) {
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewEndpointRepository(db)

	ep, created, err := repo.UpsertEndpoint(ctx, "/api/crm/leads/{id}", "CRM", nil)
	if err != nil {
		t.Fatalf("failed to upsert endpoint: %v", err)
	}
	if !created {
		t.Error("expected endpoint to be newly created")
	}

	ep2, created2, err := repo.UpsertEndpoint(ctx, "/api/crm/leads/{id}", "CRM", nil)
	if err != nil {
		t.Fatalf("failed to re-upsert endpoint: %v", err)
	}
	if created2 {
		t.Error("expected second upsert to update, not create")
	}
	if ep2.ID != ep.ID {
		t.Errorf("ep2.ID = %q, want %q", ep2.ID, ep.ID)
	}

	got, err := repo.ResolveEndpoint(ctx, "/api/crm/leads/{id}")
	if err != nil {
		t.Fatalf("failed to resolve endpoint: %v", err)
	}
	if got == nil || got.ID != ep.ID {
		t.Fatalf("ResolveEndpoint = %+v, want %+v", got, ep)
	}

	op, created, err := repo.UpsertOperation(ctx, ep.ID, "GET", "")
	if err != nil {
		t.Fatalf("failed to upsert operation: %v", err)
	}
	if !created {
		t.Error("expected operation to be newly created")
	}
	if !op.Enabled {
		t.Error("expected new operation to default to enabled")
	}

	op2, created2, err := repo.UpsertOperation(ctx, ep.ID, "GET", "ignored")
	if err != nil {
		t.Fatalf("failed to re-upsert operation: %v", err)
	}
	if created2 {
		t.Error("expected second operation upsert to be a no-op")
	}
	if op2.ID != op.ID {
		t.Errorf("op2.ID = %q, want %q", op2.ID, op.ID)
	}

	if err := repo.SetOperationAction(ctx, op.ID, policy.ActionView); err != nil {
		t.Fatalf("failed to set operation action: %v", err)
	}
	if err := repo.SetOperationEnabled(ctx, op.ID, false); err != nil {
		t.Fatalf("failed to disable operation: %v", err)
	}

	found, err := repo.FindOperation(ctx, ep.ID, "GET")
	if err != nil {
		t.Fatalf("failed to find operation: %v", err)
	}
	if found.Enabled {
		t.Error("expected operation to be disabled")
	}
	if found.ActionCode != policy.ActionView {
		t.Errorf("found.ActionCode = %q, want %q", found.ActionCode, policy.ActionView)
	}

	endpoints, err := repo.ListEndpoints(ctx)
	if err != nil {
		t.Fatalf("failed to list endpoints: %v", err)
	}
	if len(endpoints) != 1 {
		t.Errorf("got %d endpoints, want 1", len(endpoints))
	}
}

func TestEndpointRepository_TenantModuleAndOverrides(t *testing.T) {
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	endpoints := NewEndpointRepository(db)
	tenants := NewTenantRepository(db)
	subs := NewSubscriptionRepository(db)

	ten := &tenant.Tenant{ID: id.NewUUIDv7(), Name: "Acme", Status: tenant.StatusActive}
	if err := tenants.Create(ctx, ten); err != nil {
		t.Fatalf("failed to create tenant fixture: %v", err)
	}

	tm, err := subs.Subscribe(ctx, ten.ID, "CRM", nil, nil)
	if err != nil {
		t.Fatalf("failed to subscribe tenant module: %v", err)
	}

	got, err := endpoints.TenantModuleLookup(ctx, ten.ID, "CRM", nil)
	if err != nil {
		t.Fatalf("failed to look up tenant module: %v", err)
	}
	if got == nil || got.ID != tm.ID {
		t.Fatalf("TenantModuleLookup = %+v, want %+v", got, tm)
	}

	missing, err := endpoints.TenantModuleLookup(ctx, ten.ID, "BILLING", nil)
	if err != nil {
		t.Fatalf("unexpected error on missing lookup: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unsubscribed module, got %+v", missing)
	}

	ep, _, err := endpoints.UpsertEndpoint(ctx, "/api/crm/leads", "CRM", nil)
	if err != nil {
		t.Fatalf("failed to upsert endpoint: %v", err)
	}
	op, _, err := endpoints.UpsertOperation(ctx, ep.ID, "DELETE", policy.ActionDelete)
	if err != nil {
		t.Fatalf("failed to upsert operation: %v", err)
	}

	disabled, err := endpoints.TenantOverrideDisabled(ctx, ten.ID, op.ID)
	if err != nil {
		t.Fatalf("failed to check tenant override: %v", err)
	}
	if disabled {
		t.Error("expected no override to mean not disabled")
	}

	_, err = db.pool.Exec(ctx, `
		INSERT INTO tenant_api_overrides (id, tenant_id, api_operation_id, enabled, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, NOW(), NOW())
	`, id.NewUUIDv7(), ten.ID, op.ID)
	if err != nil {
		t.Fatalf("failed to insert override fixture: %v", err)
	}

	disabled, err = endpoints.TenantOverrideDisabled(ctx, ten.ID, op.ID)
	if err != nil {
		t.Fatalf("failed to check tenant override after insert: %v", err)
	}
	if !disabled {
		t.Error("expected override to report disabled")
	}

	userID := id.NewUUIDv7()
	if err := NewUserRepository(db).Create(ctx, &user.User{ID: userID}); err != nil {
		t.Fatalf("failed to create user fixture: %v", err)
	}
	blocked, err := endpoints.UserBlocked(ctx, ten.ID, userID, op.ID)
	if err != nil {
		t.Fatalf("failed to check user block: %v", err)
	}
	if blocked {
		t.Error("expected no block to mean not blocked")
	}

	_, err = db.pool.Exec(ctx, `
		INSERT INTO user_api_blocks (id, tenant_id, user_id, api_operation_id, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, id.NewUUIDv7(), ten.ID, userID, op.ID)
	if err != nil {
		t.Fatalf("failed to insert block fixture: %v", err)
	}

	blocked, err = endpoints.UserBlocked(ctx, ten.ID, userID, op.ID)
	if err != nil {
		t.Fatalf("failed to check user block after insert: %v", err)
	}
	if !blocked {
		t.Error("expected block to report blocked")
	}
}

// TestEndpointRepository_UserPermissionTuples_Tombstone verifies that an
// allowed=false RolePermission on any of a user's roles suppresses the
// permission tuple entirely, even when another of their roles grants it.
func TestEndpointRepository_UserPermissionTuples_Tombstone(t *testing.T) {
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	endpoints := NewEndpointRepository(db)
	tenants := NewTenantRepository(db)
	subs := NewSubscriptionRepository(db)
	roles := NewRoleRepository(db)

	ten := &tenant.Tenant{ID: id.NewUUIDv7(), Name: "Acme", Status: tenant.StatusActive}
	if err := tenants.Create(ctx, ten); err != nil {
		t.Fatalf("failed to create tenant fixture: %v", err)
	}

	tm, err := subs.Subscribe(ctx, ten.ID, "CRM", nil, nil)
	if err != nil {
		t.Fatalf("failed to subscribe tenant module: %v", err)
	}

	var permID string
	err = db.pool.QueryRow(ctx, `
		INSERT INTO permissions (id, tenant_id, tenant_module_id, action_code, created_at)
		VALUES ($1, $2, $3, $4, NOW()) RETURNING id
	`, id.NewUUIDv7(), ten.ID, tm.ID, policy.ActionUpdate).Scan(&permID)
	if err != nil {
		t.Fatalf("failed to insert permission fixture: %v", err)
	}

	grantingRoleID := id.NewUUIDv7()
	if _, err := roles.Create(ctx, ten.ID, grantingRoleID, "granter"); err != nil {
		t.Fatalf("failed to create granting role: %v", err)
	}
	denyingRoleID := id.NewUUIDv7()
	if _, err := roles.Create(ctx, ten.ID, denyingRoleID, "denier"); err != nil {
		t.Fatalf("failed to create denying role: %v", err)
	}

	if err := roles.GrantPermission(ctx, grantingRoleID, permID, true); err != nil {
		t.Fatalf("failed to grant permission: %v", err)
	}

	userID := id.NewUUIDv7()
	if err := NewUserRepository(db).Create(ctx, &user.User{ID: userID}); err != nil {
		t.Fatalf("failed to create user fixture: %v", err)
	}
	if err := roles.AssignUser(ctx, userID, grantingRoleID, ""); err != nil {
		t.Fatalf("failed to assign granting role: %v", err)
	}

	tuples, err := endpoints.UserPermissionTuples(ctx, ten.ID, userID)
	if err != nil {
		t.Fatalf("failed to resolve permission tuples: %v", err)
	}
	if len(tuples) != 1 {
		t.Fatalf("got %d tuples, want 1 before tombstone", len(tuples))
	}
	if tuples[0].ModuleCode != "CRM" || tuples[0].ActionCode != policy.ActionUpdate {
		t.Errorf("unexpected tuple: %+v", tuples[0])
	}

	if err := roles.GrantPermission(ctx, denyingRoleID, permID, false); err != nil {
		t.Fatalf("failed to create tombstone: %v", err)
	}
	if err := roles.AssignUser(ctx, userID, denyingRoleID, ""); err != nil {
		t.Fatalf("failed to assign denying role: %v", err)
	}

	tuples, err = endpoints.UserPermissionTuples(ctx, ten.ID, userID)
	if err != nil {
		t.Fatalf("failed to resolve permission tuples after tombstone: %v", err)
	}
	if len(tuples) != 0 {
		t.Errorf("got %d tuples, want 0 after tombstone suppresses the grant: %+v", len(tuples), tuples)
	}
}

func TestEndpointRepository_ResolveEndpoint_NotFound(t *testing.T) {
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewEndpointRepository(db)

	got, err := repo.ResolveEndpoint(ctx, "/does/not/exist")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestEndpointRepository_OverrideAndBlockLifecycle(t *testing.T) {
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	endpoints := NewEndpointRepository(db)
	tenants := NewTenantRepository(db)

	ten := &tenant.Tenant{ID: id.NewUUIDv7(), Name: "Acme", Status: tenant.StatusActive}
	if err := tenants.Create(ctx, ten); err != nil {
		t.Fatalf("failed to create tenant fixture: %v", err)
	}

	ep, _, err := endpoints.UpsertEndpoint(ctx, "/api/crm/leads", "CRM", nil)
	if err != nil {
		t.Fatalf("failed to upsert endpoint: %v", err)
	}
	op, _, err := endpoints.UpsertOperation(ctx, ep.ID, "DELETE", policy.ActionDelete)
	if err != nil {
		t.Fatalf("failed to upsert operation: %v", err)
	}

	override, err := endpoints.SetTenantOverride(ctx, ten.ID, op.ID, false)
	if err != nil {
		t.Fatalf("failed to set tenant override: %v", err)
	}
	if override.Enabled {
		t.Error("expected override.Enabled = false")
	}

	disabled, err := endpoints.TenantOverrideDisabled(ctx, ten.ID, op.ID)
	if err != nil {
		t.Fatalf("failed to check tenant override: %v", err)
	}
	if !disabled {
		t.Error("expected override to report disabled after SetTenantOverride(false)")
	}

	override, err = endpoints.SetTenantOverride(ctx, ten.ID, op.ID, true)
	if err != nil {
		t.Fatalf("failed to re-set tenant override: %v", err)
	}
	if !override.Enabled {
		t.Error("expected SetTenantOverride to update the existing row, not create a second one")
	}

	if err := endpoints.ClearTenantOverride(ctx, ten.ID, op.ID); err != nil {
		t.Fatalf("failed to clear tenant override: %v", err)
	}
	disabled, err = endpoints.TenantOverrideDisabled(ctx, ten.ID, op.ID)
	if err != nil {
		t.Fatalf("failed to check tenant override after clear: %v", err)
	}
	if disabled {
		t.Error("expected no override after clear")
	}

	userID := id.NewUUIDv7()
	if err := NewUserRepository(db).Create(ctx, &user.User{ID: userID}); err != nil {
		t.Fatalf("failed to create user fixture: %v", err)
	}
	block, err := endpoints.BlockUser(ctx, ten.ID, userID, op.ID, "abuse")
	if err != nil {
		t.Fatalf("failed to block user: %v", err)
	}
	if block.Reason != "abuse" {
		t.Errorf("block.Reason = %q, want abuse", block.Reason)
	}

	blocked, err := endpoints.UserBlocked(ctx, ten.ID, userID, op.ID)
	if err != nil {
		t.Fatalf("failed to check user block: %v", err)
	}
	if !blocked {
		t.Error("expected block to report blocked")
	}

	if err := endpoints.UnblockUser(ctx, ten.ID, userID, op.ID); err != nil {
		t.Fatalf("failed to unblock user: %v", err)
	}
	blocked, err = endpoints.UserBlocked(ctx, ten.ID, userID, op.ID)
	if err != nil {
		t.Fatalf("failed to check user block after unblock: %v", err)
	}
	if blocked {
		t.Error("expected no block after unblock")
	}
}

func TestEndpointRepository_SetOperationEnabled_NotFound(t *testing.T) {
	db, cleanup := SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	repo := NewEndpointRepository(db)

	err := repo.SetOperationEnabled(ctx, id.NewUUIDv7(), false)
	if err != policy.ErrOperationNotFound {
		t.Errorf("err = %v, want %v", err, policy.ErrOperationNotFound)
	}
}
