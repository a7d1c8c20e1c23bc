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

// Package policy holds the core RBAC data model shared by the resolver,
// decision engine, and catalog synchronizer, and the read-only Store
// contract the decision engine evaluates against.
package policy

import (
	"context"
	"errors"
	"time"
)

// Domain errors
var (
	ErrModuleNotFound    = errors.New("module not found")
	ErrEndpointNotFound  = errors.New("endpoint not found")
	ErrOperationNotFound = errors.New("operation not found")
	ErrEndpointExists    = errors.New("endpoint already exists")
	ErrOperationExists   = errors.New("operation already exists")
	ErrInvalidPath       = errors.New("invalid endpoint path")
)

// Module represents a coarse functional area such as CRM.
//
// Purpose: Top level of the two-level functional taxonomy.
// Domain: Policy
// Invariants: Code is a stable short string and is the primary key.
type Module struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

// SystemModule is the sentinel module assigned to endpoints the
// catalog synchronizer cannot attribute to a declared module.
const SystemModule = "SYSTEM"

// SubModule represents a finer area within one or more modules.
//
// Purpose: Second level of the functional taxonomy, shareable across modules.
// Domain: Policy
type SubModule struct {
	Code        string `json:"code"`
	DisplayName string `json:"display_name"`
}

// ModuleSubModuleMapping is a (module, submodule) pairing. A submodule
// may belong to more than one module; this relation records which.
type ModuleSubModuleMapping struct {
	ModuleCode    string `json:"module_code"`
	SubModuleCode string `json:"submodule_code"`
}

// TenantModule is the subscription edge: a tenant's access to a
// (module, submodule?) pair, optionally time-bounded.
//
// Purpose: Governs layers L3/L3a/L3b of the decision engine.
// Domain: Policy
// Invariants: unique on (tenant_id, module_code, submodule_code) where a
// NULL submodule_code is treated as a distinct key from any non-NULL one.
type TenantModule struct {
	ID             string     `json:"id"`
	TenantID       string     `json:"tenant_id"`
	ModuleCode     string     `json:"module_code"`
	SubModuleCode  *string    `json:"submodule_code,omitempty"`
	Enabled        bool       `json:"enabled"`
	ExpirationDate *time.Time `json:"expiration_date,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Expired reports whether the subscription's expiration date has passed.
// An expiration date equal to today is NOT expired (spec boundary: L3b
// passes when expiration_date == today).
func (m *TenantModule) Expired(asOf time.Time) bool {
	if m.ExpirationDate == nil {
		return false
	}
	today := truncateToDay(asOf)
	expiry := truncateToDay(*m.ExpirationDate)
	return expiry.Before(today)
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Permission is a grantable unit scoped to one tenant subscription:
// (tenant, tenant_module, action).
//
// Purpose: The atomic grant a Role bundles via RolePermission.
// Domain: Policy
// Invariants: unique on (tenant_id, tenant_module_id, action_code).
type Permission struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	TenantModuleID string    `json:"tenant_module_id"`
	ActionCode     string    `json:"action_code"`
	CreatedAt      time.Time `json:"created_at"`
}

// ApiEndpoint is a normalized URL template with its owning module/submodule.
//
// Purpose: Maps a URL shape to the functional area it belongs to.
// Domain: Policy
// Invariants: unique on Path. Path is the canonical form (see resolver).
type ApiEndpoint struct {
	ID            string    `json:"id"`
	Path          string    `json:"path"`
	ModuleCode    string    `json:"module_code"`
	SubModuleCode *string   `json:"submodule_code,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ApiOperation is (endpoint, http_method) with the action required to invoke it.
//
// Purpose: The unit the decision engine resolves a request to.
// Domain: Policy
// Invariants: unique on (endpoint_id, http_method).
type ApiOperation struct {
	ID         string    `json:"id"`
	EndpointID string    `json:"endpoint_id"`
	HTTPMethod string    `json:"http_method"`
	ActionCode string    `json:"action_code,omitempty"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ResolvedAction returns the operation's explicit action code, or the
// HTTP-method default from spec.md §4.3/§6 when none was set. Returns
// ("", false) when the method has no declared action and no default
// exists (layer L6 failure).
func (op *ApiOperation) ResolvedAction() (string, bool) {
	if op.ActionCode != "" {
		return op.ActionCode, true
	}
	return DefaultActionForMethod(op.HTTPMethod)
}

// DefaultActionForMethod maps an HTTP method to its default action code.
func DefaultActionForMethod(method string) (string, bool) {
	switch method {
	case "GET":
		return ActionView, true
	case "POST":
		return ActionCreate, true
	case "PUT", "PATCH":
		return ActionUpdate, true
	case "DELETE":
		return ActionDelete, true
	default:
		return "", false
	}
}

// TenantApiOverride disables (or re-enables) one operation for one tenant,
// independent of role grants.
//
// Purpose: Tenant-level kill switch, governs layer L4.
// Domain: Policy
// Invariants: unique on (tenant_id, api_operation_id).
type TenantApiOverride struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	ApiOperationID string    `json:"api_operation_id"`
	Enabled        bool      `json:"enabled"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// UserApiBlock is a hard per-user deny of one operation.
//
// Purpose: Highest-priority deny, governs layer L5.
// Domain: Policy
type UserApiBlock struct {
	ID             string    `json:"id"`
	TenantID       string    `json:"tenant_id"`
	UserID         string    `json:"user_id"`
	ApiOperationID string    `json:"api_operation_id"`
	Reason         string    `json:"reason,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// PermissionTuple is the denormalized (module, submodule?, action) shape
// the decision engine's layer L7 checks against. A nil SubModuleCode
// represents a module-wide grant ("⊥" in spec.md's notation) that covers
// every submodule of the module.
type PermissionTuple struct {
	ModuleCode    string
	SubModuleCode *string
	ActionCode    string
}

// CoversSubModule reports whether this tuple authorizes the given
// (module, submodule) pair, applying the module-wide shortcut from
// spec.md §4.3's rationale.
func (t PermissionTuple) CoversSubModule(moduleCode string, subModuleCode *string) bool {
	if t.ModuleCode != moduleCode {
		return false
	}
	if t.SubModuleCode == nil {
		return true // module-wide grant covers every submodule
	}
	return subModuleCode != nil && *t.SubModuleCode == *subModuleCode
}

// Store is the tenant-scoped, read-only query surface the decision
// engine and resolver evaluate against. Every method is scoped to the
// tenant/endpoint/user passed in; implementations must never return
// rows belonging to another tenant.
//
// Purpose: Abstraction over persisted policy data for the hot request path.
// Domain: Policy
type Store interface {
	// ResolveEndpoint returns the ApiEndpoint whose canonical path exactly
	// matches, or nil if none does. Parameterized matching is the
	// resolver's job, layered on top of this exact lookup.
	ResolveEndpoint(ctx context.Context, path string) (*ApiEndpoint, error)

	// ListEndpoints returns every registered endpoint, for the resolver's
	// parameterized-pattern fallback and for the catalog synchronizer.
	ListEndpoints(ctx context.Context) ([]*ApiEndpoint, error)

	// FindOperation returns the operation for (endpoint, method), or nil.
	FindOperation(ctx context.Context, endpointID, httpMethod string) (*ApiOperation, error)

	// TenantModuleLookup returns the subscription for (tenant, module,
	// submodule), or nil if the tenant has none. subModuleCode == nil
	// looks up the module-level subscription row.
	TenantModuleLookup(ctx context.Context, tenantID, moduleCode string, subModuleCode *string) (*TenantModule, error)

	// TenantOverrideDisabled reports whether a TenantApiOverride with
	// enabled=false exists for (tenant, operation).
	TenantOverrideDisabled(ctx context.Context, tenantID, apiOperationID string) (bool, error)

	// UserBlocked reports whether a UserApiBlock row exists for
	// (tenant, user, operation).
	UserBlocked(ctx context.Context, tenantID, userID, apiOperationID string) (bool, error)

	// UserPermissionTuples returns the denormalized set of permissions the
	// user currently holds through any non-deleted role in the tenant,
	// restricted to allowed=true grants (tombstones already excluded).
	UserPermissionTuples(ctx context.Context, tenantID, userID string) ([]PermissionTuple, error)
}
