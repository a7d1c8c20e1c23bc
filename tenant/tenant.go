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

// Package tenant models the isolated customer workspace every policy
// decision is scoped to, and the module subscriptions (TenantModule)
// that govern layers L3/L3a/L3b of the decision engine.
package tenant

import (
	"context"
	"errors"
	"time"

	"github.com/opentrusty/rbac-core/policy"
)

// Domain errors
var (
	ErrTenantNotFound      = errors.New("tenant not found")
	ErrTenantAlreadyExists = errors.New("tenant already exists")
	ErrInvalidTenantName   = errors.New("invalid tenant name")
)

// Status constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Tenant represents an isolated environment or customer account.
//
// Purpose: Root container for data isolation in multi-tenant architecture.
// Domain: Tenant
// Invariants: ID must be unique. Status must be Active or Inactive. A
// tenant with Status != StatusActive fails layer L3 for every request
// regardless of module subscriptions.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Active reports whether the tenant currently passes layer L3.
func (t *Tenant) Active() bool {
	return t.Status == StatusActive
}

// Repository defines the interface for tenant persistence.
//
// Purpose: Abstraction for managing tenant lifecycle storage.
// Domain: Tenant
type Repository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetByName(ctx context.Context, name string) (*Tenant, error)
	Update(ctx context.Context, tenant *Tenant) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*Tenant, error)
}

// SubscriptionRepository is the write side of policy.TenantModule, the
// per-tenant module/submodule subscription record layers L3a/L3b read.
//
// Purpose: Administrative management of tenant module subscriptions.
// Domain: Tenant
type SubscriptionRepository interface {
	Subscribe(ctx context.Context, tenantID, moduleCode string, subModuleCode *string, expiresAt *time.Time) (*policy.TenantModule, error)
	SetEnabled(ctx context.Context, tenantModuleID string, enabled bool) error
	Unsubscribe(ctx context.Context, tenantModuleID string) error
	ListForTenant(ctx context.Context, tenantID string) ([]*policy.TenantModule, error)
	DeleteByTenantID(ctx context.Context, tenantID string) error
}
